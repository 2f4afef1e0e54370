package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"i4.energy/across/atlink/sequence"
	"i4.energy/across/atlink/session"
)

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the server listens on (e.g. "0.0.0.0:8080").
	// An empty address disables the HTTP server.
	BindAddress string
	// HTTPToken, when set, is required as a bearer token on every request
	HTTPToken string
	// SerialPort is the path to the peripheral's serial port (e.g. "/dev/ttyUSB0")
	SerialPort string
	// BaudRate is the baud rate for serial communication (e.g. 115200)
	BaudRate int
	// Driver selects the serial library ("bugst" or "tarm")
	Driver string
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string
	// Profile is the built-in script run at startup (e.g. "lte-apj")
	Profile string
	// ScriptPath is a TOML script run at startup instead of Profile
	ScriptPath string
	// Timeout is the default response budget of a command
	Timeout time.Duration
	// MQTTBroker is the broker URL reports are published to. Empty disables MQTT.
	MQTTBroker   string
	MQTTClientID string
	MQTTTopic    string
	MQTTUsername string
	MQTTPassword string
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.SerialPort == "" {
		return errors.New("serial port is required")
	}
	if c.BaudRate <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.BaudRate)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("invalid timeout %s", c.Timeout)
	}
	if _, err := session.ParseDriver(c.Driver); err != nil {
		return err
	}
	if c.ScriptPath == "" && c.Profile != "" {
		if _, err := sequence.Profile(c.Profile); err != nil {
			return err
		}
	}
	if c.MQTTBroker != "" && c.MQTTTopic == "" {
		return errors.New("mqtt topic is required when a broker is set")
	}
	return nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.SerialPort = "/dev/ttyUSB0"
		c.BaudRate = 115200
		c.Driver = session.DriverBugst.String()
		c.LogLevel = "info"
		c.Profile = "lte-apj"
		c.Timeout = 5 * time.Second
		c.MQTTClientID = "atlink"
		c.MQTTTopic = "atlink/report"
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if addr, ok := os.LookupEnv("BIND_ADDRESS"); ok {
			c.BindAddress = addr
		}

		if token := os.Getenv("HTTP_TOKEN"); token != "" {
			c.HTTPToken = token
		}

		if serial := os.Getenv("SERIAL_PORT"); serial != "" {
			c.SerialPort = serial
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if driver := os.Getenv("SERIAL_DRIVER"); driver != "" {
			c.Driver = driver
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if profile := os.Getenv("PROFILE"); profile != "" {
			c.Profile = profile
		}

		if script := os.Getenv("SCRIPT"); script != "" {
			c.ScriptPath = script
		}

		if timeout := os.Getenv("COMMAND_TIMEOUT"); timeout != "" {
			if d, err := time.ParseDuration(timeout); err == nil {
				c.Timeout = d
			}
		}

		if broker := os.Getenv("MQTT_BROKER"); broker != "" {
			c.MQTTBroker = broker
		}

		if id := os.Getenv("MQTT_CLIENT_ID"); id != "" {
			c.MQTTClientID = id
		}

		if topic := os.Getenv("MQTT_TOPIC"); topic != "" {
			c.MQTTTopic = topic
		}

		if user := os.Getenv("MQTT_USERNAME"); user != "" {
			c.MQTTUsername = user
		}

		if pass := os.Getenv("MQTT_PASSWORD"); pass != "" {
			c.MQTTPassword = pass
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "bind-address":
				c.BindAddress = f.Value.String()
			case "http-token":
				c.HTTPToken = f.Value.String()
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BaudRate = b
				}
			case "driver":
				c.Driver = f.Value.String()
			case "log-level":
				c.LogLevel = f.Value.String()
			case "profile":
				c.Profile = f.Value.String()
			case "script":
				c.ScriptPath = f.Value.String()
			case "timeout":
				if d, err := time.ParseDuration(f.Value.String()); err == nil {
					c.Timeout = d
				}
			case "mqtt-broker":
				c.MQTTBroker = f.Value.String()
			case "mqtt-client-id":
				c.MQTTClientID = f.Value.String()
			case "mqtt-topic":
				c.MQTTTopic = f.Value.String()
			}

		})
		return nil
	}

}
