package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"i4.energy/across/atlink/metrics"
	"i4.energy/across/atlink/sequence"
	"i4.energy/across/atlink/session"
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.String("serial-port", "/dev/ttyUSB0", "Serial port the peripheral is attached to")
	flag.Int("baud-rate", 115200, "Baud rate for serial communication")
	flag.String("driver", "bugst", "Serial driver (bugst, tarm)")
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server, empty to disable")
	flag.String("http-token", "", "Bearer token required by the HTTP server")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.String("profile", "lte-apj", "Built-in script run at startup")
	flag.String("script", "", "TOML script run at startup instead of the profile")
	flag.Duration("timeout", 5*time.Second, "Default response timeout of a command")
	flag.String("mqtt-broker", "", "MQTT broker reports are published to (e.g. tcp://localhost:1883)")
	flag.String("mqtt-client-id", "atlink", "MQTT client id")
	flag.String("mqtt-topic", "atlink/report", "MQTT topic prefix of published reports")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(config.LogLevel)}))

	script, err := loadStartupScript(config)
	if err != nil {
		logger.Error("Failed to load script", "error", err)
		return 1
	}

	driver, err := session.ParseDriver(config.Driver)
	if err != nil {
		logger.Error("Invalid serial driver", "error", err)
		return 1
	}

	sessionConfig, err := session.NewConfigBuilder().
		WithDialer(session.SerialDialer{
			PortName: config.SerialPort,
			BaudRate: config.BaudRate,
			Driver:   driver,
		}).
		WithTerminator(script.Terminator).
		WithTimeout(config.Timeout).
		Build()
	if err != nil {
		logger.Error("Failed to create session config", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, err := session.New(ctx, sessionConfig)
	if err != nil {
		logger.Error("Failed to open session", "error", err, "port", config.SerialPort)
		return 1
	}
	defer func() {
		logger.Info("Closing session")
		if err := sess.Close(); err != nil {
			logger.Error("Failed to close session", "error", err)
		}
	}()

	metrics.RegisterMetrics()
	seq := sequence.New(sess, sequence.WithLogger(logger.With("component", "sequence")))
	worker := NewWorker(sess, seq, logger.With("component", "worker"))
	go func() {
		if err := worker.Loop(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Worker loop failed", "error", err)
		}
	}()

	var publisher *Publisher
	if config.MQTTBroker != "" {
		publisher, err = NewPublisher(config, logger.With("component", "mqtt"))
		if err != nil {
			logger.Error("Failed to connect to MQTT broker", "error", err)
		} else {
			defer publisher.Close()
		}
	}

	logger.Info("Starting atlink", "port", config.SerialPort, "script", script.Name)
	report, runErr := worker.RunScript(ctx, script)
	view := NewReportView(report, runErr)
	if runErr != nil {
		logger.Error("Script failed", "script", script.Name, "error", runErr, "halted", report.Halted)
	} else {
		logger.Info("Script succeeded", "script", script.Name, "fields", view.Fields)
	}
	if publisher != nil {
		if err := publisher.Publish(view); err != nil {
			logger.Error("Failed to publish report", "error", err)
		}
	}

	if config.BindAddress == "" {
		if runErr != nil {
			return 1
		}
		return 0
	}

	httpServer := &http.Server{
		Addr: config.BindAddress,
		Handler: &Server{
			Logger:   logger.With("component", "server"),
			Executor: worker,
			Token:    config.HTTPToken,
		},
	}

	// Start HTTP server in a goroutine
	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("Closing HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to gracefully shutdown server", "error", err)
		return 1
	}
	return 0
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadStartupScript(config *Config) (sequence.Script, error) {
	if config.ScriptPath != "" {
		return sequence.LoadScript(config.ScriptPath)
	}
	return sequence.Profile(config.Profile)
}
