package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const publishTimeout = 5 * time.Second

// tokenPublisher is the part of mqtt.Client used by Publisher.
type tokenPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Publisher sends script reports to an MQTT broker.
type Publisher struct {
	client tokenPublisher
	topic  string
	logger *slog.Logger
	close  func()
}

// NewPublisher connects to the broker named in config.
func NewPublisher(config *Config, logger *slog.Logger) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.MQTTBroker)
	opts.SetClientID(config.MQTTClientID)
	if config.MQTTUsername != "" {
		opts.SetUsername(config.MQTTUsername)
		opts.SetPassword(config.MQTTPassword)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", "error", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		return nil, fmt.Errorf("connect to %s: timed out", config.MQTTBroker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", config.MQTTBroker, err)
	}

	return &Publisher{
		client: client,
		topic:  config.MQTTTopic,
		logger: logger,
		close:  func() { client.Disconnect(500) },
	}, nil
}

// Publish sends view to "<topic>/<script>".
func (p *Publisher) Publish(view ReportView) error {
	payload, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	topic := p.topic + "/" + view.Script
	token := p.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	p.logger.Info("Report published", "topic", topic, "bytes", len(payload))
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	if p.close != nil {
		p.close()
	}
}
