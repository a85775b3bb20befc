package broker

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/juggajay/RiskSure.AI-sub002/internal/config"
	"github.com/juggajay/RiskSure.AI-sub002/internal/domains"
)

// Publisher handles publishing messages to the broker.
type Publisher struct {
	client mqtt.Client
	log    *zap.Logger
}

// NewPublisher creates a new MQTT publisher.
func NewPublisher(cfg *config.BrokerConfig, log *zap.Logger) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.URL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c mqtt.Client) {
			log.Info("connected to message broker")
		}).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			log.Warn("broker connection lost", zap.Error(err))
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)

	token := client.Connect()
	if token.WaitTimeout(10 * time.Second) {
		if token.Error() != nil {
			return nil, fmt.Errorf("failed to connect to broker: %w", token.Error())
		}
	} else {
		return nil, fmt.Errorf("broker connection timeout")
	}

	return &Publisher{client: client, log: log}, nil
}

// PublishEvent publishes a domain event under events/{event_type}.
func (p *Publisher) PublishEvent(eventType, companyID string, data map[string]interface{}) error {
	msg := domains.NewEventMessage(eventType, companyID, data)

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	topic := EventTopic(eventType)
	if err := p.publish(topic, payload); err != nil {
		return err
	}

	p.log.Debug("event published", zap.String("topic", topic), zap.String("company_id", companyID))
	return nil
}

// PublishRaw publishes raw bytes to a specific topic.
func (p *Publisher) PublishRaw(topic string, payload []byte) error {
	return p.publish(topic, payload)
}

func (p *Publisher) publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, 1, false, payload)
	if token.WaitTimeout(5 * time.Second) {
		if token.Error() != nil {
			return fmt.Errorf("failed to publish: %w", token.Error())
		}
	} else {
		return fmt.Errorf("publish timeout")
	}
	return nil
}

// Close closes the broker connection.
func (p *Publisher) Close() {
	p.client.Disconnect(1000)
	p.log.Info("disconnected from message broker")
}
