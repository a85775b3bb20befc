package broker

import (
	"encoding/json"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/juggajay/RiskSure.AI-sub002/internal/config"
)

// RequestMessage is an incoming request from a trusted internal service.
type RequestMessage struct {
	RequestID string                 `json:"request_id"`
	APIKey    string                 `json:"api_key"`
	CompanyID string                 `json:"company_id"`
	Action    string                 `json:"action"`
	Params    map[string]interface{} `json:"params"`
}

// ResponseMessage is the reply published on responses/{request_id}.
type ResponseMessage struct {
	RequestID string       `json:"request_id"`
	Success   bool         `json:"success"`
	Data      interface{}  `json:"data"`
	Error     *ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RequestHandler handles a specific action.
type RequestHandler func(req *RequestMessage) *ResponseMessage

// Consumer subscribes to request topics and routes to handlers.
type Consumer struct {
	client    mqtt.Client
	handlers  map[string]RequestHandler
	publisher *Publisher
	log       *zap.Logger
}

func NewConsumer(cfg *config.BrokerConfig, publisher *Publisher, log *zap.Logger) (*Consumer, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.URL).
		SetClientID(cfg.ClientID + "-consumer").
		SetAutoReconnect(true)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	log.Info("request consumer connected to broker")

	return &Consumer{
		client:    client,
		handlers:  make(map[string]RequestHandler),
		publisher: publisher,
		log:       log,
	}, nil
}

// RegisterHandler registers a handler for an action.
func (c *Consumer) RegisterHandler(action string, handler RequestHandler) {
	c.handlers[action] = handler
	c.log.Info("registered request handler", zap.String("action", action))
}

// Start subscribes to request topics.
func (c *Consumer) Start() error {
	topic := "requests/#"

	token := c.client.Subscribe(topic, 1, c.handleMessage)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}

	c.log.Info("subscribed to request topic", zap.String("topic", topic))
	return nil
}

func (c *Consumer) handleMessage(client mqtt.Client, msg mqtt.Message) {
	c.log.Debug("request received", zap.String("topic", msg.Topic()))

	// Topic form: requests/{action}
	parts := strings.Split(msg.Topic(), "/")
	if len(parts) < 2 {
		c.log.Warn("invalid request topic", zap.String("topic", msg.Topic()))
		return
	}
	topicAction := parts[len(parts)-1]

	var req RequestMessage
	if err := json.Unmarshal(msg.Payload(), &req); err != nil {
		c.log.Warn("failed to parse request message", zap.Error(err))
		c.publishError("", "parse_error", "Failed to parse request message")
		return
	}

	// Action from the message wins; the topic is the fallback.
	action := req.Action
	if action == "" {
		action = topicAction
	}

	handler, ok := c.handlers[action]
	if !ok {
		c.log.Warn("no handler for action", zap.String("action", action))
		c.publishError(req.RequestID, "unknown_action", "Unknown action: "+action)
		return
	}

	resp := handler(&req)
	c.publishResponse(req.RequestID, resp)
}

func (c *Consumer) publishResponse(requestID string, resp *ResponseMessage) {
	if requestID == "" {
		c.log.Warn("cannot publish response: missing request_id")
		return
	}

	resp.RequestID = requestID

	payload, err := json.Marshal(resp)
	if err != nil {
		c.log.Error("failed to marshal response", zap.Error(err))
		return
	}

	topic := ResponseTopic(requestID)
	if err := c.publisher.PublishRaw(topic, payload); err != nil {
		c.log.Error("failed to publish response", zap.String("topic", topic), zap.Error(err))
	}
}

func (c *Consumer) publishError(requestID, code, message string) {
	c.publishResponse(requestID, &ResponseMessage{
		RequestID: requestID,
		Success:   false,
		Error: &ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

func (c *Consumer) Close() {
	c.client.Disconnect(250)
	c.log.Info("request consumer disconnected")
}
