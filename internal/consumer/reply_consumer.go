package consumer

import (
	"context"
	"encoding/json"

	"github.com/vaidarjogo/go-confirmation-service/internal/domain"
	"github.com/vaidarjogo/go-confirmation-service/internal/service"
	"github.com/vaidarjogo/go-confirmation-service/internal/shared/logger"
	"github.com/vaidarjogo/go-confirmation-service/internal/shared/rabbitmq"
)

const (
	// RepliesExchange carries inbound transport replies
	RepliesExchange = "confirmations"
	// RepliesRoutingKey is the routing key the webhook publishes under
	RepliesRoutingKey = "reply.received"

	repliesQueue   = "whatsapp_replies"
	repliesBinding = "reply.*"
	consumerTag    = "confirmation-service"
)

// ReplyConsumer drains the inbound-reply queue and feeds the response
// resolver. Replies arrive asynchronously from the transport webhook; the
// queue decouples webhook latency from resolution work.
type ReplyConsumer struct {
	client    *rabbitmq.RabbitMQClient
	responses *service.ResponseService
	log       *logger.Logger
}

// NewReplyConsumer creates a new reply consumer
func NewReplyConsumer(client *rabbitmq.RabbitMQClient, responses *service.ResponseService, log *logger.Logger) *ReplyConsumer {
	return &ReplyConsumer{
		client:    client,
		responses: responses,
		log:       log,
	}
}

// Setup declares the exchange, queue and binding for inbound replies
func Setup(client *rabbitmq.RabbitMQClient) error {
	if err := client.DeclareExchange(RepliesExchange, "topic"); err != nil {
		return err
	}
	if err := client.DeclareQueue(repliesQueue); err != nil {
		return err
	}
	return client.BindQueue(repliesQueue, repliesBinding, RepliesExchange)
}

// Start starts consuming replies. Blocks until the channel closes.
func (c *ReplyConsumer) Start() error {
	c.log.Info("Starting reply consumer", "queue", repliesQueue)

	if err := Setup(c.client); err != nil {
		c.log.Error("Failed to set up reply queue", "error", err)
		return err
	}

	messages, err := c.client.Consume(repliesQueue, consumerTag)
	if err != nil {
		c.log.Error("Failed to start consuming", "error", err)
		return err
	}

	for msg := range messages {
		var reply domain.InboundMessage
		if err := json.Unmarshal(msg.Body, &reply); err != nil {
			c.log.Error("Failed to unmarshal reply", "error", err)
			msg.Nack(false, false) // malformed, don't requeue
			continue
		}

		ctx := context.Background()
		result, err := c.responses.Resolve(ctx, reply)
		if err != nil {
			// Store failure; requeue so the reply is not lost
			c.log.Error("Failed to resolve reply", "error", err, "from", reply.From)
			msg.Nack(false, true)
			continue
		}

		msg.Ack(false)
		c.log.Debug("Reply handled", "from", reply.From, "outcome", result.Outcome)
	}

	return nil
}
