package webhook

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vaidarjogo/go-confirmation-service/internal/consumer"
	"github.com/vaidarjogo/go-confirmation-service/internal/domain"
	"github.com/vaidarjogo/go-confirmation-service/internal/shared/logger"
	"github.com/vaidarjogo/go-confirmation-service/internal/shared/rabbitmq"
	"github.com/vaidarjogo/go-confirmation-service/internal/whatsapp"
)

// WhatsAppHandler receives transport callbacks: the verification handshake
// and inbound messages. Messages are published to the reply queue and
// resolved asynchronously, so the provider always gets a fast 200.
type WhatsAppHandler struct {
	client    *whatsapp.Client
	publisher *rabbitmq.RabbitMQClient
	log       *logger.Logger
}

// NewWhatsAppHandler creates a new WhatsApp webhook handler
func NewWhatsAppHandler(client *whatsapp.Client, publisher *rabbitmq.RabbitMQClient, log *logger.Logger) *WhatsAppHandler {
	return &WhatsAppHandler{
		client:    client,
		publisher: publisher,
		log:       log,
	}
}

// webhookPayload mirrors the Cloud API webhook envelope
type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []struct {
					From      string `json:"from"`
					ID        string `json:"id"`
					Timestamp string `json:"timestamp"`
					Text      struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// Verify answers the provider's webhook verification handshake
func (h *WhatsAppHandler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if echo, ok := h.client.VerifyWebhook(mode, token, challenge); ok {
		c.String(http.StatusOK, echo)
		return
	}

	h.log.Warn("Webhook verification failed", "mode", mode)
	c.JSON(http.StatusForbidden, gin.H{"error": "verification failed"})
}

// Receive ingests inbound messages and publishes them to the reply queue
func (h *WhatsAppHandler) Receive(c *gin.Context) {
	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.log.Error("Invalid webhook payload", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	published := 0
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				inbound := domain.InboundMessage{
					From:              msg.From,
					Text:              msg.Text.Body,
					ProviderMessageID: msg.ID,
					Timestamp:         parseTimestamp(msg.Timestamp),
				}

				body, err := json.Marshal(inbound)
				if err != nil {
					continue
				}

				if err := h.publisher.Publish(consumer.RepliesExchange, consumer.RepliesRoutingKey, body); err != nil {
					h.log.Error("Failed to publish inbound reply", "error", err, "from", msg.From)
					continue
				}
				published++
			}
		}
	}

	h.log.Info("Webhook processed", "messages", published)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// AccountStatus proxies the transport account-health query
func (h *WhatsAppHandler) AccountStatus(c *gin.Context) {
	status, err := h.client.AccountStatus(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to query account status", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "account status unavailable"})
		return
	}

	c.JSON(http.StatusOK, status)
}

func parseTimestamp(ts string) time.Time {
	if unix, err := strconv.ParseInt(ts, 10, 64); err == nil {
		return time.Unix(unix, 0)
	}
	return time.Now()
}
