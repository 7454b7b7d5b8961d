package handlers

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/dukatrade/whatsapp-commerce-be/internal/core/whatsapp"
	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/services"
)

type WebhookHandler struct {
	dialogue    *services.DialogueService
	verifyToken string
}

func NewWebhookHandler(dialogue *services.DialogueService, verifyToken string) *WebhookHandler {
	return &WebhookHandler{
		dialogue:    dialogue,
		verifyToken: verifyToken,
	}
}

// CloudWebhookPayload is the Meta Cloud API webhook envelope.
type CloudWebhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				MessagingProduct string `json:"messaging_product"`
				Contacts         []struct {
					WaID    string `json:"wa_id"`
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []CloudWebhookMessage `json:"messages"`
				Statuses []struct {
					ID     string `json:"id"`
					Status string `json:"status"`
				} `json:"statuses"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// CloudWebhookMessage is one incoming message in the webhook envelope.
type CloudWebhookMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply,omitempty"`
		ListReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"list_reply,omitempty"`
	} `json:"interactive,omitempty"`
	Button *struct {
		Payload string `json:"payload"`
		Text    string `json:"text"`
	} `json:"button,omitempty"`
}

// VerifyWebhook godoc
// @Summary WhatsApp webhook verification
// @Description Echo the hub.challenge when Meta verifies the webhook URL
// @Tags Webhook
// @Produce plain
// @Param hub.mode query string true "subscribe"
// @Param hub.verify_token query string true "Verify token"
// @Param hub.challenge query string true "Challenge to echo"
// @Success 200 {string} string
// @Failure 403 {object} map[string]interface{}
// @Router /whatsapp/webhook [get]
func (h *WebhookHandler) VerifyWebhook(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token != "" && token == h.verifyToken {
		log.Println("✅ Webhook verified")
		return c.SendString(challenge)
	}

	log.Printf("⚠️ Webhook verification failed - mode: %s", mode)
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error": "verification failed",
	})
}

// ReceiveWebhook godoc
// @Summary WhatsApp webhook receiver
// @Description Receive message events from the WhatsApp Cloud API
// @Tags Webhook
// @Accept json
// @Produce json
// @Param payload body CloudWebhookPayload true "Webhook payload"
// @Success 200 {object} map[string]interface{}
// @Router /whatsapp/webhook [post]
func (h *WebhookHandler) ReceiveWebhook(c *fiber.Ctx) error {
	var payload CloudWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("❌ Failed to parse webhook: %v", err)
		// Still 200: Meta retries aggressively on anything else.
		return c.JSON(fiber.Map{"status": "ignored"})
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			names := map[string]string{}
			for _, contact := range change.Value.Contacts {
				names[contact.WaID] = contact.Profile.Name
			}

			for _, msg := range change.Value.Messages {
				inbound := toInbound(msg, names[msg.From])
				log.Printf("📨 Webhook message from %s (type: %s)", inbound.From, inbound.Type)

				// Respond 200 immediately; the dialogue runs in the
				// background under the sender's session lock.
				go h.dialogue.HandleIncoming(context.Background(), inbound)
			}
		}
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

func toInbound(msg CloudWebhookMessage, profileName string) *whatsapp.Inbound {
	inbound := &whatsapp.Inbound{
		ID:          msg.ID,
		From:        msg.From,
		ProfileName: profileName,
		Type:        msg.Type,
	}

	switch msg.Type {
	case "text":
		if msg.Text != nil {
			inbound.Text = msg.Text.Body
		}
	case "interactive":
		if msg.Interactive != nil {
			if msg.Interactive.ButtonReply != nil {
				inbound.ReplyID = msg.Interactive.ButtonReply.ID
			} else if msg.Interactive.ListReply != nil {
				inbound.ReplyID = msg.Interactive.ListReply.ID
			}
		}
	case "button":
		if msg.Button != nil {
			inbound.ReplyID = msg.Button.Payload
		}
	}
	return inbound
}
