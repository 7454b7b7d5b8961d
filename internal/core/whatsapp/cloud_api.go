// internal/core/whatsapp/cloud_api.go
package whatsapp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// CloudAPIProvider implements WhatsApp Cloud API (Official Business API)
// Documentation: https://developers.facebook.com/docs/whatsapp/cloud-api
type CloudAPIProvider struct {
	baseURL       string
	phoneNumberID string
	accessToken   string
	apiVersion    string
	client        *http.Client
}

// CloudAPIConfig holds configuration for WhatsApp Cloud API
type CloudAPIConfig struct {
	PhoneNumberID string `json:"phone_number_id"`
	AccessToken   string `json:"access_token"`
	APIVersion    string `json:"api_version"` // default: v18.0
}

// NewCloudAPIProvider creates a new WhatsApp Cloud API provider
func NewCloudAPIProvider(config CloudAPIConfig) (*CloudAPIProvider, error) {
	if config.PhoneNumberID == "" {
		return nil, fmt.Errorf("phone_number_id is required")
	}
	if config.AccessToken == "" {
		return nil, fmt.Errorf("access_token is required")
	}

	if config.APIVersion == "" {
		config.APIVersion = "v18.0"
	}

	baseURL := fmt.Sprintf("https://graph.facebook.com/%s/%s", config.APIVersion, config.PhoneNumberID)

	return &CloudAPIProvider{
		baseURL:       baseURL,
		phoneNumberID: config.PhoneNumberID,
		accessToken:   config.AccessToken,
		apiVersion:    config.APIVersion,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (p *CloudAPIProvider) GetProviderName() string {
	return "CloudAPI"
}

// Connect is a no-op for Cloud API (always connected via HTTP)
func (p *CloudAPIProvider) Connect() error {
	log.Printf("✅ WhatsApp Cloud API initialized (Phone Number ID: %s)", p.phoneNumberID)
	return nil
}

func (p *CloudAPIProvider) Disconnect() {}

func (p *CloudAPIProvider) IsConnected() bool {
	return true
}

// StartListening is a no-op: Cloud API delivers messages via webhook.
func (p *CloudAPIProvider) StartListening(handler func(msg *Inbound)) error {
	log.Println("ℹ️ Cloud API receives messages through the webhook endpoint")
	return nil
}

// GenerateQR is not supported: Cloud API authenticates with an access token.
func (p *CloudAPIProvider) GenerateQR() ([]byte, error) {
	return nil, fmt.Errorf("cloud api does not use QR pairing")
}

func (p *CloudAPIProvider) SendText(phoneNumber, body string) error {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                phoneNumber,
		"type":              "text",
		"text": map[string]interface{}{
			"body": body,
		},
	}
	return p.post(payload)
}

func (p *CloudAPIProvider) SendButtons(phoneNumber, body string, buttons []Button) error {
	if len(buttons) == 0 {
		return p.SendText(phoneNumber, body)
	}
	if len(buttons) > MaxButtons {
		buttons = buttons[:MaxButtons]
	}

	btns := make([]map[string]interface{}, 0, len(buttons))
	for _, b := range buttons {
		btns = append(btns, map[string]interface{}{
			"type": "reply",
			"reply": map[string]interface{}{
				"id":    b.ID,
				"title": truncate(b.Title, MaxButtonTitleLen),
			},
		})
	}

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                phoneNumber,
		"type":              "interactive",
		"interactive": map[string]interface{}{
			"type": "button",
			"body": map[string]interface{}{"text": body},
			"action": map[string]interface{}{
				"buttons": btns,
			},
		},
	}
	return p.post(payload)
}

func (p *CloudAPIProvider) SendList(phoneNumber, header, body, footer, buttonText string, sections []Section) error {
	total := 0
	secs := make([]map[string]interface{}, 0, len(sections))
	for _, s := range sections {
		rows := make([]map[string]interface{}, 0, len(s.Rows))
		for _, r := range s.Rows {
			if total >= MaxListRows {
				break
			}
			row := map[string]interface{}{
				"id":    r.ID,
				"title": truncate(r.Title, MaxRowTitleLen),
			}
			if r.Description != "" {
				row["description"] = truncate(r.Description, MaxRowDescLen)
			}
			rows = append(rows, row)
			total++
		}
		if len(rows) == 0 {
			continue
		}
		sec := map[string]interface{}{"rows": rows}
		if s.Title != "" {
			sec["title"] = truncate(s.Title, MaxRowTitleLen)
		}
		secs = append(secs, sec)
	}
	if total == 0 {
		return p.SendText(phoneNumber, body)
	}

	interactive := map[string]interface{}{
		"type": "list",
		"body": map[string]interface{}{"text": body},
		"action": map[string]interface{}{
			"button":   truncate(buttonText, MaxButtonTitleLen),
			"sections": secs,
		},
	}
	if header != "" {
		interactive["header"] = map[string]interface{}{
			"type": "text",
			"text": truncate(header, 60),
		}
	}
	if footer != "" {
		interactive["footer"] = map[string]interface{}{"text": truncate(footer, 60)}
	}

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                phoneNumber,
		"type":              "interactive",
		"interactive":       interactive,
	}
	return p.post(payload)
}

func (p *CloudAPIProvider) SendImage(phoneNumber, imageURL, caption string) error {
	if imageURL == "" {
		return p.SendText(phoneNumber, caption)
	}
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                phoneNumber,
		"type":              "image",
		"image": map[string]interface{}{
			"link":    imageURL,
			"caption": truncate(caption, MaxCaptionLen),
		},
	}
	return p.post(payload)
}

func (p *CloudAPIProvider) MarkRead(messageID string) error {
	if messageID == "" {
		return nil
	}
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"status":            "read",
		"message_id":        messageID,
	}
	return p.post(payload)
}

func (p *CloudAPIProvider) post(payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, p.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("cloud api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("cloud api returned %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}
