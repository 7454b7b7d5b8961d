// internal/core/whatsapp/provider.go
package whatsapp

import (
	"fmt"
	"os"
)

// WhatsApp interactive message limits. Anything longer is truncated before
// the payload leaves the gateway.
const (
	MaxButtons        = 3
	MaxListRows       = 10
	MaxButtonTitleLen = 20
	MaxRowTitleLen    = 24
	MaxRowDescLen     = 72
	MaxCaptionLen     = 1024
)

// Button is a quick-reply button on an interactive message.
type Button struct {
	ID    string
	Title string
}

// Row is a single selectable entry in a list message.
type Row struct {
	ID          string
	Title       string
	Description string
}

// Section groups list rows under an optional title.
type Section struct {
	Title string
	Rows  []Row
}

// Gateway is the outbound surface the application talks to. Providers that
// cannot render an interactive shape degrade it to plain text instead of
// failing the send.
type Gateway interface {
	// SendText sends a plain text message
	SendText(phoneNumber, body string) error

	// SendButtons sends a message with up to MaxButtons quick-reply buttons
	SendButtons(phoneNumber, body string, buttons []Button) error

	// SendList sends an interactive list with up to MaxListRows rows total
	SendList(phoneNumber, header, body, footer, buttonText string, sections []Section) error

	// SendImage sends an image by URL with a caption
	SendImage(phoneNumber, imageURL, caption string) error

	// MarkRead marks an incoming message as read (best effort)
	MarkRead(messageID string) error
}

// Provider adds connection lifecycle on top of Gateway.
type Provider interface {
	Gateway

	// Connect initializes the transport
	Connect() error

	// Disconnect tears the transport down
	Disconnect()

	// StartListening registers a handler for incoming messages. Providers
	// that receive messages via webhook instead keep this a no-op.
	StartListening(handler func(msg *Inbound)) error

	// GenerateQR returns a pairing QR code as PNG bytes, for providers
	// that pair via QR
	GenerateQR() ([]byte, error)

	// IsConnected checks whether the transport is up
	IsConnected() bool

	// GetProviderName returns the provider name for logging
	GetProviderName() string
}

// ProviderType for the factory
type ProviderType string

const (
	ProviderCloudAPI  ProviderType = "cloudapi"
	ProviderWhatsmeow ProviderType = "whatsmeow"
)

// ProviderConfig holds provider selection plus per-provider settings.
type ProviderConfig struct {
	Type ProviderType

	// Whatsmeow
	StoreURL string

	// Cloud API
	PhoneNumberID string
	AccessToken   string
	APIVersion    string
}

// NewProvider creates a provider from config.
func NewProvider(cfg *ProviderConfig) (Provider, error) {
	switch cfg.Type {
	case ProviderCloudAPI:
		return NewCloudAPIProvider(CloudAPIConfig{
			PhoneNumberID: cfg.PhoneNumberID,
			AccessToken:   cfg.AccessToken,
			APIVersion:    cfg.APIVersion,
		})

	case ProviderWhatsmeow:
		return NewWhatsmeowProvider(cfg.StoreURL), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// LoadProviderFromEnv loads provider config from environment variables.
func LoadProviderFromEnv() (*ProviderConfig, error) {
	providerType := os.Getenv("WHATSAPP_PROVIDER")
	if providerType == "" {
		providerType = "cloudapi" // default
	}

	cfg := &ProviderConfig{
		Type:     ProviderType(providerType),
		StoreURL: os.Getenv("WHATSAPP_STORE_URL"),

		// Cloud API
		PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
		AccessToken:   os.Getenv("WHATSAPP_ACCESS_TOKEN"),
		APIVersion:    os.Getenv("WHATSAPP_API_VERSION"),
	}

	return cfg, nil
}

// truncate cuts s to at most limit runes.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
