// internal/core/whatsapp/service.go
package whatsapp

import (
	"log"
)

// Service wraps a Provider. This is the layer the application talks to.
type Service struct {
	provider Provider
}

// NewService builds the service with the provider selected by environment.
func NewService(storeURL string) *Service {
	cfg, err := LoadProviderFromEnv()
	if err != nil {
		log.Fatalf("❌ Failed to load provider config: %v", err)
	}

	// Override storeURL when given
	if storeURL != "" {
		cfg.StoreURL = storeURL
	}

	provider, err := NewProvider(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to create provider: %v", err)
	}

	log.Printf("✅ Using WhatsApp provider: %s", provider.GetProviderName())

	return &Service{
		provider: provider,
	}
}

// NewServiceWithProvider builds the service with a specific provider (for testing)
func NewServiceWithProvider(provider Provider) *Service {
	return &Service{
		provider: provider,
	}
}

func (s *Service) Connect() error {
	return s.provider.Connect()
}

func (s *Service) Disconnect() {
	s.provider.Disconnect()
}

func (s *Service) StartListening(handler func(msg *Inbound)) error {
	return s.provider.StartListening(handler)
}

func (s *Service) GenerateQR() ([]byte, error) {
	return s.provider.GenerateQR()
}

func (s *Service) IsConnected() bool {
	return s.provider.IsConnected()
}

func (s *Service) ProviderName() string {
	return s.provider.GetProviderName()
}

func (s *Service) SendText(phoneNumber, body string) error {
	return s.provider.SendText(phoneNumber, body)
}

func (s *Service) SendButtons(phoneNumber, body string, buttons []Button) error {
	return s.provider.SendButtons(phoneNumber, body, buttons)
}

func (s *Service) SendList(phoneNumber, header, body, footer, buttonText string, sections []Section) error {
	return s.provider.SendList(phoneNumber, header, body, footer, buttonText, sections)
}

func (s *Service) SendImage(phoneNumber, imageURL, caption string) error {
	return s.provider.SendImage(phoneNumber, imageURL, caption)
}

func (s *Service) MarkRead(messageID string) error {
	return s.provider.MarkRead(messageID)
}
