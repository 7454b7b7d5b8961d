package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dukatrade/whatsapp-commerce-be/internal/core/whatsapp"
)

type HealthHandler struct {
	whatsappService *whatsapp.Service
}

func NewHealthHandler(whatsappService *whatsapp.Service) *HealthHandler {
	return &HealthHandler{whatsappService: whatsappService}
}

// GetHealth godoc
// @Summary Service health check
// @Description Check if API is alive
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) GetHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "ok",
		"service":  "whatsapp-commerce-api",
		"provider": h.whatsappService.ProviderName(),
	})
}
