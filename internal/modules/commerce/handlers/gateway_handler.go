package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dukatrade/whatsapp-commerce-be/internal/core/whatsapp"
	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/services"
)

// GatewayHandler exposes transport status, QR pairing, and the manual
// abandoned-cart trigger.
type GatewayHandler struct {
	gateway       *whatsapp.Service
	abandonedCart *services.AbandonedCartService
}

func NewGatewayHandler(gateway *whatsapp.Service, abandonedCart *services.AbandonedCartService) *GatewayHandler {
	return &GatewayHandler{
		gateway:       gateway,
		abandonedCart: abandonedCart,
	}
}

// Status godoc
// @Summary WhatsApp transport status
// @Tags Gateway
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /whatsapp/status [get]
func (h *GatewayHandler) Status(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"provider":  h.gateway.ProviderName(),
		"connected": h.gateway.IsConnected(),
	})
}

// PairingQR godoc
// @Summary Pairing QR code
// @Description PNG QR code for providers that pair by scanning
// @Tags Gateway
// @Produce png
// @Success 200 {file} binary
// @Failure 400 {object} map[string]interface{}
// @Router /whatsapp/qr [get]
func (h *GatewayHandler) PairingQR(c *fiber.Ctx) error {
	png, err := h.gateway.GenerateQR()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set("Content-Type", "image/png")
	return c.Send(png)
}

// TriggerAbandonedCartCheck godoc
// @Summary Run the abandoned cart scan now
// @Tags Gateway
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /whatsapp/abandoned-carts/check [post]
func (h *GatewayHandler) TriggerAbandonedCartCheck(c *fiber.Ctx) error {
	sent, err := h.abandonedCart.CheckAbandonedCarts()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"sent":    sent,
		"message": "Abandoned cart check triggered",
	})
}
