package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/models"
	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/services"
	"github.com/dukatrade/whatsapp-commerce-be/internal/shared/apperr"
)

type OrderHandler struct {
	orders   *services.OrderService
	dialogue *services.DialogueService
}

func NewOrderHandler(orders *services.OrderService, dialogue *services.DialogueService) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		dialogue: dialogue,
	}
}

// statusFromErr maps service errors onto HTTP status codes.
func statusFromErr(err error) int {
	switch {
	case apperr.IsNotFound(err):
		return fiber.StatusNotFound
	case apperr.IsInsufficientStock(err), apperr.IsInvalidState(err):
		return fiber.StatusBadRequest
	case apperr.IsValidation(err):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(statusFromErr(err)).JSON(fiber.Map{"error": err.Error()})
}

// CreateOrder godoc
// @Summary Create an order
// @Description Place an order directly, validating stock without deducting it
// @Tags Orders
// @Accept json
// @Produce json
// @Param order body services.CreateOrderRequest true "Order"
// @Success 201 {object} models.Order
// @Failure 400 {object} map[string]interface{}
// @Router /orders [post]
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req services.CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	order, err := h.orders.CreateOrder(c.Context(), req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

// ListOrders godoc
// @Summary List all orders
// @Tags Orders
// @Produce json
// @Success 200 {array} models.Order
// @Router /orders [get]
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	orders, err := h.orders.FindAll(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(orders)
}

// GetOrder godoc
// @Summary Get one order
// @Tags Orders
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} models.Order
// @Failure 404 {object} map[string]interface{}
// @Router /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}

	order, err := h.orders.GetOrder(c.Context(), uint(id))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(order)
}

// ListOrdersByPhone godoc
// @Summary List a customer's orders
// @Tags Orders
// @Produce json
// @Param phone path string true "Customer phone"
// @Success 200 {array} models.Order
// @Router /orders/customer/{phone} [get]
func (h *OrderHandler) ListOrdersByPhone(c *fiber.Ctx) error {
	orders, err := h.orders.FindByPhone(c.Context(), c.Params("phone"), 0)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(orders)
}

type updateStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

// UpdateOrderStatus godoc
// @Summary Update order status
// @Description Move an order through its lifecycle; delivering deducts stock atomically
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path int true "Order ID"
// @Param status body updateStatusRequest true "New status"
// @Success 200 {object} models.Order
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /orders/{id}/status [put]
func (h *OrderHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}

	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	order, err := h.orders.UpdateStatus(c.Context(), uint(id), req.Status)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(order)
}

// CancelOrder godoc
// @Summary Cancel an order
// @Tags Orders
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} models.Order
// @Failure 400 {object} map[string]interface{}
// @Router /orders/{id}/cancel [post]
func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}

	order, err := h.orders.CancelOrder(c.Context(), uint(id))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(order)
}

// OrderStats godoc
// @Summary Order statistics
// @Tags Orders
// @Produce json
// @Success 200 {object} services.OrderStats
// @Router /orders/stats [get]
func (h *OrderHandler) OrderStats(c *fiber.Ctx) error {
	stats, err := h.orders.Stats(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(stats)
}

// ProductLink godoc
// @Summary Click-to-chat link for a product
// @Description Generate a wa.me link pre-filled with the quick-order token
// @Tags Products
// @Produce json
// @Param itemId path int true "Item ID"
// @Success 200 {object} services.ProductLink
// @Failure 404 {object} map[string]interface{}
// @Router /whatsapp/product-link/{itemId} [get]
func (h *OrderHandler) ProductLink(c *fiber.Ctx) error {
	itemID, err := strconv.ParseUint(c.Params("itemId"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid item id"})
	}

	link, err := h.dialogue.GenerateProductLink(c.Context(), uint(itemID))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(link)
}

// ProductLinkQR godoc
// @Summary QR code for a product's click-to-chat link
// @Tags Products
// @Produce png
// @Param itemId path int true "Item ID"
// @Success 200 {file} binary
// @Failure 404 {object} map[string]interface{}
// @Router /whatsapp/product-link/{itemId}/qr [get]
func (h *OrderHandler) ProductLinkQR(c *fiber.Ctx) error {
	itemID, err := strconv.ParseUint(c.Params("itemId"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid item id"})
	}

	png, err := h.dialogue.ProductLinkQR(c.Context(), uint(itemID))
	if err != nil {
		return fail(c, err)
	}

	c.Set("Content-Type", "image/png")
	return c.Send(png)
}
