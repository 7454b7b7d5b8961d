package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukatrade/whatsapp-commerce-be/internal/core/whatsapp"
	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/models"
	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/repositories"
	"github.com/dukatrade/whatsapp-commerce-be/internal/shared/utils"
)

// NotificationService pushes order status messages to customers over the
// gateway. Each order remembers whether its current status was already
// announced, so repeated saves never spam the customer.
type NotificationService struct {
	gateway whatsapp.Gateway
	orders  repositories.OrderRepo
}

func NewNotificationService(gateway whatsapp.Gateway, orders repositories.OrderRepo) *NotificationService {
	return &NotificationService{
		gateway: gateway,
		orders:  orders,
	}
}

// NotifyStatusChange sends the message for the order's current status.
// Send failures are logged and the flag stays unset, so the next status
// update retries naturally. Nothing here ever fails the caller.
func (s *NotificationService) NotifyStatusChange(ctx context.Context, order *models.Order) {
	if order.StatusNotified {
		utils.LogDebug("Notification already sent for this status", utils.Fields{
			"order_number": order.OrderNumber,
			"status":       order.Status,
		})
		return
	}

	message := s.statusMessage(order)
	if message == "" {
		return
	}

	if err := s.gateway.SendText(order.CustomerPhone, message); err != nil {
		utils.LogError("❌ Failed to send status notification", err, utils.Fields{
			"order_number": order.OrderNumber,
			"status":       order.Status,
		})
		return
	}

	order.StatusNotified = true
	if err := s.orders.Save(ctx, order); err != nil {
		utils.LogError("❌ Failed to persist notification flag", err, utils.Fields{
			"order_number": order.OrderNumber,
		})
		return
	}

	utils.LogInfo("📨 Status notification sent", utils.Fields{
		"order_number": order.OrderNumber,
		"status":       order.Status,
	})
}

func (s *NotificationService) statusMessage(order *models.Order) string {
	switch order.Status {
	case models.OrderStatusConfirmed:
		return fmt.Sprintf(
			"✅ *Order Confirmed!*\n\n"+
				"Order #%s\n%s\n💰 Total: %s\n\n"+
				"We'll notify you when your order is being prepared.",
			order.OrderNumber, itemsSummary(order), money(order.TotalAmount))

	case models.OrderStatusProcessing:
		return fmt.Sprintf(
			"🔄 *Order Update*\n\n"+
				"Order #%s is being prepared.\n\n"+
				"We'll let you know as soon as it's ready for delivery.",
			order.OrderNumber)

	case models.OrderStatusReady:
		address := order.DeliveryAddress
		if address == "" {
			address = "To be confirmed"
		}
		return fmt.Sprintf(
			"📦 *Order Ready!*\n\n"+
				"Order #%s is out for delivery.\n📍 %s\n💰 Total: %s",
			order.OrderNumber, address, money(order.TotalAmount))

	case models.OrderStatusDelivered:
		return fmt.Sprintf(
			"🎉 *Order Delivered!*\n\n"+
				"Order #%s has been delivered.\n💰 Total paid: %s\n\n"+
				"Thank you for shopping with us! Type *menu* and choose "+
				"\"Rate Order\" to tell us how we did.",
			order.OrderNumber, money(order.TotalAmount))

	case models.OrderStatusCancelled:
		return fmt.Sprintf(
			"❌ *Order Cancelled*\n\n"+
				"Order #%s has been cancelled.\n\n"+
				"Type *menu* to start a new order anytime.",
			order.OrderNumber)
	}
	return ""
}

func itemsSummary(order *models.Order) string {
	parts := make([]string, 0, len(order.Lines))
	for _, line := range order.Lines {
		parts = append(parts, fmt.Sprintf("%s x%d", line.ItemName, line.Quantity))
	}
	return strings.Join(parts, ", ")
}

// money formats an amount in the store currency.
func money(v float64) string {
	return fmt.Sprintf("TZS %.2f", v)
}
