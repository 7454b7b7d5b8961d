package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dukatrade/whatsapp-commerce-be/internal/core/whatsapp"
	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/models"
	"github.com/dukatrade/whatsapp-commerce-be/internal/shared/utils"
)

func (s *DialogueService) initiateCheckout() *Transition {
	return &Transition{
		Next: models.StateEnteringAddress,
		Replies: []Reply{textReply(
			"📍 Please enter your delivery address:\n\n" +
				`(Or type "skip" to use phone number as reference)`,
		)},
	}
}

func (s *DialogueService) handleAddressEntry(ctx context.Context, sess *models.Session, address string) (*Transition, error) {
	deliveryAddress := address
	if strings.EqualFold(address, "skip") {
		deliveryAddress = ""
	}

	var sb strings.Builder
	sb.WriteString("📋 Order Summary\n\n")
	for i, line := range sess.Context.Cart {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, line.ItemName))
		sb.WriteString(fmt.Sprintf("   %d x TZS %s = TZS %s\n\n",
			line.Quantity, trimAmount(line.UnitPrice), trimAmount(line.TotalPrice)))
	}
	sb.WriteString("━━━━━━━━━━━━━━━━\n")
	sb.WriteString(fmt.Sprintf("💰 Total: %s\n\n", money(sess.Context.CartTotal())))
	if deliveryAddress != "" {
		sb.WriteString(fmt.Sprintf("📍 Delivery: %s\n\n", deliveryAddress))
	}
	sb.WriteString("Confirm your order?")

	return &Transition{
		Next: models.StateConfirmingOrder,
		Patch: func(c *models.SessionContext) {
			c.DeliveryAddress = deliveryAddress
		},
		Replies: []Reply{buttonReply(sb.String(),
			whatsapp.Button{ID: "confirm_order", Title: "✅ Confirm"},
			whatsapp.Button{ID: "cancel_order", Title: "❌ Cancel"},
		)},
	}, nil
}

func (s *DialogueService) handleOrderConfirmation(ctx context.Context, sess *models.Session, token string) (*Transition, error) {
	switch token {
	case "cancel_order":
		// The cart survives: the customer only backed out of this checkout.
		t := s.showMainMenu()
		t.Replies = append([]Reply{textReply("Order cancelled.")}, t.Replies...)
		return t, nil

	case "confirm_order":
		cart := sess.Context.Cart
		if len(cart) == 0 {
			t := s.showMainMenu()
			t.Replies = append([]Reply{textReply("Your cart is empty.")}, t.Replies...)
			return t, nil
		}

		lines := make([]OrderLineRequest, 0, len(cart))
		for _, line := range cart {
			lines = append(lines, OrderLineRequest{ItemID: line.ItemID, Quantity: line.Quantity})
		}

		order, err := s.orders.CreateOrder(ctx, CreateOrderRequest{
			CustomerPhone:   sess.PhoneNumber,
			WarehouseID:     cart[0].WarehouseID,
			Lines:           lines,
			DeliveryAddress: sess.Context.DeliveryAddress,
		})
		if err != nil {
			utils.LogError("❌ Error creating order", err, utils.Fields{"phone": sess.PhoneNumber})
			t := s.showMainMenu()
			t.Replies = append([]Reply{textReply(
				"❌ Failed to create order. Some items may be out of stock. Please try again or contact support.",
			)}, t.Replies...)
			return t, nil
		}

		return &Transition{
			Next: models.StateMainMenu,
			Patch: func(c *models.SessionContext) {
				c.ClearCart()
			},
			Replies: []Reply{textReply(fmt.Sprintf(
				"✅ Order Confirmed!\n\n"+
					"Order #%s\nTotal: TZS %s\nStatus: %s\n\n"+
					"We'll notify you when your order is ready for delivery!",
				order.OrderNumber, trimAmount(order.TotalAmount), order.Status,
			))},
		}, nil

	default:
		// Anything else while the confirm buttons are up is ignored.
		return nil, nil
	}
}

func (s *DialogueService) showOrderTracking(ctx context.Context, sess *models.Session) (*Transition, error) {
	orders, err := s.orders.FindByPhone(ctx, sess.PhoneNumber, 5)
	if err != nil {
		return nil, err
	}

	if len(orders) == 0 {
		return &Transition{
			Next: models.StateMainMenu,
			Replies: []Reply{textReply(
				"📦 No orders found.\n\nType \"menu\" to return to main menu.",
			)},
		}, nil
	}

	rows := make([]whatsapp.Row, 0, len(orders)+1)
	for i := range orders {
		order := &orders[i]
		rows = append(rows, whatsapp.Row{
			ID:    fmt.Sprintf("order_%d", order.ID),
			Title: "#" + order.OrderNumber,
			Description: fmt.Sprintf("%s | TZS %s | %s",
				order.Status, trimAmount(order.TotalAmount), order.CreatedAt.Format("02 Jan 2006")),
		})
	}
	rows = append(rows, whatsapp.Row{
		ID:          "back_to_menu",
		Title:       "⬅️ Back to Menu",
		Description: "Return to main menu",
	})

	return &Transition{
		Next: models.StateTrackingOrder,
		Replies: []Reply{
			listReply("📦 Your Orders",
				"Select an order to view details:",
				"View Order", rows),
		},
	}, nil
}

func (s *DialogueService) handleOrderTracking(ctx context.Context, sess *models.Session, token string) (*Transition, error) {
	if token == "back_to_menu" {
		return s.showMainMenu(), nil
	}

	orderID, err := strconv.ParseUint(strings.TrimPrefix(token, "order_"), 10, 32)
	if err != nil {
		return s.showOrderTracking(ctx, sess)
	}

	order, err := s.orders.GetOrder(ctx, uint(orderID))
	if err != nil || order.CustomerPhone != sess.PhoneNumber {
		t, terr := s.showOrderTracking(ctx, sess)
		if terr != nil {
			return nil, terr
		}
		t.Replies = append([]Reply{textReply("Order not found.")}, t.Replies...)
		return t, nil
	}

	var sb strings.Builder
	sb.WriteString("📦 Order Details\n\n")
	sb.WriteString(fmt.Sprintf("Order #%s\n", order.OrderNumber))
	sb.WriteString(fmt.Sprintf("Status: %s\n", strings.ToUpper(string(order.Status))))
	sb.WriteString(fmt.Sprintf("Date: %s\n\n", order.CreatedAt.Format("02 Jan 2006 15:04")))
	sb.WriteString("Items:\n")
	for i, line := range order.Lines {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, line.ItemName))
		sb.WriteString(fmt.Sprintf("   %d x TZS %s = TZS %s\n",
			line.Quantity, trimAmount(line.UnitPrice), trimAmount(line.TotalPrice)))
	}
	sb.WriteString("\n━━━━━━━━━━━━━━━━\n")
	sb.WriteString(fmt.Sprintf("💰 Total: TZS %s\n", trimAmount(order.TotalAmount)))
	if order.DeliveryAddress != "" {
		sb.WriteString(fmt.Sprintf("\n📍 Delivery: %s", order.DeliveryAddress))
	}

	return &Transition{
		Next: models.StateMainMenu,
		Replies: []Reply{buttonReply(sb.String(),
			whatsapp.Button{ID: "track_order", Title: "📦 My Orders"},
			whatsapp.Button{ID: "back_to_menu", Title: "⬅️ Main Menu"},
		)},
	}, nil
}
