package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/models"
	"github.com/dukatrade/whatsapp-commerce-be/internal/shared/utils"
)

// Rating and quick-reorder flows. Both are plain-text driven because the
// numbered lists can exceed what interactive messages allow.

func (s *DialogueService) showOrdersForRating(ctx context.Context, sess *models.Session) (*Transition, error) {
	unrated, err := s.orders.UnratedDelivered(ctx, sess.PhoneNumber)
	if err != nil {
		return nil, err
	}

	if len(unrated) == 0 {
		t := s.showMainMenu()
		t.Replies = append([]Reply{textReply(
			"🎉 Great news! You have no pending orders to rate.\n\n" +
				"All your delivered orders have been rated. Thank you for your feedback!",
		)}, t.Replies...)
		return t, nil
	}

	ids := make([]uint, 0, len(unrated))
	var sb strings.Builder
	sb.WriteString("⭐ *Rate Your Orders*\n\n")
	sb.WriteString("Please select an order to rate:\n\n")
	for i := range unrated {
		order := &unrated[i]
		ids = append(ids, order.ID)
		delivered := "N/A"
		if order.DeliveredAt != nil {
			delivered = order.DeliveredAt.Format("02 Jan 2006")
		}
		sb.WriteString(fmt.Sprintf("%d. Order #%s\n", i+1, order.OrderNumber))
		sb.WriteString(fmt.Sprintf("   📅 Delivered: %s\n", delivered))
		sb.WriteString(fmt.Sprintf("   💰 Total: TZS %s\n", trimAmount(order.TotalAmount)))
		sb.WriteString(fmt.Sprintf("   📦 Items: %d\n\n", len(order.Lines)))
	}
	sb.WriteString(fmt.Sprintf("Type the number (1-%d) or \"cancel\" to go back:", len(unrated)))

	return &Transition{
		Next: models.StateRatingOrder,
		Patch: func(c *models.SessionContext) {
			c.Rating = &models.RatingContext{UnratedOrderIDs: ids}
		},
		Replies: []Reply{textReply(sb.String())},
	}, nil
}

func (s *DialogueService) handleRatingSelection(ctx context.Context, sess *models.Session, token string) (*Transition, error) {
	if strings.EqualFold(token, "cancel") {
		return s.showMainMenu(), nil
	}

	rating := sess.Context.Rating
	if rating == nil {
		rating = &models.RatingContext{}
	}

	// An order is already picked: the number is the star rating.
	if rating.SelectedOrderID != nil {
		value, err := strconv.Atoi(token)
		if err != nil || value < 1 || value > 5 {
			return &Transition{Replies: []Reply{textReply(
				"❌ Please enter a valid rating between 1 and 5 stars.",
			)}}, nil
		}

		stars := strings.Repeat("⭐", value)
		return &Transition{
			Next: models.StateProvidingFeedback,
			Patch: func(c *models.SessionContext) {
				c.Rating.Value = &value
			},
			Replies: []Reply{textReply(fmt.Sprintf(
				"%s You rated this order %d/5 stars!\n\n"+
					"💬 Would you like to add feedback? (optional)\n\n"+
					"Type your feedback or \"skip\" to finish:",
				stars, value,
			))},
		}, nil
	}

	// Otherwise the number picks which order to rate.
	index, err := strconv.Atoi(token)
	if err != nil || index < 1 || index > len(rating.UnratedOrderIDs) {
		return &Transition{Replies: []Reply{textReply(fmt.Sprintf(
			"❌ Please enter a valid number between 1 and %d.", len(rating.UnratedOrderIDs),
		))}}, nil
	}

	orderID := rating.UnratedOrderIDs[index-1]
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📦 *Order #%s*\n\n", order.OrderNumber))
	sb.WriteString("🛍️ Items:\n")
	for _, line := range order.Lines {
		sb.WriteString(fmt.Sprintf("• %s x%d\n", line.ItemName, line.Quantity))
	}
	sb.WriteString(fmt.Sprintf("\n💰 Total: TZS %s\n\n", trimAmount(order.TotalAmount)))
	sb.WriteString("⭐ *How would you rate this order?*\n\n")
	sb.WriteString("Please rate from 1 to 5 stars:\n")
	sb.WriteString("1 ⭐ - Very Poor\n")
	sb.WriteString("2 ⭐⭐ - Poor\n")
	sb.WriteString("3 ⭐⭐⭐ - Average\n")
	sb.WriteString("4 ⭐⭐⭐⭐ - Good\n")
	sb.WriteString("5 ⭐⭐⭐⭐⭐ - Excellent\n\n")
	sb.WriteString("Type a number (1-5) or \"cancel\":")

	return &Transition{
		Patch: func(c *models.SessionContext) {
			if c.Rating == nil {
				c.Rating = &models.RatingContext{}
			}
			c.Rating.SelectedOrderID = &orderID
		},
		Replies: []Reply{textReply(sb.String())},
	}, nil
}

func (s *DialogueService) handleFeedbackInput(ctx context.Context, sess *models.Session, token string) (*Transition, error) {
	rating := sess.Context.Rating
	if rating == nil || rating.SelectedOrderID == nil || rating.Value == nil {
		t := s.showMainMenu()
		t.Replies = append([]Reply{textReply(
			"❌ Session expired. Please start rating again.",
		)}, t.Replies...)
		return t, nil
	}

	feedback := token
	if strings.EqualFold(token, "skip") {
		feedback = ""
	}

	if _, err := s.orders.RateOrder(ctx, *rating.SelectedOrderID, *rating.Value, feedback); err != nil {
		utils.LogError("❌ Error saving rating", err, utils.Fields{"phone": sess.PhoneNumber})
		t := s.showMainMenu()
		t.Patch = clearRating
		t.Replies = append([]Reply{textReply(
			"❌ Sorry, there was an error saving your rating. Please try again later.",
		)}, t.Replies...)
		return t, nil
	}

	stars := strings.Repeat("⭐", *rating.Value)
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s Thank you for your %d-star rating!\n\n", stars, *rating.Value))
	if feedback != "" {
		sb.WriteString("💬 Your feedback has been recorded.\n\n")
	}
	sb.WriteString("🙏 We appreciate your feedback and will use it to improve our service!\n\n")
	sb.WriteString("Type \"menu\" to return to the main menu.")

	replies := []Reply{textReply(sb.String())}
	if remaining, err := s.orders.UnratedDelivered(ctx, sess.PhoneNumber); err == nil && len(remaining) > 0 {
		replies = append(replies, textReply(fmt.Sprintf(
			"📝 You have %d more order(s) to rate.\n\n"+
				"Type \"rate\" to continue rating or \"menu\" for main menu.",
			len(remaining),
		)))
	}

	return &Transition{
		Next:    models.StateMainMenu,
		Patch:   clearRating,
		Replies: replies,
	}, nil
}

func clearRating(c *models.SessionContext) {
	c.Rating = nil
}

func (s *DialogueService) showOrderHistory(ctx context.Context, sess *models.Session) (*Transition, error) {
	orders, err := s.orders.FindByPhone(ctx, sess.PhoneNumber, 10)
	if err != nil {
		return nil, err
	}

	if len(orders) == 0 {
		t := s.showMainMenu()
		t.Replies = append([]Reply{textReply(
			"📭 You have no previous orders yet.\n\nStart shopping to build your order history!",
		)}, t.Replies...)
		return t, nil
	}

	ids := make([]uint, 0, len(orders))
	var sb strings.Builder
	sb.WriteString("🔄 *Quick Reorder*\n\n")
	sb.WriteString("Select an order to reorder:\n\n")
	for i := range orders {
		order := &orders[i]
		ids = append(ids, order.ID)

		statusEmoji := "⏳"
		switch order.Status {
		case models.OrderStatusDelivered:
			statusEmoji = "✅"
		case models.OrderStatusCancelled:
			statusEmoji = "❌"
		}

		sb.WriteString(fmt.Sprintf("%d. %s Order #%s\n", i+1, statusEmoji, order.OrderNumber))
		sb.WriteString(fmt.Sprintf("   📅 Date: %s\n", order.CreatedAt.Format("02 Jan 2006")))
		sb.WriteString(fmt.Sprintf("   💰 Total: TZS %s\n", trimAmount(order.TotalAmount)))
		sb.WriteString(fmt.Sprintf("   📦 Items: %s\n\n", itemsSummary(order)))
	}
	sb.WriteString(fmt.Sprintf("Type the number (1-%d) to reorder, or \"cancel\":", len(orders)))

	return &Transition{
		Next: models.StateViewingHistory,
		Patch: func(c *models.SessionContext) {
			c.Reorder = &models.ReorderContext{HistoryIDs: ids}
		},
		Replies: []Reply{textReply(sb.String())},
	}, nil
}

func (s *DialogueService) handleReorderSelection(ctx context.Context, sess *models.Session, token string) (*Transition, error) {
	if strings.EqualFold(token, "cancel") {
		return s.showMainMenu(), nil
	}

	reorder := sess.Context.Reorder
	if reorder == nil {
		reorder = &models.ReorderContext{}
	}

	index, err := strconv.Atoi(token)
	if err != nil || index < 1 || index > len(reorder.HistoryIDs) {
		return &Transition{Replies: []Reply{textReply(fmt.Sprintf(
			"❌ Please enter a valid number between 1 and %d.", len(reorder.HistoryIDs),
		))}}, nil
	}

	orderID := reorder.HistoryIDs[index-1]
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("🔄 *Reorder Confirmation*\n\n")
	sb.WriteString(fmt.Sprintf("📦 Order #%s\n\n", order.OrderNumber))
	sb.WriteString("🛍️ Items to be added to your cart:\n\n")
	for _, line := range order.Lines {
		sb.WriteString(fmt.Sprintf("• %s\n", line.ItemName))
		sb.WriteString(fmt.Sprintf("  Qty: %d × TZS %s = TZS %s\n\n",
			line.Quantity, trimAmount(line.UnitPrice), trimAmount(line.TotalPrice)))
	}
	sb.WriteString(fmt.Sprintf("💰 Total: TZS %s\n\n", trimAmount(order.TotalAmount)))
	sb.WriteString("✅ Type \"confirm\" to add these items to your cart\n")
	sb.WriteString("❌ Type \"cancel\" to go back")

	return &Transition{
		Next: models.StateSelectingReorder,
		Patch: func(c *models.SessionContext) {
			if c.Reorder == nil {
				c.Reorder = &models.ReorderContext{}
			}
			c.Reorder.SourceOrderID = &orderID
		},
		Replies: []Reply{textReply(sb.String())},
	}, nil
}

func (s *DialogueService) handleReorderConfirmation(ctx context.Context, sess *models.Session, token string) (*Transition, error) {
	if strings.EqualFold(token, "cancel") {
		return s.showMainMenu(), nil
	}

	if !strings.EqualFold(token, "confirm") {
		return &Transition{Replies: []Reply{textReply(
			`Please type "confirm" to proceed with the reorder, or "cancel" to go back.`,
		)}}, nil
	}

	reorder := sess.Context.Reorder
	if reorder == nil || reorder.SourceOrderID == nil {
		t := s.showMainMenu()
		t.Replies = append([]Reply{textReply(
			"❌ Session expired. Please start reorder again.",
		)}, t.Replies...)
		return t, nil
	}

	source, err := s.orders.GetOrder(ctx, *reorder.SourceOrderID)
	if err != nil || source.CustomerPhone != sess.PhoneNumber {
		utils.LogError("❌ Error processing reorder", err, utils.Fields{"phone": sess.PhoneNumber})
		t := s.showMainMenu()
		t.Patch = clearReorder
		t.Replies = append([]Reply{textReply(
			"❌ Sorry, there was an error processing your reorder. Some items may be out of stock. Please try again.",
		)}, t.Replies...)
		return t, nil
	}

	// Re-price every line at the current active price. Lines already in the
	// cart just gain quantity at their existing price.
	added := make([]models.CartLine, 0, len(source.Lines))
	for _, line := range source.Lines {
		item, ierr := s.catalog.GetItem(ctx, line.ItemID)
		if ierr != nil {
			utils.LogWarn("⚠️ Skipping reorder line, item unavailable", utils.Fields{
				"item_id": line.ItemID,
			})
			continue
		}
		var unitPrice float64
		if price := item.ActivePrice(); price != nil {
			unitPrice = price.SellingPrice
		}
		added = append(added, models.CartLine{
			ItemID:      item.ID,
			ItemName:    item.Name,
			Quantity:    line.Quantity,
			UnitPrice:   unitPrice,
			WarehouseID: source.WarehouseID,
		})
	}

	return &Transition{
		Next: models.StateMainMenu,
		Patch: func(c *models.SessionContext) {
			for _, line := range added {
				c.AddCartLine(line)
			}
			c.Reorder = nil
		},
		Replies: []Reply{textReply(fmt.Sprintf(
			"✅ *Reorder Successful!*\n\n"+
				"%d items have been added to your cart.\n\n"+
				"Type \"cart\" to review your cart or \"menu\" for main menu.",
			len(added),
		))},
	}, nil
}

func clearReorder(c *models.SessionContext) {
	c.Reorder = nil
}
