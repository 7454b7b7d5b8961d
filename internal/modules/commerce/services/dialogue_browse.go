package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dukatrade/whatsapp-commerce-be/internal/core/catalog"
	"github.com/dukatrade/whatsapp-commerce-be/internal/core/whatsapp"
	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/models"
)

// WhatsApp allows 10 list rows; one is reserved for the back entry.
const maxBrowseRows = 9

func (s *DialogueService) showCategories(ctx context.Context) (*Transition, error) {
	categories, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	if len(categories) == 0 {
		return &Transition{
			Next: models.StateBrowsingCategories,
			Replies: []Reply{textReply(
				`No categories available at the moment. Type "menu" to return to main menu.`,
			)},
		}, nil
	}

	if len(categories) > maxBrowseRows {
		categories = categories[:maxBrowseRows]
	}
	rows := make([]whatsapp.Row, 0, len(categories)+1)
	for _, cat := range categories {
		rows = append(rows, whatsapp.Row{
			ID:          fmt.Sprintf("cat_%d", cat.ID),
			Title:       cat.Description,
			Description: cat.Code,
		})
	}
	rows = append(rows, whatsapp.Row{
		ID:          "back_to_menu",
		Title:       "⬅️ Back to Menu",
		Description: "Return to main menu",
	})

	return &Transition{
		Next: models.StateBrowsingCategories,
		Replies: []Reply{
			listReply("📂 Categories",
				"Please select a category to browse products:",
				"Select Category", rows),
		},
	}, nil
}

func (s *DialogueService) handleCategorySelection(ctx context.Context, sess *models.Session, token string) (*Transition, error) {
	if token == "back_to_menu" {
		return s.showMainMenu(), nil
	}

	categoryID, err := strconv.ParseUint(strings.TrimPrefix(token, "cat_"), 10, 32)
	if err != nil {
		t, cerr := s.showCategories(ctx)
		if cerr != nil {
			return nil, cerr
		}
		t.Replies = append([]Reply{textReply("Invalid category selection.")}, t.Replies...)
		return t, nil
	}

	return s.showItemsInCategory(ctx, uint(categoryID))
}

func (s *DialogueService) showItemsInCategory(ctx context.Context, categoryID uint) (*Transition, error) {
	items, err := s.catalog.FindItems(ctx, catalog.Filter{CategoryID: &categoryID})
	if err != nil {
		return nil, err
	}

	patch := func(c *models.SessionContext) {
		c.SelectedCategoryID = &categoryID
	}

	if len(items) == 0 {
		return &Transition{
			Next:  models.StateViewingItems,
			Patch: patch,
			Replies: []Reply{textReply(
				`No items found in this category. Type "menu" to return to main menu.`,
			)},
		}, nil
	}

	rows := itemRows(items, whatsapp.Row{
		ID:          "back_to_categories",
		Title:       "⬅️ Back",
		Description: "Return to categories",
	})

	return &Transition{
		Next:  models.StateViewingItems,
		Patch: patch,
		Replies: []Reply{
			listReply("📦 Products",
				"Select an item to add to your cart:",
				"Select Item", rows),
		},
	}, nil
}

// itemRows renders items as list rows with price and stock, ending with back.
func itemRows(items []catalog.Item, back whatsapp.Row) []whatsapp.Row {
	if len(items) > maxBrowseRows {
		items = items[:maxBrowseRows]
	}
	rows := make([]whatsapp.Row, 0, len(items)+1)
	for i := range items {
		item := &items[i]
		stockInfo := "Out of stock"
		if item.FirstStock() != nil {
			stockInfo = fmt.Sprintf("Stock: %d", item.Available())
		}
		priceInfo := "Price N/A"
		if price := item.ActivePrice(); price != nil {
			priceInfo = "TZS " + trimAmount(price.SellingPrice)
		}
		rows = append(rows, whatsapp.Row{
			ID:          fmt.Sprintf("item_%d", item.ID),
			Title:       item.Name,
			Description: fmt.Sprintf("%s | %s", priceInfo, stockInfo),
		})
	}
	return append(rows, back)
}

func (s *DialogueService) handleItemSelection(ctx context.Context, sess *models.Session, token string) (*Transition, error) {
	if token == "back_to_categories" {
		return s.showCategories(ctx)
	}

	itemID, err := strconv.ParseUint(strings.TrimPrefix(token, "item_"), 10, 32)
	if err != nil {
		return &Transition{Replies: []Reply{textReply("Invalid item selection.")}}, nil
	}

	return s.requestQuantity(ctx, uint(itemID))
}

func (s *DialogueService) requestQuantity(ctx context.Context, itemID uint) (*Transition, error) {
	item, err := s.catalog.GetItem(ctx, itemID)
	if err != nil {
		t := s.showMainMenu()
		t.Replies = append([]Reply{textReply("Item not found.")}, t.Replies...)
		return t, nil
	}

	details := fmt.Sprintf(
		"📦 *%s*\n%s\n💰 Price: %s\n📊 Available: %d units\n\n"+
			`Please enter the quantity you want to order (or type "cancel" to go back):`,
		item.Name, conditionBadge(item), priceTag(item.ActivePrice()), item.Available())

	return &Transition{
		Next: models.StateAddingToCart,
		Patch: func(c *models.SessionContext) {
			c.SelectedItemID = &itemID
		},
		Replies: []Reply{productReply(item, details)},
	}, nil
}

func (s *DialogueService) handleAddToCart(ctx context.Context, sess *models.Session, token string) (*Transition, error) {
	if strings.EqualFold(token, "cancel") {
		return s.showMainMenu(), nil
	}

	quantity, err := strconv.Atoi(token)
	if err != nil || quantity <= 0 {
		return &Transition{Replies: []Reply{textReply(
			"Please enter a valid quantity (positive number):",
		)}}, nil
	}

	if sess.Context.SelectedItemID == nil {
		t := s.showMainMenu()
		t.Replies = append([]Reply{textReply("Session expired. Please start again.")}, t.Replies...)
		return t, nil
	}

	item, err := s.catalog.GetItem(ctx, *sess.Context.SelectedItemID)
	if err != nil {
		return nil, err
	}

	stock := item.FirstStock()
	if stock == nil || stock.Quantity < quantity {
		return &Transition{Replies: []Reply{textReply(fmt.Sprintf(
			"Sorry, only %d units available. Please enter a lower quantity:", item.Available(),
		))}}, nil
	}

	var unitPrice float64
	if price := item.ActivePrice(); price != nil {
		unitPrice = price.SellingPrice
	}
	line := models.CartLine{
		ItemID:      item.ID,
		ItemName:    item.Name,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		WarehouseID: stock.WarehouseID,
	}

	return &Transition{
		Next: models.StateMainMenu,
		Patch: func(c *models.SessionContext) {
			c.AddCartLine(line)
		},
		Replies: []Reply{buttonReply(
			fmt.Sprintf("✅ Added %d x %s to your cart!\n\nWhat would you like to do next?",
				quantity, item.Name),
			whatsapp.Button{ID: "continue_shopping", Title: "🛍️ Continue Shopping"},
			whatsapp.Button{ID: "view_cart", Title: "🛒 View Cart"},
			whatsapp.Button{ID: "checkout", Title: "✔️ Checkout"},
		)},
	}, nil
}

func (s *DialogueService) initiateSearch() *Transition {
	return &Transition{
		Next: models.StateSearching,
		Replies: []Reply{textReply(
			"🔍 Search for products\n\n" +
				`Please enter the product name you are looking for (or type "cancel" to go back):`,
		)},
	}
}

func (s *DialogueService) handleSearch(ctx context.Context, sess *models.Session, query string) (*Transition, error) {
	if strings.EqualFold(query, "cancel") {
		return s.showMainMenu(), nil
	}

	results, err := s.catalog.FindItems(ctx, catalog.Filter{NameQuery: query})
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return &Transition{Replies: []Reply{textReply(fmt.Sprintf(
			"No products found matching \"%s\". Please try a different search term or type \"menu\" to return to main menu.",
			query,
		))}}, nil
	}

	rows := itemRows(results, whatsapp.Row{
		ID:          "back_to_menu",
		Title:       "⬅️ Back to Menu",
		Description: "Return to main menu",
	})

	return &Transition{
		Next: models.StateViewingItems,
		Patch: func(c *models.SessionContext) {
			c.SearchQuery = query
		},
		Replies: []Reply{
			listReply("🔍 Search Results",
				fmt.Sprintf("Found %d product(s) matching \"%s\":", len(results), query),
				"Select Item", rows),
		},
	}, nil
}

func (s *DialogueService) initiateCodeSearch() *Transition {
	return &Transition{
		Next: models.StateSearchingByCode,
		Replies: []Reply{textReply(
			"🔢 Search by Product Code\n\n" +
				`Please enter the product code (or type "cancel" to go back):`,
		)},
	}
}

func (s *DialogueService) handleCodeSearch(ctx context.Context, sess *models.Session, code string) (*Transition, error) {
	if strings.EqualFold(code, "cancel") {
		return s.showMainMenu(), nil
	}

	matches, err := s.catalog.FindItems(ctx, catalog.Filter{Code: code})
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		return &Transition{Replies: []Reply{textReply(fmt.Sprintf(
			"❌ No product found with code \"%s\".\n\n"+
				"Please check the code and try again, or type \"menu\" to return to main menu.",
			code,
		))}}, nil
	}

	item := &matches[0]
	desc := ""
	if item.Description != "" {
		desc = fmt.Sprintf("\n📝 %s\n", item.Description)
	}
	details := fmt.Sprintf(
		"✅ Product Found!\n\n"+
			"📦 %s\n%s\n🔢 Code: %s\n💰 Price: %s\n📊 Available: %d units\n%s\n"+
			`Please enter the quantity you want to order (or type "cancel" to go back):`,
		item.Name, conditionBadge(item), item.Code, priceTag(item.ActivePrice()),
		item.Available(), desc)

	itemID := item.ID
	return &Transition{
		Next: models.StateAddingToCart,
		Patch: func(c *models.SessionContext) {
			c.SelectedItemID = &itemID
		},
		Replies: []Reply{productReply(item, details)},
	}, nil
}

// showCart renders the cart from the live session context. An empty cart
// lands back on the main menu state.
func (s *DialogueService) showCart(sess *models.Session) *Transition {
	cart := sess.Context.Cart

	if len(cart) == 0 {
		return &Transition{
			Next: models.StateMainMenu,
			Replies: []Reply{buttonReply(
				"🛒 Your cart is empty.\n\nStart shopping to add items!",
				whatsapp.Button{ID: "browse_categories", Title: "📂 Browse Products"},
				whatsapp.Button{ID: "search_products", Title: "🔍 Search"},
			)},
		}
	}

	var sb strings.Builder
	sb.WriteString("🛒 Your Shopping Cart\n\n")
	for i, line := range cart {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, line.ItemName))
		sb.WriteString(fmt.Sprintf("   Qty: %d x TZS %s = TZS %s\n\n",
			line.Quantity, trimAmount(line.UnitPrice), trimAmount(line.TotalPrice)))
	}
	sb.WriteString("━━━━━━━━━━━━━━━━\n")
	sb.WriteString(fmt.Sprintf("💰 Total: %s", money(sess.Context.CartTotal())))

	return &Transition{
		Next: models.StateCartReview,
		Replies: []Reply{buttonReply(sb.String(),
			whatsapp.Button{ID: "checkout", Title: "✔️ Checkout"},
			whatsapp.Button{ID: "clear_cart", Title: "🗑️ Clear Cart"},
			whatsapp.Button{ID: "back_to_menu", Title: "⬅️ Back"},
		)},
	}
}

func (s *DialogueService) handleCartReview(ctx context.Context, sess *models.Session, token string) (*Transition, error) {
	switch token {
	case "checkout":
		return s.initiateCheckout(), nil

	case "clear_cart":
		t := s.showMainMenu()
		t.Patch = func(c *models.SessionContext) {
			c.ClearCart()
		}
		t.Replies = append([]Reply{textReply("🗑️ Cart cleared successfully!")}, t.Replies...)
		return t, nil

	case "back_to_menu", "continue_shopping":
		return s.showMainMenu(), nil

	default:
		return s.showCart(sess), nil
	}
}
