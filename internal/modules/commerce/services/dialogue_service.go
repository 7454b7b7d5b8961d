package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/dukatrade/whatsapp-commerce-be/internal/core/catalog"
	"github.com/dukatrade/whatsapp-commerce-be/internal/core/directory"
	"github.com/dukatrade/whatsapp-commerce-be/internal/core/whatsapp"
	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/models"
	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/repositories"
	"github.com/dukatrade/whatsapp-commerce-be/internal/shared/apperr"
	"github.com/dukatrade/whatsapp-commerce-be/internal/shared/utils"
)

type replyKind int

const (
	replyText replyKind = iota
	replyButtons
	replyList
	replyImage
)

// Reply is one outbound message produced by a dialogue handler. Handlers
// build replies; the engine sends them after the new state is committed.
type Reply struct {
	kind       replyKind
	body       string
	buttons    []whatsapp.Button
	header     string
	buttonText string
	rows       []whatsapp.Row
	imageURL   string
}

func textReply(body string) Reply {
	return Reply{kind: replyText, body: body}
}

func buttonReply(body string, buttons ...whatsapp.Button) Reply {
	return Reply{kind: replyButtons, body: body, buttons: buttons}
}

func listReply(header, body, buttonText string, rows []whatsapp.Row) Reply {
	return Reply{kind: replyList, header: header, body: body, buttonText: buttonText, rows: rows}
}

func imageReply(imageURL, caption string) Reply {
	return Reply{kind: replyImage, imageURL: imageURL, body: caption}
}

// Transition is the outcome of handling one inbound message: the state to
// move to (empty means stay), a mutation of the session context, and the
// replies to send. The engine commits state before sending, so a transport
// failure never desynchronizes the conversation.
type Transition struct {
	Next    models.SessionState
	Patch   func(*models.SessionContext)
	Replies []Reply
}

type dialogueHandler func(ctx context.Context, sess *models.Session, token string) (*Transition, error)

// DialogueService is the conversation engine. One inbound message maps to at
// most one transition, applied under the sender's session lock.
type DialogueService struct {
	sessions  *SessionService
	orders    *OrderService
	catalog   catalog.Provider
	customers directory.Directory
	gateway   whatsapp.Gateway
	msgLog    repositories.MessageLogRepo

	businessPhone string
	handlers      map[models.SessionState]dialogueHandler
}

func NewDialogueService(
	sessions *SessionService,
	orders *OrderService,
	cat catalog.Provider,
	customers directory.Directory,
	gateway whatsapp.Gateway,
	msgLog repositories.MessageLogRepo,
	businessPhone string,
) *DialogueService {
	s := &DialogueService{
		sessions:      sessions,
		orders:        orders,
		catalog:       cat,
		customers:     customers,
		gateway:       gateway,
		msgLog:        msgLog,
		businessPhone: businessPhone,
	}

	s.handlers = map[models.SessionState]dialogueHandler{
		models.StateMainMenu:           s.handleMainMenu,
		models.StateBrowsingCategories: s.handleCategorySelection,
		models.StateViewingItems:       s.handleItemSelection,
		models.StateSearching:          s.handleSearch,
		models.StateSearchingByCode:    s.handleCodeSearch,
		models.StateAddingToCart:       s.handleAddToCart,
		models.StateCartReview:         s.handleCartReview,
		models.StateEnteringAddress:    s.handleAddressEntry,
		models.StateConfirmingOrder:    s.handleOrderConfirmation,
		models.StateTrackingOrder:      s.handleOrderTracking,
		models.StateRatingOrder:        s.handleRatingSelection,
		models.StateProvidingFeedback:  s.handleFeedbackInput,
		models.StateViewingHistory:     s.handleReorderSelection,
		models.StateSelectingReorder:   s.handleReorderConfirmation,
	}
	return s
}

// HandleIncoming processes one inbound message end to end. It never returns
// an error: anything unexpected collapses to an apology plus the main menu
// so the customer is never stranded.
func (s *DialogueService) HandleIncoming(ctx context.Context, msg *whatsapp.Inbound) {
	phone := msg.From
	if phone == "" {
		return
	}

	utils.LogInfo("💬 Processing message", utils.Fields{"phone": phone, "type": msg.Type})

	if err := s.gateway.MarkRead(msg.ID); err != nil {
		utils.LogWarn("⚠️ Failed to mark message as read", utils.Fields{"message_id": msg.ID})
	}

	s.logInbound(msg)

	if _, err := s.customers.Ensure(ctx, phone, msg.ProfileName); err != nil {
		utils.LogWarn("⚠️ Failed to ensure customer", utils.Fields{"phone": phone, "error": err.Error()})
	}

	err := s.sessions.WithLock(phone, func() error {
		sess, err := s.sessions.GetOrCreate(phone)
		if err != nil {
			return err
		}

		t, err := s.route(ctx, sess, msg.Content())
		if err != nil {
			return err
		}
		if t == nil {
			t = &Transition{}
		}

		if t.Patch != nil {
			t.Patch(&sess.Context)
		}
		if t.Next != "" {
			sess.State = t.Next
		}
		sess.LastMessageID = msg.ID
		if err := s.sessions.Save(sess); err != nil {
			return err
		}

		s.deliver(phone, t.Replies)
		return nil
	})
	if err != nil {
		utils.LogError("❌ Error handling message", err, utils.Fields{"phone": phone})
		if serr := s.gateway.SendText(phone,
			`Sorry, something went wrong. Please try again or type "menu" to return to main menu.`,
		); serr != nil {
			utils.LogError("❌ Failed to send apology", serr, utils.Fields{"phone": phone})
		}
	}
}

func (s *DialogueService) route(ctx context.Context, sess *models.Session, token string) (*Transition, error) {
	if strings.HasPrefix(token, "ORDER:") {
		return s.quickOrder(ctx, strings.TrimSpace(strings.TrimPrefix(token, "ORDER:")))
	}

	// Global commands work from any state, matching the help text.
	switch strings.ToLower(token) {
	case "menu", "start":
		return s.showMainMenu(), nil
	case "help":
		return s.showHelp(), nil
	case "cart":
		return s.showCart(sess), nil
	case "track":
		return s.showOrderTracking(ctx, sess)
	case "rate":
		return s.showOrdersForRating(ctx, sess)
	}

	handler, ok := s.handlers[sess.State]
	if !ok {
		return s.showMainMenu(), nil
	}
	return handler(ctx, sess, token)
}

// deliver sends the replies in order. A failed send is logged and the rest
// still go out; the session state was already committed.
func (s *DialogueService) deliver(phone string, replies []Reply) {
	for _, r := range replies {
		var err error
		switch r.kind {
		case replyText:
			err = s.gateway.SendText(phone, r.body)
		case replyButtons:
			err = s.gateway.SendButtons(phone, r.body, r.buttons)
		case replyList:
			err = s.gateway.SendList(phone, r.header, r.body, "", r.buttonText,
				[]whatsapp.Section{{Rows: r.rows}})
		case replyImage:
			err = s.gateway.SendImage(phone, r.imageURL, r.body)
		}
		if err != nil {
			utils.LogError("❌ Failed to send reply", err, utils.Fields{"phone": phone})
		}
	}
}

func (s *DialogueService) logInbound(msg *whatsapp.Inbound) {
	if s.msgLog == nil {
		return
	}
	payload, _ := json.Marshal(msg)
	entry := &models.MessageLog{
		PhoneNumber: msg.From,
		MessageID:   msg.ID,
		Direction:   models.DirectionIncoming,
		Body:        msg.Content(),
		Payload:     payload,
	}
	if err := s.msgLog.Create(entry); err != nil {
		utils.LogWarn("⚠️ Failed to log inbound message", utils.Fields{"phone": msg.From})
	}
}

func (s *DialogueService) showMainMenu() *Transition {
	rows := []whatsapp.Row{
		{ID: "browse_categories", Title: "📂 Browse Categories", Description: "View products by category"},
		{ID: "search_products", Title: "🔍 Search Products", Description: "Search for specific items"},
		{ID: "search_by_code", Title: "🔢 Search by Code", Description: "Enter product code directly"},
		{ID: "view_cart", Title: "🛒 View Cart", Description: "Review your shopping cart"},
		{ID: "track_order", Title: "📦 Track Order", Description: "Check your order status"},
		{ID: "rate_order", Title: "⭐ Rate Order", Description: "Rate your delivered orders"},
		{ID: "quick_reorder", Title: "🔄 Quick Reorder", Description: "Reorder from your history"},
	}

	return &Transition{
		Next: models.StateMainMenu,
		Replies: []Reply{
			listReply("🏪 Main Menu",
				"Welcome to our store! 🛒\n\nHow can I help you today?",
				"Select Option", rows),
		},
	}
}

// showHelp leaves the state untouched so the customer can continue where
// they were.
func (s *DialogueService) showHelp() *Transition {
	help := "❓ Help & Commands\n\n" +
		"🔹 Type \"menu\" - Show main menu\n" +
		"🔹 Type \"cart\" - View your cart\n" +
		"🔹 Type \"track\" - Track your orders\n" +
		"🔹 Type \"rate\" - Rate delivered orders\n" +
		"🔹 Type \"help\" - Show this help message\n\n" +
		"Need assistance? Contact our support team!"
	return &Transition{Replies: []Reply{textReply(help)}}
}

func (s *DialogueService) handleMainMenu(ctx context.Context, sess *models.Session, token string) (*Transition, error) {
	switch token {
	case "browse_categories":
		return s.showCategories(ctx)
	case "search_products":
		return s.initiateSearch(), nil
	case "search_by_code":
		return s.initiateCodeSearch(), nil
	case "view_cart":
		return s.showCart(sess), nil
	case "track_order":
		return s.showOrderTracking(ctx, sess)
	case "rate_order":
		return s.showOrdersForRating(ctx, sess)
	case "quick_reorder":
		return s.showOrderHistory(ctx, sess)
	case "checkout":
		return s.initiateCheckout(), nil
	case "continue_shopping", "back_to_menu":
		return s.showMainMenu(), nil
	default:
		t := s.showMainMenu()
		t.Replies = append([]Reply{textReply("Invalid option. Please select from the menu.")}, t.Replies...)
		return t, nil
	}
}

// ProductLink is the click-to-chat payload for one product.
type ProductLink struct {
	Item struct {
		ID    uint    `json:"id"`
		Name  string  `json:"name"`
		Code  string  `json:"code"`
		Price float64 `json:"price"`
		Stock int     `json:"stock"`
	} `json:"item"`
	WhatsAppLink string `json:"whatsapp_link"`
	ShortMessage string `json:"short_message"`
	Instructions string `json:"instructions"`
}

// GenerateProductLink builds a wa.me deep link that opens a chat pre-filled
// with the quick-order token for the item.
func (s *DialogueService) GenerateProductLink(ctx context.Context, itemID uint) (*ProductLink, error) {
	item, err := s.catalog.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	link := &ProductLink{
		ShortMessage: fmt.Sprintf("ORDER:%d", item.ID),
		Instructions: "Click the link to open WhatsApp and start ordering this product",
	}
	link.Item.ID = item.ID
	link.Item.Name = item.Name
	link.Item.Code = item.Code
	if price := item.ActivePrice(); price != nil {
		link.Item.Price = price.SellingPrice
	}
	link.Item.Stock = item.Available()
	link.WhatsAppLink = fmt.Sprintf("https://wa.me/%s?text=%s",
		s.businessPhone, strings.ReplaceAll(link.ShortMessage, ":", "%3A"))
	return link, nil
}

// ProductLinkQR renders the click-to-chat link as a PNG QR code.
func (s *DialogueService) ProductLinkQR(ctx context.Context, itemID uint) ([]byte, error) {
	link, err := s.GenerateProductLink(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(link.WhatsAppLink, qrcode.Medium, 256)
}

// quickOrder handles the ORDER:<id-or-code> deep link token from any state.
func (s *DialogueService) quickOrder(ctx context.Context, identifier string) (*Transition, error) {
	utils.LogInfo("🎯 Quick order request", utils.Fields{"identifier": identifier})

	var item *catalog.Item
	if id, err := strconv.ParseUint(identifier, 10, 32); err == nil {
		found, gerr := s.catalog.GetItem(ctx, uint(id))
		if gerr != nil && !apperr.IsNotFound(gerr) {
			return nil, gerr
		}
		item = found
	} else {
		matches, ferr := s.catalog.FindItems(ctx, catalog.Filter{Code: identifier})
		if ferr != nil {
			return nil, ferr
		}
		if len(matches) > 0 {
			item = &matches[0]
		}
	}

	if item == nil {
		t := s.showMainMenu()
		t.Replies = append([]Reply{textReply(fmt.Sprintf(
			"Sorry, product \"%s\" not found.\n\nType *menu* to browse our catalog.", identifier,
		))}, t.Replies...)
		return t, nil
	}

	code := item.Code
	if code == "" {
		code = "N/A"
	}
	details := fmt.Sprintf(
		"🎯 Quick Order\n\n"+
			"📦 *%s*\n%s\n🔖 Code: %s\n💰 Price: %s\n📊 Available: %d units\n\n"+
			`Please enter the quantity you want to order (or type "cancel" to exit):`,
		item.Name, conditionBadge(item), code, priceTag(item.ActivePrice()), item.Available())

	itemID := item.ID
	return &Transition{
		Next: models.StateAddingToCart,
		Patch: func(c *models.SessionContext) {
			c.SelectedItemID = &itemID
		},
		Replies: []Reply{productReply(item, details)},
	}, nil
}

// productReply sends the product card as an image when one exists.
func productReply(item *catalog.Item, details string) Reply {
	if item.ImageURL != "" {
		return imageReply(item.ImageURL, details)
	}
	return textReply(details)
}

func conditionBadge(item *catalog.Item) string {
	if item.Condition == "used" {
		return "🔄 Used"
	}
	return "✨ New"
}

// priceTag renders the active price, or a placeholder when the item is not
// currently priced.
func priceTag(price *catalog.ItemPrice) string {
	if price == nil {
		return "TZS N/A"
	}
	return "TZS " + trimAmount(price.SellingPrice)
}

// trimAmount formats an amount without trailing zeros, the way prices are
// shown in chat.
func trimAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
