package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dukatrade/whatsapp-commerce-be/internal/core/catalog"
	"github.com/dukatrade/whatsapp-commerce-be/internal/core/directory"
	"github.com/dukatrade/whatsapp-commerce-be/internal/core/ledger"
	"github.com/dukatrade/whatsapp-commerce-be/internal/core/whatsapp"
	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/models"
	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/repositories"
)

type dialogueFixture struct {
	db        *gorm.DB
	gateway   *fakeGateway
	sessions  *SessionService
	orders    *OrderService
	dialogue  *DialogueService
	warehouse *catalog.Warehouse
	category  *catalog.Category
	laptop    *catalog.Item
	mouse     *catalog.Item

	msgSeq int
}

func newDialogueFixture(t *testing.T) *dialogueFixture {
	t.Helper()

	db := newTestDB(t)
	wh := seedWarehouse(t, db)
	cat := seedCategory(t, db, "ELEC", "Electronics")
	laptop := seedItem(t, db, "Laptop", "LAP-01", cat.ID, wh.ID, 500000, 10)
	mouse := seedItem(t, db, "Mouse", "MOU-01", cat.ID, wh.ID, 15000, 3)

	gateway := &fakeGateway{}
	sessions := NewSessionService(repositories.NewSessionRepo(db))
	orders := NewOrderService(
		db,
		repositories.NewOrderRepo(db),
		catalog.NewGormProvider(db),
		directory.NewGormDirectory(db),
		ledger.NewGormLedger(db),
	)
	dialogue := NewDialogueService(
		sessions, orders,
		catalog.NewGormProvider(db),
		directory.NewGormDirectory(db),
		gateway,
		repositories.NewMessageLogRepo(db),
		"255800000000",
	)

	return &dialogueFixture{
		db:        db,
		gateway:   gateway,
		sessions:  sessions,
		orders:    orders,
		dialogue:  dialogue,
		warehouse: wh,
		category:  cat,
		laptop:    laptop,
		mouse:     mouse,
	}
}

// send simulates one typed message from the customer.
func (f *dialogueFixture) send(text string) {
	f.msgSeq++
	f.dialogue.HandleIncoming(context.Background(), &whatsapp.Inbound{
		ID:          fmt.Sprintf("wamid-%d", f.msgSeq),
		From:        testPhone,
		ProfileName: "Asha",
		Type:        "text",
		Text:        text,
	})
}

// tap simulates a tapped button or list row.
func (f *dialogueFixture) tap(replyID string) {
	f.msgSeq++
	f.dialogue.HandleIncoming(context.Background(), &whatsapp.Inbound{
		ID:      fmt.Sprintf("wamid-%d", f.msgSeq),
		From:    testPhone,
		Type:    "interactive",
		ReplyID: replyID,
	})
}

func (f *dialogueFixture) session(t *testing.T) *models.Session {
	t.Helper()
	sess, err := f.sessions.GetOrCreate(testPhone)
	require.NoError(t, err)
	return sess
}

func TestDialogue_MenuCommand(t *testing.T) {
	f := newDialogueFixture(t)

	f.send("menu")

	sess := f.session(t)
	assert.Equal(t, models.StateMainMenu, sess.State)

	last := f.gateway.lastMessage(t)
	assert.Equal(t, "list", last.kind)
	assert.Contains(t, last.body, "Main Menu")
}

func TestDialogue_UnknownInputRecoversWithMenu(t *testing.T) {
	f := newDialogueFixture(t)

	f.send("asdf")

	msgs := f.gateway.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].body, "Invalid option")
	assert.Equal(t, "list", msgs[1].kind)
	assert.Equal(t, models.StateMainMenu, f.session(t).State)
}

func TestDialogue_HelpLeavesStateUntouched(t *testing.T) {
	f := newDialogueFixture(t)

	f.tap("search_products")
	require.Equal(t, models.StateSearching, f.session(t).State)

	f.send("help")
	assert.Equal(t, models.StateSearching, f.session(t).State)
	assert.Contains(t, f.gateway.lastMessage(t).body, "Help & Commands")
}

func TestDialogue_BrowseToCartFlow(t *testing.T) {
	f := newDialogueFixture(t)

	f.tap("browse_categories")
	sess := f.session(t)
	assert.Equal(t, models.StateBrowsingCategories, sess.State)
	assert.Contains(t, f.gateway.lastMessage(t).body, "Categories")

	f.tap(fmt.Sprintf("cat_%d", f.category.ID))
	sess = f.session(t)
	assert.Equal(t, models.StateViewingItems, sess.State)
	require.NotNil(t, sess.Context.SelectedCategoryID)
	assert.Equal(t, f.category.ID, *sess.Context.SelectedCategoryID)

	f.tap(fmt.Sprintf("item_%d", f.laptop.ID))
	sess = f.session(t)
	assert.Equal(t, models.StateAddingToCart, sess.State)
	require.NotNil(t, sess.Context.SelectedItemID)
	assert.Equal(t, f.laptop.ID, *sess.Context.SelectedItemID)
	assert.Contains(t, f.gateway.lastMessage(t).body, "quantity")

	f.send("2")
	sess = f.session(t)
	assert.Equal(t, models.StateMainMenu, sess.State)
	require.Len(t, sess.Context.Cart, 1)
	assert.Equal(t, f.laptop.ID, sess.Context.Cart[0].ItemID)
	assert.Equal(t, 2, sess.Context.Cart[0].Quantity)
	assert.Equal(t, float64(1000000), sess.Context.Cart[0].TotalPrice)

	last := f.gateway.lastMessage(t)
	assert.Equal(t, "buttons", last.kind)
	assert.Contains(t, last.body, "Added 2 x Laptop")
}

func TestDialogue_InvalidQuantityReprompts(t *testing.T) {
	f := newDialogueFixture(t)

	f.tap(fmt.Sprintf("ORDER:%d", f.laptop.ID))
	require.Equal(t, models.StateAddingToCart, f.session(t).State)

	f.send("lots")
	sess := f.session(t)
	assert.Equal(t, models.StateAddingToCart, sess.State)
	assert.Empty(t, sess.Context.Cart)
	assert.Contains(t, f.gateway.lastMessage(t).body, "valid quantity")
}

func TestDialogue_QuantityCappedByStock(t *testing.T) {
	f := newDialogueFixture(t)

	f.tap(fmt.Sprintf("ORDER:%d", f.mouse.ID))
	f.send("10")

	sess := f.session(t)
	assert.Equal(t, models.StateAddingToCart, sess.State)
	assert.Empty(t, sess.Context.Cart)
	assert.Contains(t, f.gateway.lastMessage(t).body, "only 3 units available")
}

func TestDialogue_QuickOrderByCode(t *testing.T) {
	f := newDialogueFixture(t)

	f.send("ORDER:LAP-01")

	sess := f.session(t)
	assert.Equal(t, models.StateAddingToCart, sess.State)
	require.NotNil(t, sess.Context.SelectedItemID)
	assert.Equal(t, f.laptop.ID, *sess.Context.SelectedItemID)
	assert.Contains(t, f.gateway.lastMessage(t).body, "Quick Order")
}

func TestDialogue_QuickOrderUnknownProduct(t *testing.T) {
	f := newDialogueFixture(t)

	f.send("ORDER:NOPE-99")

	msgs := f.gateway.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].body, `product "NOPE-99" not found`)
	assert.Equal(t, models.StateMainMenu, f.session(t).State)
}

func TestDialogue_SearchNoResultsStaysInSearch(t *testing.T) {
	f := newDialogueFixture(t)

	f.tap("search_products")
	f.send("teapot")

	sess := f.session(t)
	assert.Equal(t, models.StateSearching, sess.State)
	assert.Contains(t, f.gateway.lastMessage(t).body, `No products found matching "teapot"`)
}

func TestDialogue_SearchByCodeFindsProduct(t *testing.T) {
	f := newDialogueFixture(t)

	f.tap("search_by_code")
	require.Equal(t, models.StateSearchingByCode, f.session(t).State)

	f.send("mou-01")
	sess := f.session(t)
	assert.Equal(t, models.StateAddingToCart, sess.State)
	assert.Contains(t, f.gateway.lastMessage(t).body, "Product Found")
}

func TestDialogue_CartCommandAndClear(t *testing.T) {
	f := newDialogueFixture(t)

	// Empty cart prompt.
	f.send("cart")
	assert.Contains(t, f.gateway.lastMessage(t).body, "cart is empty")
	assert.Equal(t, models.StateMainMenu, f.session(t).State)

	f.tap(fmt.Sprintf("ORDER:%d", f.laptop.ID))
	f.send("1")

	f.send("cart")
	sess := f.session(t)
	assert.Equal(t, models.StateCartReview, sess.State)
	last := f.gateway.lastMessage(t)
	assert.Contains(t, last.body, "Shopping Cart")
	assert.Contains(t, last.body, "TZS 500000.00")

	f.tap("clear_cart")
	sess = f.session(t)
	assert.True(t, sess.Context.CartEmpty())
	assert.Equal(t, models.StateMainMenu, sess.State)
}

func TestDialogue_CheckoutCreatesOrderAndClearsCart(t *testing.T) {
	f := newDialogueFixture(t)

	f.tap(fmt.Sprintf("ORDER:%d", f.laptop.ID))
	f.send("2")
	f.tap("checkout")
	require.Equal(t, models.StateEnteringAddress, f.session(t).State)

	f.send("Kariakoo, Dar es Salaam")
	sess := f.session(t)
	assert.Equal(t, models.StateConfirmingOrder, sess.State)
	assert.Equal(t, "Kariakoo, Dar es Salaam", sess.Context.DeliveryAddress)
	assert.Contains(t, f.gateway.lastMessage(t).body, "Order Summary")

	f.tap("confirm_order")
	sess = f.session(t)
	assert.Equal(t, models.StateMainMenu, sess.State)
	assert.True(t, sess.Context.CartEmpty())
	assert.Contains(t, f.gateway.lastMessage(t).body, "Order Confirmed")

	orders, err := f.orders.FindByPhone(context.Background(), testPhone, 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, models.OrderStatusPending, orders[0].Status)
	assert.Equal(t, float64(1000000), orders[0].TotalAmount)
	assert.Equal(t, "Kariakoo, Dar es Salaam", orders[0].DeliveryAddress)
	// Stock is only reserved at delivery time.
	assert.Equal(t, 10, stockQuantity(t, f.db, f.laptop.ID, f.warehouse.ID))
}

func TestDialogue_CheckoutCancelKeepsCart(t *testing.T) {
	f := newDialogueFixture(t)

	f.tap(fmt.Sprintf("ORDER:%d", f.laptop.ID))
	f.send("1")
	f.tap("checkout")
	f.send("skip")
	f.tap("cancel_order")

	sess := f.session(t)
	assert.Equal(t, models.StateMainMenu, sess.State)
	require.Len(t, sess.Context.Cart, 1)

	orders, err := f.orders.FindByPhone(context.Background(), testPhone, 10)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestDialogue_CheckoutFailureKeepsCart(t *testing.T) {
	f := newDialogueFixture(t)

	f.tap(fmt.Sprintf("ORDER:%d", f.mouse.ID))
	f.send("3")
	f.tap("checkout")
	f.send("skip")

	// Stock drained while the customer was deciding.
	require.NoError(t, f.db.Model(&catalog.ItemStock{}).
		Where("item_id = ?", f.mouse.ID).
		Update("quantity", 1).Error)

	f.tap("confirm_order")

	sess := f.session(t)
	assert.Equal(t, models.StateMainMenu, sess.State)
	require.Len(t, sess.Context.Cart, 1, "cart survives a failed order")

	msgs := f.gateway.messages()
	assert.Contains(t, msgs[len(msgs)-2].body, "Failed to create order")
}

func TestDialogue_TrackOrder(t *testing.T) {
	f := newDialogueFixture(t)

	order, err := f.orders.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerPhone: testPhone,
		WarehouseID:   f.warehouse.ID,
		Lines:         []OrderLineRequest{{ItemID: f.laptop.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	f.send("track")
	require.Equal(t, models.StateTrackingOrder, f.session(t).State)
	assert.Contains(t, f.gateway.lastMessage(t).body, "Your Orders")

	f.tap(fmt.Sprintf("order_%d", order.ID))
	sess := f.session(t)
	assert.Equal(t, models.StateMainMenu, sess.State)
	last := f.gateway.lastMessage(t)
	assert.Contains(t, last.body, order.OrderNumber)
	assert.Contains(t, last.body, "PENDING")
}

func TestDialogue_TrackOrderRejectsForeignOrder(t *testing.T) {
	f := newDialogueFixture(t)

	other, err := f.orders.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerPhone: "255799999999",
		WarehouseID:   f.warehouse.ID,
		Lines:         []OrderLineRequest{{ItemID: f.laptop.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	f.send("track")
	f.tap(fmt.Sprintf("order_%d", other.ID))

	msgs := f.gateway.messages()
	assert.Contains(t, msgs[len(msgs)-2].body, "Order not found")
}

func TestDialogue_RatingFlow(t *testing.T) {
	f := newDialogueFixture(t)
	ctx := context.Background()

	order, err := f.orders.CreateOrder(ctx, CreateOrderRequest{
		CustomerPhone: testPhone,
		WarehouseID:   f.warehouse.ID,
		Lines:         []OrderLineRequest{{ItemID: f.laptop.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = f.orders.UpdateStatus(ctx, order.ID, models.OrderStatusDelivered)
	require.NoError(t, err)

	f.send("rate")
	sess := f.session(t)
	require.Equal(t, models.StateRatingOrder, sess.State)
	require.NotNil(t, sess.Context.Rating)
	assert.Equal(t, []uint{order.ID}, sess.Context.Rating.UnratedOrderIDs)

	f.send("1") // pick the order
	assert.Contains(t, f.gateway.lastMessage(t).body, "How would you rate this order")

	f.send("4") // star rating
	require.Equal(t, models.StateProvidingFeedback, f.session(t).State)

	f.send("Very quick delivery")
	sess = f.session(t)
	assert.Equal(t, models.StateMainMenu, sess.State)
	assert.Nil(t, sess.Context.Rating)

	rated, err := f.orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, rated.Rating)
	assert.Equal(t, 4, *rated.Rating)
	assert.Equal(t, "Very quick delivery", rated.Feedback)
}

func TestDialogue_RateWithNothingToRate(t *testing.T) {
	f := newDialogueFixture(t)

	f.send("rate")

	msgs := f.gateway.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].body, "no pending orders to rate")
	assert.Equal(t, models.StateMainMenu, f.session(t).State)
}

func TestDialogue_ReorderMergesIntoCart(t *testing.T) {
	f := newDialogueFixture(t)
	ctx := context.Background()

	order, err := f.orders.CreateOrder(ctx, CreateOrderRequest{
		CustomerPhone: testPhone,
		WarehouseID:   f.warehouse.ID,
		Lines: []OrderLineRequest{
			{ItemID: f.laptop.ID, Quantity: 1},
			{ItemID: f.mouse.ID, Quantity: 2},
		},
	})
	require.NoError(t, err)

	f.tap("quick_reorder")
	sess := f.session(t)
	require.Equal(t, models.StateViewingHistory, sess.State)
	require.NotNil(t, sess.Context.Reorder)
	assert.Equal(t, []uint{order.ID}, sess.Context.Reorder.HistoryIDs)

	f.send("1")
	require.Equal(t, models.StateSelectingReorder, f.session(t).State)
	assert.Contains(t, f.gateway.lastMessage(t).body, "Reorder Confirmation")

	f.send("confirm")
	sess = f.session(t)
	assert.Equal(t, models.StateMainMenu, sess.State)
	assert.Nil(t, sess.Context.Reorder)
	require.Len(t, sess.Context.Cart, 2)
	assert.Contains(t, f.gateway.lastMessage(t).body, "Reorder Successful")
}

func TestDialogue_StateCommitsBeforeSendFailure(t *testing.T) {
	f := newDialogueFixture(t)
	f.gateway.failAll = true

	f.tap("search_products")

	// Nothing went out, but the conversation still moved forward.
	assert.Empty(t, f.gateway.messages())
	assert.Equal(t, models.StateSearching, f.session(t).State)
}

func TestDialogue_LogsInboundMessages(t *testing.T) {
	f := newDialogueFixture(t)

	f.send("menu")

	var logs []models.MessageLog
	require.NoError(t, f.db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, testPhone, logs[0].PhoneNumber)
	assert.Equal(t, models.DirectionIncoming, logs[0].Direction)
	assert.Equal(t, "menu", logs[0].Body)
	assert.Equal(t, "wamid-1", logs[0].MessageID)
}

func TestGenerateProductLink(t *testing.T) {
	f := newDialogueFixture(t)

	link, err := f.dialogue.GenerateProductLink(context.Background(), f.laptop.ID)
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("ORDER:%d", f.laptop.ID), link.ShortMessage)
	assert.Equal(t, fmt.Sprintf("https://wa.me/255800000000?text=ORDER%%3A%d", f.laptop.ID), link.WhatsAppLink)
	assert.Equal(t, "Laptop", link.Item.Name)
	assert.Equal(t, float64(500000), link.Item.Price)
	assert.Equal(t, 10, link.Item.Stock)
}

func TestProductLinkQR(t *testing.T) {
	f := newDialogueFixture(t)

	png, err := f.dialogue.ProductLinkQR(context.Background(), f.laptop.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, png)

	_, err = f.dialogue.ProductLinkQR(context.Background(), 9999)
	assert.Error(t, err)
}
