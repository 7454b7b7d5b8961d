package services

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dukatrade/whatsapp-commerce-be/internal/core/catalog"
	"github.com/dukatrade/whatsapp-commerce-be/internal/core/directory"
	"github.com/dukatrade/whatsapp-commerce-be/internal/core/ledger"
	"github.com/dukatrade/whatsapp-commerce-be/internal/core/whatsapp"
	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&catalog.Category{},
		&catalog.Warehouse{},
		&catalog.Item{},
		&catalog.ItemPrice{},
		&catalog.ItemStock{},
		&directory.Customer{},
		&ledger.Sale{},
		&models.Session{},
		&models.Order{},
		&models.OrderLine{},
		&models.MessageLog{},
	))
	return db
}

// sentMessage records one outbound send through the fake gateway.
type sentMessage struct {
	kind  string // text, buttons, list, image
	phone string
	body  string
}

// fakeGateway records everything sent through it and can be told to fail.
type fakeGateway struct {
	mu       sync.Mutex
	sent     []sentMessage
	failNext bool
	failAll  bool
}

func (g *fakeGateway) record(kind, phone, body string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll || g.failNext {
		g.failNext = false
		return errors.New("gateway unavailable")
	}
	g.sent = append(g.sent, sentMessage{kind: kind, phone: phone, body: body})
	return nil
}

func (g *fakeGateway) SendText(phone, body string) error {
	return g.record("text", phone, body)
}

func (g *fakeGateway) SendButtons(phone, body string, buttons []whatsapp.Button) error {
	return g.record("buttons", phone, body)
}

func (g *fakeGateway) SendList(phone, header, body, footer, buttonText string, sections []whatsapp.Section) error {
	return g.record("list", phone, header+"\n"+body)
}

func (g *fakeGateway) SendImage(phone, imageURL, caption string) error {
	return g.record("image", phone, caption)
}

func (g *fakeGateway) MarkRead(messageID string) error {
	return nil
}

func (g *fakeGateway) messages() []sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]sentMessage, len(g.sent))
	copy(out, g.sent)
	return out
}

func (g *fakeGateway) lastMessage(t *testing.T) sentMessage {
	t.Helper()
	msgs := g.messages()
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

func (g *fakeGateway) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = nil
}

// seedItem inserts an item with an active price and stock in the warehouse.
func seedItem(t *testing.T, db *gorm.DB, name, code string, categoryID, warehouseID uint, price float64, stock int) *catalog.Item {
	t.Helper()

	item := &catalog.Item{Name: name, Code: code}
	if categoryID != 0 {
		item.CategoryID = &categoryID
	}
	require.NoError(t, db.Create(item).Error)
	require.NoError(t, db.Create(&catalog.ItemPrice{
		ItemID:       item.ID,
		SellingPrice: price,
		IsActive:     true,
	}).Error)
	require.NoError(t, db.Create(&catalog.ItemStock{
		ItemID:      item.ID,
		WarehouseID: warehouseID,
		Quantity:    stock,
	}).Error)
	return item
}

func seedWarehouse(t *testing.T, db *gorm.DB) *catalog.Warehouse {
	t.Helper()
	wh := &catalog.Warehouse{Name: "Main Warehouse", Address: "Dar es Salaam"}
	require.NoError(t, db.Create(wh).Error)
	return wh
}

func seedCategory(t *testing.T, db *gorm.DB, code, description string) *catalog.Category {
	t.Helper()
	cat := &catalog.Category{Code: code, Description: description}
	require.NoError(t, db.Create(cat).Error)
	return cat
}

func stockQuantity(t *testing.T, db *gorm.DB, itemID, warehouseID uint) int {
	t.Helper()
	var stock catalog.ItemStock
	require.NoError(t, db.Where("item_id = ? AND warehouse_id = ?", itemID, warehouseID).First(&stock).Error)
	return stock.Quantity
}
