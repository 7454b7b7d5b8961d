package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// SessionState is the dialogue position of a customer conversation.
type SessionState string

const (
	StateMainMenu           SessionState = "main_menu"
	StateBrowsingCategories SessionState = "browsing_categories"
	StateViewingItems       SessionState = "viewing_items"
	StateSearching          SessionState = "searching"
	StateSearchingByCode    SessionState = "searching_by_code"
	StateAddingToCart       SessionState = "adding_to_cart"
	StateCartReview         SessionState = "cart_review"
	StateEnteringAddress    SessionState = "entering_address"
	StateConfirmingOrder    SessionState = "confirming_order"
	StateTrackingOrder      SessionState = "tracking_order"
	StateRatingOrder        SessionState = "rating_order"
	StateProvidingFeedback  SessionState = "providing_feedback"
	StateViewingHistory     SessionState = "viewing_order_history"
	StateSelectingReorder   SessionState = "selecting_reorder"
)

// CartLine is one item in the session cart. UnitPrice is snapshotted when the
// line is added; merging more quantity keeps the original price.
type CartLine struct {
	ItemID      uint    `json:"item_id"`
	ItemName    string  `json:"item_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
	WarehouseID uint    `json:"warehouse_id"`
}

// RatingContext is scratch state for the rating flow.
type RatingContext struct {
	UnratedOrderIDs []uint `json:"unrated_order_ids,omitempty"`
	SelectedOrderID *uint  `json:"selected_order_id,omitempty"`
	Value           *int   `json:"value,omitempty"`
}

// ReorderContext is scratch state for the reorder flow.
type ReorderContext struct {
	HistoryIDs    []uint `json:"history_ids,omitempty"`
	SourceOrderID *uint  `json:"source_order_id,omitempty"`
}

// SessionContext is the JSONB conversation context. The cart survives state
// changes; the rest is per-flow scratch data.
type SessionContext struct {
	Cart               []CartLine      `json:"cart,omitempty"`
	SelectedItemID     *uint           `json:"selected_item_id,omitempty"`
	SelectedCategoryID *uint           `json:"selected_category_id,omitempty"`
	SearchQuery        string          `json:"search_query,omitempty"`
	DeliveryAddress    string          `json:"delivery_address,omitempty"`
	Rating             *RatingContext  `json:"rating,omitempty"`
	Reorder            *ReorderContext `json:"reorder,omitempty"`
}

// Scan implements sql.Scanner for JSONB deserialization
func (c *SessionContext) Scan(value interface{}) error {
	if value == nil {
		*c = SessionContext{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan SessionContext: unsupported type")
	}

	return json.Unmarshal(bytes, c)
}

// Value implements driver.Valuer for JSONB serialization
func (c SessionContext) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// AddCartLine merges line into the cart. An existing line for the same item
// keeps its unit price and gains the quantity; totals are recomputed.
func (c *SessionContext) AddCartLine(line CartLine) {
	for i := range c.Cart {
		if c.Cart[i].ItemID == line.ItemID {
			c.Cart[i].Quantity += line.Quantity
			c.Cart[i].TotalPrice = float64(c.Cart[i].Quantity) * c.Cart[i].UnitPrice
			return
		}
	}
	line.TotalPrice = float64(line.Quantity) * line.UnitPrice
	c.Cart = append(c.Cart, line)
}

// CartTotal sums the line totals.
func (c *SessionContext) CartTotal() float64 {
	var total float64
	for _, line := range c.Cart {
		total += line.TotalPrice
	}
	return total
}

// CartEmpty reports whether the cart has no lines.
func (c *SessionContext) CartEmpty() bool {
	return len(c.Cart) == 0
}

// ClearCart drops every cart line.
func (c *SessionContext) ClearCart() {
	c.Cart = nil
}

// Session is one customer conversation, keyed by phone number.
type Session struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	PhoneNumber        string         `gorm:"uniqueIndex;not null" json:"phone_number"`
	State              SessionState   `gorm:"type:varchar(32);default:'main_menu'" json:"state"`
	Context            SessionContext `gorm:"type:jsonb" json:"context"`
	LastMessageID      string         `json:"last_message_id"`
	LastCartReminderAt *time.Time     `json:"last_cart_reminder_at"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func (Session) TableName() string {
	return "whatsapp_sessions"
}
