package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dukatrade/whatsapp-commerce-be/internal/core/catalog"
	"github.com/dukatrade/whatsapp-commerce-be/internal/core/directory"
	"github.com/dukatrade/whatsapp-commerce-be/internal/core/ledger"
	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/models"
	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/repositories"
	"github.com/dukatrade/whatsapp-commerce-be/internal/shared/apperr"
	"github.com/dukatrade/whatsapp-commerce-be/internal/shared/database"
	"github.com/dukatrade/whatsapp-commerce-be/internal/shared/utils"
)

// StatusNotifier pushes order status updates to the customer. Declared here
// so the order service does not depend on the notification implementation.
type StatusNotifier interface {
	NotifyStatusChange(ctx context.Context, order *models.Order)
}

// OrderLineRequest is one requested item in a new order.
type OrderLineRequest struct {
	ItemID   uint `json:"item_id"`
	Quantity int  `json:"quantity"`
}

// CreateOrderRequest carries everything needed to place an order.
type CreateOrderRequest struct {
	CustomerPhone   string             `json:"customer_phone"`
	WarehouseID     uint               `json:"warehouse_id"`
	Lines           []OrderLineRequest `json:"lines"`
	DeliveryAddress string             `json:"delivery_address"`
	Notes           string             `json:"notes"`
}

// OrderStats aggregates order counts and revenue.
type OrderStats struct {
	Total        int64   `json:"total"`
	Pending      int64   `json:"pending"`
	Confirmed    int64   `json:"confirmed"`
	Processing   int64   `json:"processing"`
	Ready        int64   `json:"ready"`
	Delivered    int64   `json:"delivered"`
	Cancelled    int64   `json:"cancelled"`
	TotalRevenue float64 `json:"total_revenue"`
}

// OrderService owns the order lifecycle. Stock is validated when an order is
// created but only deducted on the transition to delivered, so an order that
// never ships never touches inventory.
type OrderService struct {
	db        *gorm.DB
	orders    repositories.OrderRepo
	catalog   catalog.Provider
	customers directory.Directory
	sales     ledger.Ledger
	notifier  StatusNotifier
}

func NewOrderService(
	db *gorm.DB,
	orders repositories.OrderRepo,
	cat catalog.Provider,
	customers directory.Directory,
	sales ledger.Ledger,
) *OrderService {
	return &OrderService{
		db:        db,
		orders:    orders,
		catalog:   cat,
		customers: customers,
		sales:     sales,
	}
}

// SetNotifier wires the status notifier after construction, breaking the
// circular dependency with the gateway-facing services.
func (s *OrderService) SetNotifier(n StatusNotifier) {
	s.notifier = n
}

// CreateOrder validates the request against live stock, snapshots names and
// prices into order lines, and persists the order as pending.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.Order, error) {
	if req.CustomerPhone == "" {
		return nil, apperr.Validation("customer_phone is required")
	}
	if len(req.Lines) == 0 {
		return nil, apperr.Validation("order needs at least one line")
	}

	if _, err := s.catalog.GetWarehouse(ctx, req.WarehouseID); err != nil {
		return nil, err
	}

	var customerID *uint
	if customer, err := s.customers.FindByPhone(ctx, req.CustomerPhone); err != nil {
		return nil, err
	} else if customer != nil {
		customerID = &customer.ID
	}

	var lines []models.OrderLine
	var total float64
	for _, lr := range req.Lines {
		if lr.Quantity <= 0 {
			return nil, apperr.Validation("quantity must be positive for item %d", lr.ItemID)
		}

		item, err := s.catalog.GetItem(ctx, lr.ItemID)
		if err != nil {
			return nil, err
		}

		price := item.ActivePrice()
		if price == nil {
			return nil, apperr.InvalidState("item %s has no active price", item.Name)
		}

		stock := item.StockIn(req.WarehouseID)
		available := 0
		if stock != nil {
			available = stock.Quantity
		}
		if available < lr.Quantity {
			return nil, &apperr.InsufficientStockError{
				ItemName:  item.Name,
				Requested: lr.Quantity,
				Available: available,
			}
		}

		lineTotal := float64(lr.Quantity) * price.SellingPrice
		lines = append(lines, models.OrderLine{
			ItemID:     item.ID,
			ItemName:   item.Name,
			Quantity:   lr.Quantity,
			UnitPrice:  price.SellingPrice,
			TotalPrice: lineTotal,
		})
		total += lineTotal
	}

	order := &models.Order{
		CustomerPhone:   req.CustomerPhone,
		CustomerID:      customerID,
		WarehouseID:     req.WarehouseID,
		Lines:           lines,
		TotalAmount:     total,
		Status:          models.OrderStatusPending,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
	}

	// The order number carries a per-day sequence. A concurrent create can
	// race to the same number, so retry against the unique index.
	const maxAttempts = 3
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		order.OrderNumber, err = s.generateOrderNumber(ctx, attempt)
		if err != nil {
			return nil, err
		}
		err = s.orders.Create(ctx, order)
		if err == nil {
			utils.LogInfo("📦 Order created", utils.Fields{
				"order_number": order.OrderNumber,
				"phone":        order.CustomerPhone,
				"total":        order.TotalAmount,
			})
			return order, nil
		}
		if !isDuplicateKey(err) {
			return nil, err
		}
		order.ID = 0
	}
	return nil, fmt.Errorf("failed to allocate order number: %w", err)
}

func (s *OrderService) generateOrderNumber(ctx context.Context, bump int) (string, error) {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	count, err := s.orders.CountCreatedBetween(ctx, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("WA%s%04d", now.Format("060102"), count+1+int64(bump)), nil
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "duplicate key") ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetOrder returns one order with its lines.
func (s *OrderService) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// FindAll returns every order, newest first.
func (s *OrderService) FindAll(ctx context.Context) ([]models.Order, error) {
	return s.orders.FindAll(ctx)
}

// FindByPhone returns a customer's orders, newest first.
func (s *OrderService) FindByPhone(ctx context.Context, phone string, limit int) ([]models.Order, error) {
	return s.orders.FindByPhone(ctx, phone, limit)
}

// UnratedDelivered returns delivered orders the customer has not rated yet.
func (s *OrderService) UnratedDelivered(ctx context.Context, phone string) ([]models.Order, error) {
	return s.orders.FindDeliveredUnrated(ctx, phone)
}

// UpdateStatus moves an order to newStatus. Delivered and cancelled orders
// reject any further change. The transition to delivered re-validates stock
// and deducts it atomically with the status write; an oversell aborts the
// whole transition and the order keeps its previous status.
func (s *OrderService) UpdateStatus(ctx context.Context, id uint, newStatus models.OrderStatus) (*models.Order, error) {
	if !newStatus.Valid() {
		return nil, apperr.Validation("unknown status %q", newStatus)
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, apperr.InvalidState("order %s is already %s", order.OrderNumber, order.Status)
	}

	prev := order.Status
	if newStatus == prev {
		// Same status again: keep the notified flag so nothing re-sends.
		return order, nil
	}

	order.Status = newStatus
	order.StatusNotified = false
	now := time.Now()
	if newStatus == models.OrderStatusConfirmed {
		order.ConfirmedAt = &now
	}

	if newStatus == models.OrderStatusDelivered {
		order.DeliveredAt = &now
		err = database.Transaction(ctx, s.db, func(txCtx context.Context) error {
			return s.deliverInTx(txCtx, order)
		})
		if err != nil {
			return nil, err
		}
		s.recordSales(ctx, order)
	} else {
		if err := s.orders.Save(ctx, order); err != nil {
			return nil, err
		}
	}

	utils.LogInfo("🔄 Order status updated", utils.Fields{
		"order_number": order.OrderNumber,
		"from":         prev,
		"to":           newStatus,
	})

	if s.notifier != nil {
		s.notifier.NotifyStatusChange(ctx, order)
	}
	return order, nil
}

// deliverInTx re-reads stock inside the transaction and deducts each line.
// Any shortfall rolls the entire delivery back.
func (s *OrderService) deliverInTx(ctx context.Context, order *models.Order) error {
	for _, line := range order.Lines {
		item, err := s.catalog.GetItem(ctx, line.ItemID)
		if err != nil {
			return err
		}

		stock := item.StockIn(order.WarehouseID)
		available := 0
		if stock != nil {
			available = stock.Quantity
		}
		if available < line.Quantity {
			return &apperr.InsufficientStockError{
				ItemName:  line.ItemName,
				Requested: line.Quantity,
				Available: available,
			}
		}

		if err := s.catalog.SetStockQuantity(ctx, stock.ID, available-line.Quantity); err != nil {
			return err
		}
	}
	return s.orders.Save(ctx, order)
}

// recordSales writes one ledger entry per delivered line. Failures are
// logged and swallowed: the delivery already committed.
func (s *OrderService) recordSales(ctx context.Context, order *models.Order) {
	customerID := order.CustomerID
	if customerID == nil {
		customer, err := s.customers.FindByPhone(ctx, order.CustomerPhone)
		if err != nil || customer == nil {
			utils.LogWarn("⚠️ Skipping sale records, no customer for phone", utils.Fields{
				"order_number": order.OrderNumber,
				"phone":        order.CustomerPhone,
			})
			return
		}
		customerID = &customer.ID
	}

	for _, line := range order.Lines {
		sale := &ledger.Sale{
			CustomerID:  *customerID,
			ItemID:      line.ItemID,
			WarehouseID: order.WarehouseID,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			TotalPrice:  line.TotalPrice,
			Reference:   order.OrderNumber,
		}
		if err := s.sales.RecordSale(ctx, sale); err != nil {
			utils.LogError("❌ Failed to record sale", err, utils.Fields{
				"order_number": order.OrderNumber,
				"item_id":      line.ItemID,
			})
		}
	}
}

// CancelOrder cancels an order. Delivered orders cannot be cancelled and
// cancellation never restores stock, because none was deducted.
func (s *OrderService) CancelOrder(ctx context.Context, id uint) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status == models.OrderStatusDelivered {
		return nil, apperr.InvalidState("order %s is already delivered", order.OrderNumber)
	}
	if order.Status == models.OrderStatusCancelled {
		return order, nil
	}

	order.Status = models.OrderStatusCancelled
	order.StatusNotified = false
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}

	utils.LogInfo("🚫 Order cancelled", utils.Fields{"order_number": order.OrderNumber})

	if s.notifier != nil {
		s.notifier.NotifyStatusChange(ctx, order)
	}
	return order, nil
}

// RateOrder records a 1-5 rating with optional feedback on a delivered,
// not-yet-rated order.
func (s *OrderService) RateOrder(ctx context.Context, id uint, rating int, feedback string) (*models.Order, error) {
	if rating < 1 || rating > 5 {
		return nil, apperr.Validation("rating must be between 1 and 5")
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusDelivered {
		return nil, apperr.InvalidState("order %s is not delivered yet", order.OrderNumber)
	}
	if order.Rated() {
		return nil, apperr.InvalidState("order %s is already rated", order.OrderNumber)
	}

	now := time.Now()
	order.Rating = &rating
	order.Feedback = feedback
	order.RatedAt = &now
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}

	utils.LogInfo("⭐ Order rated", utils.Fields{
		"order_number": order.OrderNumber,
		"rating":       rating,
	})
	return order, nil
}

// Stats aggregates counts per status plus revenue from non-cancelled orders.
func (s *OrderService) Stats(ctx context.Context) (*OrderStats, error) {
	orders, err := s.orders.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	stats := &OrderStats{Total: int64(len(orders))}
	for _, o := range orders {
		switch o.Status {
		case models.OrderStatusPending:
			stats.Pending++
		case models.OrderStatusConfirmed:
			stats.Confirmed++
		case models.OrderStatusProcessing:
			stats.Processing++
		case models.OrderStatusReady:
			stats.Ready++
		case models.OrderStatusDelivered:
			stats.Delivered++
		case models.OrderStatusCancelled:
			stats.Cancelled++
		}
		if o.Status != models.OrderStatusCancelled {
			stats.TotalRevenue += o.TotalAmount
		}
	}
	return stats, nil
}
