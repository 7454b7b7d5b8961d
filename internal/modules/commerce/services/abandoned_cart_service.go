package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dukatrade/whatsapp-commerce-be/internal/core/whatsapp"
	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/models"
	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/repositories"
	"github.com/dukatrade/whatsapp-commerce-be/internal/shared/utils"
)

// checkoutStates are skipped by the scanner: the customer is actively
// finishing the order.
var checkoutStates = []models.SessionState{
	models.StateEnteringAddress,
	models.StateConfirmingOrder,
}

// AbandonedCartService scans hourly for carts untouched longer than the
// staleness window and nudges their owners, at most once per window.
type AbandonedCartService struct {
	sessions  *SessionService
	repo      repositories.SessionRepo
	gateway   whatsapp.Gateway
	staleness time.Duration
	cron      *cron.Cron
}

func NewAbandonedCartService(
	sessions *SessionService,
	repo repositories.SessionRepo,
	gateway whatsapp.Gateway,
	staleness time.Duration,
) *AbandonedCartService {
	if staleness <= 0 {
		staleness = 24 * time.Hour
	}
	return &AbandonedCartService{
		sessions:  sessions,
		repo:      repo,
		gateway:   gateway,
		staleness: staleness,
		cron:      cron.New(),
	}
}

// Start schedules the hourly scan.
func (s *AbandonedCartService) Start() error {
	if _, err := s.cron.AddFunc("0 * * * *", func() {
		if _, err := s.CheckAbandonedCarts(); err != nil {
			utils.LogError("❌ Error checking abandoned carts", err, nil)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule abandoned cart check: %w", err)
	}
	s.cron.Start()
	utils.LogInfo("⏰ Abandoned cart scanner started", utils.Fields{
		"staleness": s.staleness.String(),
	})
	return nil
}

// Stop halts the scheduler.
func (s *AbandonedCartService) Stop() {
	s.cron.Stop()
	utils.LogInfo("⏰ Abandoned cart scanner stopped", nil)
}

// CheckAbandonedCarts runs one scan and returns how many reminders went out.
// Also the handler behind the manual trigger endpoint.
func (s *AbandonedCartService) CheckAbandonedCarts() (int, error) {
	utils.LogInfo("🔍 Checking for abandoned carts...", nil)

	cutoff := time.Now().Add(-s.staleness)
	candidates, err := s.repo.FindStale(cutoff, checkoutStates)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range candidates {
		if s.remind(candidates[i].PhoneNumber, cutoff) {
			sent++
		}
	}

	utils.LogInfo("✅ Abandoned cart check completed", utils.Fields{
		"candidates": len(candidates),
		"sent":       sent,
	})
	return sent, nil
}

// remind re-reads the session under its lock and re-checks every condition
// against fresh data, so a customer who came back since the scan query is
// never nagged.
func (s *AbandonedCartService) remind(phone string, cutoff time.Time) bool {
	sent := false
	err := s.sessions.WithLock(phone, func() error {
		session, err := s.repo.GetByPhone(phone)
		if err != nil || session == nil {
			return err
		}

		if session.Context.CartEmpty() {
			return nil
		}
		if !session.UpdatedAt.Before(cutoff) {
			return nil
		}
		for _, state := range checkoutStates {
			if session.State == state {
				return nil
			}
		}
		if session.LastCartReminderAt != nil && !session.LastCartReminderAt.Before(cutoff) {
			return nil
		}

		if err := s.gateway.SendText(phone, reminderMessage(session)); err != nil {
			return err
		}
		sent = true
		return s.sessions.MarkReminded(session, time.Now())
	})
	if err != nil {
		utils.LogError("❌ Failed to send abandoned cart reminder", err, utils.Fields{
			"phone": phone,
		})
	}
	return sent
}

func reminderMessage(session *models.Session) string {
	cart := session.Context.Cart

	var sb strings.Builder
	sb.WriteString("🛒 *You have items in your cart!*\n\n")
	sb.WriteString(fmt.Sprintf("You left %d item(s) in your cart:\n\n", len(cart)))
	for i, line := range cart {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, line.ItemName))
		sb.WriteString(fmt.Sprintf("   Qty: %d × TZS %s\n", line.Quantity, trimAmount(line.UnitPrice)))
	}
	sb.WriteString(fmt.Sprintf("\n💰 *Total: %s*\n\n", money(session.Context.CartTotal())))
	sb.WriteString("Complete your order now!\n")
	sb.WriteString("Type *cart* to review and checkout.\n\n")
	sb.WriteString("Need help? Type *menu* to start over.")
	return sb.String()
}
