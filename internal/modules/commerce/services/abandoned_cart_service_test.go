package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/models"
	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/repositories"
)

type abandonedCartFixture struct {
	db      *gorm.DB
	gateway *fakeGateway
	repo    repositories.SessionRepo
	service *AbandonedCartService
}

func newAbandonedCartFixture(t *testing.T) *abandonedCartFixture {
	t.Helper()

	db := newTestDB(t)
	gateway := &fakeGateway{}
	repo := repositories.NewSessionRepo(db)
	sessions := NewSessionService(repo)

	return &abandonedCartFixture{
		db:      db,
		gateway: gateway,
		repo:    repo,
		service: NewAbandonedCartService(sessions, repo, gateway, 24*time.Hour),
	}
}

// seedSession creates a session and backdates updated_at past gorm's
// auto-stamping.
func (f *abandonedCartFixture) seedSession(t *testing.T, phone string, state models.SessionState, cart []models.CartLine, age time.Duration) {
	t.Helper()

	require.NoError(t, f.repo.Create(&models.Session{
		PhoneNumber: phone,
		State:       state,
		Context:     models.SessionContext{Cart: cart},
	}))
	f.backdate(t, phone, age)
}

func (f *abandonedCartFixture) backdate(t *testing.T, phone string, age time.Duration) {
	t.Helper()
	require.NoError(t, f.db.Model(&models.Session{}).
		Where("phone_number = ?", phone).
		UpdateColumn("updated_at", time.Now().Add(-age)).Error)
}

func (f *abandonedCartFixture) session(t *testing.T, phone string) *models.Session {
	t.Helper()
	sess, err := f.repo.GetByPhone(phone)
	require.NoError(t, err)
	require.NotNil(t, sess)
	return sess
}

var testCart = []models.CartLine{
	{ItemID: 1, ItemName: "Laptop", Quantity: 1, UnitPrice: 500000, TotalPrice: 500000, WarehouseID: 1},
}

func TestCheckAbandonedCarts_RemindsStaleCart(t *testing.T) {
	f := newAbandonedCartFixture(t)
	f.seedSession(t, testPhone, models.StateMainMenu, testCart, 30*time.Hour)

	sent, err := f.service.CheckAbandonedCarts()
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	msgs := f.gateway.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].body, "You have items in your cart")
	assert.Contains(t, msgs[0].body, "Laptop")

	sess := f.session(t, testPhone)
	require.NotNil(t, sess.LastCartReminderAt)
}

func TestCheckAbandonedCarts_CooldownBlocksSecondReminder(t *testing.T) {
	f := newAbandonedCartFixture(t)
	f.seedSession(t, testPhone, models.StateMainMenu, testCart, 30*time.Hour)

	sent, err := f.service.CheckAbandonedCarts()
	require.NoError(t, err)
	require.Equal(t, 1, sent)

	// The cart stays untouched but the reminder is recent: backdating
	// updated_at alone must not produce a second nag.
	f.backdate(t, testPhone, 30*time.Hour)

	sent, err = f.service.CheckAbandonedCarts()
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Len(t, f.gateway.messages(), 1)
}

func TestCheckAbandonedCarts_SkipsEmptyCart(t *testing.T) {
	f := newAbandonedCartFixture(t)
	f.seedSession(t, testPhone, models.StateMainMenu, nil, 30*time.Hour)

	sent, err := f.service.CheckAbandonedCarts()
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Empty(t, f.gateway.messages())
}

func TestCheckAbandonedCarts_SkipsActiveSessions(t *testing.T) {
	f := newAbandonedCartFixture(t)
	f.seedSession(t, testPhone, models.StateMainMenu, testCart, time.Hour)

	sent, err := f.service.CheckAbandonedCarts()
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}

func TestCheckAbandonedCarts_SkipsCheckoutStates(t *testing.T) {
	f := newAbandonedCartFixture(t)
	f.seedSession(t, "255700000010", models.StateEnteringAddress, testCart, 30*time.Hour)
	f.seedSession(t, "255700000011", models.StateConfirmingOrder, testCart, 30*time.Hour)
	f.seedSession(t, "255700000012", models.StateCartReview, testCart, 30*time.Hour)

	sent, err := f.service.CheckAbandonedCarts()
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	msgs := f.gateway.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "255700000012", msgs[0].phone)
}

func TestCheckAbandonedCarts_SendFailureLeavesReminderUnstamped(t *testing.T) {
	f := newAbandonedCartFixture(t)
	f.seedSession(t, testPhone, models.StateMainMenu, testCart, 30*time.Hour)
	f.gateway.failAll = true

	sent, err := f.service.CheckAbandonedCarts()
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Nil(t, f.session(t, testPhone).LastCartReminderAt)

	// Next scan retries successfully.
	f.gateway.failAll = false
	sent, err = f.service.CheckAbandonedCarts()
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.NotNil(t, f.session(t, testPhone).LastCartReminderAt)
}
