package services

import (
	"sync"
	"time"

	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/models"
	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/repositories"
)

// SessionService owns conversation sessions. All mutation of a session must
// run inside WithLock for that phone: messages from one customer are handled
// strictly one at a time, messages from different customers in parallel.
type SessionService struct {
	repo repositories.SessionRepo

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSessionService(repo repositories.SessionRepo) *SessionService {
	return &SessionService{
		repo:  repo,
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *SessionService) lockFor(phone string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[phone]
	if !ok {
		l = &sync.Mutex{}
		s.locks[phone] = l
	}
	return l
}

// WithLock serializes fn against every other WithLock call for this phone.
func (s *SessionService) WithLock(phone string, fn func() error) error {
	l := s.lockFor(phone)
	l.Lock()
	defer l.Unlock()
	return fn()
}

// GetOrCreate loads the session for phone, creating a fresh main-menu session
// with an empty cart on first contact.
func (s *SessionService) GetOrCreate(phone string) (*models.Session, error) {
	session, err := s.repo.GetByPhone(phone)
	if err != nil {
		return nil, err
	}
	if session != nil {
		return session, nil
	}

	session = &models.Session{
		PhoneNumber: phone,
		State:       models.StateMainMenu,
		Context:     models.SessionContext{},
	}
	if err := s.repo.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

// Save persists a session mutated under WithLock.
func (s *SessionService) Save(session *models.Session) error {
	return s.repo.Save(session)
}

// MarkReminded stamps the abandoned-cart reminder time.
func (s *SessionService) MarkReminded(session *models.Session, at time.Time) error {
	session.LastCartReminderAt = &at
	return s.repo.Save(session)
}
