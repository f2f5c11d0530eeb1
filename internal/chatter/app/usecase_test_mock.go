package app

import (
	"context"
	"sync"
	"time"

	"chatter_service/internal/chatter/domain"
	"chatter_service/internal/chatter/repository"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository Mock UserRepository
type MockUserRepository struct {
	mock.Mock
}

// Create moke create user
func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// FindByUsername moke find user by username
func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// ExistsByEmail moke check email exists
func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

// SearchByPrefix moke search user by prefix
func (m *MockUserRepository) SearchByPrefix(ctx context.Context, prefix, excluding string) ([]domain.User, error) {
	args := m.Called(ctx, prefix, excluding)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// Insert moke insert message
func (m *MockMessageRepository) Insert(ctx context.Context, msg *domain.Message) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

// FindByID moke find message by id
func (m *MockMessageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindBetween moke find messages between two users
func (m *MockMessageRepository) FindBetween(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// SetDeliveredAt moke set delivered_at
func (m *MockMessageRepository) SetDeliveredAt(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// SetReadAt moke set read_at
func (m *MockMessageRepository) SetReadAt(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// DistinctReceiversFrom moke distinct receivers
func (m *MockMessageRepository) DistinctReceiversFrom(ctx context.Context, sender string) ([]string, error) {
	args := m.Called(ctx, sender)
	if args.Get(0) != nil {
		return args.Get(0).([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// DistinctSendersTo moke distinct senders
func (m *MockMessageRepository) DistinctSendersTo(ctx context.Context, receiver string) ([]string, error) {
	args := m.Called(ctx, receiver)
	if args.Get(0) != nil {
		return args.Get(0).([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// CountUnread moke count unread
func (m *MockMessageRepository) CountUnread(ctx context.Context, user, partner string) (int64, error) {
	args := m.Called(ctx, user, partner)
	return args.Get(0).(int64), args.Error(1)
}

// MockEventJournal Mock EventJournal
type MockEventJournal struct {
	mock.Mock
}

// Append moke journal append
func (m *MockEventJournal) Append(ctx context.Context, entry repository.JournalEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockSessionRepository Mock RedisRepository[domain.UserSession]
type MockSessionRepository struct {
	mock.Mock
}

// Set moke session set
func (m *MockSessionRepository) Set(ctx context.Context, key string, value domain.UserSession, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

// Get moke session get
func (m *MockSessionRepository) Get(ctx context.Context, key string) (domain.UserSession, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(domain.UserSession), args.Error(1)
}

// Del moke session del
func (m *MockSessionRepository) Del(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// GetTTL moke session get ttl
func (m *MockSessionRepository) GetTTL(ctx context.Context, key string) (int, error) {
	args := m.Called(ctx, key)
	return args.Int(0), args.Error(1)
}

// ExtendTTL moke session extend ttl
func (m *MockSessionRepository) ExtendTTL(ctx context.Context, key string, ttl time.Duration) error {
	args := m.Called(ctx, key, ttl)
	return args.Error(0)
}

// fakeConn 收集推播事件的測試連線
type fakeConn struct {
	mu     sync.Mutex
	events []domain.WSEvent
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if event, ok := v.(domain.WSEvent); ok {
		c.events = append(c.events, event)
	}
	return nil
}

// Events snapshot 目前收到的事件
func (c *fakeConn) Events() []domain.WSEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.WSEvent, len(c.events))
	copy(out, c.events)
	return out
}
