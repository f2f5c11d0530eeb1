package bdd

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"chatter_service/internal/chatter/app"
	"chatter_service/internal/chatter/domain"
	"chatter_service/pkg/logger"

	"github.com/cucumber/godog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memoryMessageStore 給 BDD 情境用的 in-memory MessageRepository
type memoryMessageStore struct {
	mu   sync.Mutex
	msgs []*domain.Message
}

func newMemoryMessageStore() *memoryMessageStore {
	return &memoryMessageStore{}
}

func (s *memoryMessageStore) Insert(ctx context.Context, msg *domain.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = primitive.NewObjectID()
	s.msgs = append(s.msgs, msg)
	return msg.ID.Hex(), nil
}

func (s *memoryMessageStore) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.msgs {
		if m.ID.Hex() == id {
			return m, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memoryMessageStore) FindBetween(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Message
	for _, m := range s.msgs {
		if (m.Sender == userA && m.Receiver == userB) || (m.Sender == userB && m.Receiver == userA) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryMessageStore) SetDeliveredAt(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.msgs {
		if m.ID.Hex() == id && m.DeliveredAt == nil {
			m.DeliveredAt = &at
		}
	}
	return nil
}

func (s *memoryMessageStore) SetReadAt(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.msgs {
		if m.ID.Hex() == id && m.ReadAt == nil {
			m.ReadAt = &at
		}
	}
	return nil
}

func (s *memoryMessageStore) DistinctReceiversFrom(ctx context.Context, sender string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, m := range s.msgs {
		if m.Sender == sender && !seen[m.Receiver] {
			seen[m.Receiver] = true
			out = append(out, m.Receiver)
		}
	}
	return out, nil
}

func (s *memoryMessageStore) DistinctSendersTo(ctx context.Context, receiver string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, m := range s.msgs {
		if m.Receiver == receiver && !seen[m.Sender] {
			seen[m.Sender] = true
			out = append(out, m.Sender)
		}
	}
	return out, nil
}

func (s *memoryMessageStore) CountUnread(ctx context.Context, user, partner string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, m := range s.msgs {
		if m.Sender == partner && m.Receiver == user && m.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

// captureConn 收集推播事件的連線
type captureConn struct {
	mu     sync.Mutex
	events []domain.WSEvent
}

func (c *captureConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if event, ok := v.(domain.WSEvent); ok {
		c.events = append(c.events, event)
	}
	return nil
}

func (c *captureConn) snapshot() []domain.WSEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.WSEvent, len(c.events))
	copy(out, c.events)
	return out
}

// 每個 scenario 重建的狀態
var (
	msgStore       *memoryMessageStore
	presence       *app.PresenceRegistry
	deliveryUC     *app.DeliveryUseCase
	conversationUC *app.ConversationUseCase
	liveConns      map[string]*captureConn
	userTokens     map[string]string
	lastMessageID  string
)

func userHasToken(user, token string) error {
	userTokens[user] = token
	return nil
}

func bothConnected(userA, userB string) error {
	for _, u := range []string{userA, userB} {
		conn := &captureConn{}
		liveConns[u] = conn
		presence.Join(u, conn)
	}
	return nil
}

func notConnected(user string) error {
	if _, ok := liveConns[user]; ok {
		return fmt.Errorf("%s should not have a live connection", user)
	}
	return nil
}

func sendMessage(sender, content, receiver string) error {
	msg, err := deliveryUC.Send(context.Background(), sender, receiver, content)
	if err != nil {
		return err
	}
	lastMessageID = msg.ID.Hex()
	return nil
}

func shouldReceiveMessage(user, content string) error {
	conn, ok := liveConns[user]
	if !ok {
		return fmt.Errorf("%s has no live connection", user)
	}
	for _, event := range conn.snapshot() {
		if event.Event == string(domain.ReceiveMessage) && event.Payload["content"] == content {
			return nil
		}
	}
	return fmt.Errorf("%s did not receive %q", user, content)
}

func shouldGetEvent(user, eventName string) error {
	conn, ok := liveConns[user]
	if !ok {
		return fmt.Errorf("%s has no live connection", user)
	}
	for _, event := range conn.snapshot() {
		if event.Event == eventName {
			return nil
		}
	}
	return fmt.Errorf("%s did not get event %q", user, eventName)
}

func deliveredAtIsNull() error {
	msg, err := msgStore.FindByID(context.Background(), lastMessageID)
	if err != nil {
		return err
	}
	if msg.DeliveredAt != nil {
		return fmt.Errorf("delivered_at should be null, got %v", msg.DeliveredAt)
	}
	return nil
}

func shouldSeeUnread(user string, expected int) error {
	conversations, err := conversationUC.ListConversations(context.Background(), user)
	if err != nil {
		return err
	}
	var total int64
	for _, c := range conversations {
		total += c.UnreadCount
	}
	if total != int64(expected) {
		return fmt.Errorf("expected %d unread, got %d", expected, total)
	}
	return nil
}

func reportsRead(user string) error {
	return deliveryUC.AckRead(context.Background(), lastMessageID)
}

func InitializeMessagingScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		logger.SetNewNop()
		msgStore = newMemoryMessageStore()
		presence = app.NewPresenceRegistry()
		deliveryUC = app.NewDeliveryUseCase(msgStore, presence, nil)
		conversationUC = app.NewConversationUseCase(msgStore)
		liveConns = map[string]*captureConn{}
		userTokens = map[string]string{}
		lastMessageID = ""
		return c, nil
	})

	ctx.Step(`^"([^"]*)" 已登入並取得 Token "([^"]*)"$`, userHasToken)
	ctx.Step(`^"([^"]*)" 和 "([^"]*)" 都已建立 websocket 連線$`, bothConnected)
	ctx.Step(`^"([^"]*)" 沒有 websocket 連線$`, notConnected)
	ctx.Step(`^"([^"]*)" 發送訊息 "([^"]*)" 給 "([^"]*)"$`, sendMessage)
	ctx.Step(`^"([^"]*)" 應該收到訊息 "([^"]*)"$`, shouldReceiveMessage)
	ctx.Step(`^"([^"]*)" 應該收到 "([^"]*)" 確認$`, shouldGetEvent)
	ctx.Step(`^"([^"]*)" 應該收到 "([^"]*)" 通知$`, shouldGetEvent)
	ctx.Step(`^訊息仍然落地且 delivered_at 為空$`, deliveredAtIsNull)
	ctx.Step(`^"([^"]*)" 之後查詢對話應該看到 (\d+) 則未讀$`, shouldSeeUnread)
	ctx.Step(`^"([^"]*)" 回報已讀該訊息$`, reportsRead)
}
