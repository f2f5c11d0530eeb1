package app

import (
	"sync"

	"chatter_service/internal/chatter/domain"
	"chatter_service/pkg/logger"

	"go.uber.org/zap"
)

// LiveConn 一條可以推播 JSON 的活連線
type LiveConn interface {
	WriteJSON(v interface{}) error
}

// rawConn 底層 websocket 連線的寫入面
type rawConn interface {
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
}

// wsConn 串行化同一條連線的所有寫入
// websocket 連線不允許多個 goroutine 併發寫：RouteTo 的推播、
// ping ticker 與 error 回報都可能同時發生，必須共用這把鎖
type wsConn struct {
	mu  sync.Mutex
	raw rawConn
}

// newWSConn wrap raw conn with a write lock
func newWSConn(raw rawConn) *wsConn {
	return &wsConn{raw: raw}
}

func (c *wsConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.raw.WriteJSON(v)
}

func (c *wsConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.raw.WriteMessage(messageType, data)
}

// PresenceRegistry 追蹤哪些 identity 目前有活連線
// 由 server 啟動時建立並注入，不是 module-level singleton
// membership map 是核心唯一的共享可變狀態，Join/Leave/RouteTo 可以被不同連線交錯呼叫
type PresenceRegistry struct {
	mu    sync.RWMutex
	rooms map[string]map[LiveConn]struct{}
}

// NewPresenceRegistry create PresenceRegistry
func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		rooms: make(map[string]map[LiveConn]struct{}),
	}
}

// Join 將連線註冊到 identity 的 room，同一條連線重複 Join 是冪等的
func (p *PresenceRegistry) Join(identity string, conn LiveConn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	room, ok := p.rooms[identity]
	if !ok {
		room = make(map[LiveConn]struct{})
		p.rooms[identity] = room
	}
	room[conn] = struct{}{}
}

// Leave 移除連線，identity 的最後一條連線移除後即離線
// 斷線路徑（包含異常終止）必須走到這裡，由連線 handler defer 保證
func (p *PresenceRegistry) Leave(identity string, conn LiveConn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	room, ok := p.rooms[identity]
	if !ok {
		return
	}
	delete(room, conn)
	if len(room) == 0 {
		delete(p.rooms, identity)
	}
}

// IsOnline identity 目前是否有活連線
func (p *PresenceRegistry) IsOnline(identity string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rooms[identity]) > 0
}

// RouteTo 將事件推播給 identity 的所有活連線
// identity 離線時是靜默 no-op（事件被丟棄，不排隊）；需要跨離線存活的狀態
// 由 Delivery Engine 先落地，不是這裡的責任
func (p *PresenceRegistry) RouteTo(identity string, event domain.WSEvent) {
	p.mu.RLock()
	conns := make([]LiveConn, 0, len(p.rooms[identity]))
	for conn := range p.rooms[identity] {
		conns = append(conns, conn)
	}
	p.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(event); err != nil {
			logger.Log.Warn("route event failed",
				zap.String("identity", identity),
				zap.String("event", event.Event),
				zap.Error(err),
			)
		}
	}
}
