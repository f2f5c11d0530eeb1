package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message 表示一則 1對1 訊息
// created_at/sent_at 在建立時相等（sent_at 為冗余欄位，保留相容）
// delivered_at/read_at 各自最多設置一次，read_at 可以在 delivered_at 之前被設置
type Message struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Sender      string             `bson:"sender"`
	Receiver    string             `bson:"receiver"`
	Content     string             `bson:"content"`
	CreatedAt   time.Time          `bson:"created_at"`
	SentAt      time.Time          `bson:"sent_at"`
	DeliveredAt *time.Time         `bson:"delivered_at"`
	ReadAt      *time.Time         `bson:"read_at"`
}

// MessageView 對外序列化格式，時間欄位用 RFC3339，可為 null
type MessageView struct {
	ID          string  `json:"_id"`
	Sender      string  `json:"sender"`
	Receiver    string  `json:"receiver"`
	Content     string  `json:"content"`
	CreatedAt   *string `json:"created_at"`
	SentAt      *string `json:"sent_at"`
	DeliveredAt *string `json:"delivered_at"`
	ReadAt      *string `json:"read_at"`
}

// View 轉換為對外格式
func (m *Message) View() MessageView {
	return MessageView{
		ID:          m.ID.Hex(),
		Sender:      m.Sender,
		Receiver:    m.Receiver,
		Content:     m.Content,
		CreatedAt:   formatTime(&m.CreatedAt),
		SentAt:      formatTime(&m.SentAt),
		DeliveredAt: formatTime(m.DeliveredAt),
		ReadAt:      formatTime(m.ReadAt),
	}
}

func formatTime(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}

// ConversationSummary 對話清單的一筆（derived，不落地）
type ConversationSummary struct {
	Username    string `json:"username"`
	UnreadCount int64  `json:"unread_count"`
}
