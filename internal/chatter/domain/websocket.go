package domain

import "time"

// Action websocket request action (client → server)
type Action string

const (
	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// MessageDeliveredAck websocket action message_delivered_ack
	MessageDeliveredAck Action = "message_delivered_ack"
	// ReadMessage websocket action read_message
	ReadMessage Action = "read_message"
)

// Event server → client 推播事件名
type Event string

const (
	// ReceiveMessage 推給 receiver room
	ReceiveMessage Event = "receive_message"
	// MessageSent 推給 sender room 的送達確認
	MessageSent Event = "message_sent"
	// MessageDelivered 推給 acker room（保留原有不對稱行為）
	MessageDelivered Event = "message_delivered"
	// MessageRead 推給原始 sender room
	MessageRead Event = "message_read"
)

// WSRequest websocket Request
// 各 action 只使用部分欄位，缺失欄位由 handler 驗證後直接丟棄事件
type WSRequest struct {
	Action    string `json:"action"`
	Receiver  string `json:"receiver,omitempty"`
	Content   string `json:"content,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

// WSEvent websocket 推播封包
type WSEvent struct {
	Event   string                 `json:"event"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// NewMessageEvent 建立 receive_message / message_sent 的封包
func NewMessageEvent(event Event, m *Message) WSEvent {
	return WSEvent{
		Event: string(event),
		Payload: map[string]interface{}{
			"_id":       m.ID.Hex(),
			"sender":    m.Sender,
			"receiver":  m.Receiver,
			"content":   m.Content,
			"timestamp": m.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

// NewAckEvent 建立 message_delivered / message_read 的封包
func NewAckEvent(event Event, messageID string) WSEvent {
	return WSEvent{
		Event: string(event),
		Payload: map[string]interface{}{
			"message_id": messageID,
		},
	}
}
