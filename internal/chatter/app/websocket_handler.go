package app

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"chatter_service/internal/chatter/domain"
	"chatter_service/pkg/logger"
	"chatter_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// ChatterWebsocketHandler 可包含所有需要的 UseCase
type ChatterWebsocketHandler struct {
	deliveryUC *DeliveryUseCase
	presence   *PresenceRegistry
}

// NewChatterWebsocketHandler create ChatterWebsocketHandler
func NewChatterWebsocketHandler(
	deliveryUC *DeliveryUseCase,
	presence *PresenceRegistry,
) *ChatterWebsocketHandler {
	return &ChatterWebsocketHandler{
		deliveryUC: deliveryUC,
		presence:   presence,
	}
}

// HandleConnection 是 WebSocket 連線的進入點
// 沒有可解析的 identity 就直接關閉（handshake fail closed）
// 同一條連線的事件在這個 loop 裡順序處理，不同連線彼此交錯
func (h *ChatterWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	identity, ok := conn.Locals(middlewares.TokenUsername).(string)
	if !ok || identity == "" {
		logger.Log.Warn("websocket connection without identity, closing")
		conn.Close()
		return
	}
	logger.Log.Info("websocket handle identity", zap.String("username", identity))

	ticker := time.NewTicker(10 * time.Minute)
	ctxClose, cancel := context.WithCancel(context.Background())

	// 之後所有寫入都走 wc，同一條連線的寫彼此互斥
	wc := newWSConn(conn)

	// 連線進入 identity 自己的 room
	h.presence.Join(identity, wc)

	defer func() {
		// 任何離開路徑（包含異常終止）都會移除 presence
		h.presence.Leave(identity, wc)
		ticker.Stop()
		logger.Log.Info("websocket close", zap.String("username", identity))
		conn.Close()
		cancel()
	}()

	//client發出close
	//fiber會自動處理(在read msg 回傳err),故需要SetCloseHandler另外接出
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("WebSocket closed:", conn.RemoteAddr())
		return nil
	})

	//server發出ping之後client連線正常會回pong
	conn.SetPongHandler(func(appData string) error {
		logger.Log.Infof("Received PONG:", appData)
		return nil
	})

	//client發出ping
	conn.SetPingHandler(func(appData string) error {
		logger.Log.Infof("Received PING:", appData)
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(appData),
			time.Now().Add(time.Second),
		)
	})

	// 定期發送 Ping
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := wc.WriteMessage(websocket.PingMessage, []byte("ping message")); err != nil {
					logger.Log.Errorf("Ping error:", err)
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Infof("Connection closed:", err)
			} else {
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		h.execWebsocketAction(ctx, wc, identity, mt, message)
	}
}

func (h *ChatterWebsocketHandler) execWebsocketAction(ctx context.Context, wc *wsConn, identity string, mt int, msg []byte) {
	switch mt {
	case websocket.TextMessage:
		h.textMessageAction(ctx, wc, identity, msg)
	default:
		h.sendError(wc, "unknown message type")
	}
}

// textMessageAction 解析 action 並分派
// 活頻道上格式錯誤的 payload（缺 receiver/content/message_id）直接丟棄不回錯，
// 這是 best-effort 語義；認證過的 request/response 呼叫不適用這條
func (h *ChatterWebsocketHandler) textMessageAction(ctx context.Context, wc *wsConn, identity string, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		logger.Log.Debug("drop malformed frame", zap.Error(err))
		return
	}

	switch req.Action {
	// 落地後推播給 receiver 與 sender room
	case string(domain.SendMessage):
		if req.Receiver == "" || req.Content == "" {
			logger.Log.Debug("drop send_message without receiver or content", zap.String("username", identity))
			return
		}
		// sender 永遠是連線綁定的 identity，不是 payload 給的
		if _, err := h.deliveryUC.Send(ctx, identity, req.Receiver, req.Content); err != nil {
			logger.Log.Error("send message failed", zap.String("username", identity), zap.Error(err))
			h.sendError(wc, err.Error())
		}

	// 過期的 ack 容忍重放，未知的 message_id 靜默結束
	case string(domain.MessageDeliveredAck):
		if req.MessageID == "" {
			logger.Log.Debug("drop delivered ack without message_id", zap.String("username", identity))
			return
		}
		if err := h.deliveryUC.AckDelivered(ctx, identity, req.MessageID); err != nil {
			logger.Log.Error("delivered ack failed", zap.String("message_id", req.MessageID), zap.Error(err))
			h.sendError(wc, err.Error())
		}

	// 已讀通知訊息必須存在，找不到要讓呼叫端看到錯誤
	case string(domain.ReadMessage):
		if req.MessageID == "" {
			logger.Log.Debug("drop read_message without message_id", zap.String("username", identity))
			return
		}
		if err := h.deliveryUC.AckRead(ctx, req.MessageID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				logger.Log.Error("read ack for unknown message", zap.String("message_id", req.MessageID))
			} else {
				logger.Log.Error("read ack failed", zap.String("message_id", req.MessageID), zap.Error(err))
			}
			h.sendError(wc, err.Error())
		}

	default:
		h.sendError(wc, "unknown action")
	}
}

// sendError - 發送錯誤事件給這條連線
func (h *ChatterWebsocketHandler) sendError(wc *wsConn, errorMsg string) {
	event := domain.WSEvent{
		Event: "error",
		Payload: map[string]interface{}{
			"error": errorMsg,
		},
	}
	b, _ := json.Marshal(event)
	if err := wc.WriteMessage(websocket.TextMessage, b); err != nil {
		logger.Log.Errorf("write message error:", err)
	}
}
