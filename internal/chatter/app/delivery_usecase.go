package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chatter_service/internal/chatter/domain"
	"chatter_service/internal/chatter/repository"
	"chatter_service/pkg/logger"

	"go.uber.org/zap"
)

// DeliveryUseCase 訊息生命週期狀態機
// CREATED（瞬態）→ SENT（落地，created_at/sent_at）→ DELIVERED（delivered_at）→ READ（read_at）
// DELIVERED 與 READ 是獨立 flag，不是嚴格線性鏈：read_at 可以在 delivered_at 還是 null 時被設置
type DeliveryUseCase struct {
	msgRepo  repository.MessageRepository
	presence *PresenceRegistry
	journal  repository.EventJournal
}

// NewDeliveryUseCase init create delivery use case
func NewDeliveryUseCase(
	msgRepo repository.MessageRepository,
	presence *PresenceRegistry,
	journal repository.EventJournal,
) *DeliveryUseCase {
	return &DeliveryUseCase{
		msgRepo:  msgRepo,
		presence: presence,
		journal:  journal,
	}
}

// Send 落地一則訊息，然後 best-effort 推播
// sender 必須來自連線綁定的 identity，不信任 client 給的 sender
// 先落地再推播：推播事件丟了訊息也不會丟，之後靠 history 查詢或 ack 補齊狀態
func (uc *DeliveryUseCase) Send(ctx context.Context, sender, receiver, content string) (*domain.Message, error) {
	if sender == "" {
		return nil, fmt.Errorf("%w: missing sender identity", domain.ErrAuth)
	}
	if receiver == "" || content == "" {
		return nil, fmt.Errorf("%w: receiver and content are required", domain.ErrValidation)
	}

	now := time.Now().UTC()
	msg := &domain.Message{
		Sender:    sender,
		Receiver:  receiver,
		Content:   content,
		CreatedAt: now,
		SentAt:    now, // 建立時與 created_at 相等
	}

	if _, err := uc.msgRepo.Insert(ctx, msg); err != nil {
		return nil, err
	}

	// receiver 在線才收得到，離線時事件被丟棄，訊息已落地不會遺失
	uc.presence.RouteTo(receiver, domain.NewMessageEvent(domain.ReceiveMessage, msg))
	// sender 無論 receiver 在不在線都收到確認回音
	uc.presence.RouteTo(sender, domain.NewMessageEvent(domain.MessageSent, msg))

	uc.appendJournal(ctx, repository.JournalEntry{
		MessageID: msg.ID.Hex(),
		Event:     "sent",
		Sender:    sender,
		Receiver:  receiver,
		At:        now,
	})

	return msg, nil
}

// AckDelivered 設置 delivered_at 並通知
// 訊息不存在時是靜默 no-op：client 可能重放過期的 ack
// 通知送到 acker 自己的 room，不是原始 sender（保留既有行為）
func (uc *DeliveryUseCase) AckDelivered(ctx context.Context, acker, messageID string) error {
	msg, err := uc.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Log.Debug("delivered ack for unknown message", zap.String("message_id", messageID))
			return nil
		}
		return err
	}

	now := time.Now().UTC()
	if err := uc.msgRepo.SetDeliveredAt(ctx, messageID, now); err != nil {
		return err
	}

	uc.presence.RouteTo(acker, domain.NewAckEvent(domain.MessageDelivered, messageID))

	uc.appendJournal(ctx, repository.JournalEntry{
		MessageID: messageID,
		Event:     "delivered",
		Sender:    msg.Sender,
		Receiver:  msg.Receiver,
		At:        now,
	})

	return nil
}

// AckRead 設置 read_at 並通知原始 sender 的 room
// 與 AckDelivered 不同，訊息必須存在，找不到就向上傳遞錯誤
func (uc *DeliveryUseCase) AckRead(ctx context.Context, messageID string) error {
	msg, err := uc.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := uc.msgRepo.SetReadAt(ctx, messageID, now); err != nil {
		return err
	}

	uc.presence.RouteTo(msg.Sender, domain.NewAckEvent(domain.MessageRead, messageID))

	uc.appendJournal(ctx, repository.JournalEntry{
		MessageID: messageID,
		Event:     "read",
		Sender:    msg.Sender,
		Receiver:  msg.Receiver,
		At:        now,
	})

	return nil
}

// History 兩人之間的訊息，created_at 升序
func (uc *DeliveryUseCase) History(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	return uc.msgRepo.FindBetween(ctx, userA, userB)
}

// appendJournal journal 是 fire-and-forget，失敗只記 log
func (uc *DeliveryUseCase) appendJournal(ctx context.Context, entry repository.JournalEntry) {
	if uc.journal == nil {
		return
	}
	if err := uc.journal.Append(ctx, entry); err != nil {
		logger.Log.Warn("journal append failed",
			zap.String("message_id", entry.MessageID),
			zap.String("event", entry.Event),
			zap.Error(err),
		)
	}
}
