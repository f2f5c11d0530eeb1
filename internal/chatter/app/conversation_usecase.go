package app

import (
	"context"

	"chatter_service/internal/chatter/domain"
	"chatter_service/internal/chatter/repository"
	"chatter_service/pkg"
)

// ConversationUseCase 從 message store 推導對話清單與未讀數
// 沒有 denormalized conversation table，每次查詢都反映 store 當下狀態
type ConversationUseCase struct {
	msgRepo repository.MessageRepository
}

// NewConversationUseCase init create conversation use case
func NewConversationUseCase(msgRepo repository.MessageRepository) *ConversationUseCase {
	return &ConversationUseCase{msgRepo: msgRepo}
}

// ListConversations user 發過訊息的 receiver ∪ 發訊息給 user 的 sender，去重
// 每個 partner 一次 count 查詢，O(partners) 次 round-trip
func (uc *ConversationUseCase) ListConversations(ctx context.Context, user string) ([]domain.ConversationSummary, error) {
	sentTo, err := uc.msgRepo.DistinctReceiversFrom(ctx, user)
	if err != nil {
		return nil, err
	}
	receivedFrom, err := uc.msgRepo.DistinctSendersTo(ctx, user)
	if err != nil {
		return nil, err
	}

	partners := make([]string, 0, len(sentTo)+len(receivedFrom))
	partners = append(partners, sentTo...)
	for _, partner := range receivedFrom {
		if !pkg.Contains(partners, partner) {
			partners = append(partners, partner)
		}
	}

	conversations := make([]domain.ConversationSummary, 0, len(partners))
	for _, partner := range partners {
		unread, err := uc.msgRepo.CountUnread(ctx, user, partner)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, domain.ConversationSummary{
			Username:    partner,
			UnreadCount: unread,
		})
	}

	return conversations, nil
}
