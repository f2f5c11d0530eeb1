package app

import (
	"errors"

	"chatter_service/internal/chatter/domain"
	"chatter_service/internal/chatter/repository"
	"chatter_service/pkg/logger"
	"chatter_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// QueryHandler read-side 查詢，只讀投影，永遠不走活路徑
type QueryHandler struct {
	conversationUC *ConversationUseCase
	deliveryUC     *DeliveryUseCase
	userRepo       repository.UserRepository
}

// NewQueryHandler create QueryHandler
func NewQueryHandler(
	conversationUC *ConversationUseCase,
	deliveryUC *DeliveryUseCase,
	userRepo repository.UserRepository,
) *QueryHandler {
	return &QueryHandler{
		conversationUC: conversationUC,
		deliveryUC:     deliveryUC,
		userRepo:       userRepo,
	}
}

// identity 取出 middleware 綁定的 identity，所有查詢路由都要求認證
func identity(c *fiber.Ctx) (string, bool) {
	username, ok := c.Locals(middlewares.TokenUsername).(string)
	return username, ok && username != ""
}

// Conversations 當前 identity 的對話清單
// @Summary List conversations with unread counts
// @Tags Queries
// @Produce json
// @Param auth query string false "identity token"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /conversations [get]
func (h *QueryHandler) Conversations(c *fiber.Ctx) error {
	user, ok := identity(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Authentication required"})
	}

	conversations, err := h.conversationUC.ListConversations(c.Context(), user)
	if err != nil {
		logger.Log.Error("list conversations failed", zap.String("username", user), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "internal error"})
	}

	return c.JSON(fiber.Map{"success": true, "conversations": conversations})
}

// Search 依 username 前綴搜尋使用者，排除自己與憑證欄位
// @Summary Search users by username prefix
// @Tags Queries
// @Produce json
// @Param username query string true "username prefix"
// @Param auth query string false "identity token"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /search [get]
func (h *QueryHandler) Search(c *fiber.Ctx) error {
	user, ok := identity(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Authentication required"})
	}

	query := c.Query("username")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "No search query provided"})
	}

	users, err := h.userRepo.SearchByPrefix(c.Context(), query, user)
	if err != nil {
		logger.Log.Error("search users failed", zap.String("query", query), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "internal error"})
	}

	summaries := make([]domain.UserSummary, 0, len(users))
	for i := range users {
		summaries = append(summaries, users[i].Summary())
	}

	return c.JSON(fiber.Map{"success": true, "users": summaries})
}

// ChatHistory 當前 identity 與指定 user 之間的歷史訊息，created_at 升序
// @Summary Fetch chat history with a user
// @Tags Queries
// @Produce json
// @Param username path string true "conversation partner"
// @Param auth query string false "identity token"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /chat/{username} [get]
func (h *QueryHandler) ChatHistory(c *fiber.Ctx) error {
	user, ok := identity(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Authentication required"})
	}

	other := c.Params("username")
	if _, err := h.userRepo.FindByUsername(c.Context(), other); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "User not found"})
		}
		logger.Log.Error("find user failed", zap.String("username", other), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "internal error"})
	}

	messages, err := h.deliveryUC.History(c.Context(), user, other)
	if err != nil {
		logger.Log.Error("chat history failed", zap.String("username", user), zap.String("other", other), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "internal error"})
	}

	views := make([]domain.MessageView, 0, len(messages))
	for i := range messages {
		views = append(views, messages[i].View())
	}

	return c.JSON(fiber.Map{"success": true, "messages": views})
}
