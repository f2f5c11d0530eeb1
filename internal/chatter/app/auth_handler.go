package app

import (
	"errors"

	"chatter_service/internal/chatter/domain"
	"chatter_service/pkg/logger"
	"chatter_service/pkg/middlewares"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// validate 請求邊界的 schema 驗證
var validate = validator.New()

// AuthHandler 處理註冊/登入/登出的 HTTP 請求
type AuthHandler struct {
	authUC AuthUseCase
}

// NewAuthHandler create AuthHandler
func NewAuthHandler(authUC AuthUseCase) *AuthHandler {
	return &AuthHandler{authUC: authUC}
}

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Register 註冊新使用者
// @Summary Register a new user
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body registerRequest true "registration payload"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Missing required fields"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Missing required fields"})
	}

	if err := h.authUC.Register(c.Context(), req.Username, req.Email, req.Password); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": err.Error()})
		}
		logger.Log.Error("register failed", zap.String("username", req.Username), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "internal error"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "message": "User registered successfully"})
}

// Login 使用者登入
// @Summary Login with username and password
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "login payload"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Missing required fields"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Missing required fields"})
	}

	t, user, err := h.authUC.Login(c.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrAuth) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Invalid credentials"})
		}
		logger.Log.Error("login failed", zap.String("username", req.Username), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "internal error"})
	}

	// token 同時放進 cookie，websocket handshake 用
	c.Cookie(&fiber.Cookie{
		Name:  middlewares.CookieToken,
		Value: t,
	})

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Login successful",
		"token":   t,
		"user":    fiber.Map{"username": user.Username},
	})
}

// Logout 使用者登出
// @Summary Logout current session
// @Tags Auth
// @Produce json
// @Param auth query string false "identity token"
// @Success 200 {object} map[string]interface{}
// @Router /logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	tokenStr := c.Query(middlewares.QueryToken)
	if tokenStr == "" {
		tokenStr = c.Cookies(middlewares.CookieToken)
	}

	if err := h.authUC.Logout(c.Context(), tokenStr); err != nil {
		logger.Log.Warn("logout failed", zap.Error(err))
	}

	c.ClearCookie(middlewares.CookieToken)
	return c.JSON(fiber.Map{"success": true, "message": "Logged out successfully"})
}
