package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"chatter_service/internal/chatter/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAuthUseCase Mock AuthUseCase
type MockAuthUseCase struct {
	mock.Mock
}

// Register moke register
func (m *MockAuthUseCase) Register(ctx context.Context, username, email, password string) error {
	args := m.Called(ctx, username, email, password)
	return args.Error(0)
}

// Login moke login
func (m *MockAuthUseCase) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	args := m.Called(ctx, username, password)
	if args.Get(1) != nil {
		return args.String(0), args.Get(1).(*domain.User), args.Error(2)
	}
	return args.String(0), nil, args.Error(2)
}

// Logout moke logout
func (m *MockAuthUseCase) Logout(ctx context.Context, tokenStr string) error {
	args := m.Called(ctx, tokenStr)
	return args.Error(0)
}

func newAuthTestApp(authUC AuthUseCase) *fiber.App {
	h := NewAuthHandler(authUC)
	r := fiber.New()
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	return r
}

func postJSON(t *testing.T, r *fiber.App, path string, body map[string]string) (int, map[string]interface{}) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &parsed))
	return resp.StatusCode, parsed
}

// 註冊成功回 201
func TestAuthHandler_Register(t *testing.T) {
	mockAuthUC := new(MockAuthUseCase)
	mockAuthUC.On("Register", mock.Anything, "alice", "alice@example.com", "secret").Return(nil)

	r := newAuthTestApp(mockAuthUC)
	status, body := postJSON(t, r, "/register", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret",
	})

	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "User registered successfully", body["message"])
	mockAuthUC.AssertExpectations(t)
}

// 缺欄位或格式錯誤回 400，不會打到 usecase
func TestAuthHandler_RegisterMissingFields(t *testing.T) {
	mockAuthUC := new(MockAuthUseCase)
	r := newAuthTestApp(mockAuthUC)

	status, body := postJSON(t, r, "/register", map[string]string{
		"username": "alice",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Missing required fields", body["message"])

	// email 格式錯誤
	status, _ = postJSON(t, r, "/register", map[string]string{
		"username": "alice",
		"email":    "not-an-email",
		"password": "secret",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)

	mockAuthUC.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// username/email 重複回 400 帶原因
func TestAuthHandler_RegisterDuplicate(t *testing.T) {
	mockAuthUC := new(MockAuthUseCase)
	mockAuthUC.On("Register", mock.Anything, "alice", "alice@example.com", "secret").
		Return(domain.ErrValidation)

	r := newAuthTestApp(mockAuthUC)
	status, body := postJSON(t, r, "/register", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret",
	})

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
}

// 登入成功回 token 與 user，並設置 cookie
func TestAuthHandler_Login(t *testing.T) {
	mockAuthUC := new(MockAuthUseCase)
	user := &domain.User{Username: "alice", Email: "alice@example.com"}
	mockAuthUC.On("Login", mock.Anything, "alice", "secret").Return("token123", user, nil)

	r := newAuthTestApp(mockAuthUC)
	status, body := postJSON(t, r, "/login", map[string]string{
		"username": "alice",
		"password": "secret",
	})

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Login successful", body["message"])
	assert.Equal(t, "token123", body["token"])

	userBody, ok := body["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "alice", userBody["username"])
}

// 憑證錯誤回 401
func TestAuthHandler_LoginInvalidCredentials(t *testing.T) {
	mockAuthUC := new(MockAuthUseCase)
	mockAuthUC.On("Login", mock.Anything, "alice", "wrong").Return("", nil, domain.ErrAuth)

	r := newAuthTestApp(mockAuthUC)
	status, body := postJSON(t, r, "/login", map[string]string{
		"username": "alice",
		"password": "wrong",
	})

	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Invalid credentials", body["message"])
}

// 登出永遠回成功，session 清除失敗只記 log
func TestAuthHandler_Logout(t *testing.T) {
	mockAuthUC := new(MockAuthUseCase)
	mockAuthUC.On("Logout", mock.Anything, mock.Anything).Return(domain.ErrAuth)

	r := newAuthTestApp(mockAuthUC)
	status, body := postJSON(t, r, "/logout", map[string]string{})

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Logged out successfully", body["message"])
}
