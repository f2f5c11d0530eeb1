package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chatter_service/internal/chatter/domain"
	"chatter_service/internal/chatter/repository"
	"chatter_service/pkg/database"
	"chatter_service/pkg/encrypt"
	errprocess "chatter_service/pkg/err"
	"chatter_service/pkg/logger"
	token "chatter_service/pkg/token"

	"go.uber.org/zap"
)

// AuthUseCase 這裡封裝了對外提供的認證服務
type AuthUseCase interface {
	Register(ctx context.Context, username, email, password string) error
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
	Logout(ctx context.Context, tokenStr string) error
}

type authUseCase struct {
	userRepo   repository.UserRepository
	sessionTTL time.Duration
	redisRepo  database.RedisRepository[domain.UserSession]
}

// NewAuthUseCase 建立一個新的 AuthUseCase
func NewAuthUseCase(userRepo repository.UserRepository,
	sessionTTL time.Duration,
	redisRepo database.RedisRepository[domain.UserSession],
) AuthUseCase {
	return &authUseCase{
		userRepo:   userRepo,
		sessionTTL: sessionTTL,
		redisRepo:  redisRepo,
	}
}

// Register 建立新使用者，username/email 都必須唯一
func (a *authUseCase) Register(ctx context.Context, username, email, password string) error {
	// 檢查 username 是否已存在
	if _, err := a.userRepo.FindByUsername(ctx, username); err == nil {
		return fmt.Errorf("%w: username already exists", domain.ErrValidation)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	exists, err := a.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: email already exists", domain.ErrValidation)
	}

	pw, err := encrypt.HashPassword(password)
	if err != nil {
		return errprocess.Set(fmt.Sprintf("hash password err: %v", err))
	}

	user := domain.User{
		Username:  username,
		Email:     email,
		Password:  pw,
		CreatedAt: time.Now().UTC(),
	}

	logger.Log.Info("usecase Register", zap.String("username", username))

	return a.userRepo.Create(ctx, &user)
}

// Login 驗證憑證並簽發 identity token
func (a *authUseCase) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	user, err := a.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, fmt.Errorf("%w: invalid credentials", domain.ErrAuth)
		}
		return "", nil, err
	}

	if err = user.IsPasswordMatch(password); err != nil {
		return "", nil, fmt.Errorf("%w: invalid credentials", domain.ErrAuth)
	}

	t, err := token.GenerateJWTWrapper(user.Username)
	if err != nil {
		return "", nil, errprocess.Set(fmt.Sprintf("generate token err: %v", err))
	}

	now := time.Now()
	session := domain.UserSession{
		Token:        t,
		Username:     user.Username,
		CreatedAt:    now,
		LastActivity: now,
		ExpiredAt:    now.Add(a.sessionTTL),
	}

	if err := a.redisRepo.Set(ctx, user.Username, session, a.sessionTTL); err != nil {
		logger.Log.Warn("session store failed", zap.String("username", user.Username), zap.Error(err))
	}

	return t, user, nil
}

// Logout 清除 session
func (a *authUseCase) Logout(ctx context.Context, tokenStr string) error {
	tokenInfo, err := token.ParseJWTWrapper(tokenStr)
	if err != nil {
		logger.Log.Error("Logout err", zap.String("err", err.Error()))
		return fmt.Errorf("%w: %v", domain.ErrAuth, err)
	}

	return a.redisRepo.Del(ctx, tokenInfo.Username)
}
