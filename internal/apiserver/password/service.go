// Package password 密码找回：签发重置链接、校验链接、重置密码
package password

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bookstore-api/internal/apiserver/auth"
	"bookstore-api/internal/apiserver/validation"
	"bookstore-api/internal/shared/model"
	"bookstore-api/internal/shared/storage"
	"bookstore-api/pkg/logging"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ForgotInput 申请重置链接
type ForgotInput struct {
	Email string `json:"email" validate:"required,looseemail"`
}

// ResetInput 提交新密码
type ResetInput struct {
	Password string `json:"password" validate:"required,min=8"`
}

// Service 密码重置服务
//
// 重置令牌使用从 JWT_SECRET 派生的独立密钥签名，并携带用户当前的
// token_version；密码一旦变更（任何途径），已发出的链接全部失效。
type Service struct {
	store   storage.UserStore
	cfg     auth.Config
	tokens  *auth.Tokens
	baseURL string
	events  auth.EventRecorder
	logger  *logging.Logger
}

// NewService 创建密码重置服务，baseURL 为重置链接前缀（如 http://localhost:8080）
func NewService(store storage.UserStore, cfg auth.Config, tokens *auth.Tokens, baseURL string, logger *logging.Logger) *Service {
	return &Service{
		store:   store,
		cfg:     cfg,
		tokens:  tokens,
		baseURL: strings.TrimRight(baseURL, "/"),
		events:  nopRecorder{},
		logger:  logger,
	}
}

type nopRecorder struct{}

func (nopRecorder) RecordAuthEvent(string, string) {}

// SetEventRecorder 设置认证事件指标记录器
func (s *Service) SetEventRecorder(r auth.EventRecorder) {
	if r != nil {
		s.events = r
	}
}

// RequestReset 为指定邮箱签发重置链接
func (s *Service) RequestReset(ctx context.Context, in ForgotInput) (string, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Struct(in); err != nil {
		return "", err
	}

	user, err := s.store.GetUserByEmail(ctx, in.Email)
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		s.record("reset_request", "not_found")
		return "", auth.ErrUserNotFound
	}

	key, err := s.key()
	if err != nil {
		return "", err
	}
	claims := auth.Claims{Email: user.Email, Version: user.TokenVersion}
	claims.Subject = user.ID.Hex()
	token, err := s.tokens.Issue(claims, key, auth.AudiencePasswordReset, s.cfg.ResetTTL)
	if err != nil {
		return "", fmt.Errorf("issue reset token: %w", err)
	}

	s.record("reset_request", "success", "user_id", user.ID.Hex())
	return fmt.Sprintf("%s/password/reset-password/%s/%s", s.baseURL, user.ID.Hex(), token), nil
}

// VerifyResetToken 校验重置链接，成功时返回用户邮箱
func (s *Service) VerifyResetToken(ctx context.Context, userID, token string) (string, error) {
	user, _, err := s.verify(ctx, userID, token)
	if err != nil {
		return "", err
	}
	return user.Email, nil
}

// ResetPassword 校验重置链接并写入新密码
//
// 写入以校验时的 token_version 为条件，同一链接并发提交只有一次成功。
func (s *Service) ResetPassword(ctx context.Context, userID, token string, in ResetInput) error {
	user, claims, err := s.verify(ctx, userID, token)
	if err != nil {
		return err
	}
	if err := validation.Struct(in); err != nil {
		return err
	}

	hash, err := auth.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	version := claims.Version
	_, err = s.store.UpdateUser(ctx, user.ID, model.UserUpdate{
		PasswordHash:    &hash,
		ExpectedVersion: &version,
	})
	switch {
	case errors.Is(err, storage.ErrConflict):
		s.record("reset", "stale")
		return auth.ErrInvalidOrExpiredToken
	case errors.Is(err, storage.ErrNotFound):
		return auth.ErrUserNotFound
	case err != nil:
		return fmt.Errorf("update password: %w", err)
	}

	s.record("reset", "success", "user_id", user.ID.Hex())
	return nil
}

// verify 依次检查：用户存在 → 令牌非空 → 签名/过期/主体/版本
func (s *Service) verify(ctx context.Context, userID, token string) (*model.User, *auth.Claims, error) {
	id, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return nil, nil, auth.ErrUserNotFound
	}
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return nil, nil, auth.ErrUserNotFound
	}

	if token == "" {
		return nil, nil, auth.ErrUnauthorized
	}

	key, err := s.key()
	if err != nil {
		return nil, nil, err
	}
	claims, err := s.tokens.Verify(token, key, auth.AudiencePasswordReset)
	if err != nil {
		s.record("reset_verify", "invalid")
		return nil, nil, fmt.Errorf("%w: %v", auth.ErrInvalidOrExpiredToken, err)
	}
	if claims.Subject != user.ID.Hex() || claims.Email != user.Email || claims.Version != user.TokenVersion {
		s.record("reset_verify", "stale")
		return nil, nil, auth.ErrInvalidOrExpiredToken
	}
	return user, claims, nil
}

func (s *Service) key() ([]byte, error) {
	if !s.cfg.Enabled() {
		return nil, auth.ErrConfiguration
	}
	return auth.DeriveKey(s.cfg.JWTSecret, auth.AudiencePasswordReset)
}

func (s *Service) record(event, outcome string, extra ...any) {
	s.events.RecordAuthEvent(event, outcome)
	s.logger.AuthEventLog(event, outcome, extra...)
}
