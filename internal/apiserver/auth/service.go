package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"bookstore-api/internal/apiserver/validation"
	"bookstore-api/internal/shared/model"
	"bookstore-api/internal/shared/storage"
	"bookstore-api/pkg/logging"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// adminUserName 启动时创建的管理员用户名
const adminUserName = "Admin"

// EventRecorder 认证事件指标
type EventRecorder interface {
	RecordAuthEvent(event, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordAuthEvent(string, string) {}

// RegisterInput 注册请求
type RegisterInput struct {
	UserName string `json:"userName" validate:"required,min=3,max=21"`
	Email    string `json:"email" validate:"required,looseemail"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginInput 登录请求
type LoginInput struct {
	Email    string `json:"email" validate:"required,looseemail"`
	Password string `json:"password" validate:"required,min=8"`
}

// Session 注册/登录结果
type Session struct {
	User  *model.User
	Token string
}

// Service 注册、登录与管理员初始化
type Service struct {
	store  storage.UserStore
	cfg    Config
	tokens *Tokens
	events EventRecorder
	logger *logging.Logger
}

// NewService 创建认证服务
func NewService(store storage.UserStore, cfg Config, tokens *Tokens, logger *logging.Logger) *Service {
	return &Service{
		store:  store,
		cfg:    cfg,
		tokens: tokens,
		events: nopRecorder{},
		logger: logger,
	}
}

// SetEventRecorder 设置认证事件指标记录器
func (s *Service) SetEventRecorder(r EventRecorder) {
	if r != nil {
		s.events = r
	}
}

// Register 注册新用户并签发会话令牌
//
// 只产生一次写入；并发注册同一邮箱时由存储层唯一约束兜底。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.UserName = strings.TrimSpace(in.UserName)
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if !s.cfg.Enabled() {
		return nil, ErrConfiguration
	}

	existing, err := s.store.GetUserByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		s.record("register", "duplicate")
		return nil, ErrDuplicateUser
	}

	hash, err := HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.tokens.now()
	user := &model.User{
		ID:           bson.NewObjectID(),
		UserName:     in.UserName,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			s.record("register", "duplicate")
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.issueSession(user)
	if err != nil {
		return nil, err
	}

	s.record("register", "success", "user_id", user.ID.Hex())
	return &Session{User: user, Token: token}, nil
}

// Login 校验凭据并签发会话令牌
//
// 邮箱不存在与密码错误返回同一错误，且都会执行一次 bcrypt 比较。
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if !s.cfg.Enabled() {
		return nil, ErrConfiguration
	}

	user, err := s.store.GetUserByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		CheckPassword(in.Password, dummyHash())
		s.record("login", "failure")
		return nil, ErrInvalidCredentials
	}
	if !CheckPassword(in.Password, user.PasswordHash) {
		s.record("login", "failure")
		return nil, ErrInvalidCredentials
	}

	token, err := s.issueSession(user)
	if err != nil {
		return nil, err
	}

	s.record("login", "success", "user_id", user.ID.Hex())
	return &Session{User: user, Token: token}, nil
}

// EnsureAdmin 确保管理员用户存在（启动时调用）
// email 或 password 为空时跳过；这是唯一设置 isAdmin 的途径
// 账号按注册规则校验，不合规时返回错误（否则创建出的管理员无法登录）
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil
	}
	if err := validation.Struct(RegisterInput{UserName: adminUserName, Email: email, Password: password}); err != nil {
		return fmt.Errorf("invalid admin account: %w", err)
	}

	existing, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("check admin user: %w", err)
	}
	if existing != nil {
		if !existing.IsAdmin {
			s.logger.Warn("Admin email belongs to a non-admin user", "user_id", existing.ID.Hex())
		}
		return nil
	}

	hash, err := HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	now := s.tokens.now()
	user := &model.User{
		ID:           bson.NewObjectID(),
		UserName:     adminUserName,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	s.logger.Info("Created admin user", "user_id", user.ID.Hex())
	return nil
}

func (s *Service) issueSession(user *model.User) (string, error) {
	claims := Claims{IsAdmin: user.IsAdmin}
	claims.Subject = user.ID.Hex()
	token, err := s.tokens.Issue(claims, []byte(s.cfg.JWTSecret), AudienceSession, s.cfg.SessionTTL)
	if err != nil {
		return "", fmt.Errorf("issue session token: %w", err)
	}
	return token, nil
}

func (s *Service) record(event, outcome string, extra ...any) {
	s.events.RecordAuthEvent(event, outcome)
	s.logger.AuthEventLog(event, outcome, extra...)
}

// dummyHash 未知邮箱登录时用于比较的哈希
var dummyHash = sync.OnceValue(func() string {
	h, _ := HashPassword("not-a-real-password", 0)
	return h
})
