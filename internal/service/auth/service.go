// Package auth registers operators and issues the bearer tokens guarding the API.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mamadbah2/backoffice/internal/domain/apperr"
	"github.com/mamadbah2/backoffice/internal/domain/models"
	"github.com/mamadbah2/backoffice/internal/repository"
)

const minPasswordLength = 6

// Credentials is the body of register and login.
type Credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Claims is the payload of an access token.
type Claims struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Session is returned by a successful login.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

// Service hashes passwords and signs tokens with HS256.
type Service struct {
	users  repository.UserStore
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires the auth service.
func NewService(users repository.UserStore, secret string, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: users, secret: []byte(secret), ttl: ttl, logger: logger, now: time.Now}
}

// Register creates an operator account.
func (s *Service) Register(ctx context.Context, in Credentials) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, apperr.Validation("username and password are required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperr.Validation("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal(err, "hash password")
	}
	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	err = s.users.InsertUser(ctx, user)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperr.Conflict("username %s is already taken", username)
	}
	if err != nil {
		return nil, apperr.Internal(err, "create user")
	}

	s.logger.Info("user registered", zap.String("username", username))
	return user, nil
}

// Login checks the credentials and issues a token.
func (s *Service) Login(ctx context.Context, in Credentials) (*Session, error) {
	user, err := s.users.UserByUsername(ctx, strings.TrimSpace(in.Username))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Unauthorized("invalid username or password")
	}
	if err != nil {
		return nil, apperr.Internal(err, "load user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperr.Unauthorized("invalid username or password")
	}

	now := s.now()
	expires := now.Add(s.ttl)
	claims := Claims{
		UserID:   user.ID.Hex(),
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, apperr.Internal(err, "sign token")
	}
	return &Session{Token: token, ExpiresAt: expires, User: *user}, nil
}

// Verify parses and validates a bearer token.
func (s *Service) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, apperr.Unauthorized("invalid token")
	}
	return claims, nil
}

// Users lists the operator accounts.
func (s *Service) Users(ctx context.Context) ([]models.User, error) {
	users, err := s.users.FindUsers(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "load users")
	}
	return users, nil
}
