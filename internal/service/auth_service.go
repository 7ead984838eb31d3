package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/kmallmaperez/geocore/internal/domain"
	"github.com/kmallmaperez/geocore/internal/repository"
)

// passwordCost is lowered by tests.
var passwordCost = bcrypt.DefaultCost

// HashPassword returns the bcrypt hash stored for a user.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// AuthService handles login and tokens.
type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	IssueToken(u domain.User) (string, error)
	ParseToken(token string) (*Claims, error)
}

type LoginRequest struct {
	Login     string // email or name
	Password  string
	IPAddress string
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// Claims is the JWT payload. It mirrors the public user fields.
type Claims struct {
	UserID int64       `json:"id"`
	Name   string      `json:"name"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
	Tables []string    `json:"tables"`
	jwt.RegisteredClaims
}

// User rebuilds the caller from the token.
func (c *Claims) User() domain.User {
	return domain.User{
		ID:     c.UserID,
		Name:   c.Name,
		Email:  c.Email,
		Role:   c.Role,
		Tables: domain.NormalizeTables(c.Role, c.Tables),
		Active: true,
	}
}

type authService struct {
	usersRepo repository.UsersRepository
	secret    []byte
	ttl       time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewAuthService(usersRepo repository.UsersRepository, secret string, ttl time.Duration, logger *zap.Logger) AuthService {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &authService{
		usersRepo: usersRepo,
		secret:    []byte(secret),
		ttl:       ttl,
		now:       time.Now,
		logger:    logger,
	}
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	login := strings.ToLower(strings.TrimSpace(req.Login))
	if login == "" || req.Password == "" {
		s.logger.Warn("User login failed: missing credentials",
			zap.String("ip_address", req.IPAddress),
			zap.String("reason", "missing_credentials"),
		)
		return nil, ErrInvalidCredentials
	}

	u, err := s.usersRepo.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("User login failed: unknown user",
				zap.String("login", login),
				zap.String("ip_address", req.IPAddress),
				zap.String("reason", "user_not_found"),
			)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("User login failed: wrong password",
			zap.Int64("user_id", u.ID),
			zap.String("ip_address", req.IPAddress),
			zap.String("reason", "invalid_password"),
		)
		return nil, ErrInvalidCredentials
	}

	u.Tables = domain.NormalizeTables(u.Role, u.Tables)
	token, err := s.IssueToken(*u)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User logged in", zap.Int64("user_id", u.ID), zap.String("role", string(u.Role)))
	return &LoginResponse{Token: token, User: *u}, nil
}

func (s *authService) IssueToken(u domain.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Role:   u.Role,
		Tables: domain.NormalizeTables(u.Role, u.Tables),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *authService) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}
	return claims, nil
}
