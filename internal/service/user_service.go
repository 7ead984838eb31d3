package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/kmallmaperez/geocore/internal/domain"
	"github.com/kmallmaperez/geocore/internal/repository"
)

// UserService is ADMIN-only account administration.
type UserService interface {
	List(ctx context.Context, actor domain.User) ([]domain.User, error)
	Create(ctx context.Context, actor domain.User, req CreateUserRequest) (*domain.User, error)
	Update(ctx context.Context, actor domain.User, id int64, req UpdateUserRequest) (*domain.User, error)

	// EnsureAdmin seeds the first ADMIN when the store is empty.
	EnsureAdmin(ctx context.Context, name, email, password string) (bool, error)
}

type CreateUserRequest struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Role     string   `json:"role"`
	Tables   []string `json:"tables"`
}

// UpdateUserRequest: nil fields keep the stored value.
type UpdateUserRequest struct {
	Name     *string   `json:"name"`
	Email    *string   `json:"email"`
	Password *string   `json:"password"`
	Role     *string   `json:"role"`
	Tables   *[]string `json:"tables"`
	Active   *bool     `json:"active"`
}

type userService struct {
	usersRepo repository.UsersRepository
	logger    *zap.Logger
}

func NewUserService(usersRepo repository.UsersRepository, logger *zap.Logger) UserService {
	return &userService{usersRepo: usersRepo, logger: logger}
}

func requireAdmin(actor domain.User) error {
	if actor.Role != domain.RoleAdmin {
		return forbidden("ADMIN only")
	}
	return nil
}

func (s *userService) List(ctx context.Context, actor domain.User) ([]domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.usersRepo.List(ctx)
}

func (s *userService) Create(ctx context.Context, actor domain.User, req CreateUserRequest) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	role := domain.Role(strings.TrimSpace(req.Role))
	if req.Name == "" || req.Email == "" || req.Password == "" || role == "" {
		return nil, badRequest("name, email, password and role are required")
	}
	if !domain.ValidRole(role) {
		return nil, badRequest("invalid role %q", req.Role)
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		Tables:       domain.NormalizeTables(role, req.Tables),
		Active:       true,
	}
	id, err := s.usersRepo.Create(ctx, u)
	if err != nil {
		return nil, err
	}
	u.ID = id
	s.logger.Info("User created", zap.Int64("user_id", id), zap.String("role", string(role)), zap.Int64("by", actor.ID))
	return u, nil
}

func (s *userService) Update(ctx context.Context, actor domain.User, id int64, req UpdateUserRequest) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	u, err := s.usersRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if n := strings.TrimSpace(*req.Name); n != "" {
			u.Name = n
		}
	}
	if req.Email != nil {
		if e := strings.ToLower(strings.TrimSpace(*req.Email)); e != "" {
			u.Email = e
		}
	}
	if req.Role != nil {
		role := domain.Role(strings.TrimSpace(*req.Role))
		if !domain.ValidRole(role) {
			return nil, badRequest("invalid role %q", *req.Role)
		}
		u.Role = role
	}
	if req.Tables != nil {
		u.Tables = *req.Tables
	}
	if req.Active != nil {
		u.Active = *req.Active
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}
	u.Tables = domain.NormalizeTables(u.Role, u.Tables)

	if err := s.usersRepo.Update(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("User updated", zap.Int64("user_id", id), zap.Int64("by", actor.ID))
	return u, nil
}

func (s *userService) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	n, err := s.usersRepo.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	id, err := s.usersRepo.Create(ctx, &domain.User{
		Name:         name,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Tables:       []string{domain.AllTables},
		Active:       true,
	})
	if err != nil {
		return false, err
	}
	s.logger.Warn("Seeded default ADMIN account; change its password", zap.Int64("user_id", id), zap.String("email", email))
	return true, nil
}
