package repository

import (
	"context"

	"github.com/kmallmaperez/geocore/internal/domain"
)

// UsersRepository stores accounts.
type UsersRepository interface {
	List(ctx context.Context) ([]domain.User, error)
	Get(ctx context.Context, id int64) (*domain.User, error)

	// GetByLogin matches an active user by email or name, case-insensitively.
	GetByLogin(ctx context.Context, login string) (*domain.User, error)

	// Create returns ErrDuplicate when the email is taken.
	Create(ctx context.Context, u *domain.User) (int64, error)
	Update(ctx context.Context, u *domain.User) error
	Count(ctx context.Context) (int, error)
}

// StatusOverridesRepository is the keyed per-borehole status store.
type StatusOverridesRepository interface {
	List(ctx context.Context) ([]domain.StatusOverride, error)
	Upsert(ctx context.Context, ddhid, status string) (*domain.StatusOverride, error)
	Delete(ctx context.Context, ddhid string) error
}
