package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kmallmaperez/geocore/internal/domain"
)

type MemoryUsersRepository struct {
	mu     sync.RWMutex
	users  []domain.User
	nextID int64
}

func NewMemoryUsersRepository() *MemoryUsersRepository {
	return &MemoryUsersRepository{}
}

var _ UsersRepository = (*MemoryUsersRepository)(nil)

func cloneUser(u domain.User) domain.User {
	u.Tables = append([]string{}, u.Tables...)
	return u
}

func (r *MemoryUsersRepository) List(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, cloneUser(u))
	}
	return out, nil
}

func (r *MemoryUsersRepository) Get(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.ID == id {
			c := cloneUser(u)
			return &c, nil
		}
	}
	return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
}

func (r *MemoryUsersRepository) GetByLogin(_ context.Context, login string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if !u.Active {
			continue
		}
		if strings.EqualFold(u.Email, login) || strings.EqualFold(u.Name, login) {
			c := cloneUser(u)
			return &c, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", login, ErrNotFound)
}

func (r *MemoryUsersRepository) emailTaken(email string, except int64) bool {
	for _, u := range r.users {
		if u.ID != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (r *MemoryUsersRepository) Create(_ context.Context, u *domain.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTaken(u.Email, 0) {
		return 0, fmt.Errorf("email %q: %w", u.Email, ErrDuplicate)
	}
	r.nextID++
	c := cloneUser(*u)
	c.ID = r.nextID
	r.users = append(r.users, c)
	return c.ID, nil
}

func (r *MemoryUsersRepository) Update(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTaken(u.Email, u.ID) {
		return fmt.Errorf("email %q: %w", u.Email, ErrDuplicate)
	}
	for i := range r.users {
		if r.users[i].ID == u.ID {
			r.users[i] = cloneUser(*u)
			return nil
		}
	}
	return fmt.Errorf("user %d: %w", u.ID, ErrNotFound)
}

func (r *MemoryUsersRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users), nil
}
