package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kmallmaperez/geocore/internal/domain"
)

type PostgresStatusOverridesRepository struct {
	db *sql.DB
}

func NewPostgresStatusOverridesRepository(db *sql.DB) *PostgresStatusOverridesRepository {
	return &PostgresStatusOverridesRepository{db: db}
}

var _ StatusOverridesRepository = (*PostgresStatusOverridesRepository)(nil)

func (r *PostgresStatusOverridesRepository) List(ctx context.Context) ([]domain.StatusOverride, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT ddhid, estado, updated_at FROM estado_overrides ORDER BY ddhid`)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	defer rows.Close()

	out := []domain.StatusOverride{}
	for rows.Next() {
		var o domain.StatusOverride
		if err := rows.Scan(&o.DDHID, &o.Status, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PostgresStatusOverridesRepository) Upsert(ctx context.Context, ddhid, status string) (*domain.StatusOverride, error) {
	o := domain.StatusOverride{DDHID: ddhid, Status: status}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO estado_overrides (ddhid, estado, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (ddhid) DO UPDATE SET estado = EXCLUDED.estado, updated_at = NOW()
		 RETURNING updated_at`,
		ddhid, status,
	).Scan(&o.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert override %s: %w", ddhid, err)
	}
	return &o, nil
}

func (r *PostgresStatusOverridesRepository) Delete(ctx context.Context, ddhid string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM estado_overrides WHERE ddhid = $1`, ddhid); err != nil {
		return fmt.Errorf("delete override %s: %w", ddhid, err)
	}
	return nil
}

// MemoryStatusOverridesRepository replaces the process-wide override map.
type MemoryStatusOverridesRepository struct {
	mu        sync.RWMutex
	overrides map[string]domain.StatusOverride
}

func NewMemoryStatusOverridesRepository() *MemoryStatusOverridesRepository {
	return &MemoryStatusOverridesRepository{overrides: map[string]domain.StatusOverride{}}
}

var _ StatusOverridesRepository = (*MemoryStatusOverridesRepository)(nil)

func (r *MemoryStatusOverridesRepository) List(_ context.Context) ([]domain.StatusOverride, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.StatusOverride, 0, len(r.overrides))
	for _, o := range r.overrides {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DDHID < out[j].DDHID })
	return out, nil
}

func (r *MemoryStatusOverridesRepository) Upsert(_ context.Context, ddhid, status string) (*domain.StatusOverride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o := domain.StatusOverride{DDHID: ddhid, Status: status, UpdatedAt: time.Now()}
	r.overrides[ddhid] = o
	return &o, nil
}

func (r *MemoryStatusOverridesRepository) Delete(_ context.Context, ddhid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.overrides, ddhid)
	return nil
}
