package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/kmallmaperez/geocore/internal/domain"
)

type PostgresUsersRepository struct {
	db *sql.DB
}

func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

var _ UsersRepository = (*PostgresUsersRepository)(nil)

const userColumns = `id, name, email, password_hash, role, tables, active`

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, pq.Array(&u.Tables), &u.Active); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	if u.Tables == nil {
		u.Tables = []string{}
	}
	return &u, nil
}

func (r *PostgresUsersRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *PostgresUsersRepository) Get(ctx context.Context, id int64) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *PostgresUsersRepository) GetByLogin(ctx context.Context, login string) (*domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users
		WHERE active AND (lower(email) = lower($1) OR lower(name) = lower($1))
		ORDER BY id LIMIT 1`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, login))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user %q: %w", login, ErrNotFound)
		}
		return nil, fmt.Errorf("get user by login: %w", err)
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (r *PostgresUsersRepository) Create(ctx context.Context, u *domain.User) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (name, email, password_hash, role, tables, active)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		u.Name, u.Email, u.PasswordHash, string(u.Role), pq.Array(u.Tables), u.Active,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("email %q: %w", u.Email, ErrDuplicate)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

func (r *PostgresUsersRepository) Update(ctx context.Context, u *domain.User) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = $1, email = $2, password_hash = $3, role = $4, tables = $5, active = $6
		 WHERE id = $7`,
		u.Name, u.Email, u.PasswordHash, string(u.Role), pq.Array(u.Tables), u.Active, u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("email %q: %w", u.Email, ErrDuplicate)
		}
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", u.ID, ErrNotFound)
	}
	return nil
}

func (r *PostgresUsersRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
