package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/kmallmaperez/geocore/internal/domain"
	"github.com/kmallmaperez/geocore/internal/validation"
)

// PostgresRecordsRepository keeps one table per kind. Cells are text columns;
// numeric columns are re-typed on read.
type PostgresRecordsRepository struct {
	db *sql.DB
}

func NewPostgresRecordsRepository(db *sql.DB) *PostgresRecordsRepository {
	return &PostgresRecordsRepository{db: db}
}

var _ RecordsRepository = (*PostgresRecordsRepository)(nil)

func schemaOf(kind domain.TableKind) (validation.Schema, error) {
	return validation.SchemaFor(kind)
}

func selectList(s validation.Schema) string {
	cols := make([]string, 0, len(s.Columns)+2)
	cols = append(cols, "id", "created_at")
	for _, c := range s.Columns {
		cols = append(cols, pq.QuoteIdentifier(c))
	}
	return strings.Join(cols, ", ")
}

func cellArg(v domain.Value) any {
	if v.IsBlank() {
		return nil
	}
	return v.Text()
}

func cellValue(s validation.Schema, col string, ns sql.NullString) domain.Value {
	if !ns.Valid {
		return domain.Absent
	}
	if s.IsNumeric(col) {
		v := domain.String(ns.String)
		if n, ok := v.Float(); ok {
			return domain.Number(n)
		}
		return v
	}
	return domain.String(ns.String)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s validation.Schema, row rowScanner) (*domain.StoredRecord, error) {
	var (
		id        int64
		createdAt time.Time
	)
	cells := make([]sql.NullString, len(s.Columns))
	dest := make([]any, 0, len(cells)+2)
	dest = append(dest, &id, &createdAt)
	for i := range cells {
		dest = append(dest, &cells[i])
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	fields := make(domain.Fields, len(s.Columns))
	for i, c := range s.Columns {
		if v := cellValue(s, c, cells[i]); !v.IsAbsent() {
			fields[c] = v
		}
	}
	return &domain.StoredRecord{ID: id, Kind: s.Kind, Fields: fields, CreatedAt: createdAt}, nil
}

func (r *PostgresRecordsRepository) query(ctx context.Context, s validation.Schema, q string, args ...any) ([]domain.StoredRecord, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.Kind, err)
	}
	defer rows.Close()

	out := []domain.StoredRecord{}
	for rows.Next() {
		rec, err := scanRecord(s, rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.Kind, err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (r *PostgresRecordsRepository) List(ctx context.Context, kind domain.TableKind) ([]domain.StoredRecord, error) {
	s, err := schemaOf(kind)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY id", selectList(s), pq.QuoteIdentifier(string(kind)))
	return r.query(ctx, s, q)
}

func (r *PostgresRecordsRepository) ListByBorehole(ctx context.Context, kind domain.TableKind, borehole string) ([]domain.StoredRecord, error) {
	s, err := schemaOf(kind)
	if err != nil {
		return nil, err
	}
	if s.BoreholeField == "" {
		return r.List(ctx, kind)
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE btrim(%s) = $1 ORDER BY id",
		selectList(s), pq.QuoteIdentifier(string(kind)), pq.QuoteIdentifier(s.BoreholeField))
	return r.query(ctx, s, q, strings.TrimSpace(borehole))
}

func (r *PostgresRecordsRepository) Get(ctx context.Context, kind domain.TableKind, id int64) (*domain.StoredRecord, error) {
	s, err := schemaOf(kind)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", selectList(s), pq.QuoteIdentifier(string(kind)))
	rec, err := scanRecord(s, r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
		}
		return nil, fmt.Errorf("get %s %d: %w", kind, id, err)
	}
	return rec, nil
}

func (r *PostgresRecordsRepository) Create(ctx context.Context, kind domain.TableKind, fields domain.Fields) (*domain.StoredRecord, error) {
	s, err := schemaOf(kind)
	if err != nil {
		return nil, err
	}
	cols := make([]string, len(s.Columns))
	marks := make([]string, len(s.Columns))
	args := make([]any, len(s.Columns))
	for i, c := range s.Columns {
		cols[i] = pq.QuoteIdentifier(c)
		marks[i] = fmt.Sprintf("$%d", i+1)
		args[i] = cellArg(fields.Get(c))
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		pq.QuoteIdentifier(string(kind)), strings.Join(cols, ", "), strings.Join(marks, ", "), selectList(s))
	rec, err := scanRecord(s, r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", kind, err)
	}
	return rec, nil
}

func (r *PostgresRecordsRepository) Update(ctx context.Context, kind domain.TableKind, id int64, fields domain.Fields) (*domain.StoredRecord, error) {
	s, err := schemaOf(kind)
	if err != nil {
		return nil, err
	}
	sets := make([]string, len(s.Columns))
	args := make([]any, 0, len(s.Columns)+1)
	for i, c := range s.Columns {
		sets[i] = fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(c), i+1)
		args = append(args, cellArg(fields.Get(c)))
	}
	args = append(args, id)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING %s",
		pq.QuoteIdentifier(string(kind)), strings.Join(sets, ", "), len(args), selectList(s))
	rec, err := scanRecord(s, r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
		}
		return nil, fmt.Errorf("update %s %d: %w", kind, id, err)
	}
	return rec, nil
}

func (r *PostgresRecordsRepository) Delete(ctx context.Context, kind domain.TableKind, id int64) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownTableKind, string(kind))
	}
	res, err := r.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", pq.QuoteIdentifier(string(kind))), id)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return nil
}

func (r *PostgresRecordsRepository) SetColumn(ctx context.Context, kind domain.TableKind, matchCol, matchVal, col string, v domain.Value) (int64, error) {
	s, err := schemaOf(kind)
	if err != nil {
		return 0, err
	}
	if !s.HasColumn(matchCol) || !s.HasColumn(col) {
		return 0, fmt.Errorf("set column on %s: unknown column", kind)
	}
	q := fmt.Sprintf("UPDATE %s SET %s = $1 WHERE %s = $2",
		pq.QuoteIdentifier(string(kind)), pq.QuoteIdentifier(col), pq.QuoteIdentifier(matchCol))
	res, err := r.db.ExecContext(ctx, q, cellArg(v), matchVal)
	if err != nil {
		return 0, fmt.Errorf("set %s.%s: %w", kind, col, err)
	}
	return res.RowsAffected()
}
