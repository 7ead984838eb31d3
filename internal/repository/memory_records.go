package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kmallmaperez/geocore/internal/domain"
	"github.com/kmallmaperez/geocore/internal/validation"
)

// MemoryRecordsRepository backs the tables when the database is disabled.
type MemoryRecordsRepository struct {
	mu     sync.RWMutex
	rows   map[domain.TableKind][]domain.StoredRecord
	nextID map[domain.TableKind]int64
	now    func() time.Time
}

func NewMemoryRecordsRepository() *MemoryRecordsRepository {
	return &MemoryRecordsRepository{
		rows:   map[domain.TableKind][]domain.StoredRecord{},
		nextID: map[domain.TableKind]int64{},
		now:    time.Now,
	}
}

var _ RecordsRepository = (*MemoryRecordsRepository)(nil)

// keep only the kind's columns, blank strings dropped
func project(s validation.Schema, f domain.Fields) domain.Fields {
	out := make(domain.Fields, len(s.Columns))
	for _, c := range s.Columns {
		if v := f.Get(c); !v.IsBlank() {
			out[c] = v
		}
	}
	return out
}

func copyRecord(r domain.StoredRecord) domain.StoredRecord {
	r.Fields = r.Fields.Clone()
	return r
}

func (r *MemoryRecordsRepository) List(_ context.Context, kind domain.TableKind) ([]domain.StoredRecord, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownTableKind, string(kind))
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.StoredRecord, 0, len(r.rows[kind]))
	for _, row := range r.rows[kind] {
		out = append(out, copyRecord(row))
	}
	return out, nil
}

func (r *MemoryRecordsRepository) ListByBorehole(ctx context.Context, kind domain.TableKind, borehole string) ([]domain.StoredRecord, error) {
	s, err := validation.SchemaFor(kind)
	if err != nil {
		return nil, err
	}
	all, err := r.List(ctx, kind)
	if err != nil || s.BoreholeField == "" {
		return all, err
	}
	want := strings.TrimSpace(borehole)
	out := all[:0]
	for _, row := range all {
		if s.Borehole(row.Fields) == want {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *MemoryRecordsRepository) Get(_ context.Context, kind domain.TableKind, id int64) (*domain.StoredRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, row := range r.rows[kind] {
		if row.ID == id {
			c := copyRecord(row)
			return &c, nil
		}
	}
	return nil, fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
}

func (r *MemoryRecordsRepository) Create(_ context.Context, kind domain.TableKind, fields domain.Fields) (*domain.StoredRecord, error) {
	s, err := validation.SchemaFor(kind)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID[kind]++
	row := domain.StoredRecord{ID: r.nextID[kind], Kind: kind, Fields: project(s, fields), CreatedAt: r.now()}
	r.rows[kind] = append(r.rows[kind], row)
	c := copyRecord(row)
	return &c, nil
}

func (r *MemoryRecordsRepository) Update(_ context.Context, kind domain.TableKind, id int64, fields domain.Fields) (*domain.StoredRecord, error) {
	s, err := validation.SchemaFor(kind)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, row := range r.rows[kind] {
		if row.ID == id {
			row.Fields = project(s, fields)
			r.rows[kind][i] = row
			c := copyRecord(row)
			return &c, nil
		}
	}
	return nil, fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
}

func (r *MemoryRecordsRepository) Delete(_ context.Context, kind domain.TableKind, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.rows[kind]
	for i, row := range rows {
		if row.ID == id {
			r.rows[kind] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
}

func (r *MemoryRecordsRepository) SetColumn(_ context.Context, kind domain.TableKind, matchCol, matchVal, col string, v domain.Value) (int64, error) {
	s, err := validation.SchemaFor(kind)
	if err != nil {
		return 0, err
	}
	if !s.HasColumn(matchCol) || !s.HasColumn(col) {
		return 0, fmt.Errorf("set column on %s: unknown column", kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for i, row := range r.rows[kind] {
		if row.Fields.Get(matchCol).Text() != matchVal {
			continue
		}
		if v.IsBlank() {
			delete(row.Fields, col)
		} else {
			row.Fields[col] = v
		}
		r.rows[kind][i] = row
		n++
	}
	return n, nil
}
