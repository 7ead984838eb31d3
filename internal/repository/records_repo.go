package repository

import (
	"context"

	"github.com/kmallmaperez/geocore/internal/domain"
)

// RecordsRepository stores the rows of the twelve operation tables.
// Lists are ordered by id ascending.
type RecordsRepository interface {
	List(ctx context.Context, kind domain.TableKind) ([]domain.StoredRecord, error)

	// ListByBorehole returns the rows sharing a borehole id. Kinds without a
	// borehole column return every row.
	ListByBorehole(ctx context.Context, kind domain.TableKind, borehole string) ([]domain.StoredRecord, error)

	Get(ctx context.Context, kind domain.TableKind, id int64) (*domain.StoredRecord, error)
	Create(ctx context.Context, kind domain.TableKind, fields domain.Fields) (*domain.StoredRecord, error)

	// Update replaces every column of the row.
	Update(ctx context.Context, kind domain.TableKind, id int64, fields domain.Fields) (*domain.StoredRecord, error)
	Delete(ctx context.Context, kind domain.TableKind, id int64) error

	// SetColumn writes col on every row whose match column equals value and
	// returns the number of rows touched.
	SetColumn(ctx context.Context, kind domain.TableKind, matchCol, matchVal, col string, v domain.Value) (int64, error)
}
