package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kmallmaperez/geocore/internal/domain"
	"github.com/kmallmaperez/geocore/internal/events"
	"github.com/kmallmaperez/geocore/internal/repository"
	"github.com/kmallmaperez/geocore/internal/store"
	"github.com/kmallmaperez/geocore/internal/validation"
)

// RecordService is the write path of the operation tables. Preview and the
// write methods run the same engine over the same history query; only the
// write methods hold the per-borehole lock and persist.
type RecordService interface {
	// Preview validates without persisting (pre-submit feedback).
	Preview(ctx context.Context, user domain.User, kind domain.TableKind, fields domain.Fields, editID int64) (*validation.Result, error)

	List(ctx context.Context, user domain.User, kind domain.TableKind) ([]domain.StoredRecord, error)
	Get(ctx context.Context, user domain.User, kind domain.TableKind, id int64) (*domain.StoredRecord, error)
	Create(ctx context.Context, user domain.User, kind domain.TableKind, fields domain.Fields) (*domain.StoredRecord, error)
	Update(ctx context.Context, user domain.User, kind domain.TableKind, id int64, fields domain.Fields) (*domain.StoredRecord, error)
	Delete(ctx context.Context, user domain.User, kind domain.TableKind, id int64) error

	// Import inserts rows in order, skipping the ones the engine rejects.
	Import(ctx context.Context, user domain.User, kind domain.TableKind, rows []map[string]any) (*ImportResult, error)
}

// CacheInvalidator drops derived views after a write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

type RecordServiceOptions struct {
	EditWindowDays int
	LockTimeout    time.Duration
	Now            func() time.Time
}

type recordService struct {
	repo      repository.RecordsRepository
	locker    store.Locker
	publisher events.Publisher
	cache     CacheInvalidator
	logger    *zap.Logger
	opts      RecordServiceOptions
}

func NewRecordService(
	repo repository.RecordsRepository,
	locker store.Locker,
	publisher events.Publisher,
	cache CacheInvalidator,
	logger *zap.Logger,
	opts RecordServiceOptions,
) RecordService {
	if opts.EditWindowDays <= 0 {
		opts.EditWindowDays = 10
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &recordService{
		repo:      repo,
		locker:    locker,
		publisher: publisher,
		cache:     cache,
		logger:    logger,
		opts:      opts,
	}
}

// prepare attributes the author before validation.
func prepare(user domain.User, s validation.Schema, fields domain.Fields) domain.Fields {
	out := fields.Clone()
	if s.HasColumn("Geologo") && user.Name != "" {
		out["Geologo"] = domain.String(user.Name)
	}
	return out
}

func lockKey(s validation.Schema, fields domain.Fields) string {
	if s.BoreholeField == "" {
		return string(s.Kind)
	}
	return string(s.Kind) + ":" + s.Borehole(fields)
}

// cutoff is the first calendar day a USER may still see and edit.
func (s *recordService) cutoff() time.Time {
	now := s.opts.Now().UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -s.opts.EditWindowDays)
}

// withinWindow reports whether a row is inside the USER window. Rows without a
// date always are; rows with an unreadable date never are.
func (s *recordService) withinWindow(f domain.Fields) bool {
	v := f.Get("Fecha")
	if v.IsBlank() {
		return true
	}
	d, ok := validation.ParseDate(trimmedText(v))
	if !ok {
		return false
	}
	return !d.Before(s.cutoff())
}

func (s *recordService) validate(ctx context.Context, user domain.User, kind domain.TableKind, fields domain.Fields, editID int64) (validation.Schema, *validation.Result, error) {
	sch, err := validation.SchemaFor(kind)
	if err != nil {
		return sch, nil, err
	}
	candidate := prepare(user, sch, fields)
	history, err := s.repo.ListByBorehole(ctx, kind, sch.Borehole(candidate))
	if err != nil {
		return sch, nil, fmt.Errorf("load history: %w", err)
	}
	res, err := validation.Validate(kind, candidate, history, editID)
	if err != nil {
		return sch, nil, err
	}
	return sch, &res, nil
}

func (s *recordService) Preview(ctx context.Context, user domain.User, kind domain.TableKind, fields domain.Fields, editID int64) (*validation.Result, error) {
	_, res, err := s.validate(ctx, user, kind, fields, editID)
	return res, err
}

func (s *recordService) List(ctx context.Context, user domain.User, kind domain.TableKind) ([]domain.StoredRecord, error) {
	rows, err := s.repo.List(ctx, kind)
	if err != nil {
		return nil, err
	}
	if user.Role != domain.RoleUser {
		return rows, nil
	}
	out := rows[:0]
	for _, r := range rows {
		if s.withinWindow(r.Fields) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *recordService) Get(ctx context.Context, user domain.User, kind domain.TableKind, id int64) (*domain.StoredRecord, error) {
	rec, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if user.Role == domain.RoleUser && !s.withinWindow(rec.Fields) {
		return nil, forbidden("record is outside the last %d days", s.opts.EditWindowDays)
	}
	return rec, nil
}

func (s *recordService) lock(ctx context.Context, key string) (func(), error) {
	lctx, cancel := context.WithTimeout(ctx, s.opts.LockTimeout)
	defer cancel()
	return s.locker.Lock(lctx, key)
}

func (s *recordService) Create(ctx context.Context, user domain.User, kind domain.TableKind, fields domain.Fields) (*domain.StoredRecord, error) {
	sch, err := validation.SchemaFor(kind)
	if err != nil {
		return nil, err
	}
	if !user.CanWrite(kind) {
		return nil, forbidden("no write permission on %s", kind)
	}

	rec, err := s.insertValidated(ctx, sch, prepare(user, sch, fields))
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, events.ActionCreated, sch, rec, user)
	return rec, nil
}

func (s *recordService) Update(ctx context.Context, user domain.User, kind domain.TableKind, id int64, fields domain.Fields) (*domain.StoredRecord, error) {
	sch, err := validation.SchemaFor(kind)
	if err != nil {
		return nil, err
	}
	if !user.CanWrite(kind) {
		return nil, forbidden("no write permission on %s", kind)
	}

	current, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if user.Role == domain.RoleUser && !s.withinWindow(current.Fields) {
		return nil, forbidden("only records from the last %d days can be edited", s.opts.EditWindowDays)
	}

	unlock, err := s.lock(ctx, lockKey(sch, prepare(user, sch, fields)))
	if err != nil {
		return nil, err
	}
	defer unlock()

	_, res, err := s.validate(ctx, user, kind, fields, id)
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return nil, &ValidationError{Findings: res.Findings}
	}

	rec, err := s.repo.Update(ctx, kind, id, res.Record)
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, events.ActionUpdated, sch, rec, user)
	return rec, nil
}

func (s *recordService) Delete(ctx context.Context, user domain.User, kind domain.TableKind, id int64) error {
	sch, err := validation.SchemaFor(kind)
	if err != nil {
		return err
	}
	if !user.IsPrivileged() {
		return forbidden("only ADMIN or SUPERVISOR can delete")
	}

	current, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	unlock, err := s.lock(ctx, lockKey(sch, current.Fields))
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.repo.Delete(ctx, kind, id); err != nil {
		return err
	}
	s.afterWrite(ctx, events.ActionDeleted, sch, current, user)
	return nil
}

func (s *recordService) afterWrite(ctx context.Context, action events.Action, sch validation.Schema, rec *domain.StoredRecord, user domain.User) {
	s.logger.Info("record written",
		zap.String("action", string(action)),
		zap.String("table", string(sch.Kind)),
		zap.Int64("id", rec.ID),
		zap.String("user", user.Name),
	)
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("summary cache not invalidated", zap.Error(err))
		}
	}
	ev := events.NewRecordEvent(action, sch.Kind, rec.ID, sch.Borehole(rec.Fields), user.Name)
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("record event not published", zap.String("event_id", ev.ID), zap.Error(err))
	}
}
