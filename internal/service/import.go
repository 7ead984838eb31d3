package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/kmallmaperez/geocore/internal/domain"
	"github.com/kmallmaperez/geocore/internal/events"
	"github.com/kmallmaperez/geocore/internal/validation"
)

// ImportError reports why one input row (1-based) was skipped.
type ImportError struct {
	Row      int      `json:"row"`
	Messages []string `json:"messages"`
}

type ImportResult struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// RowFields cleans one imported row: keys and strings are trimmed, columns
// outside the table are dropped.
func RowFields(kind domain.TableKind, raw map[string]any) (domain.Fields, error) {
	s, err := validation.SchemaFor(kind)
	if err != nil {
		return nil, err
	}
	clean := make(map[string]any, len(raw))
	for k, v := range raw {
		k = strings.TrimSpace(k)
		if !s.HasColumn(k) {
			continue
		}
		if str, ok := v.(string); ok {
			v = strings.TrimSpace(str)
		}
		clean[k] = v
	}
	return domain.DecodeRecordMap(kind, clean)
}

// ParseSheet reads the first sheet of an .xlsx or .csv upload into header-keyed
// rows. Blank lines are skipped.
func ParseSheet(filename string, r io.Reader) ([]map[string]any, error) {
	var grid [][]string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read upload: %w", err)
		}
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, badRequest("failed to parse Excel file: %v", err)
		}
		defer f.Close()
		sheet := f.GetSheetName(0)
		if sheet == "" {
			return nil, badRequest("Excel file has no sheets")
		}
		if grid, err = f.GetRows(sheet); err != nil {
			return nil, badRequest("failed to read rows: %v", err)
		}
	case ".csv":
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		var err error
		if grid, err = cr.ReadAll(); err != nil {
			return nil, badRequest("failed to parse CSV file: %v", err)
		}
	default:
		return nil, badRequest("unsupported file type %q", filepath.Ext(filename))
	}

	if len(grid) == 0 {
		return nil, nil
	}
	header := grid[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	out := make([]map[string]any, 0, len(grid)-1)
	for _, line := range grid[1:] {
		row := make(map[string]any, len(header))
		blank := true
		for i, name := range header {
			if name = strings.TrimSpace(name); name == "" || i >= len(line) {
				continue
			}
			cell := strings.TrimSpace(line[i])
			if cell == "" {
				continue
			}
			row[name] = cell
			blank = false
		}
		if !blank {
			out = append(out, row)
		}
	}
	return out, nil
}

// Import validates and inserts rows one by one. Each accepted row is part of
// the history the later rows are checked against.
func (s *recordService) Import(ctx context.Context, user domain.User, kind domain.TableKind, rows []map[string]any) (*ImportResult, error) {
	if _, err := validation.SchemaFor(kind); err != nil {
		return nil, err
	}
	if user.Role != domain.RoleAdmin {
		return nil, forbidden("ADMIN only")
	}
	if len(rows) == 0 {
		return nil, badRequest(`"rows" must be a non-empty array`)
	}

	res, _, err := ImportRows(ctx, kind, rows, user.Name,
		func(ctx context.Context, sch validation.Schema, fields domain.Fields) (*domain.StoredRecord, error) {
			rec, err := s.insertValidated(ctx, sch, fields)
			if err == nil {
				s.afterWrite(ctx, events.ActionCreated, sch, rec, user)
			}
			return rec, err
		})
	if err != nil {
		return nil, err
	}

	s.logger.Info("import finished",
		zap.String("table", string(kind)),
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
		zap.String("user", user.Name),
	)
	return res, nil
}

// RowInserter validates and stores one cleaned row. A *ValidationError
// rejects the row with its findings; other errors reject it with their text.
type RowInserter func(ctx context.Context, sch validation.Schema, fields domain.Fields) (*domain.StoredRecord, error)

// ImportRows feeds rows to insert in order and builds the import report.
// Rows are numbered from 1. author fills a blank Geologo. Only a cancelled
// ctx aborts the run.
func ImportRows(ctx context.Context, kind domain.TableKind, rows []map[string]any, author string, insert RowInserter) (*ImportResult, []domain.StoredRecord, error) {
	sch, err := validation.SchemaFor(kind)
	if err != nil {
		return nil, nil, err
	}

	res := &ImportResult{Errors: []ImportError{}}
	var accepted []domain.StoredRecord
	skip := func(idx int, msgs ...string) {
		res.Skipped++
		res.Errors = append(res.Errors, ImportError{Row: idx + 1, Messages: msgs})
	}

	for idx, raw := range rows {
		fields, err := RowFields(kind, raw)
		if err != nil {
			skip(idx, err.Error())
			continue
		}
		if author != "" && sch.HasColumn("Geologo") && fields.Get("Geologo").IsBlank() {
			fields["Geologo"] = domain.String(author)
		}

		rec, err := insert(ctx, sch, fields)
		if err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				skip(idx, findingMessages(verr.Findings)...)
				continue
			}
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			skip(idx, err.Error())
			continue
		}
		res.Imported++
		accepted = append(accepted, *rec)
	}
	return res, accepted, nil
}

// DryRunInserter checks each row against the rows it accepted before and
// stores nothing. Accepted rows get sequential ids.
func DryRunInserter() RowInserter {
	var accepted []domain.StoredRecord
	return func(_ context.Context, sch validation.Schema, fields domain.Fields) (*domain.StoredRecord, error) {
		record, err := validateNew(sch, fields, accepted)
		if err != nil {
			return nil, err
		}
		rec := domain.StoredRecord{ID: int64(len(accepted) + 1), Kind: sch.Kind, Fields: record}
		accepted = append(accepted, rec)
		return &rec, nil
	}
}

// findingMessages renders findings as "Field: message".
func findingMessages(findings []domain.Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Field+": "+f.Message)
	}
	return out
}

// validateNew runs the engine for a new row and turns findings into a
// *ValidationError.
func validateNew(sch validation.Schema, fields domain.Fields, history []domain.StoredRecord) (domain.Fields, error) {
	res, err := validation.Validate(sch.Kind, fields, history, 0)
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return nil, &ValidationError{Findings: res.Findings}
	}
	return res.Record, nil
}

// insertValidated runs lock, history, engine and insert for fields that are
// already attributed.
func (s *recordService) insertValidated(ctx context.Context, sch validation.Schema, fields domain.Fields) (*domain.StoredRecord, error) {
	unlock, err := s.lock(ctx, lockKey(sch, fields))
	if err != nil {
		return nil, err
	}
	defer unlock()

	history, err := s.repo.ListByBorehole(ctx, sch.Kind, sch.Borehole(fields))
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	record, err := validateNew(sch, fields, history)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, sch.Kind, record)
}
