// Package validation is the record validation and derivation engine. It is a
// pure function of (kind, candidate record, history snapshot); every caller
// that needs a verdict on a record goes through Validate.
package validation

import (
	"github.com/kmallmaperez/geocore/internal/domain"
)

// Result is the engine's verdict on one candidate record.
type Result struct {
	Findings []domain.Finding `json:"findings"`
	Record   domain.Fields    `json:"record"`
}

// OK reports whether the record may be persisted.
func (r Result) OK() bool { return len(r.Findings) == 0 }

// Validate checks record against the rules of kind and against history, and
// returns every finding together with a copy of the record carrying all
// derivable fields. history may hold rows of other boreholes and the row being
// edited; both are excluded here. editID 0 means a new record.
//
// The only error is domain.ErrUnknownTableKind.
func Validate(kind domain.TableKind, record domain.Fields, history []domain.StoredRecord, editID int64) (Result, error) {
	s, err := SchemaFor(kind)
	if err != nil {
		return Result{}, err
	}

	out := record.Clone()
	for _, d := range s.Derived {
		delete(out, d)
	}
	same := HistoryFor(s, out, history, editID)

	findings := make([]domain.Finding, 0)
	findings = append(findings, ValidateRequired(s, out)...)

	if s.ShiftTable {
		day := checkPair(out, s.DayShift)
		night := checkPair(out, s.NightShift)
		findings = append(findings, day.findings...)
		findings = append(findings, night.findings...)
		findings = append(findings, checkShiftOverlap(s, day, night, same)...)
		deriveDrilling(out, day, night, same)
	}

	if s.Interval != nil {
		c := checkPair(out, *s.Interval)
		findings = append(findings, c.findings...)
		findings = append(findings, checkIntervalOverlap(c, same)...)
		if c.present && c.ok && s.AdvanceField != "" {
			out[s.AdvanceField] = domain.Number(Advance(c.iv.from, c.iv.to))
		}
	}

	if s.Kind == domain.KindStorms {
		findings = append(findings, deriveStorm(out)...)
	}

	findings = append(findings, ValidateDates(out, s.DateFields)...)
	findings = append(findings, ValidateTimes(out, s.TimeFields)...)

	return Result{Findings: findings, Record: out}, nil
}

// HistoryFor selects the rows of history that share candidate's borehole,
// skipping editID. A candidate without a borehole id has no history.
func HistoryFor(s Schema, candidate domain.Fields, history []domain.StoredRecord, editID int64) []domain.Fields {
	var bh string
	if s.BoreholeField != "" {
		bh = s.Borehole(candidate)
		if bh == "" {
			return nil
		}
	}
	out := make([]domain.Fields, 0, len(history))
	for _, r := range history {
		if editID != 0 && r.ID == editID {
			continue
		}
		if s.BoreholeField != "" && s.Borehole(r.Fields) != bh {
			continue
		}
		out = append(out, r.Fields)
	}
	return out
}
