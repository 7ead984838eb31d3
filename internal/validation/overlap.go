package validation

import (
	"fmt"

	"github.com/kmallmaperez/geocore/internal/domain"
)

const (
	msgNotNumeric = "must be numeric"
	msgNegative   = "cannot be negative"
	msgOrder      = "to must be ≥ from"
)

// interval is a half-open depth range [from, to).
type interval struct {
	from, to float64
}

func (iv interval) degenerate() bool { return !(iv.from < iv.to) }

func (iv interval) overlaps(o interval) bool {
	if iv.degenerate() || o.degenerate() {
		return false
	}
	return iv.from < o.to && iv.to > o.from
}

func (iv interval) String() string {
	return domain.FormatNumber(iv.from) + "–" + domain.FormatNumber(iv.to)
}

// pairCheck is the outcome of the ordering checks on one from/to pair.
type pairCheck struct {
	pair     Pair
	present  bool // both ends supplied
	ok       bool // no ordering finding
	iv       interval
	findings []domain.Finding
}

// checkPair runs the ordering part of the pair state machine: absent, numeric,
// negative, from > to.
func checkPair(f domain.Fields, p Pair) pairCheck {
	c := pairCheck{pair: p, ok: true}
	fv, tv := f.Get(p.From), f.Get(p.To)
	if fv.IsBlank() || tv.IsBlank() {
		return c
	}
	c.present = true

	from, okF := fv.Float()
	to, okT := tv.Float()
	if !okF || !okT {
		c.ok = false
		if !okF {
			c.findings = append(c.findings, domain.Finding{Field: p.From, Message: msgNotNumeric})
		}
		if !okT {
			c.findings = append(c.findings, domain.Finding{Field: p.To, Message: msgNotNumeric})
		}
		return c
	}
	if from < 0 {
		c.ok = false
		c.findings = append(c.findings, domain.Finding{Field: p.From, Message: msgNegative})
		return c
	}
	if from > to {
		c.ok = false
		c.findings = append(c.findings, domain.Finding{Field: p.To, Message: msgOrder})
		return c
	}
	c.iv = interval{from: from, to: to}
	return c
}

// storedInterval reads p from a history record. Only well-formed, non-degenerate
// intervals take part in overlap scans.
func storedInterval(f domain.Fields, p Pair) (interval, bool) {
	from, ok1 := f.Get(p.From).Float()
	to, ok2 := f.Get(p.To).Float()
	if !ok1 || !ok2 || !(from < to) {
		return interval{}, false
	}
	return interval{from: from, to: to}, true
}

// checkIntervalOverlap scans history in order and reports the first record
// whose p interval intersects c.
func checkIntervalOverlap(c pairCheck, history []domain.Fields) []domain.Finding {
	if !c.present || !c.ok || c.iv.degenerate() {
		return nil
	}
	for _, h := range history {
		hv, ok := storedInterval(h, c.pair)
		if ok && c.iv.overlaps(hv) {
			return []domain.Finding{{Field: c.pair.From, Message: "overlaps " + hv.String()}}
		}
	}
	return nil
}

type shiftComparison struct {
	mine   pairCheck
	theirs Pair
	label  string
}

// checkShiftOverlap is the drilling four-way check. It runs only when both
// shifts passed their ordering checks.
func checkShiftOverlap(s Schema, day, night pairCheck, history []domain.Fields) []domain.Finding {
	if !day.ok || !night.ok {
		return nil
	}

	if day.present && night.present && day.iv.overlaps(night.iv) {
		return []domain.Finding{{
			Field:   s.NightShift.From,
			Message: fmt.Sprintf("overlaps day shift %s", day.iv),
		}}
	}

	comparisons := []shiftComparison{
		{mine: day, theirs: s.DayShift, label: "day"},
		{mine: night, theirs: s.NightShift, label: "night"},
		{mine: day, theirs: s.NightShift, label: "night"},
		{mine: night, theirs: s.DayShift, label: "day"},
	}
	for _, h := range history {
		for _, p := range comparisons {
			if !p.mine.present || p.mine.iv.degenerate() {
				continue
			}
			hv, ok := storedInterval(h, p.theirs)
			if ok && p.mine.iv.overlaps(hv) {
				return []domain.Finding{{
					Field:   p.mine.pair.From,
					Message: fmt.Sprintf("overlaps %s shift %s", p.label, hv),
				}}
			}
		}
	}
	return nil
}
