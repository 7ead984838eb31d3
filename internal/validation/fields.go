package validation

import (
	"regexp"
	"strings"
	"time"

	"github.com/kmallmaperez/geocore/internal/domain"
)

const (
	msgRequired    = "required"
	msgInvalidDate = "invalid date, expected YYYY-MM-DD"
	msgInvalidTime = "invalid time, expected HH:MM"
)

var timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

func trimmed(v domain.Value) string { return strings.TrimSpace(v.Text()) }

// ValidateRequired reports every required column of s that is blank in f, in
// declaration order.
func ValidateRequired(s Schema, f domain.Fields) []domain.Finding {
	var out []domain.Finding
	for _, name := range s.Required {
		if f.Get(name).IsBlank() {
			out = append(out, domain.Finding{Field: name, Message: msgRequired})
		}
	}
	return out
}

// ValidateDates checks that every present date column parses.
func ValidateDates(f domain.Fields, names []string) []domain.Finding {
	var out []domain.Finding
	for _, name := range names {
		v := f.Get(name)
		if v.IsBlank() {
			continue
		}
		if _, ok := ParseDate(trimmed(v)); !ok {
			out = append(out, domain.Finding{Field: name, Message: msgInvalidDate})
		}
	}
	return out
}

// ValidateTimes checks that every present time column is 24h HH:MM.
func ValidateTimes(f domain.Fields, names []string) []domain.Finding {
	var out []domain.Finding
	for _, name := range names {
		v := f.Get(name)
		if v.IsBlank() {
			continue
		}
		if !timePattern.MatchString(v.Text()) {
			out = append(out, domain.Finding{Field: name, Message: msgInvalidTime})
		}
	}
	return out
}

// ParseDate accepts YYYY-MM-DD and full RFC 3339 timestamps.
func ParseDate(s string) (time.Time, bool) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// clockMinutes converts a valid HH:MM value into minutes past midnight.
func clockMinutes(v domain.Value) (int, bool) {
	m := timePattern.FindStringSubmatch(v.Text())
	if m == nil {
		return 0, false
	}
	h := int(m[1][0]-'0')*10 + int(m[1][1]-'0')
	mm := int(m[2][0]-'0')*10 + int(m[2][1]-'0')
	return h*60 + mm, true
}
