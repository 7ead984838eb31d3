package service

import (
	"strconv"
	"strings"

	"github.com/kmallmaperez/geocore/internal/domain"
)

func trimmedText(v domain.Value) string { return strings.TrimSpace(v.Text()) }

// round1 rounds to one decimal the way the summary tables display metres.
func round1(x float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 1, 64), 64)
	if err != nil {
		return x
	}
	return r
}

// dateKey returns the YYYY-MM-DD prefix of a date cell.
func dateKey(v domain.Value) string {
	s := trimmedText(v)
	if len(s) > 10 {
		s = s[:10]
	}
	return s
}
