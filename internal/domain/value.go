package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type valueKind uint8

const (
	valueAbsent valueKind = iota
	valueString
	valueNumber
)

// Value is a single record cell: absent, a string, or a number. The zero
// Value is absent.
type Value struct {
	kind valueKind
	s    string
	n    float64
}

// Absent is the empty cell.
var Absent = Value{}

// String returns a string cell.
func String(s string) Value { return Value{kind: valueString, s: s} }

// Number returns a numeric cell.
func Number(n float64) Value {
	if n == 0 {
		n = 0 // normalise -0
	}
	return Value{kind: valueNumber, n: n}
}

// IsAbsent reports a missing or null cell.
func (v Value) IsAbsent() bool { return v.kind == valueAbsent }

// IsNumber reports a cell that was supplied as a JSON number.
func (v Value) IsNumber() bool { return v.kind == valueNumber }

// IsBlank reports a cell that is absent or a whitespace-only string.
func (v Value) IsBlank() bool {
	switch v.kind {
	case valueAbsent:
		return true
	case valueString:
		return strings.TrimSpace(v.s) == ""
	default:
		return false
	}
}

// Text renders the cell as text. Numbers use the shortest decimal form.
func (v Value) Text() string {
	switch v.kind {
	case valueString:
		return v.s
	case valueNumber:
		return FormatNumber(v.n)
	default:
		return ""
	}
}

// Float parses the cell as a finite number. Strings are trimmed and must
// parse in full; NaN, infinities and absent cells never parse.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case valueNumber:
		return v.n, finite(v.n)
	case valueString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil || !finite(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// Equal compares kind and content.
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && v.s == o.s && v.n == o.n
}

func (v Value) String() string { return v.Text() }

// MarshalJSON encodes absent as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case valueString:
		return json.Marshal(v.s)
	case valueNumber:
		if !finite(v.n) {
			return nil, fmt.Errorf("non-finite number %s", FormatNumber(v.n))
		}
		return []byte(FormatNumber(v.n)), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts null, strings, numbers and booleans.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*v = Absent
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = String(s)
		return nil
	case 't', 'f':
		var x bool
		if err := json.Unmarshal(b, &x); err != nil {
			return err
		}
		*v = String(strconv.FormatBool(x))
		return nil
	case '{', '[':
		return fmt.Errorf("unsupported cell value %s", truncate(string(b), 32))
	default:
		f, err := strconv.ParseFloat(string(b), 64)
		if err != nil || !finite(f) {
			return fmt.Errorf("invalid number %s", truncate(string(b), 32))
		}
		*v = Number(f)
		return nil
	}
}

// FormatNumber renders f in its shortest round-tripping decimal form.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
