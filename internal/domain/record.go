package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// Fields maps column names to cells. Missing keys read as Absent.
type Fields map[string]Value

// Get returns the cell for name, Absent when missing.
func (f Fields) Get(name string) Value {
	if f == nil {
		return Absent
	}
	return f[name]
}

// Clone returns a shallow copy; Values are immutable so this is a full copy.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Names returns the keys in lexical order.
func (f Fields) Names() []string {
	names := make([]string, 0, len(f))
	for k := range f {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// StoredRecord is a persisted row.
type StoredRecord struct {
	ID        int64
	Kind      TableKind
	Fields    Fields
	CreatedAt time.Time
}

// MarshalJSON flattens the row into {"id": ..., <columns>...}, the shape the
// front end consumes.
func (r StoredRecord) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		m[k] = v
	}
	m["id"] = r.ID
	return json.Marshal(m)
}

// Finding is one field-level validation problem.
type Finding struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
