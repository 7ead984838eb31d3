package domain

import "time"

// Borehole progress states shown on the summary.
const (
	StatusPending    = "Pendiente"
	StatusInProgress = "En Proceso"
	StatusCompleted  = "Completado"
)

// StatusOverride pins a borehole's status regardless of drilled metres.
type StatusOverride struct {
	DDHID     string    `json:"DDHID"`
	Status    string    `json:"ESTADO"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidOverrideStatus reports whether s may be set manually.
func ValidOverrideStatus(s string) bool {
	return s == StatusInProgress || s == StatusCompleted
}
