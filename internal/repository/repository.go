package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate")
)

//go:embed schema.sql
var schemaSQL string

// SchemaSQL returns the embedded schema script.
func SchemaSQL() string { return schemaSQL }

// Statements splits a script into executable statements, dropping comments.
func Statements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		var lines []string
		for _, l := range strings.Split(stmt, "\n") {
			if strings.HasPrefix(strings.TrimSpace(l), "--") {
				continue
			}
			lines = append(lines, l)
		}
		s := strings.TrimSpace(strings.Join(lines, "\n"))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ApplySchema runs the embedded schema; every statement is idempotent.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range Statements(schemaSQL) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
