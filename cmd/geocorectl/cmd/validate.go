package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kmallmaperez/geocore/internal/domain"
	"github.com/kmallmaperez/geocore/internal/service"
	"github.com/kmallmaperez/geocore/internal/validation"
)

func newValidateCmd() *cobra.Command {
	var (
		historyPath string
		editID      int64
	)
	c := &cobra.Command{
		Use:   "validate <table> <record.json|->",
		Short: "Validate one record against a history file",
		Long: `Validate runs the engine on one JSON record and prints the findings and the
derived record. --history takes a JSON array of stored rows, each with an "id".
The command fails when there is any finding.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			in, err := openInput(cmd, args[1])
			if err != nil {
				return err
			}
			defer in.Close()
			body, err := io.ReadAll(in)
			if err != nil {
				return err
			}
			record, err := domain.DecodeRecord(kind, body)
			if err != nil {
				return err
			}

			var history []domain.StoredRecord
			if historyPath != "" {
				if history, err = loadHistory(kind, historyPath); err != nil {
					return err
				}
			}

			res, err := validation.Validate(kind, record, history, editID)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.OK() {
				return fmt.Errorf("%d finding(s)", len(res.Findings))
			}
			return nil
		},
	}
	c.Flags().StringVar(&historyPath, "history", "", "JSON array of stored rows")
	c.Flags().Int64Var(&editID, "edit-id", 0, "id of the row being edited")
	return c
}

func loadHistory(kind domain.TableKind, path string) ([]domain.StoredRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("history %s: %w", filepath.Base(path), err)
	}
	out := make([]domain.StoredRecord, 0, len(raw))
	for i, r := range raw {
		var meta struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(r, &meta); err != nil {
			return nil, fmt.Errorf("history row %d: %w", i+1, err)
		}
		fields, err := domain.DecodeRecord(kind, r)
		if err != nil {
			return nil, fmt.Errorf("history row %d: %w", i+1, err)
		}
		out = append(out, domain.StoredRecord{ID: meta.ID, Kind: kind, Fields: fields})
	}
	return out, nil
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <table> <file.xlsx|file.csv>",
		Short: "Dry-run an import file",
		Long: `Check validates every row of a spreadsheet in order, each against the rows
accepted before it, and prints the same report an import would.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			f, err := openInput(cmd, args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			rows, err := service.ParseSheet(args[1], f)
			if err != nil {
				return err
			}

			res, _, err := service.ImportRows(cmd.Context(), kind, rows, "", service.DryRunInserter())
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if res.Skipped > 0 {
				return fmt.Errorf("%d row(s) rejected", res.Skipped)
			}
			return nil
		},
	}
}
