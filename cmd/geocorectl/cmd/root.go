// Package cmd implements geocorectl, an offline front end to the validation
// engine.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kmallmaperez/geocore/internal/domain"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "geocorectl",
		Short: "GeoCore drilling records toolkit",
		Long: `geocorectl runs the GeoCore validation engine without a server.

Commands:
  tables    - list the table kinds
  schema    - show the columns and rules of a table
  validate  - validate one record against a history file
  check     - dry-run an import file`,
		SilenceUsage: true,
	}
	root.AddCommand(newTablesCmd(), newSchemaCmd(), newValidateCmd(), newCheckCmd())
	return root
}

func Execute() error {
	return rootCmd.Execute()
}

func parseKind(name string) (domain.TableKind, error) {
	kind, err := domain.ParseTableKind(name)
	if err != nil {
		return "", fmt.Errorf("%w (run `geocorectl tables`)", err)
	}
	return kind, nil
}

// openInput opens path, or stdin for "-".
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(path)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
