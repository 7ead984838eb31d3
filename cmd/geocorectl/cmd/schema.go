package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kmallmaperez/geocore/internal/domain"
	"github.com/kmallmaperez/geocore/internal/validation"
)

func newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the table kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, k := range domain.AllTableKinds() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-18s %s\n", k, k.Label())
			}
			return nil
		},
	}
}

type schemaView struct {
	Table    string            `json:"table"`
	Label    string            `json:"label"`
	Columns  []string          `json:"columns"`
	Required []string          `json:"required"`
	Borehole string            `json:"borehole,omitempty"`
	Interval *validation.Pair  `json:"interval,omitempty"`
	Advance  string            `json:"advance,omitempty"`
	Shifts   []validation.Pair `json:"shifts,omitempty"`
	Dates    []string          `json:"dates,omitempty"`
	Times    []string          `json:"times,omitempty"`
	Derived  []string          `json:"derived,omitempty"`
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <table>",
		Short: "Show the columns and rules of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			s, err := validation.SchemaFor(kind)
			if err != nil {
				return err
			}
			v := schemaView{
				Table:    string(kind),
				Label:    kind.Label(),
				Columns:  s.Columns,
				Required: s.Required,
				Borehole: s.BoreholeField,
				Interval: s.Interval,
				Advance:  s.AdvanceField,
				Dates:    s.DateFields,
				Times:    s.TimeFields,
				Derived:  s.Derived,
			}
			if s.ShiftTable {
				v.Shifts = []validation.Pair{s.DayShift, s.NightShift}
			}
			return printJSON(cmd.OutOrStdout(), v)
		},
	}
}
