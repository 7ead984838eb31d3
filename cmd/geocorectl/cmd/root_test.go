package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestTables(t *testing.T) {
	out, err := run(t, "", "tables")
	require.NoError(t, err)
	assert.Contains(t, out, "perforacion")
	assert.Contains(t, out, "Tormentas Eléctricas")
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 12)
}

func TestSchema(t *testing.T) {
	out, err := run(t, "", "schema", "recepcion")
	require.NoError(t, err)

	var v schemaView
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, "recepcion", v.Table)
	assert.Equal(t, []string{"Fecha", "HORA", "DDHID", "CAJAS"}, v.Required)
	assert.Equal(t, "Metros", v.Advance)
	require.NotNil(t, v.Interval)
	assert.Equal(t, "FROM", v.Interval.From)

	_, err = run(t, "", "schema", "nope")
	assert.Error(t, err)
}

func TestValidate_DerivesFromStdin(t *testing.T) {
	out, err := run(t, `{"Fecha":"2024-03-01","DDHID":"H1","From":0,"To":1.5}`,
		"validate", "recuperacion", "-")
	require.NoError(t, err)

	var res struct {
		Findings []map[string]string `json:"findings"`
		Record   map[string]any      `json:"record"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Empty(t, res.Findings)
	assert.Equal(t, 1.5, res.Record["Avance"])
}

func TestValidate_OverlapWithHistory(t *testing.T) {
	hist := writeTemp(t, "hist.json", `[{"id":1,"Fecha":"2024-03-01","DDHID":"H1","From":0,"To":10}]`)
	rec := writeTemp(t, "rec.json", `{"Fecha":"2024-03-02","DDHID":"H1","From":5,"To":12}`)

	out, err := run(t, "", "validate", "recuperacion", rec, "--history", hist)
	require.Error(t, err)
	assert.Contains(t, out, `"field": "From"`)

	// Editing row 1 itself is not an overlap.
	_, err = run(t, "", "validate", "recuperacion", rec, "--history", hist, "--edit-id", "1")
	assert.NoError(t, err)
}

func TestCheck_CSV(t *testing.T) {
	csv := writeTemp(t, "rec.csv", "Fecha,DDHID,From,To\n"+
		"2024-03-01,H1,0,10\n"+
		"2024-03-02,H1,5,12\n"+
		"2024-03-02,H2,5,12\n")

	out, err := run(t, "", "check", "recuperacion", csv)
	require.Error(t, err)

	var res struct {
		Imported int `json:"imported"`
		Skipped  int `json:"skipped"`
		Errors   []struct {
			Row      int      `json:"row"`
			Messages []string `json:"messages"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 2, res.Errors[0].Row)
	assert.True(t, strings.HasPrefix(res.Errors[0].Messages[0], "From: "))
}
