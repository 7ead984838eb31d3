package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmallmaperez/geocore/internal/domain"
)

func rec(kv ...any) domain.Fields {
	f := domain.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		k := kv[i].(string)
		switch v := kv[i+1].(type) {
		case string:
			f[k] = domain.String(v)
		case int:
			f[k] = domain.Number(float64(v))
		case float64:
			f[k] = domain.Number(v)
		case nil:
			f[k] = domain.Absent
		}
	}
	return f
}

func stored(id int64, f domain.Fields) domain.StoredRecord {
	return domain.StoredRecord{ID: id, Fields: f}
}

func mustValidate(t *testing.T, kind domain.TableKind, f domain.Fields, hist []domain.StoredRecord, editID int64) Result {
	t.Helper()
	res, err := Validate(kind, f, hist, editID)
	require.NoError(t, err)
	return res
}

func numberField(t *testing.T, f domain.Fields, name string) float64 {
	t.Helper()
	v, ok := f[name]
	require.True(t, ok, "field %s not set", name)
	require.True(t, v.IsNumber(), "field %s is not numeric", name)
	n, _ := v.Float()
	return n
}

func TestValidate_UnknownKind(t *testing.T) {
	_, err := Validate("nope", domain.Fields{}, nil, 0)
	assert.ErrorIs(t, err, domain.ErrUnknownTableKind)
}

func TestValidate_RequiredOrder(t *testing.T) {
	res := mustValidate(t, domain.KindReception, rec("DDHID", "  "), nil, 0)
	require.Len(t, res.Findings, 4)
	assert.Equal(t, []domain.Finding{
		{Field: "Fecha", Message: "required"},
		{Field: "HORA", Message: "required"},
		{Field: "DDHID", Message: "required"},
		{Field: "CAJAS", Message: "required"},
	}, res.Findings)
	assert.False(t, res.OK())
}

func TestValidate_AdvanceIsDifference(t *testing.T) {
	cases := []struct{ from, to, want float64 }{
		{0, 1.5, 1.5},
		{10.1, 12.35, 2.25},
		{7, 7, 0},
		{100, 250.333, 150.33},
	}
	for _, c := range cases {
		res := mustValidate(t, domain.KindRecovery,
			rec("Fecha", "2024-03-01", "DDHID", "H1", "From", c.from, "To", c.to), nil, 0)
		assert.Empty(t, res.Findings)
		assert.Equal(t, c.want, numberField(t, res.Record, "Avance"))
	}
}

func TestValidate_AdvanceUnsetWhenPartial(t *testing.T) {
	res := mustValidate(t, domain.KindRecovery,
		rec("Fecha", "2024-03-01", "DDHID", "H1", "From", 4, "Avance", 99), nil, 0)
	assert.Empty(t, res.Findings)
	_, ok := res.Record["Avance"]
	assert.False(t, ok, "Avance must stay unset when To is missing")
}

func TestValidate_OrderingFinding(t *testing.T) {
	res := mustValidate(t, domain.KindRecovery,
		rec("Fecha", "2024-03-01", "DDHID", "H1", "From", 20, "To", 10), nil, 0)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, domain.Finding{Field: "To", Message: "to must be ≥ from"}, res.Findings[0])
	_, ok := res.Record["Avance"]
	assert.False(t, ok)
}

func TestValidate_NumericAndNegative(t *testing.T) {
	res := mustValidate(t, domain.KindCutting,
		rec("Fecha", "2024-03-01", "DDHID", "H1", "CAJAS", 2, "MAQUINAS", 1, "DE", "12abc", "A", 14), nil, 0)
	assert.Equal(t, []domain.Finding{{Field: "DE", Message: "must be numeric"}}, res.Findings)

	res = mustValidate(t, domain.KindCutting,
		rec("Fecha", "2024-03-01", "DDHID", "H1", "CAJAS", 2, "MAQUINAS", 1, "DE", -1, "A", 14), nil, 0)
	assert.Equal(t, []domain.Finding{{Field: "DE", Message: "cannot be negative"}}, res.Findings)
	_, ok := res.Record["AVANCE"]
	assert.False(t, ok)
}

func TestValidate_NonFiniteIsNotNumeric(t *testing.T) {
	hist := []domain.StoredRecord{stored(1, rec("Fecha", "2024-02-01", "DDHID", "H1", "From", 100, "To", 200))}
	cases := []struct {
		from, to  string
		badFields []string
	}{
		{"NaN", "5", []string{"From"}},
		{"0", "Inf", []string{"To"}},
		{"+Inf", "infinity", []string{"From", "To"}},
		{"0", "1e400", []string{"To"}},
	}
	for _, c := range cases {
		res := mustValidate(t, domain.KindRecovery,
			rec("Fecha", "2024-03-01", "DDHID", "H1", "From", c.from, "To", c.to), hist, 0)
		var want []domain.Finding
		for _, f := range c.badFields {
			want = append(want, domain.Finding{Field: f, Message: "must be numeric"})
		}
		assert.Equal(t, want, res.Findings, "%s–%s", c.from, c.to)
		_, ok := res.Record["Avance"]
		assert.False(t, ok)
		_, err := json.Marshal(res.Record)
		assert.NoError(t, err)
	}
}

func TestValidate_NumericStringsAccepted(t *testing.T) {
	res := mustValidate(t, domain.KindCutting,
		rec("Fecha", "2024-03-01", "DDHID", "H1", "CAJAS", "2", "MAQUINAS", "1", "DE", " 3.5 ", "A", "8"), nil, 0)
	assert.Empty(t, res.Findings)
	assert.Equal(t, 4.5, numberField(t, res.Record, "AVANCE"))
}

func TestValidate_OverlapIffIntersecting(t *testing.T) {
	hist := []domain.StoredRecord{stored(1, rec("DDHID", "H1", "From", 10, "To", 20))}
	cases := []struct {
		name     string
		from, to float64
		overlap  bool
	}{
		{"inside", 12, 18, true},
		{"covering", 5, 25, true},
		{"left partial", 5, 15, true},
		{"right partial", 15, 25, true},
		{"touching left", 5, 10, false},
		{"touching right", 20, 30, false},
		{"disjoint", 30, 40, false},
		{"degenerate inside", 15, 15, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res := mustValidate(t, domain.KindRecovery,
				rec("Fecha", "2024-03-01", "DDHID", "H1", "From", c.from, "To", c.to), hist, 0)
			if c.overlap {
				require.Len(t, res.Findings, 1)
				assert.Equal(t, "From", res.Findings[0].Field)
				assert.Equal(t, "overlaps 10–20", res.Findings[0].Message)
			} else {
				assert.Empty(t, res.Findings)
			}
		})
	}
}

func TestValidate_RecoveryOverlapEndToEnd(t *testing.T) {
	hist := []domain.StoredRecord{stored(7, rec("Fecha", "2024-02-28", "DDHID", "DDH-01", "From", 10, "To", 20, "Avance", 10))}
	res := mustValidate(t, domain.KindRecovery,
		rec("Fecha", "2024-03-01", "DDHID", "DDH-01", "From", 5, "To", 15), hist, 0)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "From", res.Findings[0].Field)
	assert.Equal(t, 10.0, numberField(t, res.Record, "Avance"))
}

func TestValidate_DegenerateHistoryIgnored(t *testing.T) {
	hist := []domain.StoredRecord{
		stored(1, rec("DDHID", "H1", "From", 10, "To", 10)),
		stored(2, rec("DDHID", "H1", "From", "x", "To", 40)),
	}
	res := mustValidate(t, domain.KindRecovery,
		rec("Fecha", "2024-03-01", "DDHID", "H1", "From", 0, "To", 50), hist, 0)
	assert.Empty(t, res.Findings)
}

func TestValidate_HistoryPartitionAndEdit(t *testing.T) {
	hist := []domain.StoredRecord{
		stored(1, rec("DDHID", "H2", "From", 0, "To", 100)),
		stored(2, rec("DDHID", "H1", "From", 0, "To", 10)),
	}
	candidate := rec("Fecha", "2024-03-01", "DDHID", "H1", "From", 0, "To", 12)

	res := mustValidate(t, domain.KindRecovery, candidate, hist, 0)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "overlaps 0–10", res.Findings[0].Message)

	res = mustValidate(t, domain.KindRecovery, candidate, hist, 2)
	assert.Empty(t, res.Findings)
}

func TestValidate_FirstConflictWins(t *testing.T) {
	hist := []domain.StoredRecord{
		stored(1, rec("DDHID", "H1", "From", 30, "To", 40)),
		stored(2, rec("DDHID", "H1", "From", 10, "To", 20)),
	}
	res := mustValidate(t, domain.KindRecovery,
		rec("Fecha", "2024-03-01", "DDHID", "H1", "From", 15, "To", 35), hist, 0)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "overlaps 30–40", res.Findings[0].Message)
}

func TestValidate_ReceptionZeroMetres(t *testing.T) {
	res := mustValidate(t, domain.KindReception,
		rec("Fecha", "2024-03-01", "HORA", "08:30", "DDHID", "DDH-09", "CAJAS", 3, "FROM", 10, "TO", 10), nil, 0)
	assert.Empty(t, res.Findings)
	assert.Equal(t, 0.0, numberField(t, res.Record, "Metros"))
}

func TestValidate_SamplingHasNoAdvance(t *testing.T) {
	res := mustValidate(t, domain.KindSampling,
		rec("Fecha", "2024-03-01", "DDHID", "H1", "DE", 1, "HASTA", 3, "MUESTRAS", 2), nil, 0)
	assert.Empty(t, res.Findings)
	_, ok := res.Record["Avance"]
	assert.False(t, ok)
}

func drilling(kv ...any) domain.Fields {
	return rec(append([]any{"DDHID", "H1", "Fecha", "2024-03-01"}, kv...)...)
}

func TestValidate_DrillingTouchingShifts(t *testing.T) {
	res := mustValidate(t, domain.KindDrilling,
		drilling("From_Dia", 8, "TO_Dia", 12, "From_Noche", 12, "To_Noche", 16), nil, 0)
	assert.Empty(t, res.Findings)
	assert.Equal(t, 4.0, numberField(t, res.Record, "Turno_Dia"))
	assert.Equal(t, 4.0, numberField(t, res.Record, "Turno_Noche"))
	assert.Equal(t, 8.0, numberField(t, res.Record, "Total_Dia"))
	assert.Equal(t, 8.0, numberField(t, res.Record, "Acumulado"))
}

func TestValidate_DrillingCrossShiftOverlap(t *testing.T) {
	res := mustValidate(t, domain.KindDrilling,
		drilling("From_Dia", 8, "TO_Dia", 13, "From_Noche", 12, "To_Noche", 16), nil, 0)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "From_Noche", res.Findings[0].Field)
	assert.Equal(t, "overlaps day shift 8–13", res.Findings[0].Message)
	// derived regardless of the overlap
	assert.Equal(t, 9.0, numberField(t, res.Record, "Total_Dia"))
}

func TestValidate_DrillingUnloggedShiftCountsZero(t *testing.T) {
	res := mustValidate(t, domain.KindDrilling, drilling("From_Dia", 0, "TO_Dia", 5.25), nil, 0)
	assert.Empty(t, res.Findings)
	assert.Equal(t, 0.0, numberField(t, res.Record, "Turno_Noche"))
	assert.Equal(t, 5.25, numberField(t, res.Record, "Total_Dia"))

	res = mustValidate(t, domain.KindDrilling, drilling(), nil, 0)
	assert.Empty(t, res.Findings)
	assert.Equal(t, 0.0, numberField(t, res.Record, "Total_Dia"))
}

func TestValidate_DrillingNonFiniteShift(t *testing.T) {
	res := mustValidate(t, domain.KindDrilling, drilling("From_Dia", "NaN", "TO_Dia", "NaN", "From_Noche", 0, "To_Noche", "Inf"), nil, 0)
	assert.Equal(t, []domain.Finding{
		{Field: "From_Dia", Message: "must be numeric"},
		{Field: "TO_Dia", Message: "must be numeric"},
		{Field: "To_Noche", Message: "must be numeric"},
	}, res.Findings)
	assert.Equal(t, 0.0, numberField(t, res.Record, "Total_Dia"))
	_, err := json.Marshal(res.Record)
	assert.NoError(t, err)
}

func TestValidate_DrillingOrderingSkipsOverlap(t *testing.T) {
	res := mustValidate(t, domain.KindDrilling,
		drilling("From_Dia", 12, "TO_Dia", 8, "From_Noche", 9, "To_Noche", 11), nil, 0)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, domain.Finding{Field: "TO_Dia", Message: "to must be ≥ from"}, res.Findings[0])
	assert.Equal(t, 0.0, numberField(t, res.Record, "Turno_Dia"))
	assert.Equal(t, 2.0, numberField(t, res.Record, "Total_Dia"))
}

func TestValidate_DrillingHistoryFourWay(t *testing.T) {
	hist := []domain.StoredRecord{
		stored(1, drilling("From_Dia", 0, "TO_Dia", 10, "From_Noche", 10, "To_Noche", 20, "Total_Dia", 20)),
	}
	cases := []struct {
		name  string
		f     domain.Fields
		field string
		msg   string
	}{
		{"day vs day", drilling("From_Dia", 5, "TO_Dia", 8), "From_Dia", "overlaps day shift 0–10"},
		{"night vs night", drilling("From_Noche", 15, "To_Noche", 25), "From_Noche", "overlaps night shift 10–20"},
		{"day vs night", drilling("From_Dia", 18, "TO_Dia", 22), "From_Dia", "overlaps night shift 10–20"},
		{"night vs day", drilling("From_Noche", 2, "To_Noche", 4), "From_Noche", "overlaps day shift 0–10"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res := mustValidate(t, domain.KindDrilling, c.f, hist, 0)
			require.Len(t, res.Findings, 1)
			assert.Equal(t, c.field, res.Findings[0].Field)
			assert.Equal(t, c.msg, res.Findings[0].Message)
		})
	}

	res := mustValidate(t, domain.KindDrilling,
		drilling("From_Dia", 20, "TO_Dia", 30, "From_Noche", 30, "To_Noche", 35.5), hist, 0)
	assert.Empty(t, res.Findings)
	assert.Equal(t, 35.5, numberField(t, res.Record, "Acumulado"))
}

func TestValidate_AcumuladoMonotonic(t *testing.T) {
	var hist []domain.StoredRecord
	prev := 0.0
	steps := [][2]float64{{0, 12.5}, {12.5, 20}, {20, 20}, {20, 33.33}}
	for i, s := range steps {
		res := mustValidate(t, domain.KindDrilling, drilling("From_Dia", s[0], "TO_Dia", s[1]), hist, 0)
		require.Empty(t, res.Findings)
		acc := numberField(t, res.Record, "Acumulado")
		total := numberField(t, res.Record, "Total_Dia")
		assert.Equal(t, Round2(prev+total), acc)
		assert.GreaterOrEqual(t, acc, prev)
		prev = acc
		hist = append(hist, stored(int64(i+1), res.Record))
	}
	assert.Equal(t, 33.33, prev)
}

func TestValidate_DerivedInputsDiscarded(t *testing.T) {
	res := mustValidate(t, domain.KindDrilling,
		drilling("Turno_Dia", 100, "Total_Dia", 100, "Acumulado", 100), nil, 0)
	assert.Equal(t, 0.0, numberField(t, res.Record, "Turno_Dia"))
	assert.Equal(t, 0.0, numberField(t, res.Record, "Acumulado"))
}

func TestValidate_TimeFormats(t *testing.T) {
	for _, bad := range []string{"24:00", "13:75", "9:30", "12-30", "ab:cd"} {
		res := mustValidate(t, domain.KindReception,
			rec("Fecha", "2024-03-01", "HORA", bad, "DDHID", "H1", "CAJAS", 1), nil, 0)
		assert.Equal(t, []domain.Finding{{Field: "HORA", Message: "invalid time, expected HH:MM"}}, res.Findings, bad)
	}
	for _, good := range []string{"00:00", "23:59", "07:05"} {
		res := mustValidate(t, domain.KindReception,
			rec("Fecha", "2024-03-01", "HORA", good, "DDHID", "H1", "CAJAS", 1), nil, 0)
		assert.Empty(t, res.Findings, good)
	}
}

func TestValidate_DateFormats(t *testing.T) {
	res := mustValidate(t, domain.KindBatch,
		rec("Envio", "E1", "Batch", "B1", "Sondaje", "H1", "F_Envio", "2024-02-30", "F_Solicitud", "2024-03-01", "F_Resultados", "ayer"), nil, 0)
	assert.Equal(t, []domain.Finding{
		{Field: "F_Envio", Message: "invalid date, expected YYYY-MM-DD"},
		{Field: "F_Resultados", Message: "invalid date, expected YYYY-MM-DD"},
	}, res.Findings)
}

func TestValidate_Storm(t *testing.T) {
	res := mustValidate(t, domain.KindStorms, rec("Fecha", "2024-03-01", "Desde", "13:10", "Hasta", "15:00"), nil, 0)
	assert.Empty(t, res.Findings)
	assert.Equal(t, 110.0, numberField(t, res.Record, "Minutos"))
	assert.Equal(t, 1.83, numberField(t, res.Record, "Horas"))
	assert.Equal(t, 110.0, numberField(t, res.Record, "TOTAL"))

	res = mustValidate(t, domain.KindStorms, rec("Fecha", "2024-03-01", "Desde", "22:00", "Hasta", "02:00"), nil, 0)
	assert.Equal(t, []domain.Finding{{Field: "Hasta", Message: "must be later than Desde"}}, res.Findings)
	for _, k := range []string{"Minutos", "Horas", "TOTAL"} {
		_, ok := res.Record[k]
		assert.False(t, ok, k)
	}
}

func TestValidate_ExhaustiveCollection(t *testing.T) {
	hist := []domain.StoredRecord{stored(1, rec("DDHID", "H1", "FROM", 0, "TO", 10))}
	res := mustValidate(t, domain.KindReception,
		rec("Fecha", "01/03/2024", "HORA", "25:00", "DDHID", "H1", "FROM", 5, "TO", 8), hist, 0)
	assert.Equal(t, []domain.Finding{
		{Field: "CAJAS", Message: "required"},
		{Field: "FROM", Message: "overlaps 0–10"},
		{Field: "Fecha", Message: "invalid date, expected YYYY-MM-DD"},
		{Field: "HORA", Message: "invalid time, expected HH:MM"},
	}, res.Findings)
	assert.Equal(t, 3.0, numberField(t, res.Record, "Metros"))
}

func TestValidate_DoesNotMutateInputs(t *testing.T) {
	in := drilling("From_Dia", 1, "TO_Dia", 2, "Acumulado", 50)
	h := drilling("From_Dia", 10, "TO_Dia", 12, "Total_Dia", 2)
	hist := []domain.StoredRecord{stored(1, h)}

	_ = mustValidate(t, domain.KindDrilling, in, hist, 0)
	assert.Equal(t, 50.0, numberField(t, in, "Acumulado"))
	_, ok := in["Turno_Dia"]
	assert.False(t, ok)
	assert.Len(t, h, 5)
}

func TestValidate_SameInputsSameOutput(t *testing.T) {
	hist := []domain.StoredRecord{stored(3, rec("DDHID", "H1", "DE", 0, "A", 4))}
	f := rec("Fecha", "2024-03-01", "DDHID", "H1", "CAJAS", 1, "MAQUINAS", 2, "DE", 4, "A", 6.456)
	a := mustValidate(t, domain.KindCutting, f, hist, 0)
	b := mustValidate(t, domain.KindCutting, f, hist, 0)
	assert.Equal(t, a, b)
	assert.Equal(t, 2.46, numberField(t, a.Record, "AVANCE"))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 0.3, Round2(0.1+0.2))
	assert.Equal(t, 2.25, Round2(12.35-10.1))
	assert.Equal(t, 1.0, Round2(0.999))
	assert.Equal(t, 0.0, Round2(0))
}
