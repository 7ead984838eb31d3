package validation

import (
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmallmaperez/geocore/internal/domain"
)

func TestSchemaFor_AllKinds(t *testing.T) {
	for _, k := range domain.AllTableKinds() {
		s, err := SchemaFor(k)
		require.NoError(t, err, k)
		assert.Equal(t, k, s.Kind)
		for _, r := range s.Required {
			assert.True(t, s.HasColumn(r), "%s: required %s is not a column", k, r)
		}
		for _, d := range s.Derived {
			assert.True(t, s.HasColumn(d), "%s: derived %s is not a column", k, d)
			assert.True(t, s.IsNumeric(d), "%s: derived %s is not numeric", k, d)
		}
		if s.BoreholeField != "" {
			assert.True(t, s.HasColumn(s.BoreholeField))
		}
	}
}

func TestSchemaFor_Unknown(t *testing.T) {
	_, err := SchemaFor("minas")
	assert.ErrorIs(t, err, domain.ErrUnknownTableKind)
}

func TestSchemaFor_ReturnsCopy(t *testing.T) {
	s := MustSchema(domain.KindRecovery)
	s.Required[0] = "changed"
	s.Interval.From = "changed"

	again := MustSchema(domain.KindRecovery)
	assert.Equal(t, "Fecha", again.Required[0])
	assert.Equal(t, "From", again.Interval.From)
}

func TestSchemaFor_Shapes(t *testing.T) {
	d := MustSchema(domain.KindDrilling)
	assert.True(t, d.ShiftTable)
	assert.Nil(t, d.Interval)
	assert.Equal(t, Pair{From: "From_Dia", To: "TO_Dia"}, d.DayShift)

	r := MustSchema(domain.KindReception)
	assert.Equal(t, "Metros", r.AdvanceField)
	assert.Equal(t, []string{"HORA"}, r.TimeFields)

	m := MustSchema(domain.KindSampling)
	assert.False(t, m.DerivesAdvance())

	b := MustSchema(domain.KindBatch)
	assert.Equal(t, "Sondaje", b.BoreholeField)
	assert.Equal(t, []string{"F_Envio", "F_Solicitud", "F_Resultados"}, b.DateFields)

	st := MustSchema(domain.KindStorms)
	assert.Equal(t, []string{"Desde", "Hasta"}, st.TimeFields)
	assert.Empty(t, st.BoreholeField)
}

// The typed variants and the registry must describe the same columns.
func TestSchemaMatchesVariants(t *testing.T) {
	for _, k := range domain.AllTableKinds() {
		v, err := domain.NewVariant(k)
		require.NoError(t, err)

		typ := reflect.TypeOf(v).Elem()
		var tags []string
		for i := 0; i < typ.NumField(); i++ {
			tags = append(tags, strings.Split(typ.Field(i).Tag.Get("json"), ",")[0])
		}
		cols := MustSchema(k).Columns
		sort.Strings(tags)
		sorted := append([]string(nil), cols...)
		sort.Strings(sorted)
		assert.Equal(t, sorted, tags, k)
	}
}
