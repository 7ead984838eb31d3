package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRecord_KnownColumns(t *testing.T) {
	f, err := DecodeRecord(KindShipments, []byte(`{"id":4,"Fecha":"2024-03-01","Envio_N":12,"Total_muestras":"40","Geologo":null}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Envio_N", "Fecha", "Total_muestras"}, f.Names())
	assert.Equal(t, Number(12), f["Envio_N"])
}

func TestDecodeRecord_RejectsForeignColumn(t *testing.T) {
	_, err := DecodeRecord(KindShipments, []byte(`{"Fecha":"2024-03-01","Turno_Dia":4}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Turno_Dia")
}

func TestDecodeRecord_UnknownKind(t *testing.T) {
	_, err := DecodeRecord("nope", []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownTableKind)
}

func TestDecodeRecordMap(t *testing.T) {
	f, err := DecodeRecordMap(KindStorms, map[string]any{"Fecha": "2024-03-01", "Desde": "10:00", "Hasta": "10:30"})
	require.NoError(t, err)
	assert.Len(t, f, 3)
}

func TestVariantOf(t *testing.T) {
	v, err := VariantOf(KindDrilling, Fields{"DDHID": String("H1"), "From_Dia": Number(3)})
	require.NoError(t, err)
	d, ok := v.(*Drilling)
	require.True(t, ok)
	assert.Equal(t, "H1", d.DDHID.Text())
	assert.True(t, d.ToDia.IsAbsent())
	assert.Equal(t, KindDrilling, d.Kind())
}

func TestParseTableKind(t *testing.T) {
	k, err := ParseTableKind("tormentas")
	require.NoError(t, err)
	assert.Equal(t, KindStorms, k)
	assert.Equal(t, "Tormentas Eléctricas", k.Label())

	_, err = ParseTableKind("Tormentas")
	assert.ErrorIs(t, err, ErrUnknownTableKind)
	assert.Len(t, AllTableKinds(), 12)
}

func TestUser_CanWrite(t *testing.T) {
	admin := User{Role: RoleAdmin}
	assert.True(t, admin.CanWrite(KindBatch))

	u := User{Role: RoleUser, Tables: []string{"perforacion"}}
	assert.True(t, u.CanWrite(KindDrilling))
	assert.False(t, u.CanWrite(KindBatch))

	all := User{Role: RoleUser, Tables: []string{AllTables}}
	assert.True(t, all.CanWrite(KindBatch))

	assert.Equal(t, []string{AllTables}, NormalizeTables(RoleSupervisor, []string{"corte"}))
	assert.Equal(t, []string{}, NormalizeTables(RoleUser, nil))
}

func TestValidOverrideStatus(t *testing.T) {
	assert.True(t, ValidOverrideStatus(StatusCompleted))
	assert.True(t, ValidOverrideStatus(StatusInProgress))
	assert.False(t, ValidOverrideStatus(StatusPending))
}
