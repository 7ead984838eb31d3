package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/kmallmaperez/geocore/internal/domain"
)

func TestExportService_Table(t *testing.T) {
	f := newSummaryFixture(t)
	svc := NewExportService(f.records, f.svc, zap.NewNop())
	ctx := context.Background()

	tbl, err := svc.Table(ctx, domain.KindRecovery)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fecha", "DDHID", "From", "To", "Avance", "Geologo"}, tbl.Cols)
	assert.Len(t, tbl.Rows, 2)

	_, err = svc.All(ctx, geologist)
	assert.ErrorIs(t, err, ErrForbidden)
	all, err := svc.All(ctx, supervisor)
	require.NoError(t, err)
	assert.Len(t, all, 12)
	assert.Len(t, all[domain.KindDrilling].Rows, 3)
}

func TestExportService_Summary(t *testing.T) {
	f := newSummaryFixture(t)
	svc := NewExportService(f.records, f.svc, zap.NewNop())

	sum, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SummaryExportColumns, sum.Cols)
	require.Len(t, sum.Rows, 3)
	assert.Equal(t, "100.00", sum.Rows[0].Programado)
	assert.Equal(t, "55.50", sum.Rows[0].Ejecutado)
	assert.Equal(t, "", sum.Rows[2].FechaInicio)
}

func TestExportService_TableXLSX(t *testing.T) {
	f := newSummaryFixture(t)
	svc := NewExportService(f.records, f.svc, zap.NewNop())

	data, err := svc.TableXLSX(context.Background(), domain.KindGeneralProgram)
	require.NoError(t, err)

	book, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer book.Close()

	sheet := book.GetSheetName(0)
	assert.Equal(t, "Programa General", sheet)
	rows, err := book.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"PLATAFORMA", "DDHID", "EQUIPO", "ESTE", "NORTE", "ELEV", "LENGTH"}, rows[0])
	assert.Equal(t, "H1", rows[1][1])
	assert.Equal(t, "100", rows[1][6])

	styleID, err := book.GetCellStyle(sheet, "A1")
	require.NoError(t, err)
	style, err := book.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)

	_, err = svc.SummaryXLSX(context.Background())
	assert.NoError(t, err)
}
