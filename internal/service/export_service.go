package service

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/kmallmaperez/geocore/internal/domain"
	"github.com/kmallmaperez/geocore/internal/repository"
	"github.com/kmallmaperez/geocore/internal/validation"
)

// SummaryExportColumns is the column order of the summary export.
var SummaryExportColumns = []string{"DDHID", "EQUIPO", "PLATAFORMA", "PROGRAMADO", "EJECUTADO", "ESTADO", "FECHA_INICIO", "FECHA_FIN", "PCT"}

type TableExport struct {
	Cols []string              `json:"cols"`
	Rows []domain.StoredRecord `json:"rows"`
}

type SummaryExportRow struct {
	DDHID       string `json:"DDHID"`
	Equipo      string `json:"EQUIPO"`
	Plataforma  string `json:"PLATAFORMA"`
	Programado  string `json:"PROGRAMADO"`
	Ejecutado   string `json:"EJECUTADO"`
	Estado      string `json:"ESTADO"`
	FechaInicio string `json:"FECHA_INICIO"`
	FechaFin    string `json:"FECHA_FIN"`
	Pct         int    `json:"PCT"`
}

type SummaryExport struct {
	Cols []string           `json:"cols"`
	Rows []SummaryExportRow `json:"rows"`
}

// ExportService dumps the operation tables as JSON or spreadsheets.
type ExportService interface {
	All(ctx context.Context, user domain.User) (map[domain.TableKind]TableExport, error)
	Table(ctx context.Context, kind domain.TableKind) (*TableExport, error)
	Summary(ctx context.Context) (*SummaryExport, error)

	TableXLSX(ctx context.Context, kind domain.TableKind) ([]byte, error)
	SummaryXLSX(ctx context.Context) ([]byte, error)
}

type exportService struct {
	repo    repository.RecordsRepository
	summary SummaryService
	logger  *zap.Logger
}

func NewExportService(repo repository.RecordsRepository, summary SummaryService, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, summary: summary, logger: logger}
}

func (s *exportService) All(ctx context.Context, user domain.User) (map[domain.TableKind]TableExport, error) {
	if !user.IsPrivileged() {
		return nil, forbidden("only ADMIN or SUPERVISOR can export every table")
	}
	out := make(map[domain.TableKind]TableExport, len(domain.AllTableKinds()))
	for _, kind := range domain.AllTableKinds() {
		t, err := s.Table(ctx, kind)
		if err != nil {
			return nil, err
		}
		out[kind] = *t
	}
	return out, nil
}

func (s *exportService) Table(ctx context.Context, kind domain.TableKind) (*TableExport, error) {
	sch, err := validation.SchemaFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, kind)
	if err != nil {
		return nil, err
	}
	return &TableExport{Cols: sch.Columns, Rows: rows}, nil
}

func (s *exportService) Summary(ctx context.Context) (*SummaryExport, error) {
	general, err := s.summary.General(ctx)
	if err != nil {
		return nil, err
	}
	blankDate := func(d string) string {
		if d == noDate {
			return ""
		}
		return d
	}
	out := &SummaryExport{Cols: SummaryExportColumns, Rows: make([]SummaryExportRow, 0, len(general))}
	for _, g := range general {
		out.Rows = append(out.Rows, SummaryExportRow{
			DDHID:       g.DDHID,
			Equipo:      g.Equipo,
			Plataforma:  g.Plataforma,
			Programado:  strconv.FormatFloat(g.Programado, 'f', 2, 64),
			Ejecutado:   strconv.FormatFloat(g.Ejecutado, 'f', 2, 64),
			Estado:      g.Estado,
			FechaInicio: blankDate(g.FechaInicio),
			FechaFin:    blankDate(g.FechaFin),
			Pct:         g.Pct,
		})
	}
	return out, nil
}

func (s *exportService) TableXLSX(ctx context.Context, kind domain.TableKind) ([]byte, error) {
	t, err := s.Table(ctx, kind)
	if err != nil {
		return nil, err
	}
	data := make([][]any, 0, len(t.Rows))
	for _, r := range t.Rows {
		line := make([]any, len(t.Cols))
		for i, col := range t.Cols {
			line[i] = cellOf(r.Fields.Get(col))
		}
		data = append(data, line)
	}
	return buildWorkbook(kind.Label(), t.Cols, data)
}

func (s *exportService) SummaryXLSX(ctx context.Context) ([]byte, error) {
	sum, err := s.Summary(ctx)
	if err != nil {
		return nil, err
	}
	data := make([][]any, 0, len(sum.Rows))
	for _, r := range sum.Rows {
		data = append(data, []any{r.DDHID, r.Equipo, r.Plataforma, r.Programado, r.Ejecutado, r.Estado, r.FechaInicio, r.FechaFin, r.Pct})
	}
	return buildWorkbook("Resumen General", sum.Cols, data)
}

func cellOf(v domain.Value) any {
	switch {
	case v.IsAbsent():
		return nil
	case v.IsNumber():
		f, _ := v.Float()
		return f
	default:
		return v.Text()
	}
}

// buildWorkbook writes one sheet with a bold frozen header row.
func buildWorkbook(sheetName string, headers []string, data [][]any) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if sheetName != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to drop default sheet: %w", err)
		}
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if len(headers) > 0 {
		last, err := excelize.CoordinatesToCellName(len(headers), 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for i, line := range data {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		row := line
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}
