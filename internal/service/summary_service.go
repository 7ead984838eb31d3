package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kmallmaperez/geocore/internal/domain"
	"github.com/kmallmaperez/geocore/internal/repository"
	"github.com/kmallmaperez/geocore/internal/store"
)

const (
	summaryKeyPrefix  = "geocore:summary:"
	summaryGeneralKey = summaryKeyPrefix + "general"
	summaryStatsKey   = summaryKeyPrefix + "stats"

	noDate = "—"
)

// SummaryService builds the per-borehole progress views. Results are cached in
// the KV store until the next record write.
type SummaryService interface {
	General(ctx context.Context) ([]GeneralRow, error)
	Stats(ctx context.Context) (*DashboardStats, error)

	SetRig(ctx context.Context, user domain.User, ddhid, rig string) error
	SetStatus(ctx context.Context, user domain.User, ddhid, status string) (*domain.StatusOverride, error)
	ClearStatus(ctx context.Context, user domain.User, ddhid string) error

	Invalidate(ctx context.Context) error
}

// GeneralRow is one line of the general summary table.
type GeneralRow struct {
	DDHID        string  `json:"DDHID"`
	Equipo       string  `json:"EQUIPO"`
	Plataforma   string  `json:"PLATAFORMA"`
	Programado   float64 `json:"PROGRAMADO"`
	Ejecutado    float64 `json:"EJECUTADO"`
	Estado       string  `json:"ESTADO"`
	FechaInicio  string  `json:"FECHA_INICIO"`
	FechaFin     string  `json:"FECHA_FIN"`
	Pct          int     `json:"PCT"`
	EstadoManual bool    `json:"_estadoManual"`
}

type BoreholeStats struct {
	DDHID        string  `json:"DDHID"`
	Programado   float64 `json:"PROGRAMADO"`
	Perforado    float64 `json:"PERFORADO"`
	Recepcion    float64 `json:"RECEPCION"`
	Recuperado   float64 `json:"RECUPERADO"`
	Fotografiado float64 `json:"FOTOGRAFIADO"`
	Geotecnico   float64 `json:"GEOTECNICO"`
	Geologico    float64 `json:"GEOLOGICO"`
	Estado       string  `json:"ESTADO"`
	Pct          int     `json:"PCT"`
	FechaInicio  *string `json:"FECHA_INICIO"`
	FechaFin     *string `json:"FECHA_FIN"`
}

type Totals struct {
	Perforado    float64 `json:"perforado"`
	Recepcion    float64 `json:"recepcion"`
	Recuperado   float64 `json:"recuperado"`
	Fotografiado float64 `json:"fotografiado"`
	Geotecnico   float64 `json:"geotecnico"`
	Geologico    float64 `json:"geologico"`
}

type SeriesPoint struct {
	Fecha string  `json:"fecha"`
	Valor float64 `json:"valor"`
}

type DashboardStats struct {
	PorSondaje      []BoreholeStats `json:"porSondaje"`
	Totales         Totals          `json:"totales"`
	SerieReal       []SeriesPoint   `json:"serieReal"`
	SerieIdeal      []SeriesPoint   `json:"serieIdeal"`
	FechasOrdenadas []string        `json:"fechasOrdenadas"`
}

type SummaryServiceOptions struct {
	CacheTTL             time.Duration
	IdealMetresPerRigDay float64
}

type summaryService struct {
	records   repository.RecordsRepository
	overrides repository.StatusOverridesRepository
	kv        store.KV
	logger    *zap.Logger
	opts      SummaryServiceOptions
}

func NewSummaryService(
	records repository.RecordsRepository,
	overrides repository.StatusOverridesRepository,
	kv store.KV,
	logger *zap.Logger,
	opts SummaryServiceOptions,
) SummaryService {
	if opts.IdealMetresPerRigDay <= 0 {
		opts.IdealMetresPerRigDay = 35
	}
	return &summaryService{
		records:   records,
		overrides: overrides,
		kv:        kv,
		logger:    logger,
		opts:      opts,
	}
}

// computeStatus derives the status from progress; a manual override wins.
func computeStatus(pct int, drilled float64, override string) string {
	switch {
	case override != "":
		return override
	case pct >= 100:
		return domain.StatusCompleted
	case drilled > 0:
		return domain.StatusInProgress
	default:
		return domain.StatusPending
	}
}

func percent(drilled, programmed float64) int {
	if programmed <= 0 {
		return 0
	}
	return int(math.Round(drilled / programmed * 100))
}

func num(v domain.Value) float64 {
	f, ok := v.Float()
	if !ok {
		return 0
	}
	return f
}

// byBorehole groups rows by trimmed DDHID.
func byBorehole(rows []domain.StoredRecord, field string) map[string][]domain.StoredRecord {
	out := make(map[string][]domain.StoredRecord)
	for _, r := range rows {
		id := trimmedText(r.Fields.Get(field))
		out[id] = append(out[id], r)
	}
	return out
}

func sumColumn(rows []domain.StoredRecord, col string) float64 {
	var s float64
	for _, r := range rows {
		s += num(r.Fields.Get(col))
	}
	return s
}

// drillingDates returns the sorted YYYY-MM-DD dates of rows.
func drillingDates(rows []domain.StoredRecord) []string {
	var out []string
	for _, r := range rows {
		if d := dateKey(r.Fields.Get("Fecha")); d != "" {
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out
}

type summaryInputs struct {
	program   []domain.StoredRecord
	drilling  map[string][]domain.StoredRecord
	allDrill  []domain.StoredRecord
	overrides map[string]string
}

func (s *summaryService) load(ctx context.Context) (*summaryInputs, error) {
	prog, err := s.records.List(ctx, domain.KindGeneralProgram)
	if err != nil {
		return nil, fmt.Errorf("load program: %w", err)
	}
	perf, err := s.records.List(ctx, domain.KindDrilling)
	if err != nil {
		return nil, fmt.Errorf("load drilling: %w", err)
	}
	ovs, err := s.overrides.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}
	in := &summaryInputs{
		drilling:  byBorehole(perf, "DDHID"),
		allDrill:  perf,
		overrides: make(map[string]string, len(ovs)),
	}
	for _, p := range prog {
		if trimmedText(p.Fields.Get("DDHID")) != "" {
			in.program = append(in.program, p)
		}
	}
	for _, o := range ovs {
		in.overrides[o.DDHID] = o.Status
	}
	return in, nil
}

func (s *summaryService) General(ctx context.Context) ([]GeneralRow, error) {
	var cached []GeneralRow
	if s.fromCache(ctx, summaryGeneralKey, &cached) {
		return cached, nil
	}

	in, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]GeneralRow, 0, len(in.program))
	for _, p := range in.program {
		id := trimmedText(p.Fields.Get("DDHID"))
		rows := in.drilling[id]
		drilled := sumColumn(rows, "Total_Dia")
		programmed := num(p.Fields.Get("LENGTH"))
		pct := percent(drilled, programmed)
		dates := drillingDates(rows)

		row := GeneralRow{
			DDHID:        id,
			Equipo:       trimmedText(p.Fields.Get("EQUIPO")),
			Plataforma:   trimmedText(p.Fields.Get("PLATAFORMA")),
			Programado:   programmed,
			Ejecutado:    round1(drilled),
			Estado:       computeStatus(pct, drilled, in.overrides[id]),
			FechaInicio:  noDate,
			FechaFin:     noDate,
			Pct:          pct,
			EstadoManual: in.overrides[id] != "",
		}
		if len(dates) > 0 {
			row.FechaInicio = dates[0]
			row.FechaFin = dates[len(dates)-1]
		}
		out = append(out, row)
	}
	s.toCache(ctx, summaryGeneralKey, out)
	return out, nil
}

func (s *summaryService) Stats(ctx context.Context) (*DashboardStats, error) {
	var cached DashboardStats
	if s.fromCache(ctx, summaryStatsKey, &cached) {
		return &cached, nil
	}

	in, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	progress := map[domain.TableKind]string{
		domain.KindReception:   "Metros",
		domain.KindRecovery:    "Avance",
		domain.KindPhotography: "Avance",
		domain.KindGeotechLog:  "Avance",
		domain.KindGeologLog:   "Avance",
	}
	grouped := make(map[domain.TableKind]map[string][]domain.StoredRecord, len(progress))
	totals := make(map[domain.TableKind]float64, len(progress))
	for kind, col := range progress {
		rows, err := s.records.List(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", kind, err)
		}
		grouped[kind] = byBorehole(rows, "DDHID")
		totals[kind] = sumColumn(rows, col)
	}
	sumFor := func(kind domain.TableKind, id string) float64 {
		return round1(sumColumn(grouped[kind][id], progress[kind]))
	}

	stats := &DashboardStats{
		PorSondaje: make([]BoreholeStats, 0, len(in.program)),
		Totales: Totals{
			Perforado:    round1(sumColumn(in.allDrill, "Total_Dia")),
			Recepcion:    round1(totals[domain.KindReception]),
			Recuperado:   round1(totals[domain.KindRecovery]),
			Fotografiado: round1(totals[domain.KindPhotography]),
			Geotecnico:   round1(totals[domain.KindGeotechLog]),
			Geologico:    round1(totals[domain.KindGeologLog]),
		},
	}

	for _, p := range in.program {
		id := trimmedText(p.Fields.Get("DDHID"))
		rows := in.drilling[id]
		drilled := sumColumn(rows, "Total_Dia")
		programmed := num(p.Fields.Get("LENGTH"))
		pct := percent(drilled, programmed)
		dates := drillingDates(rows)

		b := BoreholeStats{
			DDHID:        id,
			Programado:   programmed,
			Perforado:    round1(drilled),
			Recepcion:    sumFor(domain.KindReception, id),
			Recuperado:   sumFor(domain.KindRecovery, id),
			Fotografiado: sumFor(domain.KindPhotography, id),
			Geotecnico:   sumFor(domain.KindGeotechLog, id),
			Geologico:    sumFor(domain.KindGeologLog, id),
			Estado:       computeStatus(pct, drilled, in.overrides[id]),
			Pct:          pct,
		}
		if len(dates) > 0 {
			first, last := dates[0], dates[len(dates)-1]
			b.FechaInicio, b.FechaFin = &first, &last
		}
		stats.PorSondaje = append(stats.PorSondaje, b)
	}

	stats.FechasOrdenadas, stats.SerieReal, stats.SerieIdeal = drillingSeries(in, s.opts.IdealMetresPerRigDay)
	s.toCache(ctx, summaryStatsKey, stats)
	return stats, nil
}

// drillingSeries accumulates drilled metres per date, alongside the ideal curve
// where every rig that has started by a date contributes perRig metres a day.
func drillingSeries(in *summaryInputs, perRig float64) ([]string, []SeriesPoint, []SeriesPoint) {
	rigOf := make(map[string]string, len(in.program))
	for _, p := range in.program {
		id := trimmedText(p.Fields.Get("DDHID"))
		if rig := trimmedText(p.Fields.Get("EQUIPO")); rig != "" {
			if _, seen := rigOf[id]; !seen {
				rigOf[id] = rig
			}
		}
	}

	perDate := make(map[string]float64)
	rigStart := make(map[string]string)
	for _, r := range in.allDrill {
		d := dateKey(r.Fields.Get("Fecha"))
		if d == "" {
			continue
		}
		perDate[d] += num(r.Fields.Get("Total_Dia"))

		id := trimmedText(r.Fields.Get("DDHID"))
		rig := rigOf[id]
		if rig == "" {
			rig = id
		}
		if start, ok := rigStart[rig]; !ok || d < start {
			rigStart[rig] = d
		}
	}

	dates := make([]string, 0, len(perDate))
	for d := range perDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	realSeries := make([]SeriesPoint, 0, len(dates))
	idealSeries := make([]SeriesPoint, 0, len(dates))
	var drilled, ideal float64
	for _, d := range dates {
		drilled += perDate[d]
		active := 0
		for _, start := range rigStart {
			if start <= d {
				active++
			}
		}
		ideal += perRig * float64(active)
		realSeries = append(realSeries, SeriesPoint{Fecha: d, Valor: round1(drilled)})
		idealSeries = append(idealSeries, SeriesPoint{Fecha: d, Valor: round1(ideal)})
	}
	return dates, realSeries, idealSeries
}

func (s *summaryService) SetRig(ctx context.Context, user domain.User, ddhid, rig string) error {
	if !user.IsPrivileged() {
		return forbidden("only ADMIN or SUPERVISOR can assign rigs")
	}
	ddhid = strings.TrimSpace(ddhid)
	if ddhid == "" {
		return badRequest("DDHID is required")
	}
	n, err := s.records.SetColumn(ctx, domain.KindGeneralProgram, "DDHID", ddhid, "EQUIPO", domain.String(strings.TrimSpace(rig)))
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("borehole %s: %w", ddhid, repository.ErrNotFound)
	}
	s.invalidate(ctx)
	return nil
}

func (s *summaryService) SetStatus(ctx context.Context, user domain.User, ddhid, status string) (*domain.StatusOverride, error) {
	if !user.IsPrivileged() {
		return nil, forbidden("only ADMIN or SUPERVISOR can set a status")
	}
	ddhid = strings.TrimSpace(ddhid)
	if ddhid == "" {
		return nil, badRequest("DDHID is required")
	}
	if !domain.ValidOverrideStatus(status) {
		return nil, badRequest("invalid status %q", status)
	}
	o, err := s.overrides.Upsert(ctx, ddhid, status)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return o, nil
}

func (s *summaryService) ClearStatus(ctx context.Context, user domain.User, ddhid string) error {
	if !user.IsPrivileged() {
		return forbidden("only ADMIN or SUPERVISOR can reset a status")
	}
	if err := s.overrides.Delete(ctx, strings.TrimSpace(ddhid)); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Invalidate drops every cached summary view.
func (s *summaryService) Invalidate(ctx context.Context) error {
	if s.kv == nil {
		return nil
	}
	keys, err := s.kv.ScanKeys(ctx, summaryKeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("scan summary keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return s.kv.Del(ctx, keys...)
}

func (s *summaryService) invalidate(ctx context.Context) {
	if err := s.Invalidate(ctx); err != nil {
		s.logger.Warn("summary cache not invalidated", zap.Error(err))
	}
}

func (s *summaryService) fromCache(ctx context.Context, key string, out any) bool {
	if s.kv == nil || s.opts.CacheTTL <= 0 {
		return false
	}
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrMiss) {
			s.logger.Warn("summary cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		s.logger.Warn("summary cache entry unreadable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *summaryService) toCache(ctx context.Context, key string, v any) {
	if s.kv == nil || s.opts.CacheTTL <= 0 {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.kv.Set(ctx, key, string(b), s.opts.CacheTTL); err != nil {
		s.logger.Warn("summary cache write failed", zap.String("key", key), zap.Error(err))
	}
}
