package validation

import (
	"fmt"

	"github.com/kmallmaperez/geocore/internal/domain"
)

// Pair names a from/to column pair.
type Pair struct {
	From string
	To   string
}

// Schema describes the columns and rules of one table kind.
type Schema struct {
	Kind     domain.TableKind
	Columns  []string
	Required []string

	// Interval is the generic depth pair, nil when the kind has none.
	Interval *Pair
	// AdvanceField receives Interval's difference; empty when nothing is derived.
	AdvanceField string

	// ShiftTable is set only for drilling, which carries DayShift and NightShift
	// instead of Interval.
	ShiftTable bool
	DayShift   Pair
	NightShift Pair

	// BoreholeField partitions history; empty for kinds with no borehole.
	BoreholeField string

	DateFields []string
	TimeFields []string

	// Derived columns are computed here; caller-supplied values are discarded.
	Derived []string

	numeric map[string]struct{}
}

// DerivesAdvance reports whether the interval difference is stored.
func (s Schema) DerivesAdvance() bool { return s.Interval != nil && s.AdvanceField != "" }

// IsNumeric reports whether col holds a number.
func (s Schema) IsNumeric(col string) bool {
	_, ok := s.numeric[col]
	return ok
}

// HasColumn reports whether col belongs to the kind.
func (s Schema) HasColumn(col string) bool {
	for _, c := range s.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Borehole returns the trimmed borehole id of f, or "" for kinds without one.
func (s Schema) Borehole(f domain.Fields) string {
	if s.BoreholeField == "" {
		return ""
	}
	return trimmed(f.Get(s.BoreholeField))
}

func (s Schema) clone() Schema {
	out := s
	out.Columns = append([]string(nil), s.Columns...)
	out.Required = append([]string(nil), s.Required...)
	out.DateFields = append([]string(nil), s.DateFields...)
	out.TimeFields = append([]string(nil), s.TimeFields...)
	out.Derived = append([]string(nil), s.Derived...)
	if s.Interval != nil {
		p := *s.Interval
		out.Interval = &p
	}
	// numeric is never written after init; sharing it is safe.
	return out
}

var (
	dateColumns = []string{"Fecha", "F_Envio", "F_Solicitud", "F_Resultados"}
	timeColumns = []string{"HORA", "Desde", "Hasta"}

	numericColumns = []string{
		"ESTE", "NORTE", "ELEV", "LENGTH", "From", "To", "FROM", "TO", "DE", "HASTA", "A",
		"Avance", "AVANCE", "Total_Dia", "Turno_Dia", "Turno_Noche", "From_Dia", "TO_Dia",
		"From_Noche", "To_Noche", "Acumulado", "Metros", "CAJAS", "MUESTRAS", "MAQUINAS",
		"Minutos", "Horas", "TOTAL", "PLT", "UCS", "SG", "N_Foto", "Qty_Mina", "Qty_Lab",
		"Muestras_Dens", "Tiempo_dias", "Envio_N", "Total_muestras",
	}
)

var registry = buildRegistry()

func buildRegistry() map[domain.TableKind]Schema {
	defs := []Schema{
		{
			Kind:     domain.KindGeneralProgram,
			Columns:  []string{"PLATAFORMA", "DDHID", "EQUIPO", "ESTE", "NORTE", "ELEV", "LENGTH"},
			Required: []string{"PLATAFORMA", "ESTE", "NORTE", "ELEV", "LENGTH"},
		},
		{
			Kind: domain.KindDrilling,
			Columns: []string{"DDHID", "Fecha", "From_Dia", "TO_Dia", "Turno_Dia", "From_Noche", "To_Noche",
				"Turno_Noche", "Total_Dia", "Acumulado", "Comentarios", "Geologo"},
			Required:      []string{"DDHID", "Fecha"},
			ShiftTable:    true,
			DayShift:      Pair{From: "From_Dia", To: "TO_Dia"},
			NightShift:    Pair{From: "From_Noche", To: "To_Noche"},
			BoreholeField: "DDHID",
			Derived:       []string{"Turno_Dia", "Turno_Noche", "Total_Dia", "Acumulado"},
		},
		{
			Kind:          domain.KindReception,
			Columns:       []string{"Fecha", "HORA", "DDHID", "FROM", "TO", "Metros", "CAJAS", "Geologo"},
			Required:      []string{"Fecha", "HORA", "DDHID", "CAJAS"},
			Interval:      &Pair{From: "FROM", To: "TO"},
			AdvanceField:  "Metros",
			BoreholeField: "DDHID",
			Derived:       []string{"Metros"},
		},
		logSchema(domain.KindRecovery, nil,
			[]string{"Fecha", "DDHID", "From", "To", "Avance", "Geologo"}),
		logSchema(domain.KindPhotography, []string{"N_Foto"},
			[]string{"Fecha", "DDHID", "From", "To", "Avance", "N_Foto", "Geologo"}),
		logSchema(domain.KindGeotechLog, []string{"PLT", "UCS"},
			[]string{"Fecha", "DDHID", "From", "To", "Avance", "PLT", "UCS", "Geologo"}),
		logSchema(domain.KindGeologLog, nil,
			[]string{"Fecha", "DDHID", "From", "To", "Avance", "Geologo", "SG", "Observaciones"}),
		{
			Kind:          domain.KindSampling,
			Columns:       []string{"Fecha", "DDHID", "DE", "HASTA", "MUESTRAS", "Geologo"},
			Required:      []string{"Fecha", "DDHID", "DE", "HASTA", "MUESTRAS"},
			Interval:      &Pair{From: "DE", To: "HASTA"},
			BoreholeField: "DDHID",
		},
		{
			Kind:          domain.KindCutting,
			Columns:       []string{"Fecha", "DDHID", "DE", "A", "AVANCE", "CAJAS", "MAQUINAS", "Geologo"},
			Required:      []string{"Fecha", "DDHID", "CAJAS", "MAQUINAS"},
			Interval:      &Pair{From: "DE", To: "A"},
			AdvanceField:  "AVANCE",
			BoreholeField: "DDHID",
			Derived:       []string{"AVANCE"},
		},
		{
			Kind:     domain.KindShipments,
			Columns:  []string{"Fecha", "Envio_N", "Total_muestras", "Geologo"},
			Required: []string{"Fecha", "Envio_N", "Total_muestras"},
		},
		{
			Kind: domain.KindBatch,
			Columns: []string{"Envio", "Batch", "Sondaje", "Qty_Mina", "Qty_Lab", "Muestras_Dens", "Cod_Cert",
				"F_Envio", "F_Solicitud", "F_Resultados", "Tiempo_dias", "Geologo"},
			Required:      []string{"Envio", "Batch", "Sondaje"},
			BoreholeField: "Sondaje",
		},
		{
			Kind:     domain.KindStorms,
			Columns:  []string{"Fecha", "Desde", "Hasta", "TOTAL", "Minutos", "Horas", "Geologo"},
			Required: []string{"Fecha", "Desde", "Hasta"},
			Derived:  []string{"Minutos", "Horas", "TOTAL"},
		},
	}

	out := make(map[domain.TableKind]Schema, len(defs))
	for _, s := range defs {
		s.DateFields = intersect(s.Columns, dateColumns)
		s.TimeFields = intersect(s.Columns, timeColumns)
		s.numeric = make(map[string]struct{})
		for _, c := range intersect(s.Columns, numericColumns) {
			s.numeric[c] = struct{}{}
		}
		out[s.Kind] = s
	}
	return out
}

func logSchema(kind domain.TableKind, extraRequired, cols []string) Schema {
	return Schema{
		Kind:          kind,
		Columns:       cols,
		Required:      append([]string{"Fecha", "DDHID"}, extraRequired...),
		Interval:      &Pair{From: "From", To: "To"},
		AdvanceField:  "Avance",
		BoreholeField: "DDHID",
		Derived:       []string{"Avance"},
	}
}

// intersect keeps the members of set in the order of cols.
func intersect(cols, set []string) []string {
	var out []string
	for _, c := range cols {
		for _, s := range set {
			if c == s {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// SchemaFor returns a copy of the registered schema for kind.
func SchemaFor(kind domain.TableKind) (Schema, error) {
	s, ok := registry[kind]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %q", domain.ErrUnknownTableKind, string(kind))
	}
	return s.clone(), nil
}

// MustSchema is SchemaFor for kinds already validated by the caller.
func MustSchema(kind domain.TableKind) Schema {
	s, err := SchemaFor(kind)
	if err != nil {
		panic(err)
	}
	return s
}
