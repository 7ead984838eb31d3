package domain

import (
	"errors"
	"fmt"
)

// TableKind identifies one of the twelve daily-operation tables. The value is
// the table name used in URLs and in the database.
type TableKind string

const (
	KindGeneralProgram TableKind = "programa_general"
	KindDrilling       TableKind = "perforacion"
	KindReception      TableKind = "recepcion"
	KindRecovery       TableKind = "recuperacion"
	KindPhotography    TableKind = "fotografia"
	KindGeotechLog     TableKind = "l_geotecnico"
	KindGeologLog      TableKind = "l_geologico"
	KindSampling       TableKind = "muestreo"
	KindCutting        TableKind = "corte"
	KindShipments      TableKind = "envios"
	KindBatch          TableKind = "batch"
	KindStorms         TableKind = "tormentas"
)

// ErrUnknownTableKind is returned for any table name outside the fixed set.
var ErrUnknownTableKind = errors.New("unknown table kind")

var allKinds = [...]TableKind{
	KindGeneralProgram,
	KindDrilling,
	KindReception,
	KindRecovery,
	KindPhotography,
	KindGeotechLog,
	KindGeologLog,
	KindSampling,
	KindCutting,
	KindShipments,
	KindBatch,
	KindStorms,
}

var kindLabels = map[TableKind]string{
	KindGeneralProgram: "Programa General",
	KindDrilling:       "Perforación",
	KindReception:      "Recepción",
	KindRecovery:       "Recuperación",
	KindPhotography:    "Fotografía",
	KindGeotechLog:     "L_Geotécnico",
	KindGeologLog:      "L_Geológico",
	KindSampling:       "Muestreo",
	KindCutting:        "Corte",
	KindShipments:      "Envíos",
	KindBatch:          "Batch",
	KindStorms:         "Tormentas Eléctricas",
}

// AllTableKinds returns the kinds in their canonical order.
func AllTableKinds() []TableKind {
	out := make([]TableKind, len(allKinds))
	copy(out, allKinds[:])
	return out
}

// ParseTableKind validates a table name.
func ParseTableKind(name string) (TableKind, error) {
	k := TableKind(name)
	if _, ok := kindLabels[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTableKind, name)
	}
	return k, nil
}

// Valid reports whether k is one of the twelve kinds.
func (k TableKind) Valid() bool {
	_, ok := kindLabels[k]
	return ok
}

// Label is the human-facing table title.
func (k TableKind) Label() string {
	return kindLabels[k]
}

func (k TableKind) String() string { return string(k) }
