package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Variant is the concrete column set of one table kind. Decoding through a
// variant rejects columns that do not belong to the kind.
type Variant interface {
	Kind() TableKind
}

type GeneralProgram struct {
	Plataforma Value `json:"PLATAFORMA"`
	DDHID      Value `json:"DDHID"`
	Equipo     Value `json:"EQUIPO"`
	Este       Value `json:"ESTE"`
	Norte      Value `json:"NORTE"`
	Elev       Value `json:"ELEV"`
	Length     Value `json:"LENGTH"`
}

type Drilling struct {
	DDHID       Value `json:"DDHID"`
	Fecha       Value `json:"Fecha"`
	FromDia     Value `json:"From_Dia"`
	ToDia       Value `json:"TO_Dia"`
	TurnoDia    Value `json:"Turno_Dia"`
	FromNoche   Value `json:"From_Noche"`
	ToNoche     Value `json:"To_Noche"`
	TurnoNoche  Value `json:"Turno_Noche"`
	TotalDia    Value `json:"Total_Dia"`
	Acumulado   Value `json:"Acumulado"`
	Comentarios Value `json:"Comentarios"`
	Geologo     Value `json:"Geologo"`
}

type Reception struct {
	Fecha   Value `json:"Fecha"`
	Hora    Value `json:"HORA"`
	DDHID   Value `json:"DDHID"`
	From    Value `json:"FROM"`
	To      Value `json:"TO"`
	Metros  Value `json:"Metros"`
	Cajas   Value `json:"CAJAS"`
	Geologo Value `json:"Geologo"`
}

type Recovery struct {
	Fecha   Value `json:"Fecha"`
	DDHID   Value `json:"DDHID"`
	From    Value `json:"From"`
	To      Value `json:"To"`
	Avance  Value `json:"Avance"`
	Geologo Value `json:"Geologo"`
}

type Photography struct {
	Fecha   Value `json:"Fecha"`
	DDHID   Value `json:"DDHID"`
	From    Value `json:"From"`
	To      Value `json:"To"`
	Avance  Value `json:"Avance"`
	NFoto   Value `json:"N_Foto"`
	Geologo Value `json:"Geologo"`
}

type GeotechLog struct {
	Fecha   Value `json:"Fecha"`
	DDHID   Value `json:"DDHID"`
	From    Value `json:"From"`
	To      Value `json:"To"`
	Avance  Value `json:"Avance"`
	PLT     Value `json:"PLT"`
	UCS     Value `json:"UCS"`
	Geologo Value `json:"Geologo"`
}

type GeologLog struct {
	Fecha         Value `json:"Fecha"`
	DDHID         Value `json:"DDHID"`
	From          Value `json:"From"`
	To            Value `json:"To"`
	Avance        Value `json:"Avance"`
	Geologo       Value `json:"Geologo"`
	SG            Value `json:"SG"`
	Observaciones Value `json:"Observaciones"`
}

type Sampling struct {
	Fecha    Value `json:"Fecha"`
	DDHID    Value `json:"DDHID"`
	De       Value `json:"DE"`
	Hasta    Value `json:"HASTA"`
	Muestras Value `json:"MUESTRAS"`
	Geologo  Value `json:"Geologo"`
}

type Cutting struct {
	Fecha    Value `json:"Fecha"`
	DDHID    Value `json:"DDHID"`
	De       Value `json:"DE"`
	A        Value `json:"A"`
	Avance   Value `json:"AVANCE"`
	Cajas    Value `json:"CAJAS"`
	Maquinas Value `json:"MAQUINAS"`
	Geologo  Value `json:"Geologo"`
}

type Shipment struct {
	Fecha         Value `json:"Fecha"`
	EnvioN        Value `json:"Envio_N"`
	TotalMuestras Value `json:"Total_muestras"`
	Geologo       Value `json:"Geologo"`
}

type Batch struct {
	Envio        Value `json:"Envio"`
	Batch        Value `json:"Batch"`
	Sondaje      Value `json:"Sondaje"`
	QtyMina      Value `json:"Qty_Mina"`
	QtyLab       Value `json:"Qty_Lab"`
	MuestrasDens Value `json:"Muestras_Dens"`
	CodCert      Value `json:"Cod_Cert"`
	FEnvio       Value `json:"F_Envio"`
	FSolicitud   Value `json:"F_Solicitud"`
	FResultados  Value `json:"F_Resultados"`
	TiempoDias   Value `json:"Tiempo_dias"`
	Geologo      Value `json:"Geologo"`
}

type Storm struct {
	Fecha   Value `json:"Fecha"`
	Desde   Value `json:"Desde"`
	Hasta   Value `json:"Hasta"`
	Total   Value `json:"TOTAL"`
	Minutos Value `json:"Minutos"`
	Horas   Value `json:"Horas"`
	Geologo Value `json:"Geologo"`
}

func (GeneralProgram) Kind() TableKind { return KindGeneralProgram }
func (Drilling) Kind() TableKind       { return KindDrilling }
func (Reception) Kind() TableKind      { return KindReception }
func (Recovery) Kind() TableKind       { return KindRecovery }
func (Photography) Kind() TableKind    { return KindPhotography }
func (GeotechLog) Kind() TableKind     { return KindGeotechLog }
func (GeologLog) Kind() TableKind      { return KindGeologLog }
func (Sampling) Kind() TableKind       { return KindSampling }
func (Cutting) Kind() TableKind        { return KindCutting }
func (Shipment) Kind() TableKind       { return KindShipments }
func (Batch) Kind() TableKind          { return KindBatch }
func (Storm) Kind() TableKind          { return KindStorms }

// NewVariant returns a pointer to the empty variant struct of kind.
func NewVariant(kind TableKind) (Variant, error) {
	switch kind {
	case KindGeneralProgram:
		return &GeneralProgram{}, nil
	case KindDrilling:
		return &Drilling{}, nil
	case KindReception:
		return &Reception{}, nil
	case KindRecovery:
		return &Recovery{}, nil
	case KindPhotography:
		return &Photography{}, nil
	case KindGeotechLog:
		return &GeotechLog{}, nil
	case KindGeologLog:
		return &GeologLog{}, nil
	case KindSampling:
		return &Sampling{}, nil
	case KindCutting:
		return &Cutting{}, nil
	case KindShipments:
		return &Shipment{}, nil
	case KindBatch:
		return &Batch{}, nil
	case KindStorms:
		return &Storm{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTableKind, string(kind))
	}
}

// bookkeeping keys the front end round-trips but that are not columns.
var bookkeepingKeys = []string{"id", "created_at"}

// DecodeRecord decodes a JSON object into the columns of kind. Unknown columns
// are an error; id/created_at are ignored.
func DecodeRecord(kind TableKind, data []byte) (Fields, error) {
	v, err := NewVariant(kind)
	if err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode %s record: %w", kind, err)
	}
	for _, k := range bookkeepingKeys {
		delete(raw, k)
	}
	cleaned, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(cleaned))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return nil, fmt.Errorf("decode %s record: %w", kind, err)
	}
	return FieldsOf(v)
}

// DecodeRecordMap is DecodeRecord for an already-parsed object, as produced by
// spreadsheet import.
func DecodeRecordMap(kind TableKind, m map[string]any) (Fields, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s record: %w", kind, err)
	}
	return DecodeRecord(kind, b)
}

// FieldsOf flattens a variant into its non-absent cells.
func FieldsOf(v Variant) (Fields, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var all map[string]Value
	if err := json.Unmarshal(b, &all); err != nil {
		return nil, err
	}
	out := make(Fields, len(all))
	for k, val := range all {
		if !val.IsAbsent() {
			out[k] = val
		}
	}
	return out, nil
}

// VariantOf fills the typed struct of kind from f.
func VariantOf(kind TableKind, f Fields) (Variant, error) {
	v, err := NewVariant(kind)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return nil, err
	}
	return v, nil
}
