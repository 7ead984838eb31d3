package service

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/kmallmaperez/geocore/internal/domain"
	"github.com/kmallmaperez/geocore/internal/validation"
)

const missing = "—"

var reportSources = map[domain.TableKind]string{
	domain.KindDrilling: `⛏ *REPORTE PERFORACIÓN*
• Fecha: {{.Date "Fecha"}}
• Sondaje: {{.V "DDHID"}}
• Turno Día: {{.V "From_Dia"}} → {{.V "TO_Dia"}} m ({{.Z "Turno_Dia"}} m)
• Turno Noche: {{.V "From_Noche"}} → {{.V "To_Noche"}} m ({{.Z "Turno_Noche"}} m)
• Total Día: {{.V "Total_Dia"}} m
• Acumulado: {{.V "Acumulado"}} m
• Geólogo: {{.V "Geologo"}}
{{with .T "Comentarios"}}• Comentarios: {{.}}{{end}}`,

	domain.KindReception: `📦 *REPORTE RECEPCIÓN*
• Fecha: {{.Date "Fecha"}}{{with .T "HORA"}} | Hora: {{.}}{{end}}
• Sondaje: {{.V "DDHID"}}
• From: {{.V "FROM"}} m | To: {{.V "TO"}} m
• Metros recibidos: {{.V "Metros"}} m
• Cajas: {{.V "CAJAS"}}
• Geólogo: {{.V "Geologo"}}`,

	domain.KindRecovery: `🧪 *REPORTE RECUPERACIÓN*
• Fecha: {{.Date "Fecha"}}
• Sondaje: {{.V "DDHID"}}
• From: {{.V "From"}} m | To: {{.V "To"}} m
• Avance: {{.V "Avance"}} m
• Geólogo: {{.V "Geologo"}}`,

	domain.KindPhotography: `📷 *REPORTE FOTOGRAFÍA*
• Fecha: {{.Date "Fecha"}}
• Sondaje: {{.V "DDHID"}}
• From: {{.V "From"}} m | To: {{.V "To"}} m
• Avance: {{.V "Avance"}} m
• N° Foto: {{.V "N_Foto"}}
• Geólogo: {{.V "Geologo"}}`,

	domain.KindGeotechLog: `🪨 *REPORTE L. GEOTÉCNICO*
• Fecha: {{.Date "Fecha"}}
• Sondaje: {{.V "DDHID"}}
• From: {{.V "From"}} m | To: {{.V "To"}} m
• Avance: {{.V "Avance"}} m
• PLT: {{.V "PLT"}} | UCS: {{.V "UCS"}}
• Geólogo: {{.V "Geologo"}}`,

	domain.KindGeologLog: `📋 *REPORTE LOGUEO GEOLÓGICO*
• Fecha: {{.Date "Fecha"}}
• Sondaje: {{.V "DDHID"}}
• From: {{.V "From"}} m
• To: {{.V "To"}} m
• Avance: {{.V "Avance"}} m
• SG Muestras: {{.V "SG"}}
• Geólogo: {{.V "Geologo"}}
{{with .T "Observaciones"}}• Obs: {{.}}{{end}}`,

	domain.KindSampling: `🧫 *REPORTE MUESTREO*
• Fecha: {{.Date "Fecha"}}
• Sondaje: {{.V "DDHID"}}
• DE: {{.V "DE"}} m | HASTA: {{.V "HASTA"}} m
• Muestras: {{.V "MUESTRAS"}}
• Geólogo: {{.V "Geologo"}}`,

	domain.KindCutting: `✂️ *REPORTE CORTE*
• Fecha: {{.Date "Fecha"}}
• Sondaje: {{.V "DDHID"}}
• DE: {{.V "DE"}} m | A: {{.V "A"}} m
• Avance: {{.V "AVANCE"}} m
• Cajas: {{.V "CAJAS"}} | Máquinas: {{.V "MAQUINAS"}}
• Geólogo: {{.V "Geologo"}}`,

	domain.KindStorms: `⛈ *REPORTE TORMENTA ELÉCTRICA*
• Fecha: {{.Date "Fecha"}}
• Desde: {{.V "Desde"}} | Hasta: {{.V "Hasta"}}
• Duración: {{.V "Minutos"}} min ({{.V "Horas"}} h)
• Geólogo: {{.V "Geologo"}}`,

	domain.KindShipments: `📮 *REPORTE ENVÍO DE MUESTRAS*
• Fecha: {{.Date "Fecha"}}
• Envío N°: {{.V "Envio_N"}}
• Total muestras: {{.V "Total_muestras"}}
• Geólogo: {{.V "Geologo"}}`,
}

var reportTemplates = func() map[domain.TableKind]*template.Template {
	out := make(map[domain.TableKind]*template.Template, len(reportSources))
	for kind, src := range reportSources {
		out[kind] = template.Must(template.New(string(kind)).Parse(src))
	}
	return out
}()

// reportRow is the template view of one record.
type reportRow struct {
	f domain.Fields
}

// T is the trimmed cell text, empty when blank.
func (r reportRow) T(col string) string { return trimmedText(r.f.Get(col)) }

// V is the cell text or a dash.
func (r reportRow) V(col string) string {
	if s := r.T(col); s != "" {
		return s
	}
	return missing
}

// Z is the cell text or 0.
func (r reportRow) Z(col string) string {
	if s := r.T(col); s != "" {
		return s
	}
	return "0"
}

// Date renders a date cell as dd/mm/yyyy.
func (r reportRow) Date(col string) string {
	s := r.T(col)
	if s == "" {
		return missing
	}
	if d, ok := validation.ParseDate(s); ok {
		return d.Format("02/01/2006")
	}
	return s
}

// RenderReport builds the plain-text field report of one record.
func RenderReport(rec domain.StoredRecord) (string, error) {
	tpl, ok := reportTemplates[rec.Kind]
	if !ok {
		return "", badRequest("no field report for table %s", rec.Kind)
	}
	var b strings.Builder
	if err := tpl.Execute(&b, reportRow{f: rec.Fields}); err != nil {
		return "", fmt.Errorf("render %s report: %w", rec.Kind, err)
	}
	return strings.TrimSpace(b.String()), nil
}

// HasReport reports whether kind has a field report.
func HasReport(kind domain.TableKind) bool {
	_, ok := reportTemplates[kind]
	return ok
}

// ReportNotifier pushes field reports to a chat webhook.
type ReportNotifier interface {
	Enabled() bool
	Send(ctx context.Context, rec domain.StoredRecord, text string) error
}

type webhookPayload struct {
	Text     string `json:"text"`
	Table    string `json:"table"`
	RecordID int64  `json:"record_id"`
}

type WebhookNotifier struct {
	url        string
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewWebhookNotifier(url string, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &WebhookNotifier{url: url, httpClient: client, logger: logger}
}

func (n *WebhookNotifier) Enabled() bool { return n != nil && n.url != "" }

func (n *WebhookNotifier) Send(ctx context.Context, rec domain.StoredRecord, text string) error {
	if !n.Enabled() {
		return badRequest("report webhook is not configured")
	}
	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetBody(webhookPayload{Text: text, Table: string(rec.Kind), RecordID: rec.ID}).
		Post(n.url)
	if err != nil {
		n.logger.Error("report webhook failed", zap.String("table", string(rec.Kind)), zap.Int64("id", rec.ID), zap.Error(err))
		return fmt.Errorf("report webhook: %w", err)
	}
	if resp.IsError() {
		n.logger.Error("report webhook rejected",
			zap.String("table", string(rec.Kind)),
			zap.Int64("id", rec.ID),
			zap.Int("status", resp.StatusCode()),
		)
		return fmt.Errorf("report webhook: status %d", resp.StatusCode())
	}
	n.logger.Info("report sent", zap.String("table", string(rec.Kind)), zap.Int64("id", rec.ID))
	return nil
}
