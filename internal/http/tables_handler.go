package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kmallmaperez/geocore/internal/domain"
	"github.com/kmallmaperez/geocore/internal/service"
)

// TablesHandler serves /api/tables/: record CRUD, pre-submit validation, the
// summary views and field reports.
type TablesHandler struct {
	records  service.RecordService
	summary  service.SummaryService
	notifier service.ReportNotifier
	logger   *zap.Logger
}

func NewTablesHandler(records service.RecordService, summary service.SummaryService, notifier service.ReportNotifier, logger *zap.Logger) *TablesHandler {
	return &TablesHandler{records: records, summary: summary, notifier: notifier, logger: logger}
}

// ServeHTTP routes {table}, {table}/validate, {table}/{id} and {table}/{id}/report.
func (h *TablesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tables/"), "/"), "/")
	kind, err := domain.ParseTableKind(parts[0])
	if err != nil {
		writeJSON(w, http.StatusNotFound, Fail(err.Error()))
		return
	}

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.List(w, r, kind)
		case http.MethodPost:
			h.Create(w, r, kind)
		default:
			methodNotAllowed(w)
		}
	case len(parts) == 2 && parts[1] == "validate":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.Validate(w, r, kind)
	case len(parts) == 2:
		id, ok := parseInt64(parts[1])
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.Get(w, r, kind, id)
		case http.MethodPut:
			h.Update(w, r, kind, id)
		case http.MethodDelete:
			h.Delete(w, r, kind, id)
		default:
			methodNotAllowed(w)
		}
	case len(parts) == 3 && parts[2] == "report":
		id, ok := parseInt64(parts[1])
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.Report(w, r, kind, id)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *TablesHandler) decode(w http.ResponseWriter, r *http.Request, kind domain.TableKind) (domain.Fields, bool) {
	body, err := readBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("failed to read body"))
		return nil, false
	}
	fields, err := domain.DecodeRecord(kind, body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return nil, false
	}
	return fields, true
}

func (h *TablesHandler) List(w http.ResponseWriter, r *http.Request, kind domain.TableKind) {
	user, _ := UserFrom(r.Context())
	rows, err := h.records.List(r.Context(), user, kind)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rows))
}

func (h *TablesHandler) Get(w http.ResponseWriter, r *http.Request, kind domain.TableKind, id int64) {
	user, _ := UserFrom(r.Context())
	rec, err := h.records.Get(r.Context(), user, kind, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rec))
}

// Validate is the pre-submit call: findings and derived values, nothing stored.
func (h *TablesHandler) Validate(w http.ResponseWriter, r *http.Request, kind domain.TableKind) {
	user, _ := UserFrom(r.Context())
	var editID int64
	if v := r.URL.Query().Get("edit_id"); v != "" {
		id, ok := parseInt64(v)
		if !ok {
			writeJSON(w, http.StatusBadRequest, Fail("edit_id must be an integer"))
			return
		}
		editID = id
	}
	fields, ok := h.decode(w, r, kind)
	if !ok {
		return
	}
	res, err := h.records.Preview(r.Context(), user, kind, fields, editID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

func (h *TablesHandler) Create(w http.ResponseWriter, r *http.Request, kind domain.TableKind) {
	user, _ := UserFrom(r.Context())
	fields, ok := h.decode(w, r, kind)
	if !ok {
		return
	}
	rec, err := h.records.Create(r.Context(), user, kind, fields)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(rec))
}

func (h *TablesHandler) Update(w http.ResponseWriter, r *http.Request, kind domain.TableKind, id int64) {
	user, _ := UserFrom(r.Context())
	fields, ok := h.decode(w, r, kind)
	if !ok {
		return
	}
	rec, err := h.records.Update(r.Context(), user, kind, id, fields)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rec))
}

func (h *TablesHandler) Delete(w http.ResponseWriter, r *http.Request, kind domain.TableKind, id int64) {
	user, _ := UserFrom(r.Context())
	if err := h.records.Delete(r.Context(), user, kind, id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]bool{"success": true}))
}

// Report renders the field report; ?send=true also pushes it to the webhook.
func (h *TablesHandler) Report(w http.ResponseWriter, r *http.Request, kind domain.TableKind, id int64) {
	user, _ := UserFrom(r.Context())
	rec, err := h.records.Get(r.Context(), user, kind, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	text, err := service.RenderReport(*rec)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	sent := false
	if r.URL.Query().Get("send") == "true" {
		if h.notifier == nil || !h.notifier.Enabled() {
			writeJSON(w, http.StatusBadRequest, Fail("report webhook is not configured"))
			return
		}
		if err := h.notifier.Send(r.Context(), *rec, text); err != nil {
			writeJSON(w, http.StatusBadGateway, Fail(err.Error()))
			return
		}
		sent = true
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"text": text, "sent": sent}))
}

func (h *TablesHandler) GeneralSummary(w http.ResponseWriter, r *http.Request) {
	rows, err := h.summary.General(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rows))
}

func (h *TablesHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.summary.Stats(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(stats))
}

func (h *TablesHandler) SetRig(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	var body struct {
		DDHID  string `json:"DDHID"`
		EQUIPO string `json:"EQUIPO"`
	}
	if err := readBodyJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	if err := h.summary.SetRig(r.Context(), user, body.DDHID, body.EQUIPO); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]bool{"success": true}))
}

func (h *TablesHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	var body struct {
		DDHID  string `json:"DDHID"`
		ESTADO string `json:"ESTADO"`
	}
	if err := readBodyJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	o, err := h.summary.SetStatus(r.Context(), user, body.DDHID, body.ESTADO)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(o))
}

func (h *TablesHandler) ClearStatus(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	ddhid := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tables/resumen/estado/"), "/")
	if ddhid == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err := h.summary.ClearStatus(r.Context(), user, ddhid); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"message": "reset"}))
}
