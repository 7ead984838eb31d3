package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kmallmaperez/geocore/internal/domain"
	"github.com/kmallmaperez/geocore/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// TransferHandler serves /api/import/ and /api/export/.
type TransferHandler struct {
	records service.RecordService
	export  service.ExportService
	logger  *zap.Logger
}

func NewTransferHandler(records service.RecordService, export service.ExportService, logger *zap.Logger) *TransferHandler {
	return &TransferHandler{records: records, export: export, logger: logger}
}

// Import takes {"rows": [...]} or a multipart "file" (.xlsx or .csv).
func (h *TransferHandler) Import(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	kind, err := domain.ParseTableKind(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/import/"), "/"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, Fail(err.Error()))
		return
	}

	var rows []map[string]any
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("failed to parse form"))
			return
		}
		file, hdr, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("file not found in request"))
			return
		}
		defer file.Close()
		if rows, err = service.ParseSheet(hdr.Filename, file); err != nil {
			writeError(w, h.logger, err)
			return
		}
	} else {
		var body struct {
			Rows []map[string]any `json:"rows"`
		}
		if err := readBodyJSON(r, &body); err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
			return
		}
		rows = body.Rows
	}

	res, err := h.records.Import(r.Context(), user, kind, rows)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// Export serves all, resumen[.xlsx], {table} and {table}.xlsx.
func (h *TransferHandler) Export(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/export/"), "/")
	ctx := r.Context()

	switch name {
	case "all":
		all, err := h.export.All(ctx, user)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(all))
		return
	case "resumen":
		sum, err := h.export.Summary(ctx)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(sum))
		return
	case "resumen.xlsx":
		data, err := h.export.SummaryXLSX(ctx)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeXLSX(w, "resumen.xlsx", data)
		return
	}

	if base, ok := strings.CutSuffix(name, ".xlsx"); ok {
		kind, err := domain.ParseTableKind(base)
		if err != nil {
			writeJSON(w, http.StatusNotFound, Fail(err.Error()))
			return
		}
		data, err := h.export.TableXLSX(ctx, kind)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeXLSX(w, name, data)
		return
	}

	kind, err := domain.ParseTableKind(name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, Fail(err.Error()))
		return
	}
	t, err := h.export.Table(ctx, kind)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(t))
}

func writeXLSX(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
