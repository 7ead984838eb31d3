package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Router uses the standard http.ServeMux; handlers check methods themselves.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	reqID := req.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", reqID)

	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	r.mux.ServeHTTP(rec, req)

	r.logger.Debug("http request",
		zap.String("request_id", reqID),
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", rec.status),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// RegisterHealthRoutes: liveness probe.
func (r *Router) RegisterHealthRoutes() {
	r.Handle("/api/health", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})
}

// RegisterAuthRoutes: login and current user.
func (r *Router) RegisterAuthRoutes(h *AuthHandler, a *Authenticator) {
	r.Handle("/api/auth/login", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.Login(w, req)
	})
	r.Handle("/api/auth/me", a.Require(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.Me(w, req)
	}))
}

// RegisterUserRoutes: account administration.
func (r *Router) RegisterUserRoutes(h *UsersHandler, a *Authenticator) {
	r.Handle("/api/users", a.Require(h.ServeHTTP))
	r.Handle("/api/users/", a.Require(h.ServeHTTP))
}

// RegisterTableRoutes: records, summary and field reports. The fixed summary
// paths are registered ahead of the /api/tables/ prefix and win over it.
func (r *Router) RegisterTableRoutes(h *TablesHandler, a *Authenticator) {
	r.Handle("/api/tables/resumen/general", a.Require(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.GeneralSummary(w, req)
	}))
	r.Handle("/api/tables/dashboard/stats", a.Require(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.DashboardStats(w, req)
	}))
	r.Handle("/api/tables/resumen/equipo", a.Require(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPut {
			methodNotAllowed(w)
			return
		}
		h.SetRig(w, req)
	}))
	r.Handle("/api/tables/resumen/estado", a.Require(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPut {
			methodNotAllowed(w)
			return
		}
		h.SetStatus(w, req)
	}))
	r.Handle("/api/tables/resumen/estado/", a.Require(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		h.ClearStatus(w, req)
	}))
	r.Handle("/api/tables/", a.Require(h.ServeHTTP))
}

// RegisterTransferRoutes: import and export.
func (r *Router) RegisterTransferRoutes(h *TransferHandler, a *Authenticator) {
	r.Handle("/api/import/", a.Require(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.Import(w, req)
	}))
	r.Handle("/api/export/", a.Require(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.Export(w, req)
	}))
}
