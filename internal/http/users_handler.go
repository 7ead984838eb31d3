package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kmallmaperez/geocore/internal/service"
)

type UsersHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

func NewUsersHandler(userService service.UserService, logger *zap.Logger) *UsersHandler {
	return &UsersHandler{userService: userService, logger: logger}
}

func (h *UsersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/users"), "/")
	if rest == "" {
		switch r.Method {
		case http.MethodGet:
			h.List(w, r)
		case http.MethodPost:
			h.Create(w, r)
		default:
			methodNotAllowed(w)
		}
		return
	}
	id, ok := parseInt64(rest)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	h.Update(w, r, id)
}

func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := UserFrom(r.Context())
	users, err := h.userService.List(r.Context(), actor)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(users))
}

func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := UserFrom(r.Context())
	var req service.CreateUserRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	u, err := h.userService.Create(r.Context(), actor, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(u))
}

func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request, id int64) {
	actor, _ := UserFrom(r.Context())
	var req service.UpdateUserRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	u, err := h.userService.Update(r.Context(), actor, id, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(u))
}
