package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/kmallmaperez/geocore/internal/service"
)

type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

// Login accepts {login, password}; "email" is read when login is empty.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Login    string `json:"login"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readBodyJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	if body.Login == "" {
		body.Login = body.Email
	}

	resp, err := h.authService.Login(r.Context(), service.LoginRequest{
		Login:     body.Login,
		Password:  body.Password,
		IPAddress: getClientIP(r),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"token": resp.Token,
		"user":  claimsFrom(resp.User),
	}))
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFrom(r.Context())
	writeJSON(w, http.StatusOK, Ok(map[string]any{"user": claimsFrom(u)}))
}
