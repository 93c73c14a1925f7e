package account

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-forum-core/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/token"
)

// Handler exposes HTTP endpoints for the account lifecycle.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRequest request body for the register endpoint.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid register payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	a, err := h.svc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.writeError(w, "register failed", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, a.Profile())
}

// LoginRequest login payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token and the account it belongs to.
type LoginResponse struct {
	Token     string         `json:"token"`
	TokenType string         `json:"token_type"`
	Account   entity.Profile `json:"account"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	a, tok, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, "login failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, LoginResponse{Token: tok, TokenType: "Bearer", Account: a.Profile()})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid forgot-password payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.writeError(w, "password reset request failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "password reset token sent"})
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid reset-password payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.svc.RedeemPasswordReset(r.Context(), r.PathValue("token"), req.Password); err != nil {
		h.writeError(w, "password reset failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "password has been reset"})
}

// Me returns the profile of the authenticated account.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := token.AccountIDFrom(r.Context())
	if !ok {
		h.writeError(w, "me", apperr.ErrTokenMalformed)
		return
	}
	a, err := h.svc.Profile(r.Context(), id)
	if err != nil {
		h.writeError(w, "profile lookup failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, a.Profile())
}

func (h *Handler) writeError(w http.ResponseWriter, msg string, err error) {
	status, body := apperr.Response(err)
	if status >= http.StatusInternalServerError {
		h.logger.Warnw(msg, "err", err)
	} else {
		h.logger.Debugw(msg, "err", err)
	}
	h.writeJSON(w, status, body)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
