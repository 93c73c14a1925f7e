package economy

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-forum-core/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/token"
)

// Handler exposes the check-in and upgrade endpoints. Both expect the
// account id to have been placed in the request context by the auth
// middleware.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type CheckInResponse struct {
	Points int64 `json:"points"`
}

func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	id, ok := token.AccountIDFrom(r.Context())
	if !ok {
		h.writeError(w, "check-in", apperr.ErrTokenMalformed)
		return
	}
	points, err := h.svc.CheckIn(r.Context(), id)
	if err != nil {
		h.writeError(w, "check-in failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, CheckInResponse{Points: points})
}

// UpgradeRequest names the number of points the caller spends on one level.
type UpgradeRequest struct {
	Points *int64 `json:"points"`
}

type UpgradeResponse struct {
	Level  int64 `json:"level"`
	Points int64 `json:"points"`
}

func (h *Handler) Upgrade(w http.ResponseWriter, r *http.Request) {
	id, ok := token.AccountIDFrom(r.Context())
	if !ok {
		h.writeError(w, "upgrade", apperr.ErrTokenMalformed)
		return
	}
	var req UpgradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid upgrade payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if req.Points == nil {
		h.writeError(w, "upgrade", apperr.InvalidArgument("points is required"))
		return
	}
	level, points, err := h.svc.Upgrade(r.Context(), id, *req.Points)
	if err != nil {
		h.writeError(w, "upgrade failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, UpgradeResponse{Level: level, Points: points})
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
