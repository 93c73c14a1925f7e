package notification

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-forum-core/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/token"
	"github.com/ovaphlow/pitchfork/service-forum-core/pkg/utilities"
)

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// List serves GET /notifications?unread=true&limit=&offset=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := token.AccountIDFrom(r.Context())
	if !ok {
		h.writeError(w, "notifications", apperr.ErrTokenMalformed)
		return
	}
	q := r.URL.Query()
	page, err := utilities.ParsePage(q)
	if err != nil {
		h.writeError(w, "notifications", apperr.InvalidArgument(err.Error()))
		return
	}
	unread := false
	if v := q.Get("unread"); v != "" {
		if unread, err = strconv.ParseBool(v); err != nil {
			h.writeError(w, "notifications", apperr.InvalidArgument("unread must be a boolean"))
			return
		}
	}
	out, err := h.svc.List(r.Context(), id, unread, page)
	if err != nil {
		h.writeError(w, "list notifications failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := token.AccountIDFrom(r.Context())
	if !ok {
		h.writeError(w, "mark read", apperr.ErrTokenMalformed)
		return
	}
	if err := h.svc.MarkRead(r.Context(), id, r.PathValue("id")); err != nil {
		h.writeError(w, "mark read failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	id, ok := token.AccountIDFrom(r.Context())
	if !ok {
		h.writeError(w, "mark all read", apperr.ErrTokenMalformed)
		return
	}
	n, err := h.svc.MarkAllRead(r.Context(), id)
	if err != nil {
		h.writeError(w, "mark all read failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
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
