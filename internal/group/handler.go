package group

import (
	"encoding/json"
	"net/http"

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

type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// List serves GET /groups?member=me&limit=&offset=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := utilities.ParsePage(q)
	if err != nil {
		h.writeError(w, "list groups", apperr.InvalidArgument(err.Error()))
		return
	}
	member := q.Get("member")
	if member == "me" {
		member, _ = token.AccountIDFrom(r.Context())
	}
	out, err := h.svc.List(r.Context(), member, page)
	if err != nil {
		h.writeError(w, "list groups failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, "get group failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, g)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := token.AccountIDFrom(r.Context())
	if !ok {
		h.writeError(w, "create group", apperr.ErrTokenMalformed)
		return
	}
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "create group", apperr.InvalidArgument("invalid request payload"))
		return
	}
	g, err := h.svc.Create(r.Context(), id, req.Name, req.Description)
	if err != nil {
		h.writeError(w, "create group failed", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, g)
}

func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	id, ok := token.AccountIDFrom(r.Context())
	if !ok {
		h.writeError(w, "join group", apperr.ErrTokenMalformed)
		return
	}
	g, err := h.svc.Join(r.Context(), r.PathValue("id"), id)
	if err != nil {
		h.writeError(w, "join group failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, g)
}

func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	id, ok := token.AccountIDFrom(r.Context())
	if !ok {
		h.writeError(w, "leave group", apperr.ErrTokenMalformed)
		return
	}
	if err := h.svc.Leave(r.Context(), r.PathValue("id"), id); err != nil {
		h.writeError(w, "leave group failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
