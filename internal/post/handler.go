package post

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

type CreatePostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type CreateCommentRequest struct {
	Content string `json:"content"`
}

// List serves GET /posts?author=&limit=&offset=. author=me resolves to the
// caller.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := utilities.ParsePage(q)
	if err != nil {
		h.writeError(w, "list posts", apperr.InvalidArgument(err.Error()))
		return
	}
	author := q.Get("author")
	if author == "me" {
		author, _ = token.AccountIDFrom(r.Context())
	}
	out, err := h.svc.List(r.Context(), author, page)
	if err != nil {
		h.writeError(w, "list posts failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, "get post failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := token.AccountIDFrom(r.Context())
	if !ok {
		h.writeError(w, "create post", apperr.ErrTokenMalformed)
		return
	}
	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "create post", apperr.InvalidArgument("invalid request payload"))
		return
	}
	p, err := h.svc.Create(r.Context(), id, req.Title, req.Content)
	if err != nil {
		h.writeError(w, "create post failed", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, p)
}

// Comment serves POST /comments/{post_id}.
func (h *Handler) Comment(w http.ResponseWriter, r *http.Request) {
	id, ok := token.AccountIDFrom(r.Context())
	if !ok {
		h.writeError(w, "comment", apperr.ErrTokenMalformed)
		return
	}
	var req CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "comment", apperr.InvalidArgument("invalid request payload"))
		return
	}
	c, err := h.svc.Comment(r.Context(), r.PathValue("post_id"), id, req.Content)
	if err != nil {
		h.writeError(w, "comment failed", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, c)
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
