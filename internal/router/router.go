package router

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-forum-core/internal/account"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/economy"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/group"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/notification"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/post"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/token"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware returns a middleware that logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Clickjacking protection
			w.Header().Set("X-Frame-Options", "DENY")

			// Referrer policy
			w.Header().Set("Referrer-Policy", "no-referrer")
			w.Header().Set("Cache-Control", "no-store")

			// Permissions policy
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

			// API responses are JSON only
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			}

			// HSTS only over TLS
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// TokenVerifier resolves a bearer token to an account id.
type TokenVerifier interface {
	Verify(raw string) (string, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// verified account id in the request context.
func RequireAuth(verifier TokenVerifier, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(strings.ToLower(auth), "bearer ") {
				writeError(w, apperr.ErrTokenMalformed)
				return
			}
			raw := strings.TrimSpace(auth[len("bearer "):])
			id, err := verifier.Verify(raw)
			if err != nil {
				logger.Debugw("bearer token rejected", "path", r.URL.Path, "err", err)
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(token.WithAccountID(r.Context(), id)))
		})
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, body := apperr.Response(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Handlers groups the endpoint handlers mounted by RegisterRoutes.
type Handlers struct {
	Accounts      *account.Handler
	Economy       *economy.Handler
	Posts         *post.Handler
	Groups        *group.Handler
	Notifications *notification.Handler
	Verifier      TokenVerifier
}

const prefix = "/forum-api-core"

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, h Handlers) http.Handler {
	mux := http.NewServeMux()
	auth := RequireAuth(h.Verifier, logger)

	// health
	mux.HandleFunc("GET "+prefix+"/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// account lifecycle
	mux.HandleFunc("POST "+prefix+"/register", h.Accounts.Register)
	mux.HandleFunc("POST "+prefix+"/login", h.Accounts.Login)
	mux.HandleFunc("POST "+prefix+"/forgot-password", h.Accounts.ForgotPassword)
	mux.HandleFunc("POST "+prefix+"/reset-password/{token}", h.Accounts.ResetPassword)
	mux.Handle("GET "+prefix+"/me", auth(http.HandlerFunc(h.Accounts.Me)))

	// economy
	mux.Handle("POST "+prefix+"/check-in", auth(http.HandlerFunc(h.Economy.CheckIn)))
	mux.Handle("POST "+prefix+"/upgrade", auth(http.HandlerFunc(h.Economy.Upgrade)))

	// posts and comments
	mux.Handle("GET "+prefix+"/posts", auth(http.HandlerFunc(h.Posts.List)))
	mux.Handle("POST "+prefix+"/posts", auth(http.HandlerFunc(h.Posts.Create)))
	mux.Handle("GET "+prefix+"/posts/{id}", auth(http.HandlerFunc(h.Posts.Get)))
	mux.Handle("POST "+prefix+"/comments/{post_id}", auth(http.HandlerFunc(h.Posts.Comment)))

	// groups
	mux.Handle("GET "+prefix+"/groups", auth(http.HandlerFunc(h.Groups.List)))
	mux.Handle("POST "+prefix+"/groups", auth(http.HandlerFunc(h.Groups.Create)))
	mux.Handle("GET "+prefix+"/groups/{id}", auth(http.HandlerFunc(h.Groups.Get)))
	mux.Handle("POST "+prefix+"/groups/{id}/join", auth(http.HandlerFunc(h.Groups.Join)))
	mux.Handle("POST "+prefix+"/groups/{id}/leave", auth(http.HandlerFunc(h.Groups.Leave)))

	// notifications
	mux.Handle("GET "+prefix+"/notifications", auth(http.HandlerFunc(h.Notifications.List)))
	mux.Handle("POST "+prefix+"/notifications/{id}/read", auth(http.HandlerFunc(h.Notifications.MarkRead)))
	mux.Handle("POST "+prefix+"/notifications/read-all", auth(http.HandlerFunc(h.Notifications.MarkAllRead)))

	// wrap with security headers middleware then logging middleware
	return LoggingMiddleware(logger)(SecurityHeadersMiddleware()(mux))
}
