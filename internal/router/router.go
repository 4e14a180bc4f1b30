package router

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/reservalia/service-accounts-go/internal/account"
	"github.com/reservalia/service-accounts-go/internal/auth"
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

// LoggingMiddleware logs requests at debug level using the provided sugared logger.
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

// SecurityHeadersMiddleware sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RegisterRoutes mounts the account and auth endpoints on a stdlib ServeMux.
// Registration and the auth endpoints are public; everything else requires a
// bearer token or a session cookie.
func RegisterRoutes(logger *zap.SugaredLogger, accounts account.Repository, sessions auth.SessionStore, authCfg auth.Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	hasher := account.BcryptHasher{Cost: 12}
	accountSvc := account.NewService(accounts, hasher)
	accountHandler := account.NewHandler(accountSvc, logger)

	authSvc := auth.NewService(accounts, sessions, hasher, authCfg)
	authHandler := auth.NewHandler(authSvc, logger)

	mux.HandleFunc("POST /accounts", accountHandler.Create)
	mux.HandleFunc("GET /accounts", authHandler.Require(accountHandler.List))
	mux.HandleFunc("GET /accounts/{externalId}", authHandler.Require(accountHandler.Retrieve))
	mux.HandleFunc("PUT /accounts/{externalId}", authHandler.Require(accountHandler.Update))
	mux.HandleFunc("PATCH /accounts/{externalId}", authHandler.Require(accountHandler.Update))
	mux.HandleFunc("DELETE /accounts/{externalId}", authHandler.Require(accountHandler.Delete))

	mux.HandleFunc("POST /auth/login", authHandler.Login)
	mux.HandleFunc("GET /auth/logout", authHandler.Logout)
	mux.HandleFunc("POST /auth/token", authHandler.Token)
	mux.HandleFunc("POST /auth/token/refresh", authHandler.Refresh)

	return LoggingMiddleware(logger)(SecurityHeadersMiddleware()(mux))
}
