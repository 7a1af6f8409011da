package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spaarke-dev/spaarke-sub016/internal/ports"
	"github.com/spaarke-dev/spaarke-sub016/internal/reqcache"
)

// requestIDHeader is honored when a gateway in front of the service already
// assigned an id; otherwise one is generated.
const requestIDHeader = "X-Request-Id"

// RequestID returns a middleware that assigns every request a correlation id,
// echoes it in the response header, and stores it in the request context.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)
			ctx := SetRequestIDInContext(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", GetRequestIDFromContext(r.Context())),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticate returns a middleware that verifies the bearer credential and
// places the principal, the raw credential, and a fresh per-request cache in
// the request context. Verification happens before any cache or rule logic;
// failures are terminal 401s with the detail logged, never disclosed.
func Authenticate(verifier ports.TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeNotAuthenticated(w)
				return
			}

			principal, err := verifier.Verify(r.Context(), raw)
			if err != nil {
				if r.Context().Err() != nil {
					// Client is gone; no response will be read.
					return
				}
				logger.InfoContext(r.Context(), "authentication failed",
					"error", err,
					"request_id", GetRequestIDFromContext(r.Context()))
				writeNotAuthenticated(w)
				return
			}

			ctx := SetPrincipalInContext(r.Context(), principal)
			ctx = SetInboundCredentialInContext(ctx, raw)
			ctx = reqcache.NewContext(ctx, reqcache.New())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the credential from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// writeNotAuthenticated writes the terminal 401. The body is constant; the
// failure detail stays in the server logs.
func writeNotAuthenticated(w http.ResponseWriter) {
	WriteError(w, ErrorParams{
		Code:    http.StatusUnauthorized,
		ErrCode: "not_authenticated",
		Err:     errors.New("not authenticated"),
	})
}

// writeNotAuthorized writes the concealed 403. The denial reason is logged by
// the authorization service, never returned to the caller.
func writeNotAuthorized(w http.ResponseWriter) {
	WriteError(w, ErrorParams{
		Code:    http.StatusForbidden,
		ErrCode: "not_authorized",
		Err:     errors.New("not authorized"),
	})
}
