package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// sensitiveFields are header or field names that never reach the logs.
var sensitiveFields = []string{
	"password",
	"password_hash",
	"token",
	"access_token",
	"refresh_token",
	"authorization",
	"secret",
	"api_key",
	"signature",
	"credential",
}

func LoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			logger.Info("incoming request",
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"headers", filterSensitiveHeaders(r.Header),
			)

			ww := &responseWriter{ResponseWriter: w}

			next.ServeHTTP(ww, r)

			statusCode := ww.statusCode
			if statusCode == 0 {
				statusCode = http.StatusOK
			}

			logLevel := slog.LevelInfo
			if statusCode >= 400 && statusCode < 500 {
				logLevel = slog.LevelWarn
			} else if statusCode >= 500 {
				logLevel = slog.LevelError
			}

			logger.Log(r.Context(), logLevel, "response",
				"method", r.Method,
				"path", r.URL.Path,
				"status_code", statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"response_size", ww.size,
			)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

func filterSensitiveHeaders(headers http.Header) map[string]string {
	filtered := make(map[string]string)

	for name, values := range headers {
		lowerName := strings.ToLower(name)

		isSensitive := false
		for _, sensitiveField := range sensitiveFields {
			if strings.Contains(lowerName, sensitiveField) {
				isSensitive = true
				break
			}
		}

		if isSensitive {
			filtered[name] = "[FILTERED]"
		} else {
			filtered[name] = strings.Join(values, ", ")
		}
	}

	return filtered
}
