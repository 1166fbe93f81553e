package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/negroni"
	"go.uber.org/zap"
)

type ctxKey int

const loggerKey ctxKey = iota

// loggerFrom returns the request-scoped logger installed by requestLogger, or
// fallback when there is none.
func loggerFrom(r *http.Request, fallback *zap.Logger) *zap.Logger {
	if l, ok := r.Context().Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return fallback
}

type requestLogger struct {
	log *zap.Logger
}

func newRequestLogger(log *zap.Logger) *requestLogger {
	return &requestLogger{log: log}
}

func (m *requestLogger) ServeHTTP(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	start := time.Now()
	reqLog := m.log.With(zap.String("request-id", uuid.NewString()))
	reqLog.Debug("HTTP request started",
		zap.String("method", r.Method),
		zap.String("path", r.URL.RequestURI()),
		zap.String("user-agent", r.UserAgent()),
	)

	rw, ok := w.(negroni.ResponseWriter)
	if !ok {
		rw = negroni.NewResponseWriter(w)
	}
	next(rw, r.WithContext(context.WithValue(r.Context(), loggerKey, reqLog)))

	reqLog.Info("HTTP request completed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status-code", rw.Status()),
		zap.Int("body-size", rw.Size()),
		zap.Duration("duration", time.Since(start)),
	)
}

// recovery turns a panic in a handler into the generic 500 body.
type recovery struct {
	log *zap.Logger
}

func newRecovery(log *zap.Logger) *recovery {
	return &recovery{log: log}
}

func (m *recovery) ServeHTTP(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	defer func() {
		if e := recover(); e != nil {
			loggerFrom(r, m.log).Error("unhandled error", zap.String("error", fmt.Sprintf("%+v", e)), zap.Stack("stack"))
			respondError(w, http.StatusInternalServerError, "Internal server error", "An unexpected error occurred")
		}
	}()
	next(w, r)
}

// corsMiddleware allows every origin, matching the cors() defaults.
func corsMiddleware(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Methods", "GET,HEAD,PUT,PATCH,POST,DELETE")
		if h := r.Header.Get("Access-Control-Request-Headers"); h != "" {
			w.Header().Set("Access-Control-Allow-Headers", h)
			w.Header().Add("Vary", "Access-Control-Request-Headers")
		}
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	next(w, r)
}
