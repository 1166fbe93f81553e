// Package api exposes the token signer over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/urfave/negroni"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/bunnysign/internal/config"
	"github.com/dharsanguruparan/bunnysign/internal/model"
	"github.com/dharsanguruparan/bunnysign/internal/signing"
)

// Version is reported by the health endpoint.
var Version = "1.0.0"

const (
	serviceName     = "Bunny.net Token Signer Service"
	shutdownTimeout = 5 * time.Second
)

// URLSigner signs a single path. *signing.Signer satisfies it.
type URLSigner interface {
	Sign(path string) (*model.SignedURL, error)
}

// Server exposes the health and signing endpoints.
type Server struct {
	cfg     *config.Config
	signer  URLSigner
	log     *zap.Logger
	handler http.Handler
	once    sync.Once
}

// New constructs a Server.
func New(cfg *config.Config, signer URLSigner, log *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		signer: signer,
		log:    log,
	}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	s.once.Do(func() {
		r := mux.NewRouter()
		r.HandleFunc("/", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
		r.HandleFunc("/sign", s.handleSign).Methods(http.MethodGet, http.MethodHead)
		r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
		// express answers unknown methods on known paths with the 404 body.
		r.MethodNotAllowedHandler = http.HandlerFunc(s.handleNotFound)

		n := negroni.New()
		n.Use(newRequestLogger(s.log))
		n.UseFunc(corsMiddleware)
		n.Use(newRecovery(s.log))
		n.UseHandler(r)
		s.handler = n
	})
	return s.handler
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	port := strconv.Itoa(s.cfg.Port)
	s.log.Info("token signer running", zap.String("address", s.cfg.Address()))
	s.log.Info("health check", zap.String("url", "http://localhost:"+port+"/"))
	s.log.Info("sign endpoint", zap.String("url", "http://localhost:"+port+"/sign?path=/yourfile.mp4"))
	if !s.cfg.SigningConfigured() {
		s.log.Warn("signing is not configured; /sign will answer 500",
			zap.Bool(config.EnvSigningKey, s.cfg.SigningKey != ""),
			zap.Bool(config.EnvBaseURL, s.cfg.BaseURL != ""))
	}

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, model.Health{
		Message: serviceName,
		Status:  "running",
		Version: Version,
	})
}

func (s *Server) handleSign(w http.ResponseWriter, r *http.Request) {
	// Get returns "" for both an absent and an empty parameter; both count
	// as missing.
	path := r.URL.Query().Get("path")
	signed, err := s.signer.Sign(path)
	if err != nil {
		s.respondSignError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, model.SignResponse{Success: true, Data: signed})
}

func (s *Server) respondSignError(w http.ResponseWriter, r *http.Request, err error) {
	switch signing.KindOf(err) {
	case signing.KindInput:
		respondError(w, http.StatusBadRequest,
			"Missing required parameter: path",
			"Please provide a path parameter (e.g., ?path=/yourfile.mp4)")
	case signing.KindConfig:
		env := config.EnvSigningKey
		if errors.Is(err, signing.ErrMissingBaseURL) {
			env = config.EnvBaseURL
		}
		loggerFrom(r, s.log).Error("signing misconfigured", zap.String("missing", env))
		respondError(w, http.StatusInternalServerError,
			"Server configuration error",
			env+" environment variable is not set")
	default:
		loggerFrom(r, s.log).Error("error signing token", zap.Error(err))
		respondError(w, http.StatusInternalServerError,
			"Internal server error",
			"Failed to generate signed URL")
	}
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, "Not found", "The requested endpoint does not exist")
}

func respondError(w http.ResponseWriter, status int, title, message string) {
	respondJSON(w, status, model.ErrorResponse{Error: title, Message: message})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	// The status line is already out; an encode failure only means the
	// client went away.
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
