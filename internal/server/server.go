// Package server exposes the matcher over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/embedding"
	"github.com/spigell/resume-matcher/internal/extraction"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/matching"
)

const (
	DefaultListen         = ":8080"
	DefaultMaxUploadBytes = 10 << 20

	resumeField     = "resume"
	shutdownTimeout = 10 * time.Second
)

type Config struct {
	Listen         string
	MaxUploadBytes int64
	RateLimit      RateLimitConfig
	// CacheStats, when set, is reported on /health.
	CacheStats     func() embedding.CacheStats
}

// Recommender is the part of matching.Matcher the server needs.
type Recommender interface {
	Recommend(ctx context.Context, req matching.Request) (*matching.Result, error)
}

type Server struct {
	cfg     Config
	rec     Recommender
	limiter *RateLimiter
	logger  *zap.Logger
	started time.Time
}

func New(cfg Config, rec Recommender, log *zap.Logger) *Server {
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Server{
		cfg:     cfg,
		rec:     rec,
		limiter: NewRateLimiter(cfg.RateLimit),
		logger:  log,
		started: time.Now(),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /api/recommend", s.withRateLimit(http.HandlerFunc(s.handleRecommend)))
	mux.HandleFunc("GET /health", s.handleHealth)
	return s.withRequestID(mux)
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go s.limiter.RunCleanup(cleanupCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("listen", s.cfg.Listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type ctxKey struct{}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		reqLogger := s.logger.With(logger.RequestFields(id, "")...)
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, reqLogger)))
		reqLogger.Debug("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	if l, ok := r.Context().Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return s.logger
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := ClientID(r)
		info := s.limiter.Allow(clientID)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.Itoa(int(info.Reset.Round(time.Second)/time.Second)))

		if !info.Allowed {
			s.requestLogger(r).Warn("rate limit exceeded", zap.String("client", clientID))
			w.Header().Set("Retry-After", strconv.Itoa(max(1, int(info.Reset.Round(time.Second)/time.Second))))
			s.errorResponse(w, ErrRateLimited)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type recommendResponse struct {
	Success bool `json:"success"`
	*matching.Result
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	log := s.requestLogger(r)
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1<<20)

	file, header, err := r.FormFile(resumeField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			err = ErrNoFile
		} else {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				err = fmt.Errorf("upload exceeds %d bytes: %w", s.cfg.MaxUploadBytes, extraction.ErrTooLarge)
			}
		}
		s.fail(w, log, err)
		return
	}
	defer file.Close()

	log = log.With(zap.String(logger.FieldFile, header.Filename))
	log.Info("resume received", zap.Int64("size", header.Size))

	text, err := readResume(file, header, s.cfg.MaxUploadBytes)
	if err != nil {
		s.fail(w, log, err)
		return
	}

	result, err := s.rec.Recommend(r.Context(), matching.Request{Text: text, Logger: log})
	if err != nil {
		s.fail(w, log, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, recommendResponse{Success: true, Result: result})
}

func readResume(file multipart.File, header *multipart.FileHeader, limit int64) (string, error) {
	return extraction.ReadAll(header.Filename, header.Header.Get("Content-Type"), file, limit)
}

type health struct {
	Status string                `json:"status"`
	Uptime string                `json:"uptime"`
	Cache  *embedding.CacheStats `json:"cache,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := health{
		Status: "ok",
		Uptime: time.Since(s.started).Round(time.Second).String(),
	}
	if s.cfg.CacheStats != nil {
		stats := s.cfg.CacheStats()
		resp.Cache = &stats
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) fail(w http.ResponseWriter, log *zap.Logger, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
	} else {
		log.Info("request rejected", zap.Int("status", status), zap.Error(err))
	}
	s.jsonResponse(w, status, newErrorBody(status, err))
}

func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	s.jsonResponse(w, status, newErrorBody(status, err))
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encoding response failed", zap.Error(err))
	}
}
