// Package api expõe a geração, o lote e a calibragem de roteiros por HTTP
// para a interface web.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"roteirista/internal/batch"
	"roteirista/internal/calibration"
	"roteirista/internal/cost"
	"roteirista/internal/llm"
	"roteirista/internal/repository"
	"roteirista/internal/roteiro"
	"roteirista/internal/session"
)

type Generator interface {
	Generate(ctx context.Context, req roteiro.Request) (*roteiro.Result, error)
}

type Calibrator interface {
	Calibrate(ctx context.Context, in calibration.Input) *calibration.Outcome
}

type BatchRunner interface {
	Run(ctx context.Context, codes []string, template roteiro.Request) []batch.Item
}

// Availability informa quais provedores têm credencial.
type Availability interface {
	Available() []llm.Provider
}

type Server struct {
	Generator  Generator
	Recorder   batch.Recorder
	Calibrator Calibrator
	Batch      BatchRunner
	Facts      batch.FactsSource
	Store      repository.Store
	Sessions   session.Store
	Costs      *cost.Accountant
	Providers  Availability
	Log        *zap.Logger
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.L()
	}
	return s.Log
}

func (s *Server) costs() *cost.Accountant {
	if s.Costs == nil {
		return cost.NewAccountant(cost.DefaultRates(), cost.DefaultUSDToBRL)
	}
	return s.Costs
}

// Routes monta o roteador com CORS para as origens permitidas.
func (s *Server) Routes(allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/roteiros", s.handleGenerate)
	r.Post("/lote", s.handleBatch)
	r.Post("/calibragens", s.handleCalibrate)
	r.Get("/categorias", s.handleCategories)
	r.Get("/modelos", s.handleModels)
	r.Route("/historico", func(r chi.Router) {
		r.Get("/", s.handleHistory)
		r.Get("/calibragens", s.handleCalibrationHistory)
	})
	r.Get("/sessoes/{id}", s.handleSession)

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger().Info("http",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duracao", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

type errorResponse struct {
	Error string `json:"erro"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
