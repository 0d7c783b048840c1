package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	GenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roteirista_generations_total",
			Help: "Total de roteiros gerados por modelo e resultado",
		},
		[]string{"model", "status"},
	)

	TokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roteirista_tokens_total",
			Help: "Tokens consumidos por modelo e direção",
		},
		[]string{"model", "direction"},
	)

	CostBRLTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roteirista_cost_brl_total",
			Help: "Custo estimado acumulado em reais",
		},
		[]string{"model"},
	)

	ProviderFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roteirista_provider_failures_total",
			Help: "Falhas de chamada por provedor",
		},
		[]string{"provider"},
	)

	CalibrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roteirista_calibrations_total",
			Help: "Calibragens por resultado (ok ou degradado)",
		},
		[]string{"result"},
	)

	PropagatedRulesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roteirista_propagated_rules_total",
			Help: "Regras aprendidas gravadas na base por tipo",
		},
		[]string{"kind"},
	)

	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roteirista_generation_duration_seconds",
			Help:    "Duração das chamadas de geração",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 60, 120},
		},
		[]string{"provider"},
	)
)

var registerOnce sync.Once

// Register registra os coletores no registry padrão. Pode ser chamado mais
// de uma vez.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			GenerationsTotal,
			TokensTotal,
			CostBRLTotal,
			ProviderFailuresTotal,
			CalibrationsTotal,
			PropagatedRulesTotal,
			GenerationDuration,
		)
	})
}

// Handler expõe /metrics para quem já tem um servidor HTTP.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}

// Start sobe o endpoint de métricas numa porta própria, em background.
func Start(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	go func() {
		if err := http.ListenAndServe(":"+port, mux); err != nil && err != http.ErrServerClosed {
			zap.L().Error("servidor de métricas parou", zap.String("port", port), zap.Error(err))
		}
	}()
}

// RecordGeneration contabiliza uma geração concluída.
func RecordGeneration(modelID, status string, tokensIn, tokensOut int, costBRL float64) {
	GenerationsTotal.WithLabelValues(modelID, status).Inc()
	TokensTotal.WithLabelValues(modelID, "in").Add(float64(tokensIn))
	TokensTotal.WithLabelValues(modelID, "out").Add(float64(tokensOut))
	CostBRLTotal.WithLabelValues(modelID).Add(costBRL)
}
