// Package batch gera roteiros para vários códigos de produto em sequência,
// com intervalo mínimo entre as chamadas ao provedor.
package batch

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"roteirista/internal/model"
	"roteirista/internal/roteiro"
)

// Status de cada item do lote.
const (
	StatusOK           = "ok"
	StatusInsufficient = roteiro.StatusInsufficient
	StatusError        = "erro"
)

type FactsSource interface {
	FetchFacts(ctx context.Context, codeOrURL string) (model.Facts, error)
}

type Generator interface {
	Generate(ctx context.Context, req roteiro.Request) (*roteiro.Result, error)
}

type Recorder interface {
	Record(ctx context.Context, req roteiro.Request, res *roteiro.Result)
}

// Item é o resultado de um código do lote.
type Item struct {
	Code     string          `json:"codigo"`
	Status   string          `json:"status"`
	Result   *roteiro.Result `json:"resultado,omitempty"`
	Err      error           `json:"-"`
	ErrorMsg string          `json:"erro,omitempty"`
}

type Runner struct {
	Facts     FactsSource
	Generator Generator
	Recorder  Recorder
	Limiter   *rate.Limiter
	// OnItem é chamado ao fim de cada código, na ordem do lote.
	OnItem func(Item)
	Log    *zap.Logger
}

// NewRunner cria um Runner com no máximo uma chamada ao provedor a cada
// cooldown. cooldown <= 0 desliga o intervalo.
func NewRunner(facts FactsSource, gen Generator, rec Recorder, cooldown time.Duration) *Runner {
	limit := rate.Inf
	if cooldown > 0 {
		limit = rate.Every(cooldown)
	}
	return &Runner{
		Facts:     facts,
		Generator: gen,
		Recorder:  rec,
		Limiter:   rate.NewLimiter(limit, 1),
		Log:       zap.L().With(zap.String("component", "batch")),
	}
}

func (r *Runner) logger() *zap.Logger {
	if r.Log == nil {
		return zap.L()
	}
	return r.Log
}

// Run processa os códigos um a um. A falha de um código fica no Item e o lote
// segue; o cancelamento do contexto interrompe o lote.
func (r *Runner) Run(ctx context.Context, codes []string, template roteiro.Request) []Item {
	log := r.logger()
	items := make([]Item, 0, len(codes))

	for i, code := range codes {
		if ctx.Err() != nil {
			log.Info("lote interrompido", zap.Int("processados", i), zap.Int("total", len(codes)))
			break
		}

		item := r.runOne(ctx, code, template)
		if item.Err != nil && ctx.Err() != nil {
			break
		}
		items = append(items, item)
		if r.OnItem != nil {
			r.OnItem(item)
		}
		log.Info("item do lote concluído",
			zap.String("produto", code),
			zap.String("status", item.Status),
			zap.Int("posicao", i+1),
			zap.Int("total", len(codes)))
	}
	return items
}

func (r *Runner) runOne(ctx context.Context, code string, template roteiro.Request) Item {
	item := Item{Code: code}

	facts, err := r.Facts.FetchFacts(ctx, code)
	if err != nil {
		r.logger().Warn("ficha não extraída", zap.String("produto", code), zap.Error(err))
	}

	// Ficha com falha não chega ao provedor, então não espera o intervalo.
	if !facts.Failed() && r.Limiter != nil {
		if err := r.Limiter.Wait(ctx); err != nil {
			return item.fail(err)
		}
	}

	// Campos de um produto só não valem para o lote; o nome sai do próprio
	// roteiro gerado.
	req := template
	req.Facts = facts
	req.ProductCode = code
	req.ProductName = ""
	req.SubCodes = ""
	req.SupplierVideo = ""

	res, err := r.Generator.Generate(ctx, req)
	if err != nil {
		return item.fail(err)
	}
	if r.Recorder != nil {
		r.Recorder.Record(ctx, req, res)
	}

	item.Result = res
	item.Status = StatusOK
	if res.Insufficient {
		item.Status = StatusInsufficient
	}
	return item
}

func (it Item) fail(err error) Item {
	it.Status = StatusError
	it.Err = err
	it.ErrorMsg = err.Error()
	return it
}
