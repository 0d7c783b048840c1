package roteiro

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"roteirista/internal/cost"
	"roteirista/internal/llm"
	"roteirista/internal/model"
	"roteirista/internal/observability"
	"roteirista/internal/repository"
)

// Status gravados no histórico.
const (
	StatusGenerated    = "gerado"
	StatusInsufficient = "dados_insuficientes"
)

// Resolver entrega o cliente de um modelo. *llm.Resolver implementa.
type Resolver interface {
	Resolve(modelID string) (llm.Client, error)
}

// Result é o roteiro gerado com os metadados de uso.
type Result struct {
	Text         string  `json:"roteiro"`
	ModelID      string  `json:"model_id"`
	TokensIn     int     `json:"tokens_in"`
	TokensOut    int     `json:"tokens_out"`
	Cost         float64 `json:"custo_brl"`
	Insufficient bool    `json:"dados_insuficientes"`
}

// Status devolve o status do histórico para o resultado.
func (r *Result) Status() string {
	if r.Insufficient {
		return StatusInsufficient
	}
	return StatusGenerated
}

// Generator orquestra montagem do prompt, chamada ao provedor, correção do
// cabeçalho e custo. Não tenta outro provedor em caso de falha.
type Generator struct {
	Assembler    *Assembler
	Resolver     Resolver
	Costs        *cost.Accountant
	DefaultModel string
	Log          *zap.Logger
}

func NewGenerator(a *Assembler, r Resolver, costs *cost.Accountant, defaultModel string) *Generator {
	return &Generator{
		Assembler:    a,
		Resolver:     r,
		Costs:        costs,
		DefaultModel: defaultModel,
		Log:          zap.L().With(zap.String("component", "roteiro")),
	}
}

func (g *Generator) logger() *zap.Logger {
	if g.Log == nil {
		return zap.L()
	}
	return g.Log
}

func (g *Generator) modelID(req Request) string {
	if id := strings.TrimSpace(req.ModelID); id != "" {
		return id
	}
	if g.DefaultModel != "" {
		return g.DefaultModel
	}
	return cost.DefaultModel
}

// Generate produz o roteiro. Ficha com aviso de falha volta o roteiro padrão
// de dados insuficientes sem chamar provedor nenhum. Credencial ausente e
// falha do provedor voltam como erro.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	modelID := g.modelID(req)
	log := g.logger().With(zap.String("model", modelID), zap.String("produto", req.ProductCode))

	if req.Facts.Failed() {
		log.Info("ficha sem dados, geração interrompida")
		observability.RecordGeneration(modelID, StatusInsufficient, 0, 0, 0)
		return &Result{
			Text:         InsufficientDataScript(req.ProductCode),
			ModelID:      modelID,
			Insufficient: true,
		}, nil
	}

	client, err := g.Resolver.Resolve(modelID)
	if err != nil {
		return nil, err
	}

	prompt := g.Assembler.Assemble(ctx, req)
	log.Debug("prompt montado", zap.Int("caracteres", len(prompt)), zap.Int("imagens", len(req.Facts.Images)))

	started := time.Now()
	gen, err := client.Generate(ctx, prompt, req.Facts.Images)
	observability.GenerationDuration.WithLabelValues(string(client.Provider())).Observe(time.Since(started).Seconds())
	if err != nil {
		observability.ProviderFailuresTotal.WithLabelValues(string(client.Provider())).Inc()
		var callErr *llm.ProviderCallError
		if errors.As(err, &callErr) {
			log.Warn("provedor falhou", zap.String("provider", string(callErr.Provider)), zap.Error(callErr.Err))
		}
		return nil, err
	}

	res := &Result{
		Text:      gen.Text,
		ModelID:   modelID,
		TokensIn:  gen.TokensIn,
		TokensOut: gen.TokensOut,
	}
	if strings.Contains(gen.Text, RefusalSentinel) {
		res.Insufficient = true
	} else if ModeFor(req.WorkMode).LongForm {
		res.Text = EnforceHeader(gen.Text, g.Assembler.Header(req))
	}
	if g.Costs != nil {
		res.Cost = g.Costs.Cost(modelID, res.TokensIn, res.TokensOut)
	}

	observability.RecordGeneration(modelID, res.Status(), res.TokensIn, res.TokensOut, res.Cost)
	log.Info("roteiro gerado",
		zap.Int("tokens_in", res.TokensIn),
		zap.Int("tokens_out", res.TokensOut),
		zap.Float64("custo_brl", res.Cost),
		zap.Duration("duracao", time.Since(started)))
	return res, nil
}

// InsufficientDataScript é o roteiro devolvido quando a ficha não tem dados.
func InsufficientDataScript(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		code = "informado"
	}
	return RefusalSentinel + "\n\n" +
		"Não foi possível gerar o roteiro do produto " + code + ": a ficha técnica não foi extraída.\n" +
		"Cole a ficha técnica manualmente e tente novamente."
}

// Recorder grava cada geração no histórico da família do modo de trabalho.
// Falhas são só registradas no log.
type Recorder struct {
	Store repository.Store
	Log   *zap.Logger
}

func (r *Recorder) Record(ctx context.Context, req Request, res *Result) {
	if r == nil || r.Store == nil || res == nil {
		return
	}
	entry := model.GenerationLogEntry{
		ProductCode:   PadCode(req.ProductCode),
		WorkMode:      req.WorkMode,
		GeneratedText: res.Text,
		SourceFacts:   req.Facts.Text,
		ModelID:       res.ModelID,
		TokensIn:      res.TokensIn,
		TokensOut:     res.TokensOut,
		CostEstimate:  res.Cost,
		Status:        res.Status(),
	}
	store := r.Store.WithFamily(ModeFor(req.WorkMode).Family)
	if err := store.LogGeneration(ctx, entry); err != nil {
		log := r.Log
		if log == nil {
			log = zap.L()
		}
		log.Warn("falha ao gravar histórico", zap.String("produto", entry.ProductCode), zap.Error(err))
	}
}
