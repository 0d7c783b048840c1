// Package calibration compara o rascunho da IA com o roteiro aprovado usando
// um LLM como juiz e alimenta a base de conhecimento com o que aprendeu.
package calibration

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"roteirista/internal/jsonx"
	"roteirista/internal/model"
	"roteirista/internal/observability"
	"roteirista/internal/repository"
	"roteirista/internal/roteiro"
)

// Valores do resultado degradado, quando nenhum juiz responde.
const (
	DegradedScore  = 50
	DegradedLesson = "Nenhum provedor disponível para calibragem."
)

var skuRe = regexp.MustCompile(`\d{6,9}`)

// Input é um pedido de calibragem.
type Input struct {
	OriginalText  string
	ApprovedText  string
	Categories    []model.Category
	SuggestedCode string
	ProductTitle  string
	// WorkMode escolhe a família de tabelas (NW ou 3D).
	WorkMode string
}

// AttemptError é a falha de um juiz da cadeia.
type AttemptError struct {
	ModelID string
	Err     error
}

func (e AttemptError) Error() string { return e.ModelID + ": " + e.Err.Error() }

func (e AttemptError) Unwrap() error { return e.Err }

// Propagated conta o destino das regras extraídas.
type Propagated struct {
	Phonetic  int `json:"fonetica"`
	Structure int `json:"estrutura"`
	Persona   int `json:"persona"`
	Skipped   int `json:"ignoradas"`
	Failed    int `json:"falhas"`
}

type Outcome struct {
	Result     model.CalibrationResult `json:"resultado"`
	GoldSaved  bool                    `json:"ouro_salvo"`
	Propagated Propagated              `json:"propagadas"`
	Attempts   []AttemptError          `json:"-"`
}

// Engine roda a calibragem. Nunca devolve erro: sem juiz disponível o
// resultado sai degradado.
type Engine struct {
	Resolver           roteiro.Resolver
	Store              repository.Store
	JudgeModels        []string
	FallbackCategoryID int
	Bands              Bands
	Log                *zap.Logger
}

func NewEngine(r roteiro.Resolver, s repository.Store, judges []string, fallbackCategoryID int, bands Bands) *Engine {
	if len(bands) == 0 {
		bands = DefaultBands()
	}
	return &Engine{
		Resolver:           r,
		Store:              s,
		JudgeModels:        judges,
		FallbackCategoryID: fallbackCategoryID,
		Bands:              bands,
		Log:                zap.L().With(zap.String("component", "calibration")),
	}
}

func (e *Engine) logger() *zap.Logger {
	if e.Log == nil {
		return zap.L()
	}
	return e.Log
}

func (e *Engine) bands() Bands {
	if len(e.Bands) == 0 {
		return DefaultBands()
	}
	return e.Bands
}

// Calibrate julga o par rascunho/aprovado, grava o roteiro ouro e propaga as
// regras. Cada gravação é independente: uma falha não impede as outras.
func (e *Engine) Calibrate(ctx context.Context, in Input) *Outcome {
	log := e.logger()
	prompt := judgePrompt(in, e.bands())

	v, judge, attempts := firstSuccess(ctx, e.JudgeModels, func(ctx context.Context, modelID string) (*verdict, error) {
		return e.judge(ctx, modelID, prompt)
	})
	for _, a := range attempts {
		log.Warn("juiz falhou", zap.String("model", a.ModelID), zap.Error(a.Err))
	}

	out := &Outcome{Attempts: attempts}
	if v == nil {
		out.Result = e.degraded(in)
		observability.CalibrationsTotal.WithLabelValues("degradado").Inc()
	} else {
		out.Result = e.result(in, v, judge)
		observability.CalibrationsTotal.WithLabelValues("ok").Inc()
	}

	store := e.Store.WithFamily(repository.FamilyForMode(in.WorkMode))
	out.GoldSaved = e.saveGold(ctx, store, in, out.Result)
	if !out.Result.Degraded {
		out.Propagated = e.propagate(ctx, store, out.Result)
	}

	log.Info("calibragem concluída",
		zap.String("juiz", judge),
		zap.Int("percentual", out.Result.ScorePercent),
		zap.String("faixa", out.Result.Band),
		zap.Bool("degradado", out.Result.Degraded),
		zap.Int("fonetica", out.Propagated.Phonetic),
		zap.Int("estrutura", out.Propagated.Structure),
		zap.Int("persona", out.Propagated.Persona),
		zap.Int("falhas", out.Propagated.Failed))
	return out
}

// firstSuccess tenta cada id na ordem e para no primeiro sucesso. As falhas
// anteriores voltam para diagnóstico.
func firstSuccess[T any](ctx context.Context, ids []string, try func(context.Context, string) (T, error)) (T, string, []AttemptError) {
	var zero T
	var failures []AttemptError
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			failures = append(failures, AttemptError{ModelID: id, Err: err})
			break
		}
		v, err := try(ctx, id)
		if err == nil {
			return v, id, failures
		}
		failures = append(failures, AttemptError{ModelID: id, Err: err})
	}
	return zero, "", failures
}

func (e *Engine) judge(ctx context.Context, modelID, prompt string) (*verdict, error) {
	client, err := e.Resolver.Resolve(modelID)
	if err != nil {
		return nil, err
	}
	gen, err := client.Generate(ctx, prompt, nil)
	if err != nil {
		observability.ProviderFailuresTotal.WithLabelValues(string(client.Provider())).Inc()
		return nil, err
	}
	var v verdict
	if err := jsonx.Decode(gen.Text, &v); err != nil {
		return nil, eris.Wrap(err, "calibration: resposta do juiz")
	}
	return &v, nil
}

func (e *Engine) result(in Input, v *verdict, judge string) model.CalibrationResult {
	score := clamp(int(v.Score))
	res := model.CalibrationResult{
		ScorePercent: score,
		Lesson:       v.Lesson.trim(),
		CategoryID:   e.validCategory(int(v.Category), in.Categories),
		ProductCode:  CleanCodes(string(v.Code), in.SuggestedCode),
		JudgingModel: judge,
		Band:         e.bands().Classify(score),
	}
	for _, p := range v.Phonetic {
		res.PhoneticRules = append(res.PhoneticRules, model.PhoneticRule{
			WrongTerm:       p.WrongTerm.trim(),
			CorrectedTerm:   p.CorrectedTerm.trim(),
			ExampleSentence: p.Example.trim(),
		})
	}
	for _, s := range v.Structure {
		typ, ok := model.ParseStructureType(string(s.Type))
		if !ok {
			e.logger().Debug("tipo de estrutura desconhecido", zap.String("tipo", string(s.Type)))
			typ = model.StructureType(s.Type.trim())
		}
		res.StructureRules = append(res.StructureRules, model.StructureRule{Type: typ, GoldText: s.GoldText.trim()})
	}
	for _, p := range v.Persona {
		res.PersonaRules = append(res.PersonaRules, model.PersonaRule{
			Pillar:             p.Pillar.trim(),
			AIText:             p.AIText.trim(),
			HumanText:          p.HumanText.trim(),
			SuggestedLexicon:   p.Lexicon.trim(),
			MistakeDescription: p.Mistake.trim(),
		})
	}
	for _, r := range v.Visual {
		if s := strings.TrimSpace(string(r)); s != "" {
			res.VisualRules = append(res.VisualRules, s)
		}
	}
	return res
}

func (e *Engine) degraded(in Input) model.CalibrationResult {
	return model.CalibrationResult{
		ScorePercent: DegradedScore,
		Lesson:       DegradedLesson,
		CategoryID:   e.fallbackCategory(in.Categories),
		ProductCode:  CleanCodes("", in.SuggestedCode),
		Band:         e.bands().Classify(DegradedScore),
		Degraded:     true,
	}
}

// validCategory aceita o id do juiz só se ele estiver entre as opções.
func (e *Engine) validCategory(id int, options []model.Category) int {
	for _, c := range options {
		if c.ID == id {
			return id
		}
	}
	return e.fallbackCategory(options)
}

// fallbackCategory é o id configurado se estiver entre as opções, senão a
// primeira opção.
func (e *Engine) fallbackCategory(options []model.Category) int {
	if len(options) == 0 {
		return e.FallbackCategoryID
	}
	for _, c := range options {
		if c.ID == e.FallbackCategoryID {
			return c.ID
		}
	}
	return options[0].ID
}

// CleanCodes extrai todos os SKUs (6 a 9 dígitos) de raw, completa com zeros
// até 9 dígitos e junta sem repetição. Sem SKU em raw usa suggested.
func CleanCodes(raw, suggested string) string {
	for _, src := range []string{raw, suggested} {
		matches := skuRe.FindAllString(src, -1)
		if len(matches) == 0 {
			continue
		}
		seen := make(map[string]bool, len(matches))
		var codes []string
		for _, m := range matches {
			code := roteiro.PadCode(m)
			if !seen[code] {
				seen[code] = true
				codes = append(codes, code)
			}
		}
		return strings.Join(codes, ", ")
	}
	return strings.TrimSpace(suggested)
}

func clamp(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	}
	return score
}

func (e *Engine) saveGold(ctx context.Context, store repository.Writer, in Input, res model.CalibrationResult) bool {
	lesson := res.Lesson
	if res.Degraded {
		lesson = ""
	}
	err := store.InsertGoldScript(ctx, model.GoldScript{
		CategoryID:     res.CategoryID,
		ProductCode:    res.ProductCode,
		ProductTitle:   strings.TrimSpace(in.ProductTitle),
		OriginalAIText: in.OriginalText,
		ApprovedText:   in.ApprovedText,
		ScorePercent:   res.ScorePercent,
		Lesson:         lesson,
		JudgingModel:   res.JudgingModel,
	})
	if err != nil {
		e.logger().Warn("falha ao gravar roteiro ouro", zap.String("produto", res.ProductCode), zap.Error(err))
		return false
	}
	return true
}

func (e *Engine) propagate(ctx context.Context, store repository.Writer, res model.CalibrationResult) Propagated {
	var p Propagated
	log := e.logger()

	failed := func(kind string, err error) {
		p.Failed++
		log.Warn("falha ao propagar regra", zap.String("tipo", kind), zap.Error(err))
	}

	for _, r := range res.PhoneticRules {
		if r.WrongTerm == "" || r.CorrectedTerm == "" || strings.EqualFold(r.WrongTerm, r.CorrectedTerm) {
			p.Skipped++
			continue
		}
		inserted, err := store.InsertPhoneticRule(ctx, r)
		switch {
		case err != nil:
			failed("fonetica", err)
		case inserted:
			p.Phonetic++
			observability.PropagatedRulesTotal.WithLabelValues("fonetica").Inc()
		default:
			p.Skipped++
		}
	}

	for _, r := range res.StructureRules {
		if _, ok := model.ParseStructureType(string(r.Type)); !ok || r.GoldText == "" {
			p.Skipped++
			continue
		}
		if err := store.InsertStructureRule(ctx, r); err != nil {
			failed("estrutura", err)
			continue
		}
		p.Structure++
		observability.PropagatedRulesTotal.WithLabelValues("estrutura").Inc()
	}

	for _, r := range res.PersonaRules {
		if strings.TrimSpace(r.HumanText) == "" && strings.TrimSpace(r.MistakeDescription) == "" {
			p.Skipped++
			continue
		}
		if err := store.InsertPersonaRule(ctx, r); err != nil {
			failed("persona", err)
			continue
		}
		p.Persona++
		observability.PropagatedRulesTotal.WithLabelValues("persona").Inc()
	}

	return p
}

// Summary resume o resultado numa linha para a CLI e os logs.
func (o *Outcome) Summary() string {
	r := o.Result
	s := fmt.Sprintf("%d%% (%s) categoria %d", r.ScorePercent, r.Band, r.CategoryID)
	if r.Degraded {
		return s + " [degradado]"
	}
	return fmt.Sprintf("%s, regras: %d fonética, %d estrutura, %d persona", s,
		o.Propagated.Phonetic, o.Propagated.Structure, o.Propagated.Persona)
}
