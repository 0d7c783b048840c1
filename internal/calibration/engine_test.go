package calibration

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roteirista/internal/jsonx"
	"roteirista/internal/llm"
	"roteirista/internal/model"
	"roteirista/internal/repository"
)

type judgeClient struct {
	text   string
	err    error
	calls  int
	prompt string
}

func (c *judgeClient) Provider() llm.Provider { return llm.Gemini }
func (c *judgeClient) Model() string          { return "juiz" }

func (c *judgeClient) Generate(_ context.Context, prompt string, _ []model.Image) (*llm.Generation, error) {
	c.calls++
	c.prompt = prompt
	if c.err != nil {
		return nil, c.err
	}
	return &llm.Generation{Text: c.text}, nil
}

type judgeResolver map[string]*judgeClient

func (r judgeResolver) Resolve(modelID string) (llm.Client, error) {
	c, ok := r[modelID]
	if !ok {
		return nil, &llm.MissingCredentialError{Provider: llm.OpenRouter, EnvVar: "OPENROUTER_API_KEY"}
	}
	return c, nil
}

var categories = []model.Category{{ID: 3, Name: "Eletroportáteis"}, {ID: 7, Name: "Colchões"}, {ID: 26, Name: "Genérico"}}

const goodVerdict = `{
  "percentual": 88,
  "aprendizado": "A IA usou tom frio; o diretor aproximou da Lu.",
  "categoria_id": 3,
  "codigo_produto": "Produto 240815300 e 12345678",
  "regras_fonetica": [{"termo_errado": "Wi-Fi", "termo_corrigido": "uai-fai", "exemplo": "conecta no uai-fai"}],
  "regras_estrutura": [{"tipo_estrutura": "Abertura (Gancho)", "texto_ouro": "Sabe aquele calor?"}, {"tipo_estrutura": "meio", "texto_ouro": "x"}],
  "regras_persona": [{"pilar_persona": "Otimismo", "texto_gerado_ia": "produto bom", "texto_corrigido_humano": "produto que facilita seu dia", "lexico_sugerido": "facilita", "erro_cometido": "frio"}],
  "regras_visuais": ["Mostrar o painel em close", {"cena": 2}]
}`

func newEngine(r judgeResolver, store repository.Store, judges ...string) *Engine {
	return NewEngine(r, store, judges, 26, DefaultBands())
}

func input() Input {
	return Input{
		OriginalText:  "Cliente: Magalu\n- Air fryer boa.",
		ApprovedText:  "Cliente: Magalu\n- Sabe aquele calor? A air fryer, Mondial, facilita seu dia.",
		Categories:    categories,
		SuggestedCode: "240815300",
		ProductTitle:  "Air Fryer Mondial",
		WorkMode:      "NW (NewWeb)",
	}
}

func TestCalibrate_Success(t *testing.T) {
	t.Parallel()
	store := repository.NewMemoryStore()
	judge := &judgeClient{text: "Segue a avaliação:\n```json\n" + goodVerdict + "\n```\nAbraço."}
	e := newEngine(judgeResolver{"gemini-2.5-flash": judge}, store, "gemini-2.5-flash")

	out := e.Calibrate(context.Background(), input())

	r := out.Result
	assert.False(t, r.Degraded)
	assert.Equal(t, 88, r.ScorePercent)
	assert.Equal(t, "Edição de estilo", r.Band)
	assert.Equal(t, 3, r.CategoryID)
	assert.Equal(t, "240815300, 012345678", r.ProductCode)
	assert.Equal(t, "gemini-2.5-flash", r.JudgingModel)
	assert.Equal(t, []string{"Mostrar o painel em close", `{"cena":2}`}, r.VisualRules)
	assert.Empty(t, out.Attempts)

	assert.True(t, out.GoldSaved)
	assert.Equal(t, Propagated{Phonetic: 1, Structure: 1, Persona: 1, Skipped: 1}, out.Propagated)

	ctx := context.Background()
	gold := store.GoldScriptHistory(ctx, 10)
	require.Len(t, gold, 1)
	assert.Equal(t, 88, gold[0].ScorePercent)
	assert.Equal(t, "Air Fryer Mondial", gold[0].ProductTitle)
	assert.Equal(t, "gemini-2.5-flash", gold[0].JudgingModel)
	assert.Len(t, store.PhoneticRules(ctx), 1)
	assert.Len(t, store.StructureRules(ctx), 1)
	assert.Len(t, store.RecentPersonaRules(ctx, 10), 1)

	assert.Contains(t, judge.prompt, "- 3: Eletroportáteis")
	assert.Contains(t, judge.prompt, "96% a 100%: Ajuste fino")
	assert.Contains(t, judge.prompt, "0% a 59%: Erro grave")
	assert.Contains(t, judge.prompt, input().ApprovedText)
}

func TestCalibrate_MistypedRuleFieldsDoNotDegrade(t *testing.T) {
	t.Parallel()
	store := repository.NewMemoryStore()
	judge := &judgeClient{text: `{
  "percentual": 90,
  "aprendizado": "ok",
  "categoria_id": 3,
  "regras_fonetica": [{"termo_errado": "4K", "termo_corrigido": 4, "exemplo": ["imagem", "nítida"]}],
  "regras_estrutura": [{"tipo_estrutura": "Fechamento (CTA)", "texto_ouro": ["Garanta já", "na Magalu"]}],
  "regras_persona": [{"pilar_persona": "Otimismo", "texto_corrigido_humano": "facilita seu dia", "lexico_sugerido": ["facilita", "praticidade"], "erro_cometido": null}]
}`}
	e := newEngine(judgeResolver{"j": judge}, store, "j")

	out := e.Calibrate(context.Background(), input())

	require.Empty(t, out.Attempts)
	r := out.Result
	assert.False(t, r.Degraded)
	assert.Equal(t, 90, r.ScorePercent)

	require.Len(t, r.PhoneticRules, 1)
	assert.Equal(t, "4", r.PhoneticRules[0].CorrectedTerm)
	assert.Equal(t, "imagem, nítida", r.PhoneticRules[0].ExampleSentence)
	require.Len(t, r.StructureRules, 1)
	assert.Equal(t, "Garanta já, na Magalu", r.StructureRules[0].GoldText)
	require.Len(t, r.PersonaRules, 1)
	assert.Equal(t, "facilita, praticidade", r.PersonaRules[0].SuggestedLexicon)
	assert.Empty(t, r.PersonaRules[0].MistakeDescription)

	assert.Equal(t, Propagated{Phonetic: 1, Structure: 1, Persona: 1}, out.Propagated)
	ctx := context.Background()
	assert.Len(t, store.PhoneticRules(ctx), 1)
	assert.Len(t, store.RecentPersonaRules(ctx, 10), 1)
}

func TestCalibrate_InvalidCategoryUsesFallback(t *testing.T) {
	t.Parallel()
	judge := &judgeClient{text: `{"percentual": "97%", "aprendizado": "ok", "categoria_id": 999, "codigo_produto": ""}`}
	e := newEngine(judgeResolver{"j": judge}, repository.NewMemoryStore(), "j")

	out := e.Calibrate(context.Background(), input())

	assert.Equal(t, 26, out.Result.CategoryID)
	assert.Equal(t, 97, out.Result.ScorePercent)
	assert.Equal(t, "Ajuste fino", out.Result.Band)
	assert.Equal(t, "240815300", out.Result.ProductCode)
}

func TestCalibrate_FallbackCategoryNotAmongOptions(t *testing.T) {
	t.Parallel()
	judge := &judgeClient{text: `{"percentual": 70, "categoria_id": 999}`}
	e := newEngine(judgeResolver{"j": judge}, repository.NewMemoryStore(), "j")
	in := input()
	in.Categories = categories[:2]

	out := e.Calibrate(context.Background(), in)
	assert.Equal(t, 3, out.Result.CategoryID)
}

func TestCalibrate_FallsBackToNextJudge(t *testing.T) {
	t.Parallel()
	first := &judgeClient{err: &llm.ProviderCallError{Provider: llm.Gemini, Model: "a", Err: errors.New("quota")}}
	prose := &judgeClient{text: "Não consigo avaliar esse texto agora."}
	third := &judgeClient{text: goodVerdict}
	e := newEngine(judgeResolver{"a": first, "b": prose, "c": third}, repository.NewMemoryStore(), "a", "sem-chave", "b", "c")

	out := e.Calibrate(context.Background(), input())

	assert.False(t, out.Result.Degraded)
	assert.Equal(t, "c", out.Result.JudgingModel)
	require.Len(t, out.Attempts, 3)
	assert.Equal(t, []string{"a", "sem-chave", "b"}, []string{out.Attempts[0].ModelID, out.Attempts[1].ModelID, out.Attempts[2].ModelID})

	var callErr *llm.ProviderCallError
	assert.True(t, errors.As(out.Attempts[0], &callErr))
	var missing *llm.MissingCredentialError
	assert.True(t, errors.As(out.Attempts[1], &missing))
	assert.Equal(t, 1, third.calls)
}

func TestCalibrate_AllJudgesFailDegrades(t *testing.T) {
	t.Parallel()
	store := repository.NewMemoryStore()
	failing := &judgeClient{err: errors.New("timeout")}
	e := newEngine(judgeResolver{"a": failing}, store, "a", "b")

	var out *Outcome
	require.NotPanics(t, func() { out = e.Calibrate(context.Background(), input()) })

	r := out.Result
	assert.True(t, r.Degraded)
	assert.Equal(t, DegradedScore, r.ScorePercent)
	assert.Equal(t, DegradedLesson, r.Lesson)
	assert.Equal(t, 26, r.CategoryID)
	assert.Equal(t, "240815300", r.ProductCode)
	assert.Empty(t, r.PhoneticRules)
	assert.Empty(t, r.StructureRules)
	assert.Empty(t, r.PersonaRules)
	assert.Empty(t, r.VisualRules)
	assert.Len(t, out.Attempts, 2)
	assert.Equal(t, Propagated{}, out.Propagated)

	gold := store.GoldScriptHistory(context.Background(), 10)
	require.Len(t, gold, 1)
	assert.Equal(t, DegradedScore, gold[0].ScorePercent)
	assert.Empty(t, gold[0].Lesson)
	assert.True(t, out.GoldSaved)
}

func TestCalibrate_NoJudgesConfigured(t *testing.T) {
	t.Parallel()
	e := newEngine(judgeResolver{}, repository.NewMemoryStore())
	out := e.Calibrate(context.Background(), input())
	assert.True(t, out.Result.Degraded)
	assert.Empty(t, out.Attempts)
}

func TestCalibrate_PhoneticRuleIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	judge := &judgeClient{text: `{"percentual": 98, "categoria_id": 3, "regras_fonetica": [{"termo_errado": "X", "termo_corrigido": "Y"}]}`}
	e := newEngine(judgeResolver{"j": judge}, store, "j")

	first := e.Calibrate(ctx, input())
	second := e.Calibrate(ctx, input())

	assert.Equal(t, 1, first.Propagated.Phonetic)
	assert.Equal(t, 0, second.Propagated.Phonetic)
	assert.Equal(t, 1, second.Propagated.Skipped)

	rules := store.PhoneticRules(ctx)
	require.Len(t, rules, 1)
	assert.Equal(t, "X", rules[0].WrongTerm)
	assert.Len(t, store.GoldScriptHistory(ctx, 10), 2)
}

func TestCalibrate_3DUsesItsTables(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	e := newEngine(judgeResolver{"j": &judgeClient{text: goodVerdict}}, store, "j")
	in := input()
	in.WorkMode = "NW 3D"

	e.Calibrate(ctx, in)

	assert.Empty(t, store.GoldScriptHistory(ctx, 10))
	assert.Len(t, store.WithFamily(repository.Family3D).GoldScriptHistory(ctx, 10), 1)
	assert.Len(t, store.RecentPersonaRules(ctx, 10), 1)
}

type flakyStore struct {
	*repository.MemoryStore
}

func (f flakyStore) WithFamily(repository.Family) repository.Store { return f }

func (flakyStore) InsertGoldScript(context.Context, model.GoldScript) error {
	return errors.New("tabela indisponível")
}

func (flakyStore) InsertStructureRule(context.Context, model.StructureRule) error {
	return errors.New("tabela indisponível")
}

func TestCalibrate_WriteFailuresAreIsolated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := repository.NewMemoryStore()
	e := newEngine(judgeResolver{"j": &judgeClient{text: goodVerdict}}, flakyStore{mem}, "j")

	out := e.Calibrate(ctx, input())

	assert.False(t, out.GoldSaved)
	assert.Equal(t, 1, out.Propagated.Failed)
	assert.Equal(t, 1, out.Propagated.Phonetic)
	assert.Equal(t, 1, out.Propagated.Persona)
	assert.Len(t, mem.PhoneticRules(ctx), 1)
}

func TestCleanCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw, suggested, want string
	}{
		{"240815300", "", "240815300"},
		{"12345678", "", "012345678"},
		{"Códigos: 240815300, 240815301 e 240815300", "", "240815300, 240815301"},
		{"sem código", "123456", "000123456"},
		{"12345", "", ""},
		{"", "abc", "abc"},
		{"", "", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanCodes(tt.raw, tt.suggested), tt.raw)
	}
}

func TestBands(t *testing.T) {
	t.Parallel()

	b := DefaultBands()
	cases := map[int]string{100: "Ajuste fino", 96: "Ajuste fino", 95: "Edição de estilo", 85: "Edição de estilo",
		84: "Mudança estrutural", 60: "Mudança estrutural", 59: "Erro grave", 0: "Erro grave"}
	for score, want := range cases {
		assert.Equal(t, want, b.Classify(score), score)
	}

	custom, err := NewBands([]int{80, 50})
	require.NoError(t, err)
	require.Len(t, custom, 3)
	assert.Equal(t, "Edição de estilo", custom.Classify(50))
	assert.Equal(t, "Erro grave", custom.Classify(49))

	for _, bad := range [][]int{nil, {60, 85}, {96, 96}, {101}, {0}, {99, 90, 80, 70}} {
		_, err := NewBands(bad)
		assert.Error(t, err, "%v", bad)
	}
}

func TestFlexInt(t *testing.T) {
	t.Parallel()
	var v verdict
	require.NoError(t, jsonx.Decode(`{"percentual": 87.6, "categoria_id": "7"}`, &v))
	assert.Equal(t, 87, int(v.Score))
	assert.Equal(t, 7, int(v.Category))

	err := jsonx.Decode(`{"percentual": "muito bom"}`, &v)
	assert.Error(t, err)
}

func TestJudgePromptOmitsEmptySuggestedCode(t *testing.T) {
	t.Parallel()
	in := input()
	in.SuggestedCode = ""
	p := judgePrompt(in, DefaultBands())
	assert.False(t, strings.Contains(p, "Código informado"))
	assert.Contains(t, p, string(model.StructureClosing))
}
