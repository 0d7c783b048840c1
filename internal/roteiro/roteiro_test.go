package roteiro

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roteirista/internal/cost"
	"roteirista/internal/knowledge"
	"roteirista/internal/llm"
	"roteirista/internal/model"
	"roteirista/internal/repository"
)

type fakeClient struct {
	text   string
	err    error
	calls  int
	prompt string
	images int
}

func (f *fakeClient) Provider() llm.Provider { return llm.ZAI }
func (f *fakeClient) Model() string          { return "glm-4.6" }

func (f *fakeClient) Generate(_ context.Context, prompt string, images []model.Image) (*llm.Generation, error) {
	f.calls++
	f.prompt = prompt
	f.images = len(images)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Generation{Text: f.text, TokensIn: 2000, TokensOut: 500}, nil
}

type fakeResolver struct {
	client *fakeClient
	calls  int
	ids    []string
}

func (r *fakeResolver) Resolve(modelID string) (llm.Client, error) {
	r.calls++
	r.ids = append(r.ids, modelID)
	return r.client, nil
}

var fixedNow = time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)

func newTestGenerator(store repository.Store, client *fakeClient) (*Generator, *fakeResolver) {
	res := &fakeResolver{client: client}
	asm := &Assembler{
		Base:   &knowledge.Base{SystemPrompt: "REGRAS DE OURO", Phonetics: map[string]string{}},
		Store:  store,
		Writer: "Breno",
		Now:    func() time.Time { return fixedNow },
	}
	return NewGenerator(asm, res, cost.NewAccountant(cost.DefaultRates(), cost.DefaultUSDToBRL), "gemini-2.5-flash"), res
}

func TestGenerate_FailedFactsNeverCallsProvider(t *testing.T) {
	t.Parallel()
	client := &fakeClient{text: "não deveria ser usado"}
	gen, res := newTestGenerator(repository.NewMemoryStore(), client)

	out, err := gen.Generate(context.Background(), Request{
		Facts:       model.FailedFacts("240815300"),
		WorkMode:    "NW (NewWeb)",
		ProductCode: "240815300",
		ModelID:     "zai/glm-4.6",
	})
	require.NoError(t, err)

	assert.Equal(t, 0, res.calls)
	assert.Equal(t, 0, client.calls)
	assert.True(t, out.Insufficient)
	assert.Zero(t, out.TokensIn)
	assert.Zero(t, out.TokensOut)
	assert.Zero(t, out.Cost)
	assert.True(t, strings.HasPrefix(out.Text, RefusalSentinel))
	assert.Contains(t, out.Text, "240815300")
	assert.Equal(t, StatusInsufficient, out.Status())
}

func TestGenerate_EmptyFactsShortCircuit(t *testing.T) {
	t.Parallel()
	client := &fakeClient{}
	gen, res := newTestGenerator(repository.NewMemoryStore(), client)

	out, err := gen.Generate(context.Background(), Request{Facts: model.Facts{Text: "   "}})
	require.NoError(t, err)
	assert.True(t, out.Insufficient)
	assert.Equal(t, 0, res.calls)
}

func TestGenerate_MissingCredentialSurfaces(t *testing.T) {
	t.Parallel()
	asm := &Assembler{Base: &knowledge.Base{}, Store: repository.NewMemoryStore()}
	gen := NewGenerator(asm, llm.NewResolver(nil, nil, 0), nil, "")

	_, err := gen.Generate(context.Background(), Request{
		Facts:   model.Facts{Text: "Marca: Mondial"},
		ModelID: "openrouter/deepseek/deepseek-chat",
	})
	require.Error(t, err)
	var missing *llm.MissingCredentialError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "OPENROUTER_API_KEY", missing.EnvVar)
}

func TestGenerate_ProviderFailureIsNotRetried(t *testing.T) {
	t.Parallel()
	callErr := &llm.ProviderCallError{Provider: llm.ZAI, Model: "glm-4.6", Err: errors.New("503")}
	client := &fakeClient{err: callErr}
	gen, res := newTestGenerator(repository.NewMemoryStore(), client)

	_, err := gen.Generate(context.Background(), Request{Facts: model.Facts{Text: "Marca: Mondial"}, ModelID: "zai/glm-4.6"})
	require.Error(t, err)
	assert.ErrorIs(t, err, callErr)
	assert.Equal(t, 1, res.calls)
	assert.Equal(t, 1, client.calls)
}

func TestGenerate_EnforcesHeaderInLongForm(t *testing.T) {
	t.Parallel()
	client := &fakeClient{text: strings.Join([]string{
		"Cliente: Magalu",
		"Roteirista: Fulano – Data: 01/01/2020",
		"Produto: NW LU JAN 999999999 Geladeira Copiada",
		"",
		"CENA 1: Lu apresenta a air fryer.",
	}, "\n")}
	gen, _ := newTestGenerator(repository.NewMemoryStore(), client)

	out, err := gen.Generate(context.Background(), Request{
		Facts:       model.Facts{Text: "Marca: Mondial\nCapacidade: 4L", Images: []model.Image{{Data: []byte{1}}}},
		WorkMode:    "NW (NewWeb)",
		ProductCode: "40815300",
		ProductName: "Air Fryer Mondial 4L",
	})
	require.NoError(t, err)

	lines := strings.Split(out.Text, "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	assert.Equal(t, "Cliente: Magalu", lines[0])
	assert.Equal(t, "Roteirista: Breno – Data: 05/03/2026", lines[1])
	assert.Equal(t, "Produto: NW LU MAR 040815300 Air Fryer Mondial 4L", lines[2])
	assert.Equal(t, "", lines[3])
	assert.Equal(t, "CENA 1: Lu apresenta a air fryer.", lines[4])

	assert.Equal(t, "gemini-2.5-flash", out.ModelID)
	assert.Equal(t, 1, client.images)
	want := cost.NewAccountant(cost.DefaultRates(), cost.DefaultUSDToBRL).Cost("gemini-2.5-flash", 2000, 500)
	assert.InDelta(t, want, out.Cost, 1e-9)
}

func TestEnforceHeader_BlankLinesInsideHeader(t *testing.T) {
	t.Parallel()
	h := Header{Writer: "Breno", Date: "05/03/2026", Month: "MAR", Code: "040815300", ProductName: "Air Fryer Mondial 4L"}

	in := "Cliente: Magalu\n\nRoteirista: Fulano – Data: 01/01/2020\n\nProduto: NW LU JAN 123 Foo\n\n- fala"
	out := EnforceHeader(in, h)

	assert.Equal(t, strings.Join([]string{
		"Cliente: Magalu",
		"Roteirista: Breno – Data: 05/03/2026",
		"Produto: NW LU MAR 040815300 Air Fryer Mondial 4L",
		"",
		"- fala",
	}, "\n"), out)
	assert.NotContains(t, out, "01/01/2020")
	assert.NotContains(t, out, "Foo")
}

func TestEnforceHeader_StopsAtFirstNonFieldLine(t *testing.T) {
	t.Parallel()
	h := Header{Writer: "Breno", Date: "05/03/2026", Month: "MAR", Code: "040815300", ProductName: "Air Fryer"}

	out := EnforceHeader("Cliente: Magalu\n\n- fala\nProduto: citado depois", h)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "", lines[3])
	assert.Equal(t, "- fala", lines[4])
	assert.Equal(t, "Produto: citado depois", lines[5])
}

func TestGenerate_HeaderUsesPurifiedGeneratedNameWhenUnknown(t *testing.T) {
	t.Parallel()
	client := &fakeClient{text: "Intro\n**Cliente:** Magalu\n**Produto:** NW LU MAR 123456 Ventilador Turbo\nCENA 1"}
	gen, _ := newTestGenerator(repository.NewMemoryStore(), client)

	out, err := gen.Generate(context.Background(), Request{
		Facts:         model.Facts{Text: "ficha"},
		WorkMode:      "NW",
		Month:         "abr",
		Date:          time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC),
		ProductCode:   "123456",
		SubCodes:      "123457, 123458",
		SupplierVideo: "https://fornecedor.example/video",
	})
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"Intro",
		"Cliente: Magalu",
		"Roteirista: Breno – Data: 20/04/2026",
		"Produto: NW LU ABR 000123456 Ventilador Turbo",
		"Códigos: 123457, 123458",
		"Vídeo do fornecedor: https://fornecedor.example/video",
		"CENA 1",
	}, "\n"), out.Text)
}

func TestGenerate_NoHeaderMarkerPassesThrough(t *testing.T) {
	t.Parallel()
	text := "CENA 1: produto girando.\nCENA 2: detalhe do painel."
	gen, _ := newTestGenerator(repository.NewMemoryStore(), &fakeClient{text: text})

	out, err := gen.Generate(context.Background(), Request{Facts: model.Facts{Text: "ficha"}, WorkMode: "NW"})
	require.NoError(t, err)
	assert.Equal(t, text, out.Text)
}

func TestGenerate_NonLongFormKeepsHeader(t *testing.T) {
	t.Parallel()
	text := "Cliente: Magalu\nRoteirista: Outro – Data: 01/01/2020\nReel rápido"
	gen, _ := newTestGenerator(repository.NewMemoryStore(), &fakeClient{text: text})

	out, err := gen.Generate(context.Background(), Request{Facts: model.Facts{Text: "ficha"}, WorkMode: "SOCIAL"})
	require.NoError(t, err)
	assert.Equal(t, text, out.Text)
}

func TestGenerate_ModelRefusalFlagsInsufficient(t *testing.T) {
	t.Parallel()
	gen, _ := newTestGenerator(repository.NewMemoryStore(), &fakeClient{text: RefusalSentinel})

	out, err := gen.Generate(context.Background(), Request{Facts: model.Facts{Text: "só o nome"}, WorkMode: "NW"})
	require.NoError(t, err)
	assert.True(t, out.Insufficient)
	assert.Equal(t, RefusalSentinel, out.Text)
	assert.Positive(t, out.Cost)
}

func seededStore(t *testing.T) *repository.MemoryStore {
	t.Helper()
	ctx := context.Background()
	s := repository.NewMemoryStore()
	require.NoError(t, s.InsertGoldScript(ctx, model.GoldScript{ProductTitle: "Geladeira NW", ApprovedText: "roteiro ouro nw", ScorePercent: 97, Lesson: "lição nw"}))
	require.NoError(t, s.InsertPersonaRule(ctx, model.PersonaRule{Pillar: "Otimismo", MistakeDescription: "frio demais", HumanText: "mais calor humano", SuggestedLexicon: "aconchego"}))
	_, err := s.InsertPhoneticRule(ctx, model.PhoneticRule{WrongTerm: "Wi-Fi", CorrectedTerm: "uai-fai"})
	require.NoError(t, err)
	require.NoError(t, s.InsertStructureRule(ctx, model.StructureRule{Type: model.StructureOpening, GoldText: "Sabe aquele calor?"}))
	require.NoError(t, s.InsertNuance(ctx, model.NuanceRule{AIPhrase: "incrível", Critique: "genérico", GoldExample: "gela rapidinho"}))

	s3d := s.WithFamily(repository.Family3D)
	require.NoError(t, s3d.InsertGoldScript(ctx, model.GoldScript{ProductTitle: "Colchão 3D", ApprovedText: "roteiro ouro 3d", ScorePercent: 90}))
	return s
}

func TestAssemble_StaticPrefixAndSectionOrder(t *testing.T) {
	t.Parallel()
	asm := &Assembler{
		Base: &knowledge.Base{
			SystemPrompt: "REGRAS DE OURO DA CASA",
			ContextDocs:  []knowledge.Doc{{Name: "persona.md", Text: "A Lu é otimista."}},
			Phonetics:    map[string]string{"USB": "u-esse-bê"},
			Examples:     []knowledge.Example{{Product: "Liquidificador", Before: "ruim", After: "bom"}},
		},
		Store:  seededStore(t),
		Writer: "Breno",
		Now:    func() time.Time { return fixedNow },
	}

	prompt := asm.Assemble(context.Background(), Request{
		Facts:    model.Facts{Text: "FICHA: Air Fryer 4L"},
		WorkMode: "NW (NewWeb)",
	})

	assert.True(t, strings.HasPrefix(prompt, "REGRAS DE OURO DA CASA"))

	order := []string{
		"REGRAS DE OURO DA CASA",
		"A Lu é otimista.",
		"- USB -> (u-esse-bê)",
		"--- EXEMPLO: Liquidificador ---",
		"REFERÊNCIAS DE ELITE",
		"Pilar: Otimismo",
		"- Wi-Fi -> (uai-fai)",
		"- [Abertura (Gancho)] Sabe aquele calor?",
		"EVITE: 'incrível'",
		"- lição nw",
		"MODO DE TRABALHO SOLICITADO:** NW (NewWeb)",
		"Produto: NW LU MAR [CÓDIGO] [NOME DO PRODUTO]",
		"FICHA: Air Fryer 4L",
		"INSTRUÇÃO FINAL",
		RefusalSentinel,
	}
	last := -1
	for _, marker := range order {
		idx := strings.Index(prompt, marker)
		require.GreaterOrEqual(t, idx, 0, "ausente: %s", marker)
		assert.Greater(t, idx, last, "fora de ordem: %s", marker)
		last = idx
	}

	assert.Contains(t, prompt, "roteiro ouro nw")
	assert.NotContains(t, prompt, "roteiro ouro 3d")
	assert.Contains(t, prompt, "PROIBIDO mostrar pessoas")
	assert.Contains(t, prompt, "Fonte Externa:")
	assert.Contains(t, prompt, "'pra' no lugar de 'para'")
}

func TestAssemble_3DUsesItsOwnTables(t *testing.T) {
	t.Parallel()
	asm := &Assembler{Base: &knowledge.Base{}, Store: seededStore(t), Now: func() time.Time { return fixedNow }}

	prompt := asm.Assemble(context.Background(), Request{Facts: model.Facts{Text: "ficha"}, WorkMode: "NW 3D"})

	assert.Contains(t, prompt, "roteiro ouro 3d")
	assert.NotContains(t, prompt, "roteiro ouro nw")
	assert.Contains(t, prompt, "Pilar: Otimismo")
	assert.Contains(t, prompt, "texturas")
	assert.NotContains(t, prompt, "Cliente: Magalu")
}

func TestAssemble_EmptyDynamicSectionsAreOmitted(t *testing.T) {
	t.Parallel()
	asm := &Assembler{Base: &knowledge.Base{}, Store: repository.NewMemoryStore()}

	prompt := asm.Assemble(context.Background(), Request{Facts: model.Facts{Text: "ficha"}, WorkMode: "qualquer"})

	for _, label := range []string{"REFERÊNCIAS DE ELITE", "AJUSTES DE PERSONA", "NOVAS REGRAS DE FONÉTICA",
		"ESTRUTURAS APROVADAS", "NUANCES", "MEMÓRIA RECENTE", "DICIONÁRIO DE FONÉTICA BASE"} {
		assert.NotContains(t, prompt, label)
	}
	assert.Contains(t, prompt, directiveGeneric(Header{}))
	assert.NotContains(t, prompt, "Extraia das imagens")
}

func TestModeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		key      string
		longForm bool
		family   repository.Family
	}{
		{"NW (NewWeb)", "NW", true, repository.FamilyNW},
		{"nw lu", "NW", true, repository.FamilyNW},
		{"NW 3D", "3D", false, repository.Family3D},
		{"Social", "SOCIAL", false, repository.FamilyNW},
		{"Review de estúdio", "REVIEW", false, repository.FamilyNW},
		{"Desconhecido", "", false, repository.FamilyNW},
		{"INWARD", "", false, repository.FamilyNW},
		{"Socialite", "", false, repository.FamilyNW},
		{"NW-LU", "NW", true, repository.FamilyNW},
	}
	for _, tt := range tests {
		m := ModeFor(tt.in)
		assert.Equal(t, tt.key, m.Key, tt.in)
		assert.Equal(t, tt.longForm, m.LongForm, tt.in)
		assert.Equal(t, tt.family, m.Family, tt.in)
	}
}

func TestPurifyName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Air Fryer Mondial":                          "Air Fryer Mondial",
		"Produto: NW LU MAR 240815300 Air Fryer":     "Air Fryer",
		"**Produto:** NW 3D JAN (240815300) Colchão": "Colchão",
		"NW LU SET 123456 - Ventilador":              "Ventilador",
		"1000W Liquidificador":                       "1000W Liquidificador",
		"Mar de Rosas Perfume":                       "Mar de Rosas Perfume",
		"[NOME DO PRODUTO]":                          "",
		"":                                           "",
	}
	for in, want := range tests {
		assert.Equal(t, want, PurifyName(in), in)
	}
}

func TestPadCode(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "240815300", PadCode("240815300"))
	assert.Equal(t, "000012345", PadCode(" 12345 "))
	assert.Equal(t, "040815300", PadCode("0408-15300"))
	assert.Equal(t, "abc", PadCode(" abc "))
	assert.Equal(t, "", PadCode(""))
}

type failingStore struct {
	repository.Store
}

func (f failingStore) WithFamily(repository.Family) repository.Store { return f }

func (failingStore) LogGeneration(context.Context, model.GenerationLogEntry) error {
	return errors.New("banco fora do ar")
}

func TestRecorder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	rec := &Recorder{Store: store}

	rec.Record(ctx, Request{ProductCode: "12345", WorkMode: "NW 3D", Facts: model.Facts{Text: "ficha"}},
		&Result{Text: "roteiro", ModelID: "zai/glm-4.6", TokensIn: 10, TokensOut: 5, Cost: 0.01})

	assert.Empty(t, store.RecentGenerations(ctx, 10))
	got := store.WithFamily(repository.Family3D).RecentGenerations(ctx, 10)
	require.Len(t, got, 1)
	assert.Equal(t, "000012345", got[0].ProductCode)
	assert.Equal(t, StatusGenerated, got[0].Status)
	assert.Equal(t, "ficha", got[0].SourceFacts)

	// falha de gravação não propaga
	(&Recorder{Store: failingStore{store}}).Record(ctx, Request{}, &Result{})
}
