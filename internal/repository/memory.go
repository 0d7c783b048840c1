package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"roteirista/internal/model"
)

type familyData struct {
	gold        []model.GoldScript
	phonetics   []model.PhoneticRule
	structures  []model.StructureRule
	nuances     []model.NuanceRule
	generations []model.GenerationLogEntry
}

type memoryData struct {
	mu         sync.RWMutex
	families   map[Family]*familyData
	persona    []model.PersonaRule
	categories []model.Category
}

// MemoryStore guarda tudo em memória. Usado sem DATABASE_URL e nos testes.
// As visões de família compartilham os mesmos dados.
type MemoryStore struct {
	data *memoryData
	fam  Family
}

// NewMemoryStore cria um store vazio com as categorias padrão.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: &memoryData{
			families:   map[Family]*familyData{},
			categories: DefaultCategories(),
		},
		fam: FamilyNW,
	}
}

func (m *MemoryStore) WithFamily(f Family) Store {
	return &MemoryStore{data: m.data, fam: f}
}

func (m *MemoryStore) Family() Family { return m.fam }

// SetCategories troca a lista de categorias.
func (m *MemoryStore) SetCategories(c []model.Category) {
	m.data.mu.Lock()
	defer m.data.mu.Unlock()
	m.data.categories = append([]model.Category(nil), c...)
}

// fd precisa ser chamado com o lock de escrita quando create é true.
func (m *MemoryStore) fd(create bool) *familyData {
	f := m.data.families[m.fam]
	if f == nil && create {
		f = &familyData{}
		m.data.families[m.fam] = f
	}
	return f
}

// newestFirst devolve até n itens do fim da lista, do mais recente ao mais
// antigo. n <= 0 devolve todos.
func newestFirst[T any](items []T, n int) []T {
	if n <= 0 || n > len(items) {
		n = len(items)
	}
	out := make([]T, 0, n)
	for i := len(items) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, items[i])
	}
	return out
}

func (m *MemoryStore) RecentGoldScripts(_ context.Context, n int) []model.GoldScript {
	m.data.mu.RLock()
	defer m.data.mu.RUnlock()
	f := m.fd(false)
	if f == nil {
		return nil
	}
	var approved []model.GoldScript
	for _, g := range f.gold {
		if g.ApprovedText != "" {
			approved = append(approved, g)
		}
	}
	return newestFirst(approved, n)
}

func (m *MemoryStore) GoldScriptHistory(_ context.Context, n int) []model.GoldScript {
	m.data.mu.RLock()
	defer m.data.mu.RUnlock()
	if f := m.fd(false); f != nil {
		return newestFirst(f.gold, n)
	}
	return nil
}

func (m *MemoryStore) RecentLessons(_ context.Context, n int) []string {
	m.data.mu.RLock()
	defer m.data.mu.RUnlock()
	f := m.fd(false)
	if f == nil {
		return nil
	}
	var lessons []string
	for _, g := range f.gold {
		if strings.TrimSpace(g.Lesson) != "" {
			lessons = append(lessons, g.Lesson)
		}
	}
	return newestFirst(lessons, n)
}

func (m *MemoryStore) RecentPersonaRules(_ context.Context, n int) []model.PersonaRule {
	m.data.mu.RLock()
	defer m.data.mu.RUnlock()
	return newestFirst(m.data.persona, n)
}

func (m *MemoryStore) PhoneticRules(_ context.Context) []model.PhoneticRule {
	m.data.mu.RLock()
	defer m.data.mu.RUnlock()
	if f := m.fd(false); f != nil {
		return newestFirst(f.phonetics, 0)
	}
	return nil
}

func (m *MemoryStore) StructureRules(_ context.Context) []model.StructureRule {
	m.data.mu.RLock()
	defer m.data.mu.RUnlock()
	if f := m.fd(false); f != nil {
		return newestFirst(f.structures, 0)
	}
	return nil
}

func (m *MemoryStore) RecentNuances(_ context.Context, n int) []model.NuanceRule {
	m.data.mu.RLock()
	defer m.data.mu.RUnlock()
	if f := m.fd(false); f != nil {
		return newestFirst(f.nuances, n)
	}
	return nil
}

func (m *MemoryStore) Categories(_ context.Context) []model.Category {
	m.data.mu.RLock()
	defer m.data.mu.RUnlock()
	return append([]model.Category(nil), m.data.categories...)
}

func (m *MemoryStore) RecentGenerations(_ context.Context, n int) []model.GenerationLogEntry {
	m.data.mu.RLock()
	defer m.data.mu.RUnlock()
	if f := m.fd(false); f != nil {
		return newestFirst(f.generations, n)
	}
	return nil
}

func (m *MemoryStore) InsertGoldScript(_ context.Context, g model.GoldScript) error {
	m.data.mu.Lock()
	defer m.data.mu.Unlock()
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	g.CreatedAt = createdAt(g.CreatedAt)
	f := m.fd(true)
	f.gold = append(f.gold, g)
	return nil
}

func (m *MemoryStore) InsertPersonaRule(_ context.Context, p model.PersonaRule) error {
	m.data.mu.Lock()
	defer m.data.mu.Unlock()
	p.CreatedAt = createdAt(p.CreatedAt)
	m.data.persona = append(m.data.persona, p)
	return nil
}

func (m *MemoryStore) InsertStructureRule(_ context.Context, s model.StructureRule) error {
	m.data.mu.Lock()
	defer m.data.mu.Unlock()
	s.CreatedAt = createdAt(s.CreatedAt)
	f := m.fd(true)
	f.structures = append(f.structures, s)
	return nil
}

func (m *MemoryStore) InsertNuance(_ context.Context, n model.NuanceRule) error {
	m.data.mu.Lock()
	defer m.data.mu.Unlock()
	n.CreatedAt = createdAt(n.CreatedAt)
	f := m.fd(true)
	f.nuances = append(f.nuances, n)
	return nil
}

func (m *MemoryStore) InsertPhoneticRule(_ context.Context, p model.PhoneticRule) (bool, error) {
	p.WrongTerm = strings.TrimSpace(p.WrongTerm)
	p.CorrectedTerm = strings.TrimSpace(p.CorrectedTerm)
	if p.WrongTerm == "" {
		return false, eris.New("repository: termo_errado vazio")
	}

	m.data.mu.Lock()
	defer m.data.mu.Unlock()
	f := m.fd(true)
	for _, existing := range f.phonetics {
		if strings.EqualFold(existing.WrongTerm, p.WrongTerm) {
			return false, nil
		}
	}
	p.CreatedAt = createdAt(p.CreatedAt)
	f.phonetics = append(f.phonetics, p)
	return true, nil
}

func (m *MemoryStore) LogGeneration(_ context.Context, e model.GenerationLogEntry) error {
	m.data.mu.Lock()
	defer m.data.mu.Unlock()
	if e.Status == "" {
		e.Status = "gerado"
	}
	e.CreatedAt = createdAt(e.CreatedAt)
	f := m.fd(true)
	f.generations = append(f.generations, e)
	return nil
}

// DefaultCategories é a lista oficial de categorias com o tom de voz de cada
// uma. A última é a genérica.
func DefaultCategories() []model.Category {
	names := []struct{ name, tone string }{
		{"Áudio", "Experiência Sonora; Foco em imersão, qualidade de som e entretenimento."},
		{"Ar e Ventilação", "Conforto Térmico; Foco em bem-estar e eficiência para a casa."},
		{"Bebês", "Cuidado e Segurança; Tom acolhedor para o desenvolvimento e paz dos pais."},
		{"Beleza e Perfumaria", "Autocuidado; Foco em autoestima, fragrâncias e frescor."},
		{"Beleza e Saúde", "Bem-estar; Foco em cuidados pessoais e rotina saudável."},
		{"Brinquedos", "Diversão e Aprendizado; Tom lúdico, seguro e criativo."},
		{"Casa e Construção", "Transformação; Foco em reforma, qualidade e segurança da obra."},
		{"Casa Conectada", "Modernidade; Foco em automação e facilidade digital."},
		{"Casa Inteligente", "Tecnologia Prática; Descomplicar a automação para o dia a dia."},
		{"Celulares e Smartphones", "Conectividade; Foco em câmeras, bateria e produtividade."},
		{"Colchões", "Descanso Master; Enfatizar qualidade do sono e saúde da coluna."},
		{"Comércio e Indústria", "Profissional; Foco em eficiência, durabilidade e produtividade."},
		{"Eletrodomésticos", "Cozinha e Lavanderia; Foco em economia de energia e praticidade."},
		{"Eletroportáteis", "Facilidade; Pequenos itens que salvam a rotina doméstica."},
		{"Esporte e Lazer", "Vida Ativa; Motivação, saúde e resistência dos materiais."},
		{"Ferramentas", "Resolutivo; Foco no 'faça você mesmo' com precisão."},
		{"Games", "Imersão Gamer; Linguagem técnica, mas fluida (FPS, specs, latência)."},
		{"Informática", "Produtividade; Foco em trabalho e estudos sem complicação."},
		{"Mercado", "Conveniência; Foco em abastecimento, frescor e economia."},
		{"Moda", "Estilo Próprio; Foco em tendências, conforto e caimento."},
		{"Móveis", "Lar Doce Lar; Foco em design, espaço e durabilidade."},
		{"Tablets", "Mobilidade; Foco em leitura, estudo e entretenimento portátil."},
		{"Tablets, iPads e E-reader", "Conexão Digital; Foco em telas de qualidade e versatilidade."},
		{"TV e Vídeo", "Entretenimento; Foco em resolução, som e experiência de cinema."},
		{"Utilidades Domésticas", "Organização; Detalhes que facilitam a vida na cozinha."},
		{"Genérico", "Otimismo Prudente; Padrão Lu do Magalu para diversos itens."},
	}
	out := make([]model.Category, len(names))
	for i, n := range names {
		out[i] = model.Category{ID: i + 1, Name: n.name, ToneOfVoice: n.tone}
	}
	return out
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*KnowledgeRepository)(nil)
