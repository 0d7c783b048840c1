// Package roteiro monta o prompt e gera roteiros a partir da ficha técnica.
package roteiro

import (
	"context"
	"fmt"
	"strings"
	"time"

	"roteirista/internal/knowledge"
	"roteirista/internal/model"
	"roteirista/internal/repository"
)

// RefusalSentinel é a resposta que o modelo deve dar quando a ficha não tem
// dados suficientes.
const RefusalSentinel = "ERRO: DADOS INSUFICIENTES"

// Limites das seções dinâmicas (mais recentes primeiro).
const (
	goldLimit    = 5
	personaLimit = 5
	nuanceLimit  = 5
	lessonLimit  = 8
)

// Request descreve um pedido de roteiro.
type Request struct {
	Facts         model.Facts
	WorkMode      string
	Month         string
	Date          time.Time
	ProductCode   string
	ProductName   string
	SubCodes      string
	SupplierVideo string
	ModelID       string
}

// Assembler monta o prompt final. Lê a base estática e o Store, sem efeitos
// colaterais.
type Assembler struct {
	Base   *knowledge.Base
	Store  repository.Store
	Writer string
	Now    func() time.Time
}

func (a *Assembler) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// Header devolve os campos canônicos do cabeçalho para o pedido.
func (a *Assembler) Header(req Request) Header {
	date := req.Date
	if date.IsZero() {
		date = a.now()
	}
	month := strings.ToUpper(strings.TrimSpace(req.Month))
	if month == "" {
		month = MonthAbbrev(date)
	}
	code := ""
	if strings.TrimSpace(req.ProductCode) != "" {
		code = PadCode(req.ProductCode)
	}
	return Header{
		Writer:        a.Writer,
		Date:          date.Format("02/01/2006"),
		Month:         month,
		Code:          code,
		SubCodes:      strings.TrimSpace(req.SubCodes),
		SupplierVideo: strings.TrimSpace(req.SupplierVideo),
		ProductName:   PurifyName(req.ProductName),
	}
}

// Assemble concatena as seções na ordem fixa: regras estáticas, documentos
// de contexto, fonética base, exemplos, blocos dinâmicos da base, diretriz do
// modo e por fim a ficha com as instruções numeradas.
func (a *Assembler) Assemble(ctx context.Context, req Request) string {
	mode := ModeFor(req.WorkMode)
	var parts []string

	if a.Base != nil {
		parts = append(parts, a.staticSections()...)
	}
	if a.Store != nil {
		parts = append(parts, a.dynamicSections(ctx, a.Store.WithFamily(mode.Family))...)
	}

	workMode := strings.TrimSpace(req.WorkMode)
	if workMode == "" {
		workMode = "Padrão"
	}
	parts = append(parts,
		"\n**MODO DE TRABALHO SOLICITADO:** "+workMode+"\n-> "+mode.Directive(a.Header(req)),
		"\n**CONTEXTO DO PRODUTO (INPUT TEXTUAL E/OU VISUAL):**\n"+req.Facts.Text,
		"\n**INSTRUÇÃO FINAL:**\n"+instructions(len(req.Facts.Images) > 0),
	)
	return strings.Join(parts, "\n")
}

func (a *Assembler) staticSections() []string {
	var parts []string
	b := a.Base
	if b.SystemPrompt != "" {
		parts = append(parts, b.SystemPrompt)
	}
	if len(b.ContextDocs) > 0 {
		parts = append(parts,
			"\n**CONTEXTO ESTRATÉGICO (MERCADO BRASILEIRO E PERSONA LU):**",
			"Use este conhecimento para adaptar o tom e as referências do roteiro:")
		for _, d := range b.ContextDocs {
			parts = append(parts, d.Text)
		}
	}
	if ph := b.SortedPhonetics(); len(ph) > 0 {
		parts = append(parts, "\n**DICIONÁRIO DE FONÉTICA BASE (PADRÃO):**")
		for _, p := range ph {
			parts = append(parts, fmt.Sprintf("- %s -> (%s)", p.Term, p.Pronunciation))
		}
	}
	if len(b.Examples) > 0 {
		parts = append(parts, "\n**EXEMPLOS HISTÓRICOS DE REFERÊNCIA:**")
		for _, ex := range b.Examples {
			parts = append(parts,
				"\n--- EXEMPLO: "+ex.Product+" ---",
				"❌ TEXTO IA: "+ex.Before,
				"✅ COMO O DIRETOR QUER: "+ex.After)
		}
	}
	return parts
}

func (a *Assembler) dynamicSections(ctx context.Context, s repository.Reader) []string {
	var parts []string

	if gold := s.RecentGoldScripts(ctx, goldLimit); len(gold) > 0 {
		parts = append(parts, "\n**REFERÊNCIAS DE ELITE (ROTEIROS OURO SÃO O ALVO):**")
		for _, g := range gold {
			parts = append(parts, fmt.Sprintf("- Produto: %s (nota %d%%)\n  Roteiro Perfeito: %s", g.ProductTitle, g.ScorePercent, g.ApprovedText))
		}
	}

	if persona := s.RecentPersonaRules(ctx, personaLimit); len(persona) > 0 {
		parts = append(parts, "\n**AJUSTES DE PERSONA (LIÇÕES APRENDIDAS):**")
		for _, p := range persona {
			entry := fmt.Sprintf("- Pilar: %s\n  Erro Anterior: %s\n  Correção Master: %s", p.Pillar, p.MistakeDescription, p.HumanText)
			if p.SuggestedLexicon != "" {
				entry += "\n  Léxico Sugerido: " + p.SuggestedLexicon
			}
			parts = append(parts, entry)
		}
	}

	if phon := s.PhoneticRules(ctx); len(phon) > 0 {
		parts = append(parts, "\n**NOVAS REGRAS DE FONÉTICA (OBRIGATÓRIO):**")
		for _, f := range phon {
			parts = append(parts, fmt.Sprintf("- %s -> (%s)", f.WrongTerm, f.CorrectedTerm))
		}
	}

	if est := s.StructureRules(ctx); len(est) > 0 {
		parts = append(parts, "\n**ESTRUTURAS APROVADAS PARA INSPIRAÇÃO (HOOKS E CTAs):**")
		for _, e := range est {
			parts = append(parts, fmt.Sprintf("- [%s] %s", e.Type, e.GoldText))
		}
	}

	if nuances := s.RecentNuances(ctx, nuanceLimit); len(nuances) > 0 {
		parts = append(parts, "\n**NUANCES E REFINAMENTO DE ESTILO (LIÇÕES DE REDAÇÃO):**")
		for _, n := range nuances {
			entry := fmt.Sprintf("- EVITE: '%s'\n  POR QUE: %s", n.AIPhrase, n.Critique)
			if n.GoldExample != "" {
				entry += fmt.Sprintf("\n  FORMA IDEAL: '%s'", n.GoldExample)
			}
			parts = append(parts, entry)
		}
	}

	if lessons := s.RecentLessons(ctx, lessonLimit); len(lessons) > 0 {
		parts = append(parts, "\n**MEMÓRIA RECENTE DE CORREÇÕES (NÃO REPITA ESTES ERROS):**")
		for _, l := range lessons {
			parts = append(parts, "- "+l)
		}
	}

	return parts
}

func instructions(hasImages bool) string {
	steps := []string{
		"Gere o roteiro no FORMATO DE SAÍDA OBRIGATÓRIO.",
		"Siga RIGOROSAMENTE as Regras de Ouro do estilo da casa.",
	}
	if hasImages {
		steps = append(steps, "Extraia das imagens fornecidas o máximo de detalhes visuais (cor, textura, design dos vários ângulos) pra enriquecer o roteiro.")
	}
	steps = append(steps,
		"Imite fielmente o estilo dos exemplos APROVADOS.",
		"Use 'pra' no lugar de 'para'.",
		"Coloque o nome da marca entre vírgulas.",
		"**ENRIQUECIMENTO DE CONTEXTO:** Para produtos mundialmente conhecidos (Ex: LEGO, Star Wars, iPhone), você PODE usar seu conhecimento interno para adicionar detalhes técnicos ou curiosidades que NÃO estejam na ficha, visando valorizar o roteiro.",
		"**REGRA DE REFERÊNCIA:** Se você usar conhecimento interno (item anterior) ou dados do fabricante, adicione OBRIGATORIAMENTE no rodapé do roteiro a linha 'Fonte Externa: <link da fonte ou site oficial do fabricante>'.",
		"**ANTI-ALUCINAÇÃO:** Se a ficha não trouxer dados suficientes pra escrever o roteiro, NÃO invente. Responda apenas com a frase exata '"+RefusalSentinel+"'.",
	)

	var sb strings.Builder
	for i, s := range steps {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, s)
	}
	return strings.TrimRight(sb.String(), "\n")
}
