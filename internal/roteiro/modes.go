package roteiro

import (
	"strings"
	"unicode"

	"roteirista/internal/repository"
)

// WorkMode é uma linha da tabela de modos de trabalho.
type WorkMode struct {
	Key    string
	Family repository.Family
	// LongForm liga o cabeçalho obrigatório e a correção pós-geração.
	LongForm  bool
	directive func(h Header) string
}

// A ordem importa: "NW 3D" precisa casar com 3D antes de NW.
var workModes = []WorkMode{
	{Key: "3D", Family: repository.Family3D, directive: directive3D},
	{Key: "SOCIAL", Family: repository.FamilyNW, directive: directiveSocial},
	{Key: "REVIEW", Family: repository.FamilyNW, directive: directiveReview},
	{Key: "NW", Family: repository.FamilyNW, LongForm: true, directive: directiveNW},
}

var genericMode = WorkMode{Key: "", Family: repository.FamilyNW, directive: directiveGeneric}

// ModeFor escolhe o modo pela primeira chave que aparece como palavra
// inteira no texto, sem diferenciar maiúsculas. Modos desconhecidos usam o
// padrão genérico.
func ModeFor(workMode string) WorkMode {
	words := map[string]bool{}
	for _, w := range strings.FieldsFunc(strings.ToUpper(workMode), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		words[w] = true
	}
	for _, m := range workModes {
		if words[m.Key] {
			return m
		}
	}
	return genericMode
}

// Directive devolve a instrução do modo já com o cabeçalho preenchido.
func (m WorkMode) Directive(h Header) string {
	return m.directive(h)
}

func directiveNW(h Header) string {
	var sb strings.Builder
	sb.WriteString("Crie um roteiro no formato NewWeb (NW LU): descrição rica e completa do produto.\n\n")
	sb.WriteString("🚨 REGRA ABSOLUTA DE FORMATAÇÃO E ESTRUTURA (NW LU):\n")
	sb.WriteString("1. O TEXTO DEVE COMEÇAR COM O CABEÇALHO ABAIXO, reproduzido literalmente. Substitua apenas o que estiver entre colchetes:\n\n")
	for _, line := range h.TemplateLines() {
		sb.WriteString("   " + line + "\n")
	}
	sb.WriteString("\n2. Não copie o cabeçalho de nenhum exemplo: use SOMENTE os dados acima.\n")
	sb.WriteString("3. A CENA 1 DEVE OBRIGATORIAMENTE mostrar a Lu em ação, interagindo com o produto ou apresentando-o.\n")
	sb.WriteString("4. A partir da CENA 2 é PROIBIDO mostrar pessoas (nem a Lu, nem mãos, nem figurantes). Apenas cenas detalhadas do produto.")
	return sb.String()
}

func directive3D(Header) string {
	return "ATENÇÃO: Este formato é para 3D. Foque muito em descrever as texturas, cores exatas, reflexos, materiais " +
		"e ângulos importantes para o time de modelagem. Não descreva pessoas em cena."
}

func directiveSocial(Header) string {
	return "ATENÇÃO: Este formato é para SOCIAL (Reels/TikTok). O roteiro deve ser EXTREMAMENTE curto, dinâmico " +
		"e focado em retenção nos primeiros 3 segundos."
}

func directiveReview(Header) string {
	return "ATENÇÃO: Este formato é um REVIEW. Foque em prós, contras, uso prático diário e uma opinião direta " +
		"para quem vai gravar no estúdio."
}

func directiveGeneric(Header) string {
	return "Crie um roteiro focado no formato padrão NewWeb (descrição rica e completa)."
}
