package calibration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"roteirista/internal/model"
)

func judgePrompt(in Input, bands Bands) string {
	var sb strings.Builder

	sb.WriteString("Você é o Diretor de Criação avaliando o rascunho de um roteirista júnior (a IA) contra a versão final aprovada.\n\n")
	sb.WriteString("ROTEIRO ORIGINAL (IA):\n")
	sb.WriteString(in.OriginalText)
	sb.WriteString("\n\nROTEIRO APROVADO (DIRETOR):\n")
	sb.WriteString(in.ApprovedText)

	sb.WriteString("\n\nTAREFA 1 - NOTA: dê um percentual de 0 a 100 de quanto do rascunho sobreviveu na versão aprovada, seguindo as faixas:\n")
	for i, b := range bands {
		fmt.Fprintf(&sb, "- %d%% a %d%%: %s (%s)\n", b.Min, bands.upper(i), b.Label, b.Description)
	}

	sb.WriteString("\nTAREFA 2 - APRENDIZADO: uma única frase afirmativa (máximo 150 caracteres), em terceira pessoa, dizendo o que a IA errou e qual correção foi aplicada.\n")

	sb.WriteString("\nTAREFA 3 - REGRAS: extraia somente o que mudou de fato entre os dois textos.\n")
	sb.WriteString("- regras_fonetica: termos que a IA escreveu de um jeito e o diretor trocou pela pronúncia correta para locução.\n")
	sb.WriteString("- regras_estrutura: ganchos de abertura ou CTAs de fechamento do texto aprovado. tipo_estrutura é \"" +
		string(model.StructureOpening) + "\" ou \"" + string(model.StructureClosing) + "\".\n")
	sb.WriteString("- regras_persona: desvios do tom da Lu (pilar da persona, trecho da IA, trecho corrigido, léxico sugerido, erro cometido).\n")
	sb.WriteString("- regras_visuais: orientações de imagem que o diretor acrescentou ou corrigiu, uma frase cada.\n")
	sb.WriteString("Listas sem mudança ficam vazias. Não invente regras.\n")

	sb.WriteString("\nTAREFA 4 - CATEGORIA: escolha o categoria_id do produto entre as opções:\n")
	for _, c := range in.Categories {
		fmt.Fprintf(&sb, "- %d: %s\n", c.ID, c.Name)
	}

	sb.WriteString("\nTAREFA 5 - CÓDIGO: copie para codigo_produto os códigos de produto (6 a 9 dígitos) que aparecem no roteiro aprovado, separados por vírgula.")
	if code := strings.TrimSpace(in.SuggestedCode); code != "" {
		sb.WriteString(" Código informado pelo roteirista: " + code + ".")
	}

	sb.WriteString("\n\nResponda APENAS com um objeto JSON, sem texto antes ou depois, neste formato:\n")
	sb.WriteString(`{"percentual": 90, "aprendizado": "...", "categoria_id": 1, "codigo_produto": "000000000", ` +
		`"regras_fonetica": [{"termo_errado": "...", "termo_corrigido": "...", "exemplo": "..."}], ` +
		`"regras_estrutura": [{"tipo_estrutura": "...", "texto_ouro": "..."}], ` +
		`"regras_persona": [{"pilar_persona": "...", "texto_gerado_ia": "...", "texto_corrigido_humano": "...", "lexico_sugerido": "...", "erro_cometido": "..."}], ` +
		`"regras_visuais": ["..."]}`)
	return sb.String()
}

// verdict é a resposta do juiz como ela chega; os tipos são tolerantes.
type verdict struct {
	Score     flexInt           `json:"percentual"`
	Lesson    flexString        `json:"aprendizado"`
	Category  flexInt           `json:"categoria_id"`
	Code      flexString        `json:"codigo_produto"`
	Phonetic  []phoneticVerdict `json:"regras_fonetica"`
	Structure []structVerdict   `json:"regras_estrutura"`
	Persona   []personaVerdict  `json:"regras_persona"`
	Visual    []flexString      `json:"regras_visuais"`
}

type phoneticVerdict struct {
	WrongTerm     flexString `json:"termo_errado"`
	CorrectedTerm flexString `json:"termo_corrigido"`
	Example       flexString `json:"exemplo"`
}

type structVerdict struct {
	Type     flexString `json:"tipo_estrutura"`
	GoldText flexString `json:"texto_ouro"`
}

type personaVerdict struct {
	Pillar    flexString `json:"pilar_persona"`
	AIText    flexString `json:"texto_gerado_ia"`
	HumanText flexString `json:"texto_corrigido_humano"`
	Lexicon   flexString `json:"lexico_sugerido"`
	Mistake   flexString `json:"erro_cometido"`
}

// flexInt aceita 90, 90.5, "90" e "90%".
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

// flexString aceita string, número, lista ou objeto. Lista de strings vira
// texto separado por vírgula; o resto é guardado como JSON compacto.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*f = flexString(strings.Join(list, ", "))
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return err
	}
	*f = flexString(buf.String())
	return nil
}

func (f flexString) trim() string { return strings.TrimSpace(string(f)) }
