package model

import (
	"strings"
	"time"
)

// StructureType separa ganchos de abertura e CTAs de fechamento.
type StructureType string

const (
	StructureOpening StructureType = "Abertura (Gancho)"
	StructureClosing StructureType = "Fechamento (CTA)"
)

// ParseStructureType aceita os valores do banco e as variações que o juiz costuma devolver.
func ParseStructureType(s string) (StructureType, bool) {
	switch normalize(s) {
	case "abertura (gancho)", "abertura", "gancho", "opening", "hook":
		return StructureOpening, true
	case "fechamento (cta)", "fechamento", "cta", "closing":
		return StructureClosing, true
	}
	return "", false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// GoldScript é um roteiro aprovado pelo diretor de criação (roteiro ouro).
// Também é o registro de cada calibragem, inclusive as de nota baixa.
type GoldScript struct {
	ID             string    `json:"id,omitempty"`
	CategoryID     int       `json:"categoria_id"`
	ProductCode    string    `json:"codigo_produto"`
	ProductTitle   string    `json:"titulo_produto"`
	OriginalAIText string    `json:"roteiro_original_ia"`
	ApprovedText   string    `json:"roteiro_perfeito"`
	ScorePercent   int       `json:"nota_percentual"`
	Lesson         string    `json:"aprendizado"`
	JudgingModel   string    `json:"modelo_calibragem"`
	CreatedAt      time.Time `json:"criado_em"`
}

type PersonaRule struct {
	Pillar             string    `json:"pilar_persona"`
	AIText             string    `json:"texto_gerado_ia"`
	HumanText          string    `json:"texto_corrigido_humano"`
	SuggestedLexicon   string    `json:"lexico_sugerido"`
	MistakeDescription string    `json:"erro_cometido"`
	CreatedAt          time.Time `json:"criado_em"`
}

type PhoneticRule struct {
	WrongTerm       string    `json:"termo_errado"`
	CorrectedTerm   string    `json:"termo_corrigido"`
	ExampleSentence string    `json:"exemplo_no_roteiro"`
	CreatedAt       time.Time `json:"criado_em"`
}

type StructureRule struct {
	Type      StructureType `json:"tipo_estrutura"`
	GoldText  string        `json:"texto_ouro"`
	CreatedAt time.Time     `json:"criado_em"`
}

type NuanceRule struct {
	AIPhrase    string    `json:"frase_ia"`
	Critique    string    `json:"analise_critica"`
	GoldExample string    `json:"exemplo_ouro"`
	CreatedAt   time.Time `json:"criado_em"`
}

// GenerationLogEntry é a trilha de auditoria de cada geração. Nunca é alterada.
type GenerationLogEntry struct {
	ProductCode   string    `json:"codigo_produto"`
	WorkMode      string    `json:"modo_trabalho"`
	GeneratedText string    `json:"roteiro_gerado"`
	SourceFacts   string    `json:"ficha_extraida"`
	ModelID       string    `json:"modelo_llm"`
	TokensIn      int       `json:"tokens_entrada"`
	TokensOut     int       `json:"tokens_saida"`
	CostEstimate  float64   `json:"custo_estimado_brl"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"criado_em"`
}

// CalibrationResult é o veredito do juiz. Não é persistido diretamente: vira
// um GoldScript e alimenta as tabelas de treinamento.
type CalibrationResult struct {
	ScorePercent   int             `json:"percentual"`
	Lesson         string          `json:"aprendizado"`
	CategoryID     int             `json:"categoria_id"`
	ProductCode    string          `json:"codigo_produto"`
	JudgingModel   string          `json:"modelo_juiz"`
	Band           string          `json:"faixa,omitempty"`
	PhoneticRules  []PhoneticRule  `json:"regras_fonetica"`
	StructureRules []StructureRule `json:"regras_estrutura"`
	PersonaRules   []PersonaRule   `json:"regras_persona"`
	VisualRules    []string        `json:"regras_visuais"`
	Degraded       bool            `json:"degradado"`
}
