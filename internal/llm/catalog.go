package llm

import "roteirista/internal/cost"

// CatalogEntry liga o rótulo exibido na interface ao id do modelo.
type CatalogEntry struct {
	Label string `json:"rotulo"`
	ID    string `json:"id"`
}

// Catalog é a lista de modelos oferecida ao usuário, na ordem de exibição.
func Catalog() []CatalogEntry {
	return []CatalogEntry{
		{"Gemini 2.5 Flash (Rápido)", "gemini-2.5-flash"},
		{"Gemini 2.5 Flash Lite (Econômico)", "gemini-2.5-flash-lite"},
		{"Gemini 2.5 Pro (Qualidade)", "gemini-2.5-pro"},
		{"Gemini 2.0 Flash (Legado)", "gemini-2.0-flash"},
		{"GPT-4o Mini (OpenAI)", "openai/gpt-4o-mini"},
		{"GPT-4o (OpenAI)", "openai/gpt-4o"},
		{"GPT-4.1 (OpenAI)", "openai/gpt-4.1"},
		{"DeepSeek V3 (OpenRouter)", "openrouter/deepseek/deepseek-chat"},
		{"Llama 3.3 70B (OpenRouter)", "openrouter/meta-llama/llama-3.3-70b"},
		{"Claude 3.5 Haiku (OpenRouter)", "openrouter/anthropic/claude-3.5-haiku"},
		{"GLM 4.6 (Z.AI)", "zai/glm-4.6"},
		{"GLM 4.5 Air (Z.AI)", "zai/glm-4.5-air"},
		{"Kimi K2 (Moonshot)", "kimi/kimi-k2-0905"},
		{"Claude Sonnet 4.5 (Anthropic)", "anthropic/claude-sonnet-4-5"},
		{"Claude Haiku 4.5 (Anthropic)", "anthropic/claude-haiku-4-5"},
		{"GPT-4o Mini (Puter, gratuito)", "puter/gpt-4o-mini"},
		{"Claude Sonnet 4 (Puter, gratuito)", "puter/claude-sonnet-4"},
		{"Gemini 2.5 Flash (Puter, gratuito)", "puter/gemini-2.5-flash"},
	}
}

// LookupLabel devolve o id do rótulo. Rótulos desconhecidos são tratados
// como ids.
func LookupLabel(label string) string {
	for _, e := range Catalog() {
		if e.Label == label {
			return e.ID
		}
	}
	return label
}

// ModelSpec identifica um backend e seu preço por milhão de tokens (USD).
type ModelSpec struct {
	ID               string   `json:"id"`
	Provider         Provider `json:"provedor"`
	RawID            string   `json:"modelo"`
	InputPerMillion  float64  `json:"preco_entrada_1m"`
	OutputPerMillion float64  `json:"preco_saida_1m"`
	Vision           bool     `json:"visao"`
}

// Spec combina o parse do id com a tabela de preços.
func Spec(acc *cost.Accountant, modelID string) ModelSpec {
	p, raw := ParseModelID(modelID)
	rate, _ := acc.Rate(modelID)
	return ModelSpec{
		ID:               modelID,
		Provider:         p,
		RawID:            raw,
		InputPerMillion:  rate.Input,
		OutputPerMillion: rate.Output,
		Vision:           SupportsVision(p),
	}
}
