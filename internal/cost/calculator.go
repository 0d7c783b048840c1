// Package cost estima o custo em reais de cada chamada de LLM.
package cost

import "math"

// DefaultModel é a entrada usada quando o modelo não está na tabela.
const DefaultModel = "gemini-2.5-flash"

// DefaultUSDToBRL é a cotação fixa usada nas estimativas.
const DefaultUSDToBRL = 5.80

// ModelRate é o preço em USD por milhão de tokens.
type ModelRate struct {
	Input  float64
	Output float64
}

// Accountant calcula custos a partir de uma tabela estática de preços.
type Accountant struct {
	rates    map[string]ModelRate
	usdToBRL float64
}

// NewAccountant cria um Accountant. A tabela precisa conter DefaultModel; se
// não contiver, a entrada padrão de DefaultRates é adicionada.
func NewAccountant(rates map[string]ModelRate, usdToBRL float64) *Accountant {
	table := make(map[string]ModelRate, len(rates)+1)
	for id, r := range rates {
		table[id] = ModelRate{Input: math.Max(r.Input, 0), Output: math.Max(r.Output, 0)}
	}
	if _, ok := table[DefaultModel]; !ok {
		table[DefaultModel] = DefaultRates()[DefaultModel]
	}
	if usdToBRL <= 0 {
		usdToBRL = DefaultUSDToBRL
	}
	return &Accountant{rates: table, usdToBRL: usdToBRL}
}

// Rate devolve o preço do modelo e se ele estava na tabela.
func (a *Accountant) Rate(modelID string) (ModelRate, bool) {
	r, ok := a.rates[modelID]
	if !ok {
		return a.rates[DefaultModel], false
	}
	return r, true
}

// Cost devolve o custo estimado em BRL, arredondado em 6 casas.
func (a *Accountant) Cost(modelID string, tokensIn, tokensOut int) float64 {
	if tokensIn < 0 {
		tokensIn = 0
	}
	if tokensOut < 0 {
		tokensOut = 0
	}
	r, _ := a.Rate(modelID)
	usd := (float64(tokensIn)/1e6)*r.Input + (float64(tokensOut)/1e6)*r.Output
	return math.Round(usd*a.usdToBRL*1e6) / 1e6
}

// DefaultRates é a tabela canônica de preços (USD por 1M tokens).
func DefaultRates() map[string]ModelRate {
	return map[string]ModelRate{
		"gemini-2.5-flash":      {Input: 0.15, Output: 0.60},
		"gemini-2.5-flash-lite": {Input: 0.10, Output: 0.40},
		"gemini-2.5-pro":        {Input: 1.25, Output: 10.00},
		"gemini-2.0-flash":      {Input: 0.10, Output: 0.40},

		"openai/gpt-4o-mini": {Input: 0.15, Output: 0.60},
		"openai/gpt-4o":      {Input: 2.50, Output: 10.00},
		"openai/gpt-4.1":     {Input: 2.00, Output: 8.00},

		"openrouter/deepseek/deepseek-chat":     {Input: 0.30, Output: 0.85},
		"openrouter/meta-llama/llama-3.3-70b":   {Input: 0.13, Output: 0.40},
		"openrouter/anthropic/claude-3.5-haiku": {Input: 0.80, Output: 4.00},

		"zai/glm-4.6":       {Input: 0.60, Output: 2.20},
		"zai/glm-4.5-air":   {Input: 0.20, Output: 1.10},
		"kimi/kimi-k2-0905": {Input: 0.60, Output: 2.50},

		"anthropic/claude-sonnet-4-5": {Input: 3.00, Output: 15.00},
		"anthropic/claude-haiku-4-5":  {Input: 1.00, Output: 5.00},

		// Puter é gratuito para o usuário final.
		"puter/gpt-4o-mini":      {},
		"puter/claude-sonnet-4":  {},
		"puter/gemini-2.5-flash": {},
	}
}
