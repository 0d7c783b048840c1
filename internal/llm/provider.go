// Package llm resolve identificadores de modelo em clientes concretos dos
// provedores suportados, todos atrás do mesmo contrato Generate.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"roteirista/internal/model"
)

// Provider é o backend responsável por um modelo.
type Provider string

const (
	Gemini     Provider = "gemini"
	OpenAI     Provider = "openai"
	Puter      Provider = "puter"
	OpenRouter Provider = "openrouter"
	ZAI        Provider = "zai"
	Kimi       Provider = "kimi"
	Anthropic  Provider = "anthropic"
)

// DefaultProvider atende ids sem prefixo.
const DefaultProvider = Gemini

// DefaultTimeout limita cada chamada quando o contexto não traz prazo.
const DefaultTimeout = 60 * time.Second

// Generation é a resposta bruta de um provedor.
type Generation struct {
	Text      string
	TokensIn  int
	TokensOut int
}

// Client é o contrato uniforme de geração. Provedores sem visão descartam as
// imagens sem erro.
type Client interface {
	Generate(ctx context.Context, prompt string, images []model.Image) (*Generation, error)
	Provider() Provider
	Model() string
}

type constructor func(cfg clientConfig) (Client, error)

type clientConfig struct {
	provider Provider
	model    string
	apiKey   string
	baseURL  string
	vision   bool
	timeout  time.Duration
}

// providerInfo descreve um provedor. Incluir um novo provedor é só uma nova
// linha em registry.
type providerInfo struct {
	EnvVar  string
	BaseURL string
	Vision  bool
	build   constructor
}

var registry = map[Provider]providerInfo{
	Gemini:     {EnvVar: "GEMINI_API_KEY", Vision: true, build: newGeminiClient},
	OpenAI:     {EnvVar: "OPENAI_API_KEY", BaseURL: "https://api.openai.com/v1", Vision: true, build: newCompatClient},
	Puter:      {EnvVar: "PUTER_AUTH_TOKEN", BaseURL: "https://api.puter.com/puterai/openai/v1", build: newCompatClient},
	OpenRouter: {EnvVar: "OPENROUTER_API_KEY", BaseURL: "https://openrouter.ai/api/v1", Vision: true, build: newCompatClient},
	ZAI:        {EnvVar: "ZAI_API_KEY", BaseURL: "https://api.z.ai/api/paas/v4", build: newCompatClient},
	Kimi:       {EnvVar: "KIMI_API_KEY", BaseURL: "https://api.moonshot.ai/v1", build: newCompatClient},
	Anthropic:  {EnvVar: "ANTHROPIC_API_KEY", BaseURL: "https://api.anthropic.com", Vision: true, build: newAnthropicClient},
}

// Providers lista os provedores conhecidos em ordem estável.
func Providers() []Provider {
	return []Provider{Gemini, OpenAI, Puter, OpenRouter, ZAI, Kimi, Anthropic}
}

// EnvVar devolve a variável de ambiente com a credencial do provedor.
func EnvVar(p Provider) string {
	return registry[p].EnvVar
}

// SupportsVision informa se o provedor aceita imagens inline.
func SupportsVision(p Provider) bool {
	return registry[p].Vision
}

// ParseModelID separa o prefixo "<provedor>/" do id. Sem prefixo conhecido o
// id é do provedor padrão e volta inalterado.
func ParseModelID(id string) (Provider, string) {
	id = strings.TrimSpace(id)
	if i := strings.IndexByte(id, '/'); i > 0 {
		p := Provider(strings.ToLower(id[:i]))
		if _, ok := registry[p]; ok {
			return p, id[i+1:]
		}
	}
	return DefaultProvider, id
}

// MissingCredentialError é fatal: o usuário precisa configurar a chave.
type MissingCredentialError struct {
	Provider Provider
	EnvVar   string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("llm: credencial ausente para %s (defina %s)", e.Provider, e.EnvVar)
}

// ProviderCallError embrulha qualquer falha de SDK ou rede durante Generate.
type ProviderCallError struct {
	Provider Provider
	Model    string
	Err      error
}

func (e *ProviderCallError) Error() string {
	return fmt.Sprintf("llm: %s/%s: %v", e.Provider, e.Model, e.Err)
}

func (e *ProviderCallError) Unwrap() error { return e.Err }

func callError(cfg clientConfig, err error) error {
	return &ProviderCallError{Provider: cfg.provider, Model: cfg.model, Err: err}
}

// withDeadline aplica o timeout por chamada só se ctx ainda não tem prazo.
func withDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
