package llm

import (
	"strings"
	"time"
)

// Resolver transforma ids de modelo em clientes prontos.
type Resolver struct {
	Credentials map[Provider]string
	// BaseURLs sobrescreve a URL padrão do provedor (proxies, testes).
	BaseURLs map[Provider]string
	Timeout  time.Duration
}

// NewResolver monta um Resolver a partir dos mapas da configuração, que usam
// o nome do provedor como chave.
func NewResolver(credentials, baseURLs map[string]string, timeout time.Duration) *Resolver {
	r := &Resolver{
		Credentials: make(map[Provider]string, len(credentials)),
		BaseURLs:    make(map[Provider]string, len(baseURLs)),
		Timeout:     timeout,
	}
	for k, v := range credentials {
		r.Credentials[Provider(strings.ToLower(k))] = v
	}
	for k, v := range baseURLs {
		r.BaseURLs[Provider(strings.ToLower(k))] = v
	}
	return r
}

// Resolve devolve o cliente do modelo. A falta de credencial é detectada
// aqui, antes de qualquer chamada de rede.
func (r *Resolver) Resolve(modelID string) (Client, error) {
	provider, raw := ParseModelID(modelID)
	info := registry[provider]

	key := strings.TrimSpace(r.Credentials[provider])
	if key == "" {
		return nil, &MissingCredentialError{Provider: provider, EnvVar: info.EnvVar}
	}

	baseURL := info.BaseURL
	if override := r.BaseURLs[provider]; override != "" {
		baseURL = override
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return info.build(clientConfig{
		provider: provider,
		model:    raw,
		apiKey:   key,
		baseURL:  baseURL,
		vision:   info.Vision,
		timeout:  timeout,
	})
}

// Available lista os provedores com credencial configurada.
func (r *Resolver) Available() []Provider {
	var out []Provider
	for _, p := range Providers() {
		if strings.TrimSpace(r.Credentials[p]) != "" {
			out = append(out, p)
		}
	}
	return out
}
