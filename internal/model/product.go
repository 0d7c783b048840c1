package model

import "strings"

// Image é uma imagem do produto enviada junto com o prompt (multimodal).
type Image struct {
	Data []byte
	MIME string
}

// Facts é a ficha técnica do produto, raspada ou colada pelo usuário.
type Facts struct {
	Text   string
	Images []Image
}

// HasContent indica se existe algo utilizável na ficha.
func (f Facts) HasContent() bool {
	return strings.TrimSpace(f.Text) != "" || len(f.Images) > 0
}

type Category struct {
	ID          int    `json:"id"`
	Name        string `json:"nome"`
	ToneOfVoice string `json:"tom_de_voz,omitempty"`
}

// Marcadores que o extrator de fichas devolve quando não consegue os dados.
var factsFailureMarkers = []string{
	"Não foi possível extrair dados",
	"Erro ao raspar",
}

// FailedFacts é a ficha devolvida quando a extração falha.
func FailedFacts(code string) Facts {
	return Facts{Text: "⚠️ Não foi possível extrair dados do produto " + code + ".\nCole a ficha técnica manualmente."}
}

// Failed indica que a ficha é o aviso de falha do extrator ou está vazia.
func (f Facts) Failed() bool {
	if !f.HasContent() {
		return true
	}
	for _, m := range factsFailureMarkers {
		if strings.Contains(f.Text, m) {
			return true
		}
	}
	return false
}
