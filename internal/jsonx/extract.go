// Package jsonx extrai objetos JSON de respostas de LLM que misturam texto,
// cercas de código markdown e o objeto em si.
package jsonx

import (
	"bytes"
	"encoding/json"
	"regexp"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrNoJSON indica que nenhuma das estratégias encontrou um objeto válido.
var ErrNoJSON = eris.New("jsonx: no JSON object found")

var fenceRe = regexp.MustCompile("(?s)```[a-zA-Z]*[ \t]*\\r?\\n?(.*?)```")

// Extract devolve o primeiro objeto JSON encontrado em text. A ordem é fixa:
// parse direto, bloco cercado por ``` e, por fim, o primeiro trecho {...}
// balanceado que faça parse.
func Extract(text string) (map[string]any, error) {
	raw, err := Find(text)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, eris.Wrap(err, "jsonx: unmarshal")
	}
	return out, nil
}

// Decode aplica Find e faz unmarshal do objeto em v.
func Decode(text string, v any) error {
	raw, err := Find(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return eris.Wrap(err, "jsonx: decode")
	}
	return nil
}

// Find devolve os bytes do objeto JSON encontrado em text.
func Find(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if isObject(trimmed) {
		return json.RawMessage(trimmed), nil
	}

	for _, m := range fenceRe.FindAllStringSubmatch(text, -1) {
		body := strings.TrimSpace(m[1])
		if isObject(body) {
			return json.RawMessage(body), nil
		}
		if span, ok := firstBalancedObject(body); ok {
			return span, nil
		}
	}

	if span, ok := firstBalancedObject(text); ok {
		return span, nil
	}
	return nil, ErrNoJSON
}

func isObject(s string) bool {
	if !strings.HasPrefix(s, "{") {
		return false
	}
	var v map[string]any
	return json.Unmarshal([]byte(s), &v) == nil
}

// maxRescans limita as novas varreduras quando uma aspa solta deixa a
// varredura presa dentro de uma string até o fim do texto.
const maxRescans = 32

// firstBalancedObject varre text uma vez a partir da primeira '{', empilhando
// chaves fora de strings. Cada par fechado vira um candidato e o de menor
// início que faça parse vence. Chaves que nunca fecham não custam novas
// varreduras; só uma string sem fim força recomeçar na próxima '{'.
func firstBalancedObject(text string) (json.RawMessage, bool) {
	from := strings.IndexByte(text, '{')
	for rescans := 0; from >= 0 && rescans <= maxRescans; rescans++ {
		spans, stuck := balancedSpans(text, from)
		slices.SortFunc(spans, func(a, b braceSpan) int { return a.start - b.start })
		for _, sp := range spans {
			candidate := text[sp.start : sp.end+1]
			if isObject(candidate) {
				return json.RawMessage(bytes.Clone([]byte(candidate))), true
			}
		}
		if !stuck {
			break
		}
		next := strings.IndexByte(text[from+1:], '{')
		if next < 0 {
			break
		}
		from += next + 1
	}
	return nil, false
}

type braceSpan struct{ start, end int }

// balancedSpans devolve os pares de chaves fechados a partir de from e se a
// varredura terminou dentro de uma string. Aspas fora de chaves são texto.
func balancedSpans(text string, from int) ([]braceSpan, bool) {
	var (
		spans    []braceSpan
		stack    []int
		inString bool
		escape   bool
	)
	for i := from; i < len(text); i++ {
		c := text[i]
		if escape {
			escape = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = len(stack) > 0
		case '{':
			stack = append(stack, i)
		case '}':
			if n := len(stack); n > 0 {
				spans = append(spans, braceSpan{start: stack[n-1], end: i})
				stack = stack[:n-1]
			}
		}
	}
	return spans, inString
}
