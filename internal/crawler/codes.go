package crawler

import (
	"regexp"
	"strings"
)

var (
	codeSplitRe = regexp.MustCompile(`[,;\s]+`)
	urlCodeRe   = regexp.MustCompile(`/p/(\w+)`)
	nonAlnumRe  = regexp.MustCompile(`[^0-9a-zA-Z]`)
)

// ParseCodes separa a entrada do usuário em códigos. Aceita vírgula, ponto e
// vírgula, espaço e quebra de linha.
func ParseCodes(raw string) []string {
	var codes []string
	for _, c := range codeSplitRe.Split(strings.TrimSpace(raw), -1) {
		if c = strings.TrimSpace(c); c != "" {
			codes = append(codes, c)
		}
	}
	return codes
}

// CodeFromURL extrai o código de uma URL de produto (/p/<código>).
func CodeFromURL(u string) (string, bool) {
	m := urlCodeRe.FindStringSubmatch(u)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// NormalizeCode aceita código ou URL e devolve só o código.
func NormalizeCode(codeOrURL string) string {
	in := strings.TrimSpace(codeOrURL)
	if strings.HasPrefix(in, "http") {
		if code, ok := CodeFromURL(in); ok {
			return code
		}
		return in
	}
	return nonAlnumRe.ReplaceAllString(in, "")
}
