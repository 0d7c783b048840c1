package roteiro

import (
	"regexp"
	"strings"
	"time"
)

// Client é fixo em todos os roteiros da casa.
const Client = "Magalu"

var months = [...]string{"JAN", "FEV", "MAR", "ABR", "MAI", "JUN", "JUL", "AGO", "SET", "OUT", "NOV", "DEZ"}

// MonthAbbrev devolve a sigla do mês em português (JAN..DEZ).
func MonthAbbrev(t time.Time) string {
	return months[t.Month()-1]
}

// Header são os campos canônicos do cabeçalho NW LU.
type Header struct {
	Writer        string
	Date          string
	Month         string
	Code          string
	SubCodes      string
	SupplierVideo string
	ProductName   string
}

func orPlaceholder(v, placeholder string) string {
	if strings.TrimSpace(v) == "" {
		return placeholder
	}
	return v
}

// TemplateLines é o cabeçalho mostrado ao modelo; campos desconhecidos viram
// marcadores entre colchetes.
func (h Header) TemplateLines() []string {
	return []string{
		"Cliente: " + Client,
		"Roteirista: " + orPlaceholder(h.Writer, "[NOME DO ROTEIRISTA]") + " – Data: " + h.Date,
		"Produto: NW LU " + h.Month + " " + orPlaceholder(h.Code, "[CÓDIGO]") + " " + orPlaceholder(h.ProductName, "[NOME DO PRODUTO]"),
		"Códigos: " + orPlaceholder(h.SubCodes, "[SUB-CÓDIGOS, SE HOUVER]"),
		"Vídeo do fornecedor: " + orPlaceholder(h.SupplierVideo, "[LINK, SE HOUVER]"),
	}
}

// Lines é o cabeçalho final gravado no roteiro. Campos opcionais vazios são
// omitidos.
func (h Header) Lines(name string) []string {
	product := strings.TrimSpace(strings.Join(strings.Fields("Produto: NW LU "+h.Month+" "+h.Code+" "+name), " "))
	lines := []string{
		"Cliente: " + Client,
		"Roteirista: " + h.Writer + " – Data: " + h.Date,
		product,
	}
	if s := strings.TrimSpace(h.SubCodes); s != "" {
		lines = append(lines, "Códigos: "+s)
	}
	if v := strings.TrimSpace(h.SupplierVideo); v != "" {
		lines = append(lines, "Vídeo do fornecedor: "+v)
	}
	return lines
}

var (
	clientLineRe  = regexp.MustCompile(`(?i)^[\s*_#>]*cliente\s*[*_]*\s*:`)
	fieldLineRe   = regexp.MustCompile(`(?i)^[\s*_#>-]*(roteirista|produto|c[óo]digos?|sub-?c[óo]digos?|v[íi]deo do fornecedor|data)\s*[*_]*\s*:`)
	productRe     = regexp.MustCompile(`(?i)^[\s*_#>-]*produto\s*[*_]*\s*:\s*[*_]*\s*`)
	nwPrefixRe    = regexp.MustCompile(`(?i)^NW\s+(LU|3D)\s+((JAN|FEV|MAR|ABR|MAI|JUN|JUL|AGO|SET|OUT|NOV|DEZ)\s+)?`)
	monthCodeRe   = regexp.MustCompile(`^(JAN|FEV|MAR|ABR|MAI|JUN|JUL|AGO|SET|OUT|NOV|DEZ)\s+(\d{4,})`)
	leadCodeRe    = regexp.MustCompile(`^[(\[]?\d{4,}[)\]]?(?:[\s,;/-]+|$)`)
	placeholderRe = regexp.MustCompile(`^\[[^\]]*\]$`)
)

// PurifyName remove de um nome de produto o que o modelo costuma inventar:
// "Produto:", "NW LU", a sigla do mês e códigos no início.
func PurifyName(name string) string {
	s := strings.TrimSpace(name)
	for {
		before := s
		s = productRe.ReplaceAllString(s, "")
		s = nwPrefixRe.ReplaceAllString(s, "")
		s = monthCodeRe.ReplaceAllString(s, "$2")
		s = leadCodeRe.ReplaceAllString(s, "")
		s = strings.Trim(s, " \t*_-–")
		if s == before {
			break
		}
	}
	if placeholderRe.MatchString(s) {
		return ""
	}
	return s
}

// PadCode deixa o código com 9 dígitos, completando com zeros à esquerda.
// Códigos sem dígitos voltam só aparados.
func PadCode(code string) string {
	var digits strings.Builder
	for _, r := range code {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if d == "" {
		return strings.TrimSpace(code)
	}
	if len(d) < 9 {
		d = strings.Repeat("0", 9-len(d)) + d
	}
	return d
}

// EnforceHeader reescreve o cabeçalho gerado com os campos canônicos. Procura
// a linha "Cliente:" e troca ela e as linhas de campo seguintes, inclusive as
// linhas em branco entre elas. Sem essa linha o texto volta inalterado.
func EnforceHeader(text string, h Header) string {
	lines := strings.Split(text, "\n")
	start := -1
	for i, l := range lines {
		if clientLineRe.MatchString(l) {
			start = i
			break
		}
	}
	if start < 0 {
		return text
	}

	end := start + 1
	generatedName := ""
	for i := start + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		if !fieldLineRe.MatchString(lines[i]) {
			break
		}
		if productRe.MatchString(lines[i]) {
			generatedName = lines[i]
		}
		end = i + 1
	}

	name := PurifyName(h.ProductName)
	if name == "" {
		name = PurifyName(generatedName)
	}

	out := make([]string, 0, len(lines)+2)
	out = append(out, lines[:start]...)
	out = append(out, h.Lines(name)...)
	out = append(out, lines[end:]...)
	return strings.Join(out, "\n")
}
