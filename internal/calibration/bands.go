package calibration

import (
	"github.com/rotisserie/eris"
)

// Band é uma faixa de nota. Notas >= Min caem nela.
type Band struct {
	Min         int
	Label       string
	Description string
}

// Bands fica em ordem decrescente de Min e termina sempre em 0.
type Bands []Band

var bandNames = []struct{ label, desc string }{
	{"Ajuste fino", "só pontuação, uma palavra trocada ou fonética"},
	{"Edição de estilo", "frases reescritas pra soar mais natural, mesma estrutura"},
	{"Mudança estrutural", "cenas reordenadas, gancho ou CTA trocados, trechos inteiros reescritos"},
	{"Erro grave", "o texto aprovado praticamente substituiu o rascunho"},
}

// DefaultBands usa os cortes 96/85/60.
func DefaultBands() Bands {
	b, _ := NewBands([]int{96, 85, 60})
	return b
}

// NewBands monta as faixas a partir dos cortes configurados, que precisam ser
// estritamente decrescentes e ficar entre 1 e 100. A última faixa (0) é
// sempre a de erro grave.
func NewBands(thresholds []int) (Bands, error) {
	if len(thresholds) == 0 || len(thresholds) > len(bandNames)-1 {
		return nil, eris.Errorf("calibration: esperado de 1 a %d cortes, recebido %d", len(bandNames)-1, len(thresholds))
	}
	out := make(Bands, 0, len(thresholds)+1)
	prev := 101
	for i, t := range thresholds {
		if t < 1 || t >= prev {
			return nil, eris.Errorf("calibration: corte inválido %d na posição %d", t, i)
		}
		prev = t
		out = append(out, Band{Min: t, Label: bandNames[i].label, Description: bandNames[i].desc})
	}
	last := bandNames[len(bandNames)-1]
	return append(out, Band{Min: 0, Label: last.label, Description: last.desc}), nil
}

// Classify devolve o rótulo da faixa da nota.
func (b Bands) Classify(score int) string {
	for _, band := range b {
		if score >= band.Min {
			return band.Label
		}
	}
	if len(b) == 0 {
		return ""
	}
	return b[len(b)-1].Label
}

// upper é o limite superior (inclusivo) da faixa i.
func (b Bands) upper(i int) int {
	if i == 0 {
		return 100
	}
	return b[i-1].Min - 1
}
