package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFacts_Failed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		facts Facts
		want  bool
	}{
		{"empty", Facts{}, true},
		{"blank text", Facts{Text: " \n "}, true},
		{"images only", Facts{Images: []Image{{Data: []byte{1}}}}, false},
		{"extractor failure", FailedFacts("240815300"), true},
		{"scrape error", Facts{Text: "Erro ao raspar a página: timeout"}, true},
		{"real sheet", Facts{Text: "Marca: Electrolux\nPotência: 1400W"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.facts.Failed())
		})
	}
}

func TestParseStructureType(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]StructureType{
		"Abertura (Gancho)": StructureOpening,
		" gancho ":          StructureOpening,
		"Hook":              StructureOpening,
		"Fechamento (CTA)":  StructureClosing,
		"cta":               StructureClosing,
	} {
		got, ok := ParseStructureType(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParseStructureType("meio")
	assert.False(t, ok)
}
