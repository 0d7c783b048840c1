// Package knowledge carrega a base de conhecimento estática do disco: o
// prompt de sistema, o dicionário de fonética e os documentos de contexto.
package knowledge

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
)

// MaxDocRunes limita cada documento de contexto no prompt.
const MaxDocRunes = 4000

// Doc é um documento de contexto já truncado.
type Doc struct {
	Name string
	Text string
}

// Example é um par antes/depois usado como few-shot.
type Example struct {
	Product string `json:"produto"`
	Before  string `json:"output_antes_ia_ruim"`
	After   string `json:"output_depois_breno_aprovado"`
}

// Phonetic é uma entrada do dicionário estático.
type Phonetic struct {
	Term          string
	Pronunciation string
}

// Base é o conteúdo estático carregado na inicialização. Somente leitura.
type Base struct {
	SystemPrompt string
	Phonetics    map[string]string
	ContextDocs  []Doc
	Examples     []Example
}

// Load lê root/.agents/system_prompt.txt, root/kb/phonetics.json,
// root/kb/few_shot_breno.json e root/kb/*.md. Arquivos ausentes ou inválidos
// viram valores vazios; Load nunca falha.
func Load(root string) *Base {
	log := zap.L().With(zap.String("component", "knowledge"))
	b := &Base{Phonetics: map[string]string{}}

	if data, err := os.ReadFile(filepath.Join(root, ".agents", "system_prompt.txt")); err == nil {
		b.SystemPrompt = string(data)
	} else {
		warnRead(log, "system_prompt.txt", err)
	}

	if !loadJSON(log, filepath.Join(root, "kb", "phonetics.json"), &b.Phonetics) || b.Phonetics == nil {
		b.Phonetics = map[string]string{}
	}
	if !loadJSON(log, filepath.Join(root, "kb", "few_shot_breno.json"), &b.Examples) {
		b.Examples = nil
	}

	paths, _ := filepath.Glob(filepath.Join(root, "kb", "*.md"))
	sort.Strings(paths)
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			warnRead(log, p, err)
			continue
		}
		b.ContextDocs = append(b.ContextDocs, Doc{
			Name: filepath.Base(p),
			Text: truncateRunes(string(data), MaxDocRunes),
		})
	}

	log.Info("base de conhecimento carregada",
		zap.Bool("system_prompt", b.SystemPrompt != ""),
		zap.Int("fonetica", len(b.Phonetics)),
		zap.Int("exemplos", len(b.Examples)),
		zap.Int("documentos", len(b.ContextDocs)))
	return b
}

// SortedPhonetics devolve o dicionário em ordem alfabética do termo.
func (b *Base) SortedPhonetics() []Phonetic {
	out := make([]Phonetic, 0, len(b.Phonetics))
	for term, pron := range b.Phonetics {
		out = append(out, Phonetic{Term: term, Pronunciation: pron})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Term < out[j].Term })
	return out
}

func loadJSON(log *zap.Logger, path string, v any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		warnRead(log, path, err)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Warn("json inválido na base de conhecimento", zap.String("arquivo", path), zap.Error(err))
		return false
	}
	return true
}

func warnRead(log *zap.Logger, path string, err error) {
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("arquivo da base de conhecimento ausente", zap.String("arquivo", path))
		return
	}
	log.Warn("falha ao ler base de conhecimento", zap.String("arquivo", path), zap.Error(err))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
