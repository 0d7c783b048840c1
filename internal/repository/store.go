package repository

import (
	"context"
	"strings"

	"roteirista/internal/model"
)

// Family escolhe o conjunto de tabelas: NW (padrão) ou NW 3D.
type Family string

const (
	FamilyNW Family = "nw_"
	Family3D Family = "nw3d_"
)

// FamilyForMode devolve a família das tabelas usadas pelo modo de trabalho.
func FamilyForMode(workMode string) Family {
	if strings.Contains(strings.ToUpper(workMode), "3D") {
		return Family3D
	}
	return FamilyNW
}

func (f Family) table(name string) string {
	if f != Family3D {
		f = FamilyNW
	}
	return string(f) + name
}

// Tabelas compartilhadas entre as famílias.
const (
	personaTable    = "nw_treinamento_persona_lu"
	categoriesTable = "nw_categorias"
)

// Reader é o que a montagem de prompt lê. Falhas viram resultados vazios.
type Reader interface {
	RecentGoldScripts(ctx context.Context, n int) []model.GoldScript
	RecentPersonaRules(ctx context.Context, n int) []model.PersonaRule
	PhoneticRules(ctx context.Context) []model.PhoneticRule
	StructureRules(ctx context.Context) []model.StructureRule
	RecentNuances(ctx context.Context, n int) []model.NuanceRule
	RecentLessons(ctx context.Context, n int) []string
}

// Writer grava regras novas. Nenhuma linha é alterada depois de escrita.
type Writer interface {
	InsertGoldScript(ctx context.Context, g model.GoldScript) error
	InsertPersonaRule(ctx context.Context, p model.PersonaRule) error
	InsertStructureRule(ctx context.Context, s model.StructureRule) error
	InsertNuance(ctx context.Context, n model.NuanceRule) error
	// InsertPhoneticRule ignora termos já cadastrados (sem diferenciar
	// maiúsculas) e informa se a linha foi inserida.
	InsertPhoneticRule(ctx context.Context, p model.PhoneticRule) (bool, error)
	LogGeneration(ctx context.Context, e model.GenerationLogEntry) error
}

// Store é o gateway completo de uma família de tabelas.
type Store interface {
	Reader
	Writer
	Categories(ctx context.Context) []model.Category
	RecentGenerations(ctx context.Context, n int) []model.GenerationLogEntry
	GoldScriptHistory(ctx context.Context, n int) []model.GoldScript
	WithFamily(f Family) Store
	Family() Family
}
