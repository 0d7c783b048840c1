package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"roteirista/internal/db"
	"roteirista/internal/model"
)

// KnowledgeRepository é o Store sobre Postgres.
type KnowledgeRepository struct {
	DB  db.Pool
	Fam Family
	Log *zap.Logger
}

func NewKnowledgeRepository(pool db.Pool, f Family) *KnowledgeRepository {
	return &KnowledgeRepository{
		DB:  pool,
		Fam: f,
		Log: zap.L().With(zap.String("component", "repository")),
	}
}

func (r *KnowledgeRepository) WithFamily(f Family) Store {
	cp := *r
	cp.Fam = f
	return &cp
}

func (r *KnowledgeRepository) Family() Family { return r.Fam }

func (r *KnowledgeRepository) logger() *zap.Logger {
	if r.Log == nil {
		return zap.L()
	}
	return r.Log
}

// list executa uma leitura e engole a falha: o prompt perde qualidade, mas a
// geração segue.
func list[T any](ctx context.Context, r *KnowledgeRepository, table, sql string, scan func(pgx.Rows) (T, error), args ...any) []T {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		r.logger().Warn("leitura da base falhou", zap.String("tabela", table), zap.Error(err))
		return nil
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			r.logger().Warn("linha ignorada", zap.String("tabela", table), zap.Error(err))
			continue
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		r.logger().Warn("leitura da base interrompida", zap.String("tabela", table), zap.Error(err))
	}
	return out
}

const goldColumns = `id::text, COALESCE(categoria_id, 0), COALESCE(codigo_produto, ''), titulo_produto,
		COALESCE(roteiro_original_ia, ''), roteiro_perfeito, COALESCE(nota_percentual, 0),
		COALESCE(aprendizado, ''), COALESCE(modelo_calibragem, ''), criado_em`

func scanGold(rows pgx.Rows) (model.GoldScript, error) {
	var g model.GoldScript
	err := rows.Scan(&g.ID, &g.CategoryID, &g.ProductCode, &g.ProductTitle, &g.OriginalAIText,
		&g.ApprovedText, &g.ScorePercent, &g.Lesson, &g.JudgingModel, &g.CreatedAt)
	return g, err
}

func (r *KnowledgeRepository) RecentGoldScripts(ctx context.Context, n int) []model.GoldScript {
	t := r.Fam.table("roteiros_ouro")
	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE roteiro_perfeito <> '' ORDER BY criado_em DESC LIMIT $1`, goldColumns, t)
	return list(ctx, r, t, sql, scanGold, n)
}

// GoldScriptHistory inclui calibragens sem texto aprovado, para a tela de histórico.
func (r *KnowledgeRepository) GoldScriptHistory(ctx context.Context, n int) []model.GoldScript {
	t := r.Fam.table("roteiros_ouro")
	sql := fmt.Sprintf(`SELECT %s FROM %s ORDER BY criado_em DESC LIMIT $1`, goldColumns, t)
	return list(ctx, r, t, sql, scanGold, n)
}

func (r *KnowledgeRepository) RecentLessons(ctx context.Context, n int) []string {
	t := r.Fam.table("roteiros_ouro")
	sql := fmt.Sprintf(`SELECT aprendizado FROM %s
		WHERE aprendizado IS NOT NULL AND aprendizado <> ''
		ORDER BY criado_em DESC LIMIT $1`, t)
	return list(ctx, r, t, sql, func(rows pgx.Rows) (string, error) {
		var s string
		err := rows.Scan(&s)
		return s, err
	}, n)
}

func (r *KnowledgeRepository) RecentPersonaRules(ctx context.Context, n int) []model.PersonaRule {
	sql := `SELECT COALESCE(pilar_persona, ''), COALESCE(texto_gerado_ia, ''), COALESCE(texto_corrigido_humano, ''),
		COALESCE(lexico_sugerido, ''), COALESCE(erro_cometido, ''), criado_em
		FROM ` + personaTable + ` ORDER BY criado_em DESC LIMIT $1`
	return list(ctx, r, personaTable, sql, func(rows pgx.Rows) (model.PersonaRule, error) {
		var p model.PersonaRule
		err := rows.Scan(&p.Pillar, &p.AIText, &p.HumanText, &p.SuggestedLexicon, &p.MistakeDescription, &p.CreatedAt)
		return p, err
	}, n)
}

func (r *KnowledgeRepository) PhoneticRules(ctx context.Context) []model.PhoneticRule {
	t := r.Fam.table("treinamento_fonetica")
	sql := fmt.Sprintf(`SELECT termo_errado, termo_corrigido, COALESCE(exemplo_no_roteiro, ''), criado_em
		FROM %s ORDER BY criado_em DESC`, t)
	return list(ctx, r, t, sql, func(rows pgx.Rows) (model.PhoneticRule, error) {
		var p model.PhoneticRule
		err := rows.Scan(&p.WrongTerm, &p.CorrectedTerm, &p.ExampleSentence, &p.CreatedAt)
		return p, err
	})
}

func (r *KnowledgeRepository) StructureRules(ctx context.Context) []model.StructureRule {
	t := r.Fam.table("treinamento_estruturas")
	sql := fmt.Sprintf(`SELECT tipo_estrutura, texto_ouro, criado_em FROM %s ORDER BY criado_em DESC`, t)
	return list(ctx, r, t, sql, func(rows pgx.Rows) (model.StructureRule, error) {
		var s model.StructureRule
		var kind string
		err := rows.Scan(&kind, &s.GoldText, &s.CreatedAt)
		s.Type = model.StructureType(kind)
		return s, err
	})
}

func (r *KnowledgeRepository) RecentNuances(ctx context.Context, n int) []model.NuanceRule {
	t := r.Fam.table("treinamento_nuances")
	sql := fmt.Sprintf(`SELECT frase_ia, analise_critica, COALESCE(exemplo_ouro, ''), criado_em
		FROM %s ORDER BY criado_em DESC LIMIT $1`, t)
	return list(ctx, r, t, sql, func(rows pgx.Rows) (model.NuanceRule, error) {
		var nr model.NuanceRule
		err := rows.Scan(&nr.AIPhrase, &nr.Critique, &nr.GoldExample, &nr.CreatedAt)
		return nr, err
	}, n)
}

func (r *KnowledgeRepository) Categories(ctx context.Context) []model.Category {
	sql := `SELECT id, nome, COALESCE(tom_de_voz, '') FROM ` + categoriesTable + ` ORDER BY id`
	return list(ctx, r, categoriesTable, sql, func(rows pgx.Rows) (model.Category, error) {
		var c model.Category
		err := rows.Scan(&c.ID, &c.Name, &c.ToneOfVoice)
		return c, err
	})
}

func (r *KnowledgeRepository) RecentGenerations(ctx context.Context, n int) []model.GenerationLogEntry {
	t := r.Fam.table("historico_roteiros")
	sql := fmt.Sprintf(`SELECT COALESCE(codigo_produto, ''), COALESCE(modo_trabalho, ''), roteiro_gerado,
		COALESCE(ficha_extraida, ''), COALESCE(modelo_llm, ''), COALESCE(tokens_entrada, 0), COALESCE(tokens_saida, 0),
		COALESCE(custo_estimado_brl, 0)::float8, COALESCE(status, ''), criado_em
		FROM %s ORDER BY criado_em DESC LIMIT $1`, t)
	return list(ctx, r, t, sql, func(rows pgx.Rows) (model.GenerationLogEntry, error) {
		var e model.GenerationLogEntry
		err := rows.Scan(&e.ProductCode, &e.WorkMode, &e.GeneratedText, &e.SourceFacts, &e.ModelID,
			&e.TokensIn, &e.TokensOut, &e.CostEstimate, &e.Status, &e.CreatedAt)
		return e, err
	}, n)
}

func (r *KnowledgeRepository) InsertGoldScript(ctx context.Context, g model.GoldScript) error {
	t := r.Fam.table("roteiros_ouro")
	_, err := r.DB.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s
		(id, categoria_id, codigo_produto, titulo_produto, roteiro_original_ia, roteiro_perfeito,
		 nota_percentual, aprendizado, modelo_calibragem, criado_em)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, t), uuid.New(), nullableID(g.CategoryID), g.ProductCode, g.ProductTitle, g.OriginalAIText,
		g.ApprovedText, g.ScorePercent, g.Lesson, g.JudgingModel, createdAt(g.CreatedAt))
	return eris.Wrapf(err, "repository: insert %s", t)
}

func (r *KnowledgeRepository) InsertPersonaRule(ctx context.Context, p model.PersonaRule) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO `+personaTable+`
		(id, pilar_persona, texto_gerado_ia, texto_corrigido_humano, lexico_sugerido, erro_cometido, criado_em)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.New(), p.Pillar, p.AIText, p.HumanText, p.SuggestedLexicon, p.MistakeDescription, createdAt(p.CreatedAt))
	return eris.Wrapf(err, "repository: insert %s", personaTable)
}

func (r *KnowledgeRepository) InsertStructureRule(ctx context.Context, s model.StructureRule) error {
	t := r.Fam.table("treinamento_estruturas")
	_, err := r.DB.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, tipo_estrutura, texto_ouro, criado_em)
		VALUES ($1, $2, $3, $4)
	`, t), uuid.New(), string(s.Type), s.GoldText, createdAt(s.CreatedAt))
	return eris.Wrapf(err, "repository: insert %s", t)
}

func (r *KnowledgeRepository) InsertNuance(ctx context.Context, n model.NuanceRule) error {
	t := r.Fam.table("treinamento_nuances")
	_, err := r.DB.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, frase_ia, analise_critica, exemplo_ouro, criado_em)
		VALUES ($1, $2, $3, $4, $5)
	`, t), uuid.New(), n.AIPhrase, n.Critique, n.GoldExample, createdAt(n.CreatedAt))
	return eris.Wrapf(err, "repository: insert %s", t)
}

// InsertPhoneticRule grava o termo só se ele ainda não existe. A checagem e
// a inserção vão no mesmo comando.
func (r *KnowledgeRepository) InsertPhoneticRule(ctx context.Context, p model.PhoneticRule) (bool, error) {
	t := r.Fam.table("treinamento_fonetica")
	wrong := strings.TrimSpace(p.WrongTerm)
	if wrong == "" {
		return false, eris.New("repository: termo_errado vazio")
	}
	tag, err := r.DB.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %[1]s (id, termo_errado, termo_corrigido, exemplo_no_roteiro, criado_em)
		SELECT $1, $2, $3, $4, $5
		WHERE NOT EXISTS (SELECT 1 FROM %[1]s WHERE lower(termo_errado) = lower($2))
	`, t), uuid.New(), wrong, strings.TrimSpace(p.CorrectedTerm), p.ExampleSentence, createdAt(p.CreatedAt))
	if err != nil {
		return false, eris.Wrapf(err, "repository: insert %s", t)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *KnowledgeRepository) LogGeneration(ctx context.Context, e model.GenerationLogEntry) error {
	t := r.Fam.table("historico_roteiros")
	status := e.Status
	if status == "" {
		status = "gerado"
	}
	_, err := r.DB.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s
		(id, codigo_produto, modo_trabalho, roteiro_gerado, ficha_extraida, status, modelo_llm,
		 tokens_entrada, tokens_saida, custo_estimado_brl, criado_em)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, t), uuid.New(), e.ProductCode, e.WorkMode, strings.ToValidUTF8(e.GeneratedText, ""),
		strings.ToValidUTF8(e.SourceFacts, ""), status, e.ModelID, e.TokensIn, e.TokensOut, e.CostEstimate,
		createdAt(e.CreatedAt))
	return eris.Wrapf(err, "repository: insert %s", t)
}

func nullableID(id int) any {
	if id <= 0 {
		return nil
	}
	return id
}

func createdAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
