package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"roteirista/internal/batch"
	"roteirista/internal/calibration"
	"roteirista/internal/config"
	"roteirista/internal/cost"
	"roteirista/internal/crawler"
	"roteirista/internal/db"
	"roteirista/internal/knowledge"
	"roteirista/internal/llm"
	"roteirista/internal/repository"
	"roteirista/internal/roteiro"
	"roteirista/internal/session"
)

// appEnv reúne os componentes montados a partir da configuração, usados por
// todos os subcomandos.
type appEnv struct {
	Pool      *pgxpool.Pool // nil sem DATABASE_URL
	Redis     *redis.Client // nil sem REDIS_URL
	Store     repository.Store
	Sessions  session.Store
	Resolver  *llm.Resolver
	Costs     *cost.Accountant
	Generator *roteiro.Generator
	Recorder  *roteiro.Recorder
	Engine    *calibration.Engine
	Fetcher   *crawler.Fetcher
	Runner    *batch.Runner
}

func (e *appEnv) Close() {
	if e.Redis != nil {
		_ = e.Redis.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
}

// initApp monta o ambiente. Sem banco a base de conhecimento fica em memória;
// sem Redis as sessões também. Chame env.Close() ao terminar.
func initApp(ctx context.Context) (*appEnv, error) {
	env := &appEnv{}
	log := zap.L()

	if cfg.Database.URL != "" {
		pool, err := db.NewPool(ctx, cfg.Database.URL, db.PoolConfig{
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			return nil, eris.Wrap(err, "init database")
		}
		env.Pool = pool
		env.Store = repository.NewKnowledgeRepository(pool, repository.FamilyNW)
	} else {
		log.Warn("DATABASE_URL não definida, base de conhecimento em memória")
		env.Store = repository.NewMemoryStore()
	}

	env.Sessions = initSessions(ctx, env)

	bands, err := calibration.NewBands(cfg.Calibration.Bands)
	if err != nil {
		env.Close()
		return nil, eris.Wrap(err, "calibration bands")
	}

	env.Costs = newAccountant(cfg.Pricing)
	env.Resolver = llm.NewResolver(cfg.Providers.Credentials(), cfg.Providers.BaseURLs, cfg.Providers.CallTimeout)
	if len(env.Resolver.Available()) == 0 {
		log.Warn("nenhuma credencial de provedor configurada")
	}

	assembler := &roteiro.Assembler{
		Base:   knowledge.Load(cfg.Generation.KnowledgeRoot),
		Store:  env.Store,
		Writer: cfg.Generation.Writer,
	}
	env.Generator = roteiro.NewGenerator(assembler, env.Resolver, env.Costs, cfg.Generation.DefaultModel)
	env.Recorder = &roteiro.Recorder{Store: env.Store, Log: log.With(zap.String("component", "historico"))}
	env.Engine = calibration.NewEngine(env.Resolver, env.Store, cfg.Calibration.JudgeModels, cfg.Calibration.FallbackCategoryID, bands)
	env.Fetcher = crawler.NewFetcher(crawler.DefaultBaseURL)
	env.Runner = batch.NewRunner(env.Fetcher, env.Generator, env.Recorder, cfg.Generation.Cooldown)

	return env, nil
}

func initSessions(ctx context.Context, env *appEnv) session.Store {
	if cfg.Redis.Addr == "" {
		return session.NewMemoryStore()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		zap.L().Warn("redis indisponível, sessões em memória", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		_ = client.Close()
		return session.NewMemoryStore()
	}
	env.Redis = client
	return session.NewRedisStore(client, cfg.Redis.SessionTTL)
}

// newAccountant aplica os preços do config sobre a tabela padrão.
func newAccountant(p config.PricingConfig) *cost.Accountant {
	rates := cost.DefaultRates()
	for _, m := range p.Models {
		if m.ID != "" {
			rates[m.ID] = cost.ModelRate{Input: m.Input, Output: m.Output}
		}
	}
	return cost.NewAccountant(rates, p.USDToBRL)
}
