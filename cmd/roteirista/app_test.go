package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roteirista/internal/config"
	"roteirista/internal/cost"
	"roteirista/internal/repository"
	"roteirista/internal/session"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Providers: config.ProvidersConfig{ZAIKey: "chave"},
		Generation: config.GenerationConfig{
			DefaultModel:  "zai/glm-4.6",
			Writer:        "Breno",
			KnowledgeRoot: t.TempDir(),
			Cooldown:      time.Second,
		},
		Calibration: config.CalibrationConfig{
			JudgeModels:        []string{"zai/glm-4.6"},
			FallbackCategoryID: 26,
			Bands:              []int{96, 85, 60},
		},
	}
}

func TestInitApp_InMemoryFallbacks(t *testing.T) {
	cfg = testConfig(t)

	env, err := initApp(context.Background())
	require.NoError(t, err)
	defer env.Close()

	assert.Nil(t, env.Pool)
	assert.Nil(t, env.Redis)
	assert.IsType(t, &repository.MemoryStore{}, env.Store)
	assert.IsType(t, &session.MemoryStore{}, env.Sessions)
	assert.Len(t, env.Resolver.Available(), 1)
	assert.Equal(t, []string{"zai/glm-4.6"}, env.Engine.JudgeModels)
	assert.Equal(t, "zai/glm-4.6", env.Generator.DefaultModel)
}

func TestInitApp_RedisSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg = testConfig(t)
	cfg.Redis = config.RedisConfig{Addr: mr.Addr(), SessionTTL: time.Minute}

	env, err := initApp(context.Background())
	require.NoError(t, err)
	defer env.Close()

	require.NotNil(t, env.Redis)
	rs, ok := env.Sessions.(*session.RedisStore)
	require.True(t, ok)
	assert.Equal(t, time.Minute, rs.TTL)
}

func TestInitApp_UnreachableRedisFallsBackToMemory(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg = testConfig(t)
	cfg.Redis = config.RedisConfig{Addr: addr}

	env, err := initApp(context.Background())
	require.NoError(t, err)
	defer env.Close()

	assert.Nil(t, env.Redis)
	assert.IsType(t, &session.MemoryStore{}, env.Sessions)
}

func TestInitApp_InvalidBands(t *testing.T) {
	cfg = testConfig(t)
	cfg.Calibration.Bands = []int{60, 85}

	_, err := initApp(context.Background())
	assert.Error(t, err)
}

func TestNewAccountant_Overrides(t *testing.T) {
	t.Parallel()
	acc := newAccountant(config.PricingConfig{
		USDToBRL: 5,
		Models: []config.ModelPricing{
			{ID: "zai/glm-4.6", Input: 1, Output: 2},
			{ID: "local/modelo-x", Input: 3, Output: 4},
			{Input: 9, Output: 9},
		},
	})

	r, ok := acc.Rate("local/modelo-x")
	require.True(t, ok)
	assert.Equal(t, cost.ModelRate{Input: 3, Output: 4}, r)

	r, ok = acc.Rate("zai/glm-4.6")
	require.True(t, ok)
	assert.Equal(t, cost.ModelRate{Input: 1, Output: 2}, r)

	_, ok = acc.Rate("gemini-2.5-pro")
	assert.True(t, ok)

	// 1M de entrada a US$ 1 e 1M de saída a US$ 2, cotação 5.
	assert.InDelta(t, 15.0, acc.Cost("zai/glm-4.6", 1_000_000, 1_000_000), 1e-9)
}

func TestRootCommands(t *testing.T) {
	t.Parallel()
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "gerar", "lote", "calibrar", "fatos", "modelos"} {
		assert.Contains(t, names, want)
	}
}
