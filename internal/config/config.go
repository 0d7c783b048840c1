package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Providers   ProvidersConfig   `mapstructure:"providers"`
	Generation  GenerationConfig  `mapstructure:"generation"`
	Calibration CalibrationConfig `mapstructure:"calibration"`
	Pricing     PricingConfig     `mapstructure:"pricing"`
	Server      ServerConfig      `mapstructure:"server"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Log         LogConfig         `mapstructure:"log"`
}

// DatabaseConfig aponta para o Postgres do Supabase. Sem URL o serviço roda
// com a base de conhecimento em memória.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

type RedisConfig struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// ProvidersConfig guarda uma credencial por provedor de LLM.
type ProvidersConfig struct {
	GeminiKey     string            `mapstructure:"gemini_api_key"`
	OpenAIKey     string            `mapstructure:"openai_api_key"`
	PuterToken    string            `mapstructure:"puter_auth_token"`
	OpenRouterKey string            `mapstructure:"openrouter_api_key"`
	ZAIKey        string            `mapstructure:"zai_api_key"`
	KimiKey       string            `mapstructure:"kimi_api_key"`
	AnthropicKey  string            `mapstructure:"anthropic_api_key"`
	BaseURLs      map[string]string `mapstructure:"base_urls"`
	CallTimeout   time.Duration     `mapstructure:"call_timeout"`
}

type GenerationConfig struct {
	DefaultModel  string        `mapstructure:"default_model"`
	Writer        string        `mapstructure:"writer"`
	KnowledgeRoot string        `mapstructure:"knowledge_root"`
	Cooldown      time.Duration `mapstructure:"cooldown"`
}

// CalibrationConfig define a cadeia de juízes e as faixas de nota.
type CalibrationConfig struct {
	JudgeModels        []string `mapstructure:"judge_models"`
	FallbackCategoryID int      `mapstructure:"fallback_category_id"`
	Bands              []int    `mapstructure:"bands"`
}

// PricingConfig sobrescreve a tabela de preços. Os modelos vão em lista
// porque o viper quebra chaves com ponto, como "zai/glm-4.6".
type PricingConfig struct {
	USDToBRL float64        `mapstructure:"usd_to_brl"`
	Models   []ModelPricing `mapstructure:"models"`
}

// ModelPricing é o preço em USD por milhão de tokens.
type ModelPricing struct {
	ID     string  `mapstructure:"id"`
	Input  float64 `mapstructure:"input"`
	Output float64 `mapstructure:"output"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type MetricsConfig struct {
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// envBindings mapeia as chaves do config para os nomes de variável já usados pelo time.
var envBindings = map[string]string{
	"database.url":                 "DATABASE_URL",
	"redis.addr":                   "REDIS_URL",
	"redis.password":               "REDIS_PASSWORD",
	"providers.gemini_api_key":     "GEMINI_API_KEY",
	"providers.openai_api_key":     "OPENAI_API_KEY",
	"providers.puter_auth_token":   "PUTER_AUTH_TOKEN",
	"providers.openrouter_api_key": "OPENROUTER_API_KEY",
	"providers.zai_api_key":        "ZAI_API_KEY",
	"providers.kimi_api_key":       "KIMI_API_KEY",
	"providers.anthropic_api_key":  "ANTHROPIC_API_KEY",
	"metrics.port":                 "METRICS_PORT",
	"generation.writer":            "ROTEIRISTA_NOME",
}

func Load() (*Config, error) {
	// Carrega .env da raiz do projeto
	_ = godotenv.Load("../../.env")
	// Se não encontrar, tenta no diretório atual
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, eris.Wrapf(err, "config: bind %s", env)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("redis.session_ttl", 2*time.Hour)
	v.SetDefault("providers.call_timeout", 60*time.Second)
	v.SetDefault("generation.default_model", "gemini-2.5-flash")
	v.SetDefault("generation.writer", getEnv("USER", "Roteirista"))
	v.SetDefault("generation.knowledge_root", ".")
	v.SetDefault("generation.cooldown", 5*time.Second)
	v.SetDefault("calibration.judge_models", []string{"gemini-2.5-flash", "openrouter/deepseek/deepseek-chat", "zai/glm-4.6"})
	v.SetDefault("calibration.fallback_category_id", 26)
	v.SetDefault("calibration.bands", []int{96, 85, 60})
	v.SetDefault("pricing.usd_to_brl", 5.80)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("metrics.port", "9090")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Credentials devolve as credenciais indexadas pelo nome do provedor.
func (p ProvidersConfig) Credentials() map[string]string {
	return map[string]string{
		"gemini":     p.GeminiKey,
		"openai":     p.OpenAIKey,
		"puter":      p.PuterToken,
		"openrouter": p.OpenRouterKey,
		"zai":        p.ZAIKey,
		"kimi":       p.KimiKey,
		"anthropic":  p.AnthropicKey,
	}
}

func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)
	return nil
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
