package main

import (
	"strings"

	"github.com/spf13/viper"
)

// config holds every knob orchestratord needs at startup. Values come from
// environment variables (ORCHESTRATORD_*), then an optional config file,
// then the defaults below, in that precedence order. No command-line flags
// are bound.
type config struct {
	ListenAddr string

	Engine            string // "inmem" | "temporal"
	TemporalHostPort  string
	TemporalNamespace string
	TaskQueue         string

	Store       string // "mongo" | "sql"
	MongoURI    string
	MongoDB     string
	MongoColl   string
	PostgresDSN string

	RedisAddr       string
	CacheTTLSeconds int

	CRMBaseURL string
	CRMAPIKey  string

	AnthropicAPIKey string
	OpenAIAPIKey    string
	ModelName       string
	ModelRPS        float64
	ModelBurst      int
}

func loadConfig() (config, error) {
	v := viper.New()
	v.SetEnvPrefix("orchestratord")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetConfigName("orchestratord")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/orchestratord")

	v.SetDefault("listen-addr", ":8080")
	v.SetDefault("engine", "inmem")
	v.SetDefault("temporal-host-port", "localhost:7233")
	v.SetDefault("temporal-namespace", "default")
	v.SetDefault("task-queue", "orchestrator")
	v.SetDefault("store", "mongo")
	v.SetDefault("mongo-db", "orchestrator")
	v.SetDefault("mongo-coll", "sessions")
	v.SetDefault("cache-ttl-seconds", 300)
	v.SetDefault("model-name", "claude-3-5-sonnet-latest")
	v.SetDefault("model-rps", 2.0)
	v.SetDefault("model-burst", 4)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return config{}, err
		}
	}

	return config{
		ListenAddr:        v.GetString("listen-addr"),
		Engine:            v.GetString("engine"),
		TemporalHostPort:  v.GetString("temporal-host-port"),
		TemporalNamespace: v.GetString("temporal-namespace"),
		TaskQueue:         v.GetString("task-queue"),
		Store:             v.GetString("store"),
		MongoURI:          v.GetString("mongo-uri"),
		MongoDB:           v.GetString("mongo-db"),
		MongoColl:         v.GetString("mongo-coll"),
		PostgresDSN:       v.GetString("postgres-dsn"),
		RedisAddr:         v.GetString("redis-addr"),
		CacheTTLSeconds:   v.GetInt("cache-ttl-seconds"),
		CRMBaseURL:        v.GetString("crm-base-url"),
		CRMAPIKey:         v.GetString("crm-api-key"),
		AnthropicAPIKey:   v.GetString("anthropic-api-key"),
		OpenAIAPIKey:      v.GetString("openai-api-key"),
		ModelName:         v.GetString("model-name"),
		ModelRPS:          v.GetFloat64("model-rps"),
		ModelBurst:        v.GetInt("model-burst"),
	}, nil
}
