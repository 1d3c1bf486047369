// internal/config/config.go
//
// Layered configuration: defaults < config.yaml (./config or .) < environment.
// Nested keys map to env vars with "." replaced by "_" (SERVER_ADDRESS,
// AUTH_JWTSECRET, ...). The short names used by earlier deployments are bound
// too: PORT, JWT_SECRET, MONGODB_URI, REDIS_ADDR, LOG_LEVEL, CLIENT_ORIGIN.

package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DevSecret is the fallback signing secret; never use it in production.
const DevSecret = "dev_secret_change_me"

const defaultAddress = ":5000"

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Sessions    SessionsConfig    `mapstructure:"sessions"`
	Log         LogConfig         `mapstructure:"log"`
	Cards       CardsConfig       `mapstructure:"cards"`
}

type ServerConfig struct {
	Address        string        `mapstructure:"address"`
	Port           string        `mapstructure:"port"`
	ClientOrigin   string        `mapstructure:"clientOrigin"`
	RequestTimeout time.Duration `mapstructure:"requestTimeout"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwtSecret"`
	TokenTTL  time.Duration `mapstructure:"tokenTTL"`
}

type StorageConfig struct {
	Driver        string `mapstructure:"driver"` // sqlite | mongo | memory
	SQLitePath    string `mapstructure:"sqlitePath"`
	MongoURI      string `mapstructure:"mongoURI"`
	MongoDatabase string `mapstructure:"mongoDatabase"`
}

// RedisConfig enables the leaderboard cache when Address is set.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LeaderboardConfig struct {
	CacheTTL        time.Duration `mapstructure:"cacheTTL"`
	RefreshInterval time.Duration `mapstructure:"refreshInterval"`
}

type SessionsConfig struct {
	IdleTTL       time.Duration `mapstructure:"idleTTL"`
	SweepInterval time.Duration `mapstructure:"sweepInterval"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type CardsConfig struct {
	File string `mapstructure:"file"`
}

// UsingDevSecret reports whether the fallback secret is in effect.
func (c *Config) UsingDevSecret() bool { return c.Auth.JWTSecret == DevSecret }

// Load reads .env (if present) and builds the configuration.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	legacy := map[string]string{
		"server.port":         "PORT",
		"server.clientOrigin": "CLIENT_ORIGIN",
		"auth.jwtSecret":      "JWT_SECRET",
		"storage.mongoURI":    "MONGODB_URI",
		"redis.address":       "REDIS_ADDR",
		"log.level":           "LOG_LEVEL",
	}
	for key, env := range legacy {
		canonical := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, canonical, env); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.Server.Port != "" && cfg.Server.Address == defaultAddress {
		cfg.Server.Address = ":" + strings.TrimPrefix(cfg.Server.Port, ":")
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = DevSecret
	}
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", defaultAddress)
	v.SetDefault("server.port", "")
	v.SetDefault("server.clientOrigin", "http://localhost:5173")
	v.SetDefault("server.requestTimeout", 10*time.Second)

	v.SetDefault("auth.jwtSecret", DevSecret)
	v.SetDefault("auth.tokenTTL", 7*24*time.Hour)

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlitePath", "./data/forestclash.db")
	v.SetDefault("storage.mongoURI", "mongodb://localhost:27017")
	v.SetDefault("storage.mongoDatabase", "forestclash")

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("leaderboard.cacheTTL", time.Minute)
	v.SetDefault("leaderboard.refreshInterval", 30*time.Second)

	v.SetDefault("sessions.idleTTL", 30*time.Minute)
	v.SetDefault("sessions.sweepInterval", time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("cards.file", "")
}
