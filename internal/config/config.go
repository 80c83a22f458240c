package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Processing ProcessingConfig `mapstructure:"processing"`
	Share      ShareConfig      `mapstructure:"share"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type ProvidersConfig struct {
	Giphy ProviderConfig `mapstructure:"giphy"`
	Tenor ProviderConfig `mapstructure:"tenor"`
	Mock  MockConfig     `mapstructure:"mock"`
}

type ProviderConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type MockConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type EngineConfig struct {
	BinaryPath     string        `mapstructure:"binary_path"`
	WorkDir        string        `mapstructure:"work_dir"`
	FontBaseURL    string        `mapstructure:"font_base_url"`
	InitTimeout    time.Duration `mapstructure:"init_timeout"`
	ProcessTimeout time.Duration `mapstructure:"process_timeout"`
	MaxInputBytes  int64         `mapstructure:"max_input_bytes"`
	MaxMemoryBytes int64         `mapstructure:"max_memory_bytes"`
}

type CacheConfig struct {
	SearchTTL     time.Duration `mapstructure:"search_ttl"`
	ResultTTL     time.Duration `mapstructure:"result_ttl"`
	ArtifactTTL   time.Duration `mapstructure:"artifact_ttl"`
	MaxEntries    int           `mapstructure:"max_entries"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type ProcessingConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialBackoff  time.Duration `mapstructure:"initial_backoff"`
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
}

type ShareConfig struct {
	TTL     time.Duration `mapstructure:"ttl"`
	BaseURL string        `mapstructure:"base_url"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("providers.giphy.enabled", true)
	v.SetDefault("providers.giphy.base_url", "https://api.giphy.com/v1")
	v.SetDefault("providers.tenor.enabled", true)
	v.SetDefault("providers.tenor.base_url", "https://tenor.googleapis.com/v2")
	v.SetDefault("providers.mock.enabled", true)
	v.SetDefault("engine.binary_path", "ffmpeg")
	v.SetDefault("engine.work_dir", "./data/work")
	v.SetDefault("engine.init_timeout", "30s")
	v.SetDefault("engine.process_timeout", "2m")
	v.SetDefault("engine.max_input_bytes", 10*1024*1024)
	v.SetDefault("engine.max_memory_bytes", 100*1024*1024)
	v.SetDefault("cache.search_ttl", "5m")
	v.SetDefault("cache.result_ttl", "30m")
	v.SetDefault("cache.artifact_ttl", "30m")
	v.SetDefault("cache.max_entries", 100)
	v.SetDefault("cache.sweep_interval", "1m")
	v.SetDefault("processing.max_attempts", 3)
	v.SetDefault("processing.initial_backoff", "500ms")
	v.SetDefault("processing.breaker_failures", 5)
	v.SetDefault("processing.breaker_cooldown", "30s")
	v.SetDefault("share.ttl", "24h")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("providers.giphy.api_key", "GIPHY_API_KEY")
	v.BindEnv("providers.tenor.api_key", "TENOR_API_KEY")
	v.BindEnv("engine.binary_path", "FFMPEG_PATH")
	v.BindEnv("engine.work_dir", "ENGINE_WORK_DIR")
	v.BindEnv("engine.font_base_url", "FONT_BASE_URL")
	v.BindEnv("share.base_url", "SHARE_BASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
