package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/vyvo/studio/pkg/chat"
	"github.com/vyvo/studio/pkg/mystic"
	"github.com/vyvo/studio/pkg/workflow"
)

// Config captures runtime settings shared by the gateway and the CLI.
type Config struct {
	ListenAddr    string        `mapstructure:"listen_addr"`
	MysticBaseURL string        `mapstructure:"mystic_base_url"`
	MysticAPIKey  string        `mapstructure:"mystic_api_key"`
	ChatBaseURL   string        `mapstructure:"chat_base_url"`
	ChatAPIKey    string        `mapstructure:"chat_api_key"`
	ChatModel     string        `mapstructure:"chat_model"`
	ChatMaxTokens int           `mapstructure:"chat_max_tokens"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	HTTPTimeout   time.Duration `mapstructure:"http_timeout"`
	RedisURL      string        `mapstructure:"redis_url"`
	AccessKey     string        `mapstructure:"access_key"`
	LogLevel      string        `mapstructure:"log_level"`
	LogFormat     string        `mapstructure:"log_format"`
	TraceStdout   bool          `mapstructure:"trace_stdout"`
}

// Options controls where Load looks for files.
type Options struct {
	ConfigDir string
	EnvFile   string
}

// Load reads configuration from ./.env, ./configs and the environment.
func Load() (Config, error) {
	return LoadWith(Options{ConfigDir: "./configs", EnvFile: ".env"})
}

// LoadWith loads configuration from defaults, files, and env vars.
// Variables already present in the environment win over the .env file.
func LoadWith(opts Options) (Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigName("config")
	if opts.ConfigDir != "" {
		v.AddConfigPath(opts.ConfigDir)
	}
	v.SetEnvPrefix("STUDIO")
	v.AutomaticEnv()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("mystic_base_url", mystic.DefaultBaseURL)
	v.SetDefault("mystic_api_key", "")
	v.SetDefault("chat_base_url", chat.DefaultBaseURL)
	v.SetDefault("chat_api_key", "")
	v.SetDefault("chat_model", chat.DefaultModel)
	v.SetDefault("chat_max_tokens", chat.DefaultMaxTokens)
	v.SetDefault("poll_interval", workflow.DefaultInterval)
	v.SetDefault("http_timeout", 30*time.Second)
	v.SetDefault("redis_url", "")
	v.SetDefault("access_key", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("trace_stdout", false)

	// Provider-named variables used by existing deployments.
	if err := v.BindEnv("mystic_api_key", "STUDIO_MYSTIC_API_KEY", "FREEPIK_API_KEY"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}
	if err := v.BindEnv("chat_api_key", "STUDIO_CHAT_API_KEY", "MINIMAX_API_KEY"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.PollInterval <= 0 {
		return Config{}, fmt.Errorf("poll_interval must be positive, got %s", cfg.PollInterval)
	}
	cfg.MysticAPIKey = strings.TrimSpace(cfg.MysticAPIKey)
	cfg.ChatAPIKey = strings.TrimSpace(cfg.ChatAPIKey)

	return cfg, nil
}

// MysticOptions returns the generation client options.
func (c Config) MysticOptions() mystic.Options {
	return mystic.Options{BaseURL: c.MysticBaseURL, APIKey: c.MysticAPIKey, Timeout: c.HTTPTimeout}
}

// ChatOptions returns the chat client options.
func (c Config) ChatOptions() chat.Options {
	return chat.Options{
		BaseURL:   c.ChatBaseURL,
		APIKey:    c.ChatAPIKey,
		Model:     c.ChatModel,
		MaxTokens: c.ChatMaxTokens,
		Timeout:   c.HTTPTimeout,
	}
}
