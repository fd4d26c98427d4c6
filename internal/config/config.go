// Package config loads smartani settings from ~/.smartani/config.toml, the
// process environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/smartani/internal/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	envPrefix  = "SMARTANI"

	DirName = ".smartani"

	DefaultSentinelToken = "[[NO_LOCAL_DATA]]"

	// SecretBackendChain tries pass first and falls back to files.
	SecretBackendChain = "chain"
	SecretBackendFile  = "file"
	SecretBackendPass  = "pass"
)

type Config struct {
	DataDir string

	Model     string
	Grounding domain.GroundingStrategy
	Sentinel  domain.Sentinel

	Retry    RetryConfig
	Search   SearchConfig
	Dataset  DatasetConfig
	Server   ServerConfig
	Log      LogConfig
	Response ResponseConfig

	CredentialsPath string
	SecretsDir      string
	SecretBackend   string
	EnvKeys         []string
}

type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

type SearchConfig struct {
	BaseURL        string
	APIKey         string
	Limit          int
	MaxRetries     int
	RetryDelay     time.Duration
	Timeout        time.Duration
	RequestsPerSec float64
}

type DatasetConfig struct {
	Driver string
	Path   string
	Table  string
}

type ServerConfig struct {
	Addr        string
	UploadDir   string
	MaxUploadMB int64
}

type LogConfig struct {
	Level  string
	Format string
}

type ResponseConfig struct {
	CleanMarkdown bool
}

// Load reads the config file (when present) and applies defaults and
// environment overrides. A nil viper instance gets a fresh one.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	dataDir := filepath.Join(homeDir, DirName)
	setDefaults(v, dataDir)

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(dataDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		DataDir:   v.GetString("data_dir"),
		Model:     v.GetString("model"),
		Grounding: domain.GroundingStrategy(v.GetString("grounding.strategy")),
		Sentinel: domain.Sentinel{
			Token: v.GetString("sentinel.token"),
			Match: domain.SentinelMatch(v.GetString("sentinel.match")),
		},
		Retry: RetryConfig{
			MaxAttempts: v.GetInt("retry.max_attempts"),
			BaseDelay:   v.GetDuration("retry.base_delay"),
			MaxDelay:    v.GetDuration("retry.max_delay"),
		},
		Search: SearchConfig{
			BaseURL:        v.GetString("search.base_url"),
			APIKey:         v.GetString("search.api_key"),
			Limit:          v.GetInt("search.limit"),
			MaxRetries:     v.GetInt("search.max_retries"),
			RetryDelay:     v.GetDuration("search.retry_delay"),
			Timeout:        v.GetDuration("search.timeout"),
			RequestsPerSec: v.GetFloat64("search.requests_per_second"),
		},
		Dataset: DatasetConfig{
			Driver: v.GetString("dataset.driver"),
			Path:   v.GetString("dataset.path"),
			Table:  v.GetString("dataset.table"),
		},
		Server: ServerConfig{
			Addr:        v.GetString("server.addr"),
			UploadDir:   v.GetString("server.upload_dir"),
			MaxUploadMB: v.GetInt64("server.max_upload_mb"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Response: ResponseConfig{
			CleanMarkdown: v.GetBool("response.clean_markdown"),
		},
		CredentialsPath: v.GetString("credentials.path"),
		SecretsDir:      v.GetString("credentials.secrets_dir"),
		SecretBackend:   v.GetString("credentials.secret_backend"),
		EnvKeys:         envKeys(),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, dataDir string) {
	v.SetDefault("data_dir", dataDir)
	v.SetDefault("model", "gemini-2.5-flash")
	v.SetDefault("grounding.strategy", string(domain.GroundingConversation))
	v.SetDefault("sentinel.token", DefaultSentinelToken)
	v.SetDefault("sentinel.match", string(domain.SentinelContains))
	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.base_delay", time.Second)
	v.SetDefault("retry.max_delay", 30*time.Second)
	v.SetDefault("search.base_url", "https://api.semanticscholar.org")
	v.SetDefault("search.limit", 3)
	v.SetDefault("search.max_retries", 3)
	v.SetDefault("search.retry_delay", 2*time.Second)
	v.SetDefault("search.timeout", 10*time.Second)
	v.SetDefault("search.requests_per_second", 1.0)
	v.SetDefault("dataset.driver", "sqlite")
	v.SetDefault("dataset.path", filepath.Join(dataDir, "smartani.db"))
	v.SetDefault("dataset.table", "chatbot_dataset")
	v.SetDefault("server.addr", ":5001")
	v.SetDefault("server.upload_dir", filepath.Join(dataDir, "uploads"))
	v.SetDefault("server.max_upload_mb", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("response.clean_markdown", true)
	v.SetDefault("credentials.path", filepath.Join(dataDir, "credentials.toml"))
	v.SetDefault("credentials.secrets_dir", filepath.Join(dataDir, "secrets"))
	v.SetDefault("credentials.secret_backend", SecretBackendChain)
}

func (c Config) Validate() error {
	if err := c.Grounding.Validate(); err != nil {
		return err
	}
	if err := c.Sentinel.Match.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Sentinel.Token) == "" {
		return errors.New("sentinel token is empty")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Search.Limit < 1 {
		return fmt.Errorf("search.limit must be at least 1, got %d", c.Search.Limit)
	}
	switch c.Dataset.Driver {
	case "sqlite", "csv":
	default:
		return fmt.Errorf("unsupported dataset driver %q", c.Dataset.Driver)
	}
	switch c.SecretBackend {
	case SecretBackendChain, SecretBackendFile, SecretBackendPass:
	default:
		return fmt.Errorf("unsupported secret backend %q", c.SecretBackend)
	}

	return nil
}

// envKeys collects Gemini keys from GEMINI_API_KEY and the comma separated
// GEMINI_API_KEYS, in that order.
func envKeys() []string {
	var keys []string
	if key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); key != "" {
		keys = append(keys, key)
	}
	for _, key := range strings.Split(os.Getenv("GEMINI_API_KEYS"), ",") {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			keys = append(keys, trimmed)
		}
	}
	return keys
}
