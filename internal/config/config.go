package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"customer-insights/internal/domain"
)

const envPrefix = "INSIGHTS"

// Credential backends.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Log struct {
		Level string
	}
	Credentials struct {
		Backend    string
		Path       string
		SQLitePath string
	}
	Auth struct {
		BcryptCost           int
		AllowLegacyPlaintext bool
	}
	Datasets struct {
		Customers string
		Mall      string
	}
	Assistant struct {
		APIKey         string
		Model          string
		Endpoint       string
		TimeoutSeconds int
	}
	Session struct {
		Secret            string
		TTLMinutes        int
		TrustClientParams bool
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
}

// Load reads configuration from environment variables and optional config files.
// Environment keys use the INSIGHTS_ prefix, e.g. INSIGHTS_ASSISTANT_APIKEY.
func Load() (Config, error) {
	loadDotEnv(".env")

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("credentials.backend", BackendCSV)
	v.SetDefault("credentials.path", "users.csv")
	v.SetDefault("credentials.sqlitepath", "data/insights.db")
	v.SetDefault("auth.bcryptcost", 0)
	v.SetDefault("auth.allowlegacyplaintext", false)
	v.SetDefault("datasets.customers", "data/Customer Data.csv")
	v.SetDefault("datasets.mall", "data/Mall_Customers.csv")
	v.SetDefault("assistant.apikey", "")
	v.SetDefault("assistant.model", "gemini-1.5-flash")
	v.SetDefault("assistant.endpoint", "")
	v.SetDefault("assistant.timeoutseconds", 60)
	v.SetDefault("session.secret", "")
	v.SetDefault("session.ttlminutes", 720)
	v.SetDefault("session.trustclientparams", false)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "customer-insights/exports")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Credentials.Backend = strings.ToLower(strings.TrimSpace(cfg.Credentials.Backend))

	return cfg, nil
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Assistant.APIKey) == "" {
		return fmt.Errorf("%w: assistant api key is required (INSIGHTS_ASSISTANT_APIKEY)", domain.ErrConfiguration)
	}
	if !c.Session.TrustClientParams && strings.TrimSpace(c.Session.Secret) == "" {
		return fmt.Errorf("%w: session secret is required unless session.trustclientparams is set", domain.ErrConfiguration)
	}
	switch c.Credentials.Backend {
	case BackendCSV, BackendSQLite:
	default:
		return fmt.Errorf("%w: unknown credential backend %q", domain.ErrConfiguration, c.Credentials.Backend)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	return nil
}

func (c Config) AssistantTimeout() time.Duration {
	return time.Duration(c.Assistant.TimeoutSeconds) * time.Second
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLMinutes) * time.Minute
}

// loadDotEnv copies KEY=value lines into the environment without overriding
// variables that are already set.
func loadDotEnv(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:idx])
		value := strings.Trim(strings.TrimSpace(line[idx+1:]), `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
