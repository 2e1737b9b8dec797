package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"customer-insights/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr)
	assert.Equal(t, BackendCSV, cfg.Credentials.Backend)
	assert.Equal(t, "users.csv", cfg.Credentials.Path)
	assert.Equal(t, "gemini-1.5-flash", cfg.Assistant.Model)
	assert.Equal(t, 60*time.Second, cfg.AssistantTimeout())
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL())
	assert.False(t, cfg.Session.TrustClientParams)
	assert.Empty(t, cfg.Storage.Bucket)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("INSIGHTS_ASSISTANT_APIKEY", "key")
	t.Setenv("INSIGHTS_CREDENTIALS_BACKEND", " SQLite ")
	t.Setenv("INSIGHTS_SESSION_TRUSTCLIENTPARAMS", "true")
	t.Setenv("INSIGHTS_AUTH_BCRYPTCOST", "12")
	t.Setenv("INSIGHTS_STORAGE_BUCKET", "exports")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "key", cfg.Assistant.APIKey)
	assert.Equal(t, BackendSQLite, cfg.Credentials.Backend)
	assert.True(t, cfg.Session.TrustClientParams)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, "exports", cfg.Storage.Bucket)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var c Config
		c.Assistant.APIKey = "key"
		c.Session.Secret = "secret"
		c.Credentials.Backend = BackendCSV
		c.Log.Level = "info"
		return c
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(*Config){
		"missing api key":   func(c *Config) { c.Assistant.APIKey = " " },
		"missing secret":    func(c *Config) { c.Session.Secret = "" },
		"unknown backend":   func(c *Config) { c.Credentials.Backend = "postgres" },
		"unknown log level": func(c *Config) { c.Log.Level = "loud" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(&c)
			assert.ErrorIs(t, c.Validate(), domain.ErrConfiguration)
		})
	}

	trusted := valid()
	trusted.Session.Secret = ""
	trusted.Session.TrustClientParams = true
	assert.NoError(t, trusted.Validate())
}

func TestLoadDotEnvKeepsExistingVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nINSIGHTS_TEST_A=\"from file\"\nexport INSIGHTS_TEST_B=b\nINSIGHTS_TEST_C=c\nbroken line\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("INSIGHTS_TEST_C", "from env")
	t.Setenv("INSIGHTS_TEST_A", "")
	require.NoError(t, os.Unsetenv("INSIGHTS_TEST_A"))
	t.Setenv("INSIGHTS_TEST_B", "")
	require.NoError(t, os.Unsetenv("INSIGHTS_TEST_B"))

	loadDotEnv(path)

	assert.Equal(t, "from file", os.Getenv("INSIGHTS_TEST_A"))
	assert.Equal(t, "b", os.Getenv("INSIGHTS_TEST_B"))
	assert.Equal(t, "from env", os.Getenv("INSIGHTS_TEST_C"))
}
