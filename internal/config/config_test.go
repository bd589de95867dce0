package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", testKey)
	t.Setenv("CONFIG_FILE", "")

	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "https://api.mexc.com", cfg.Exchange.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Exchange.RecvWindow)
	assert.Equal(t, "BSTUSDT", cfg.Bot.DefaultSymbol)
	assert.Equal(t, 15.0, cfg.Bot.DefaultMinOrderSize)
	assert.Equal(t, 75.0, cfg.Bot.DefaultMaxOrderSize)
	assert.Equal(t, 15, cfg.Bot.DefaultTradingInterval)
	assert.Equal(t, 60*time.Second, cfg.Bot.ErrorBackoff)
	assert.Equal(t, 10*time.Second, cfg.Bot.StopTimeout)
	assert.False(t, cfg.Bot.AutoStart)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", testKey)
	t.Setenv("SERVER_PORT", "8081")
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("SQLITE_PATH", "/tmp/bag.db")
	t.Setenv("DEFAULT_SYMBOL", "PEPEUSDT")
	t.Setenv("DEFAULT_MAX_ORDER_SIZE", "120.5")
	t.Setenv("ERROR_BACKOFF", "30")
	t.Setenv("AUTO_START", "true")

	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "/tmp/bag.db", cfg.Database.DSN())
	assert.Equal(t, "PEPEUSDT", cfg.Bot.DefaultSymbol)
	assert.Equal(t, 120.5, cfg.Bot.DefaultMaxOrderSize)
	assert.Equal(t, 30*time.Second, cfg.Bot.ErrorBackoff)
	assert.True(t, cfg.Bot.AutoStart)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
server:
  port: 7000
exchange:
  rate_limit: 5
  recv_window: 10s
bot:
  default_symbol: KASUSDT
  default_trading_interval: 30
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("ENCRYPTION_KEY", testKey)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DEFAULT_TRADING_INTERVAL", "45")

	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 5.0, cfg.Exchange.RateLimit)
	assert.Equal(t, 10*time.Second, cfg.Exchange.RecvWindow)
	assert.Equal(t, "KASUSDT", cfg.Bot.DefaultSymbol)
	assert.Equal(t, 45, cfg.Bot.DefaultTradingInterval, "env must override YAML")
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ENCRYPTION_KEY="+testKey+"\n"), 0o600))
	// godotenv не перезаписывает уже заданные переменные, даже пустые
	t.Setenv("ENCRYPTION_KEY", "")
	os.Unsetenv("ENCRYPTION_KEY")

	cfg, err := LoadFrom(envFile)
	require.NoError(t, err)
	assert.Equal(t, testKey, cfg.Security.EncryptionKey)
}

func TestLoad_MissingDotEnvIgnored(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", testKey)
	_, err := LoadFrom(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing key", map[string]string{"ENCRYPTION_KEY": ""}},
		{"short key", map[string]string{"ENCRYPTION_KEY": "short"}},
		{"bad port", map[string]string{"SERVER_PORT": "70000"}},
		{"bad driver", map[string]string{"DB_DRIVER": "mysql"}},
		{"recv window too big", map[string]string{"MEXC_RECV_WINDOW": "90s"}},
		{"max below min", map[string]string{"DEFAULT_MIN_ORDER_SIZE": "50", "DEFAULT_MAX_ORDER_SIZE": "20"}},
		{"interval zero", map[string]string{"DEFAULT_TRADING_INTERVAL": "0"}},
		{"https without cert", map[string]string{"USE_HTTPS": "true"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENCRYPTION_KEY", testKey)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFrom("")
			assert.Error(t, err)
		})
	}
}

func TestDSN(t *testing.T) {
	pg := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "bag", Password: "secret", Name: "bagbot", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=bag password=secret dbname=bagbot sslmode=disable", pg.DSN())
	assert.NotContains(t, pg.DSNWithoutPassword(), "secret")

	url := DatabaseConfig{Driver: "postgres", URL: "postgres://bag:secret@db:5432/bagbot"}
	assert.Equal(t, "postgres://bag:secret@db:5432/bagbot", url.DSN())
	assert.Equal(t, "postgres://bag:***@db:5432/bagbot", url.DSNWithoutPassword())
}

func TestTradingDefaults(t *testing.T) {
	cfg := Defaults()
	cfg.Exchange.APIKey = "mx0vglm9obNeHebaD7"
	cfg.Exchange.APISecret = "7b209e8796bf44dc969148f609844e9d"

	bc := cfg.TradingDefaults("Default MEXC Config")
	assert.True(t, cfg.HasExchangeCredentials())
	assert.Equal(t, "BSTUSDT", bc.Symbol)
	assert.Equal(t, 15.0, bc.MinOrderSize)
	assert.Equal(t, 75.0, bc.MaxOrderSize)
	assert.NoError(t, bc.Validate())
}

func TestLoad_CORSOrigins(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", testKey)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://bag.example.com, https://ops.example.com")

	cfg, err := LoadFrom("")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://bag.example.com", "https://ops.example.com"}, cfg.Server.CORSOrigins)
}
