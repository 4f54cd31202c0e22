package config

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/raine/candle-listing-bot/internal/suggest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv(EnvBotToken, "123:abc")
	t.Setenv(EnvVisionAPIKey, "vision-key")
	t.Setenv(EnvAdminID, "42")
	t.Setenv(EnvGeminiAPIKey, "")
	t.Setenv(EnvDBPath, "")
	t.Setenv(EnvDefaultMode, "")
	t.Setenv(EnvCacheMaxAge, "")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, &Config{
		BotToken:     "123:abc",
		VisionAPIKey: "vision-key",
		AdminID:      42,
		DBPath:       "candles.db",
		DefaultMode:  suggest.ModeVision,
		CacheMaxAge:  30 * 24 * time.Hour,
	}, cfg)
}

func TestLoad_Optional(t *testing.T) {
	setRequired(t)
	t.Setenv(EnvGeminiAPIKey, "gemini-key")
	t.Setenv(EnvDBPath, "/var/lib/candles/db.sqlite")
	t.Setenv(EnvDefaultMode, "compare")
	t.Setenv(EnvCacheMaxAge, "48h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gemini-key", cfg.GeminiAPIKey)
	assert.Equal(t, "/var/lib/candles/db.sqlite", cfg.DBPath)
	assert.Equal(t, suggest.ModeCompare, cfg.DefaultMode)
	assert.Equal(t, 48*time.Hour, cfg.CacheMaxAge)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing token", map[string]string{EnvBotToken: ""}},
		{"bad admin id", map[string]string{EnvAdminID: "me"}},
		{"bad mode", map[string]string{EnvDefaultMode: "magic"}},
		{"ai mode without gemini", map[string]string{EnvDefaultMode: "ai"}},
		{"bad cache age", map[string]string{EnvCacheMaxAge: "a month"}},
		{"negative cache age", map[string]string{EnvCacheMaxAge: "-1h"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestCheckRequiredConfig(t *testing.T) {
	setRequired(t)
	assert.Empty(t, CheckRequiredConfig())

	t.Setenv(EnvVisionAPIKey, "")
	t.Setenv(EnvAdminID, "")
	assert.Equal(t, []string{EnvVisionAPIKey, EnvAdminID}, CheckRequiredConfig())
}

func TestWriteEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), EnvFileName)

	err := writeEnvFile(path, map[string]string{
		EnvBotToken:     "123:abc",
		EnvVisionAPIKey: "vision key #1",
		EnvAdminID:      "42",
	})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	values, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		EnvBotToken:     "123:abc",
		EnvVisionAPIKey: "vision key #1",
		EnvAdminID:      "42",
	}, values)
}

func withServer(t *testing.T, base *string, handler http.HandlerFunc) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	old := *base
	*base = ts.URL
	t.Cleanup(func() { *base = old })
}

func TestValidateTelegramToken(t *testing.T) {
	withServer(t, &telegramAPIBase, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/botgood/getMe" {
			w.Write([]byte(`{"ok":true,"result":{"id":1}}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	})

	assert.NoError(t, validateTelegramToken("good"))
	assert.EqualError(t, validateTelegramToken("bad"), "Unauthorized")
}

func TestValidateVisionKey(t *testing.T) {
	withServer(t, &visionAPIBase, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images:annotate", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("key") == "good" {
			w.Write([]byte(`{}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"API key not valid. Please pass a valid API key."}}`))
	})

	assert.NoError(t, validateVisionKey("good"))
	assert.EqualError(t, validateVisionKey("bad"), "API key not valid. Please pass a valid API key.")
}

func TestValidateGeminiKey_UnexpectedStatus(t *testing.T) {
	withServer(t, &geminiAPIBase, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	assert.EqualError(t, validateGeminiKey("any"), "unexpected response (HTTP 500)")
}
