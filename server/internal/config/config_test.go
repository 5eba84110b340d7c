package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// TestLoadMergesDefaults 验证文件只覆盖出现的字段，其余保留默认值。
func TestLoadMergesDefaults(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("CASECOACH_LLM_PROVIDER", "")
	t.Setenv("CASECOACH_LLM_MODEL", "")
	path := writeConfig(t, `
server:
  port: 9090
llm:
  provider: anthropic
  anthropic:
    api_key: from-file
interview:
  difficulty: hard
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "from-file", cfg.LLM.Anthropic.APIKey)
	assert.Equal(t, "https://api.anthropic.com/v1", cfg.LLM.Anthropic.APIURL)
	assert.Equal(t, "hard", cfg.Interview.Difficulty)
	assert.Equal(t, 3, cfg.Interview.CaseAttempts)
}

// TestEnvOverrides 验证环境变量覆盖当前 provider 的密钥与模型。
func TestEnvOverrides(t *testing.T) {
	t.Setenv("CASECOACH_LLM_PROVIDER", "anthropic")
	t.Setenv("LLM_API_KEY", "env-key")
	t.Setenv("CASECOACH_LLM_MODEL", "claude-test")
	t.Setenv("CASECOACH_NATS_URL", "nats://localhost:4222")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "env-key", cfg.LLM.Anthropic.APIKey)
	assert.Equal(t, "claude-test", cfg.LLM.Anthropic.Model)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
}

// TestValidate 验证常见的配置错误。
func TestValidate(t *testing.T) {
	base := func() *Config {
		c := Default()
		c.LLM.OpenAI.APIKey = "k"
		return c
	}
	require.NoError(t, base().Validate())

	c := base()
	c.LLM.Provider = "mystery"
	assert.Error(t, c.Validate())

	c = base()
	c.LLM.OpenAI.APIKey = ""
	assert.Error(t, c.Validate())

	c = base()
	c.Server.Port = 0
	assert.Error(t, c.Validate())

	c = base()
	c.Interview.CaseAttempts = 0
	assert.Error(t, c.Validate())

	c = base()
	c.NATS.URL = "nats://x"
	c.NATS.Subject = ""
	assert.Error(t, c.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LoggingConfig{Level: "debug"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, LoggingConfig{Level: "WARN"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LoggingConfig{Level: "chatty"}.SlogLevel())
}
