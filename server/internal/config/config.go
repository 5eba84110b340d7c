package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 全局配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Interview InterviewConfig `yaml:"interview"`
	Logging   LoggingConfig   `yaml:"logging"`
	Paths     PathsConfig     `yaml:"paths"`
	NATS      NATSConfig      `yaml:"nats"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// AllowedOrigins WebSocket/CORS 白名单，为空时只允许同源。
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Addr 监听地址。
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LLMConfig 生成类协作者使用的模型配置
type LLMConfig struct {
	Provider  string            `yaml:"provider"` // "openai" or "anthropic"
	Timeout   time.Duration     `yaml:"timeout"`
	OpenAI    LLMProviderConfig `yaml:"openai"`
	Anthropic LLMProviderConfig `yaml:"anthropic"`
}

// LLMProviderConfig LLM 提供商配置
type LLMProviderConfig struct {
	APIKey      string  `yaml:"api_key"`
	APIURL      string  `yaml:"api_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Active 返回当前 provider 的配置。
func (l *LLMConfig) Active() *LLMProviderConfig {
	switch l.Provider {
	case "anthropic":
		return &l.Anthropic
	default:
		return &l.OpenAI
	}
}

// InterviewConfig 面试默认参数
type InterviewConfig struct {
	Theme      string `yaml:"theme"`
	Difficulty string `yaml:"difficulty"`
	CaseType   string `yaml:"case_type"`
	Industry   string `yaml:"industry"`
	// CaseAttempts 案例生成输出不合法时的最大尝试次数。
	CaseAttempts int `yaml:"case_attempts"`
	// EnableDebug 是否开放调试定位接口。
	EnableDebug bool `yaml:"enable_debug"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

type PathsConfig struct {
	// Stages 阶段目录文件，为空时使用内置目录。
	Stages string `yaml:"stages"`
}

type NATSConfig struct {
	// URL 为空表示不发布报告。
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Default 返回可直接运行的默认配置。
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
		LLM: LLMConfig{
			Provider: "openai",
			Timeout:  60 * time.Second,
			OpenAI: LLMProviderConfig{
				APIURL:      "https://api.openai.com/v1",
				Model:       "gpt-4o-mini",
				Temperature: 0.4,
				MaxTokens:   1200,
			},
			Anthropic: LLMProviderConfig{
				APIURL:      "https://api.anthropic.com/v1",
				Model:       "claude-sonnet-4-5",
				Temperature: 0.4,
				MaxTokens:   1200,
			},
		},
		Interview: InterviewConfig{
			Theme:        "surprise me (but business-realistic)",
			Difficulty:   "medium",
			CaseAttempts: 3,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		NATS:    NATSConfig{Subject: "casecoach.reports"},
	}
}

// Load 从文件加载配置；文件中未出现的字段保持默认值。
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		slog.Debug("config file loaded", "path", path, "bytes", len(data))
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	slog.Info("config ready",
		"addr", cfg.Server.Addr(),
		"llm_provider", cfg.LLM.Provider,
		"llm_model", cfg.LLM.Active().Model,
		"stages", cfg.Paths.Stages,
		"nats", cfg.NATS.URL != "")
	return cfg, nil
}

// applyEnv 从环境变量覆盖敏感信息与常用开关。
func (c *Config) applyEnv() {
	if p := os.Getenv("CASECOACH_LLM_PROVIDER"); p != "" {
		c.LLM.Provider = p
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.OpenAI.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.LLM.Anthropic.APIKey = key
	}
	// LLM_API_KEY 优先级最高，作用于当前 provider。
	if key := os.Getenv("LLM_API_KEY"); key != "" {
		c.LLM.Active().APIKey = key
	}
	if m := os.Getenv("CASECOACH_LLM_MODEL"); m != "" {
		c.LLM.Active().Model = m
	}
	if u := os.Getenv("CASECOACH_NATS_URL"); u != "" {
		c.NATS.URL = u
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported llm provider %q", c.LLM.Provider)
	}
	if c.LLM.Active().APIKey == "" {
		return fmt.Errorf("%s API key is required (set LLM_API_KEY env var or config)", c.LLM.Provider)
	}
	if c.LLM.Active().APIURL == "" {
		return fmt.Errorf("%s api_url is required", c.LLM.Provider)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Interview.CaseAttempts <= 0 {
		return fmt.Errorf("interview.case_attempts must be positive")
	}
	if c.NATS.URL != "" && c.NATS.Subject == "" {
		return fmt.Errorf("nats.subject is required when nats.url is set")
	}
	return nil
}

// SlogLevel 把配置中的日志级别转换为 slog.Level。
func (l LoggingConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}
