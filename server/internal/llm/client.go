package llm

//go:generate mockgen -source=client.go -destination=mock_client.go -package=llm Client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"case-coach/server/internal/config"
)

// Client 文本生成客户端接口。
type Client interface {
	// Complete 完成一次生成；schema 非空时要求输出符合该 JSON Schema。
	Complete(ctx context.Context, messages []Message, schema *JSONSchema) (string, error)
}

// Message 消息结构
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// JSONSchema 结构化输出的 Schema 定义。
type JSONSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict,omitempty"`
}

const defaultTimeout = 60 * time.Second

// NewClient 按配置选择提供商。
func NewClient(cfg config.LLMConfig) (Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(cfg.OpenAI, timeout), nil
	case "anthropic":
		return NewAnthropicClient(cfg.Anthropic, timeout), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// OpenAIClient OpenAI Chat Completions 客户端
type OpenAIClient struct {
	config     config.LLMProviderConfig
	httpClient *http.Client
}

func NewOpenAIClient(cfg config.LLMProviderConfig, timeout time.Duration) *OpenAIClient {
	return &OpenAIClient{
		config:     cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Complete 完成文本生成（OpenAI）
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message, schema *JSONSchema) (string, error) {
	reqBody := map[string]any{
		"model":                 c.config.Model,
		"messages":              messages,
		"temperature":           c.config.Temperature,
		"max_completion_tokens": c.config.MaxTokens,
	}
	// 推理模型默认会把预算耗在 reasoning 上，导致 content 为空。
	if isOpenAIReasoningModel(c.config.Model) {
		reqBody["reasoning_effort"] = "low"
		delete(reqBody, "temperature")
	}
	if schema != nil {
		reqBody["response_format"] = map[string]any{
			"type":        "json_schema",
			"json_schema": schema,
		}
	}

	headers := map[string]string{"Authorization": "Bearer " + c.config.APIKey}
	respBody, err := postJSON(ctx, c.httpClient, c.config.APIURL+"/chat/completions", headers, reqBody)
	if err != nil {
		return "", err
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	content := result.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty content in response (finish_reason=%s)", result.Choices[0].FinishReason)
	}
	return content, nil
}

func isOpenAIReasoningModel(model string) bool {
	return strings.HasPrefix(model, "gpt-5") || strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3")
}

// AnthropicClient Anthropic Messages 客户端
type AnthropicClient struct {
	config     config.LLMProviderConfig
	httpClient *http.Client
}

func NewAnthropicClient(cfg config.LLMProviderConfig, timeout time.Duration) *AnthropicClient {
	return &AnthropicClient{
		config:     cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Complete 完成文本生成（Anthropic）
func (c *AnthropicClient) Complete(ctx context.Context, messages []Message, schema *JSONSchema) (string, error) {
	// Anthropic 需要分离 system message
	var system []string
	var turns []Message
	for _, msg := range messages {
		if msg.Role == "system" {
			system = append(system, msg.Content)
			continue
		}
		turns = append(turns, msg)
	}

	// Messages API 没有 response_format，把 schema 写进 system 提示。
	if schema != nil {
		raw, err := json.Marshal(schema.Schema)
		if err != nil {
			return "", fmt.Errorf("marshal schema: %w", err)
		}
		system = append(system, "Respond with a single JSON object only, matching this JSON Schema:\n"+string(raw))
	}

	reqBody := map[string]any{
		"model":       c.config.Model,
		"messages":    turns,
		"max_tokens":  c.config.MaxTokens,
		"temperature": c.config.Temperature,
	}
	if len(system) > 0 {
		reqBody["system"] = strings.Join(system, "\n\n")
	}

	headers := map[string]string{
		"x-api-key":         c.config.APIKey,
		"anthropic-version": "2023-06-01",
	}
	respBody, err := postJSON(ctx, c.httpClient, c.config.APIURL+"/messages", headers, reqBody)
	if err != nil {
		return "", err
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
			Type string `json:"type"`
		} `json:"content"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	var sb strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text content in response")
	}
	return sb.String(), nil
}

func postJSON(ctx context.Context, hc *http.Client, url string, headers map[string]string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
