package collab

import (
	"context"
	"fmt"
	"log/slog"

	"case-coach/server/internal/llm"
	"case-coach/server/internal/model"
)

// DefaultCaseAttempts 案例生成的默认最大尝试次数。
const DefaultCaseAttempts = 3

// CaseGenerator 通过 LLM 生成案例，输出不合法时有限次重试。
type CaseGenerator struct {
	client   llm.Client
	attempts int
	logger   *slog.Logger
}

func NewCaseGenerator(client llm.Client, attempts int, logger *slog.Logger) *CaseGenerator {
	if attempts <= 0 {
		attempts = DefaultCaseAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CaseGenerator{client: client, attempts: attempts, logger: logger}
}

type caseWire struct {
	Title      string                    `json:"title"`
	Type       string                    `json:"type"`
	Industry   string                    `json:"industry"`
	Background string                    `json:"background"`
	Stages     map[string]map[string]any `json:"stages"`
}

// Generate 生成案例。传输错误立即返回；输出不合法则重试，用尽后返回 *MalformedOutputError。
func (g *CaseGenerator) Generate(ctx context.Context, req model.CaseRequest) (*model.Case, error) {
	msgs, err := buildMessages(caseSystem, req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= g.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, err := g.client.Complete(ctx, msgs, caseSchema.request)
		if err != nil {
			return nil, fmt.Errorf("case generation: %w", err)
		}

		c, err := parseCase(out, req.StagesRequired)
		if err == nil {
			g.logger.Debug("case generated", "attempt", attempt, "stages", len(c.Stages))
			return c, nil
		}
		lastErr = err
		g.logger.Warn("case generation output rejected", "attempt", attempt, "max", g.attempts, "err", err)
	}

	return nil, &MalformedOutputError{Collaborator: "case generator", Attempts: g.attempts, Err: lastErr}
}

func parseCase(out string, required []string) (*model.Case, error) {
	var w caseWire
	if err := caseSchema.decode(out, &w); err != nil {
		return nil, err
	}
	for _, id := range required {
		if _, ok := w.Stages[id]; !ok {
			return nil, fmt.Errorf("missing content for stage %q", id)
		}
	}
	return &model.Case{
		Title:      w.Title,
		Type:       w.Type,
		Industry:   w.Industry,
		Background: w.Background,
		Stages:     w.Stages,
	}, nil
}
