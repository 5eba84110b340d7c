package collab

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"case-coach/server/internal/llm"
	"case-coach/server/internal/model"
)

// TurnGenerator 生成面试官下一句话。动作合法性由编排层兜底。
type TurnGenerator struct {
	client llm.Client
	logger *slog.Logger
}

func NewTurnGenerator(client llm.Client, logger *slog.Logger) *TurnGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &TurnGenerator{client: client, logger: logger}
}

type turnWire struct {
	NextAction        string           `json:"next_action"`
	NextUtterance     string           `json:"next_utterance"`
	StageDone         bool             `json:"stage_done"`
	ChartSpec         *model.ChartSpec `json:"chart_spec"`
	StageFeedbackNote *string          `json:"stage_feedback_note"`
}

func (g *TurnGenerator) NextTurn(ctx context.Context, req *model.TurnRequest) (*model.TurnResult, error) {
	msgs, err := buildMessages(turnSystem, req)
	if err != nil {
		return nil, err
	}
	out, err := g.client.Complete(ctx, msgs, turnSchema.request)
	if err != nil {
		return nil, fmt.Errorf("turn generation: %w", err)
	}

	var w turnWire
	if err := turnSchema.decode(out, &w); err != nil {
		return nil, &MalformedOutputError{Collaborator: "turn generator", Attempts: 1, Err: err}
	}

	res := &model.TurnResult{
		NextAction:    model.Action(strings.ToUpper(strings.TrimSpace(w.NextAction))),
		NextUtterance: strings.TrimSpace(w.NextUtterance),
		StageDone:     w.StageDone,
		ChartSpec:     w.ChartSpec,
	}
	if w.StageFeedbackNote != nil {
		res.StageFeedbackNote = strings.TrimSpace(*w.StageFeedbackNote)
	}
	if res.NextUtterance == "" {
		return nil, &MalformedOutputError{Collaborator: "turn generator", Attempts: 1, Err: fmt.Errorf("blank utterance")}
	}
	g.logger.Debug("turn generated", "stage", req.StageID, "action", res.NextAction, "stage_done", res.StageDone)
	return res, nil
}
