package collab

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"case-coach/server/internal/llm"
	"case-coach/server/internal/model"
)

// Evaluator 对阶段作答打分。
type Evaluator struct {
	client llm.Client
	logger *slog.Logger
}

func NewEvaluator(client llm.Client, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{client: client, logger: logger}
}

type evaluationWire struct {
	StudentAttemptedAnswer bool `json:"student_attempted_answer"`
	StageShouldAdvance     bool `json:"stage_should_advance"`
	Evaluation             struct {
		ShouldEvaluate bool               `json:"should_evaluate"`
		RubricScores   map[string]float64 `json:"rubric_scores"`
		NotesInternal  *string            `json:"notes_internal"`
	} `json:"evaluation"`
}

func (e *Evaluator) Evaluate(ctx context.Context, req *model.EvaluationRequest) (*model.EvaluationResult, error) {
	msgs, err := buildMessages(evaluationSystem, req)
	if err != nil {
		return nil, err
	}
	out, err := e.client.Complete(ctx, msgs, evaluationSchema.request)
	if err != nil {
		return nil, fmt.Errorf("evaluation: %w", err)
	}

	var w evaluationWire
	if err := evaluationSchema.decode(out, &w); err != nil {
		return nil, &MalformedOutputError{Collaborator: "evaluator", Attempts: 1, Err: err}
	}

	res := &model.EvaluationResult{
		StudentAttemptedAnswer: w.StudentAttemptedAnswer,
		StageShouldAdvance:     w.StageShouldAdvance,
		Evaluation: model.StageEvaluation{
			ShouldEvaluate: w.Evaluation.ShouldEvaluate,
			RubricScores:   sanitizeScores(w.Evaluation.RubricScores, req.Rubric),
		},
	}
	if w.Evaluation.NotesInternal != nil {
		res.Evaluation.NotesInternal = strings.TrimSpace(*w.Evaluation.NotesInternal)
	}
	if dropped := len(w.Evaluation.RubricScores) - len(res.Evaluation.RubricScores); dropped > 0 {
		e.logger.Warn("evaluation scores dropped", "stage", req.StageID, "dropped", dropped)
	}
	return res, nil
}

// sanitizeScores 只保留本阶段 rubric 内、取整后落在 1..5 的分数。
func sanitizeScores(in map[string]float64, rubric []string) map[string]int {
	allowed := make(map[string]bool, len(rubric))
	for _, r := range rubric {
		allowed[r] = true
	}
	out := make(map[string]int, len(in))
	for k, v := range in {
		if !allowed[k] || math.IsNaN(v) {
			continue
		}
		score := int(math.Round(v))
		if score < 1 || score > 5 {
			continue
		}
		out[k] = score
	}
	return out
}
