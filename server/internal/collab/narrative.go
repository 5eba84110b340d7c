package collab

import (
	"context"
	"fmt"
	"strings"

	"case-coach/server/internal/llm"
	"case-coach/server/internal/model"
)

// Narrator 生成报告叙述。分数与档位由报告编译器覆盖。
type Narrator struct {
	client llm.Client
}

func NewNarrator(client llm.Client) *Narrator {
	return &Narrator{client: client}
}

type narrativeWire struct {
	Overall struct {
		Band             string `json:"band"`
		ExecutiveSummary string `json:"executiveSummary"`
	} `json:"overall"`
	Rubrics []struct {
		Key          string   `json:"key"`
		Title        string   `json:"title"`
		Score        float64  `json:"score"`
		Strengths    []string `json:"strengths"`
		Improvements []string `json:"improvements"`
	} `json:"rubrics"`
}

func (n *Narrator) Narrate(ctx context.Context, req *model.NarrativeRequest) (*model.Report, error) {
	msgs, err := buildMessages(narrativeSystem, req)
	if err != nil {
		return nil, err
	}
	out, err := n.client.Complete(ctx, msgs, narrativeSchema.request)
	if err != nil {
		return nil, fmt.Errorf("narrative: %w", err)
	}

	var w narrativeWire
	if err := narrativeSchema.decode(out, &w); err != nil {
		return nil, &MalformedOutputError{Collaborator: "narrator", Attempts: 1, Err: err}
	}

	rep := &model.Report{
		Case: req.Case,
		Overall: model.Overall{
			Band:             w.Overall.Band,
			ExecutiveSummary: strings.TrimSpace(w.Overall.ExecutiveSummary),
		},
	}
	for _, r := range w.Rubrics {
		rep.Rubrics = append(rep.Rubrics, model.RubricEntry{
			Key:          r.Key,
			Title:        r.Title,
			Score:        int(r.Score),
			Strengths:    nonBlank(r.Strengths),
			Improvements: nonBlank(r.Improvements),
		})
	}
	return rep, nil
}

func nonBlank(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
