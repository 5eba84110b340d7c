package stage

import (
	"errors"
	"fmt"
	"os"

	"case-coach/server/internal/model"

	"gopkg.in/yaml.v3"
)

// Catalog 有序的阶段列表。
type Catalog struct {
	stages []Stage
	index  map[string]int
}

// New 校验并构建阶段目录。
func New(stages []Stage) (*Catalog, error) {
	if len(stages) == 0 {
		return nil, errors.New("stage catalog is empty")
	}
	c := &Catalog{
		stages: make([]Stage, len(stages)),
		index:  make(map[string]int, len(stages)),
	}
	copy(c.stages, stages)
	for i, s := range c.stages {
		if s.ID == "" {
			return nil, fmt.Errorf("stage %d: id required", i)
		}
		if _, dup := c.index[s.ID]; dup {
			return nil, fmt.Errorf("stage %q: duplicate id", s.ID)
		}
		if !s.Pattern.valid() {
			return nil, fmt.Errorf("stage %q: unknown pattern %q", s.ID, s.Pattern)
		}
		if len(s.AllowedActions) == 0 {
			return nil, fmt.Errorf("stage %q: allowed_actions required", s.ID)
		}
		if s.MaxInterviewerTurns < 0 {
			return nil, fmt.Errorf("stage %q: max_interviewer_turns must be >= 0", s.ID)
		}
		if s.IsTerminal() && i != len(c.stages)-1 {
			return nil, fmt.Errorf("stage %q: end stage must be last", s.ID)
		}
		c.index[s.ID] = i
	}
	return c, nil
}

// Load 从 YAML 文件加载阶段目录。
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stages: %w", err)
	}

	var doc struct {
		Stages []Stage `yaml:"stages"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse stages: %w", err)
	}
	return New(doc.Stages)
}

// Len 阶段数量。
func (c *Catalog) Len() int { return len(c.stages) }

// At 返回第 i 个阶段；越界返回 false。
func (c *Catalog) At(i int) (Stage, bool) {
	if i < 0 || i >= len(c.stages) {
		return Stage{}, false
	}
	return c.stages[i], true
}

// Index 按 ID 查找阶段下标。
func (c *Catalog) Index(id string) (int, bool) {
	i, ok := c.index[id]
	return i, ok
}

// Get 按 ID 查找阶段。
func (c *Catalog) Get(id string) (Stage, bool) {
	i, ok := c.index[id]
	if !ok {
		return Stage{}, false
	}
	return c.stages[i], true
}

// Stages 返回副本。
func (c *Catalog) Stages() []Stage {
	out := make([]Stage, len(c.stages))
	copy(out, c.stages)
	return out
}

// IDs 按顺序返回所有阶段 ID。
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.stages))
	for i, s := range c.stages {
		ids[i] = s.ID
	}
	return ids
}

var probeActions = []model.Action{
	model.ActionAsk, model.ActionNudge, model.ActionProbe, model.ActionInterrupt, model.ActionMoveOn,
}

// Default 内置的六阶段咨询案例面试。
func Default() *Catalog {
	c, err := New([]Stage{
		{
			ID:      "case_intro",
			Title:   "Case introduction and clarifying questions",
			Pattern: PatternIntro,
			AllowedActions: []model.Action{
				model.ActionReadCase, model.ActionAskClarify, model.ActionAnswerClarify,
				model.ActionMoveOn, model.ActionNudge,
			},
			InterviewerName:    "Alex",
			InterviewerPersona: "Engagement manager. Warm, concise, answers facts from the case only.",
			Guidance: "Answer clarifying questions using only facts in the case. " +
				"When the candidate has no more questions or starts structuring, the stage is over.",
			MaxInterviewerTurns: 4,
		},
		{
			ID:                 "structuring",
			Title:              "Structure the problem",
			Pattern:            PatternAskProbe,
			AllowedActions:     probeActions,
			Rubric:             []string{"mece_coverage", "uniqueness"},
			InterviewerName:    "Alex",
			InterviewerPersona: "Engagement manager. Pushes for MECE, hypothesis-driven structures.",
			Guidance: "Ask the candidate for a framework. Probe one weak or missing branch. " +
				"Do not reveal a model answer.",
			MaxInterviewerTurns: 3,
		},
		{
			ID:      "chart",
			Title:   "Chart interpretation",
			Pattern: PatternAskProbe,
			AllowedActions: append([]model.Action{model.ActionShowChart},
				probeActions...),
			Rubric:              []string{"axes_units", "key_insights", "ties_to_hypothesis"},
			NeedsChart:          true,
			InterviewerName:     "Alex",
			InterviewerPersona:  "Engagement manager. Expects the candidate to read axes before insights.",
			Guidance:            "Show the chart, ask for the key takeaway, then probe the so-what.",
			MaxInterviewerTurns: 3,
		},
		{
			ID:                  "math",
			Title:               "Quantitative question",
			Pattern:             PatternAskOnly,
			AllowedActions:      []model.Action{model.ActionAsk, model.ActionNudge, model.ActionInterrupt, model.ActionMoveOn},
			Rubric:              []string{"thought_process", "setup", "arithmetic", "interpretation"},
			InterviewerName:     "Alex",
			InterviewerPersona:  "Engagement manager. Lets the candidate drive the math, nudges on errors.",
			Guidance:            "Ask the math question. Nudge if the setup is wrong; ask for the business implication.",
			MaxInterviewerTurns: 3,
		},
		{
			ID:                  "creative",
			Title:               "Creative brainstorming",
			Pattern:             PatternAskProbe,
			AllowedActions:      probeActions,
			Rubric:              []string{"differentiated_ideas", "case_relevance"},
			InterviewerName:     "Alex",
			InterviewerPersona:  "Engagement manager. Rewards structured, case-specific ideas.",
			Guidance:            "Ask for ideas, then probe for one more differentiated idea or prioritization.",
			MaxInterviewerTurns: 3,
		},
		{
			ID:                 "end_feedback",
			Title:              "Feedback and close",
			Pattern:            PatternEnd,
			AllowedActions:     []model.Action{model.ActionDeliverFeedback, model.ActionThankAndClose},
			InterviewerName:    "Alex",
			InterviewerPersona: "Engagement manager. Direct, constructive feedback.",
			Guidance:           "Deliver feedback and close the interview.",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("default stage catalog: %v", err))
	}
	return c
}
