package stage

import "case-coach/server/internal/model"

// Pattern 决定阶段内的轮次结构。
type Pattern string

const (
	PatternIntro    Pattern = "intro"
	PatternAskProbe Pattern = "ask_probe"
	PatternAskOnly  Pattern = "ask_only"
	PatternEnd      Pattern = "end"
)

func (p Pattern) valid() bool {
	switch p {
	case PatternIntro, PatternAskProbe, PatternAskOnly, PatternEnd:
		return true
	}
	return false
}

// Stage 一个面试阶段的定义，加载后不可变。
type Stage struct {
	ID             string         `yaml:"id" json:"id"`
	Title          string         `yaml:"title" json:"title"`
	Pattern        Pattern        `yaml:"pattern" json:"pattern"`
	AllowedActions []model.Action `yaml:"allowed_actions" json:"allowed_actions"`
	Rubric         []string       `yaml:"rubric" json:"rubric,omitempty"`
	NeedsChart     bool           `yaml:"needs_chart" json:"needs_chart"`

	InterviewerName    string `yaml:"interviewer_name" json:"interviewer_name"`
	InterviewerPersona string `yaml:"interviewer_persona" json:"interviewer_persona"`
	Guidance           string `yaml:"guidance" json:"guidance"`

	// MaxInterviewerTurns 为 0 表示不限。
	MaxInterviewerTurns int `yaml:"max_interviewer_turns" json:"max_interviewer_turns,omitempty"`
}

// transitions 各 pattern 的 substep 转移表。
// intro 的推进由 orchestrator 单独处理，这里的表只保证转移函数是全函数。
var transitions = map[Pattern]map[model.Substep]model.Substep{
	PatternAskProbe: {
		model.SubstepStart:        model.SubstepPrimaryAsked,
		model.SubstepPrimaryAsked: model.SubstepProbeAsked,
		model.SubstepProbeAsked:   model.SubstepDone,
	},
	PatternAskOnly: {
		model.SubstepStart:        model.SubstepPrimaryAsked,
		model.SubstepPrimaryAsked: model.SubstepDone,
	},
	PatternEnd: {
		model.SubstepStart:        model.SubstepPrimaryAsked,
		model.SubstepPrimaryAsked: model.SubstepDone,
	},
	PatternIntro: {
		model.SubstepStart:        model.SubstepPrimaryAsked,
		model.SubstepPrimaryAsked: model.SubstepDone,
	},
}

// Next 返回 sub 的后继位置。表中不存在的位置一律落到 DONE。
func (p Pattern) Next(sub model.Substep) model.Substep {
	if next, ok := transitions[p][sub]; ok {
		return next
	}
	return model.SubstepDone
}

// Reachable 判断 sub 是否出现在该 pattern 的转移表中（DONE 总是可达）。
func (p Pattern) Reachable(sub model.Substep) bool {
	if sub == model.SubstepDone {
		return true
	}
	table := transitions[p]
	if _, ok := table[sub]; ok {
		return true
	}
	for _, to := range table {
		if to == sub {
			return true
		}
	}
	return false
}

// Next 是 s.Pattern.Next 的简写。
func (s Stage) Next(sub model.Substep) model.Substep {
	return s.Pattern.Next(sub)
}

// Allows 判断 action 是否在允许列表中。
func (s Stage) Allows(action model.Action) bool {
	for _, a := range s.AllowedActions {
		if a == action {
			return true
		}
	}
	return false
}

// IsTerminal 终局反馈阶段。
func (s Stage) IsTerminal() bool {
	return s.Pattern == PatternEnd
}

// Interviewer 返回协作者请求用的人设。
func (s Stage) Interviewer() model.Interviewer {
	return model.Interviewer{Name: s.InterviewerName, Persona: s.InterviewerPersona}
}
