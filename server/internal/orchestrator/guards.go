package orchestrator

import (
	"case-coach/server/internal/model"
	"case-coach/server/internal/stage"
)

// guardInput 非开场阶段做决策时看到的全部事实。
// advance 已经过“未作答不推进”的归一化。
type guardInput struct {
	stage      stage.Stage
	substep    model.Substep
	utterances int
	advance    bool
}

type guard struct {
	name  string
	match func(guardInput) bool
	ask   bool
}

// stageGuards 按优先级排列，第一个命中的决定结果；都未命中时继续提问。
var stageGuards = []guard{
	{name: "turn_budget", match: budgetExhausted, ask: false},
	{name: "probe_override", match: probePending, ask: true},
	{name: "evaluator_advance", match: func(in guardInput) bool { return in.advance }, ask: false},
}

func decide(in guardInput) (ask bool, name string) {
	for _, g := range stageGuards {
		if g.match(in) {
			return g.ask, g.name
		}
	}
	return true, "default"
}

// normalizeAdvance 候选人没有实际作答时忽略推进信号。
func normalizeAdvance(eval *model.EvaluationResult) bool {
	return eval.StudentAttemptedAnswer && eval.StageShouldAdvance
}

func budgetExhausted(in guardInput) bool {
	limit := in.stage.MaxInterviewerTurns
	return limit > 0 && in.utterances >= limit
}

// probePending ask_probe 阶段在追问之前不允许被评估信号提前结束。
func probePending(in guardInput) bool {
	if in.stage.Pattern != stage.PatternAskProbe {
		return false
	}
	return in.substep == model.SubstepStart || in.substep == model.SubstepPrimaryAsked
}
