package model

import "time"

// Role 事件发言方。
type Role string

const (
	RoleCandidate   Role = "candidate"
	RoleInterviewer Role = "interviewer"
)

// Substep 阶段内的细粒度位置。
type Substep string

const (
	SubstepStart        Substep = "START"
	SubstepPrimaryAsked Substep = "PRIMARY_ASKED"
	SubstepProbeAsked   Substep = "PROBE_ASKED"
	SubstepDone         Substep = "DONE"
)

// ParseSubstep 解析外部传入的 substep 字符串（CLI/API 调试定位用）。
func ParseSubstep(s string) (Substep, bool) {
	switch Substep(s) {
	case SubstepStart, SubstepPrimaryAsked, SubstepProbeAsked, SubstepDone:
		return Substep(s), true
	}
	return "", false
}

// Action 面试官动作。
type Action string

const (
	ActionReadCase        Action = "READ_CASE"
	ActionAskClarify      Action = "ASK_CLARIFY"
	ActionAnswerClarify   Action = "ANSWER_CLARIFY"
	ActionAsk             Action = "ASK"
	ActionProbe           Action = "PROBE"
	ActionShowChart       Action = "SHOW_CHART"
	ActionNudge           Action = "NUDGE"
	ActionInterrupt       Action = "INTERRUPT"
	ActionMoveOn          Action = "MOVE_ON"
	ActionDeliverFeedback Action = "DELIVER_FEEDBACK"
	ActionThankAndClose   Action = "THANK_AND_CLOSE"
)

// ChartSpec 图表描述。Data 的结构取决于 Type（bar/line/scatter/table）。
type ChartSpec struct {
	Type   string `json:"type" mapstructure:"type"`
	Title  string `json:"title" mapstructure:"title"`
	XLabel string `json:"x_label,omitempty" mapstructure:"x_label"`
	YLabel string `json:"y_label,omitempty" mapstructure:"y_label"`
	Data   any    `json:"data" mapstructure:"data"`
}

// Event 表示事件日志中的一条发言。
type Event struct {
	Role      Role       `json:"role"`
	StageID   string     `json:"stage_id"`
	Text      string     `json:"text"`
	TS        time.Time  `json:"ts"`
	Action    Action     `json:"action,omitempty"`
	ChartSpec *ChartSpec `json:"chart_spec,omitempty"`
}

// EvaluationRecord 一次作答的评分记录。
type EvaluationRecord struct {
	StageID        string         `json:"stage_id"`
	Substep        Substep        `json:"substep"`
	Scores         map[string]int `json:"scores"`
	Notes          string         `json:"notes"`
	CandidateQuote string         `json:"candidate_quote"`
}

// StageNote 面试官对某个阶段的反馈备注，每个阶段最多一条。
type StageNote struct {
	StageID     string `json:"stage_id"`
	Interviewer string `json:"interviewer"`
	Note        string `json:"note"`
}

// Turn 返回给调用方的面试官轮次描述。
type Turn struct {
	Action    Action     `json:"action"`
	Utterance string     `json:"utterance"`
	ChartSpec *ChartSpec `json:"chart_spec"`
	StageID   string     `json:"stage_id"`
}

// CaseParams 生成案例所用的参数。
type CaseParams struct {
	Theme      string `json:"theme"`
	Difficulty string `json:"difficulty"`
	CaseType   string `json:"case_type,omitempty"`
	Industry   string `json:"industry,omitempty"`
}

// Session 保存一次面试的全部可变状态。
//
// 约定：只有 orchestrator.Controller 会修改 Session；其他组件只读。
type Session struct {
	ID     string `json:"id"`
	CaseID string `json:"case_id"`

	// 当前阶段下标，只增不减（调试定位除外）。
	StageIndex int     `json:"stage_index"`
	Substep    Substep `json:"substep"`

	Events      []Event            `json:"events"`
	Evaluations []EvaluationRecord `json:"evaluations"`
	// 待输出队列，调用方通过 Flush 按 FIFO 取走。
	Pending []Turn      `json:"pending"`
	Notes   []StageNote `json:"notes"`

	// 当前阶段面试官已发言次数，进入新阶段时清零。
	UtterancesThisStage int `json:"utterances_this_stage"`

	Params        CaseParams `json:"params"`
	CaseGenerated bool       `json:"case_generated"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	Report *Report `json:"report,omitempty"`
}

// NewSession 创建一个处于初始位置的会话。
func NewSession(id, caseID string, params CaseParams) *Session {
	return &Session{
		ID:      id,
		CaseID:  caseID,
		Substep: SubstepStart,
		Params:  params,
	}
}

// StageHistory 返回指定阶段的事件（按时间顺序）。
func (s *Session) StageHistory(stageID string) []Event {
	var out []Event
	for _, e := range s.Events {
		if e.StageID == stageID {
			out = append(out, e)
		}
	}
	return out
}

// LastCandidateUtterance 返回指定阶段候选人最近一次发言。
func (s *Session) LastCandidateUtterance(stageID string) (string, bool) {
	for i := len(s.Events) - 1; i >= 0; i-- {
		e := s.Events[i]
		if e.StageID == stageID && e.Role == RoleCandidate {
			return e.Text, true
		}
	}
	return "", false
}
