package model

// 以下为外部生成类协作者的请求/响应契约。
// 响应一律视为不可信输入，由调用方校验后才能写入 Session。

// CaseRequest 案例生成请求。
type CaseRequest struct {
	Params         CaseParams `json:"params"`
	StagesRequired []string   `json:"stages_required"`
}

// Interviewer 面试官人设。
type Interviewer struct {
	Name    string `json:"name"`
	Persona string `json:"persona"`
}

// TurnRequest 面试官轮次生成请求。
type TurnRequest struct {
	StageID        string        `json:"stage_id"`
	StageTitle     string        `json:"stage_title"`
	AllowedActions []Action      `json:"allowed_actions"`
	Substep        Substep       `json:"substep"`
	History        []EventRecord `json:"stage_history"`
	Context        *StageContext `json:"case_context"`
	Interviewer    Interviewer   `json:"interviewer"`
	Guidance       string        `json:"stage_guidance"`
	ForcedAction   Action        `json:"forced_action,omitempty"`
}

// TurnResult 面试官轮次生成结果。
type TurnResult struct {
	NextAction        Action     `json:"next_action"`
	NextUtterance     string     `json:"next_utterance"`
	StageDone         bool       `json:"stage_done"`
	ChartSpec         *ChartSpec `json:"chart_spec,omitempty"`
	StageFeedbackNote string     `json:"stage_feedback_note,omitempty"`
}

// EvaluationRequest 阶段评估请求。
type EvaluationRequest struct {
	StageID    string        `json:"stage_id"`
	StageTitle string        `json:"stage_title"`
	Rubric     []string      `json:"rubric"`
	History    []EventRecord `json:"stage_history"`
	Context    *StageContext `json:"case_context"`
	Guidance   string        `json:"stage_guidance"`
}

// StageEvaluation 评分明细。
type StageEvaluation struct {
	ShouldEvaluate bool           `json:"should_evaluate"`
	RubricScores   map[string]int `json:"rubric_scores"`
	NotesInternal  string         `json:"notes_internal"`
}

// EvaluationResult 阶段评估结果。
type EvaluationResult struct {
	StudentAttemptedAnswer bool            `json:"student_attempted_answer"`
	StageShouldAdvance     bool            `json:"stage_should_advance"`
	Evaluation             StageEvaluation `json:"evaluation"`
}

// NarrativeRequest 报告叙述生成请求；分数与档位已预先计算。
type NarrativeRequest struct {
	Case       CaseMeta    `json:"case"`
	Band       string      `json:"band"`
	Average    float64     `json:"average_score"`
	Dimensions []Dimension `json:"dimensions"`
	StageNotes []StageNote `json:"stage_notes"`
}
