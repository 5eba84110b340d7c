package model

// Case 生成的案例内容。Stages 按阶段 ID 保存原始内容，结构因阶段而异。
type Case struct {
	ID         string                    `json:"id"`
	Title      string                    `json:"title,omitempty"`
	Type       string                    `json:"type,omitempty"`
	Industry   string                    `json:"industry,omitempty"`
	Background string                    `json:"background"`
	Stages     map[string]map[string]any `json:"stages"`
}

// StageContent 单个阶段的预置内容。
type StageContent struct {
	Readout         string         `json:"readout,omitempty" mapstructure:"readout"`
	PrimaryQuestion string         `json:"primary_question,omitempty" mapstructure:"primary_question"`
	ProbeQuestion   string         `json:"probe_question,omitempty" mapstructure:"probe_question"`
	ChartSpec       *ChartSpec     `json:"chart_spec,omitempty" mapstructure:"chart_spec"`
	Extra           map[string]any `json:"extra,omitempty" mapstructure:",remain"`
}

// StageContext 传给生成类协作者的阶段上下文。
type StageContext struct {
	CaseID     string       `json:"case_id"`
	Background string       `json:"background"`
	StageID    string       `json:"stage_id"`
	Stage      StageContent `json:"stage"`
}
