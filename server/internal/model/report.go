package model

// Band 总体表现档位。
const (
	BandStrong    = "Strong"
	BandSolid     = "Solid"
	BandNeedsWork = "Needs work"
)

// Dimension 报告维度的聚合结果。
type Dimension struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	// Score 为 0 表示没有样本。
	Score    int                `json:"score"`
	Samples  []int              `json:"samples"`
	Criteria map[string]float64 `json:"criteria"`
	Notes    []string           `json:"notes"`
	Quotes   []string           `json:"quotes"`
}

// CaseMeta 报告中的案例信息。
type CaseMeta struct {
	Title       string `json:"title"`
	Type        string `json:"type"`
	Industry    string `json:"industry"`
	CompletedAt string `json:"completedAt"`
	DurationSec int    `json:"durationSec"`
}

type Overall struct {
	Band             string `json:"band"`
	ExecutiveSummary string `json:"executiveSummary"`
}

type RubricEntry struct {
	Key          string   `json:"key"`
	Title        string   `json:"title"`
	Score        int      `json:"score"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

// Report 最终报告。
type Report struct {
	Case    CaseMeta      `json:"case"`
	Overall Overall       `json:"overall"`
	Rubrics []RubricEntry `json:"rubrics"`
}
