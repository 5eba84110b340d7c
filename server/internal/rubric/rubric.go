// Package rubric 定义报告维度以及评分项到维度的归属。
package rubric

// Communication 所有备注与引用都会额外汇入的维度。
const Communication = "communication"

// Criterion 单个评分项。
type Criterion struct {
	Key         string
	Description string
}

// Dimension 报告维度。
type Dimension struct {
	Key      string
	Title    string
	Criteria []Criterion
}

var dimensions = []Dimension{
	{
		Key:   "framework_structuring",
		Title: "Framework & Structuring",
		Criteria: []Criterion{
			{"mece_coverage", "Covers the problem with a MECE structure"},
			{"uniqueness", "Brings case-specific, differentiated branches"},
			{"branch_depth", "Drills each branch to actionable sub-drivers"},
		},
	},
	{
		Key:   "graph_interpretation",
		Title: "Graph Interpretation",
		Criteria: []Criterion{
			{"axes_units", "Reads axes, units and scale before concluding"},
			{"key_insights", "Extracts the key takeaways"},
			{"ties_to_hypothesis", "Ties the chart back to the hypothesis"},
		},
	},
	{
		Key:   "quantitative_analysis",
		Title: "Quantitative Analysis",
		Criteria: []Criterion{
			{"thought_process", "Explains the approach before computing"},
			{"setup", "Sets up the calculation correctly"},
			{"arithmetic", "Computes accurately"},
			{"interpretation", "States the business meaning of the number"},
		},
	},
	{
		Key:   "creative_problem_solving",
		Title: "Creative Problem Solving",
		Criteria: []Criterion{
			{"differentiated_ideas", "Generates differentiated ideas"},
			{"case_relevance", "Keeps ideas relevant to the case"},
		},
	},
	{
		Key:   "synthesis_recommendation",
		Title: "Synthesis & Recommendation",
		Criteria: []Criterion{
			{"explicit_recommendation", "Gives an explicit recommendation"},
			{"evidence_support", "Supports it with evidence from the case"},
			{"risks_next_steps", "Names risks and next steps"},
		},
	},
	{
		Key:   Communication,
		Title: "Communication",
		Criteria: []Criterion{
			{"top_down", "Communicates top-down"},
			{"clarity_confidence", "Speaks with clarity and confidence"},
			{"concise", "Stays concise"},
		},
	},
}

var owner = func() map[string]string {
	m := make(map[string]string)
	for _, d := range dimensions {
		for _, c := range d.Criteria {
			m[c.Key] = d.Key
		}
	}
	return m
}()

// Dimensions 按固定顺序返回所有维度（副本）。
func Dimensions() []Dimension {
	out := make([]Dimension, len(dimensions))
	copy(out, dimensions)
	return out
}

// DimensionOf 返回评分项所属维度；未登记的评分项返回 false。
func DimensionOf(criterion string) (string, bool) {
	d, ok := owner[criterion]
	return d, ok
}

// Describe 返回评分项描述，未知时返回 key 本身。
func Describe(criterion string) string {
	for _, d := range dimensions {
		for _, c := range d.Criteria {
			if c.Key == criterion {
				return c.Description
			}
		}
	}
	return criterion
}
