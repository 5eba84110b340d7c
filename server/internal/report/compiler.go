package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"case-coach/server/internal/metrics"
	"case-coach/server/internal/model"
	"case-coach/server/internal/rubric"
	"case-coach/server/internal/stage"
)

// Narrator 报告叙述协作者。
type Narrator interface {
	Narrate(ctx context.Context, req *model.NarrativeRequest) (*model.Report, error)
}

// Compiler 把评分记录编译为最终报告。
//
// 分数与档位总是由本地计算；叙述协作者只提供文字，失败时退回确定性报告。
type Compiler struct {
	narrator Narrator
	catalog  *stage.Catalog
	metrics  *metrics.Recorder
	logger   *slog.Logger
}

// NewCompiler narrator 为 nil 时始终使用确定性报告。
func NewCompiler(narrator Narrator, catalog *stage.Catalog, rec *metrics.Recorder, logger *slog.Logger) *Compiler {
	if catalog == nil {
		catalog = stage.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{narrator: narrator, catalog: catalog, metrics: rec, logger: logger}
}

// Generate 编译报告。只读取 s，不修改。
func (c *Compiler) Generate(ctx context.Context, s *model.Session, kase *model.Case) *model.Report {
	dims := CollectDimensionInputs(s.Evaluations)
	band, avg := ComputeOverallBand(dims)
	meta := BuildCaseMeta(s, kase)
	fallback := c.fallback(s, dims, band, avg, meta)

	if c.narrator == nil {
		c.metrics.ReportFallback()
		return fallback
	}

	narrative, err := c.narrator.Narrate(ctx, &model.NarrativeRequest{
		Case:       meta,
		Band:       band,
		Average:    avg,
		Dimensions: dims,
		StageNotes: s.Notes,
	})
	if err == nil {
		err = checkNarrative(narrative)
	}
	if err != nil {
		c.logger.Warn("narrative report failed, using fallback", "session", s.ID, "err", err)
		c.metrics.CollaboratorFailed("narrator")
		c.metrics.ReportFallback()
		return fallback
	}
	return merge(narrative, fallback)
}

func checkNarrative(r *model.Report) error {
	if r == nil {
		return fmt.Errorf("empty narrative")
	}
	if strings.TrimSpace(r.Overall.ExecutiveSummary) == "" {
		return fmt.Errorf("narrative missing executive summary")
	}
	if len(r.Rubrics) == 0 {
		return fmt.Errorf("narrative missing rubrics")
	}
	return nil
}

// merge 以 base 的数值与元数据为准，只采用 narrative 的文字。
func merge(narrative, base *model.Report) *model.Report {
	prose := make(map[string]model.RubricEntry, len(narrative.Rubrics))
	for _, r := range narrative.Rubrics {
		prose[r.Key] = r
	}

	out := &model.Report{
		Case: base.Case,
		Overall: model.Overall{
			Band:             base.Overall.Band,
			ExecutiveSummary: narrative.Overall.ExecutiveSummary,
		},
		Rubrics: make([]model.RubricEntry, len(base.Rubrics)),
	}
	for i, entry := range base.Rubrics {
		if p, ok := prose[entry.Key]; ok {
			if len(p.Strengths) > 0 || len(p.Improvements) > 0 {
				entry.Strengths = p.Strengths
				entry.Improvements = p.Improvements
			}
		}
		out.Rubrics[i] = entry
	}
	return out
}

// fallback 只用预计算的分数与档位构建报告。
func (c *Compiler) fallback(s *model.Session, dims []model.Dimension, band string, avg float64, meta model.CaseMeta) *model.Report {
	rep := &model.Report{
		Case: meta,
		Overall: model.Overall{
			Band:             band,
			ExecutiveSummary: c.summary(s.Evaluations, band, avg),
		},
	}
	for _, d := range dims {
		rep.Rubrics = append(rep.Rubrics, fallbackEntry(d))
	}
	return rep
}

func fallbackEntry(d model.Dimension) model.RubricEntry {
	entry := model.RubricEntry{Key: d.Key, Title: d.Title, Score: d.Score}
	if len(d.Samples) == 0 {
		entry.Improvements = []string{"Not assessed in this interview."}
		return entry
	}

	best, worst := extremes(d)
	entry.Strengths = []string{fmt.Sprintf("%s (avg %.2f/5).", rubric.Describe(best), d.Criteria[best])}
	if n := len(d.Notes); n > 0 {
		entry.Strengths = append(entry.Strengths, d.Notes[n-1])
	}
	switch {
	case worst != best:
		entry.Improvements = []string{fmt.Sprintf("%s (avg %.2f/5).", rubric.Describe(worst), d.Criteria[worst])}
	case d.Score < 5:
		entry.Improvements = []string{fmt.Sprintf("Push further on: %s.", strings.ToLower(rubric.Describe(worst)))}
	default:
		entry.Improvements = []string{"Keep this level under time pressure."}
	}
	return entry
}

// extremes 返回平均分最高与最低的评分项；并列时按 rubric 目录顺序取前者。
func extremes(d model.Dimension) (best, worst string) {
	for _, dim := range rubric.Dimensions() {
		if dim.Key != d.Key {
			continue
		}
		for _, crit := range dim.Criteria {
			v, ok := d.Criteria[crit.Key]
			if !ok {
				continue
			}
			if best == "" || v > d.Criteria[best] {
				best = crit.Key
			}
			if worst == "" || v < d.Criteria[worst] {
				worst = crit.Key
			}
		}
	}
	return best, worst
}

type stageScore struct {
	id    string
	title string
	avg   float64
}

// summary 对比得分最高与最低的阶段。
func (c *Compiler) summary(records []model.EvaluationRecord, band string, avg float64) string {
	pooled := map[string][]int{}
	for _, rec := range records {
		for _, v := range rec.Scores {
			pooled[rec.StageID] = append(pooled[rec.StageID], v)
		}
	}

	var scored []stageScore
	for _, st := range c.catalog.Stages() {
		if vals := pooled[st.ID]; len(vals) > 0 {
			scored = append(scored, stageScore{id: st.ID, title: st.Title, avg: mean(vals)})
		}
	}

	switch len(scored) {
	case 0:
		return fmt.Sprintf("Overall band: %s. No scored answers were captured, so this report reflects participation only.", band)
	case 1:
		return fmt.Sprintf("Overall band: %s (average %.1f/5). Only one stage was scored: %s (%.1f/5).",
			band, avg, scored[0].title, scored[0].avg)
	}

	strongest, weakest := scored[0], scored[0]
	for _, s := range scored[1:] {
		if s.avg > strongest.avg {
			strongest = s
		}
		if s.avg < weakest.avg {
			weakest = s
		}
	}
	if strongest.id == weakest.id {
		return fmt.Sprintf("Overall band: %s (average %.1f/5). Performance was even across stages at %.1f/5.",
			band, avg, strongest.avg)
	}
	return fmt.Sprintf("Overall band: %s (average %.1f/5). Strongest stage: %s (%.1f/5). Weakest stage: %s (%.1f/5), the first place to practise.",
		band, avg, strongest.title, strongest.avg, weakest.title, weakest.avg)
}
