package report

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"case-coach/server/internal/model"
	"case-coach/server/internal/rubric"
)

// maxEvidence 每个维度保留的备注/引用条数。
const maxEvidence = 3

// CollectDimensionInputs 把评分记录归约到固定维度目录上。
// 未登记的评分项被忽略；备注与引用除了归属维度外，还会汇入 communication 维度。
func CollectDimensionInputs(records []model.EvaluationRecord) []model.Dimension {
	catalog := rubric.Dimensions()
	dims := make([]model.Dimension, len(catalog))
	index := make(map[string]int, len(catalog))
	perCriterion := make([]map[string][]int, len(catalog))
	for i, d := range catalog {
		dims[i] = model.Dimension{Key: d.Key, Title: d.Title, Criteria: map[string]float64{}}
		index[d.Key] = i
		perCriterion[i] = map[string][]int{}
	}
	comm := index[rubric.Communication]

	for _, rec := range records {
		criteria := make([]string, 0, len(rec.Scores))
		for c := range rec.Scores {
			criteria = append(criteria, c)
		}
		sort.Strings(criteria)

		var owners []int
		for _, c := range criteria {
			key, ok := rubric.DimensionOf(c)
			if !ok {
				continue
			}
			i := index[key]
			score := rec.Scores[c]
			dims[i].Samples = append(dims[i].Samples, score)
			perCriterion[i][c] = append(perCriterion[i][c], score)
			if !containsInt(owners, i) {
				owners = append(owners, i)
			}
		}
		if !containsInt(owners, comm) {
			owners = append(owners, comm)
		}
		for _, i := range owners {
			if n := strings.TrimSpace(rec.Notes); n != "" {
				dims[i].Notes = append(dims[i].Notes, n)
			}
			if q := strings.TrimSpace(rec.CandidateQuote); q != "" {
				dims[i].Quotes = append(dims[i].Quotes, q)
			}
		}
	}

	for i := range dims {
		if len(dims[i].Samples) > 0 {
			dims[i].Score = int(math.Round(mean(dims[i].Samples)))
		}
		for c, vals := range perCriterion[i] {
			dims[i].Criteria[c] = math.Round(mean(vals)*100) / 100
		}
		dims[i].Notes = lastN(dims[i].Notes, maxEvidence)
		dims[i].Quotes = lastN(dims[i].Quotes, maxEvidence)
	}
	return dims
}

// ComputeOverallBand 只对分数大于 0 的维度取平均。
func ComputeOverallBand(dims []model.Dimension) (string, float64) {
	var scored []int
	for _, d := range dims {
		if d.Score > 0 {
			scored = append(scored, d.Score)
		}
	}
	if len(scored) == 0 {
		return model.BandNeedsWork, 0
	}
	avg := mean(scored)
	switch {
	case avg >= 4.2:
		return model.BandStrong, avg
	case avg >= 3.2:
		return model.BandSolid, avg
	default:
		return model.BandNeedsWork, avg
	}
}

const (
	defaultTitle    = "Case interview"
	defaultType     = "Business case"
	defaultIndustry = "General"
)

// BuildCaseMeta 生成报告头部的案例信息。
func BuildCaseMeta(s *model.Session, c *model.Case) model.CaseMeta {
	meta := model.CaseMeta{
		Title:    defaultTitle,
		Type:     firstNonEmpty(s.Params.CaseType, defaultType),
		Industry: firstNonEmpty(s.Params.Industry, defaultIndustry),
	}
	if c != nil {
		meta.Title = firstNonEmpty(c.Title, firstSentence(c.Background), defaultTitle)
		meta.Type = firstNonEmpty(c.Type, meta.Type)
		meta.Industry = firstNonEmpty(c.Industry, meta.Industry)
	}

	meta.DurationSec = 1
	if !s.CompletedAt.IsZero() {
		meta.CompletedAt = s.CompletedAt.Format("January 2, 2006 at 3:04 PM MST")
		if !s.StartedAt.IsZero() {
			if secs := int(s.CompletedAt.Sub(s.StartedAt).Milliseconds() / 1000); secs > 1 {
				meta.DurationSec = secs
			}
		}
	}
	return meta
}

// firstSentence 取背景的第一句（不含句末标点）。
func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	for i, r := range text {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		next := i + utf8.RuneLen(r)
		if next == len(text) || text[next] == ' ' || text[next] == '\n' {
			return strings.TrimSpace(text[:i])
		}
	}
	return text
}

func mean(vals []int) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return float64(sum) / float64(len(vals))
}

func lastN(in []string, n int) []string {
	if len(in) <= n {
		return in
	}
	out := make([]string, n)
	copy(out, in[len(in)-n:])
	return out
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
