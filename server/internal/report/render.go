package report

import (
	"bytes"
	"fmt"
	"strings"

	"case-coach/server/internal/model"

	"github.com/yuin/goldmark"
)

// Markdown 渲染报告为 Markdown。
func Markdown(r *model.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", r.Case.Title)
	fmt.Fprintf(&sb, "*%s · %s · %s*", r.Case.Type, r.Case.Industry, formatDuration(r.Case.DurationSec))
	if r.Case.CompletedAt != "" {
		fmt.Fprintf(&sb, " *· completed %s*", r.Case.CompletedAt)
	}
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "**Overall: %s**\n\n%s\n", r.Overall.Band, r.Overall.ExecutiveSummary)

	for _, rub := range r.Rubrics {
		fmt.Fprintf(&sb, "\n## %s: %s\n", rub.Title, scoreLabel(rub.Score))
		writeList(&sb, "Strengths", rub.Strengths)
		writeList(&sb, "Improvements", rub.Improvements)
	}
	return sb.String()
}

// HTML 用 goldmark 把 Markdown 报告转成 HTML 片段。
func HTML(r *model.Report) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(Markdown(r)), &buf); err != nil {
		return "", fmt.Errorf("render report html: %w", err)
	}
	return buf.String(), nil
}

// FeedbackText 面试官口头反馈用的纯文本，只包含已评估的维度。
func FeedbackText(r *model.Report) string {
	var sb strings.Builder
	sb.WriteString(r.Overall.ExecutiveSummary)
	for _, rub := range r.Rubrics {
		if rub.Score == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n\n%s: %d/5.", rub.Title, rub.Score)
		if len(rub.Strengths) > 0 {
			fmt.Fprintf(&sb, " Strength: %s", rub.Strengths[0])
		}
		if len(rub.Improvements) > 0 {
			fmt.Fprintf(&sb, " To improve: %s", rub.Improvements[0])
		}
	}
	return sb.String()
}

func writeList(sb *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n**%s**\n\n", heading)
	for _, it := range items {
		fmt.Fprintf(sb, "- %s\n", it)
	}
}

func scoreLabel(score int) string {
	if score == 0 {
		return "not assessed"
	}
	return fmt.Sprintf("%d/5", score)
}

func formatDuration(secs int) string {
	if secs < 60 {
		return fmt.Sprintf("%ds", secs)
	}
	return fmt.Sprintf("%dm %02ds", secs/60, secs%60)
}
