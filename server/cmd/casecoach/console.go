package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"case-coach/server/internal/model"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var (
	speakerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	actionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	infoStyle    = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#AAAAAA"))
	promptStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7BD88F"))
	bandStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// console 终端面试的输出。
type console struct {
	out io.Writer
}

func newConsole(out io.Writer) *console {
	return &console{out: out}
}

func (c *console) info(msg string) {
	fmt.Fprintln(c.out, infoStyle.Render(msg))
}

func (c *console) prompt() {
	fmt.Fprint(c.out, promptStyle.Render("you> "))
}

func (c *console) turns(turns []model.Turn) {
	for _, t := range turns {
		fmt.Fprintln(c.out, renderTurn(t))
	}
}

func (c *console) report(r *model.Report) {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, bandStyle.Render("Overall: "+r.Overall.Band))
	fmt.Fprintln(c.out, r.Overall.ExecutiveSummary)
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, boxStyle.Render(scoreTable(r)))
}

func renderTurn(t model.Turn) string {
	var sb strings.Builder
	sb.WriteString(speakerStyle.Render("interviewer"))
	sb.WriteString(" ")
	sb.WriteString(actionStyle.Render("[" + string(t.Action) + "]"))
	sb.WriteString("\n")
	sb.WriteString(t.Utterance)
	if t.ChartSpec != nil {
		sb.WriteString("\n")
		sb.WriteString(boxStyle.Render(renderChart(t.ChartSpec)))
	}
	return sb.String()
}

func renderChart(spec *model.ChartSpec) string {
	lines := []string{fmt.Sprintf("%s (%s)", spec.Title, spec.Type)}
	if spec.XLabel != "" || spec.YLabel != "" {
		lines = append(lines, fmt.Sprintf("x: %s  y: %s", spec.XLabel, spec.YLabel))
	}
	if spec.Data != nil {
		data, err := json.MarshalIndent(spec.Data, "", "  ")
		if err == nil {
			lines = append(lines, string(data))
		}
	}
	return strings.Join(lines, "\n")
}

// scoreTable 维度分数表；按显示宽度对齐，维度标题可能含宽字符。
func scoreTable(r *model.Report) string {
	const header = "Dimension"
	width := runewidth.StringWidth(header)
	for _, rub := range r.Rubrics {
		width = max(width, runewidth.StringWidth(rub.Title))
	}

	rows := []string{padRight(header, width) + "  Score"}
	rows = append(rows, strings.Repeat("─", width)+"  "+strings.Repeat("─", 5))
	for _, rub := range r.Rubrics {
		score := "n/a"
		if rub.Score > 0 {
			score = fmt.Sprintf("%d/5", rub.Score)
		}
		rows = append(rows, padRight(rub.Title, width)+"  "+score)
	}
	return strings.Join(rows, "\n")
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}
