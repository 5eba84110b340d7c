package main

import (
	"bytes"
	"strings"
	"testing"

	"case-coach/server/internal/model"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScoreTableAlignsWideTitles 含宽字符的标题也按显示宽度对齐。
func TestScoreTableAlignsWideTitles(t *testing.T) {
	r := &model.Report{Rubrics: []model.RubricEntry{
		{Title: "Framework & structuring", Score: 4},
		{Title: "沟通表达", Score: 3},
		{Title: "Creativity", Score: 0},
	}}

	lines := strings.Split(scoreTable(r), "\n")
	require.Len(t, lines, 5)

	col := strings.Index(lines[0], "Score")
	want := runewidth.StringWidth(lines[0][:col])
	for _, line := range lines[2:] {
		idx := strings.LastIndex(line, "  ")
		assert.Equal(t, want, runewidth.StringWidth(line[:idx+2]), line)
	}
	assert.True(t, strings.HasSuffix(lines[4], "n/a"))
	assert.True(t, strings.HasSuffix(lines[2], "4/5"))
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab  ", padRight("ab", 4))
	assert.Equal(t, "沟通", padRight("沟通", 3))
	assert.Equal(t, "沟通 ", padRight("沟通", 5))
}

func TestRenderTurnWithChart(t *testing.T) {
	out := renderTurn(model.Turn{
		Action:    model.ActionShowChart,
		Utterance: "What stands out?",
		ChartSpec: &model.ChartSpec{Type: "bar", Title: "Revenue", XLabel: "Year", YLabel: "$M", Data: []int{1, 2}},
	})
	assert.Contains(t, out, "[SHOW_CHART]")
	assert.Contains(t, out, "What stands out?")
	assert.Contains(t, out, "Revenue (bar)")
	assert.Contains(t, out, "x: Year  y: $M")
}

func TestConsoleReport(t *testing.T) {
	var buf bytes.Buffer
	newConsole(&buf).report(&model.Report{
		Overall: model.Overall{Band: model.BandSolid, ExecutiveSummary: "Good structure."},
		Rubrics: []model.RubricEntry{{Title: "Communication", Score: 4}},
	})
	assert.Contains(t, buf.String(), "Overall: Solid")
	assert.Contains(t, buf.String(), "Communication")
}

func TestLoadEnvMissingFileIsIgnored(t *testing.T) {
	assert.NoError(t, loadEnv(t.TempDir()+"/missing.env"))
	assert.NoError(t, loadEnv(""))
}
