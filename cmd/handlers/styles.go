package handlers

import (
	"fmt"
	"newsroom/internal/curate"
	"newsroom/internal/pipeline"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}
	colorDim     = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#626262"}
	colorWarn    = lipgloss.AdaptiveColor{Light: "#C77700", Dark: "#FFB454"}
	colorGreen   = lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#25D366"}

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Width(18)

	valueStyle = lipgloss.NewStyle().Bold(true)

	okStyle   = lipgloss.NewStyle().Foreground(colorGreen)
	warnStyle = lipgloss.NewStyle().Foreground(colorWarn)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)
)

// renderSummary formats a generation run for the terminal.
func renderSummary(n *pipeline.Newsletter, outputPath string) string {
	topics := make([]string, 0, len(n.Topics))
	for _, t := range n.Topics {
		topics = append(topics, t.TopicName)
	}

	rows := [][2]string{
		{"User", fmt.Sprintf("%d", n.UserID)},
		{"Subject", n.Subject},
		{"Topics", strings.Join(topics, ", ")},
		{"Sources", fmt.Sprintf("%d", n.Stats.Sources)},
		{"Articles fetched", fmt.Sprintf("%d", n.Stats.ArticlesFetched)},
		{"Trends fetched", fmt.Sprintf("%d", n.Stats.TrendsFetched)},
		{"Style excerpts", fmt.Sprintf("%d", n.Stats.StyleExcerpts)},
		{"Duration", n.Stats.ProcessingTime.Round(time.Millisecond).String()},
	}
	if outputPath != "" {
		rows = append(rows, [2]string{"Saved to", outputPath})
	}

	lines := []string{titleStyle.Render("Newsletter generated")}
	for _, row := range rows {
		lines = append(lines, labelStyle.Render(row[0])+valueStyle.Render(row[1]))
	}

	if curated, ok := n.Result.(curate.Curated); ok {
		lines = append(lines, labelStyle.Render("Curated links")+valueStyle.Render(fmt.Sprintf("%d", len(curated.CuratedLinks))))
		lines = append(lines, okStyle.Render("Structured result"))
	} else {
		lines = append(lines, warnStyle.Render("Model output did not match the schema, sent raw text"))
	}

	return boxStyle.Render(strings.Join(lines, "\n"))
}
