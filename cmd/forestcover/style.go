package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"forestcover/ml"
)

func rangeUsage(f ml.Field) string {
	label := f.Label
	if f.Unit != "" {
		label += " in " + f.Unit
	}
	return fmt.Sprintf("%s (%s to %s)", strings.ToLower(label[:1])+label[1:], formatNumber(f.Min), formatNumber(f.Max))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// renderPrediction prints the result block. Color is only used when w is a
// terminal.
func renderPrediction(w io.Writer, in ml.Input, p ml.Prediction) {
	r := lipgloss.NewRenderer(w)
	success := r.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	muted := r.NewStyle().Faint(true)
	box := r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)

	lines := []string{
		success.Render("Predicted Forest Cover Type: ") + p.CoverType + fmt.Sprintf(" (%d)", p.Label),
		"Prediction confidence: " + p.ConfidencePercent,
	}
	fmt.Fprintln(w, box.Render(strings.Join(lines, "\n")))

	rows := make([][]string, 0, len(p.Probabilities))
	for i, prob := range p.Probabilities {
		rows = append(rows, []string{strconv.Itoa(i + 1), ml.CoverType(i + 1).String(), ml.FormatConfidence(prob)})
	}
	fmt.Fprintln(w, table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Label", "Cover type", "Probability").
		Rows(rows...).
		String())

	fmt.Fprintln(w, muted.Render(fmt.Sprintf("Wilderness %s, soil type %d", ml.WildernessOptions()[in.WildernessArea-1], in.SoilType)))
}

func schemaTable() string {
	rows := make([][]string, 0, ml.ContinuousCount+2)
	for _, f := range ml.ContinuousFields {
		rows = append(rows, []string{
			strconv.Itoa(f.Index),
			f.Name,
			f.Unit,
			formatNumber(f.Min) + " to " + formatNumber(f.Max),
			formatNumber(f.Default),
		})
	}
	for _, s := range []ml.Selector{ml.WildernessAreas, ml.SoilTypes} {
		rows = append(rows, []string{
			fmt.Sprintf("%d-%d", s.Offset, s.Offset+s.Count-1),
			s.Name,
			"one-hot",
			fmt.Sprintf("1 to %d", s.Count),
			strconv.Itoa(s.Default),
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Index", "Field", "Unit", "Range", "Default").
		Rows(rows...).
		String()
}
