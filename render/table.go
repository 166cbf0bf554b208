package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bbernhard/radiology-playground/analysis"
)

var (
	tierColors = map[analysis.Tier]lipgloss.Color{
		analysis.Mild:     lipgloss.Color("2"),
		analysis.Moderate: lipgloss.Color("3"),
		analysis.Severe:   lipgloss.Color("1"),
	}

	headerStyle = lipgloss.NewStyle().Bold(true)
	activeStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	footerStyle = lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("4"))
)

func swatch(t analysis.Tier) string {
	return lipgloss.NewStyle().Foreground(tierColors[t]).Render("■")
}

// Table renders the ranked table of a view for a terminal. The active row is
// highlighted; a footer hints at the hidden rows while collapsed.
func Table(v analysis.View) string {
	if len(v.Rows) == 0 {
		return "No predictions.\n"
	}

	width := len("Class")
	for _, row := range v.Rows {
		if len(row.Label) > width {
			width = len(row.Label)
		}
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("   %-*s  %-8s  %s", width, "Class", "Severity", "Accuracy")))
	b.WriteString("\n")
	for _, row := range v.Rows {
		label := fmt.Sprintf("%-*s", width, row.Label)
		if row.Active {
			label = activeStyle.Render(label)
		}
		fmt.Fprintf(&b, "%2d %s  %s %-6s  %s\n", row.Rank+1, label, swatch(row.Tier), row.Tier, row.Display)
	}

	if v.HasMore {
		if v.Expanded {
			b.WriteString(footerStyle.Render("See less"))
		} else {
			b.WriteString(footerStyle.Render(fmt.Sprintf("See more (%d hidden)", v.Total-len(v.Rows))))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Legend lists the tier swatches.
func Legend() string {
	parts := make([]string, 0, 3)
	for _, t := range []analysis.Tier{analysis.Mild, analysis.Moderate, analysis.Severe} {
		parts = append(parts, swatch(t)+" "+t.String())
	}
	return strings.Join(parts, "  ") + "\n"
}
