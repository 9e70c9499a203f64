package presenter

import (
	"fmt"
	"strings"

	"github.com/WangYihang/Sitemap-Generator/pkg/domain/entity"
	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/ts"
)

// TerminalWidth returns the width of the terminal, or 80 when unknown
func TerminalWidth() int {
	size, err := ts.GetSize()
	if err != nil || size.Col() <= 0 {
		return 80
	}
	return size.Col()
}

// RenderSummary renders the final statistics of a run
func RenderSummary(stats *entity.Stats) string {
	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true).
		Padding(1, 2)

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11")).
		Bold(true)

	width := TerminalWidth()
	if width > 70 {
		width = 70
	}
	divider := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Render(strings.Repeat("─", width))

	var b strings.Builder
	b.WriteString(titleStyle.Render("✨ Sitemap Complete") + "\n")
	b.WriteString(divider + "\n📊 Statistics:\n")
	rows := []struct {
		key   string
		value int64
	}{
		{"URLs Added        ", stats.Added},
		{"URLs Ignored      ", stats.Ignored},
		{"URLs Errored      ", stats.Errored},
		{"Max Observed Depth", int64(stats.MaxObservedDepth)},
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "  %s %s %s\n", keyStyle.Render("✓"), row.key, valueStyle.Render(fmt.Sprintf("%d", row.value)))
	}

	b.WriteString("\n📁 Output Files:\n")
	if len(stats.Paths) == 0 {
		fmt.Fprintf(&b, "  %s none\n", keyStyle.Render("✗"))
	}
	for _, path := range stats.Paths {
		fmt.Fprintf(&b, "  %s %s\n", keyStyle.Render("✓"), valueStyle.Render(path))
	}
	b.WriteString(divider + "\n")

	if stats.Err != nil {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true).
			Render(fmt.Sprintf("❌ %v", stats.Err)))
	} else {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true).
			Render("✅ Sitemap written successfully!"))
	}
	return b.String()
}
