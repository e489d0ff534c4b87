package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// render draws the whole dashboard from the last snapshot.
func (m Model) render() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("go-stats-index"))
	b.WriteString("\n")

	b.WriteString(m.renderFilePanel())
	b.WriteString("\n")
	b.WriteString(m.renderIndexingPanel())
	b.WriteString("\n")
	b.WriteString(m.renderTypesTable())

	if warn := m.renderWarnings(); warn != "" {
		b.WriteString("\n")
		b.WriteString(warn)
	}

	b.WriteString("\n")
	b.WriteString(footerStyle.Render(fmt.Sprintf(
		"metrics %s  |  updated %s  |  press q to quit",
		m.metricsAddr,
		m.lastUpdate.Format("15:04:05"),
	)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderFilePanel() string {
	s := m.snap

	lines := []string{
		renderKeyValue("File", s.Path),
		renderKeyValue("Size", formatBytes(s.SizeBytes)),
	}
	if s.SequenceName != "" {
		lines = append(lines, renderKeyValue("Sequence", s.SequenceName))
	}
	if s.FrameSize.Valid() {
		lines = append(lines, renderKeyValue("Frame size",
			fmt.Sprintf("%dx%d", s.FrameSize.Width, s.FrameSize.Height)))
	}
	if s.FrameRate > 0 {
		lines = append(lines, renderKeyValue("Frame rate", fmt.Sprintf("%.2f fps", s.FrameRate)))
	}
	lines = append(lines, renderKeyValue("Sort order", s.SortOrder.String()))

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) renderIndexingPanel() string {
	s := m.snap

	status := statusOK.Render("● complete")
	switch {
	case s.LastError != "":
		status = statusError.Render("● failed")
	case s.Running:
		status = statusWarning.Render("● indexing")
	case !s.Complete:
		status = statusWarning.Render("● idle")
	}

	bar := m.bar.ViewAs(s.Progress / 100)

	lines := []string{
		sectionHeaderStyle.Render("Indexing"),
		fmt.Sprintf("%s %5.1f%%  %s", bar, s.Progress, status),
		renderKeyValue("Frames", fmt.Sprintf("%d (max frame %d)", s.FrameCount, s.MaxFrame)),
		renderKeyValue("Index entries", formatNumber(int64(s.IndexEntries))),
		renderKeyValue("Lines scanned", formatNumber(s.LinesScanned)),
		renderKeyValue("Records loaded", formatNumber(s.RecordsLoaded)),
		renderKeyValue("Scan rate", fmt.Sprintf("%s (10s)  %s (60s)",
			formatRate(s.ScanRates.Avg10s), formatRate(s.ScanRates.Avg60s))),
		renderKeyValue("Elapsed", formatDuration(s.Elapsed)),
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) renderTypesTable() string {
	s := m.snap

	lines := []string{
		sectionHeaderStyle.Render(fmt.Sprintf("Statistic Types (%d)", len(s.Types))),
		tableHeaderStyle.Render(fmt.Sprintf("  %4s  %-24s  %-8s  %s", "ID", "NAME", "SHAPE", "INDEXED")),
	}

	for i, t := range s.Types {
		indexed := "-"
		if t.Indexed {
			indexed = "yes"
		}
		row := fmt.Sprintf("  %4d  %-24s  %-8s  %s", t.ID, t.Name, t.Shape, indexed)
		if i%2 == 0 {
			lines = append(lines, tableRowEvenStyle.Render(row))
		} else {
			lines = append(lines, tableRowOddStyle.Render(row))
		}
	}
	if len(s.Types) == 0 {
		lines = append(lines, tableRowOddStyle.Render("  (no types declared)"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) renderWarnings() string {
	s := m.snap

	var lines []string
	if s.BlockOutsideFrame >= 0 {
		lines = append(lines, statusWarning.Render(fmt.Sprintf(
			"frame %d contains blocks outside the frame size", s.BlockOutsideFrame)))
	}
	if s.LastError != "" {
		lines = append(lines, statusError.Render(s.LastError))
	}
	if len(lines) == 0 {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
