package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/hazukari/sc3kit/internal/tui/adapters"
)

// simple word-wrap to produce lines no longer than width (approximate by rune count)
func wrapText(s string, width int) []string {
	if width <= 0 {
		return []string{s}
	}
	out := []string{}
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		cur := words[0]
		for _, w := range words[1:] {
			if utf8.RuneCountInString(cur)+1+utf8.RuneCountInString(w) > width {
				out = append(out, cur)
				cur = w
			} else {
				cur = cur + " " + w
			}
		}
		out = append(out, cur)
	}
	return out
}

// renderTwoCol renders a prefix in a fixed-width left column and wraps the
// text into the right column. Returns the joined lines.
func renderTwoCol(prefix, text string, prefixW, textW int) string {
	if prefixW < 0 {
		prefixW = 0
	}
	if textW < 0 {
		textW = 0
	}
	lines := wrapText(text, textW)
	var b strings.Builder
	for i, ln := range lines {
		var left string
		if i == 0 {
			// right-align prefix within prefixW
			padded := prefix
			if utf8.RuneCountInString(padded) < prefixW {
				padded = strings.Repeat(" ", prefixW-utf8.RuneCountInString(padded)) + padded
			}
			left = padded
		} else {
			left = strings.Repeat(" ", prefixW)
		}
		b.WriteString(left + " " + ln + "\n")
	}
	return b.String()
}

// renderTableInline renders a label on the left and the value on the same line
// when possible. Values are wrapped to valueW and continuation lines are
// aligned under the value column.
func renderTableInline(label, value string, labelW, valueW int) string {
	if labelW < 0 {
		labelW = 0
	}
	if valueW < 0 {
		valueW = 0
	}
	lines := wrapText(value, valueW)
	var b strings.Builder
	for i, ln := range lines {
		if i == 0 {
			padded := label
			if utf8.RuneCountInString(padded) < labelW {
				padded = padded + strings.Repeat(" ", labelW-utf8.RuneCountInString(padded))
			}
			b.WriteString(padded + " " + ln + "\n")
		} else {
			b.WriteString(strings.Repeat(" ", labelW) + " " + ln + "\n")
		}
	}
	// if value is empty, still render the label alone
	if len(lines) == 0 {
		padded := label
		if utf8.RuneCountInString(padded) < labelW {
			padded = padded + strings.Repeat(" ", labelW-utf8.RuneCountInString(padded))
		}
		b.WriteString(padded + "\n")
	}
	return b.String()
}

// renderTableBlockHeader renders the label as a header line and places the
// (already wrapped) block lines underneath it, aligned to the value column.
func renderTableBlockHeader(label, block string, labelW int) string {
	if labelW < 0 {
		labelW = 0
	}
	lines := strings.Split(strings.TrimSuffix(block, "\n"), "\n")
	var b strings.Builder
	padded := label
	if utf8.RuneCountInString(padded) < labelW {
		padded = padded + strings.Repeat(" ", labelW-utf8.RuneCountInString(padded))
	}
	b.WriteString(padded + "\n")
	for _, ln := range lines {
		b.WriteString(strings.Repeat(" ", labelW) + " " + ln + "\n")
	}
	return b.String()
}

// statusStyle picks a color per run/step status, staying inside the UI's
// slate/teal palette.
func statusStyle(status string) lipgloss.Style {
	var c string
	switch status {
	case "succeeded":
		c = "#22c55e"
	case "failed":
		c = "#ef4444"
	case "running":
		c = "#f59e0b"
	case "skipped":
		c = "#64748b"
	default:
		c = "#94a3b8"
	}
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(c))
}

// stepLine renders one step as "checkout  succeeded (1.2s)".
func stepLine(st adapters.StepView) string {
	line := st.Name + "  " + statusStyle(st.Status).Render(st.Status)
	if st.Duration != "" {
		line += " (" + st.Duration + ")"
	}
	return line
}

func runLabels() []string {
	return []string{"Run:", "Event:", "Ref:", "Version:", "Commit:", "Actor:", "Started:", "Duration:", "Status:", "Error:", "Steps:"}
}

// formatRunDetails renders the compact preview shown in the right pane
// while browsing the run list.
func formatRunDetails(run adapters.RunSummary, steps []adapters.StepView, width int) string {
	// invisible table layout — keep formatting simple and predictable for tests

	var b strings.Builder
	contentW := width - 4
	if contentW < 10 {
		contentW = 10
	}
	labelW := 0
	for _, l := range runLabels() {
		if utf8.RuneCountInString(l) > labelW {
			labelW = utf8.RuneCountInString(l)
		}
	}
	valueW := contentW - labelW - 1
	if valueW < 10 {
		valueW = 10
	}

	b.WriteString(renderTableInline("Run:", fmt.Sprintf("#%d", run.ID), labelW, valueW))
	b.WriteString(renderTableInline("Status:", run.Status, labelW, valueW))
	b.WriteString(renderTableInline("Event:", run.Event, labelW, valueW))
	if run.Ref != "" {
		b.WriteString(renderTableInline("Ref:", run.Ref, labelW, valueW))
	}
	if run.Version != "" {
		b.WriteString(renderTableInline("Version:", run.Version, labelW, valueW))
	}
	if run.Commit != "" {
		b.WriteString(renderTableInline("Commit:", run.Commit, labelW, valueW))
	}
	if run.Actor != "" {
		b.WriteString(renderTableInline("Actor:", run.Actor, labelW, valueW))
	}
	b.WriteString(renderTableInline("Started:", run.Started, labelW, valueW))
	if run.Duration != "" {
		b.WriteString(renderTableInline("Duration:", run.Duration, labelW, valueW))
	}

	if run.Message != "" {
		b.WriteString("\n")
		b.WriteString(renderTableBlockHeader("Message:", strings.Join(wrapText(run.Message, valueW), "\n"), labelW))
	}

	if len(steps) > 0 {
		b.WriteString("\n")
		maxPrefix := 0
		for _, st := range steps {
			p := fmt.Sprintf("%d) ", st.Position)
			if l := utf8.RuneCountInString(p); l > maxPrefix {
				maxPrefix = l
			}
		}
		innerTextW := valueW - maxPrefix - 1
		if innerTextW < 10 {
			innerTextW = 10
		}
		var sb strings.Builder
		for _, st := range steps {
			p := fmt.Sprintf("%d) ", st.Position)
			sb.WriteString(renderTwoCol(p, stepLine(st), maxPrefix, innerTextW))
		}
		b.WriteString(renderTableBlockHeader("Steps:", strings.TrimSuffix(sb.String(), "\n"), labelW))
	}

	if run.Error != "" {
		b.WriteString("\n")
		b.WriteString(renderTableBlockHeader("Error:", strings.Join(wrapText(run.Error, valueW), "\n"), labelW))
	}
	return b.String()
}

// formatRunFullScreen renders the full-screen view of a run, including the
// captured output of every step. Step output keeps its original line
// breaks so build logs stay readable.
func formatRunFullScreen(run adapters.RunSummary, steps []adapters.StepView, width int) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0ea5a4")).Background(lipgloss.Color("#0b1226"))
	h := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0ea5a4"))
	k := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#94a3b8"))

	var b strings.Builder
	contentW := width - 6
	if contentW < 10 {
		contentW = 10
	}

	titleText := fmt.Sprintf("sc3kit — Run #%d", run.ID)
	b.WriteString(titleStyle.Render(titleText) + "\n")
	sepLen := contentW
	if sepLen > len(titleText)+4 {
		sepLen = len(titleText) + 4
	}
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("#0ea5a4")).Render(strings.Repeat("─", sepLen)) + "\n\n")

	b.WriteString(h.Render("Status:") + " " + statusStyle(run.Status).Render(run.Status) + "\n")
	b.WriteString(h.Render("Event:") + " " + run.Event + "\n")
	if run.Ref != "" {
		b.WriteString(h.Render("Ref:") + " " + run.Ref + "\n")
	}
	if run.Version != "" {
		b.WriteString(h.Render("Version:") + " " + run.Version + "\n")
	}
	if run.Commit != "" {
		b.WriteString(h.Render("Commit:") + " " + run.Commit + "\n")
	}
	if run.Actor != "" {
		b.WriteString(h.Render("Actor:") + " " + run.Actor + "\n")
	}
	b.WriteString(h.Render("Started:") + " " + run.Started + "\n")
	if run.Duration != "" {
		b.WriteString(h.Render("Duration:") + " " + run.Duration + "\n")
	}
	if run.Message != "" {
		b.WriteString(h.Render("Message:") + " " + run.Message + "\n")
	}
	if run.Error != "" {
		b.WriteString("\n")
		b.WriteString(h.Render("Error:") + "\n")
		for _, ln := range wrapText(run.Error, contentW-2) {
			b.WriteString(statusStyle("failed").Render("  "+ln) + "\n")
		}
	}

	for _, st := range steps {
		b.WriteString("\n")
		b.WriteString(h.Render(fmt.Sprintf("Step %d:", st.Position)) + " " + stepLine(st) + "\n")
		out := strings.TrimRight(st.Output, "\n")
		if out == "" {
			continue
		}
		for _, ln := range strings.Split(out, "\n") {
			b.WriteString("  " + ln + "\n")
		}
	}

	if run.Duration == "" && run.Error == "" && len(steps) == 0 {
		b.WriteString("\n" + k.Render("  (no steps recorded)") + "\n")
	}
	return b.String()
}

// formatReleases renders the full-screen releases view.
func formatReleases(rels []adapters.ReleaseSummary, width int) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0ea5a4")).Background(lipgloss.Color("#0b1226"))
	h := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0ea5a4"))
	k := lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8"))

	var b strings.Builder
	contentW := width - 6
	if contentW < 10 {
		contentW = 10
	}

	titleText := fmt.Sprintf("sc3kit — Releases (%d)", len(rels))
	b.WriteString(titleStyle.Render(titleText) + "\n")
	sepLen := contentW
	if sepLen > len(titleText)+4 {
		sepLen = len(titleText) + 4
	}
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("#0ea5a4")).Render(strings.Repeat("─", sepLen)) + "\n")

	if len(rels) == 0 {
		b.WriteString("\n" + k.Render("No releases published yet.") + "\n")
		return b.String()
	}

	for _, rel := range rels {
		b.WriteString("\n")
		line := h.Render(rel.Tag)
		if rel.Name != "" && rel.Name != rel.Tag {
			line += "  " + rel.Name
		}
		b.WriteString(line + "\n")
		b.WriteString(k.Render("  published "+rel.Published) + "\n")
		if len(rel.Assets) > 0 {
			b.WriteString(k.Render("  assets: "+strings.Join(rel.Assets, ", ")) + "\n")
		}
	}
	return b.String()
}
