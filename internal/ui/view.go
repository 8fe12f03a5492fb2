package ui

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/mattn/go-runewidth"

	"github.com/oakwood-commons/vmscope/internal/config"
	"github.com/oakwood-commons/vmscope/internal/limiter"
	"github.com/oakwood-commons/vmscope/internal/listitem"
	"github.com/oakwood-commons/vmscope/internal/props"
	"github.com/oakwood-commons/vmscope/pkg/devtools"
)

// View implements tea.Model.
func (m *Model) View() tea.View {
	v := tea.NewView(m.Render())
	v.AltScreen = true
	return v
}

// Render returns the frame as a string.
func (m *Model) Render() string {
	s := m.panel.Settings()
	if !s.IsPopupOpened {
		return m.renderClosed(s)
	}
	if m.helpVisible {
		return m.renderHelp()
	}

	top := strings.HasPrefix(s.PanelPosition, "top")
	notes := m.renderNotifications(s.PanelPosition)

	var lines []string
	lines = append(lines, m.renderTitle())
	if top {
		lines = append(lines, notes...)
	}
	lines = append(lines, m.renderSearch())
	lines = append(lines, m.renderBody()...)
	lines = append(lines, m.renderConsole()...)
	if !top {
		lines = append(lines, notes...)
	}
	lines = append(lines, m.renderFooter())
	return strings.Join(lines, "\n")
}

func (m *Model) renderTitle() string {
	title := " " + m.AppName + " "
	summary := m.summary() + " "
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(summary)
	if gap < 1 {
		gap = 1
	}
	return m.styles.header.Render(title + strings.Repeat(" ", gap) + summary)
}

func (m *Model) renderSearch() string {
	if m.focus == FocusSearch {
		return m.search.View()
	}
	if text := m.panel.SearchText(); text != "" {
		return m.styles.meta.Render("/ ") + text
	}
	if m.status != "" {
		if m.statusErr {
			return m.styles.err.Render(m.status)
		}
		return m.styles.notice.Render(m.status)
	}
	return m.styles.meta.Render("/ to search")
}

func (m *Model) renderBody() []string {
	h := m.bodyHeight()
	if len(m.rows) == 0 {
		msg := "no instances"
		if !m.panel.Connected() {
			msg = "no store connected"
		}
		lines := []string{m.styles.meta.Render(msg)}
		for len(lines) < h {
			lines = append(lines, "")
		}
		return lines
	}

	win := limiter.Around(m.cursor, h, len(m.rows))
	start, _ := win.Bounds(len(m.rows))
	visible := limiter.Apply(win, m.rows)
	active := m.panel.Query().Active()

	lines := make([]string, 0, h)
	for i, r := range visible {
		lines = append(lines, m.renderRow(r, start+i == m.cursor, active))
	}
	for len(lines) < h {
		lines = append(lines, "")
	}
	return lines
}

// RowText is the unstyled text of a row.
func RowText(r devtools.Row) string {
	var b strings.Builder
	b.WriteString(strings.Repeat("  ", r.Depth))
	switch {
	case r.Closing:
		b.WriteString("  " + r.Label)
		return b.String()
	case r.Expandable && r.Expanded:
		b.WriteString("▾ ")
	case r.Expandable:
		b.WriteString("▸ ")
	default:
		b.WriteString("  ")
	}
	b.WriteString(r.Label)
	switch r.Kind {
	case listitem.KindInstance.String():
		if r.Meta != "" {
			b.WriteString(" #" + r.Meta)
		}
		if len(r.MatchedProperties) > 0 {
			b.WriteString(" ~ " + strings.Join(r.MatchedProperties, ", "))
		}
	case listitem.KindProperty.String():
		b.WriteString(": ")
		b.WriteString(valueText(r))
		b.WriteString(r.ExtraContent)
	}
	return b.String()
}

func valueText(r devtools.Row) string {
	if !r.Expanded {
		return r.Value
	}
	if r.Type == string(props.TypeArray) {
		return "["
	}
	return "{"
}

func (m *Model) renderRow(r devtools.Row, selected, searching bool) string {
	text := runewidth.Truncate(RowText(r), max(1, m.width), "…")
	switch {
	case selected:
		return m.styles.selected.Render(runewidth.FillRight(text, m.width))
	case searching && r.Fitted && !r.Closing:
		return m.styles.fitted.Render(text)
	case searching:
		return m.styles.meta.Render(text)
	case r.Kind == listitem.KindInstance.String(), r.Kind == listitem.KindExtras.String():
		return m.styles.instance.Render(text)
	}
	return m.styles.value.Render(text)
}

func (m *Model) renderConsole() []string {
	if m.focus != FocusConsole && m.consoleOut == "" {
		return nil
	}
	var lines []string
	if m.focus == FocusConsole {
		lines = append(lines, m.console.View())
	} else {
		lines = append(lines, m.styles.meta.Render(": "+m.console.Value()))
	}
	if m.consoleOut != "" {
		out := strings.Split(m.consoleOut, "\n")
		if len(out) > maxConsoleLines {
			out = append(out[:maxConsoleLines-1], fmt.Sprintf("… %d more lines", len(out)-maxConsoleLines+1))
		}
		for _, l := range out {
			lines = append(lines, m.styles.value.Render(runewidth.Truncate(l, max(1, m.width), "…")))
		}
	}
	return lines
}

func (m *Model) renderNotifications(position string) []string {
	notes := m.panel.Notifications()
	lines := make([]string, 0, len(notes))
	right := strings.HasSuffix(position, "right")
	for _, n := range notes {
		text := runewidth.Truncate(n.Title, max(1, m.width), "…")
		if right {
			text = strings.Repeat(" ", max(0, m.width-runewidth.StringWidth(text))) + text
		}
		lines = append(lines, m.styles.notice.Render(text))
	}
	return lines
}

func (m *Model) renderFooter() string {
	parts := make([]string, 0, len(footerKeys))
	for _, k := range footerKeys {
		parts = append(parts, m.styles.key.Render(k[0])+" "+k[1])
	}
	return strings.Join(parts, "  ")
}

func (m *Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(m.styles.header.Render(" " + m.AppName + " help "))
	b.WriteString("\n\n")
	keyWidth := 0
	for _, r := range helpRows {
		keyWidth = max(keyWidth, runewidth.StringWidth(r[0]))
	}
	for _, r := range helpRows {
		b.WriteString("  " + m.styles.key.Render(runewidth.FillRight(r[0], keyWidth)) + "  " + r[1] + "\n")
	}
	if temps := m.panel.Temps(); len(temps) > 0 {
		b.WriteString("\n  temps: " + strings.Join(temps, ", ") + "\n")
	}
	b.WriteString("\n  " + m.styles.meta.Render("? or esc to close"))
	return b.String()
}

// renderClosed draws the launcher badge in the configured corner.
func (m *Model) renderClosed(s config.Settings) string {
	var body []string
	body = append(body, fmt.Sprintf("%s  %d rows", m.AppName, len(m.rows)))
	for _, n := range m.panel.Notifications() {
		body = append(body, m.styles.notice.Render(n.Title))
	}
	body = append(body, m.styles.meta.Render("p open · P move · q quit"))
	badge := m.styles.badge.Render(strings.Join(body, "\n"))

	h, v := cornerOf(s.PanelPosition)
	return lipgloss.Place(max(1, m.width), max(1, m.height), h, v, badge)
}

func cornerOf(position string) (lipgloss.Position, lipgloss.Position) {
	switch position {
	case config.PositionTopLeft:
		return lipgloss.Left, lipgloss.Top
	case config.PositionTopRight:
		return lipgloss.Right, lipgloss.Top
	case config.PositionBottomLeft:
		return lipgloss.Left, lipgloss.Bottom
	}
	return lipgloss.Right, lipgloss.Bottom
}
