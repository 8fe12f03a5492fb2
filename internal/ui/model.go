// Package ui is the terminal rendering adapter for a devtools panel.
package ui

import (
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/oakwood-commons/vmscope/internal/config"
	"github.com/oakwood-commons/vmscope/internal/formatter"
	"github.com/oakwood-commons/vmscope/internal/props"
	"github.com/oakwood-commons/vmscope/pkg/devtools"
)

// Focus is the input that receives key presses.
type Focus int

const (
	FocusList Focus = iota
	FocusSearch
	FocusConsole
)

// Chrome lines around the row list: title, search, footer.
const chromeLines = 3

// maxConsoleLines bounds the console result shown under the rows.
const maxConsoleLines = 6

// positions is the corner cycle used by ActionPosition.
var positions = []string{
	config.PositionTopLeft,
	config.PositionTopRight,
	config.PositionBottomRight,
	config.PositionBottomLeft,
}

// Model renders a devtools.Panel and forwards input to it.
type Model struct {
	panel  *devtools.Panel
	bridge *Bridge

	AppName      string
	NoColor      bool
	KeyBindings  map[string]Action
	TickInterval time.Duration

	theme  Theme
	styles styles

	search  textinput.Model
	console textinput.Model
	focus   Focus

	rows   []devtools.Row
	cursor int

	width  int
	height int

	helpVisible bool
	status      string
	statusErr   bool
	consoleOut  string
}

// NewModel creates a model for panel. bridge may be nil when the caller
// delivers change messages itself.
func NewModel(panel *devtools.Panel, bridge *Bridge) *Model {
	si := textinput.New()
	si.Prompt = "/ "
	si.Placeholder = "Name.prop.sub"
	si.CharLimit = 200
	si.SetWidth(80)
	si.SetValue(panel.SearchText())

	ci := textinput.New()
	ci.Prompt = ": "
	ci.Placeholder = "temp1.count + 1"
	ci.CharLimit = 500
	ci.SetWidth(80)

	theme := DefaultTheme()
	m := &Model{
		panel:   panel,
		bridge:  bridge,
		AppName: "vmscope",
		theme:   theme,
		styles:  newStyles(theme, false),
		search:  si,
		console: ci,
		width:   80,
		height:  24,
	}
	m.reload()
	return m
}

// SetTheme replaces the palette.
func (m *Model) SetTheme(t Theme) {
	m.theme = t
	m.styles = newStyles(t, m.NoColor)
}

// SetNoColor toggles plain output.
func (m *Model) SetNoColor(noColor bool) {
	m.NoColor = noColor
	m.styles = newStyles(m.theme, noColor)
}

// Cursor returns the selected row index.
func (m *Model) Cursor() int { return m.cursor }

// Rows returns the rows from the last reload.
func (m *Model) Rows() []devtools.Row { return m.rows }

// Focus returns the focused input.
func (m *Model) Focus() Focus { return m.focus }

// Status returns the last status line.
func (m *Model) Status() string { return m.status }

// ConsoleOutput returns the last console result.
func (m *Model) ConsoleOutput() string { return m.consoleOut }

// Selected returns the row under the cursor.
func (m *Model) Selected() (devtools.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return devtools.Row{}, false
	}
	return m.rows[m.cursor], true
}

func (m *Model) reload() {
	m.rows = m.panel.VisibleRows()
	m.clampCursor()
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) bodyHeight() int {
	h := m.height - chromeLines
	if m.consoleOut != "" || m.focus == FocusConsole {
		h -= 1 + min(maxConsoleLines, strings.Count(m.consoleOut, "\n")+1)
	}
	if n := len(m.panel.Notifications()); n > 0 {
		h -= n
	}
	if h < 1 {
		h = 1
	}
	return h
}

func (m *Model) tick() tea.Cmd {
	if m.TickInterval <= 0 {
		return nil
	}
	return tea.Tick(m.TickInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.tick())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.search.SetWidth(max(10, msg.Width-4))
		m.console.SetWidth(max(10, msg.Width-4))
		return m, nil

	case ChangedMsg:
		m.bridge.delivered()
		m.reload()
		return m, nil

	case ScrollMsg:
		m.reload()
		if msg.Index >= 0 {
			m.cursor = msg.Index
			m.clampCursor()
		}
		return m, nil

	case TickMsg:
		m.panel.Invalidate()
		m.reload()
		return m, m.tick()

	case tea.KeyPressMsg:
		switch m.focus {
		case FocusSearch:
			return m.updateSearch(msg)
		case FocusConsole:
			return m.updateConsole(msg)
		}
		return m.updateList(msg)
	}

	var cmd tea.Cmd
	switch m.focus {
	case FocusSearch:
		m.search, cmd = m.search.Update(msg)
	case FocusConsole:
		m.console, cmd = m.console.Update(msg)
	}
	return m, cmd
}

func (m *Model) updateSearch(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.search.SetValue("")
		m.search.Blur()
		m.focus = FocusList
		m.panel.ResetSearch()
		m.reload()
		return m, nil
	case "enter":
		m.search.Blur()
		m.focus = FocusList
		m.panel.ApplySearchText(m.search.Value())
		m.reload()
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != m.panel.SearchText() {
		m.panel.SetSearchText(m.search.Value())
	}
	return m, cmd
}

func (m *Model) updateConsole(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.console.Blur()
		m.focus = FocusList
		return m, nil
	case "enter":
		m.evaluate(m.console.Value())
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.console, cmd = m.console.Update(msg)
	return m, cmd
}

func (m *Model) evaluate(expr string) {
	if strings.TrimSpace(expr) == "" {
		return
	}
	result, err := m.panel.Evaluate(expr)
	if err != nil {
		m.consoleOut = err.Error()
		m.setStatus("console: "+err.Error(), true)
		return
	}
	out, err := formatter.Stringify(result, props.Classify(result))
	if err != nil {
		out = formatter.Plain(result)
	}
	m.consoleOut = out
	m.setStatus("", false)
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m *Model) updateList(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	action := actionFor(m.KeyBindings, msg.String())
	if m.helpVisible && action != ActionQuit {
		if action == ActionHelp || msg.String() == "esc" {
			m.helpVisible = false
		}
		return m, nil
	}
	if !m.panel.Settings().IsPopupOpened {
		switch action { //nolint:exhaustive // a closed panel only opens or quits
		case ActionPopup:
			m.panel.TogglePopup()
			m.reload()
		case ActionPosition:
			m.cyclePosition()
		case ActionQuit:
			return m, tea.Quit
		}
		return m, nil
	}

	switch action {
	case ActionNone:
		return m, nil
	case ActionUp:
		m.cursor--
	case ActionDown:
		m.cursor++
	case ActionTop:
		m.cursor = 0
	case ActionBottom:
		m.cursor = len(m.rows) - 1
	case ActionPageUp:
		m.cursor -= m.bodyHeight()
	case ActionPageDown:
		m.cursor += m.bodyHeight()
	case ActionToggle:
		m.withSelected(m.panel.ToggleExpand)
	case ActionExpand:
		m.withSelected(m.panel.Expand)
	case ActionCollapse:
		m.collapse()
	case ActionExpandAll:
		m.panel.ExpandAll()
	case ActionCollapseAll:
		m.panel.CollapseAll()
		m.cursor = 0
	case ActionSearch:
		m.focus = FocusSearch
		m.reload()
		return m, m.search.Focus()
	case ActionClearSearch:
		if m.search.Value() != "" || m.panel.SearchText() != "" {
			m.search.SetValue("")
			m.panel.ResetSearch()
		}
		m.consoleOut = ""
	case ActionSort:
		m.panel.SetSortOrder(nextSortOrder(m.panel.Settings().SortOrder))
	case ActionMode:
		mode := devtools.ModeList
		if devtools.Mode(m.panel.Settings().PresentationMode) == devtools.ModeList {
			mode = devtools.ModeTree
		}
		m.panel.SetPresentationMode(mode)
	case ActionCopy:
		if row, ok := m.Selected(); ok && !m.panel.Copy(row.Key) {
			m.setStatus("nothing to copy", true)
		}
	case ActionSaveTemp:
		if row, ok := m.Selected(); ok {
			if _, saved := m.panel.SaveTemp(row.Key); !saved {
				m.setStatus("cannot save this row", true)
			}
		}
	case ActionRefresh:
		m.withSelected(m.panel.Refresh)
	case ActionConsole:
		m.focus = FocusConsole
		return m, m.console.Focus()
	case ActionPopup:
		m.panel.TogglePopup()
	case ActionPosition:
		m.cyclePosition()
	case ActionHelp:
		m.helpVisible = true
	case ActionQuit:
		return m, tea.Quit
	}
	m.reload()
	return m, nil
}

func (m *Model) withSelected(fn func(key string) bool) {
	if row, ok := m.Selected(); ok && !row.Closing {
		fn(row.Key)
	}
}

// collapse closes the selected node, or moves to its parent row when the
// node is already closed.
func (m *Model) collapse() {
	row, ok := m.Selected()
	if !ok {
		return
	}
	if row.Expandable && row.Expanded && !row.Closing {
		m.panel.Collapse(row.Key)
		return
	}
	for i := m.cursor - 1; i >= 0; i-- {
		if m.rows[i].Depth < row.Depth && !m.rows[i].Closing {
			m.cursor = i
			return
		}
	}
}

func (m *Model) cyclePosition() {
	current := m.panel.Settings().PanelPosition
	next := positions[0]
	for i, p := range positions {
		if p == current {
			next = positions[(i+1)%len(positions)]
			break
		}
	}
	if err := m.panel.SetPanelPosition(next); err != nil {
		m.setStatus(err.Error(), true)
	}
}

func nextSortOrder(current string) devtools.SortOrder {
	switch devtools.SortOrder(current) {
	case devtools.SortNone:
		return devtools.SortAsc
	case devtools.SortAsc:
		return devtools.SortDesc
	}
	return devtools.SortNone
}

// summary is the one-line panel state shown in the title bar.
func (m *Model) summary() string {
	s := m.panel.Settings()
	fitted := 0
	for _, r := range m.rows {
		if r.Fitted && !r.Closing {
			fitted++
		}
	}
	parts := []string{fmt.Sprintf("%d rows", len(m.rows))}
	if q := m.panel.Query(); q.Active() {
		parts = append(parts, fmt.Sprintf("%d match", fitted))
	}
	parts = append(parts, "sort:"+s.SortOrder, "mode:"+s.PresentationMode)
	return strings.Join(parts, "  ")
}
