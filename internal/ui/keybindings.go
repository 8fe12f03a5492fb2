package ui

// Action represents what a key press does in the row list.
type Action string

const (
	ActionNone        Action = ""
	ActionUp          Action = "up"
	ActionDown        Action = "down"
	ActionTop         Action = "top"
	ActionBottom      Action = "bottom"
	ActionPageUp      Action = "page_up"
	ActionPageDown    Action = "page_down"
	ActionToggle      Action = "toggle"
	ActionExpand      Action = "expand"
	ActionCollapse    Action = "collapse"
	ActionExpandAll   Action = "expand_all"
	ActionCollapseAll Action = "collapse_all"
	ActionSearch      Action = "search"
	ActionClearSearch Action = "clear_search"
	ActionSort        Action = "sort"
	ActionMode        Action = "mode"
	ActionCopy        Action = "copy"
	ActionSaveTemp    Action = "save_temp"
	ActionRefresh     Action = "refresh"
	ActionConsole     Action = "console"
	ActionPopup       Action = "popup"
	ActionPosition    Action = "position"
	ActionHelp        Action = "help"
	ActionQuit        Action = "quit"
)

// DefaultKeyBindings maps key strings, as reported by tea.KeyPressMsg.String,
// to actions.
var DefaultKeyBindings = map[string]Action{
	"up":     ActionUp,
	"k":      ActionUp,
	"down":   ActionDown,
	"j":      ActionDown,
	"home":   ActionTop,
	"g":      ActionTop,
	"end":    ActionBottom,
	"G":      ActionBottom,
	"pgup":   ActionPageUp,
	"pgdown": ActionPageDown,
	"enter":  ActionToggle,
	"space":  ActionToggle,
	"right":  ActionExpand,
	"l":      ActionExpand,
	"left":   ActionCollapse,
	"h":      ActionCollapse,
	"E":      ActionExpandAll,
	"C":      ActionCollapseAll,
	"/":      ActionSearch,
	"esc":    ActionClearSearch,
	"s":      ActionSort,
	"m":      ActionMode,
	"y":      ActionCopy,
	"t":      ActionSaveTemp,
	"r":      ActionRefresh,
	":":      ActionConsole,
	"p":      ActionPopup,
	"P":      ActionPosition,
	"?":      ActionHelp,
	"q":      ActionQuit,
	"ctrl+c": ActionQuit,
}

// actionFor resolves key against bindings. Nil bindings use the defaults.
func actionFor(bindings map[string]Action, key string) Action {
	if bindings == nil {
		bindings = DefaultKeyBindings
	}
	return bindings[key]
}

// helpRows lists the keys shown in the help overlay, in display order.
var helpRows = [][2]string{
	{"j/k ↑/↓", "move"},
	{"g/G", "top/bottom"},
	{"enter/space", "toggle node"},
	{"l/h →/←", "expand/collapse"},
	{"E/C", "expand all/collapse all"},
	{"/", "search (Name.prop.sub, \" for exact)"},
	{"esc", "clear search"},
	{"s", "cycle sort order"},
	{"m", "tree/list presentation"},
	{"y", "copy value"},
	{"t", "save value into tempN"},
	{"r", "refresh value"},
	{":", "console (CEL over temp vars)"},
	{"p", "open/close panel"},
	{"P", "move panel corner"},
	{"?", "toggle help"},
	{"q", "quit"},
}

// footerKeys are the short hints rendered in the footer.
var footerKeys = [][2]string{
	{"/", "search"},
	{"s", "sort"},
	{"m", "mode"},
	{"y", "copy"},
	{"t", "temp"},
	{":", "console"},
	{"?", "help"},
	{"q", "quit"},
}
