package formatter

import (
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"reflect"
	"strings"

	"charm.land/lipgloss/v2"
	"golang.org/x/term"

	"github.com/oakwood-commons/vmscope/internal/props"
	"github.com/oakwood-commons/vmscope/pkg/inspect"
)

var (
	defaultHeaderFG   = lipgloss.Color("12")
	defaultHeaderBG   = lipgloss.Color("236")
	defaultKeyColor   = lipgloss.Color("14")
	defaultValueColor = lipgloss.Color("248")
	defaultSeparator  = lipgloss.Color("240")
	defaultFitted     = lipgloss.Color("11")

	headerStyle    lipgloss.Style
	keyStyle       lipgloss.Style
	valueStyle     lipgloss.Style
	separatorStyle lipgloss.Style
	fittedStyle    lipgloss.Style
)

// TableColors controls the rendered colors for the row table.
// Empty fields fall back to the defaults (ANSI 256 codes).
type TableColors struct {
	HeaderFG       color.Color
	HeaderBG       color.Color
	KeyColor       color.Color
	ValueColor     color.Color
	SeparatorColor color.Color
	FittedColor    color.Color
}

func applyTableTheme(tc TableColors) {
	pick := func(c, def color.Color) color.Color {
		if c == nil {
			return def
		}
		return c
	}
	headerStyle = lipgloss.NewStyle().Bold(true).
		Foreground(pick(tc.HeaderFG, defaultHeaderFG)).
		Background(pick(tc.HeaderBG, defaultHeaderBG))
	keyStyle = lipgloss.NewStyle().Foreground(pick(tc.KeyColor, defaultKeyColor))
	valueStyle = lipgloss.NewStyle().Foreground(pick(tc.ValueColor, defaultValueColor))
	separatorStyle = lipgloss.NewStyle().Foreground(pick(tc.SeparatorColor, defaultSeparator))
	fittedStyle = lipgloss.NewStyle().Bold(true).Foreground(pick(tc.FittedColor, defaultFitted))
}

// SetTableTheme overrides the global table styles. Callers can pass zero-valued
// fields to fall back to formatter defaults.
func SetTableTheme(tc TableColors) {
	applyTableTheme(tc)
}

//nolint:gochecknoinits // initialize default table theme for package consumers
func init() {
	applyTableTheme(TableColors{})
}

// Stringify renders v for display and copying. Objects and arrays become
// indented JSON, strings are quoted. The error is non-nil only when JSON
// encoding of a container fails.
func Stringify(v any, t props.Type) (string, error) {
	switch t { //nolint:exhaustive // everything else renders as a scalar
	case props.TypeObject, props.TypeArray:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding %s: %w", t, err)
		}
		return string(b), nil
	case props.TypeFunction:
		return funcSignature(v), nil
	case props.TypeInstance:
		return inspect.TypeName(v), nil
	}
	if s, ok := v.(string); ok {
		return `"` + escapeScalarString(s) + `"`, nil
	}
	return Plain(v), nil
}

// Plain is the generic fallback representation of v.
func Plain(v any) string {
	if v == nil {
		return "nil"
	}
	return escapeScalarString(fmt.Sprintf("%v", v))
}

// Summary is a one-line preview of v used next to collapsed nodes.
func Summary(v any, t props.Type) string {
	switch t {
	case props.TypeArray:
		return fmt.Sprintf("[%d]", lengthOf(v))
	case props.TypeObject:
		return fmt.Sprintf("{%d}", lengthOf(v))
	case props.TypeInstance:
		return inspect.TypeName(v) + " {…}"
	case props.TypeFunction:
		return funcSignature(v)
	case props.TypePrimitive:
	}
	s, _ := Stringify(v, t)
	return s
}

func lengthOf(v any) int {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return 0
		}
		rv = rv.Elem()
	}
	switch rv.Kind() { //nolint:exhaustive // only containers have a length
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len()
	}
	return 0
}

func funcSignature(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "nil"
	}
	return t.String()
}

// escapeScalarString flattens control characters in scalar strings so rows stay single-line.
func escapeScalarString(s string) string {
	if s == "" {
		return s
	}
	// Normalize Windows newlines first, then escape remaining control chars.
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ReplaceAll(s, "\n", "\\n")
}

// Truncate shortens s to maxLen display cells, adding an ellipsis if needed.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	// Measure display width using lipgloss (handles wide chars and ANSI codes)
	if lipgloss.Width(s) <= maxLen {
		return s
	}
	target := maxLen - 3
	suffix := "..."
	if maxLen < 3 {
		target = maxLen
		suffix = ""
	}
	var b strings.Builder
	width := 0
	for _, r := range s {
		rw := lipgloss.Width(string(r))
		if width+rw > target {
			break
		}
		b.WriteRune(r)
		width += rw
	}
	return b.String() + suffix
}

// TerminalWidth returns the width of stdout, or a default if detection fails.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 120 // sensible default
	}
	return width
}

// RenderTable prints rows as an indented KEY/VALUE table. Fitted rows are
// highlighted unless noColor is set. maxWidth 0 disables truncation.
func RenderTable(lines []Line, noColor bool, maxWidth int) string {
	sepWidth := 2
	sep := strings.Repeat(" ", sepWidth)

	keyWidth := 3 // "KEY" header
	valWidth := 5 // "VALUE" header
	keys := make([]string, len(lines))
	for i, l := range lines {
		keys[i] = strings.Repeat("  ", l.Depth) + l.Label
		if w := lipgloss.Width(keys[i]); w > keyWidth {
			keyWidth = w
		}
		if w := lipgloss.Width(l.Value); w > valWidth {
			valWidth = w
		}
	}
	if maxWidth > 0 && keyWidth+sepWidth+valWidth > maxWidth {
		available := maxWidth - sepWidth
		if available < 10 {
			available = 10
		}
		// Give key column 50% max, rest to value
		if maxKey := available / 2; keyWidth > maxKey {
			keyWidth = maxKey
		}
		valWidth = available - keyWidth
		if valWidth < 5 {
			valWidth = 5
		}
	}

	var b strings.Builder
	headerKey := padRight("KEY", keyWidth)
	headerValue := padRight("VALUE", valWidth)
	separator := strings.Repeat("─", keyWidth+sepWidth+valWidth)
	if !noColor {
		headerKey = headerStyle.Render(headerKey)
		headerValue = headerStyle.Render(headerValue)
		separator = separatorStyle.Render(separator)
	}
	b.WriteString(headerKey + sep + headerValue + "\n")
	b.WriteString(separator + "\n")

	for i, l := range lines {
		keyStr := padRight(Truncate(keys[i], keyWidth), keyWidth)
		valStr := padRight(Truncate(l.Value, valWidth), valWidth)
		if !noColor {
			if l.Fitted {
				keyStr = fittedStyle.Render(keyStr)
			} else {
				keyStr = keyStyle.Render(keyStr)
			}
			valStr = valueStyle.Render(valStr)
		}
		b.WriteString(strings.TrimRight(keyStr+sep+valStr, " ") + "\n")
	}
	return b.String()
}

// padRight pads a string to the specified display width.
func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}
