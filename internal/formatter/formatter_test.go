package formatter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/vmscope/internal/props"
)

type widget struct {
	Name string
}

func TestStringifyString(t *testing.T) {
	result, err := Stringify("hello", props.TypePrimitive)
	require.NoError(t, err)
	if result != `"hello"` {
		t.Fatalf("expected quoted string, got %q", result)
	}
}

func TestStringifyStringEscapesNewlines(t *testing.T) {
	result, err := Stringify("line1\nline2", props.TypePrimitive)
	require.NoError(t, err)
	if result != `"line1\nline2"` {
		t.Fatalf("expected escaped newlines, got %q", result)
	}
}

func TestStringifyScalars(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "nil"},
		{"bool", true, "true"},
		{"int", 42, "42"},
		{"float", 1.5, "1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Stringify(tt.in, props.Classify(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStringifyContainers(t *testing.T) {
	got, err := Stringify(map[string]int{"b": 2, "a": 1}, props.TypeObject)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1,\n  \"b\": 2\n}", got)

	got, err = Stringify([]string{"x"}, props.TypeArray)
	require.NoError(t, err)
	assert.Equal(t, "[\n  \"x\"\n]", got)
}

func TestStringifyFailure(t *testing.T) {
	_, err := Stringify(map[string]any{"fn": func() {}}, props.TypeObject)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encoding object")

	assert.NotEmpty(t, Plain(map[string]any{"fn": func() {}}))
}

func TestStringifyInstanceAndFunction(t *testing.T) {
	got, err := Stringify(&widget{}, props.TypeInstance)
	require.NoError(t, err)
	assert.Equal(t, "widget", got)

	got, err = Stringify(func(int) string { return "" }, props.TypeFunction)
	require.NoError(t, err)
	assert.Equal(t, "func(int) string", got)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "[3]", Summary([]int{1, 2, 3}, props.TypeArray))
	assert.Equal(t, "{1}", Summary(map[string]int{"a": 1}, props.TypeObject))
	assert.Equal(t, "widget {…}", Summary(widget{}, props.TypeInstance))
	assert.Equal(t, "7", Summary(7, props.TypePrimitive))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hel...", Truncate("hello world", 6))
	assert.Equal(t, "he", Truncate("hello", 2))
	assert.Equal(t, "hello", Truncate("hello", 0))
}

func TestRenderTable(t *testing.T) {
	lines := []Line{
		{Depth: 0, Label: "CounterVM", Meta: "c1"},
		{Depth: 1, Label: "Value", Value: "3", Fitted: true},
	}
	out := RenderTable(lines, true, 0)
	rows := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, rows, 4)
	assert.True(t, strings.HasPrefix(rows[0], "KEY"))
	assert.True(t, strings.HasPrefix(rows[2], "CounterVM"))
	assert.True(t, strings.HasPrefix(rows[3], "  Value"))
	assert.True(t, strings.HasSuffix(rows[3], "3"))
}

func TestRenderMarkdownAndHTML(t *testing.T) {
	lines := []Line{
		{Depth: 0, Label: "App_VM", Meta: "app", Fitted: true},
		{Depth: 1, Label: "Title", Value: `"home"`},
		{Depth: 1, Label: "}", Closing: true},
	}
	md := RenderMarkdown("View models", lines)
	assert.Contains(t, md, "# View models")
	assert.Contains(t, md, "- **App\\_VM** `app`")
	assert.Contains(t, md, "  - Title: `\"home\"`")
	assert.NotContains(t, md, "}")

	html := RenderHTML(md)
	assert.Contains(t, html, "<h1")
	assert.Contains(t, html, "<strong>App_VM</strong>")
	assert.Contains(t, html, "<li>")
}

func TestRenderMarkdownEmpty(t *testing.T) {
	assert.Contains(t, RenderMarkdown("", nil), "No view models")
}
