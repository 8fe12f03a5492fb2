package formatter

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// RenderMarkdown renders rows as a nested markdown list under a heading.
// Fitted rows are bold; closing markers are dropped.
func RenderMarkdown(title string, lines []Line) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}
	if len(lines) == 0 {
		b.WriteString("_No view models._\n")
		return b.String()
	}
	for _, l := range lines {
		if l.Closing {
			continue
		}
		text := escapeMarkdown(l.Label)
		if l.Fitted {
			text = "**" + text + "**"
		}
		if l.Meta != "" {
			text += " `" + strings.ReplaceAll(l.Meta, "`", "'") + "`"
		}
		if l.Value != "" {
			text += ": `" + strings.ReplaceAll(l.Value, "`", "'") + "`"
		}
		fmt.Fprintf(&b, "%s- %s\n", strings.Repeat("  ", l.Depth), text)
	}
	return b.String()
}

// RenderHTML converts markdown to an HTML fragment.
func RenderHTML(md string) string {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(md))

	htmlFlags := html.CommonFlags | html.HrefTargetBlank
	opts := html.RendererOptions{Flags: htmlFlags}
	renderer := html.NewRenderer(opts)
	return string(markdown.Render(doc, renderer))
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`_`, `\_`,
	"`", "\\`",
	`[`, `\[`,
	`]`, `\]`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
