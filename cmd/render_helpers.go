package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/vmscope/internal/formatter"
	"github.com/oakwood-commons/vmscope/pkg/devtools"
)

const (
	formatTree     = "tree"
	formatTable    = "table"
	formatYAML     = "yaml"
	formatJSON     = "json"
	formatMarkdown = "markdown"
	formatHTML     = "html"
)

var outputFormats = []string{formatTree, formatTable, formatYAML, formatJSON, formatMarkdown, formatHTML}

func formatList() string {
	return strings.Join(outputFormats, "|")
}

func validFormat(f string) bool {
	for _, v := range outputFormats {
		if v == f {
			return true
		}
	}
	return false
}

type renderOptions struct {
	Format       string
	Title        string
	NoColor      bool
	MarkFitted   bool
	TreeDepth    int
	MaxStringLen int
	NoValues     bool
	// Width bounds table output; 0 uses the terminal width.
	Width int
}

func rowLines(rows []devtools.Row) []formatter.Line {
	lines := make([]formatter.Line, len(rows))
	for i, r := range rows {
		lines[i] = r.Line()
	}
	return lines
}

// renderRows prints rows in the requested format.
func renderRows(rows []devtools.Row, opts renderOptions) (string, error) {
	lines := rowLines(rows)
	if !opts.MarkFitted {
		// Without a search every row fits.
		for i := range lines {
			lines[i].Fitted = false
		}
	}

	switch opts.Format {
	case formatTree, "":
		return formatter.FormatAsTree(lines, formatter.TreeOptions{
			NoValues:     opts.NoValues,
			MaxDepth:     opts.TreeDepth,
			MaxStringLen: opts.MaxStringLen,
			MarkFitted:   opts.MarkFitted,
		}), nil
	case formatTable:
		width := opts.Width
		if width <= 0 {
			width = formatter.TerminalWidth()
		}
		return formatter.RenderTable(lines, opts.NoColor, width), nil
	case formatYAML:
		b, err := yaml.Marshal(rows)
		if err != nil {
			return "", fmt.Errorf("encoding yaml: %w", err)
		}
		return string(b), nil
	case formatJSON:
		if rows == nil {
			rows = []devtools.Row{}
		}
		b, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding json: %w", err)
		}
		return string(b), nil
	case formatMarkdown:
		return formatter.RenderMarkdown(opts.Title, lines), nil
	case formatHTML:
		return formatter.RenderHTML(formatter.RenderMarkdown(opts.Title, lines)), nil
	}
	return "", fmt.Errorf("unknown format %q", opts.Format)
}
