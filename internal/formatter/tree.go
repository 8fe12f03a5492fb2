package formatter

import (
	"strings"

	"github.com/xlab/treeprint"
)

// Line is one flattened row prepared for text output.
type Line struct {
	Depth  int
	Label  string
	Meta   string
	Value  string
	Fitted bool
	// Closing rows carry only a bracket and are skipped in tree output.
	Closing bool
}

// TreeOptions controls tree output formatting.
type TreeOptions struct {
	// NoValues hides values (structure only).
	NoValues bool
	// MaxDepth limits tree depth (0 = unlimited).
	MaxDepth int
	// MaxStringLen is max chars before truncating values.
	// 0 or negative = no truncation (unlimited).
	MaxStringLen int
	// MarkFitted prefixes rows that satisfy the search with "* ".
	MarkFitted bool
}

// FormatAsTree renders flattened rows as an ASCII tree. Nesting is taken
// from the row depths; a row deeper than its predecessor by more than one
// level is attached to the nearest shallower row.
func FormatAsTree(lines []Line, opts TreeOptions) string {
	tree := treeprint.New()
	// branches[d] is the branch rows of depth d+1 attach to.
	branches := []treeprint.Tree{tree}
	for i, l := range lines {
		if l.Closing {
			continue
		}
		if opts.MaxDepth > 0 && l.Depth >= opts.MaxDepth {
			continue
		}
		depth := l.Depth
		if depth >= len(branches) {
			depth = len(branches) - 1
		}
		parent := branches[depth]
		label := formatLabel(l, opts)

		hasChildren := i+1 < len(lines) && !lines[i+1].Closing && lines[i+1].Depth > l.Depth
		branches = branches[:depth+1]
		if hasChildren {
			branches = append(branches, parent.AddBranch(label))
		} else {
			parent.AddNode(label)
		}
	}
	return tree.String()
}

func formatLabel(l Line, opts TreeOptions) string {
	var b strings.Builder
	if opts.MarkFitted && l.Fitted {
		b.WriteString("* ")
	}
	b.WriteString(l.Label)
	if l.Meta != "" {
		b.WriteString(" (" + l.Meta + ")")
	}
	if !opts.NoValues && l.Value != "" {
		v := l.Value
		if opts.MaxStringLen > 0 {
			v = Truncate(v, opts.MaxStringLen)
		}
		b.WriteString(": " + v)
	}
	return b.String()
}
