package ui

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"golang.org/x/term"

	"github.com/oakwood-commons/vmscope/pkg/devtools"
)

// DefaultTickInterval is how often the running UI re-reads the snapshot to
// pick up property changes the store does not announce.
const DefaultTickInterval = 500 * time.Millisecond

// RunOptions configures Run.
type RunOptions struct {
	AppName      string
	NoColor      bool
	TickInterval time.Duration
	// Width and Height force a window size; 0 auto-detects.
	Width  int
	Height int
	// Extra ProgramOptions (e.g., custom IO), mirroring tea.NewProgram.
	ProgramOptions []tea.ProgramOption
}

// Run starts the Bubble Tea program for panel and blocks until the user
// quits or ctx is cancelled. bridge must be the one whose Options were
// passed to devtools.Connect.
func Run(ctx context.Context, panel *devtools.Panel, bridge *Bridge, opts RunOptions) error {
	m := NewModel(panel, bridge)
	if name := strings.TrimSpace(opts.AppName); name != "" {
		m.AppName = name
	}
	m.SetNoColor(opts.NoColor)
	m.TickInterval = opts.TickInterval

	progOpts := append([]tea.ProgramOption{tea.WithContext(ctx)}, opts.ProgramOptions...)
	if opts.Width > 0 || opts.Height > 0 {
		w, h := opts.Width, opts.Height
		if tw, th, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			if w <= 0 {
				w = tw
			}
			if h <= 0 {
				h = th
			}
		}
		if w <= 0 {
			w = 80
		}
		if h <= 0 {
			h = 24
		}
		m.width, m.height = w, h
		progOpts = append(progOpts, tea.WithWindowSize(w, h))
	}

	prog := tea.NewProgram(m, progOpts...)
	if bridge != nil {
		bridge.Attach(prog)
		defer bridge.Detach()
	}
	_, err := prog.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
