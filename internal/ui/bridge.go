package ui

import (
	"sync"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/oakwood-commons/vmscope/pkg/devtools"
)

// ChangedMsg tells the model the panel rows changed.
type ChangedMsg struct{}

// ScrollMsg carries an autoscroll target from the panel. Index -1 means no
// row fits the search and the cursor stays where it is.
type ScrollMsg struct {
	Index int
}

// TickMsg drives the periodic snapshot re-read.
type TickMsg time.Time

// Bridge forwards panel callbacks, which run on arbitrary goroutines, into
// the Bubble Tea program as messages. Messages sent before Attach are
// dropped; the model reloads rows on start anyway.
type Bridge struct {
	mu   sync.Mutex
	prog *tea.Program
	// pending coalesces change notifications until the program reads one.
	pending bool
}

// NewBridge returns an unattached bridge.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Options returns the panel options that route callbacks through b.
func (b *Bridge) Options() []devtools.Option {
	return []devtools.Option{
		devtools.WithOnChange(b.changed),
		devtools.WithOnAutoScroll(func(index int) { b.send(ScrollMsg{Index: index}) }),
	}
}

// Attach starts delivering messages to prog.
func (b *Bridge) Attach(prog *tea.Program) {
	b.mu.Lock()
	b.prog = prog
	b.mu.Unlock()
}

// Detach stops delivery. It is called once the program has exited.
func (b *Bridge) Detach() {
	b.Attach(nil)
}

func (b *Bridge) changed() {
	b.mu.Lock()
	if b.pending || b.prog == nil {
		b.mu.Unlock()
		return
	}
	b.pending = true
	prog := b.prog
	b.mu.Unlock()
	// Send blocks until the program reads the message.
	go prog.Send(ChangedMsg{})
}

// delivered clears the coalescing flag; the model calls it when it handles
// a ChangedMsg.
func (b *Bridge) delivered() {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.pending = false
	b.mu.Unlock()
}

func (b *Bridge) send(msg tea.Msg) {
	b.mu.Lock()
	prog := b.prog
	b.mu.Unlock()
	if prog != nil {
		go prog.Send(msg)
	}
}
