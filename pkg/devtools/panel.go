// Package devtools projects a host store of live view-model instances into
// a searchable, expandable list of rows.
//
// A Panel is created with Connect and owns all projection state: the
// expand-state map, the node memo, the search query and the two debounce
// timers. Every exported method is safe for concurrent use. Callbacks
// registered through options run outside the panel lock.
package devtools

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/vmscope/internal/config"
	"github.com/oakwood-commons/vmscope/internal/debounce"
	"github.com/oakwood-commons/vmscope/internal/keypath"
	"github.com/oakwood-commons/vmscope/internal/limiter"
	"github.com/oakwood-commons/vmscope/internal/listitem"
	"github.com/oakwood-commons/vmscope/internal/search"
	"github.com/oakwood-commons/vmscope/pkg/inspect"
	"github.com/oakwood-commons/vmscope/pkg/logger"
)

// Row is the view-model of one rendered line.
type Row = listitem.Row

// SortOrder orders property names.
type SortOrder = listitem.SortOrder

// Mode is the presentation mode.
type Mode = listitem.Mode

const (
	SortNone = listitem.SortNone
	SortAsc  = listitem.SortAsc
	SortDesc = listitem.SortDesc

	ModeTree = listitem.ModeTree
	ModeList = listitem.ModeList
)

// Panel is a connected inspector.
type Panel struct {
	mu sync.Mutex

	store       inspect.Store
	unsubscribe func()
	extras      any

	engine *search.Engine
	tree   *listitem.Tree
	log    logr.Logger

	settings   config.Settings
	searchText string

	searchDelay *time.Duration
	scrollDelay *time.Duration
	noteTTL     *time.Duration
	searchDeb   *debounce.Debouncer
	scrollDeb   *debounce.Debouncer

	notes   *notifications
	console *console

	clipboard    func(string) error
	onChange     func()
	onAutoScroll func(int)
	onSettings   func(config.Settings)

	closed bool
}

// Connect attaches a panel to store. A nil store yields an inert panel that
// only shows the extras root, if any.
func Connect(store inspect.Store, opts ...Option) *Panel {
	p := &Panel{
		store:     store,
		log:       *logger.GetNoopLogger(),
		settings:  config.Defaults(),
		clipboard: defaultClipboard,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.WithName("devtools")

	timing := p.settings.Timing
	p.searchDeb = debounce.New(durationOr(p.searchDelay, timing.SearchDebounce()))
	p.scrollDeb = debounce.New(durationOr(p.scrollDelay, timing.AutoScrollDelay()))
	p.notes = newNotifications(durationOr(p.noteTTL, timing.NotificationTTL()))
	p.console = newConsole()

	p.engine = search.New()
	p.tree = listitem.NewTree(p.engine, p.log)
	p.tree.SetSortOrder(listitem.SortOrder(p.settings.SortOrder))
	p.tree.SetMode(listitem.Mode(p.settings.PresentationMode))
	p.settings.SortOrder = string(p.tree.SortOrder())
	p.settings.PresentationMode = string(p.tree.Mode())
	if p.extras != nil {
		p.tree.SetExtras(p.extras)
	}

	if n, ok := store.(inspect.Notifier); ok {
		p.unsubscribe = n.Subscribe(p.instanceRegistered)
	}
	if store == nil {
		p.log.V(1).Info("no store connected, panel is inert")
	}

	p.mu.Lock()
	p.syncLocked()
	p.mu.Unlock()
	return p
}

func durationOr(d *time.Duration, def time.Duration) time.Duration {
	if d != nil {
		return *d
	}
	return def
}

func (p *Panel) instanceRegistered(inst inspect.Instance) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	changed := p.syncLocked()
	p.mu.Unlock()
	if changed {
		p.log.V(1).Info("instance registered", "key", listitem.InstanceKey(inst))
		p.changed()
	}
}

// syncLocked re-reads the store snapshot and reports whether the instance
// set changed.
func (p *Panel) syncLocked() bool {
	return p.tree.SetInstances(inspect.Snapshot(p.store))
}

func (p *Panel) changed() {
	if p.onChange != nil {
		p.onChange()
	}
}

// Connected reports whether a store is attached.
func (p *Panel) Connected() bool {
	return p.store != nil
}

// VisibleRows returns the flattened rows for the current snapshot, expand
// state and search.
func (p *Panel) VisibleRows() []Row {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rowsLocked()
}

func (p *Panel) rowsLocked() []Row {
	p.syncLocked()
	items := p.tree.Flatten()
	rows := make([]Row, len(items))
	for i, it := range items {
		rows[i] = it.Row()
	}
	return rows
}

// Window returns the rows selected by cfg and the total row count.
func (p *Panel) Window(cfg limiter.Config) ([]Row, int, error) {
	if err := cfg.Validate(); err != nil {
		return nil, 0, err
	}
	rows := p.VisibleRows()
	return limiter.Apply(cfg, rows), len(rows), nil
}

// SetSearchText records raw input and applies it after the search debounce.
// A newer call supersedes a pending one.
func (p *Panel) SetSearchText(text string) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.searchText = text
	p.mu.Unlock()
	p.searchDeb.Trigger(func() { p.ApplySearchText(text) })
}

// ApplySearchText applies text as the query immediately.
func (p *Panel) ApplySearchText(text string) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.searchText = text
	changed := p.engine.SetQuery(text)
	q := p.engine.Query()
	p.mu.Unlock()

	if !changed {
		return
	}
	p.log.V(1).Info("search applied", logger.QueryKey, q.Normalized, "segments", q.Segments, "strict", q.Strict)
	p.changed()
	p.scrollDeb.Trigger(p.autoScroll)
}

// ResetSearch cancels pending input and clears the query.
func (p *Panel) ResetSearch() {
	p.searchDeb.Cancel()
	p.ApplySearchText("")
}

// SearchText returns the raw search input, including input not yet applied.
func (p *Panel) SearchText() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.searchText
}

// Query returns the applied query.
func (p *Panel) Query() keypath.Query {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engine.Query()
}

func (p *Panel) autoScroll() {
	idx := p.AutoScrollTarget()
	if p.onAutoScroll != nil {
		p.onAutoScroll(idx)
	}
}

// AutoScrollTarget returns the index of the last fitted row with the
// greatest depth. It is 0 when the search is inactive and -1 when no row
// fits.
func (p *Panel) AutoScrollTarget() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.engine.Active() {
		return 0
	}
	rows := p.rowsLocked()
	target, maxDepth := -1, -1
	for i, r := range rows {
		if r.Closing || !r.Fitted {
			continue
		}
		if r.Depth >= maxDepth {
			maxDepth = r.Depth
			target = i
		}
	}
	return target
}

// lookupLocked finds a node by key, flattening once if the node has not
// been built yet.
func (p *Panel) lookupLocked(key string) (*listitem.Item, bool) {
	if it, ok := p.tree.Lookup(key); ok {
		return it, true
	}
	p.syncLocked()
	p.tree.Flatten()
	return p.tree.Lookup(key)
}

func (p *Panel) withItem(key string, fn func(*listitem.Item)) bool {
	p.mu.Lock()
	it, ok := p.lookupLocked(key)
	if ok {
		fn(it)
	}
	p.mu.Unlock()
	if ok {
		p.changed()
	}
	return ok
}

// ToggleExpand flips the expand state of the node and reports whether the
// node exists.
func (p *Panel) ToggleExpand(key string) bool {
	return p.withItem(key, (*listitem.Item).Toggle)
}

// Expand expands the node. Leaves are left unchanged.
func (p *Panel) Expand(key string) bool {
	return p.withItem(key, (*listitem.Item).Expand)
}

// Collapse collapses the node.
func (p *Panel) Collapse(key string) bool {
	return p.withItem(key, (*listitem.Item).Collapse)
}

// ExpandAll expands every instance node, the extras root and every node
// with a stored state.
func (p *Panel) ExpandAll() {
	p.mu.Lock()
	p.syncLocked()
	p.tree.ExpandAll()
	p.mu.Unlock()
	p.changed()
}

// CollapseAll collapses every known node.
func (p *Panel) CollapseAll() {
	p.mu.Lock()
	p.syncLocked()
	p.tree.CollapseAll()
	p.mu.Unlock()
	p.changed()
}

// Refresh drops the cached values of the subtree under key. The row
// structure is unchanged unless the live values changed shape.
func (p *Panel) Refresh(key string) bool {
	p.mu.Lock()
	ok := p.tree.Refresh(key)
	p.mu.Unlock()
	if ok {
		p.changed()
	}
	return ok
}

// Invalidate re-reads the store and drops every memoized child list so that
// properties added or removed by the host show up.
func (p *Panel) Invalidate() {
	p.mu.Lock()
	if !p.syncLocked() {
		p.tree.Bump()
	}
	p.mu.Unlock()
	p.changed()
}

// SetExtras replaces the extras bag. Nil removes the extras root.
func (p *Panel) SetExtras(v any) {
	p.mu.Lock()
	p.extras = v
	p.tree.SetExtras(v)
	p.mu.Unlock()
	p.changed()
}

// SetSortOrder changes the property order. Unknown values mean none.
func (p *Panel) SetSortOrder(o SortOrder) {
	p.updateSettings(func(s *config.Settings) bool {
		changed := p.tree.SetSortOrder(o)
		s.SortOrder = string(p.tree.SortOrder())
		return changed
	})
}

// SetPresentationMode switches between tree and list mode.
func (p *Panel) SetPresentationMode(m Mode) {
	p.updateSettings(func(s *config.Settings) bool {
		changed := p.tree.SetMode(m)
		s.PresentationMode = string(p.tree.Mode())
		return changed
	})
}

// SetPopupOpened records whether the panel is shown.
func (p *Panel) SetPopupOpened(open bool) {
	p.updateSettings(func(s *config.Settings) bool {
		changed := s.IsPopupOpened != open
		s.IsPopupOpened = open
		return changed
	})
}

// TogglePopup flips the popup state and returns the new state.
func (p *Panel) TogglePopup() bool {
	var open bool
	p.updateSettings(func(s *config.Settings) bool {
		s.IsPopupOpened = !s.IsPopupOpened
		open = s.IsPopupOpened
		return true
	})
	return open
}

// SetPanelPosition moves the panel to one of the four corners.
func (p *Panel) SetPanelPosition(pos string) error {
	next := p.Settings()
	next.PanelPosition = pos
	if err := next.Validate(); err != nil {
		return fmt.Errorf("set panel position: %w", err)
	}
	p.updateSettings(func(s *config.Settings) bool {
		changed := s.PanelPosition != pos
		s.PanelPosition = pos
		return changed
	})
	return nil
}

func (p *Panel) updateSettings(fn func(*config.Settings) bool) {
	p.mu.Lock()
	if !fn(&p.settings) {
		p.mu.Unlock()
		return
	}
	s := p.settings
	p.mu.Unlock()

	if p.onSettings != nil {
		p.onSettings(s)
	}
	p.changed()
}

// Settings returns the current settings.
func (p *Panel) Settings() config.Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings
}

// Notifications returns the notifications that have not expired, oldest
// first.
func (p *Panel) Notifications() []Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.notes.list()
}

// Notify shows a transient message.
func (p *Panel) Notify(title string) Notification {
	p.mu.Lock()
	note := p.notes.push(title, p.expireNotification)
	p.mu.Unlock()
	p.changed()
	return note
}

// DismissNotification removes a notification before it expires.
func (p *Panel) DismissNotification(id string) bool {
	p.mu.Lock()
	ok := p.notes.remove(id)
	p.mu.Unlock()
	if ok {
		p.changed()
	}
	return ok
}

func (p *Panel) expireNotification(id string) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	ok := p.notes.remove(id)
	p.mu.Unlock()
	if ok {
		p.changed()
	}
}

// Close cancels pending timers and detaches from the store. The panel keeps
// answering reads from its last snapshot.
func (p *Panel) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.notes.stop()
	unsubscribe := p.unsubscribe
	p.unsubscribe = nil
	p.mu.Unlock()

	p.searchDeb.Cancel()
	p.scrollDeb.Cancel()
	if unsubscribe != nil {
		unsubscribe()
	}
}
