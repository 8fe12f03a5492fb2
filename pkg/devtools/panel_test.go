package devtools

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/vmscope/internal/config"
	"github.com/oakwood-commons/vmscope/internal/limiter"
	"github.com/oakwood-commons/vmscope/pkg/inspect"
)

type vm struct {
	name   string
	id     string
	parent inspect.Instance
	order  []string
	values map[string]any
}

func newVM(name, id string, parent inspect.Instance, kv ...any) *vm {
	v := &vm{name: name, id: id, parent: parent, values: map[string]any{}}
	for i := 0; i+1 < len(kv); i += 2 {
		k := kv[i].(string)
		v.order = append(v.order, k)
		v.values[k] = kv[i+1]
	}
	return v
}

func (v *vm) DisplayName() string { return v.name }
func (v *vm) ID() string          { return v.id }
func (v *vm) Parent() inspect.Instance {
	if v.parent == nil {
		return nil
	}
	return v.parent
}
func (v *vm) Properties() []string              { return append([]string(nil), v.order...) }
func (v *vm) Property(name string) (any, error) { return v.values[name], nil }

func familyStore() (*inspect.MemoryStore, *vm, *vm, *vm) {
	a := newVM("AppVM", "a", nil, "title", "home")
	b := newVM("PageVM", "b", a)
	c := newVM("CounterVM", "c", b, "count", 3, "history", []int{1, 2})
	store := inspect.NewMemoryStore()
	store.Register("a", a)
	store.Register("b", b)
	store.Register("c", c)
	return store, a, b, c
}

func immediate(opts ...Option) []Option {
	return append([]Option{WithSearchDebounce(0), WithAutoScrollDelay(0), WithClipboard(func(string) error { return nil })}, opts...)
}

func rowKeys(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Key
	}
	return out
}

func rowByKey(t *testing.T, rows []Row, key string) Row {
	t.Helper()
	for _, r := range rows {
		if r.Key == key {
			return r
		}
	}
	t.Fatalf("row %q not found in %v", key, rowKeys(rows))
	return Row{}
}

func TestVisibleRowsDeterministic(t *testing.T) {
	store, _, _, _ := familyStore()
	p := Connect(store, immediate()...)
	defer p.Close()

	first := p.VisibleRows()
	second := p.VisibleRows()
	assert.Equal(t, rowKeys(first), rowKeys(second))
	assert.Equal(t, []string{
		"AppVM-a", "AppVM-a-title", "PageVM-b", "CounterVM-c", "CounterVM-c-count", "CounterVM-c-history",
	}, rowKeys(first))
}

type settingsVM struct {
	Name  string
	Extra any
}

func (s settingsVM) DisplayName() string      { return "SettingsVM" }
func (s settingsVM) ID() string               { return s.Name }
func (s settingsVM) Parent() inspect.Instance { return nil }

func TestValueInstanceDoesNotPanic(t *testing.T) {
	store := inspect.NewMemoryStore()
	store.Register("x", settingsVM{Name: "x", Extra: []int{1}})

	var rows []Row
	require.NotPanics(t, func() {
		p := Connect(store, immediate()...)
		defer p.Close()
		rows = p.VisibleRows()
		p.Invalidate()
		rows = p.VisibleRows()
	})
	assert.Equal(t, []string{"SettingsVM-x", "SettingsVM-x-Name", "SettingsVM-x-Extra"}, rowKeys(rows))
}

func TestOrphanBecomesRoot(t *testing.T) {
	store, _, _, _ := familyStore()
	p := Connect(store, immediate()...)
	defer p.Close()

	require.True(t, store.Unregister("a"))
	rows := p.VisibleRows()
	assert.Equal(t, "PageVM-b", rows[0].Key)
	assert.Equal(t, 0, rows[0].Depth)
	assert.Equal(t, 1, rowByKey(t, rows, "CounterVM-c").Depth)
}

func TestCollapseHidesDescendants(t *testing.T) {
	store, _, _, _ := familyStore()
	p := Connect(store, immediate()...)
	defer p.Close()

	require.True(t, p.Collapse("AppVM-a"))
	assert.Equal(t, []string{"AppVM-a"}, rowKeys(p.VisibleRows()))

	require.True(t, p.ToggleExpand("AppVM-a"))
	assert.Len(t, p.VisibleRows(), 6)

	assert.False(t, p.ToggleExpand("missing"))
}

func TestExpandPropertyAddsClosingMarker(t *testing.T) {
	store, _, _, _ := familyStore()
	p := Connect(store, immediate()...)
	defer p.Close()

	require.True(t, p.Expand("CounterVM-c-history"))
	rows := p.VisibleRows()
	tail := rowKeys(rows[len(rows)-5 : len(rows)-1])
	assert.Equal(t, []string{
		"CounterVM-c-history", "CounterVM-c-history-0", "CounterVM-c-history-1", "CounterVM-c-history-length",
	}, tail)

	p.CollapseAll()
	assert.Equal(t, []string{"AppVM-a"}, rowKeys(p.VisibleRows()))
	p.ExpandAll()
	rows = p.VisibleRows()
	last := rows[len(rows)-1]
	assert.True(t, last.Closing)
	assert.Equal(t, "]", last.Label)
	assert.Equal(t, rowByKey(t, rows, "CounterVM-c-history").Depth, last.Depth)
}

func TestSearchHighlightsAndAutoScroll(t *testing.T) {
	store, _, _, _ := familyStore()
	var scrolled atomic.Int64
	scrolled.Store(-100)
	p := Connect(store, immediate(WithOnAutoScroll(func(i int) { scrolled.Store(int64(i)) }))...)
	defer p.Close()

	assert.Equal(t, 0, p.AutoScrollTarget())

	p.ApplySearchText("counter")
	rows := p.VisibleRows()
	assert.False(t, rowByKey(t, rows, "AppVM-a").Fitted)
	assert.False(t, rowByKey(t, rows, "PageVM-b").Fitted)
	assert.True(t, rowByKey(t, rows, "CounterVM-c").Fitted)
	assert.True(t, rowByKey(t, rows, "CounterVM-c-count").Fitted)

	// The deepest fitted rows are the counter properties; the last one wins.
	assert.Equal(t, 5, p.AutoScrollTarget())
	assert.Equal(t, int64(5), scrolled.Load())

	p.ApplySearchText("zzz")
	assert.Equal(t, -1, p.AutoScrollTarget())
	assert.Equal(t, int64(-1), scrolled.Load())

	p.ResetSearch()
	assert.False(t, p.Query().Active())
	assert.Equal(t, int64(0), scrolled.Load())
}

func TestSearchKeepsManualExpandState(t *testing.T) {
	store, _, _, _ := familyStore()
	p := Connect(store, immediate()...)
	defer p.Close()

	require.True(t, p.Collapse("PageVM-b"))
	p.ApplySearchText("counter")
	assert.Contains(t, rowKeys(p.VisibleRows()), "CounterVM-c")

	p.ResetSearch()
	assert.NotContains(t, rowKeys(p.VisibleRows()), "CounterVM-c")
}

func TestSetSearchTextIsDebounced(t *testing.T) {
	store, _, _, _ := familyStore()
	var changes atomic.Int32
	p := Connect(store,
		WithSearchDebounce(30*time.Millisecond),
		WithAutoScrollDelay(0),
		WithOnChange(func() { changes.Add(1) }),
	)
	defer p.Close()

	p.SetSearchText("c")
	p.SetSearchText("co")
	p.SetSearchText("counter")
	assert.Equal(t, "counter", p.SearchText())
	assert.False(t, p.Query().Active())

	require.Eventually(t, func() bool { return p.Query().Normalized == "counter" }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), changes.Load())
}

func TestResetSearchCancelsPendingInput(t *testing.T) {
	store, _, _, _ := familyStore()
	p := Connect(store, WithSearchDebounce(20*time.Millisecond), WithAutoScrollDelay(0))
	defer p.Close()

	p.SetSearchText("counter")
	p.ResetSearch()
	time.Sleep(50 * time.Millisecond)
	assert.False(t, p.Query().Active())
	assert.Equal(t, "", p.SearchText())
}

func TestInertPanel(t *testing.T) {
	p := Connect(nil, immediate()...)
	defer p.Close()
	assert.False(t, p.Connected())
	assert.Empty(t, p.VisibleRows())
	assert.False(t, p.ToggleExpand("AppVM-a"))

	p.SetExtras(map[string]any{"build": "1.0"})
	rows := p.VisibleRows()
	require.Len(t, rows, 2)
	assert.Equal(t, "Extras", rows[0].Label)
	assert.Equal(t, "build", rows[1].Label)

	p.SetExtras(nil)
	assert.Empty(t, p.VisibleRows())
}

func TestExtrasComeFirst(t *testing.T) {
	store, _, _, _ := familyStore()
	p := Connect(store, immediate(WithExtras(map[string]any{"env": "dev"}))...)
	defer p.Close()

	rows := p.VisibleRows()
	assert.Equal(t, []string{"extra$$$-Extras-", "extra$$$-Extras--env", "AppVM-a"}, rowKeys(rows[:3]))
}

func TestStoreNotificationTriggersChange(t *testing.T) {
	store, _, _, c := familyStore()
	var changes atomic.Int32
	p := Connect(store, immediate(WithOnChange(func() { changes.Add(1) }))...)

	store.Register("d", newVM("ToastVM", "d", c))
	assert.Equal(t, int32(1), changes.Load())
	assert.Contains(t, rowKeys(p.VisibleRows()), "ToastVM-d")

	p.Close()
	store.Register("e", newVM("ToastVM", "e", c))
	assert.Equal(t, int32(1), changes.Load())
}

func TestPresentationAndSortSettings(t *testing.T) {
	store, _, _, _ := familyStore()
	var mu sync.Mutex
	var saved []config.Settings
	p := Connect(store, immediate(WithOnSettingsChange(func(s config.Settings) {
		mu.Lock()
		saved = append(saved, s)
		mu.Unlock()
	}))...)
	defer p.Close()

	// Expand state stored in tree mode carries over to list mode.
	p.VisibleRows()
	p.SetPresentationMode(ModeList)
	rows := p.VisibleRows()
	assert.Equal(t, 0, rowByKey(t, rows, "CounterVM-c").Depth)
	assert.Equal(t, 1, rowByKey(t, rows, "CounterVM-c-count").Depth)

	p.SetSortOrder(SortDesc)
	rows = p.VisibleRows()
	idxHistory, idxCount := -1, -1
	for i, r := range rows {
		switch r.Key {
		case "CounterVM-c-history":
			idxHistory = i
		case "CounterVM-c-count":
			idxCount = i
		}
	}
	assert.Less(t, idxHistory, idxCount)

	// Unchanged values do not reach the sink.
	p.SetSortOrder(SortDesc)

	require.NoError(t, p.SetPanelPosition(config.PositionTopLeft))
	assert.Error(t, p.SetPanelPosition("center"))
	assert.True(t, p.TogglePopup())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, saved, 4)
	assert.Equal(t, "list", saved[0].PresentationMode)
	assert.Equal(t, "desc", saved[1].SortOrder)
	assert.Equal(t, config.PositionTopLeft, saved[2].PanelPosition)
	assert.True(t, saved[3].IsPopupOpened)
	assert.Equal(t, saved[3], p.Settings())
}

func TestInitialSettingsApplied(t *testing.T) {
	store, _, _, _ := familyStore()
	s := config.Defaults()
	s.PresentationMode = "list"
	s.SortOrder = "bogus"
	p := Connect(store, immediate(WithSettings(s))...)
	defer p.Close()

	assert.Equal(t, "none", p.Settings().SortOrder)
	assert.Equal(t, 0, rowByKey(t, p.VisibleRows(), "PageVM-b").Depth)
}

func TestRefreshKeepsStructure(t *testing.T) {
	store, _, _, c := familyStore()
	p := Connect(store, immediate()...)
	defer p.Close()

	before := rowKeys(p.VisibleRows())
	c.values["count"] = 4
	require.True(t, p.Refresh("CounterVM-c"))
	rows := p.VisibleRows()
	assert.Equal(t, before, rowKeys(rows))
	assert.Equal(t, "4", rowByKey(t, rows, "CounterVM-c-count").Value)
	assert.False(t, p.Refresh("nope"))
}

func TestInvalidatePicksUpNewProperties(t *testing.T) {
	store, _, _, c := familyStore()
	p := Connect(store, immediate()...)
	defer p.Close()

	p.VisibleRows()
	c.order = append(c.order, "step")
	c.values["step"] = 2
	assert.NotContains(t, rowKeys(p.VisibleRows()), "CounterVM-c-step")
	p.Invalidate()
	assert.Contains(t, rowKeys(p.VisibleRows()), "CounterVM-c-step")
}

func TestWindow(t *testing.T) {
	store, _, _, _ := familyStore()
	p := Connect(store, immediate()...)
	defer p.Close()

	rows, total, err := p.Window(limiter.Config{Offset: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	assert.Equal(t, []string{"AppVM-a-title", "PageVM-b"}, rowKeys(rows))

	_, _, err = p.Window(limiter.Config{Limit: 1, Tail: 1})
	assert.Error(t, err)
}

func TestSaveTempAndEvaluate(t *testing.T) {
	store, _, _, _ := familyStore()
	p := Connect(store, immediate()...)
	defer p.Close()

	name, ok := p.SaveTemp("CounterVM-c-count")
	require.True(t, ok)
	assert.Equal(t, "temp1", name)

	// Saving the same node again keeps its name.
	name, _ = p.SaveTemp("CounterVM-c-count")
	assert.Equal(t, "temp1", name)

	name, ok = p.SaveTemp("CounterVM-c")
	require.True(t, ok)
	assert.Equal(t, "temp2", name)
	assert.Equal(t, []string{"temp1", "temp2"}, p.Temps())

	got, err := p.Evaluate("temp1 + 1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), got)

	got, err = p.Evaluate("size(temp2.history)")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)

	_, err = p.Evaluate("temp9")
	assert.Error(t, err)

	notes := p.Notifications()
	require.Len(t, notes, 3)
	assert.Equal(t, "Saved into temp1", notes[0].Title)
	assert.NotEmpty(t, notes[0].ID)
	assert.NotEqual(t, notes[0].ID, notes[1].ID)

	_, ok = p.SaveTemp("missing")
	assert.False(t, ok)
	assert.NotEmpty(t, p.ConsoleFunctions())
}

func TestCopy(t *testing.T) {
	store, _, _, _ := familyStore()
	var copied string
	p := Connect(store, immediate(WithClipboard(func(s string) error {
		copied = s
		return nil
	}))...)
	defer p.Close()

	assert.True(t, p.Copy("AppVM-a-title"))
	assert.Equal(t, `"home"`, copied)
	assert.False(t, p.Copy("AppVM-a"))
	assert.False(t, p.Copy("missing"))
}

func TestCopyFailureIsSwallowed(t *testing.T) {
	store, _, _, _ := familyStore()
	p := Connect(store, immediate(WithClipboard(func(string) error { return errors.New("no clipboard") }))...)
	defer p.Close()

	assert.False(t, p.Copy("AppVM-a-title"))
	assert.Empty(t, p.Notifications())
}

func TestNotificationsExpire(t *testing.T) {
	var changes atomic.Int32
	p := Connect(nil, immediate(WithNotificationTTL(20*time.Millisecond), WithOnChange(func() { changes.Add(1) }))...)
	defer p.Close()

	note := p.Notify("hello")
	assert.Equal(t, []Notification{note}, p.Notifications())
	require.Eventually(t, func() bool { return len(p.Notifications()) == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), changes.Load())

	note = p.Notify("bye")
	assert.True(t, p.DismissNotification(note.ID))
	assert.False(t, p.DismissNotification(note.ID))
}

func TestCloseStopsInput(t *testing.T) {
	store, _, _, _ := familyStore()
	p := Connect(store, immediate()...)
	p.Close()
	p.Close()

	p.SetSearchText("counter")
	p.ApplySearchText("counter")
	assert.False(t, p.Query().Active())
	assert.NotEmpty(t, p.VisibleRows())
}
