package listitem

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/vmscope/internal/props"
	"github.com/oakwood-commons/vmscope/internal/search"
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

func newTree(instances ...inspect.Instance) *Tree {
	t := NewTree(search.New(), logr.Discard())
	t.SetInstances(instances)
	return t
}

func keys(items []*Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Key()
	}
	return out
}

func depths(items []*Item) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.Depth()
	}
	return out
}

func family() (a, b, c *vm) {
	a = newVM("AppVM", "a", nil, "title", "home")
	b = newVM("PageVM", "b", a)
	c = newVM("CounterVM", "c", b)
	return a, b, c
}

func TestFlattenParentChild(t *testing.T) {
	a, b, c := family()
	tree := newTree(c, b, a)

	rows := tree.Flatten()
	assert.Equal(t, []string{"AppVM-a", "AppVM-a-title", "PageVM-b", "CounterVM-c"}, keys(rows))
	assert.Equal(t, []int{0, 1, 1, 2}, depths(rows))

	roots := tree.Roots()
	require.Len(t, roots, 1)
	assert.Equal(t, "AppVM-a", roots[0].Key())
}

func TestFlattenDeterministic(t *testing.T) {
	a, b, c := family()
	tree := newTree(a, b, c)
	first := keys(tree.Flatten())
	second := keys(tree.Flatten())
	assert.Equal(t, first, second)
}

func TestOrphanBecomesRoot(t *testing.T) {
	a, b, c := family()
	tree := newTree(a, b, c)
	require.Len(t, tree.Roots(), 1)

	assert.True(t, tree.SetInstances([]inspect.Instance{b, c}))
	roots := tree.Roots()
	require.Len(t, roots, 1)
	assert.Equal(t, "PageVM-b", roots[0].Key())
	assert.Equal(t, []int{0, 1}, depths(tree.Flatten()))

	assert.False(t, tree.SetInstances([]inspect.Instance{b, c}), "same snapshot")
}

func TestParentChangeDetected(t *testing.T) {
	a, b, c := family()
	tree := newTree(a, b, c)
	tree.Flatten()

	c.parent = a
	assert.True(t, tree.SetInstances([]inspect.Instance{a, b, c}))
	assert.Equal(t, []string{"AppVM-a", "AppVM-a-title", "PageVM-b", "CounterVM-c"}, keys(tree.Flatten()))
	assert.Equal(t, []int{0, 1, 1, 1}, depths(tree.Flatten()))
}

// valueVM is an instance passed by value. Its type is comparable but Extra
// may hold an unhashable value.
type valueVM struct {
	Name  string
	Extra any
	owner inspect.Instance
}

func (v valueVM) DisplayName() string      { return "ValueVM" }
func (v valueVM) ID() string               { return v.Name }
func (v valueVM) Parent() inspect.Instance { return v.owner }

func TestValueInstanceWithUnhashableField(t *testing.T) {
	x := valueVM{Name: "x", Extra: []int{1}}
	child := newVM("ChildVM", "c", x)

	var tree *Tree
	require.NotPanics(t, func() {
		tree = newTree(x, child)
		tree.Flatten()
	})
	rows := keys(tree.Flatten())
	assert.Contains(t, rows, "ValueVM-x")
	assert.Contains(t, rows, "ValueVM-x-Extra")
	assert.Contains(t, rows, "ChildVM-c")
}

func TestValueInstanceParentIsFound(t *testing.T) {
	x := valueVM{Name: "x", Extra: 7}
	child := newVM("ChildVM", "c", x)
	tree := newTree(child, x)

	require.Len(t, tree.Roots(), 1)
	assert.Equal(t, "ValueVM-x", tree.Roots()[0].Key())
	assert.Equal(t, []string{"ValueVM-x", "ValueVM-x-Name", "ValueVM-x-Extra", "ChildVM-c"}, keys(tree.Flatten()))
}

func TestCycleBrokenByVisitedSet(t *testing.T) {
	x := newVM("X", "x", nil)
	y := newVM("Y", "y", x)
	x.parent = y
	z := newVM("Z", "z", y)

	tree := newTree(x, y, z)
	rows := tree.Flatten()
	assert.Equal(t, []string{"X-x", "Y-y", "Z-z"}, keys(rows))
	assert.Equal(t, []int{0, 1, 2}, depths(rows))

	self := newVM("Self", "s", nil)
	self.parent = self
	tree = newTree(self)
	assert.Equal(t, []string{"Self-s"}, keys(tree.Flatten()))
}

func TestExpandDefaultAndCollapse(t *testing.T) {
	a, b, c := family()
	tree := newTree(a, b, c)

	_, ok := tree.Lookup("AppVM-a")
	assert.False(t, ok, "nodes are built lazily")
	tree.Flatten()
	root, ok := tree.Lookup("AppVM-a")
	require.True(t, ok)
	assert.True(t, root.Expanded())

	root.Collapse()
	assert.Equal(t, []string{"AppVM-a"}, keys(tree.Flatten()))

	root.Toggle()
	assert.Len(t, tree.Flatten(), 4)
}

func TestExpandIsNoopForLeaves(t *testing.T) {
	a, b, c := family()
	tree := newTree(a, b, c)
	tree.Flatten()

	leaf, ok := tree.Lookup("CounterVM-c")
	require.True(t, ok)
	assert.False(t, leaf.Expandable())
	leaf.Expand()
	assert.False(t, leaf.Expanded())

	title, ok := tree.Lookup("AppVM-a-title")
	require.True(t, ok)
	assert.Equal(t, props.TypePrimitive, title.Type())
	title.Expand()
	assert.False(t, title.Expanded())
}

func TestExpandAllCollapseAll(t *testing.T) {
	a, b, c := family()
	tree := newTree(a, b, c)

	tree.CollapseAll()
	assert.Equal(t, []string{"AppVM-a"}, keys(tree.Flatten()))

	tree.ExpandAll()
	assert.Len(t, tree.Flatten(), 4)
}

func TestClosingMarker(t *testing.T) {
	a := newVM("AppVM", "a", nil, "settings", map[string]any{"x": 1, "y": 2})
	tree := newTree(a)

	rows := tree.Flatten()
	require.Equal(t, []string{"AppVM-a", "AppVM-a-settings"}, keys(rows))
	settings := rows[1]
	assert.Equal(t, props.TypeObject, settings.Type())
	assert.Equal(t, ",", settings.ExtraContent())

	settings.Expand()
	rows = tree.Flatten()
	assert.Equal(t, []string{
		"AppVM-a",
		"AppVM-a-settings",
		"AppVM-a-settings-x",
		"AppVM-a-settings-y",
		"AppVM-a-settings/closing-tag",
	}, keys(rows))
	closing := rows[4]
	assert.Equal(t, KindClosing, closing.Kind())
	assert.Equal(t, settings.Depth(), closing.Depth())
	assert.Equal(t, "}", closing.Name())
	assert.Same(t, closing, tree.Flatten()[4], "closing markers are memoized")

	assert.Empty(t, settings.ExtraContent())
	assert.Equal(t, ",", rows[2].ExtraContent())
}

func TestArrayChildrenAndClosing(t *testing.T) {
	a := newVM("AppVM", "a", nil, "items", []string{"p", "q"})
	tree := newTree(a)
	tree.Flatten()

	items, ok := tree.Lookup("AppVM-a-items")
	require.True(t, ok)
	items.Expand()
	rows := tree.Flatten()
	assert.Equal(t, []string{
		"AppVM-a",
		"AppVM-a-items",
		"AppVM-a-items-0",
		"AppVM-a-items-1",
		"AppVM-a-items-length",
		"AppVM-a-items/closing-tag",
	}, keys(rows))
	assert.Equal(t, "]", rows[5].Name())
	assert.Equal(t, `"q"`, rows[3].Row().Value)
	assert.Equal(t, "2", rows[4].Row().Value)
}

func TestIdempotentRefresh(t *testing.T) {
	a := newVM("AppVM", "a", nil, "settings", map[string]any{"x": 1}, "count", 1)
	tree := newTree(a)
	tree.Flatten()
	s, _ := tree.Lookup("AppVM-a-settings")
	s.Expand()
	before := keys(tree.Flatten())

	a.values["count"] = 2
	assert.True(t, tree.Refresh("AppVM-a"))
	after := tree.Flatten()
	assert.Equal(t, before, keys(after))

	count, ok := tree.Lookup("AppVM-a-count")
	require.True(t, ok)
	assert.Equal(t, "2", count.Row().Value)
	assert.False(t, tree.Refresh("missing"))
}

func TestSearchRevealsMatchesWithoutChangingState(t *testing.T) {
	a, b, c := family()
	tree := newTree(a, b, c)
	tree.CollapseAll()
	require.Len(t, tree.Flatten(), 1)

	tree.Search().SetQuery("counter")
	rows := tree.Flatten()
	assert.Equal(t, []string{"AppVM-a", "AppVM-a-title", "PageVM-b", "CounterVM-c"}, keys(rows))
	assert.False(t, rows[0].Fitted())
	assert.True(t, rows[3].Fitted())

	tree.Search().SetQuery("")
	assert.Len(t, tree.Flatten(), 1, "manual collapsed state survives the search")
}

func TestSearchPropertyPathExpandsFittedProperty(t *testing.T) {
	a := newVM("AppVM", "a", nil, "settings", map[string]any{"x": 1, "y": 2}, "title", "t")
	tree := newTree(a)

	tree.Search().SetQuery("appvm.settings.x")
	rows := tree.Flatten()
	assert.Equal(t, []string{
		"AppVM-a",
		"AppVM-a-settings",
		"AppVM-a-settings-x",
		"AppVM-a-settings-y",
		"AppVM-a-settings/closing-tag",
		"AppVM-a-title",
	}, keys(rows))
	assert.True(t, rows[0].Fitted())
	assert.True(t, rows[1].Fitted())
	assert.True(t, rows[2].Fitted())
	assert.False(t, rows[3].Fitted())
	assert.False(t, rows[5].Fitted())
	assert.Equal(t, []string{"settings"}, rows[0].MatchedProperties())

	settings := rows[1]
	assert.False(t, settings.Expanded(), "stored state is untouched")
}

func TestSearchCacheInvalidatedOnQueryChange(t *testing.T) {
	a, b, c := family()
	tree := newTree(a, b, c)

	tree.Search().SetQuery("a")
	tree.Flatten()
	root, _ := tree.Lookup("AppVM-a")
	assert.True(t, root.Fitted())

	tree.Search().SetQuery("p")
	tree.Flatten()
	assert.False(t, root.Fitted())
	page, _ := tree.Lookup("PageVM-b")
	assert.True(t, page.Fitted())
}

func TestListMode(t *testing.T) {
	a, b, c := family()
	tree := NewTree(search.New(), logr.Discard())
	tree.SetMode(ModeList)
	tree.SetInstances([]inspect.Instance{a, b, c})

	rows := tree.Flatten()
	assert.Equal(t, []string{"AppVM-a", "PageVM-b", "CounterVM-c"}, keys(rows))
	assert.Equal(t, []int{0, 0, 0}, depths(rows))

	rows[0].Expand()
	rows = tree.Flatten()
	assert.Equal(t, []string{"AppVM-a", "AppVM-a-title", "PageVM-b", "CounterVM-c"}, keys(rows))
	assert.Equal(t, 1, rows[1].Depth())

	assert.False(t, tree.SetMode(ModeList))
	assert.True(t, tree.SetMode(ModeTree))
	assert.Equal(t, []int{0, 1, 1, 2}, depths(tree.Flatten()))
}

func TestSortOrder(t *testing.T) {
	a := newVM("AppVM", "a", nil, "b", 1, "a", 2, "c", 3)
	tree := newTree(a)

	assert.Equal(t, []string{"AppVM-a", "AppVM-a-b", "AppVM-a-a", "AppVM-a-c"}, keys(tree.Flatten()))
	assert.True(t, tree.SetSortOrder(SortAsc))
	assert.Equal(t, []string{"AppVM-a", "AppVM-a-a", "AppVM-a-b", "AppVM-a-c"}, keys(tree.Flatten()))
	assert.True(t, tree.SetSortOrder(SortDesc))
	assert.Equal(t, []string{"AppVM-a", "AppVM-a-c", "AppVM-a-b", "AppVM-a-a"}, keys(tree.Flatten()))
	assert.False(t, tree.SetSortOrder(SortDesc))
}

func TestExtrasRoot(t *testing.T) {
	a, _, _ := family()
	tree := newTree(a)
	tree.SetExtras(map[string]any{"env": "dev"})

	rows := tree.Flatten()
	require.GreaterOrEqual(t, len(rows), 2)
	assert.Equal(t, ExtrasKey, rows[0].Key())
	assert.Equal(t, KindExtras, rows[0].Kind())
	assert.Equal(t, "extra$$$-Extras--env", rows[1].Key())
	assert.Equal(t, 0, rows[0].Depth())

	tree.SetExtras(nil)
	assert.Equal(t, "AppVM-a", tree.Flatten()[0].Key())
}

func TestStringifyFailureIsSticky(t *testing.T) {
	a := newVM("AppVM", "a", nil, "bad", map[string]any{"fn": func() {}}, "ok", map[string]int{"n": 1})
	tree := newTree(a)
	tree.Flatten()

	bad, _ := tree.Lookup("AppVM-a-bad")
	assert.NotEmpty(t, bad.Stringified())
	assert.False(t, bad.Copiable())
	assert.Equal(t, "{1}", bad.Row().Value)

	ok, _ := tree.Lookup("AppVM-a-ok")
	assert.True(t, ok.Copiable())
	assert.Equal(t, "{\n  \"n\": 1\n}", ok.Stringified())
}

func TestValueFollowsHostMutation(t *testing.T) {
	a := newVM("CounterVM", "a", nil, "count", 1, "tags", []string{"x"})
	tree := newTree(a)
	tree.Flatten()

	count, ok := tree.Lookup("CounterVM-a-count")
	require.True(t, ok)
	assert.Equal(t, "1", count.Row().Value)

	a.values["count"] = 2
	a.values["tags"] = []string{"x", "y"}
	tree.Flatten()
	assert.Equal(t, "2", count.Row().Value)
	assert.Equal(t, "2", count.Stringified())

	tags, _ := tree.Lookup("CounterVM-a-tags")
	assert.Equal(t, "[\n  \"x\",\n  \"y\"\n]", tags.Stringified())
}

func TestRowViewModel(t *testing.T) {
	a, b, c := family()
	tree := newTree(a, b, c)
	rows := tree.Flatten()

	r := rows[0].Row()
	assert.Equal(t, "AppVM-a", r.Key)
	assert.Equal(t, "instance", r.Kind)
	assert.Equal(t, "AppVM", r.Label)
	assert.Equal(t, "a", r.Meta)
	assert.True(t, r.Fitted)
	assert.True(t, r.Expandable)
	assert.True(t, r.Expanded)

	title := rows[1].Row()
	assert.Equal(t, `"home"`, title.Value)
	assert.Equal(t, "primitive", title.Type)
	assert.True(t, title.Copiable)
	assert.Equal(t, ",", title.ExtraContent)

	line := r.Line()
	assert.Equal(t, "a", line.Meta)
	assert.Equal(t, "AppVM", line.Label)
}
