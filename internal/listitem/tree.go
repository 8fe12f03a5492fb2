package listitem

import (
	"reflect"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/vmscope/internal/search"
	"github.com/oakwood-commons/vmscope/pkg/inspect"
)

// SortOrder orders property names for display.
type SortOrder string

const (
	SortNone SortOrder = "none"
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Mode is the presentation mode.
type Mode string

const (
	// ModeTree nests child instances under their parent.
	ModeTree Mode = "tree"
	// ModeList shows every instance as a root; only properties nest.
	ModeList Mode = "list"
)

// Tree owns the state shared by all nodes of one panel: the expand-state
// map, the node memo and the search engine. It is not safe for concurrent
// use.
type Tree struct {
	search *search.Engine
	log    logr.Logger

	expanded map[string]bool
	nodes    map[string]*Item

	order SortOrder
	mode  Mode

	// version invalidates memoized children and strings. pass invalidates
	// live property reads and is advanced by every Flatten.
	version uint64
	pass    uint64

	instances []inspect.Instance
	parents   []inspect.Instance
	index     map[inspect.Instance]int
	kids      [][]int
	rootIdx   []int
	rootsVer  uint64
	rootsOK   bool

	extras    *Item
	hasExtras bool
}

// NewTree returns an empty tree in tree mode with unsorted properties.
func NewTree(engine *search.Engine, log logr.Logger) *Tree {
	if engine == nil {
		engine = search.New()
	}
	return &Tree{
		search:   engine,
		log:      log,
		expanded: make(map[string]bool),
		nodes:    make(map[string]*Item),
		order:    SortNone,
		mode:     ModeTree,
		version:  1,
	}
}

// Search returns the engine the tree matches against.
func (t *Tree) Search() *search.Engine { return t.search }

// Version returns the current tree version.
func (t *Tree) Version() uint64 { return t.version }

// Mode returns the presentation mode.
func (t *Tree) Mode() Mode { return t.mode }

// SortOrder returns the property sort order.
func (t *Tree) SortOrder() SortOrder { return t.order }

// Bump invalidates every memoized child list and search result.
func (t *Tree) Bump() {
	t.version++
	t.rootsOK = false
	t.search.Invalidate()
}

// SetSortOrder changes the property order and reports whether it changed.
func (t *Tree) SetSortOrder(o SortOrder) bool {
	switch o {
	case SortAsc, SortDesc, SortNone:
	default:
		o = SortNone
	}
	if o == t.order {
		return false
	}
	t.order = o
	t.Bump()
	return true
}

// SetMode changes the presentation mode and reports whether it changed.
func (t *Tree) SetMode(m Mode) bool {
	if m != ModeList {
		m = ModeTree
	}
	if m == t.mode {
		return false
	}
	t.mode = m
	t.Bump()
	return true
}

// SetExtras installs the extras bag. A nil bag removes the extras root.
func (t *Tree) SetExtras(extras any) {
	t.hasExtras = extras != nil
	if !t.hasExtras {
		t.extras = nil
		t.Bump()
		return
	}
	if t.extras == nil {
		t.extras = &Item{tree: t, kind: KindExtras, key: ExtrasKey, root: ExtrasKey}
		t.nodes[ExtrasKey] = t.extras
	}
	t.extras.extras = extras
	t.extras.invalidate()
	t.Bump()
}

// SetInstances installs a new snapshot and reports whether it differs from
// the previous one by identity, order or parent references.
func (t *Tree) SetInstances(list []inspect.Instance) bool {
	if t.sameSnapshot(list) {
		return false
	}
	t.instances = list
	t.parents = make([]inspect.Instance, len(list))
	t.index = make(map[inspect.Instance]int, len(list))
	for i, inst := range list {
		t.parents[i] = inspect.ParentOf(inst)
		if hashable(inst) {
			t.index[inst] = i
		}
	}
	t.kids = make([][]int, len(list))
	for i, p := range t.parents {
		if p == nil {
			continue
		}
		if pi, ok := t.indexOf(p); ok {
			t.kids[pi] = append(t.kids[pi], i)
		}
	}

	live := map[string]bool{ExtrasKey: true}
	for _, inst := range list {
		live[InstanceKey(inst)] = true
	}
	for k, it := range t.nodes {
		if !live[it.root] {
			delete(t.nodes, k)
		}
	}
	t.Bump()
	return true
}

func (t *Tree) sameSnapshot(list []inspect.Instance) bool {
	if t.instances == nil && list == nil {
		return true
	}
	if len(list) != len(t.instances) {
		return false
	}
	for i, inst := range list {
		if !inspect.Same(inst, t.instances[i]) {
			return false
		}
		p := inspect.ParentOf(inst)
		if (p == nil) != (t.parents[i] == nil) || (p != nil && !inspect.Same(p, t.parents[i])) {
			return false
		}
	}
	return true
}

// hashable reports whether inst can key the identity index. Comparable
// value types may still hold unhashable values in interface fields, so only
// pointers and channels are hashed.
func hashable(inst inspect.Instance) bool {
	if inspect.IsNil(inst) {
		return false
	}
	switch reflect.TypeOf(inst).Kind() { //nolint:exhaustive // everything else is scanned
	case reflect.Ptr, reflect.UnsafePointer, reflect.Chan:
		return true
	}
	return false
}

func (t *Tree) indexOf(inst inspect.Instance) (int, bool) {
	if inspect.IsNil(inst) {
		return 0, false
	}
	if hashable(inst) {
		i, ok := t.index[inst]
		return i, ok
	}
	for i, cand := range t.instances {
		if inspect.Same(inst, cand) {
			return i, true
		}
	}
	return 0, false
}

// rootIndices returns the snapshot indices of root instances. Instances
// whose parent is absent are roots. Members of parent cycles are reachable
// from no root; the first of them in snapshot order is promoted until every
// instance is reachable.
func (t *Tree) rootIndices() []int {
	if t.rootsOK && t.rootsVer == t.version {
		return t.rootIdx
	}
	n := len(t.instances)
	if t.mode == ModeList {
		roots := make([]int, n)
		for i := range roots {
			roots[i] = i
		}
		t.rootIdx, t.rootsVer, t.rootsOK = roots, t.version, true
		return roots
	}

	isRoot := make([]bool, n)
	reached := make([]bool, n)
	var queue []int
	for i, p := range t.parents {
		if p == nil {
			isRoot[i] = true
			continue
		}
		if _, ok := t.indexOf(p); !ok {
			isRoot[i] = true
		}
	}
	mark := func(start int) {
		queue = append(queue[:0], start)
		reached[start] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, k := range t.kids[cur] {
				if !reached[k] {
					reached[k] = true
					queue = append(queue, k)
				}
			}
		}
	}
	for i := range isRoot {
		if isRoot[i] {
			mark(i)
		}
	}
	for i := 0; i < n; i++ {
		if !reached[i] {
			isRoot[i] = true
			mark(i)
		}
	}

	var roots []int
	for i, r := range isRoot {
		if r {
			roots = append(roots, i)
		}
	}
	t.rootIdx, t.rootsVer, t.rootsOK = roots, t.version, true
	return roots
}

// Roots returns the root nodes: the extras root first when present, then
// the root instances in snapshot order.
func (t *Tree) Roots() []*Item {
	var roots []*Item
	if t.hasExtras && t.extras != nil {
		roots = append(roots, t.extras)
	}
	for _, i := range t.rootIndices() {
		roots = append(roots, t.instance(t.instances[i], nil))
	}
	return roots
}

// childInstances returns the instance nodes whose parent is p, skipping
// instances already on p's ancestor chain.
func (t *Tree) childInstances(p *Item) []*Item {
	pi, ok := t.indexOf(p.inst)
	if !ok || len(t.kids[pi]) == 0 {
		return nil
	}
	out := make([]*Item, 0, len(t.kids[pi]))
	for _, ci := range t.kids[pi] {
		child := t.instances[ci]
		if onChain(p, child) {
			continue
		}
		out = append(out, t.instance(child, p))
	}
	return out
}

func onChain(n *Item, inst inspect.Instance) bool {
	for ; n != nil; n = n.parent {
		if n.kind == KindInstance && inspect.Same(n.inst, inst) {
			return true
		}
	}
	return false
}

// instance returns the memoized node for inst, placed under parent. When
// two instances share a key the last one wins.
func (t *Tree) instance(inst inspect.Instance, parent *Item) *Item {
	key := InstanceKey(inst)
	it, ok := t.nodes[key]
	if !ok || it.kind != KindInstance {
		it = &Item{tree: t, kind: KindInstance, key: key, root: key}
		t.nodes[key] = it
	}
	if !inspect.Same(it.inst, inst) {
		it.inst = inst
		it.invalidate()
	}
	it.parent = parent
	return it
}

// property returns the memoized property node name under parent.
func (t *Tree) property(parent *Item, name string) *Item {
	key := parent.key + "-" + name
	mk := key + memoSuffix
	it, ok := t.nodes[mk]
	if !ok {
		level := 1
		if parent.kind == KindProperty {
			level = parent.level + 1
		}
		it = &Item{tree: t, kind: KindProperty, key: key, root: parent.root, property: name, level: level}
		t.nodes[mk] = it
	}
	it.parent = parent
	return it
}

// Lookup finds a node by key among the nodes built so far.
func (t *Tree) Lookup(key string) (*Item, bool) {
	if it, ok := t.nodes[key]; ok && it.key == key {
		return it, true
	}
	if it, ok := t.nodes[key+memoSuffix]; ok {
		return it, true
	}
	return nil, false
}

// Flatten returns the visible nodes in pre-order. Expanded compound
// properties are followed by their closing marker at the same depth.
func (t *Tree) Flatten() []*Item {
	t.pass++
	type frame struct {
		items   []*Item
		next    int
		closing *Item
	}
	var out []*Item
	stack := []frame{{items: t.Roots()}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next >= len(top.items) {
			if top.closing != nil {
				out = append(out, top.closing)
			}
			stack = stack[:len(stack)-1]
			continue
		}
		n := top.items[top.next]
		top.next++
		out = append(out, n)
		if n.DisplayExpanded() {
			stack = append(stack, frame{items: n.Children(), closing: n.closingMarker()})
		}
	}
	return out
}

// ExpandAll expands every instance node and the extras root, and every
// node already present in the expand-state map.
func (t *Tree) ExpandAll() {
	for k := range t.expanded {
		t.expanded[k] = true
	}
	for _, it := range t.allInstanceItems() {
		it.Expand()
	}
}

// CollapseAll collapses every known node, including instance roots that
// have not been read yet.
func (t *Tree) CollapseAll() {
	for k := range t.expanded {
		t.expanded[k] = false
	}
	for _, it := range t.allInstanceItems() {
		it.Collapse()
	}
}

// allInstanceItems walks the instance hierarchy from the roots so every
// instance node exists with its parent set.
func (t *Tree) allInstanceItems() []*Item {
	var out []*Item
	stack := t.Roots()
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, n)
		if n.kind == KindInstance && t.mode == ModeTree {
			stack = append(stack, t.childInstances(n)...)
		}
	}
	return out
}

// Refresh drops cached values for the subtree rooted at key. It reports
// whether the node was found.
func (t *Tree) Refresh(key string) bool {
	it, ok := t.Lookup(key)
	if !ok {
		return false
	}
	it.invalidate()
	t.search.Invalidate()
	return true
}

// ExpandedKeys returns a copy of the expand-state map.
func (t *Tree) ExpandedKeys() map[string]bool {
	out := make(map[string]bool, len(t.expanded))
	for k, v := range t.expanded {
		out[k] = v
	}
	return out
}
