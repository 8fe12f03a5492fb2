// Package listitem implements the nodes of the projected view-model tree and
// flattens the expanded part of it into renderable rows.
package listitem

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oakwood-commons/vmscope/internal/formatter"
	"github.com/oakwood-commons/vmscope/internal/props"
	"github.com/oakwood-commons/vmscope/internal/search"
	"github.com/oakwood-commons/vmscope/pkg/inspect"
)

// Kind tags the variant of an Item.
type Kind int

const (
	KindInstance Kind = iota
	KindProperty
	KindClosing
	KindExtras
)

func (k Kind) String() string {
	switch k {
	case KindInstance:
		return "instance"
	case KindProperty:
		return "property"
	case KindClosing:
		return "closing"
	case KindExtras:
		return "extras"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

const (
	// ExtrasKey is the key of the extras root.
	ExtrasKey = "extra$$$-Extras-"
	// ExtrasName is the display name of the extras root.
	ExtrasName = "Extras"

	expandSuffix  = "/expand-key"
	closingSuffix = "/closing-tag"
	memoSuffix    = "/list-item"
)

// InstanceKey returns the key of the node for inst.
func InstanceKey(inst inspect.Instance) string {
	return inst.DisplayName() + "-" + inst.ID()
}

// ExpandKey returns the expand-state key for a node key.
func ExpandKey(key string) string { return key + expandSuffix }

// Item is one node of the projected tree.
type Item struct {
	tree *Tree
	kind Kind
	key  string

	parent *Item
	// root is the key of the instance or extras root this node hangs under.
	root string

	inst     inspect.Instance
	extras   any
	property string
	level    int
	opening  *Item

	children    []*Item
	propNames   []string
	childrenVer uint64
	childrenOK  bool

	data    any
	dataErr error
	dataVer uint64
	dataOK  bool

	str       string
	strVer    uint64
	strPass   uint64
	strOK     bool
	strFailed bool

	closing *Item
	tempVar string
}

// Kind returns the variant.
func (it *Item) Kind() Kind { return it.kind }

// Key returns the stable unique key.
func (it *Item) Key() string { return it.key }

// ExpandKey returns the key used in the expand-state map.
func (it *Item) ExpandKey() string { return ExpandKey(it.key) }

// Parent returns the parent node, nil for roots.
func (it *Item) Parent() *Item { return it.parent }

// Property returns the property name of a property node.
func (it *Item) Property() string { return it.property }

// Instance returns the wrapped instance of an instance node.
func (it *Item) Instance() inspect.Instance { return it.inst }

// Name is the label shown for the node.
func (it *Item) Name() string {
	switch it.kind {
	case KindInstance:
		return it.inst.DisplayName()
	case KindProperty:
		return it.property
	case KindExtras:
		return ExtrasName
	case KindClosing:
		return it.closingContent()
	}
	return ""
}

// Data returns the value shown by the node. Property values are read live
// once per tree pass.
func (it *Item) Data() any {
	switch it.kind {
	case KindInstance:
		return it.inst
	case KindExtras:
		return it.extras
	case KindProperty:
		it.readData()
		return it.data
	}
	return nil
}

// Err returns the failure of the last property read, if any.
func (it *Item) Err() error {
	if it.kind != KindProperty {
		return nil
	}
	it.readData()
	return it.dataErr
}

func (it *Item) readData() {
	if it.dataOK && it.dataVer == it.tree.pass {
		return
	}
	it.data, it.dataErr = props.Get(it.parent.Data(), it.property)
	if it.dataErr != nil {
		it.tree.log.V(1).Info("property read failed", "key", it.key, "error", it.dataErr.Error())
	}
	it.dataVer = it.tree.pass
	it.dataOK = true
}

// Type classifies the node data. Instance and extras roots are instances.
func (it *Item) Type() props.Type {
	switch it.kind {
	case KindInstance, KindExtras:
		return props.TypeInstance
	case KindProperty:
		return props.Classify(it.Data())
	}
	return props.TypePrimitive
}

// Depth is the indentation level of the node.
func (it *Item) Depth() int {
	switch it.kind {
	case KindInstance:
		if it.parent != nil && it.tree.mode == ModeTree {
			return it.parent.Depth() + 1
		}
		return 0
	case KindProperty:
		return it.parent.Depth() + 1
	case KindClosing:
		return it.opening.Depth()
	}
	return 0
}

// Children returns the memoized children. Instance children are the
// properties followed by the child instances; property children depend on
// the value type.
func (it *Item) Children() []*Item {
	if it.childrenOK && it.childrenVer == it.tree.version {
		return it.children
	}
	var children []*Item
	switch it.kind {
	case KindInstance:
		it.propNames = it.tree.sortNames(props.Enumerate(it.inst))
		children = it.propertyItems(it.propNames)
		if it.tree.mode == ModeTree {
			children = append(children, it.tree.childInstances(it)...)
		}
	case KindExtras:
		it.propNames = it.tree.sortNames(props.Enumerate(it.extras))
		children = it.propertyItems(it.propNames)
	case KindProperty:
		switch it.Type() {
		case props.TypeArray, props.TypeObject, props.TypeInstance:
			names := props.Enumerate(it.Data())
			if it.Type() != props.TypeArray {
				names = it.tree.sortNames(names)
			}
			children = it.propertyItems(names)
		}
	}
	it.children = children
	it.childrenVer = it.tree.version
	it.childrenOK = true
	return children
}

// PropertyNames returns the enumerated property names of an instance or
// extras node.
func (it *Item) PropertyNames() []string {
	it.Children()
	return it.propNames
}

func (it *Item) propertyItems(names []string) []*Item {
	if len(names) == 0 {
		return nil
	}
	out := make([]*Item, 0, len(names))
	for _, name := range names {
		out = append(out, it.tree.property(it, name))
	}
	return out
}

// Expandable reports whether the node has children.
func (it *Item) Expandable() bool {
	if it.kind == KindClosing {
		return false
	}
	return len(it.Children()) > 0
}

// Expanded reports the stored expand state. Instance roots in tree mode and
// the extras root default to expanded on first read.
func (it *Item) Expanded() bool {
	if it.kind == KindClosing {
		return false
	}
	k := it.ExpandKey()
	v, ok := it.tree.expanded[k]
	if ok {
		return v
	}
	if it.kind == KindExtras || (it.kind == KindInstance && it.tree.mode == ModeTree) {
		v = it.Expandable()
		if v {
			it.tree.expanded[k] = true
		}
		return v
	}
	return false
}

// DisplayExpanded is the state used for rendering. While a search is active
// instance and extras nodes are revealed, and so are fitted properties that
// still have a path segment to match below them. The stored state is kept.
func (it *Item) DisplayExpanded() bool {
	if !it.Expandable() {
		return false
	}
	if it.Expanded() {
		return true
	}
	eng := it.tree.search
	if !eng.Active() {
		return false
	}
	switch it.kind {
	case KindInstance, KindExtras:
		return true
	case KindProperty:
		if !it.Fitted() {
			return false
		}
		owner := it.owner()
		return eng.Deeper(owner.match(), it.level)
	}
	return false
}

// Expand marks the node expanded. It is a no-op for leaves.
func (it *Item) Expand() {
	if it.Expandable() {
		it.tree.expanded[it.ExpandKey()] = true
	}
}

// Collapse marks the node collapsed.
func (it *Item) Collapse() {
	if it.kind == KindClosing {
		return
	}
	it.tree.expanded[it.ExpandKey()] = false
}

// Toggle flips the stored expand state.
func (it *Item) Toggle() {
	if it.Expanded() {
		it.Collapse()
	} else {
		it.Expand()
	}
}

// owner returns the nearest instance or extras ancestor (or the node itself).
func (it *Item) owner() *Item {
	n := it
	for n != nil && n.kind != KindInstance && n.kind != KindExtras {
		n = n.parent
	}
	return n
}

func (it *Item) chain() []string {
	var keys []string
	for n := it.owner(); n != nil; n = n.parent {
		if n.kind == KindInstance || n.kind == KindExtras {
			keys = append(keys, n.key)
		}
	}
	return keys
}

func (it *Item) searchData() search.Data {
	switch it.kind {
	case KindInstance:
		return search.NewData(it.inst.DisplayName(), it.inst.ID())
	case KindExtras:
		return search.NewData(strings.ToLower(ExtrasName), "")
	}
	return search.Data{}
}

// Match evaluates an instance or extras node against the current query.
func (it *Item) match() search.Match {
	return it.tree.search.MatchNode(it.key, it.searchData(), it.PropertyNames())
}

// Match exposes the search result of an instance or extras node.
func (it *Item) Match() search.Match {
	switch it.kind {
	case KindInstance, KindExtras:
		return it.match()
	}
	return search.Match{}
}

// Fitted reports whether the node satisfies the current search. Everything
// fits while the search is inactive.
func (it *Item) Fitted() bool {
	eng := it.tree.search
	if !eng.Active() {
		return true
	}
	switch it.kind {
	case KindInstance, KindExtras:
		m := it.match()
		return m.FittedByName || m.FittedByID
	case KindProperty:
		if it.level > 1 && !it.parent.Fitted() {
			return false
		}
		owner := it.owner()
		return eng.PropertyFitted(owner.match(), it.level, it.property, it.chain())
	}
	return false
}

// MatchedProperties returns the direct properties matched by the search.
func (it *Item) MatchedProperties() []string {
	if !it.tree.search.Active() {
		return nil
	}
	switch it.kind {
	case KindInstance, KindExtras:
		return it.match().FittedProperties
	}
	return nil
}

// Stringified renders the node value. Objects and arrays become indented
// JSON; after the first failure the plain form is used from then on. A
// property string follows the data read in the current pass.
func (it *Item) Stringified() string {
	if it.kind == KindProperty {
		it.readData()
	}
	if it.strOK && it.strVer == it.tree.version && (it.kind != KindProperty || it.strPass == it.dataVer) {
		return it.str
	}
	var s string
	switch it.kind {
	case KindInstance:
		s = it.inst.DisplayName()
	case KindExtras:
		s = ExtrasName
	case KindClosing:
		s = it.closingContent()
	case KindProperty:
		if it.Err() != nil {
			s = fmt.Sprintf("<%v>", it.Err())
			break
		}
		t := it.Type()
		if !it.strFailed {
			out, err := formatter.Stringify(it.Data(), t)
			if err == nil {
				s = out
				break
			}
			it.strFailed = true
			it.tree.log.V(1).Info("stringify failed, using plain form", "key", it.key, "error", err.Error())
		}
		s = formatter.Plain(it.Data())
	}
	it.str = s
	it.strVer = it.tree.version
	it.strPass = it.dataVer
	it.strOK = true
	return s
}

// Copiable reports whether the node value can be copied as text.
func (it *Item) Copiable() bool {
	if it.kind != KindProperty {
		return false
	}
	if !it.strOK {
		it.Stringified()
	}
	return it.Type() != props.TypeInstance && !it.strFailed && it.Err() == nil
}

// ExtraContent is the trailing separator of collapsed nodes inside an
// expanded container.
func (it *Item) ExtraContent() string {
	if it.kind != KindProperty || it.DisplayExpanded() {
		return ""
	}
	p := it.parent
	if !p.DisplayExpanded() {
		return ""
	}
	if p.kind == KindInstance || p.kind == KindExtras {
		return ","
	}
	switch p.Type() { //nolint:exhaustive // only containers take separators
	case props.TypeArray, props.TypeInstance, props.TypeObject:
		return ","
	}
	return ""
}

// TempName returns the temp variable name assigned to the node, if any.
func (it *Item) TempName() string { return it.tempVar }

// SetTempName records the temp variable name assigned to the node.
func (it *Item) SetTempName(name string) { it.tempVar = name }

func (it *Item) closingContent() string {
	if it.opening == nil {
		return ""
	}
	if it.opening.Type() == props.TypeArray {
		return "]"
	}
	return "}"
}

// closingMarker returns the memoized closing marker for an expanded
// compound property, or nil.
func (it *Item) closingMarker() *Item {
	if it.kind != KindProperty {
		return nil
	}
	switch it.Type() { //nolint:exhaustive // only containers get a marker
	case props.TypeArray, props.TypeObject, props.TypeInstance:
	default:
		return nil
	}
	if it.closing == nil {
		it.closing = &Item{
			tree:    it.tree,
			kind:    KindClosing,
			key:     it.key + closingSuffix,
			parent:  it,
			root:    it.root,
			opening: it,
		}
	}
	return it.closing
}

// invalidate drops the cached values of the node and its known subtree.
func (it *Item) invalidate() {
	stack := []*Item{it}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n.childrenOK = false
		n.dataOK = false
		n.strOK = false
		stack = append(stack, n.children...)
	}
}

// sortNames orders property names for display. Arrays are never re-sorted.
func (t *Tree) sortNames(names []string) []string {
	switch t.order {
	case SortAsc:
		sort.Strings(names)
	case SortDesc:
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
	}
	return names
}
