// Package inspect defines the boundary between vmscope and the host
// application's store of live view-model instances.
//
// The panel never constructs or frees instances. It only observes
// point-in-time snapshots returned by a Store and, optionally, creation
// notifications from a Notifier.
package inspect

import (
	"reflect"
	"strings"
)

// Instance is a live stateful object tracked by the host store.
type Instance interface {
	// DisplayName is the type-derived name shown in the panel.
	DisplayName() string
	// ID is the host-assigned identity. It may be empty.
	ID() string
	// Parent is a weak back-reference to the owning instance, or nil.
	Parent() Instance
}

// PropertySource lets an instance (or any value) publish its own property
// list instead of being reflected. Implementations must be safe to call
// while the host mutates the underlying state.
type PropertySource interface {
	Properties() []string
	Property(name string) (any, error)
}

// Unwrapper is implemented by adapters that wrap a plain Go value.
type Unwrapper interface {
	Unwrap() any
}

// Store returns point-in-time snapshots of the tracked instances, keyed by
// an opaque host id.
type Store interface {
	Instances() map[string]Instance
}

// Notifier is implemented by stores that announce newly registered instances.
type Notifier interface {
	Subscribe(fn func(Instance)) (unsubscribe func())
}

// Ordered is implemented by stores that can report a stable snapshot order.
// Keys missing from the order are appended in lexical order.
type Ordered interface {
	Order() []string
}

// IsNil reports whether inst is nil, including typed nil pointers stored in
// a non-nil interface.
func IsNil(inst Instance) bool {
	if inst == nil {
		return true
	}
	rv := reflect.ValueOf(inst)
	switch rv.Kind() { //nolint:exhaustive // only nillable kinds matter
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// Same reports whether a and b are the same instance. Only identity is
// compared; non-comparable dynamic types are never equal.
func Same(a, b Instance) (same bool) {
	if IsNil(a) || IsNil(b) {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

// ParentOf returns the parent of inst, treating typed nils as absent.
func ParentOf(inst Instance) Instance {
	if IsNil(inst) {
		return nil
	}
	p := inst.Parent()
	if IsNil(p) {
		return nil
	}
	return p
}

// TypeName returns the bare type name of v, dereferencing pointers.
func TypeName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	s := t.String()
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[i+1:]
	}
	return s
}
