package inspect

// Value adapts an arbitrary Go value into an Instance. Its properties are
// reflected from the wrapped value.
type Value struct {
	v      any
	id     string
	name   string
	parent Instance
}

// Wrap returns an Instance for v. The display name defaults to the bare
// type name of v.
func Wrap(v any, id string, parent Instance) *Value {
	return &Value{v: v, id: id, name: TypeName(v), parent: parent}
}

// WithName overrides the display name.
func (w *Value) WithName(name string) *Value {
	w.name = name
	return w
}

func (w *Value) DisplayName() string { return w.name }
func (w *Value) ID() string          { return w.id }

func (w *Value) Parent() Instance {
	if w.parent == nil {
		return nil
	}
	return w.parent
}

// Unwrap returns the wrapped value.
func (w *Value) Unwrap() any { return w.v }
