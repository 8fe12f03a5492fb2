// Package props lists and reads the properties of arbitrary Go values using
// reflection. It is read-only and best-effort: failures surface as
// *ReflectionError values and never as panics.
package props

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oakwood-commons/vmscope/pkg/inspect"
)

// Type classifies a property value for display.
type Type string

const (
	TypeArray     Type = "array"
	TypeFunction  Type = "function"
	TypeObject    Type = "object"
	TypeInstance  Type = "instance"
	TypePrimitive Type = "primitive"
)

// LengthKey is the synthetic trailing property of arrays.
const LengthKey = "length"

// ErrNotFound is returned when a property does not exist on a value.
var ErrNotFound = errors.New("property not found")

// ReflectionError reports a failure while reading a property, including a
// panic recovered from a host accessor.
type ReflectionError struct {
	Property string
	Cause    any
}

func (e *ReflectionError) Error() string {
	return fmt.Sprintf("reading property %q: %v", e.Property, e.Cause)
}

func (e *ReflectionError) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}

var (
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
)

// boundary types end the walk; their members are never listed.
var boundary = map[reflect.Type]bool{
	reflect.TypeOf(time.Time{}):       true,
	reflect.TypeOf(sync.Mutex{}):      true,
	reflect.TypeOf(sync.RWMutex{}):    true,
	reflect.TypeOf(sync.WaitGroup{}):  true,
	reflect.TypeOf(sync.Once{}):       true,
	reflect.TypeOf(sync.Map{}):        true,
	reflect.TypeOf(bytes.Buffer{}):    true,
	reflect.TypeOf(strings.Builder{}): true,
	reflect.TypeOf(big.Int{}):         true,
	reflect.TypeOf(big.Float{}):       true,
	reflect.TypeOf(big.Rat{}):         true,
	reflect.TypeOf(reflect.Value{}):   true,
}

// denied names are never listed as properties.
var denied = map[string]bool{
	"String":      true,
	"GoString":    true,
	"Error":       true,
	"MarshalJSON": true,
	"MarshalText": true,
	"MarshalYAML": true,
	"DisplayName": true,
	"ID":          true,
	"Parent":      true,
	"Properties":  true,
	"Property":    true,
}

func isBoundary(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if boundary[t] || t.PkgPath() == "sync/atomic" {
		return true
	}
	return t.Implements(contextType) || reflect.PointerTo(t).Implements(contextType)
}

// Classify returns the display type of v.
func Classify(v any) Type {
	if v == nil {
		return TypePrimitive
	}
	switch v.(type) {
	case inspect.Instance, inspect.PropertySource:
		return TypeInstance
	case error:
		return TypePrimitive
	}
	rv := reflect.ValueOf(v)
	if isBoundary(rv.Type()) {
		return TypePrimitive
	}
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return TypePrimitive
		}
		rv = rv.Elem()
	}
	switch rv.Kind() { //nolint:exhaustive // everything else is a primitive
	case reflect.Slice, reflect.Array:
		return TypeArray
	case reflect.Func:
		return TypeFunction
	case reflect.Map:
		return TypeObject
	case reflect.Struct:
		return TypeInstance
	}
	return TypePrimitive
}

// Enumerate lists the property names of v: own names first, then promoted
// names, then accessor methods. Duplicates keep their first position. A nil
// value has no properties.
func Enumerate(v any) (names []string) {
	defer func() {
		if recover() != nil {
			names = nil
		}
	}()
	if v == nil {
		return nil
	}
	if src, ok := v.(inspect.PropertySource); ok {
		return dedupe(src.Properties())
	}
	if u, ok := v.(inspect.Unwrapper); ok {
		return Enumerate(u.Unwrap())
	}

	orig := reflect.ValueOf(v)
	if isBoundary(orig.Type()) {
		return nil
	}
	rv := orig
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() { //nolint:exhaustive // only containers have properties
	case reflect.Map:
		keys := make([]string, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			keys = append(keys, fmt.Sprint(iter.Key().Interface()))
		}
		sort.Strings(keys)
		return dedupe(keys)
	case reflect.Slice, reflect.Array:
		out := make([]string, 0, rv.Len()+1)
		for i := 0; i < rv.Len(); i++ {
			out = append(out, strconv.Itoa(i))
		}
		return append(out, LengthKey)
	case reflect.Struct:
		return structNames(orig, rv)
	}
	return nil
}

func structNames(orig, rv reflect.Value) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(name string) {
		if denied[name] || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}

	// Fields, one embedding level at a time.
	hidden := make(map[string]bool)
	level := []reflect.Value{rv}
	visited := make(map[reflect.Type]bool)
	for len(level) > 0 {
		var next []reflect.Value
		for _, sv := range level {
			st := sv.Type()
			if visited[st] {
				continue
			}
			visited[st] = true
			for i := 0; i < st.NumField(); i++ {
				f := st.Field(i)
				if f.Anonymous {
					ft := f.Type
					if isBoundary(ft) {
						for name := range methodNames(ft) {
							hidden[name] = true
						}
						continue
					}
					fv := sv.Field(i)
					for fv.Kind() == reflect.Ptr {
						if fv.IsNil() {
							break
						}
						fv = fv.Elem()
					}
					if fv.Kind() == reflect.Struct {
						next = append(next, fv)
					}
					continue
				}
				if f.IsExported() {
					add(f.Name)
				}
			}
		}
		level = next
	}

	t := orig.Type()
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if hidden[m.Name] || !isAccessor(m.Type) {
			continue
		}
		add(m.Name)
	}
	return out
}

func methodNames(t reflect.Type) map[string]bool {
	out := make(map[string]bool)
	for _, tt := range []reflect.Type{t, reflect.PointerTo(t)} {
		for i := 0; i < tt.NumMethod(); i++ {
			out[tt.Method(i).Name] = true
		}
	}
	return out
}

// isAccessor accepts methods (receiver included) of shape func() T or
// func() (T, error).
func isAccessor(mt reflect.Type) bool {
	if mt.NumIn() != 1 || mt.IsVariadic() {
		return false
	}
	switch mt.NumOut() {
	case 1:
		return true
	case 2:
		return mt.Out(1) == errorType
	}
	return false
}

func dedupe(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// Get reads property name of v. Accessor panics are recovered into a
// *ReflectionError.
func Get(v any, name string) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &ReflectionError{Property: name, Cause: r}
		}
	}()
	if v == nil {
		return nil, fmt.Errorf("property %q of nil: %w", name, ErrNotFound)
	}
	if src, ok := v.(inspect.PropertySource); ok {
		val, err := src.Property(name)
		if err != nil {
			return nil, &ReflectionError{Property: name, Cause: err}
		}
		return val, nil
	}
	if u, ok := v.(inspect.Unwrapper); ok {
		return Get(u.Unwrap(), name)
	}

	orig := reflect.ValueOf(v)
	rv := orig
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, fmt.Errorf("property %q of nil: %w", name, ErrNotFound)
		}
		rv = rv.Elem()
	}

	switch rv.Kind() { //nolint:exhaustive // only containers have properties
	case reflect.Map:
		if val, ok := mapIndex(rv, name); ok {
			return val.Interface(), nil
		}
	case reflect.Slice, reflect.Array:
		if name == LengthKey {
			return rv.Len(), nil
		}
		if i, convErr := strconv.Atoi(name); convErr == nil && i >= 0 && i < rv.Len() {
			return rv.Index(i).Interface(), nil
		}
	case reflect.Struct:
		if denied[name] {
			break
		}
		if sf, ok := rv.Type().FieldByName(name); ok && sf.IsExported() {
			fv, fErr := rv.FieldByIndexErr(sf.Index)
			if fErr != nil {
				return nil, &ReflectionError{Property: name, Cause: fErr}
			}
			if fv.CanInterface() {
				return fv.Interface(), nil
			}
		}
		if m := orig.MethodByName(name); m.IsValid() && isAccessor(methodType(orig.Type(), name)) {
			out := m.Call(nil)
			if len(out) == 2 && !out[1].IsNil() {
				return nil, &ReflectionError{Property: name, Cause: out[1].Interface()}
			}
			return out[0].Interface(), nil
		}
	}
	return nil, fmt.Errorf("property %q: %w", name, ErrNotFound)
}

func methodType(t reflect.Type, name string) reflect.Type {
	m, _ := t.MethodByName(name)
	return m.Type
}

// mapIndex looks up the entry whose key prints as name. String and integer
// keys are converted and indexed directly; other key types are scanned.
func mapIndex(rv reflect.Value, name string) (reflect.Value, bool) {
	kt := rv.Type().Key()
	var key reflect.Value
	switch kt.Kind() { //nolint:exhaustive // everything else is scanned
	case reflect.String:
		key = reflect.ValueOf(name).Convert(kt)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(name, 10, kt.Bits())
		if err != nil || strconv.FormatInt(n, 10) != name {
			return reflect.Value{}, false
		}
		key = reflect.New(kt).Elem()
		key.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(name, 10, kt.Bits())
		if err != nil || strconv.FormatUint(n, 10) != name {
			return reflect.Value{}, false
		}
		key = reflect.New(kt).Elem()
		key.SetUint(n)
	case reflect.Interface:
		if stringType.AssignableTo(kt) {
			if val := rv.MapIndex(reflect.ValueOf(name)); val.IsValid() {
				return val, true
			}
		}
	}
	if key.IsValid() {
		if implementsStringer(kt) {
			return scanMap(rv, name)
		}
		val := rv.MapIndex(key)
		return val, val.IsValid()
	}
	return scanMap(rv, name)
}

var (
	stringType   = reflect.TypeOf("")
	stringerType = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
)

// implementsStringer reports whether keys of t print through String, in
// which case the printed name may differ from the raw value.
func implementsStringer(t reflect.Type) bool {
	return t.Implements(stringerType) || reflect.PointerTo(t).Implements(stringerType)
}

func scanMap(rv reflect.Value, name string) (reflect.Value, bool) {
	iter := rv.MapRange()
	for iter.Next() {
		if fmt.Sprint(iter.Key().Interface()) == name {
			return iter.Value(), true
		}
	}
	return reflect.Value{}, false
}
