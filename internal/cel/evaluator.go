// Package cel evaluates console expressions over values saved from the
// inspector (temp variables).
package cel

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	celext "github.com/google/cel-go/ext"

	"github.com/oakwood-commons/vmscope/internal/props"
	"github.com/oakwood-commons/vmscope/pkg/inspect"
)

// ScopeVar is the variable holding every temp value by name.
const ScopeVar = "_"

// DefaultDepth bounds how deep live objects are copied into plain values.
const DefaultDepth = 4

// Evaluator compiles and evaluates CEL expressions.
type Evaluator struct {
	env *cel.Env
}

// NewEvaluator creates a new CEL evaluator with standard library functions.
func NewEvaluator() (*Evaluator, error) {
	env, err := newStandardCELEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Evaluator{env: env}, nil
}

// GetEnvironment returns the CEL environment for introspection
func (e *Evaluator) GetEnvironment() *cel.Env {
	return e.env
}

// newStandardCELEnv creates a standard CEL environment with common extensions.
// Additional options can be provided to extend the environment.
func newStandardCELEnv(opts ...cel.EnvOption) (*cel.Env, error) {
	allOpts := make([]cel.EnvOption, 0, 5+len(opts))
	allOpts = append(allOpts,
		cel.Variable(ScopeVar, cel.DynType),
		celext.Strings(),
		celext.Encoders(),
		celext.Lists(),
		celext.Math(),
	)
	allOpts = append(allOpts, opts...)
	return cel.NewEnv(allOpts...)
}

// Evaluate evaluates expr with each entry of vars bound as a variable of the
// same name. The whole map is also bound to "_", so "_.temp1" and "temp1"
// are equivalent. Values are copied into plain maps and lists first.
func (e *Evaluator) Evaluate(expr string, vars map[string]any) (any, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("empty expression")
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		if name == ScopeVar || !isIdent(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	env := e.env
	if len(names) > 0 {
		decls := make([]cel.EnvOption, len(names))
		for i, name := range names {
			decls[i] = cel.Variable(name, cel.DynType)
		}
		extended, err := e.env.Extend(decls...)
		if err != nil {
			return nil, fmt.Errorf("declaring variables: %w", err)
		}
		env = extended
	}

	activation := make(map[string]any, len(names)+1)
	scope := make(map[string]any, len(vars))
	for name, v := range vars {
		plain := Plain(v, DefaultDepth)
		scope[name] = plain
		activation[name] = plain
	}
	activation[ScopeVar] = scope

	return evaluateWithEnv(env, expr, activation)
}

func evaluateWithEnv(env *cel.Env, expr string, activation map[string]any) (any, error) {
	// Compile the expression (parse + type check)
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compilation error: %w", issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}

	result, _, err := prg.Eval(activation)
	if err != nil {
		return nil, fmt.Errorf("eval error: %w", err)
	}

	converted := ToGo(result)

	// Final fallback: if we still have a ref.Val after conversion, use Value()
	if refVal, ok := converted.(ref.Val); ok {
		converted = refVal.Value()
	}
	return converted, nil
}

// Plain copies v into values CEL understands natively: maps keyed by
// string, []any, and scalars. Instances and structs are walked through
// their enumerated properties. Anything past depth, and any value already
// on the current path, becomes its string form.
func Plain(v any, depth int) any {
	return plain(v, depth, map[uintptr]bool{})
}

func plain(v any, depth int, onPath map[uintptr]bool) any {
	switch t := v.(type) {
	case nil:
		return nil
	case bool, string, int64, uint64, float64, []byte, time.Time, time.Duration:
		return t
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return uint64(t)
	case uint8:
		return uint64(t)
	case uint16:
		return uint64(t)
	case uint32:
		return uint64(t)
	case float32:
		return float64(t)
	case error:
		return t.Error()
	}

	kind := props.Classify(v)
	switch {
	case kind == props.TypePrimitive:
		return fmt.Sprint(v)
	case kind == props.TypeFunction, depth <= 0:
		return inspect.TypeName(v)
	}

	if ptr, ok := pointerOf(v); ok {
		if onPath[ptr] {
			return inspect.TypeName(v)
		}
		onPath[ptr] = true
		defer delete(onPath, ptr)
	}

	names := props.Enumerate(v)
	if kind == props.TypeArray {
		out := make([]any, 0, len(names))
		for _, name := range names {
			if name == props.LengthKey {
				continue
			}
			item, err := props.Get(v, name)
			if err != nil {
				out = append(out, err.Error())
				continue
			}
			out = append(out, plain(item, depth-1, onPath))
		}
		return out
	}

	out := make(map[string]any, len(names))
	for _, name := range names {
		item, err := props.Get(v, name)
		if err != nil {
			out[name] = err.Error()
			continue
		}
		out[name] = plain(item, depth-1, onPath)
	}
	return out
}

func pointerOf(v any) (uintptr, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map:
		if rv.IsNil() {
			return 0, false
		}
		return rv.Pointer(), true
	case reflect.Slice:
		if rv.Len() == 0 {
			return 0, false
		}
		return rv.Pointer(), true
	}
	return 0, false
}

func isIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// ToGo converts CEL types to Go native types recursively.
// Handles both CEL primitive types and collection types (List, Map).
func ToGo(val ref.Val) any {
	if val == nil {
		return nil
	}

	switch v := val.(type) {
	case types.Bool:
		return bool(v)
	case types.Int:
		return int64(v)
	case types.Uint:
		return uint64(v)
	case types.Double:
		return float64(v)
	case types.String:
		return string(v)
	case types.Bytes:
		return []byte(v)
	}

	innerVal := val.Value()

	// If Value() returns a slice of ref.Val, recursively convert elements
	if refSlice, ok := innerVal.([]ref.Val); ok {
		result := make([]any, len(refSlice))
		for i, elem := range refSlice {
			result[i] = ToGo(elem)
		}
		return result
	}

	if slice, ok := innerVal.([]any); ok {
		result := make([]any, len(slice))
		for i, elem := range slice {
			result[i] = convertValue(elem)
		}
		return result
	}

	if m, ok := innerVal.(map[string]any); ok {
		return convertMapValues(m)
	}

	// CEL map literal: convert both keys and values
	if m, ok := innerVal.(map[ref.Val]ref.Val); ok {
		result := make(map[string]any, len(m))
		for k, v := range m {
			result[fmt.Sprintf("%v", k.Value())] = ToGo(v)
		}
		return result
	}

	return innerVal
}

func convertValue(v any) any {
	switch t := v.(type) {
	case ref.Val:
		return ToGo(t)
	case map[string]any:
		return convertMapValues(t)
	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			out[i] = convertValue(elem)
		}
		return out
	}
	return v
}

// convertMapValues recursively converts map values from CEL types
func convertMapValues(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = convertValue(v)
	}
	return result
}

// Functions returns the names of the functions and macros available to
// console expressions, sorted.
func (e *Evaluator) Functions() []string {
	seen := make(map[string]bool)
	for _, fn := range e.env.Functions() {
		if isOperator(fn.Name()) {
			continue
		}
		seen[fn.Name()] = true
	}
	for _, m := range e.env.Macros() {
		if isOperator(m.Function()) {
			continue
		}
		seen[m.Function()] = true
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// isOperator filters out internal operator-style declarations that shouldn't be shown in UI.
func isOperator(name string) bool {
	if strings.HasPrefix(name, "@") {
		return true
	}
	if strings.HasPrefix(name, "_") && strings.HasSuffix(name, "_") {
		return true
	}
	switch name {
	case "!_", "-_", "_[_]", "_?_:_":
		return true
	}
	return false
}
