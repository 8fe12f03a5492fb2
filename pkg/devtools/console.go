package devtools

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/oakwood-commons/vmscope/internal/cel"
	"github.com/oakwood-commons/vmscope/internal/listitem"
)

// TempPrefix prefixes the names of saved temp variables.
const TempPrefix = "temp"

// console holds values saved from nodes and evaluates expressions over them.
type console struct {
	temps map[string]any
	eval  *cel.Evaluator
}

func newConsole() *console {
	return &console{temps: make(map[string]any)}
}

// nextName returns the first free tempN name, starting at temp1.
func (c *console) nextName() string {
	for n := 1; ; n++ {
		name := TempPrefix + strconv.Itoa(n)
		if _, taken := c.temps[name]; !taken {
			return name
		}
	}
}

func (c *console) evaluator() (*cel.Evaluator, error) {
	if c.eval != nil {
		return c.eval, nil
	}
	eval, err := cel.NewEvaluator()
	if err != nil {
		return nil, err
	}
	c.eval = eval
	return eval, nil
}

// SaveTemp stores the current value of the node under a temp variable and
// returns its name. A node keeps its name across saves, so saving again
// refreshes the value.
func (p *Panel) SaveTemp(key string) (string, bool) {
	p.mu.Lock()
	it, ok := p.lookupLocked(key)
	if !ok || it.Kind() == listitem.KindClosing {
		p.mu.Unlock()
		return "", false
	}
	name := it.TempName()
	if name == "" {
		name = p.console.nextName()
		it.SetTempName(name)
	}
	p.console.temps[name] = it.Data()
	p.mu.Unlock()

	p.log.V(1).Info("saved temp variable", "key", key, "name", name)
	p.Notify("Saved into " + name)
	return name, true
}

// Temps returns the saved temp variable names in numeric order.
func (p *Panel) Temps() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.console.temps))
	for name := range p.console.temps {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, _ := strconv.Atoi(strings.TrimPrefix(names[i], TempPrefix))
		b, _ := strconv.Atoi(strings.TrimPrefix(names[j], TempPrefix))
		return a < b
	})
	return names
}

// Temp returns a saved value.
func (p *Panel) Temp(name string) (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.console.temps[name]
	return v, ok
}

// Evaluate runs a CEL expression with every temp variable in scope, for
// example "temp1.items.size()".
func (p *Panel) Evaluate(expr string) (any, error) {
	p.mu.Lock()
	eval, err := p.console.evaluator()
	if err != nil {
		p.mu.Unlock()
		return nil, fmt.Errorf("console unavailable: %w", err)
	}
	vars := make(map[string]any, len(p.console.temps))
	for k, v := range p.console.temps {
		vars[k] = v
	}
	p.mu.Unlock()

	// Live values are read outside the lock; they belong to the host.
	return eval.Evaluate(expr, vars)
}

// ConsoleFunctions lists the functions available to Evaluate.
func (p *Panel) ConsoleFunctions() []string {
	p.mu.Lock()
	eval, err := p.console.evaluator()
	p.mu.Unlock()
	if err != nil {
		return nil
	}
	return eval.Functions()
}

// Copy writes the stringified value of a property node to the clipboard
// and reports whether it was written. Failures are logged, never returned.
func (p *Panel) Copy(key string) bool {
	p.mu.Lock()
	it, ok := p.lookupLocked(key)
	if !ok || !it.Copiable() {
		p.mu.Unlock()
		return false
	}
	text := it.Stringified()
	p.mu.Unlock()

	if err := p.clipboard(text); err != nil {
		p.log.V(1).Info("clipboard write failed", "key", key, "error", err.Error())
		return false
	}
	p.Notify("Copied " + it.Property())
	return true
}
