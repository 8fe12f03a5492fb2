// Package demo provides a small live view-model graph for trying the panel
// without a host application.
package demo

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oakwood-commons/vmscope/pkg/inspect"
)

// MaxToasts bounds how many toast instances Simulate keeps registered.
const MaxToasts = 3

// HistoryLen bounds the counter history.
const HistoryLen = 8

// VM is a goroutine-safe view model with ordered properties.
type VM struct {
	name   string
	id     string
	parent inspect.Instance

	mu     sync.RWMutex
	order  []string
	values map[string]any
}

func newVM(name, id string, parent inspect.Instance) *VM {
	return &VM{name: name, id: id, parent: parent, values: make(map[string]any)}
}

// DisplayName implements inspect.Instance.
func (v *VM) DisplayName() string { return v.name }

// ID implements inspect.Instance.
func (v *VM) ID() string { return v.id }

// Parent implements inspect.Instance.
func (v *VM) Parent() inspect.Instance { return v.parent }

// Properties implements inspect.PropertySource.
func (v *VM) Properties() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]string(nil), v.order...)
}

// Property implements inspect.PropertySource.
func (v *VM) Property(name string) (any, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.values[name]
	if !ok {
		return nil, fmt.Errorf("%s has no property %q", v.name, name)
	}
	if fn, ok := val.(func() (any, error)); ok {
		return fn()
	}
	return val, nil
}

// Set stores a property, appending new names to the end of the order.
func (v *VM) Set(name string, val any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.values[name]; !ok {
		v.order = append(v.order, name)
	}
	v.values[name] = val
}

// Get returns a property without running getters.
func (v *VM) Get(name string) any {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.values[name]
}

// Update applies fn to the property under the write lock.
func (v *VM) Update(name string, fn func(any) any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.values[name]; !ok {
		v.order = append(v.order, name)
	}
	v.values[name] = fn(v.values[name])
}

// Graph holds the instances created by NewStore.
type Graph struct {
	Store   *inspect.MemoryStore
	App     *VM
	Page    *VM
	Counter *VM

	mu     sync.Mutex
	toasts []string
	ticks  int
}

// NewStore builds the demo graph: an AppVM owning a PageVM owning a
// CounterVM, plus one ToastVM that has no parent.
func NewStore() *Graph {
	store := inspect.NewMemoryStore()

	app := newVM("AppVM", "1", nil)
	app.Set("title", "vmscope demo")
	app.Set("theme", "dark")
	app.Set("user", map[string]any{
		"name":  "Ada",
		"roles": []any{"admin", "editor"},
		"prefs": map[string]any{"compact": true, "locale": "en-GB"},
	})
	app.Set("startedAt", time.Now().UTC().Truncate(time.Second))
	app.Set("onNavigate", func(route string) error { return nil })

	page := newVM("PageVM", "2", app)
	page.Set("route", "/dashboard")
	page.Set("loading", false)
	page.Set("visits", 0)
	page.Set("tags", []string{"home", "metrics"})
	page.Set("token", func() (any, error) { return nil, fmt.Errorf("token is write-only") })

	counter := newVM("CounterVM", "3", page)
	counter.Set("count", 0)
	counter.Set("step", 1)
	counter.Set("history", []int{})

	store.Register("app", app)
	store.Register("page", page)
	store.Register("counter", counter)

	g := &Graph{Store: store, App: app, Page: page, Counter: counter}
	g.addToast("Welcome back")
	return g
}

// Tick advances the simulation by one step.
func (g *Graph) Tick() {
	g.mu.Lock()
	g.ticks++
	tick := g.ticks
	g.mu.Unlock()

	step, _ := g.Counter.Get("step").(int)
	var count int
	g.Counter.Update("count", func(v any) any {
		count = v.(int) + step
		return count
	})
	g.Counter.Update("history", func(v any) any {
		h := append(append([]int(nil), v.([]int)...), count)
		if len(h) > HistoryLen {
			h = h[len(h)-HistoryLen:]
		}
		return h
	})
	g.Page.Update("loading", func(v any) any { return !v.(bool) })
	g.Page.Update("visits", func(v any) any { return v.(int) + 1 })

	if tick%5 == 0 {
		g.addToast("Count reached " + strconv.Itoa(count))
	}
}

func (g *Graph) addToast(message string) {
	toast := newVM("ToastVM", uuid.NewString()[:8], nil)
	toast.Set("message", message)
	toast.Set("level", "info")
	toast.Set("createdAt", time.Now().UTC().Truncate(time.Second))

	key := "toast-" + toast.ID()
	g.mu.Lock()
	g.toasts = append(g.toasts, key)
	var drop []string
	if len(g.toasts) > MaxToasts {
		drop = append(drop, g.toasts[:len(g.toasts)-MaxToasts]...)
		g.toasts = g.toasts[len(g.toasts)-MaxToasts:]
	}
	g.mu.Unlock()

	g.Store.Register(key, toast)
	for _, k := range drop {
		g.Store.Unregister(k)
	}
}

// Toasts returns the store keys of the registered toasts, oldest first.
func (g *Graph) Toasts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.toasts...)
}

// Simulate ticks the graph every interval until ctx is done. onTick, when
// set, runs after every tick.
func Simulate(ctx context.Context, g *Graph, interval time.Duration, onTick func()) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			g.Tick()
			if onTick != nil {
				onTick()
			}
		}
	}
}
