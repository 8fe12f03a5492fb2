package devtools

import (
	"time"

	"github.com/atotto/clipboard"
	"github.com/go-logr/logr"

	"github.com/oakwood-commons/vmscope/internal/config"
)

// Option configures a Panel.
type Option func(*Panel)

// WithExtras shows v under the "Extras" root.
func WithExtras(v any) Option {
	return func(p *Panel) {
		p.extras = v
	}
}

// WithLogger sets the logger. Debug traces are logged at V(1).
func WithLogger(log logr.Logger) Option {
	return func(p *Panel) {
		p.log = log
	}
}

// WithSettings sets the initial panel settings.
func WithSettings(s config.Settings) Option {
	return func(p *Panel) {
		p.settings = s
	}
}

// WithSearchDebounce overrides the delay between search input and query
// application. Zero applies input immediately.
func WithSearchDebounce(d time.Duration) Option {
	return func(p *Panel) {
		p.searchDelay = &d
	}
}

// WithAutoScrollDelay overrides the delay between a query change and the
// autoscroll callback.
func WithAutoScrollDelay(d time.Duration) Option {
	return func(p *Panel) {
		p.scrollDelay = &d
	}
}

// WithNotificationTTL overrides how long notifications stay visible.
func WithNotificationTTL(d time.Duration) Option {
	return func(p *Panel) {
		p.noteTTL = &d
	}
}

// WithOnChange registers a callback run after any change that affects the
// visible rows. It runs outside the panel lock, possibly on a timer goroutine.
func WithOnChange(fn func()) Option {
	return func(p *Panel) {
		p.onChange = fn
	}
}

// WithOnAutoScroll registers the callback receiving the row index to scroll
// to once a query settles: 0 for an inactive query, -1 when nothing fits.
func WithOnAutoScroll(fn func(index int)) Option {
	return func(p *Panel) {
		p.onAutoScroll = fn
	}
}

// WithOnSettingsChange registers the sink for changed settings.
func WithOnSettingsChange(fn func(config.Settings)) Option {
	return func(p *Panel) {
		p.onSettings = fn
	}
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(p *Panel) {
		p.clipboard = write
	}
}

func defaultClipboard(text string) error {
	return clipboard.WriteAll(text)
}
