package limiter

import (
	"fmt"
)

// Config holds the windowing parameters applied to the flattened rows.
type Config struct {
	Limit  int // Show only this many rows (0 = unlimited)
	Offset int // Skip the first N rows (0 = no skip)
	Tail   int // Show only the last N rows (0 = disabled); mutually exclusive with Limit
}

// Validate checks for conflicting flag combinations and returns an error if invalid.
// Rules:
// - Limit and Tail are mutually exclusive
// - If Tail is set, Offset is ignored
// - All numeric values must be non-negative
func (c Config) Validate() error {
	if c.Limit < 0 {
		return fmt.Errorf("--limit must be non-negative, got %d", c.Limit)
	}
	if c.Offset < 0 {
		return fmt.Errorf("--offset must be non-negative, got %d", c.Offset)
	}
	if c.Tail < 0 {
		return fmt.Errorf("--tail must be non-negative, got %d", c.Tail)
	}

	// Check for mutually exclusive flags
	if c.Limit > 0 && c.Tail > 0 {
		return fmt.Errorf("--limit and --tail are mutually exclusive")
	}

	return nil
}

// IsActive returns true if any limiting is configured.
func (c Config) IsActive() bool {
	return c.Limit > 0 || c.Offset > 0 || c.Tail > 0
}

// Bounds returns the half-open window [start, end) for a sequence of the
// given length.
func (c Config) Bounds(length int) (start, end int) {
	if length <= 0 {
		return 0, 0
	}
	// Handle --tail (show last N rows)
	if c.Tail > 0 {
		start = length - c.Tail
		if start < 0 {
			start = 0
		}
		return start, length
	}

	// Handle --offset and --limit
	start = c.Offset
	if start < 0 {
		start = 0
	}
	if start > length {
		start = length
	}
	end = length
	if c.Limit > 0 && start+c.Limit < length {
		end = start + c.Limit
	}
	return start, end
}

// Apply returns the window of items selected by c. The result shares the
// backing array of items.
func Apply[T any](c Config, items []T) []T {
	if !c.IsActive() {
		return items
	}
	start, end := c.Bounds(len(items))
	return items[start:end]
}

// Around returns a window of at most size rows that contains index, keeping
// index centered where possible. It backs the virtualized list: only rows
// inside the window are rendered.
func Around(index, size, length int) Config {
	if size <= 0 || length <= size {
		return Config{}
	}
	if index < 0 {
		index = 0
	}
	if index >= length {
		index = length - 1
	}
	start := index - size/2
	if start < 0 {
		start = 0
	}
	if start+size > length {
		start = length - size
	}
	return Config{Offset: start, Limit: size}
}
