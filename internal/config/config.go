// Package config reads and writes the panel settings file.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var embeddedDefaults []byte

var (
	defaultsOnce sync.Once
	defaults     Settings
	defaultsErr  error
)

// Panel positions.
const (
	PositionTopLeft     = "top-left"
	PositionTopRight    = "top-right"
	PositionBottomLeft  = "bottom-left"
	PositionBottomRight = "bottom-right"
)

// Settings are the panel settings persisted between runs.
type Settings struct {
	IsPopupOpened    bool   `yaml:"isPopupOpened" toml:"isPopupOpened" json:"isPopupOpened"`
	SortOrder        string `yaml:"sortOrder" toml:"sortOrder" json:"sortOrder"`
	PresentationMode string `yaml:"presentationMode" toml:"presentationMode" json:"presentationMode"`
	PanelPosition    string `yaml:"panelPosition" toml:"panelPosition" json:"panelPosition"`
	Timing           Timing `yaml:"timing" toml:"timing" json:"timing"`
}

// Timing holds the panel delays in milliseconds.
type Timing struct {
	SearchDebounceMS  int `yaml:"searchDebounceMs" toml:"searchDebounceMs" json:"searchDebounceMs"`
	AutoScrollDelayMS int `yaml:"autoScrollDelayMs" toml:"autoScrollDelayMs" json:"autoScrollDelayMs"`
	NotificationTTLMS int `yaml:"notificationTtlMs" toml:"notificationTtlMs" json:"notificationTtlMs"`
}

// SearchDebounce returns the search input debounce delay.
func (t Timing) SearchDebounce() time.Duration {
	return time.Duration(t.SearchDebounceMS) * time.Millisecond
}

// AutoScrollDelay returns the delay before scrolling to the deepest match.
func (t Timing) AutoScrollDelay() time.Duration {
	return time.Duration(t.AutoScrollDelayMS) * time.Millisecond
}

// NotificationTTL returns how long a notification stays visible.
func (t Timing) NotificationTTL() time.Duration {
	return time.Duration(t.NotificationTTLMS) * time.Millisecond
}

// DefaultYAML returns a copy of the embedded default settings.
func DefaultYAML() []byte {
	return append([]byte(nil), embeddedDefaults...)
}

// Defaults returns the embedded default settings.
func Defaults() Settings {
	defaultsOnce.Do(func() {
		if len(embeddedDefaults) == 0 {
			defaultsErr = fmt.Errorf("embedded default settings are empty")
			return
		}
		if err := yaml.Unmarshal(embeddedDefaults, &defaults); err != nil {
			defaultsErr = fmt.Errorf("decode embedded default settings: %w", err)
		}
	})
	if defaultsErr != nil {
		panic(defaultsErr)
	}
	return defaults
}

// Validate reports the first invalid setting.
func (s Settings) Validate() error {
	switch s.SortOrder {
	case "none", "asc", "desc":
	default:
		return fmt.Errorf("invalid sortOrder %q: must be none, asc or desc", s.SortOrder)
	}
	switch s.PresentationMode {
	case "tree", "list":
	default:
		return fmt.Errorf("invalid presentationMode %q: must be tree or list", s.PresentationMode)
	}
	switch s.PanelPosition {
	case PositionTopLeft, PositionTopRight, PositionBottomLeft, PositionBottomRight:
	default:
		return fmt.Errorf("invalid panelPosition %q", s.PanelPosition)
	}
	if s.Timing.SearchDebounceMS < 0 || s.Timing.AutoScrollDelayMS < 0 || s.Timing.NotificationTTLMS < 0 {
		return fmt.Errorf("timing values must be non-negative")
	}
	return nil
}

type format int

const (
	formatYAML format = iota
	formatTOML
)

func formatFor(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return formatYAML, nil
	case ".toml":
		return formatTOML, nil
	}
	return 0, fmt.Errorf("unsupported settings file extension %q (want .yaml, .yml, .json or .toml)", filepath.Ext(path))
}

// Load reads settings from path on top of the defaults. An empty path or a
// missing file yields the defaults.
func Load(path string) (Settings, error) {
	s := Defaults()
	if path == "" {
		return s, nil
	}
	f, err := formatFor(path)
	if err != nil {
		return s, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read settings %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return s, nil
	}
	switch f {
	case formatTOML:
		err = toml.Unmarshal(data, &s)
	default:
		err = yaml.Unmarshal(data, &s)
	}
	if err != nil {
		return Defaults(), fmt.Errorf("decode settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Defaults(), fmt.Errorf("settings %s: %w", path, err)
	}
	return s, nil
}

// Marshal encodes s in the format chosen by the extension of path.
func Marshal(path string, s Settings) ([]byte, error) {
	f, err := formatFor(path)
	if err != nil {
		return nil, err
	}
	if f == formatTOML {
		return toml.Marshal(s)
	}
	return yaml.Marshal(s)
}

// Save writes s to path, creating parent directories.
func Save(path string, s Settings) error {
	if path == "" {
		return nil
	}
	data, err := Marshal(path, s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings %s: %w", path, err)
	}
	return nil
}

// DefaultPath returns the per-user settings file location.
func DefaultPath(binary string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, binary, "settings.yaml")
}
