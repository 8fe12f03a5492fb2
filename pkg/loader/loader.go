// Package loader parses the extras bag shown under the "Extras" root of the
// panel. Extras are plain data (JSON, YAML or TOML) read from a file or a
// string.
package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is an extras encoding.
type Format string

const (
	FormatAuto   Format = ""
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
	FormatYAML   Format = "yaml"
	FormatTOML   Format = "toml"
)

// WrapKey holds a non-object extras root so the bag is always keyed.
const WrapKey = "value"

// ErrEmpty is returned for blank input.
var ErrEmpty = errors.New("empty input")

var (
	// TOML section headers: [server], [[items]], ["table name"], [database.credentials].
	// JSON arrays like [1, 2, 3] do not match.
	tomlSection = regexp.MustCompile(`^\s*\[{1,2}(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+')+(?:\.(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+'))*\]{1,2}\s*$`)
	// TOML key = value, as opposed to YAML key: value.
	tomlKeyValue = regexp.MustCompile(`^\s*(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+')+(?:\.(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+'))*\s*=\s*.+$`)
)

// FormatForPath picks the format from a file extension, or FormatAuto.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".ndjson", ".jsonl":
		return FormatNDJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	}
	return FormatAuto
}

// Detect guesses the format of input.
func Detect(input string) Format {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "---") || strings.Contains(input, "\n---") {
		return FormatYAML
	}
	lines := strings.Split(input, "\n")
	if isLikelyNDJSON(lines) {
		return FormatNDJSON
	}
	// TOML before JSON: "[server]" looks like a JSON array.
	if isLikelyTOML(lines) {
		return FormatTOML
	}
	if strings.HasPrefix(input, "{") || strings.HasPrefix(input, "[") {
		if json.Valid([]byte(input)) {
			return FormatJSON
		}
	}
	return FormatYAML
}

// Decode parses input as f and returns the documents it holds. Single
// document formats return one element.
func Decode(input string, f Format) ([]any, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmpty
	}
	if f == FormatAuto {
		f = Detect(input)
	}
	switch f {
	case FormatJSON:
		var doc any
		if err := json.Unmarshal([]byte(input), &doc); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return []any{doc}, nil
	case FormatNDJSON:
		return decodeNDJSON(input)
	case FormatTOML:
		var doc map[string]any
		if err := toml.Unmarshal([]byte(input), &doc); err != nil {
			return nil, fmt.Errorf("invalid TOML: %w", err)
		}
		return []any{doc}, nil
	case FormatYAML:
		return decodeYAML(input)
	}
	return nil, fmt.Errorf("unknown format %q", f)
}

// Extras parses input into an extras bag. A single object is returned as
// is. Any other root, and multi-document input, is stored under WrapKey.
func Extras(input string, f Format) (map[string]any, error) {
	docs, err := Decode(input, f)
	if err != nil {
		return nil, err
	}
	if len(docs) == 1 {
		if m, ok := docs[0].(map[string]any); ok {
			return m, nil
		}
		return map[string]any{WrapKey: docs[0]}, nil
	}
	return map[string]any{WrapKey: docs}, nil
}

// LoadExtras reads path and parses it with Extras. The extension picks the
// format; unknown extensions are detected from content.
func LoadExtras(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read extras %s: %w", path, err)
	}
	extras, err := Extras(string(data), FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("parse extras %s: %w", path, err)
	}
	return extras, nil
}

// decodeYAML parses one or more YAML documents separated by ---.
func decodeYAML(input string) ([]any, error) {
	var docs []any
	decoder := yaml.NewDecoder(strings.NewReader(input))
	for {
		var doc any
		if err := decoder.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
		if doc != nil {
			docs = append(docs, doc)
		}
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents found in YAML")
	}
	return docs, nil
}

// decodeNDJSON parses one JSON value per line. Lines that are not JSON are
// kept as plain strings.
func decodeNDJSON(input string) ([]any, error) {
	lines := strings.Split(input, "\n")
	docs := make([]any, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var doc any
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			docs = append(docs, line)
			continue
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil, ErrEmpty
	}
	return docs, nil
}

// isLikelyNDJSON requires more than one non-empty line and a majority
// starting with '{' or '['. YAML lists of bare items do not qualify.
func isLikelyNDJSON(lines []string) bool {
	jsonCount, nonEmpty := 0, 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		nonEmpty++
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			jsonCount++
		}
	}
	return nonEmpty > 1 && jsonCount > nonEmpty/2
}

// isLikelyTOML reports section headers, or a majority of key = value lines.
func isLikelyTOML(lines []string) bool {
	kv, nonEmpty := 0, 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		nonEmpty++
		if tomlSection.MatchString(line) {
			return true
		}
		if tomlKeyValue.MatchString(line) {
			kv++
		}
	}
	return nonEmpty > 0 && kv > nonEmpty/2
}
