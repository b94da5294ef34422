// Package catalog reads curated known-error entries: the built-in default set
// or a YAML/JSON file.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/domain/knownerror"
)

//go:embed default.yaml
var defaultYAML []byte

// file is the document layout. A bare top-level list of entries is accepted too.
type file struct {
	Entries []knownerror.Entry `json:"entries" yaml:"entries"`
}

// Default returns the built-in catalog.
func Default() []knownerror.Entry {
	entries, err := Parse(defaultYAML, FormatYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog: %v", err))
	}
	return entries
}

// Format selects the decoder.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks JSON for .json files and YAML otherwise.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Load reads a catalog file. An empty path returns the built-in catalog.
func Load(path string) ([]knownerror.Entry, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	entries, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return entries, nil
}

// Parse decodes a catalog document. Entries are returned as written;
// validation happens at reseed time.
func Parse(data []byte, format Format) ([]knownerror.Entry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty document: %w", domain.ErrInvalidCatalog)
	}

	var (
		entries []knownerror.Entry
		err     error
	)
	switch format {
	case FormatJSON:
		entries, err = parseJSON(trimmed)
	default:
		entries, err = parseYAML(trimmed)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCatalog, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no entries: %w", domain.ErrInvalidCatalog)
	}
	return entries, nil
}

func parseJSON(data []byte) ([]knownerror.Entry, error) {
	if data[0] == '[' {
		var entries []knownerror.Entry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		return entries, nil
	}
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return f.Entries, nil
}

func parseYAML(data []byte) ([]knownerror.Entry, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(root.Content) > 0 && root.Content[0].Kind == yaml.SequenceNode {
		var entries []knownerror.Entry
		if err := root.Decode(&entries); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		return entries, nil
	}
	var f file
	if err := root.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return f.Entries, nil
}
