package config

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Decode parses configuration text into a key/value tree. Files ending in
// .toml are read as TOML, everything else as YAML. An empty document yields
// an empty tree; a document whose top level is not a mapping is an error.
func Decode(name string, data []byte) (map[string]any, error) {
	tree := map[string]any{}

	if strings.EqualFold(filepath.Ext(name), ".toml") {
		if err := toml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("decoding toml: %w", err)
		}
		return tree, nil
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return tree, nil
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}
	switch v := doc.(type) {
	case nil:
		return tree, nil
	case map[string]any:
		return v, nil
	default:
		return nil, fmt.Errorf("top level must be a mapping, got %T", doc)
	}
}
