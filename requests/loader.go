package requests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PeladoCollado/stress/types"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// LoadTemplates reads a job file and decodes its ordered list of templates. YAML and
// JSON-with-comments files are recognised by extension; everything else is parsed as JSON.
func LoadTemplates(file string) ([]types.JobTemplate, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, &ConfigError{Index: -1, Err: fmt.Errorf("read job file: %w", err)}
	}

	var templates []types.JobTemplate
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		templates, err = decodeYAML(data)
	case ".jsonc":
		templates, err = decodeJSON(jsonc.ToJSON(data))
	default:
		templates, err = decodeJSON(data)
	}
	if err != nil {
		return nil, &ConfigError{Index: -1, Err: fmt.Errorf("parse job file %s: %w", file, err)}
	}
	return templates, nil
}

func decodeJSON(data []byte) ([]types.JobTemplate, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var single types.JobTemplate
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, err
		}
		return []types.JobTemplate{single}, nil
	}
	var templates []types.JobTemplate
	if err := json.Unmarshal(trimmed, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

func decodeYAML(data []byte) ([]types.JobTemplate, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	root := node.Content[0]
	if root.Kind == yaml.MappingNode {
		var single types.JobTemplate
		if err := root.Decode(&single); err != nil {
			return nil, err
		}
		return []types.JobTemplate{single}, nil
	}
	var templates []types.JobTemplate
	if err := root.Decode(&templates); err != nil {
		return nil, err
	}
	return templates, nil
}
