package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cloudbun/floatbox/pkg/schema"
)

// LoadColumnMapSpec reads a column-map file and returns the JSON spec
// string the engine boundary expects. YAML files are converted; JSON
// passes through after a validity check. An empty path means inference.
func LoadColumnMapSpec(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read column map %s: %w", path, err)
	}

	if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		var mapping schema.ColumnMapping
		if err := json.Unmarshal(data, &mapping); err != nil {
			return "", fmt.Errorf("invalid column map JSON in %s: %w", path, err)
		}
		return string(data), nil
	}

	var mapping schema.ColumnMapping
	if err := yaml.Unmarshal(data, &mapping); err != nil {
		return "", fmt.Errorf("invalid column map YAML in %s: %w", path, err)
	}
	spec, err := json.Marshal(mapping)
	if err != nil {
		return "", fmt.Errorf("failed to encode column map: %w", err)
	}
	return string(spec), nil
}
