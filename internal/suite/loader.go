package suite

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"weather-contract-tester/internal/types"
)

// File is the on-disk layout of a scenario suite.
type File struct {
	Scenarios []types.Scenario `yaml:"scenarios"`
}

// Loader handles loading scenario suites from files
type Loader struct {
	path string
}

// NewLoader creates a new suite loader. An empty path selects the built-in suite.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load returns the validated scenarios of the suite.
func (l *Loader) Load() ([]types.Scenario, error) {
	if l.path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse suite file: %w", err)
	}
	if len(f.Scenarios) == 0 {
		return nil, fmt.Errorf("suite file %s declares no scenarios", l.path)
	}

	if err := Check(f.Scenarios); err != nil {
		return nil, err
	}
	return f.Scenarios, nil
}

// Check validates every scenario and rejects duplicate IDs.
func Check(scenarios []types.Scenario) error {
	seen := make(map[string]bool, len(scenarios))
	for _, s := range scenarios {
		if err := s.Validate(); err != nil {
			return err
		}
		if seen[s.ID()] {
			return fmt.Errorf("duplicate scenario %s", s.ID())
		}
		seen[s.ID()] = true
	}
	return nil
}
