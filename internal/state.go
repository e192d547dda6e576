package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// UIState is the small amount of view state kept between runs
type UIState struct {
	LastRoute string `yaml:"last_route,omitempty"`
}

// LoadUIState reads path. A missing file yields the zero state.
func LoadUIState(path string) (UIState, error) {
	var state UIState
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("read ui state: %w", err)
	}
	if err := yaml.Unmarshal(data, &state); err != nil {
		return UIState{}, fmt.Errorf("parse ui state: %w", err)
	}
	return state, nil
}

// SaveUIState writes state to path
func SaveUIState(path string, state UIState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal ui state: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
