package main

import (
	"fmt"

	"github.com/flair-helper/flairhelper/internal/settings"
)

// defaultSettingsPath is used whenever --config is not given.
const defaultSettingsPath = "./flairhelper.yml"

// loadSettings loads operator settings from path, falling back to
// defaultSettingsPath when path is empty. It does not validate them.
func loadSettings(path string) (settings.Settings, error) {
	if path == "" {
		path = defaultSettingsPath
	}
	s, err := settings.Load(path)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return s, nil
}
