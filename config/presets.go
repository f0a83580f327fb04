package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/yoockh/doclingate/internal/providers/docling"
	"gopkg.in/yaml.v3"
)

const DefaultPreset = "default"

//go:embed presets.yaml
var embeddedPresets []byte

// LoadPresets parses the embedded presets and, when path is set, lays the
// presets from that file over them by name.
func LoadPresets(path string) (map[string]docling.Preset, error) {
	presets := map[string]docling.Preset{}
	if err := yaml.Unmarshal(embeddedPresets, &presets); err != nil {
		return nil, fmt.Errorf("embedded presets: %w", err)
	}
	if path == "" {
		return presets, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	override := map[string]docling.Preset{}
	if err := yaml.Unmarshal(b, &override); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for name, p := range override {
		presets[name] = p
	}
	return presets, nil
}
