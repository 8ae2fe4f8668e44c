package persona

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed personas.yaml
var defaultSeed []byte

type seedFile struct {
	Personas []Persona `yaml:"personas"`
}

// ParseSeed decodes a YAML seed document.
func ParseSeed(data []byte) ([]Persona, error) {
	var doc seedFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("persona: parse seed: %w", err)
	}
	return doc.Personas, nil
}

// LoadSeed reads personas from path, or the built-in demo personas when path
// is empty.
func LoadSeed(path string) ([]Persona, error) {
	data := defaultSeed
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("persona: read seed %s: %w", path, err)
		}
		data = raw
	}
	return ParseSeed(data)
}
