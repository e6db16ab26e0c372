package profile

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// LoadCatalog reads profiles from a YAML file and merges them over the
// built-in presets. A file profile with a known name replaces the preset
// in place, keeping its registration position; new names append after
// the presets in file order.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse profile catalog: %w", err)
	}

	merged := Defaults().Profiles()
	position := make(map[string]int, len(merged))
	for i, p := range merged {
		position[p.Name] = i
	}
	for _, p := range file.Profiles {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		p.Name = name
		if i, ok := position[name]; ok {
			merged[i] = p
			continue
		}
		position[name] = len(merged)
		merged = append(merged, p)
	}
	return NewCatalog(merged...)
}
