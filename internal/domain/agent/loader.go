package agent

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/request"
)

type catalogFile struct {
	Agents []definitionYAML `yaml:"agents"`
}

type definitionYAML struct {
	Kind               string            `yaml:"kind"`
	DisplayName        string            `yaml:"display_name"`
	Role               string            `yaml:"role"`
	Capabilities       []string          `yaml:"capabilities"`
	DependsOn          []string          `yaml:"depends_on"`
	ConcurrencyCeiling int               `yaml:"concurrency_ceiling"`
	EstimatedDuration  map[string]string `yaml:"estimated_duration"`
}

// LoadCatalog reads agent definitions from a YAML file and merges them over
// the built-in defaults. A file definition with a known kind replaces the
// default; new kinds are added. The merged set is validated as a whole.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agent catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse agent catalog: %w", err)
	}

	merged := make(map[Kind]Definition)
	for _, d := range Defaults().Definitions() {
		merged[d.Kind] = d
	}
	for _, y := range file.Agents {
		def, err := y.toDefinition()
		if err != nil {
			return nil, fmt.Errorf("agent catalog entry %q: %w", y.Kind, err)
		}
		merged[def.Kind] = def
	}

	defs := make([]Definition, 0, len(merged))
	for _, d := range merged {
		defs = append(defs, d)
	}
	return NewCatalog(defs...)
}

func (y definitionYAML) toDefinition() (Definition, error) {
	if y.ConcurrencyCeiling == 0 {
		y.ConcurrencyCeiling = 1
	}
	def := Definition{
		Kind:               Kind(y.Kind),
		DisplayName:        y.DisplayName,
		Role:               y.Role,
		Capabilities:       y.Capabilities,
		ConcurrencyCeiling: y.ConcurrencyCeiling,
	}
	for _, dep := range y.DependsOn {
		def.DependsOn = append(def.DependsOn, Kind(dep))
	}
	if len(y.EstimatedDuration) > 0 {
		def.EstimatedDuration = make(map[request.Complexity]time.Duration, len(y.EstimatedDuration))
		for k, v := range y.EstimatedDuration {
			c, err := request.ParseComplexity(k)
			if err != nil {
				return Definition{}, err
			}
			dur, err := time.ParseDuration(v)
			if err != nil {
				return Definition{}, fmt.Errorf("duration %q: %w", v, err)
			}
			def.EstimatedDuration[c] = dur
		}
	}
	return def, nil
}
