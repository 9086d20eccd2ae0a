package resolver

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

// loadSeed decodes the embedded seed table.
func loadSeed() (map[string]ObjectInfo, error) {
	var objects []ObjectInfo
	if err := yaml.Unmarshal(seedYAML, &objects); err != nil {
		return nil, fmt.Errorf("decoding seed table: %w", err)
	}
	out := make(map[string]ObjectInfo, len(objects))
	for _, o := range objects {
		out[o.Name] = o
	}
	return out, nil
}
