package coordinator

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// planDoc is the parsed form of a plan definition: an ordered list of steps,
// each naming a registered tool.
type planDoc struct {
	Name  string `yaml:"name" mapstructure:"name"`
	Steps []step `yaml:"steps" mapstructure:"steps"`
}

type step struct {
	Name string         `yaml:"name" mapstructure:"name"`
	Tool string         `yaml:"tool" mapstructure:"tool"`
	Args map[string]any `yaml:"args" mapstructure:"args"`
}

// parseDefinition decodes a definition text into a planDoc.
// The caller's text is never mutated; steps own their own arg maps.
func parseDefinition(definition string) (*planDoc, error) {
	var doc planDoc
	if err := yaml.Unmarshal([]byte(definition), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse plan definition: %w", err)
	}
	for i, s := range doc.Steps {
		if s.Tool == "" {
			return nil, fmt.Errorf("step %d has no tool", i+1)
		}
	}
	return &doc, nil
}

// cloneArgs copies a step's argument map so executions never observe caller
// mutations after submission.
func cloneArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	return out
}
