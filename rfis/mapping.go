package rfis

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/jrsteele09/acc-rfi-service/internal/utils"
)

// AttributeOptions describes one custom attribute: an optional display name
// and the labels of its list options keyed by option index or raw value.
type AttributeOptions struct {
	Name    string            `yaml:"name" json:"name"`
	Options map[string]string `yaml:"options" json:"options"`
}

// UnmarshalYAML accepts either {name, options} or a bare option map.
func (o *AttributeOptions) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			if key := node.Content[i].Value; key == "options" || key == "name" {
				type plain AttributeOptions
				return node.Decode((*plain)(o))
			}
		}
	}
	return node.Decode(&o.Options)
}

// AttributeMapping resolves custom attribute values to display text. A nil
// mapping resolves nothing.
type AttributeMapping map[string]AttributeOptions

// LoadAttributeMapping reads a YAML or JSON mapping file. A blank path or a
// missing file yields an empty mapping.
func LoadAttributeMapping(path string) (AttributeMapping, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug().Str("path", path).Msg("No attribute mapping file")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read attribute mapping: %w", err)
	}
	var mapping AttributeMapping
	if err := yaml.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("failed to parse attribute mapping %s: %w", path, err)
	}
	log.Info().Str("path", path).Int("attributes", len(mapping)).Msg("Loaded attribute mapping")
	return mapping, nil
}

// Resolve returns the display label for value, or value unchanged when the
// mapping has none.
func (m AttributeMapping) Resolve(attributeID string, value any) any {
	opts, ok := m[attributeID]
	if !ok || value == nil {
		return value
	}
	if label, ok := opts.Options[utils.ToString(value)]; ok {
		return label
	}
	return value
}

// Name returns the configured display name of an attribute.
func (m AttributeMapping) Name(attributeID string) (string, bool) {
	opts, ok := m[attributeID]
	if !ok || opts.Name == "" {
		return "", false
	}
	return opts.Name, true
}
