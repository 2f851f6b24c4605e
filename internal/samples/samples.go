// Package samples holds the static list of demo pipelines linked from the
// Getting Started page and the mapping from document topics to that list.
package samples

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/kapu/kfp-startpage/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed sample_config_from_backend.json
var defaultSamples []byte

// Topics maps each document placeholder to an index in Catalog.Names.
type Topics struct {
	Data    int `yaml:"data"`
	Control int `yaml:"control"`
}

// DefaultTopics is the placement used by the bundled document.
var DefaultTopics = Topics{Data: 0, Control: 1}

type Catalog struct {
	Names  []string
	Topics Topics
}

// Load reads the sample names from path, or the bundled list when path is
// empty. The file is either a plain list of names or a mapping with "names"
// and optional "topics"; JSON input is accepted as YAML.
func Load(path string) (*Catalog, error) {
	data := defaultSamples
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.NewConfigError("failed to read samples file", "SAMPLES_FILE", err)
		}
		data = raw
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, errors.NewConfigError("failed to parse samples", "SAMPLES_FILE", err)
	}
	if len(node.Content) == 0 {
		return nil, errors.NewConfigError("samples file is empty", "SAMPLES_FILE", nil)
	}

	catalog := &Catalog{Topics: DefaultTopics}
	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&catalog.Names); err != nil {
			return nil, errors.NewConfigError("samples must be a list of names", "SAMPLES_FILE", err)
		}
	case yaml.MappingNode:
		var doc struct {
			Names  []string `yaml:"names"`
			Topics *Topics  `yaml:"topics"`
		}
		if err := root.Decode(&doc); err != nil {
			return nil, errors.NewConfigError("invalid samples mapping", "SAMPLES_FILE", err)
		}
		catalog.Names = doc.Names
		if doc.Topics != nil {
			catalog.Topics = *doc.Topics
		}
	default:
		return nil, errors.NewConfigError("samples must be a list or a mapping", "SAMPLES_FILE", nil)
	}

	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}

func (c *Catalog) Validate() error {
	if len(c.Names) == 0 {
		return errors.NewValidationError("at least one sample pipeline is required", "names", c.Names)
	}
	for i, name := range c.Names {
		if strings.TrimSpace(name) == "" {
			return errors.NewValidationError(fmt.Sprintf("sample %d has an empty name", i), "names", c.Names)
		}
	}
	for topic, idx := range map[string]int{"data": c.Topics.Data, "control": c.Topics.Control} {
		if idx < 0 || idx >= len(c.Names) {
			return errors.NewValidationError(
				fmt.Sprintf("topic %q points at index %d, only %d samples configured", topic, idx, len(c.Names)),
				"topics."+topic, idx)
		}
	}
	return nil
}
