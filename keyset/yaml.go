package keyset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseYAMLFile reads a YAML keyset file.
func ParseYAMLFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	set, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return set, nil
}

// ParseYAML parses a YAML mapping of scopes to key mappings. The node tree
// is walked directly so document order survives.
func ParseYAML(data []byte) (*Set, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	set := NewSet()
	if doc.Kind == 0 || len(doc.Content) == 0 {
		// Empty file.
		return set, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("keysets root must be a mapping, got kind %d", root.Kind)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		scope := root.Content[i].Value
		keys := root.Content[i+1]
		if keys.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("keyset %q: must be a mapping", scope)
		}
		ks := set.Keyset(scope)
		for j := 0; j+1 < len(keys.Content); j += 2 {
			key := keys.Content[j].Value
			v, err := yamlValue(keys.Content[j+1])
			if err != nil {
				return nil, fmt.Errorf("keyset %q key %q: %w", scope, key, err)
			}
			ks.Set(key, v)
		}
	}
	return set, nil
}

func yamlValue(n *yaml.Node) (Value, error) {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	switch n.Kind {
	case yaml.SequenceNode:
		forms := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			s, err := yamlScalar(item)
			if err != nil {
				return Value{}, err
			}
			forms = append(forms, s)
		}
		return Plural(forms...), nil
	default:
		s, err := yamlScalar(n)
		if err != nil {
			return Value{}, err
		}
		return String(s), nil
	}
}

func yamlScalar(n *yaml.Node) (string, error) {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	if n.Kind != yaml.ScalarNode || n.Tag == "!!null" {
		return "", fmt.Errorf("%w: yaml node at line %d", ErrUnsupportedValue, n.Line)
	}
	return n.Value, nil
}
