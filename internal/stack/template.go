package stack

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Parameter is a parameter declared by a template.
type Parameter struct {
	Name          string
	Type          string
	Default       string
	HasDefault    bool
	Description   string
	NoEcho        bool
	AllowedValues []string
}

// TemplateParameters lists the parameters a template declares, in
// declaration order. body may be JSON or YAML; intrinsic function tags
// such as !Ref are tolerated.
func TemplateParameters(body []byte) ([]Parameter, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, errors.New("parse template: empty document")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("parse template: top level is not a mapping")
	}

	params := mappingValue(root, "Parameters")
	if params == nil {
		return nil, nil
	}
	if params.Kind != yaml.MappingNode {
		return nil, errors.New("parse template: Parameters is not a mapping")
	}

	var out []Parameter
	for i := 0; i+1 < len(params.Content); i += 2 {
		name, decl := params.Content[i], params.Content[i+1]
		p := Parameter{Name: name.Value}
		if decl.Kind == yaml.MappingNode {
			p.Type = scalar(mappingValue(decl, "Type"))
			p.Description = scalar(mappingValue(decl, "Description"))
			p.NoEcho = scalar(mappingValue(decl, "NoEcho")) == "true"
			if def := mappingValue(decl, "Default"); def != nil {
				p.Default, p.HasDefault = scalar(def), true
			}
			if allowed := mappingValue(decl, "AllowedValues"); allowed != nil && allowed.Kind == yaml.SequenceNode {
				for _, v := range allowed.Content {
					p.AllowedValues = append(p.AllowedValues, scalar(v))
				}
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// mappingValue returns the value node for key in a mapping node.
func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func scalar(n *yaml.Node) string {
	if n == nil || n.Kind != yaml.ScalarNode {
		return ""
	}
	return n.Value
}

// LoadParameters reads a flat YAML (or JSON) file of parameter values.
// Non-string scalars are rendered as written.
func LoadParameters(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read parameters: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse parameters %s: %w", path, err)
	}

	params := map[string]string{}
	if len(doc.Content) == 0 {
		return params, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse parameters %s: top level is not a mapping", path)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("parse parameters %s: %s is not a scalar", path, key.Value)
		}
		params[key.Value] = value.Value
	}
	return params, nil
}

// MissingParameters returns the declared parameters without a default
// that values does not set.
func MissingParameters(declared []Parameter, values map[string]string) []string {
	var missing []string
	for _, p := range declared {
		if p.HasDefault {
			continue
		}
		if _, ok := values[p.Name]; !ok {
			missing = append(missing, p.Name)
		}
	}
	return missing
}
