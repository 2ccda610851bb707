package capability

import "gopkg.in/yaml.v3"

// Parameter describes one declared capability parameter. Types are the
// primitive JSON-schema names the provider understands ("string", etc.).
type Parameter struct {
	Type        string `yaml:"type" json:"type"`
	Description string `yaml:"description" json:"description"`
	Required    bool   `yaml:"required" json:"required"`
}

// Declaration describes one capability offered to the model. Declarations
// are immutable after registry construction and handed to the provider
// verbatim so it can decide when to request the capability.
type Declaration struct {
	// Name is the declaration key (set during YAML unmarshaling).
	Name        string               `yaml:"-" json:"name"`
	Description string               `yaml:"description" json:"description"`
	Parameters  map[string]Parameter `yaml:"parameters" json:"parameters"`
}

// RequiredParams returns the names of the parameters flagged required.
func (d Declaration) RequiredParams() []string {
	var names []string
	for name, p := range d.Parameters {
		if p.Required {
			names = append(names, name)
		}
	}
	return names
}

// declarationFile is the embedded YAML document shape.
type declarationFile struct {
	Capabilities []Declaration `yaml:"-"`
}

// UnmarshalYAML implements custom YAML unmarshaling to preserve the
// declaration order from the YAML file.
func (f *declarationFile) UnmarshalYAML(node *yaml.Node) error {
	type declsOnly struct {
		Capabilities map[string]Declaration `yaml:"capabilities"`
	}
	var m declsOnly
	if err := node.Decode(&m); err != nil {
		return err
	}

	// node.Content alternates key, value; walk it to recover YAML order.
	for i := 0; i < len(node.Content); i += 2 {
		if node.Content[i].Value != "capabilities" {
			continue
		}
		declsNode := node.Content[i+1]
		for j := 0; j < len(declsNode.Content); j += 2 {
			name := declsNode.Content[j].Value
			if decl, ok := m.Capabilities[name]; ok {
				decl.Name = name
				f.Capabilities = append(f.Capabilities, decl)
			}
		}
		break
	}

	return nil
}
