package services

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed node_properties.yaml
var nodePropertiesFS embed.FS

type yamlNodePropertiesDoc struct {
	Version            int                 `yaml:"version"`
	RequiredProperties map[string][]string `yaml:"required_properties"`
}

// RequiredProperties maps a lower-cased node type to the property keys it
// must carry.
type RequiredProperties map[string][]string

// For returns the keys required for nodeType, or nil.
func (rp RequiredProperties) For(nodeType string) []string {
	return rp[strings.ToLower(strings.TrimSpace(nodeType))]
}

func (rp RequiredProperties) NodeTypes() []string {
	out := make([]string, 0, len(rp))
	for k := range rp {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LoadRequiredProperties reads the table from path, or the embedded default
// when path is empty.
func LoadRequiredProperties(path string) (RequiredProperties, error) {
	data, err := readNodePropertiesConfig(path)
	if err != nil {
		return nil, err
	}
	return parseRequiredProperties(data)
}

// DefaultRequiredProperties is the embedded table.
func DefaultRequiredProperties() RequiredProperties {
	rp, err := LoadRequiredProperties("")
	if err != nil {
		panic(fmt.Sprintf("embedded node_properties.yaml: %v", err))
	}
	return rp
}

func readNodePropertiesConfig(path string) ([]byte, error) {
	if path = strings.TrimSpace(path); path != "" {
		return os.ReadFile(path)
	}
	return nodePropertiesFS.ReadFile("node_properties.yaml")
}

func parseRequiredProperties(data []byte) (RequiredProperties, error) {
	var doc yamlNodePropertiesDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.RequiredProperties == nil {
		return nil, errors.New("required_properties is missing")
	}
	out := make(RequiredProperties, len(doc.RequiredProperties))
	for nodeType, keys := range doc.RequiredProperties {
		t := strings.ToLower(strings.TrimSpace(nodeType))
		if t == "" {
			return nil, errors.New("node type is required")
		}
		clean := make([]string, 0, len(keys))
		for _, k := range keys {
			if k = strings.TrimSpace(k); k != "" {
				clean = append(clean, k)
			}
		}
		out[t] = append(out[t], clean...)
	}
	return out, nil
}
