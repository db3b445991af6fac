// Package navigation maps staff roles to the dashboard menu entries they see.
package navigation

import (
	_ "embed"
	"fmt"

	"github.com/kitchenops/api/internal/enum"
	"gopkg.in/yaml.v3"
)

//go:embed navigation.yaml
var defaultMenu []byte

type Entry struct {
	Label string `yaml:"label" json:"label"`
	Path  string `yaml:"path" json:"path"`
	Icon  string `yaml:"icon" json:"icon"`
}

type Menu struct {
	entries map[string][]Entry
}

// Default returns the menu compiled into the binary.
func Default() (*Menu, error) {
	return Parse(defaultMenu)
}

// Parse decodes a role -> entries document. Every key must be a known role
// and every entry needs a label and a path.
func Parse(data []byte) (*Menu, error) {
	var entries map[string][]Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse navigation: %w", err)
	}
	for role, list := range entries {
		if !enum.IsRole(role) {
			return nil, fmt.Errorf("parse navigation: unknown role %q", role)
		}
		for i, e := range list {
			if e.Label == "" || e.Path == "" {
				return nil, fmt.Errorf("parse navigation: %s entry %d needs label and path", role, i)
			}
		}
	}
	return &Menu{entries: entries}, nil
}

// ForRole returns a copy of the entries for role, or an empty slice.
func (m *Menu) ForRole(role string) []Entry {
	out := make([]Entry, len(m.entries[role]))
	copy(out, m.entries[role])
	return out
}
