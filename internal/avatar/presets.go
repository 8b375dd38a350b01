package avatar

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var defaultCatalog []byte

// BodyPreset is a named set of body sliders. Fields the preset leaves out
// (face and style) keep whatever the user chose.
type BodyPreset struct {
	Name     string `yaml:"name" json:"name"`
	Label    string `yaml:"label" json:"label"`
	Settings Patch  `yaml:"settings" json:"settings"`
}

// LightingPreset is a named lighting setup.
type LightingPreset struct {
	Name     string        `yaml:"name" json:"name"`
	Label    string        `yaml:"label" json:"label"`
	Settings LightingPatch `yaml:"settings" json:"settings"`
}

// Catalog holds the body and lighting presets in display order.
type Catalog struct {
	Body     []BodyPreset     `yaml:"body" json:"body"`
	Lighting []LightingPreset `yaml:"lighting" json:"lighting"`
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic("avatar: built-in preset catalog: " + err.Error())
	}
	return c
}

// LoadCatalog reads a preset catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	b, err := os.ReadFile(filepath.Clean(path)) //nolint:gosec // operator-supplied config path
	if err != nil {
		return nil, err
	}
	return ParseCatalog(b)
}

// ParseCatalog decodes a YAML catalog and rejects duplicate or empty names.
func ParseCatalog(b []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse preset catalog: %w", err)
	}
	seen := map[string]bool{}
	for _, p := range c.Body {
		if p.Name == "" || seen["body/"+p.Name] {
			return nil, fmt.Errorf("%w: duplicate or empty body preset %q", ErrInvalid, p.Name)
		}
		seen["body/"+p.Name] = true
	}
	for _, p := range c.Lighting {
		if p.Name == "" || seen["light/"+p.Name] {
			return nil, fmt.Errorf("%w: duplicate or empty lighting preset %q", ErrInvalid, p.Name)
		}
		seen["light/"+p.Name] = true
	}
	return &c, nil
}

// BodyPreset looks up a body preset by name.
func (c *Catalog) BodyPreset(name string) (BodyPreset, bool) {
	for _, p := range c.Body {
		if p.Name == name {
			return p, true
		}
	}
	return BodyPreset{}, false
}

// LightingPreset looks up a lighting preset by name.
func (c *Catalog) LightingPreset(name string) (LightingPreset, bool) {
	for _, p := range c.Lighting {
		if p.Name == name {
			return p, true
		}
	}
	return LightingPreset{}, false
}

// Apply merges the preset into s in one step.
func (p BodyPreset) Apply(s Settings) Settings {
	return s.Apply(p.Settings)
}

// Apply merges the preset into l in one step.
func (p LightingPreset) Apply(l Lighting) Lighting {
	return l.Apply(p.Settings)
}
