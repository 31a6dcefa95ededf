// Package catalog holds the static source registry the scanner walks each
// cycle: known developer accounts, studio groups, marketplace search keywords,
// and the tracked game's universe ID. The defaults can be overridden from a
// YAML file so the registry is data, not code.
package catalog

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/pawprint/leakwatch/internal/model"
)

// Catalog is the full set of sources scanned each discovery cycle.
type Catalog struct {
	GameID     string      `json:"game_id" yaml:"game_id"`
	GameName   string      `json:"game_name" yaml:"game_name"`
	Developers []Developer `json:"developers" yaml:"developers"`
	Groups     []Group     `json:"groups" yaml:"groups"`
	Keywords   []string    `json:"keywords" yaml:"keywords"`

	devIndex map[string]Developer
}

// Default returns the built-in catalog for the tracked game.
func Default() *Catalog {
	c := &Catalog{
		GameID:     "3317771874",
		GameName:   "Pet Simulator 99",
		Developers: defaultDevelopers,
		Groups:     defaultGroups,
		Keywords: []string{
			"pet simulator 99",
			"big games pets",
			"big games",
		},
	}
	c.reindex()
	return c
}

// LoadFile reads a catalog override from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read %s", path)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrapf(err, "catalog: parse %s", path)
	}
	if c.GameID == "" {
		return nil, eris.Errorf("catalog: %s has no game_id", path)
	}
	c.reindex()
	return &c, nil
}

// Load returns the catalog at path, or the built-in default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

func (c *Catalog) reindex() {
	c.devIndex = make(map[string]Developer, len(c.Developers))
	for _, d := range c.Developers {
		c.devIndex[d.ID] = d
	}
}

// IsKnownDeveloper reports whether id belongs to the developer registry.
func (c *Catalog) IsKnownDeveloper(id string) bool {
	_, ok := c.devIndex[id]
	return ok
}

// Developer returns the registry entry for id.
func (c *Catalog) Developer(id string) (Developer, bool) {
	d, ok := c.devIndex[id]
	return d, ok
}

// Sources returns every catalog entry as a descriptor, in the fixed order the
// scanner visits them: developers, groups, keywords, then the game itself.
func (c *Catalog) Sources() []model.SourceDescriptor {
	out := make([]model.SourceDescriptor, 0, len(c.Developers)+len(c.Groups)+len(c.Keywords)+1)
	for _, d := range c.Developers {
		name := d.DisplayName
		if name == "" {
			name = d.Username
		}
		out = append(out, model.SourceDescriptor{ID: d.ID, Kind: model.SourceKindDeveloper, DisplayName: name})
	}
	for _, g := range c.Groups {
		out = append(out, model.SourceDescriptor{ID: g.ID, Kind: model.SourceKindGroup, DisplayName: g.Name})
	}
	for _, kw := range c.Keywords {
		out = append(out, model.SourceDescriptor{ID: kw, Kind: model.SourceKindKeyword, DisplayName: kw})
	}
	out = append(out, model.SourceDescriptor{ID: c.GameID, Kind: model.SourceKindGame, DisplayName: c.GameName})
	return out
}
