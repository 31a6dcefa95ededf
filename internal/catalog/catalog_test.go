package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawprint/leakwatch/internal/model"
)

func TestDefault(t *testing.T) {
	c := Default()

	assert.Equal(t, "3317771874", c.GameID)
	assert.NotEmpty(t, c.Developers)
	assert.NotEmpty(t, c.Groups)
	assert.NotEmpty(t, c.Keywords)

	assert.True(t, c.IsKnownDeveloper("19717956"))
	assert.False(t, c.IsKnownDeveloper("1"))

	dev, ok := c.Developer("19717956")
	require.True(t, ok)
	assert.Equal(t, "BuildIntoGames", dev.Username)
}

func TestSources_Order(t *testing.T) {
	c := Default()
	sources := c.Sources()

	require.Len(t, sources, len(c.Developers)+len(c.Groups)+len(c.Keywords)+1)

	// Developers first, then groups, keywords, and the game last.
	assert.Equal(t, model.SourceKindDeveloper, sources[0].Kind)
	assert.Equal(t, model.SourceKindGroup, sources[len(c.Developers)].Kind)
	assert.Equal(t, model.SourceKindKeyword, sources[len(c.Developers)+len(c.Groups)].Kind)

	last := sources[len(sources)-1]
	assert.Equal(t, model.SourceKindGame, last.Kind)
	assert.Equal(t, c.GameID, last.ID)
	assert.Equal(t, c.GameName, last.DisplayName)
}

func TestSources_DisplayNameFallsBackToUsername(t *testing.T) {
	c := &Catalog{
		GameID:     "1",
		GameName:   "g",
		Developers: []Developer{{ID: "7", Username: "someone"}},
	}
	c.reindex()

	assert.Equal(t, "someone", c.Sources()[0].DisplayName)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
game_id: "42"
game_name: "Other Game"
developers:
  - id: "100"
    username: dev100
    role: Developer
    priority: 1
keywords:
  - other game
`), 0o644))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "42", c.GameID)
	assert.True(t, c.IsKnownDeveloper("100"))
	assert.False(t, c.IsKnownDeveloper("19717956"), "file catalogs replace the default registry")
}

func TestLoadFile_MissingGameID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`game_name: nameless`), 0o644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestLoad_EmptyPathUsesDefault(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "3317771874", c.GameID)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
