package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pawprint/leakwatch/internal/model"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		item model.Item
		want string
	}{
		{"server path", model.Item{Name: "zones", Path: "server/zones.json"}, CategoryServerUpdates},
		{"image suffix", model.Item{Name: "egg_icon.png"}, CategoryTextures},
		{"webp suffix", model.Item{Name: "banner.webp"}, CategoryTextures},
		{"mesh name", model.Item{Name: "dragon_mesh"}, CategoryModels},
		{"model path", model.Item{Name: "dragon", Path: "assets/models/dragon.rbxm"}, CategoryModels},
		{"music name", model.Item{Name: "background_music_01.mp3"}, CategoryAudio},
		{"sound path", model.Item{Name: "fx", Path: "sounds/pop.ogg"}, CategoryAudio},
		{"inventory", model.Item{Name: "inventory_slots"}, CategoryInventory},
		{"marketplace", model.Item{Path: "marketplace/listing"}, CategoryMarketplace},
		{"config name", model.Item{Name: "spawn_config"}, CategoryConfig},
		{"config path is server data", model.Item{Name: "spawns", Path: "config/spawns.json"}, CategoryServerUpdates},
		{"configuration name is server data", model.Item{Name: "world_configuration"}, CategoryServerUpdates},
		{"settings name", model.Item{Name: "ui_settings_v2"}, CategoryConfig},
		{"fallthrough", model.Item{Name: "mystery"}, CategoryOther},
		{"server beats image", model.Item{Name: "server_map.png"}, CategoryServerUpdates},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.item))
		})
	}
}

func TestCategoryLabel(t *testing.T) {
	assert.Equal(t, "Server Updates", CategoryLabel(CategoryServerUpdates))
	assert.Equal(t, "Audio", CategoryLabel(CategoryAudio))
	assert.Equal(t, "Other", CategoryLabel(CategoryOther))
}

func TestCategoryOrder_CoversAllCategories(t *testing.T) {
	assert.Len(t, categoryOrder, 8)
	for _, c := range categoryOrder {
		assert.Contains(t, categoryEmoji, c)
	}
}
