package notify

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pawprint/leakwatch/internal/model"
)

// Batch category taxonomy. Order matters: an item lands in the first
// category whose rule matches.
const (
	CategoryServerUpdates = "server_updates"
	CategoryTextures      = "textures"
	CategoryModels        = "models"
	CategoryAudio         = "audio"
	CategoryInventory     = "inventory"
	CategoryMarketplace   = "marketplace"
	CategoryConfig        = "config"
	CategoryOther         = "other"
)

// categoryOrder fixes the presentation order of batch summaries.
var categoryOrder = []string{
	CategoryServerUpdates,
	CategoryTextures,
	CategoryModels,
	CategoryAudio,
	CategoryInventory,
	CategoryMarketplace,
	CategoryConfig,
	CategoryOther,
}

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".tga"}

var categoryEmoji = map[string]string{
	CategoryServerUpdates: "⚙️",
	CategoryTextures:      "🖼️",
	CategoryModels:        "🧩",
	CategoryAudio:         "🔊",
	CategoryInventory:     "🎒",
	CategoryMarketplace:   "🛒",
	CategoryConfig:        "⚙️",
	CategoryOther:         "📁",
}

var titleCaser = cases.Title(language.English)

// Categorize assigns an item to one batch category by name/path substrings.
func Categorize(item model.Item) string {
	name := strings.ToLower(item.Name)
	path := strings.ToLower(item.Path)

	has := func(sub string) bool {
		return strings.Contains(name, sub) || strings.Contains(path, sub)
	}

	switch {
	// A config path means server-side data; a config name on its own only
	// lands here when it spells out "configuration".
	case has("server") || strings.Contains(path, "config") || strings.Contains(name, "configuration"):
		return CategoryServerUpdates
	case hasAnySuffix(name, imageExtensions):
		return CategoryTextures
	case has("model") || has("mesh"):
		return CategoryModels
	case has("audio") || has("sound") || has("music"):
		return CategoryAudio
	case has("inventory"):
		return CategoryInventory
	case has("marketplace"):
		return CategoryMarketplace
	case has("config") || has("settings"):
		return CategoryConfig
	default:
		return CategoryOther
	}
}

// CategoryLabel renders a category key as a display label ("server_updates"
// becomes "Server Updates").
func CategoryLabel(category string) string {
	return titleCaser.String(strings.ReplaceAll(category, "_", " "))
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}
