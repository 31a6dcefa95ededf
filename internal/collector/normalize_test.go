package collector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawprint/leakwatch/internal/model"
)

func newTestCollector() *Collector {
	fixed := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return &Collector{now: func() time.Time { return fixed }}
}

func TestNormalizeBadges(t *testing.T) {
	c := newTestCollector()
	resp := badgeResponse{}
	resp.Data = append(resp.Data, struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}{ID: 9001, Name: "Huge Hunter", Description: "Hatch a Huge pet"})

	items := c.normalizeBadges(resp, "19717956", "BuildIntoGames")
	require.Len(t, items, 1)
	assert.Equal(t, model.SourceTypeBadge, items[0].SourceType)
	assert.Equal(t, "9001", items[0].ExternalID)
	assert.Equal(t, "Huge Hunter", items[0].Name)
	assert.Equal(t, "19717956", items[0].CreatorID)
	assert.Equal(t, "BuildIntoGames", items[0].CreatorName)
	assert.Equal(t, model.ChangeKindAdded, items[0].ChangeKind)
	assert.Equal(t, c.now(), items[0].DiscoveredAt)
}

func TestNormalizeGamePasses(t *testing.T) {
	c := newTestCollector()
	price := 499
	resp := gamePassResponse{}
	resp.Data = append(resp.Data,
		struct {
			ID          int64  `json:"id"`
			Name        string `json:"name"`
			DisplayName string `json:"displayName"`
			Price       *int   `json:"price"`
		}{ID: 100, Name: "internal name", DisplayName: "VIP", Price: &price},
		struct {
			ID          int64  `json:"id"`
			Name        string `json:"name"`
			DisplayName string `json:"displayName"`
			Price       *int   `json:"price"`
		}{ID: 101, Name: "Lucky Boost"},
	)

	items := c.normalizeGamePasses(resp, "3317771874")
	require.Len(t, items, 2)

	assert.Equal(t, model.SourceTypeGamePass, items[0].SourceType)
	assert.Equal(t, "VIP", items[0].Name, "display name wins when present")
	assert.Equal(t, "3317771874", items[0].Metadata["game_id"])
	assert.Equal(t, 499, items[0].Metadata["price"])

	assert.Equal(t, "Lucky Boost", items[1].Name, "falls back to internal name")
	_, hasPrice := items[1].Metadata["price"]
	assert.False(t, hasPrice, "nil price is omitted, not zero")
}

func TestNormalizeDevProducts(t *testing.T) {
	c := newTestCollector()
	resp := devProductResponse{}
	resp.DeveloperProducts = append(resp.DeveloperProducts, struct {
		ProductID   int64  `json:"productId"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}{ProductID: 777, Name: "Gem Pack", Description: "1000 gems"})

	items := c.normalizeDevProducts(resp, "3317771874")
	require.Len(t, items, 1)
	assert.Equal(t, model.SourceTypeDeveloperProduct, items[0].SourceType)
	assert.Equal(t, "777", items[0].ExternalID)
	assert.Equal(t, "3317771874", items[0].Metadata["game_id"])
}

func TestNormalizeCatalogHits(t *testing.T) {
	c := newTestCollector()
	resp := catalogSearchResponse{}
	resp.Data = append(resp.Data,
		struct {
			ID              int64  `json:"id"`
			ItemType        string `json:"itemType"`
			AssetType       int    `json:"assetType"`
			Name            string `json:"name"`
			Description     string `json:"description"`
			CreatorTargetID int64  `json:"creatorTargetId"`
			CreatorName     string `json:"creatorName"`
		}{ID: 42, ItemType: "Asset", Name: "Huge Dragon", CreatorTargetID: 19717956, CreatorName: "BuildIntoGames"},
		struct {
			ID              int64  `json:"id"`
			ItemType        string `json:"itemType"`
			AssetType       int    `json:"assetType"`
			Name            string `json:"name"`
			Description     string `json:"description"`
			CreatorTargetID int64  `json:"creatorTargetId"`
			CreatorName     string `json:"creatorName"`
		}{ID: 43, Name: "Plain Hat"},
	)

	items := c.normalizeCatalogHits(resp)
	require.Len(t, items, 2)

	assert.Equal(t, model.SourceTypeAsset, items[0].SourceType)
	assert.Equal(t, "19717956", items[0].CreatorID)
	assert.Equal(t, "Asset", items[0].Metadata["item_type"])

	assert.Empty(t, items[1].CreatorID, "zero creator id stays empty")
	_, hasType := items[1].Metadata["item_type"]
	assert.False(t, hasType)
}

func TestBase36Stamp(t *testing.T) {
	ts := time.UnixMilli(36 * 36) // "100" in base 36
	assert.Equal(t, "100", base36Stamp(ts))

	// Later timestamps sort after earlier ones at equal width.
	a := base36Stamp(time.UnixMilli(1_700_000_000_000))
	b := base36Stamp(time.UnixMilli(1_700_000_000_001))
	assert.Less(t, a, b)
}

func TestIDString(t *testing.T) {
	assert.Equal(t, "", idString(0))
	assert.Equal(t, "19717956", idString(19717956))
}
