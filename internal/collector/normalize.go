package collector

import (
	"strconv"
	"time"

	"github.com/pawprint/leakwatch/internal/model"
)

// Per-endpoint response shapes. External JSON is untrusted; each endpoint
// gets its own narrow struct and a normalization function producing the one
// internal Item shape, so downstream code never touches raw platform JSON.

type badgeResponse struct {
	Data []struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"data"`
}

type gamePassResponse struct {
	Data []struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		DisplayName string `json:"displayName"`
		Price       *int   `json:"price"`
	} `json:"data"`
}

type devProductResponse struct {
	DeveloperProducts []struct {
		ProductID   int64  `json:"productId"`
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"developerProducts"`
}

type catalogSearchResponse struct {
	Data []struct {
		ID              int64  `json:"id"`
		ItemType        string `json:"itemType"`
		AssetType       int    `json:"assetType"`
		Name            string `json:"name"`
		Description     string `json:"description"`
		CreatorTargetID int64  `json:"creatorTargetId"`
		CreatorName     string `json:"creatorName"`
	} `json:"data"`
}

type gamesResponse struct {
	Data []struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Updated     string `json:"updated"`
		Creator     struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"creator"`
	} `json:"data"`
}

type userProfileResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	IsBanned bool   `json:"isBanned"`
}

type thumbnailResponse struct {
	Data []struct {
		TargetID int64  `json:"targetId"`
		State    string `json:"state"`
		ImageURL string `json:"imageUrl"`
	} `json:"data"`
}

func (c *Collector) newItem(st model.SourceType, externalID int64, name, description string) model.Item {
	return model.Item{
		SourceType:   st,
		ExternalID:   strconv.FormatInt(externalID, 10),
		Name:         name,
		Description:  description,
		ChangeKind:   model.ChangeKindAdded,
		Metadata:     map[string]any{},
		DiscoveredAt: c.now(),
	}
}

func (c *Collector) normalizeBadges(resp badgeResponse, creatorID, creatorName string) []model.Item {
	items := make([]model.Item, 0, len(resp.Data))
	for _, b := range resp.Data {
		item := c.newItem(model.SourceTypeBadge, b.ID, b.Name, b.Description)
		item.CreatorID = creatorID
		item.CreatorName = creatorName
		items = append(items, item)
	}
	return items
}

func (c *Collector) normalizeGamePasses(resp gamePassResponse, gameID string) []model.Item {
	items := make([]model.Item, 0, len(resp.Data))
	for _, p := range resp.Data {
		name := p.DisplayName
		if name == "" {
			name = p.Name
		}
		item := c.newItem(model.SourceTypeGamePass, p.ID, name, "")
		item.Metadata["game_id"] = gameID
		if p.Price != nil {
			item.Metadata["price"] = *p.Price
		}
		items = append(items, item)
	}
	return items
}

func (c *Collector) normalizeDevProducts(resp devProductResponse, gameID string) []model.Item {
	items := make([]model.Item, 0, len(resp.DeveloperProducts))
	for _, p := range resp.DeveloperProducts {
		item := c.newItem(model.SourceTypeDeveloperProduct, p.ProductID, p.Name, p.Description)
		item.Metadata["game_id"] = gameID
		items = append(items, item)
	}
	return items
}

func (c *Collector) normalizeCatalogHits(resp catalogSearchResponse) []model.Item {
	items := make([]model.Item, 0, len(resp.Data))
	for _, hit := range resp.Data {
		item := c.newItem(model.SourceTypeAsset, hit.ID, hit.Name, hit.Description)
		if hit.CreatorTargetID != 0 {
			item.CreatorID = strconv.FormatInt(hit.CreatorTargetID, 10)
		}
		item.CreatorName = hit.CreatorName
		if hit.ItemType != "" {
			item.Metadata["item_type"] = hit.ItemType
		}
		items = append(items, item)
	}
	return items
}

// base36Stamp renders a timestamp compactly for synthesized IDs.
func base36Stamp(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 36)
}
