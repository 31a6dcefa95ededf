// Package collector walks the source catalog and turns raw platform API
// responses into candidate items. One failing endpoint never aborts a source,
// and one failing source never aborts the cycle: failures are logged and the
// walk continues.
package collector

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pawprint/leakwatch/internal/catalog"
	"github.com/pawprint/leakwatch/internal/fetcher"
	"github.com/pawprint/leakwatch/internal/model"
)

// thumbnailWorkers bounds concurrent thumbnail lookups per source.
const thumbnailWorkers = 4

// Collector fetches and normalizes candidate items for catalog sources.
type Collector struct {
	client *fetcher.Client
	cat    *catalog.Catalog
	now    func() time.Time
}

// New creates a Collector.
func New(client *fetcher.Client, cat *catalog.Catalog) *Collector {
	return &Collector{client: client, cat: cat, now: time.Now}
}

// Collect fetches all candidate items for one source. A developer profile
// that no longer exists yields an empty slice and no error.
func (c *Collector) Collect(ctx context.Context, src model.SourceDescriptor) ([]model.Item, error) {
	switch src.Kind {
	case model.SourceKindDeveloper:
		return c.collectDeveloper(ctx, src)
	case model.SourceKindGroup:
		return c.collectGroup(ctx, src)
	case model.SourceKindKeyword:
		return c.collectKeyword(ctx, src)
	case model.SourceKindGame:
		return c.collectGame(ctx, src)
	default:
		return nil, eris.Errorf("collector: unknown source kind %q", src.Kind)
	}
}

func (c *Collector) collectDeveloper(ctx context.Context, src model.SourceDescriptor) ([]model.Item, error) {
	// Existence check first: a deleted or banned profile is not an error,
	// just an empty source this cycle.
	var profile userProfileResponse
	err := c.client.GetJSON(ctx, catalog.UserProfileURL(src.ID), &profile)
	if err != nil {
		if fetcher.IsNotFound(err) {
			zap.L().Info("developer profile not found, skipping",
				zap.String("developer_id", src.ID),
			)
			return nil, nil
		}
		return nil, eris.Wrapf(err, "collector: developer %s profile", src.ID)
	}
	if profile.IsBanned {
		zap.L().Info("developer is banned, skipping", zap.String("developer_id", src.ID))
		return nil, nil
	}

	creatorName := profile.Name
	if creatorName == "" {
		creatorName = src.DisplayName
	}

	var items []model.Item

	// Endpoint menu. Each call is independent; failures are logged and the
	// remaining endpoints still run.
	var badges badgeResponse
	if err := c.client.GetJSON(ctx, catalog.UserBadgesURL(src.ID), &badges); err != nil {
		zap.L().Warn("developer badges fetch failed",
			zap.String("developer_id", src.ID),
			zap.Error(err),
		)
	} else {
		items = append(items, c.normalizeBadges(badges, src.ID, creatorName)...)
	}

	var created catalogSearchResponse
	if err := c.client.GetJSON(ctx, catalog.CreatorAssetsURL(src.ID, "User"), &created); err != nil {
		zap.L().Warn("developer assets fetch failed",
			zap.String("developer_id", src.ID),
			zap.Error(err),
		)
	} else {
		for _, item := range c.normalizeCatalogHits(created) {
			item.CreatorID = src.ID
			item.CreatorName = creatorName
			items = append(items, item)
		}
	}

	c.attachThumbnails(ctx, items)
	return items, nil
}

func (c *Collector) collectGroup(ctx context.Context, src model.SourceDescriptor) ([]model.Item, error) {
	var created catalogSearchResponse
	if err := c.client.GetJSON(ctx, catalog.CreatorAssetsURL(src.ID, "Group"), &created); err != nil {
		return nil, eris.Wrapf(err, "collector: group %s assets", src.ID)
	}

	items := c.normalizeCatalogHits(created)
	for i := range items {
		if items[i].CreatorID == "" {
			items[i].CreatorID = src.ID
		}
		if items[i].CreatorName == "" {
			items[i].CreatorName = src.DisplayName
		}
	}
	c.attachThumbnails(ctx, items)
	return items, nil
}

func (c *Collector) collectKeyword(ctx context.Context, src model.SourceDescriptor) ([]model.Item, error) {
	var hits catalogSearchResponse
	searchURL := catalog.CatalogSearchURL(url.QueryEscape(src.ID))
	if err := c.client.GetJSON(ctx, searchURL, &hits); err != nil {
		return nil, eris.Wrapf(err, "collector: keyword %q search", src.ID)
	}

	items := c.normalizeCatalogHits(hits)
	for i := range items {
		items[i].Tags = append(items[i].Tags, "keyword:"+src.ID)
	}
	c.attachThumbnails(ctx, items)
	return items, nil
}

func (c *Collector) collectGame(ctx context.Context, src model.SourceDescriptor) ([]model.Item, error) {
	var games gamesResponse
	if err := c.client.GetJSON(ctx, catalog.GamesInfoURL(src.ID), &games); err != nil {
		return nil, eris.Wrapf(err, "collector: game %s info", src.ID)
	}
	if len(games.Data) == 0 {
		zap.L().Warn("no game data returned", zap.String("game_id", src.ID))
		return nil, nil
	}
	game := games.Data[0]

	// Exactly one synthesized item represents "this game was updated". The
	// generated ID combines a type marker with the collection timestamp.
	update := model.Item{
		SourceType:  model.SourceTypePlaceUpdate,
		ExternalID:  "gs_" + base36Stamp(c.now()),
		Name:        game.Name + " Update",
		Description: "Last updated: " + game.Updated,
		CreatorID:   idString(game.Creator.ID),
		CreatorName: game.Creator.Name,
		Tags:        []string{"game-update"},
		ChangeKind:  model.ChangeKindUpdated,
		Metadata: map[string]any{
			"game_id":   src.ID,
			"game_name": game.Name,
			"updated":   game.Updated,
		},
		DiscoveredAt: c.now(),
	}

	// Icon is best-effort; a missing thumbnail never drops the item.
	var icons thumbnailResponse
	if err := c.client.GetJSON(ctx, catalog.GameIconsURL(src.ID), &icons); err != nil {
		zap.L().Warn("game icon fetch failed", zap.String("game_id", src.ID), zap.Error(err))
	} else if len(icons.Data) > 0 && icons.Data[0].State == "Completed" {
		update.ThumbnailURL = icons.Data[0].ImageURL
	}

	items := []model.Item{update}

	// The universe endpoint menu: passes, badges, and developer products all
	// hang off the game. Independent best-effort calls, like the developer menu.
	var passes gamePassResponse
	if err := c.client.GetJSON(ctx, catalog.GamePassesURL(src.ID), &passes); err != nil {
		zap.L().Warn("game passes fetch failed", zap.String("game_id", src.ID), zap.Error(err))
	} else {
		items = append(items, c.normalizeGamePasses(passes, src.ID)...)
	}

	var badges badgeResponse
	if err := c.client.GetJSON(ctx, catalog.UniverseBadgesURL(src.ID), &badges); err != nil {
		zap.L().Warn("universe badges fetch failed", zap.String("game_id", src.ID), zap.Error(err))
	} else {
		for _, item := range c.normalizeBadges(badges, update.CreatorID, update.CreatorName) {
			item.Metadata["game_id"] = src.ID
			items = append(items, item)
		}
	}

	var products devProductResponse
	if err := c.client.GetJSON(ctx, catalog.DeveloperProductsURL(src.ID), &products); err != nil {
		zap.L().Warn("developer products fetch failed", zap.String("game_id", src.ID), zap.Error(err))
	} else {
		items = append(items, c.normalizeDevProducts(products, src.ID)...)
	}

	return items, nil
}

// attachThumbnails fills ThumbnailURL for asset and badge items, best-effort
// and bounded. A failed lookup leaves the item without a thumbnail.
func (c *Collector) attachThumbnails(ctx context.Context, items []model.Item) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(thumbnailWorkers)

	for i := range items {
		if items[i].SourceType != model.SourceTypeAsset && items[i].SourceType != model.SourceTypeBadge {
			continue
		}
		g.Go(func() error {
			var thumbs thumbnailResponse
			if err := c.client.GetJSON(ctx, catalog.AssetThumbnailsURL(items[i].ExternalID), &thumbs); err != nil {
				zap.L().Debug("thumbnail fetch failed",
					zap.String("external_id", items[i].ExternalID),
					zap.Error(err),
				)
				return nil
			}
			if len(thumbs.Data) > 0 && thumbs.Data[0].State == "Completed" {
				items[i].ThumbnailURL = thumbs.Data[0].ImageURL
			}
			return nil
		})
	}
	_ = g.Wait()
}

func idString(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
