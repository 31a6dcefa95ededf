package catalog

import "fmt"

// Platform API endpoint templates. All endpoints are public and unauthenticated.
const (
	userProfileURL    = "https://users.roblox.com/v1/users/%s"
	userBadgesURL     = "https://badges.roblox.com/v1/users/%s/badges?limit=100&sortOrder=Desc"
	universeBadgesURL = "https://badges.roblox.com/v1/universes/%s/badges?limit=100&sortOrder=Asc"
	gamePassesURL     = "https://games.roblox.com/v1/games/%s/game-passes?limit=50&sortOrder=Asc"
	gamesInfoURL      = "https://games.roblox.com/v1/games?universeIds=%s"
	devProductsURL    = "https://apis.roblox.com/developer-products/v1/universes/%s/developerproducts?pageNumber=1&pageSize=50"
	catalogSearchURL  = "https://catalog.roblox.com/v1/search/items/details?Category=All&Keyword=%s&Limit=30&SortType=Recent"
	creatorAssetsURL  = "https://catalog.roblox.com/v1/search/items?category=All&creatorTargetId=%s&creatorType=%s&limit=30&sortType=RecentlyUpdated"
	assetThumbsURL    = "https://thumbnails.roblox.com/v1/assets?assetIds=%s&size=420x420&format=Png"
	gameIconsURL      = "https://thumbnails.roblox.com/v1/games/icons?universeIds=%s&size=512x512&format=Png"
)

// UserProfileURL returns the profile lookup endpoint for a developer ID.
func UserProfileURL(userID string) string {
	return fmt.Sprintf(userProfileURL, userID)
}

// UserBadgesURL returns the badge listing endpoint for a developer ID.
func UserBadgesURL(userID string) string {
	return fmt.Sprintf(userBadgesURL, userID)
}

// UniverseBadgesURL returns the badge listing endpoint for a universe ID.
func UniverseBadgesURL(universeID string) string {
	return fmt.Sprintf(universeBadgesURL, universeID)
}

// GamePassesURL returns the game-pass listing endpoint for a universe ID.
func GamePassesURL(universeID string) string {
	return fmt.Sprintf(gamePassesURL, universeID)
}

// GamesInfoURL returns the game metadata endpoint for a universe ID.
func GamesInfoURL(universeID string) string {
	return fmt.Sprintf(gamesInfoURL, universeID)
}

// DeveloperProductsURL returns the developer-product listing endpoint.
func DeveloperProductsURL(universeID string) string {
	return fmt.Sprintf(devProductsURL, universeID)
}

// CatalogSearchURL returns the marketplace search endpoint for a keyword.
// The keyword must already be URL-escaped.
func CatalogSearchURL(keyword string) string {
	return fmt.Sprintf(catalogSearchURL, keyword)
}

// CreatorAssetsURL returns the catalog listing for a creator.
// creatorType is "User" or "Group".
func CreatorAssetsURL(creatorID, creatorType string) string {
	return fmt.Sprintf(creatorAssetsURL, creatorID, creatorType)
}

// AssetThumbnailsURL returns the thumbnail endpoint for an asset ID.
func AssetThumbnailsURL(assetID string) string {
	return fmt.Sprintf(assetThumbsURL, assetID)
}

// GameIconsURL returns the icon endpoint for a universe ID.
func GameIconsURL(universeID string) string {
	return fmt.Sprintf(gameIconsURL, universeID)
}
