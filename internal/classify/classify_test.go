package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawprint/leakwatch/internal/model"
)

const trackedGameID = "3317771874"

func newTestClassifier() *Classifier {
	known := map[string]bool{"19717956": true}
	return New(DefaultRuleset(), trackedGameID, func(id string) bool { return known[id] })
}

func TestClassify_HugePetLinkedToGame(t *testing.T) {
	c := newTestClassifier()

	ci, err := c.Classify(model.Item{
		SourceType:  model.SourceTypeAsset,
		ExternalID:  "12345",
		Name:        "Huge Dragon Pet",
		Description: "new huge pet simulator pet",
		Metadata:    map[string]any{"game_id": trackedGameID},
	})
	require.NoError(t, err)

	// 20 (huge + pet in title) + 20 (game keywords in description) + 50 (game id)
	assert.Equal(t, 90, ci.Confidence)
	assert.True(t, ci.Verified)
	assert.Equal(t, 1, ci.Tier, "pet is a high-value keyword")
	assert.Contains(t, ci.Reasons, "linked to tracked game id")
}

func TestClassify_TechnicalAudioFile(t *testing.T) {
	c := newTestClassifier()

	ci, err := c.Classify(model.Item{
		SourceType: model.SourceTypeAsset,
		ExternalID: "777",
		Name:       "background_music_01.mp3",
	})
	require.NoError(t, err)

	assert.Equal(t, 0, ci.Confidence)
	assert.False(t, ci.Verified)
	assert.Equal(t, 2, ci.Tier, "music matches the technical keyword set")
}

func TestClassify_Deterministic(t *testing.T) {
	c := newTestClassifier()
	item := model.Item{
		SourceType:  model.SourceTypeGamePass,
		ExternalID:  "42",
		Name:        "PS99 Exclusive Egg",
		Description: "big games event content",
		Tags:        []string{"pet", "simulator", "ps99", "biggames", "extra"},
	}

	first, err := c.Classify(item)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := c.Classify(item)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	// 30 (ps99 in title) + 15 (studio in description) + 45 (tags, capped at 3)
	assert.Equal(t, 90, first.Confidence)
	assert.Equal(t, 1, first.Tier)
}

func TestClassify_KnownDeveloper(t *testing.T) {
	c := newTestClassifier()

	ci, err := c.Classify(model.Item{
		SourceType: model.SourceTypeBadge,
		ExternalID: "99",
		Name:       "Secret Badge",
		CreatorID:  "19717956",
	})
	require.NoError(t, err)
	assert.Equal(t, 40, ci.Confidence)
	assert.False(t, ci.Verified)

	ci2, err := c.Classify(model.Item{
		SourceType: model.SourceTypeBadge,
		ExternalID: "99",
		Name:       "Secret Badge",
		CreatorID:  "1",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, ci2.Confidence)
}

func TestClassify_DeveloperIDFromMetadata(t *testing.T) {
	c := newTestClassifier()

	ci, err := c.Classify(model.Item{
		SourceType: model.SourceTypeAsset,
		ExternalID: "5",
		Name:       "untitled",
		Metadata:   map[string]any{"developer_id": "19717956"},
	})
	require.NoError(t, err)
	assert.Equal(t, 40, ci.Confidence)
}

func TestClassify_NumericGameIDMetadata(t *testing.T) {
	c := newTestClassifier()

	ci, err := c.Classify(model.Item{
		SourceType: model.SourceTypePlaceUpdate,
		ExternalID: "gs_abc",
		Name:       "Game Update",
		Metadata:   map[string]any{"game_id": float64(3317771874)},
	})
	require.NoError(t, err)
	assert.Equal(t, 50, ci.Confidence)
	assert.True(t, ci.Verified)
}

func TestTier_MarketplaceForcedToTwo(t *testing.T) {
	c := newTestClassifier()

	ci, err := c.Classify(model.Item{
		SourceType: model.SourceTypeAsset,
		ExternalID: "8",
		Name:       "Exclusive Egg",
		Path:       "marketplace/listings/egg",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, ci.Tier, "marketplace overrides the high-value match")
}

func TestTier_ServerConfigForcedToTwo(t *testing.T) {
	c := newTestClassifier()

	ci, err := c.Classify(model.Item{
		SourceType: model.SourceTypeAsset,
		ExternalID: "9",
		Name:       "event zones",
		Path:       "server/config/zones.json",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, ci.Tier)
}

func TestTier_BlogPostOverride(t *testing.T) {
	c := newTestClassifier()

	official, err := c.Classify(model.Item{
		SourceType: model.SourceTypeAsset,
		ExternalID: "10",
		Name:       "dev update post",
		Metadata: map[string]any{
			"blog_post": true,
			"official":  true,
			"url":       "https://example.com/post",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, official.Tier)

	unofficial, err := c.Classify(model.Item{
		SourceType: model.SourceTypeAsset,
		ExternalID: "11",
		Name:       "dev update post",
		Metadata:   map[string]any{"blog_post": true},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, unofficial.Tier, "blog posts without extractable content demote")
}

func TestTier_DeveloperChangeOverride(t *testing.T) {
	c := newTestClassifier()

	structured, err := c.Classify(model.Item{
		SourceType: model.SourceTypeAsset,
		ExternalID: "12",
		Name:       "profile rename",
		Metadata: map[string]any{
			"is_developer_change": true,
			"changes":             "display name changed",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, structured.Tier)

	bare, err := c.Classify(model.Item{
		SourceType: model.SourceTypeAsset,
		ExternalID: "13",
		Name:       "profile rename",
		Metadata:   map[string]any{"is_developer_change": true},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, bare.Tier)
}

func TestTier_ExplicitPriorityWins(t *testing.T) {
	c := newTestClassifier()

	ci, err := c.Classify(model.Item{
		SourceType: model.SourceTypeAsset,
		ExternalID: "14",
		Name:       "Huge Exclusive Egg",
		Metadata:   map[string]any{"priority": 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, ci.Tier, "explicit priority overrides every heuristic")

	outOfRange, err := c.Classify(model.Item{
		SourceType: model.SourceTypeAsset,
		ExternalID: "15",
		Name:       "Huge Exclusive Egg",
		Metadata:   map[string]any{"priority": 9},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, outOfRange.Tier, "out-of-range priority is ignored")
}

func TestTier_DefaultIsThree(t *testing.T) {
	c := newTestClassifier()

	ci, err := c.Classify(model.Item{
		SourceType: model.SourceTypeDeveloperProduct,
		ExternalID: "16",
		Name:       "mystery thing",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, ci.Tier)
}

func TestClassify_RejectsInvalidItems(t *testing.T) {
	c := newTestClassifier()

	_, err := c.Classify(model.Item{Name: "no id"})
	assert.Error(t, err)

	_, err = c.Classify(model.Item{ExternalID: "17"})
	assert.Error(t, err)
}

func TestClassify_NilDeveloperLookup(t *testing.T) {
	c := New(DefaultRuleset(), trackedGameID, nil)

	ci, err := c.Classify(model.Item{
		SourceType: model.SourceTypeBadge,
		ExternalID: "18",
		Name:       "badge",
		CreatorID:  "19717956",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, ci.Confidence)
}
