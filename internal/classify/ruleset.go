package classify

// Ruleset holds the keyword tables and thresholds the classifier evaluates.
// The defaults are tuned for the tracked game; ship a different Ruleset to
// track something else. The lists are data, not control flow.
type Ruleset struct {
	// GameKeywords are game-name variants scored in titles and descriptions.
	GameKeywords []string `yaml:"game_keywords"`
	// FeatureKeywords are secondary feature terms that only score when paired
	// with CoreNoun in the title (e.g. "huge" + "pet").
	FeatureKeywords []string `yaml:"feature_keywords"`
	CoreNoun        string   `yaml:"core_noun"`
	// StudioKeywords are studio/brand or founder names scored in descriptions.
	StudioKeywords []string `yaml:"studio_keywords"`
	// TagKeywords mark a tag as relevant; up to MaxScoredTags tags score.
	TagKeywords   []string `yaml:"tag_keywords"`
	MaxScoredTags int      `yaml:"max_scored_tags"`

	// HighValueKeywords force tier 1: content players act on immediately.
	HighValueKeywords []string `yaml:"high_value_keywords"`
	// TechnicalKeywords force tier 2: meshes, textures, audio, plumbing.
	TechnicalKeywords []string `yaml:"technical_keywords"`

	// VerifiedThreshold is the confidence score at which an item is verified.
	VerifiedThreshold int `yaml:"verified_threshold"`
}

// DefaultRuleset returns the keyword tables for Pet Simulator 99.
func DefaultRuleset() Ruleset {
	return Ruleset{
		GameKeywords:    []string{"pet simulator", "pet sim", "ps99"},
		FeatureKeywords: []string{"huge", "titanic"},
		CoreNoun:        "pet",
		StudioKeywords:  []string{"big games", "preston"},
		TagKeywords:     []string{"pet", "simulator", "ps99", "biggames"},
		MaxScoredTags:   3,
		HighValueKeywords: []string{
			"egg", "pet", "huge", "titanic", "exclusive", "event", "gamepass",
			"area", "zone", "world", "potion", "enchant", "minigame", "quest",
			"achievement", "leaderboard", "collection", "gift", "merchant", "shop",
		},
		TechnicalKeywords: []string{
			"mesh", "model", "texture", "audio", "animation", "script",
			"material", "particle", "effect", "ui", "gui", "icon",
			"sound", "music", "voice", "sfx", "config", "inventory", "marketplace",
			"server",
		},
		VerifiedThreshold: 50,
	}
}
