package classify

import (
	"fmt"
	"strings"

	"github.com/pawprint/leakwatch/internal/model"
)

// confidenceRule is one additive relevance signal. Score returns the points
// awarded (0 when the signal is absent) and a human-readable reason.
type confidenceRule struct {
	reason string
	score  func(c *Classifier, item model.Item) int
}

// confidenceRules are order-independent: the total is a plain sum.
var confidenceRules = []confidenceRule{
	{
		reason: "title contains game keywords",
		score: func(c *Classifier, item model.Item) int {
			title := strings.ToLower(item.Name)
			for _, kw := range c.rules.GameKeywords {
				if strings.Contains(title, kw) {
					return 30
				}
			}
			return 0
		},
	},
	{
		reason: "title references a signature feature",
		score: func(c *Classifier, item model.Item) int {
			title := strings.ToLower(item.Name)
			if c.rules.CoreNoun == "" || !strings.Contains(title, c.rules.CoreNoun) {
				return 0
			}
			for _, kw := range c.rules.FeatureKeywords {
				if strings.Contains(title, kw) {
					return 20
				}
			}
			return 0
		},
	},
	{
		reason: "description contains game keywords",
		score: func(c *Classifier, item model.Item) int {
			desc := strings.ToLower(item.Description)
			for _, kw := range c.rules.GameKeywords {
				if strings.Contains(desc, kw) {
					return 20
				}
			}
			return 0
		},
	},
	{
		reason: "description mentions the studio",
		score: func(c *Classifier, item model.Item) int {
			desc := strings.ToLower(item.Description)
			for _, kw := range c.rules.StudioKeywords {
				if strings.Contains(desc, kw) {
					return 15
				}
			}
			return 0
		},
	},
	{
		reason: "relevant tags",
		score: func(c *Classifier, item model.Item) int {
			matched := 0
			for _, tag := range item.Tags {
				lower := strings.ToLower(tag)
				for _, kw := range c.rules.TagKeywords {
					if strings.Contains(lower, kw) {
						matched++
						break
					}
				}
			}
			if matched > c.rules.MaxScoredTags {
				matched = c.rules.MaxScoredTags
			}
			return 15 * matched
		},
	},
	{
		reason: "linked to tracked game id",
		score: func(c *Classifier, item model.Item) int {
			if metaGameID(item) == c.gameID {
				return 50
			}
			return 0
		},
	},
	{
		reason: "created by a known developer",
		score: func(c *Classifier, item model.Item) int {
			id := item.CreatorID
			if id == "" {
				id = item.MetaString("developer_id")
			}
			if id != "" && c.isKnownDev(id) {
				return 40
			}
			return 0
		},
	},
}

// metaGameID reads the game ID out of item metadata, tolerating both string
// and numeric encodings.
func metaGameID(item model.Item) string {
	if s := item.MetaString("game_id"); s != "" {
		return s
	}
	if n, ok := item.MetaInt("game_id"); ok {
		return fmt.Sprintf("%d", n)
	}
	return ""
}

func (c *Classifier) confidence(item model.Item) (int, []string) {
	total := 0
	var reasons []string
	for _, rule := range confidenceRules {
		if pts := rule.score(c, item); pts > 0 {
			total += pts
			reasons = append(reasons, rule.reason)
		}
	}
	return total, reasons
}
