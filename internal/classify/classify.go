// Package classify scores candidate items for relevance to the tracked game
// and assigns each a priority tier. Both decisions are driven by ordered rule
// tables so the keyword sets can be swapped without touching control flow.
package classify

import (
	"github.com/rotisserie/eris"

	"github.com/pawprint/leakwatch/internal/model"
)

// Classifier evaluates candidate items against a Ruleset. Classify is a pure
// function of its input: the same item always yields the same result.
type Classifier struct {
	rules      Ruleset
	gameID     string
	isKnownDev func(id string) bool
}

// New creates a Classifier. isKnownDev reports registry membership for a
// creator ID; a nil func means no developer ever matches.
func New(rules Ruleset, gameID string, isKnownDev func(id string) bool) *Classifier {
	if rules.VerifiedThreshold <= 0 {
		rules.VerifiedThreshold = 50
	}
	if rules.MaxScoredTags <= 0 {
		rules.MaxScoredTags = 3
	}
	if isKnownDev == nil {
		isKnownDev = func(string) bool { return false }
	}
	return &Classifier{rules: rules, gameID: gameID, isKnownDev: isKnownDev}
}

// Classify scores item and assigns its tier. Items missing an external ID or
// carrying neither name nor description are rejected; the caller logs and
// drops them.
func (c *Classifier) Classify(item model.Item) (model.ClassifiedItem, error) {
	if item.ExternalID == "" {
		return model.ClassifiedItem{}, eris.New("classify: item has no external id")
	}
	if item.Name == "" && item.Description == "" {
		return model.ClassifiedItem{}, eris.Errorf("classify: item %s has no name or description", item.ExternalID)
	}

	confidence, reasons := c.confidence(item)
	return model.ClassifiedItem{
		Item: item,
		Classification: model.Classification{
			Confidence: confidence,
			Verified:   confidence >= c.rules.VerifiedThreshold,
			Tier:       c.tier(item),
			Reasons:    reasons,
		},
	}, nil
}
