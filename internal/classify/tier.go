package classify

import (
	"strings"

	"github.com/pawprint/leakwatch/internal/model"
)

// tierRule is one step of the tier assignment pipeline. Apply receives the
// tier assigned so far and returns the (possibly unchanged) tier. Rules run
// in declaration order; later rules may override earlier ones, and the
// explicit-priority rule runs last so it wins over every heuristic.
type tierRule struct {
	name  string
	apply func(c *Classifier, item model.Item, tier int) int
}

var tierRules = []tierRule{
	{
		name: "high-value keywords",
		apply: func(c *Classifier, item model.Item, tier int) int {
			if matchesAny(item, c.rules.HighValueKeywords) {
				return 1
			}
			return tier
		},
	},
	{
		name: "technical-asset keywords",
		apply: func(c *Classifier, item model.Item, tier int) int {
			if tier == 1 {
				return tier
			}
			if matchesAny(item, c.rules.TechnicalKeywords) {
				return 2
			}
			return tier
		},
	},
	{
		name: "blog posts need extractable content",
		apply: func(c *Classifier, item model.Item, tier int) int {
			if !item.MetaBool("blog_post") {
				return tier
			}
			hasContent := item.MetaString("url") != "" ||
				item.MetaString("content") != "" ||
				item.MetaString("link") != ""
			if item.MetaBool("official") && hasContent {
				return 1
			}
			return 2
		},
	},
	{
		name: "developer changes need structured details",
		apply: func(c *Classifier, item model.Item, tier int) int {
			if !item.MetaBool("is_developer_change") {
				return tier
			}
			if item.MetaString("changes") != "" || item.MetaString("details") != "" {
				return 1
			}
			return 2
		},
	},
	{
		name: "marketplace is never urgent",
		apply: func(c *Classifier, item model.Item, tier int) int {
			if containsAny(item, "marketplace") {
				return 2
			}
			return tier
		},
	},
	{
		name: "server configuration is never urgent",
		apply: func(c *Classifier, item model.Item, tier int) int {
			if containsAny(item, "server/config", "config", "configuration") {
				return 2
			}
			return tier
		},
	},
	{
		name: "explicit metadata priority wins",
		apply: func(c *Classifier, item model.Item, tier int) int {
			if p, ok := item.MetaInt("priority"); ok && p >= 1 && p <= 3 {
				return p
			}
			return tier
		},
	},
}

// matchesAny checks name, path, and source type against a keyword list.
func matchesAny(item model.Item, keywords []string) bool {
	name := strings.ToLower(item.Name)
	path := strings.ToLower(item.Path)
	src := strings.ToLower(string(item.SourceType))
	for _, kw := range keywords {
		if strings.Contains(name, kw) || strings.Contains(path, kw) || strings.Contains(src, kw) {
			return true
		}
	}
	return false
}

func containsAny(item model.Item, keywords ...string) bool {
	return matchesAny(item, keywords)
}

func (c *Classifier) tier(item model.Item) int {
	tier := 3
	for _, rule := range tierRules {
		tier = rule.apply(c, item, tier)
	}
	return tier
}
