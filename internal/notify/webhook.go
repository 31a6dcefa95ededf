package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Embed colors by tier: red for urgent, yellow for moderate, blue for minor
// and batch summaries.
var tierColors = map[int]int{
	1: 0xED4245,
	2: 0xFEE75C,
	3: 0x3498DB,
}

const batchColor = 0x3498DB

// WebhookNotifier sends notifications to a chat webhook URL.
type WebhookNotifier struct {
	webhookURL string
	client     *http.Client
	healthy    atomic.Bool
}

// NewWebhook creates a WebhookNotifier. An empty URL produces a notifier that
// is never ready; the scheduler then queues everything for later replay.
func NewWebhook(webhookURL string) *WebhookNotifier {
	n := &WebhookNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
	n.healthy.Store(webhookURL != "")
	return n
}

// Ready reports whether the webhook is configured and the last send worked.
func (n *WebhookNotifier) Ready() bool {
	return n.webhookURL != "" && n.healthy.Load()
}

// Probe marks the channel reachable again so queued deliveries retry.
// Called from the connectivity check loop.
func (n *WebhookNotifier) Probe() {
	if n.webhookURL != "" {
		n.healthy.Store(true)
	}
}

type webhookEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color"`
	Fields      []Field        `json:"fields,omitempty"`
	Thumbnail   *webhookImage  `json:"thumbnail,omitempty"`
	Footer      *webhookFooter `json:"footer,omitempty"`
	Timestamp   string         `json:"timestamp"`
}

type webhookImage struct {
	URL string `json:"url"`
}

type webhookFooter struct {
	Text string `json:"text"`
}

type webhookButton struct {
	Type     int    `json:"type"`
	Style    int    `json:"style"`
	Label    string `json:"label"`
	Emoji    any    `json:"emoji,omitempty"`
	CustomID string `json:"custom_id"`
}

type webhookActionRow struct {
	Type       int             `json:"type"`
	Components []webhookButton `json:"components"`
}

type webhookPayload struct {
	Embeds     []webhookEmbed     `json:"embeds"`
	Components []webhookActionRow `json:"components,omitempty"`
}

type webhookResponse struct {
	ID string `json:"id"`
}

// SendImmediate posts one tier-1 embed.
func (n *WebhookNotifier) SendImmediate(ctx context.Context, msg Message) (string, error) {
	color, ok := tierColors[msg.Tier]
	if !ok {
		color = batchColor
	}
	payload := webhookPayload{
		Embeds: []webhookEmbed{{
			Title:       msg.Title,
			Description: msg.Description,
			Color:       color,
			Fields:      msg.Fields,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		}},
	}
	if msg.ThumbnailURL != "" {
		payload.Embeds[0].Thumbnail = &webhookImage{URL: msg.ThumbnailURL}
	}
	return n.post(ctx, payload)
}

// SendBatchSummary posts the aggregated lower-tier embed with one button per
// non-empty category plus view-all and dismiss.
func (n *WebhookNotifier) SendBatchSummary(ctx context.Context, summary BatchSummary) (string, error) {
	var lines []string
	for _, category := range categoryOrder {
		if count := summary.CategoryCounts[category]; count > 0 {
			lines = append(lines, fmt.Sprintf("**%s**: %d files", CategoryLabel(category), count))
		}
	}
	// Categories outside the fixed taxonomy still get listed.
	var extra []string
	for category, count := range summary.CategoryCounts {
		if count > 0 && !contains(categoryOrder, category) {
			extra = append(extra, fmt.Sprintf("**%s**: %d files", CategoryLabel(category), count))
		}
	}
	sort.Strings(extra)
	lines = append(lines, extra...)

	desc := fmt.Sprintf(
		"The following types of updates have been found:\n\n%s\n\nTier breakdown:\n",
		strings.Join(lines, "\n"),
	)
	if summary.Tier2Count > 0 {
		desc += fmt.Sprintf("**🟡 Tier 2:** %d moderate importance items\n", summary.Tier2Count)
	}
	if summary.Tier3Count > 0 {
		desc += fmt.Sprintf("**🔵 Tier 3:** %d minor importance items\n", summary.Tier3Count)
	}
	desc += "\nSelect which category you'd like to view."

	var buttons []webhookButton
	for _, action := range summary.Actions {
		style := 1
		switch action.Style {
		case "success":
			style = 3
		case "secondary":
			style = 2
		}
		btn := webhookButton{Type: 2, Style: style, Label: action.Label, CustomID: action.ID}
		if action.Emoji != "" {
			btn.Emoji = map[string]string{"name": action.Emoji}
		}
		buttons = append(buttons, btn)
	}

	// Five buttons per row.
	var rows []webhookActionRow
	for i := 0; i < len(buttons); i += 5 {
		end := min(i+5, len(buttons))
		rows = append(rows, webhookActionRow{Type: 1, Components: buttons[i:end]})
	}

	payload := webhookPayload{
		Embeds: []webhookEmbed{{
			Title:       fmt.Sprintf("🔍 %d Less Important Game Updates", summary.Total),
			Description: desc,
			Color:       batchColor,
			Footer:      &webhookFooter{Text: "Use buttons below to view specific categories"},
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		}},
		Components: rows,
	}
	return n.post(ctx, payload)
}

func (n *WebhookNotifier) post(ctx context.Context, payload webhookPayload) (string, error) {
	if n.webhookURL == "" {
		return "", eris.New("notify: no webhook url configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", eris.Wrap(err, "notify: marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL+"?wait=true", bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "notify: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.healthy.Store(false)
		return "", eris.Wrap(err, "notify: post webhook")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		if resp.StatusCode >= 500 {
			n.healthy.Store(false)
		}
		return "", eris.Errorf("notify: webhook returned %d", resp.StatusCode)
	}

	n.healthy.Store(true)

	var wr webhookResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		// The message went out; a missing ID only limits later edits.
		zap.L().Debug("webhook response decode failed", zap.Error(err))
		return "", nil
	}
	return wr.ID, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
