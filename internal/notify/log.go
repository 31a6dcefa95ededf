package notify

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogNotifier writes notifications to the application log instead of a chat
// channel. Used when no webhook is configured.
type LogNotifier struct{}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Ready() bool { return true }

func (n *LogNotifier) SendImmediate(ctx context.Context, msg Message) (string, error) {
	zap.L().Info("notification",
		zap.String("title", msg.Title),
		zap.Int("tier", msg.Tier),
		zap.String("description", msg.Description),
	)
	return uuid.NewString(), nil
}

func (n *LogNotifier) SendBatchSummary(ctx context.Context, summary BatchSummary) (string, error) {
	zap.L().Info("batch notification",
		zap.String("batch_id", summary.BatchID),
		zap.Int("total", summary.Total),
		zap.Int("tier2", summary.Tier2Count),
		zap.Int("tier3", summary.Tier3Count),
	)
	return uuid.NewString(), nil
}
