package lib

import (
	"context"

	"github.com/forkfeed/forkfeed/lib/models"
	"github.com/forkfeed/forkfeed/senders"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// notifyUser fans a notification out to every verified notifier of a user.
// Delivery failures are logged, not returned; notification fan-out never
// blocks the operation that triggered it.
func notifyUser(ctx context.Context, db *gorm.DB, log *zap.Logger, registry senders.Registry, userID uint, n senders.Notification) {
	var notifiers []models.Notifier
	tx := db.Where("user_id = ?", userID).Where("verified = ?", true).Find(&notifiers)
	if err := tx.Error; err != nil {
		log.Sugar().Errorw("Failed to load notifiers", "user_id", userID, "err", err)
		return
	}

	for _, notifier := range notifiers {
		sender, ok := registry[notifier.Platform]
		if !ok {
			log.Sugar().Warnf("unsupported notifier platform: %s", notifier.Platform)
			continue
		}
		id, err := sender.Send(ctx, &notifier, n)
		if err != nil {
			log.Sugar().Infow("Failed to send notification", "platform", notifier.Platform, "err", err)
		} else {
			log.Sugar().Infow("Sent notification", "platform", notifier.Platform, "message_id", id)
		}
	}
}
