package lib

import (
	"context"
	"errors"

	"github.com/forkfeed/forkfeed/config"
	"github.com/forkfeed/forkfeed/lib/models"
	"github.com/forkfeed/forkfeed/lib/webpush"
	"github.com/forkfeed/forkfeed/senders"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type pushSubs struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *gorm.DB
	senders senders.Registry
}

// VapidPublicKey is handed to clients for their applicationServerKey.
func (svc *pushSubs) VapidPublicKey() string {
	return svc.cfg.Vapid.PublicKey
}

// SavePushSubscription upserts a subscription by endpoint and makes sure
// the user has a webpush notifier. The notifier is verified immediately:
// holding a platform subscription is itself proof of the channel.
func (svc *pushSubs) SavePushSubscription(ctx context.Context, userID uint, sub webpush.Subscription) (*models.PushSubscription, error) {
	if sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return nil, errors.New("subscription is missing endpoint or keys")
	}

	record := &models.PushSubscription{
		UserID:   userID,
		Endpoint: sub.Endpoint,
		P256dh:   sub.Keys.P256dh,
		Auth:     sub.Keys.Auth,
		VapidKey: svc.cfg.Vapid.PublicKey,
	}
	tx := svc.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth", "vapid_key"}),
	}).Create(record)
	if err := tx.Error; err != nil {
		return nil, err
	}

	notifier := &models.Notifier{
		UserID:             userID,
		Platform:           models.PlatformWebpush,
		PlatformIdentifier: sub.Endpoint,
		Verified:           true,
	}
	tx = svc.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "platform"}, {Name: "platform_identifier"}},
		DoNothing: true,
	}).Create(notifier)
	if err := tx.Error; err != nil {
		return nil, err
	}

	svc.log.Sugar().Infow("Stored push subscription", "user_id", userID, "endpoint", sub.Endpoint)
	return record, nil
}

// RemovePushSubscription forgets one endpoint of a user, along with the
// notifier that pointed at it.
func (svc *pushSubs) RemovePushSubscription(ctx context.Context, userID uint, endpoint string) error {
	tx := svc.db.Unscoped().
		Where("user_id = ?", userID).
		Where("endpoint = ?", endpoint).
		Delete(&models.PushSubscription{})
	if tx.Error != nil {
		return tx.Error
	}

	tx = svc.db.Unscoped().
		Where("user_id = ?", userID).
		Where("platform = ?", models.PlatformWebpush).
		Where("platform_identifier = ?", endpoint).
		Delete(&models.Notifier{})
	return tx.Error
}

// SendTestNotification pushes a test message to every subscription of the
// user, bypassing the notifier fan-out so it exercises webpush alone.
func (svc *pushSubs) SendTestNotification(ctx context.Context, userID uint) error {
	sender, ok := svc.senders[models.PlatformWebpush]
	if !ok {
		return errors.New("webpush sender is not configured")
	}

	id, err := sender.Send(ctx, &models.Notifier{UserID: userID, Platform: models.PlatformWebpush}, senders.Notification{
		Title: "Forkfeed test notification",
		Body:  "Push notifications are working.",
		URL:   svc.cfg.ServerDNS,
		Tag:   "test",
	})
	if err != nil {
		svc.log.Sugar().Infow("Test notification failed", "user_id", userID, "err", err)
		return err
	}
	svc.log.Sugar().Infow("Sent test notification", "user_id", userID, "result", id)
	return nil
}
