package senders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	webpushgo "github.com/SherClockHolmes/webpush-go"
	"github.com/forkfeed/forkfeed/lib/models"
	"github.com/forkfeed/forkfeed/lib/webpush"
	"gorm.io/gorm"
)

type webpushSender struct {
	base
	db *gorm.DB
}

// Send delivers n to the push subscription the notifier points at, or to
// every stored subscription of the user when the notifier carries no
// endpoint. Endpoints that the push service reports as gone are pruned.
func (s *webpushSender) Send(ctx context.Context, notifier *models.Notifier, n Notification) (string, error) {
	query := s.db.Where("user_id = ?", notifier.UserID)
	if notifier.PlatformIdentifier != "" {
		query = query.Where("endpoint = ?", notifier.PlatformIdentifier)
	}

	var subs models.PushSubscriptions
	tx := query.Find(&subs)
	if err := tx.Error; err != nil {
		return "", err
	}
	if len(subs) == 0 {
		return "", nil
	}

	payload, err := json.Marshal(webpush.Payload{
		Notification: &webpush.PayloadNotification{
			Title: n.Title,
			NotificationOptions: webpush.NotificationOptions{
				Body: n.Body,
				Tag:  n.Tag,
				Data: &webpush.NotificationData{URL: n.URL},
			},
		},
	})
	if err != nil {
		return "", err
	}

	var sent, pruned int
	for _, sub := range subs {
		resp, err := webpushgo.SendNotification(payload, &webpushgo.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpushgo.Keys{
				P256dh: sub.P256dh,
				Auth:   sub.Auth,
			},
		}, &webpushgo.Options{
			HTTPClient:      &http.Client{Transport: s.transport},
			Subscriber:      s.cfg.Vapid.Subscriber,
			VAPIDPublicKey:  s.cfg.Vapid.PublicKey,
			VAPIDPrivateKey: s.cfg.Vapid.PrivateKey,
			TTL:             60 * 60 * 24,
		})
		if err != nil {
			s.log.Sugar().Errorw("Webpush delivery failed", "endpoint", sub.Endpoint, "err", err)
			continue
		}
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusNotFound, http.StatusGone:
			// The push service no longer knows this subscription.
			if tx := s.db.Unscoped().Delete(&sub); tx.Error != nil {
				s.log.Sugar().Errorw("Failed to prune dead subscription", "endpoint", sub.Endpoint, "err", tx.Error)
				continue
			}
			s.db.Unscoped().
				Where("user_id = ?", sub.UserID).
				Where("platform = ?", models.PlatformWebpush).
				Where("platform_identifier = ?", sub.Endpoint).
				Delete(&models.Notifier{})
			pruned++
		default:
			sent++
		}
	}

	return fmt.Sprintf("sent=%d pruned=%d", sent, pruned), nil
}
