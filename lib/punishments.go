package lib

import (
	"context"
	"fmt"
	"time"

	"github.com/forkfeed/forkfeed/config"
	"github.com/forkfeed/forkfeed/lib/models"
	"github.com/forkfeed/forkfeed/senders"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type punishments struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *gorm.DB
	senders senders.Registry
}

// IssuePunishment records a punishment against a restaurant. A suspension
// also blocks ordering until the expiry; suspensions lapse on their own, no
// job un-suspends them.
func (svc *punishments) IssuePunishment(ctx context.Context, supportID, restaurantID uint, kind models.PunishmentKind, reason string, duration time.Duration) (*models.Punishment, error) {
	support := models.User{}
	tx := svc.db.Where("id = ?", supportID).First(&support)
	if err := tx.Error; err != nil {
		return nil, err
	}
	if support.Role != models.RoleSupport {
		return nil, ErrNotSupport
	}

	restaurant := models.Restaurant{}
	tx = svc.db.Where("id = ?", restaurantID).First(&restaurant)
	if err := tx.Error; err != nil {
		return nil, err
	}

	expiry := time.Now().UTC().Add(duration)
	punishment := &models.Punishment{
		IssuedByID:   supportID,
		RestaurantID: restaurantID,
		Kind:         kind,
		Reason:       reason,
		Expiry:       expiry,
	}
	tx = svc.db.Clauses(clause.Returning{}).Create(punishment)
	if err := tx.Error; err != nil {
		return nil, err
	}

	if kind == models.PunishmentSuspension {
		tx = svc.db.Model(&restaurant).Update("suspended_until", expiry)
		if err := tx.Error; err != nil {
			return nil, err
		}
	}

	notifyUser(ctx, svc.db, svc.log, svc.senders, restaurant.OwnerID, senders.Notification{
		Title: fmt.Sprintf("%s received a %s", restaurant.Name, kind),
		Body:  reason,
		URL:   fmt.Sprintf("%s/dashboard/restaurants/%d/punishments", svc.cfg.ServerDNS, restaurantID),
		Tag:   "punishment",
	})

	svc.log.Sugar().Infof("Issued %s against restaurant %v, expires %s", kind, restaurantID, expiry.Format(time.RFC3339))
	return punishment, nil
}

func (svc *punishments) RestaurantPunishments(ctx context.Context, restaurantID uint) (models.Punishments, error) {
	var result models.Punishments
	tx := svc.db.
		Where("restaurant_id = ?", restaurantID).
		Order("created_at desc").
		Find(&result)
	if err := tx.Error; err != nil {
		return nil, err
	}
	return result, nil
}
