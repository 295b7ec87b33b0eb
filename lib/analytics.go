package lib

import (
	"context"
	"time"

	"github.com/forkfeed/forkfeed/config"
	"github.com/forkfeed/forkfeed/lib/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type analytics struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
}

type ListingStat struct {
	ListingID uint
	Name      string
	Orders    int64
	Revenue   int64
}

type RestaurantAnalytics struct {
	Orders      int64
	Pending     int64
	Revenue     int64
	TopListings []ListingStat
}

// RestaurantAnalytics aggregates order volume and completed revenue for one
// restaurant since a cutoff.
func (svc *analytics) RestaurantAnalytics(ctx context.Context, ownerID, restaurantID uint, since time.Time) (*RestaurantAnalytics, error) {
	restaurant := models.Restaurant{}
	tx := svc.db.Where("id = ?", restaurantID).First(&restaurant)
	if err := tx.Error; err != nil {
		return nil, err
	}
	if restaurant.OwnerID != ownerID {
		return nil, ErrNotRestaurantOwner
	}

	result := &RestaurantAnalytics{}

	tx = svc.db.Model(&models.Order{}).
		Where("restaurant_id = ?", restaurantID).
		Where("created_at >= ?", since).
		Count(&result.Orders)
	if err := tx.Error; err != nil {
		return nil, err
	}

	tx = svc.db.Model(&models.Order{}).
		Where("restaurant_id = ?", restaurantID).
		Where("created_at >= ?", since).
		Where("status = ?", models.OrderPlaced).
		Count(&result.Pending)
	if err := tx.Error; err != nil {
		return nil, err
	}

	row := svc.db.Model(&models.Order{}).
		Where("restaurant_id = ?", restaurantID).
		Where("created_at >= ?", since).
		Where("status = ?", models.OrderCompleted).
		Select("coalesce(sum(total_cents), 0)").
		Row()
	if err := row.Scan(&result.Revenue); err != nil {
		return nil, err
	}

	tx = svc.db.Model(&models.Order{}).
		Select("orders.listing_id as listing_id, listings.name as name, count(*) as orders, coalesce(sum(orders.total_cents), 0) as revenue").
		Joins("inner join listings on listings.id = orders.listing_id").
		Where("orders.restaurant_id = ?", restaurantID).
		Where("orders.created_at >= ?", since).
		Where("orders.status = ?", models.OrderCompleted).
		Group("orders.listing_id, listings.name").
		Order("count(*) desc").
		Limit(5).
		Scan(&result.TopListings)
	if err := tx.Error; err != nil {
		return nil, err
	}

	return result, nil
}
