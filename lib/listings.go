package lib

import (
	"context"

	"github.com/forkfeed/forkfeed/config"
	"github.com/forkfeed/forkfeed/lib/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type listings struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
}

func (svc *listings) CreateListing(ctx context.Context, ownerID, restaurantID uint, name, description string, priceCents int64) (*models.Listing, error) {
	if err := svc.checkOwnership(restaurantID, ownerID); err != nil {
		return nil, err
	}

	listing := &models.Listing{
		RestaurantID: restaurantID,
		Name:         name,
		Description:  description,
		PriceCents:   priceCents,
		Available:    true,
	}
	tx := svc.db.Clauses(clause.Returning{}).Create(listing)
	if err := tx.Error; err != nil {
		return nil, err
	}

	svc.log.Sugar().Infof("Created listing %v (%s) on restaurant %v", listing.ID, name, restaurantID)
	return listing, nil
}

func (svc *listings) SetListingAvailability(ctx context.Context, ownerID, listingID uint, available bool) error {
	listing := models.Listing{}
	tx := svc.db.Where("id = ?", listingID).First(&listing)
	if err := tx.Error; err != nil {
		return err
	}
	if err := svc.checkOwnership(listing.RestaurantID, ownerID); err != nil {
		return err
	}

	tx = svc.db.Model(&listing).Update("available", available)
	return tx.Error
}

// RestaurantListings lists what a customer can order from a restaurant.
func (svc *listings) RestaurantListings(ctx context.Context, restaurantID uint) (models.Listings, error) {
	var result models.Listings
	tx := svc.db.
		Where("restaurant_id = ?", restaurantID).
		Where("available = ?", true).
		Order("name").
		Find(&result)
	if err := tx.Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (svc *listings) checkOwnership(restaurantID, ownerID uint) error {
	restaurant := models.Restaurant{}
	tx := svc.db.Where("id = ?", restaurantID).First(&restaurant)
	if err := tx.Error; err != nil {
		return err
	}
	if restaurant.OwnerID != ownerID {
		return ErrNotRestaurantOwner
	}
	return nil
}
