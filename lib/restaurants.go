package lib

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forkfeed/forkfeed/config"
	"github.com/forkfeed/forkfeed/lib/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotRestaurantOwner = errors.New("restaurant does not belong to this user")

type restaurants struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
}

func (svc *restaurants) RegisterRestaurant(ctx context.Context, ownerID uint, name, cuisine, address string) (*models.Restaurant, error) {
	owner := models.User{}
	tx := svc.db.Where("id = ?", ownerID).First(&owner)
	if err := tx.Error; err != nil {
		return nil, err
	}
	if owner.Role != models.RoleOwner {
		return nil, fmt.Errorf("user %d is not a restaurant owner", ownerID)
	}

	restaurant := &models.Restaurant{
		OwnerID: ownerID,
		Name:    name,
		Cuisine: cuisine,
		Address: address,
	}
	tx = svc.db.Clauses(clause.Returning{}).Create(restaurant)
	if err := tx.Error; err != nil {
		return nil, err
	}

	svc.log.Sugar().Infof("Registered restaurant %v (%s) for owner %v", restaurant.ID, name, ownerID)
	return restaurant, nil
}

// BrowseRestaurants lists restaurants open to customers, excluding any that
// are currently suspended.
func (svc *restaurants) BrowseRestaurants(ctx context.Context) (models.Restaurants, error) {
	now := time.Now().UTC()

	var result models.Restaurants
	tx := svc.db.
		Where("suspended_until IS NULL OR suspended_until <= ?", now).
		Order("name").
		Find(&result)
	if err := tx.Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (svc *restaurants) OwnedRestaurants(ctx context.Context, ownerID uint) (models.Restaurants, error) {
	var result models.Restaurants
	tx := svc.db.Where("owner_id = ?", ownerID).Find(&result)
	if err := tx.Error; err != nil {
		return nil, err
	}
	return result, nil
}

// ownedRestaurant loads a restaurant and checks it belongs to ownerID.
func (svc *restaurants) ownedRestaurant(restaurantID, ownerID uint) (*models.Restaurant, error) {
	restaurant := models.Restaurant{}
	tx := svc.db.Where("id = ?", restaurantID).First(&restaurant)
	if err := tx.Error; err != nil {
		return nil, err
	}
	if restaurant.OwnerID != ownerID {
		return nil, ErrNotRestaurantOwner
	}
	return &restaurant, nil
}
