package lib

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forkfeed/forkfeed/config"
	"github.com/forkfeed/forkfeed/lib/models"
	"github.com/forkfeed/forkfeed/senders"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrListingUnavailable  = errors.New("listing is not available")
	ErrRestaurantSuspended = errors.New("restaurant is suspended")
)

type orders struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *gorm.DB
	senders senders.Registry
}

func (svc *orders) PlaceOrder(ctx context.Context, customerID, listingID uint, quantity int) (*models.Order, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	listing := models.Listing{}
	tx := svc.db.Where("listings.id = ?", listingID).InnerJoins("Restaurant").First(&listing)
	if err := tx.Error; err != nil {
		return nil, err
	}
	if !listing.Available {
		return nil, ErrListingUnavailable
	}
	if listing.Restaurant.SuspendedAt(time.Now().UTC()) {
		return nil, ErrRestaurantSuspended
	}

	order := &models.Order{
		CustomerID:   customerID,
		RestaurantID: listing.RestaurantID,
		ListingID:    listing.ID,
		Quantity:     quantity,
		TotalCents:   listing.PriceCents * int64(quantity),
		Status:       models.OrderPlaced,
	}
	tx = svc.db.Clauses(clause.Returning{}).Create(order)
	if err := tx.Error; err != nil {
		return nil, err
	}

	notifyUser(ctx, svc.db, svc.log, svc.senders, listing.Restaurant.OwnerID, senders.Notification{
		Title: fmt.Sprintf("New order at %s", listing.Restaurant.Name),
		Body:  fmt.Sprintf("%d × %s", quantity, listing.Name),
		URL:   fmt.Sprintf("%s/dashboard/orders/%d", svc.cfg.ServerDNS, order.ID),
		Tag:   "order",
	})

	svc.log.Sugar().Infof("Placed order %v: %d × listing %v", order.ID, quantity, listing.ID)
	return order, nil
}

// UpdateOrderStatus applies an owner-side status transition and notifies
// the customer.
func (svc *orders) UpdateOrderStatus(ctx context.Context, ownerID, orderID uint, status models.OrderStatus) (*models.Order, error) {
	order := models.Order{}
	tx := svc.db.
		Where("orders.id = ?", orderID).
		InnerJoins("Restaurant").
		InnerJoins("Listing").
		First(&order)
	if err := tx.Error; err != nil {
		return nil, err
	}
	if order.Restaurant.OwnerID != ownerID {
		return nil, ErrNotRestaurantOwner
	}
	if !order.CanTransition(status) {
		return nil, fmt.Errorf("cannot move order from %s to %s", order.Status, status)
	}

	tx = svc.db.Model(&order).Update("status", status)
	if err := tx.Error; err != nil {
		return nil, err
	}

	notifyUser(ctx, svc.db, svc.log, svc.senders, order.CustomerID, senders.Notification{
		Title: fmt.Sprintf("Order %s", status),
		Body:  fmt.Sprintf("Your order of %d × %s at %s is now %s.", order.Quantity, order.Listing.Name, order.Restaurant.Name, status),
		URL:   fmt.Sprintf("%s/orders/%d", svc.cfg.ServerDNS, order.ID),
		Tag:   "order",
	})

	return &order, nil
}

func (svc *orders) CustomerOrders(ctx context.Context, customerID uint) (models.Orders, error) {
	var result models.Orders
	tx := svc.db.
		Where("orders.customer_id = ?", customerID).
		InnerJoins("Listing").
		Order("orders.created_at desc").
		Find(&result)
	if err := tx.Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (svc *orders) RestaurantOrders(ctx context.Context, ownerID, restaurantID uint) (models.Orders, error) {
	restaurant := models.Restaurant{}
	tx := svc.db.Where("id = ?", restaurantID).First(&restaurant)
	if err := tx.Error; err != nil {
		return nil, err
	}
	if restaurant.OwnerID != ownerID {
		return nil, ErrNotRestaurantOwner
	}

	var result models.Orders
	tx = svc.db.
		Where("orders.restaurant_id = ?", restaurantID).
		InnerJoins("Listing").
		Order("orders.created_at desc").
		Find(&result)
	if err := tx.Error; err != nil {
		return nil, err
	}
	return result, nil
}
