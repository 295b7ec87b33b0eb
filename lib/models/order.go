package models

import (
	"gorm.io/gorm"
)

type Order struct {
	gorm.Model
	CustomerID   uint `gorm:"index"`
	RestaurantID uint `gorm:"index"`
	ListingID    uint
	Quantity     int
	TotalCents   int64
	Status       OrderStatus

	Customer   User `gorm:"foreignKey:CustomerID"`
	Restaurant Restaurant
	Listing    Listing
}

type Orders []Order

// validTransitions holds the owner-driven order lifecycle.
var validTransitions = map[OrderStatus][]OrderStatus{
	OrderPlaced:   {OrderAccepted, OrderRejected},
	OrderAccepted: {OrderCompleted},
}

func (o *Order) CanTransition(next OrderStatus) bool {
	for _, s := range validTransitions[o.Status] {
		if s == next {
			return true
		}
	}
	return false
}
