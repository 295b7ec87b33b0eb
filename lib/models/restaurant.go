package models

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
)

type Restaurant struct {
	gorm.Model
	OwnerID        uint
	Name           string `gorm:"index"`
	Cuisine        string
	Address        string
	SuspendedUntil sql.NullTime

	Owner    User `gorm:"foreignKey:OwnerID"`
	Listings []Listing
}

type Restaurants []Restaurant

func (r *Restaurant) SuspendedAt(now time.Time) bool {
	return r.SuspendedUntil.Valid && r.SuspendedUntil.Time.After(now)
}

type Listing struct {
	gorm.Model
	RestaurantID uint `gorm:"index"`
	Name         string
	Description  string
	PriceCents   int64
	Available    bool

	Restaurant Restaurant
}

type Listings []Listing
