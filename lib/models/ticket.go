package models

import (
	"time"

	"gorm.io/gorm"
)

type Ticket struct {
	gorm.Model
	ReporterID   uint `gorm:"index"`
	RestaurantID uint `gorm:"index"`
	Subject      string
	Body         string
	Status       TicketStatus
	Resolution   string

	Reporter   User `gorm:"foreignKey:ReporterID"`
	Restaurant Restaurant
}

type Tickets []Ticket

type Punishment struct {
	gorm.Model
	IssuedByID   uint
	RestaurantID uint `gorm:"index"`
	Kind         PunishmentKind
	Reason       string
	Expiry       time.Time

	IssuedBy   User `gorm:"foreignKey:IssuedByID"`
	Restaurant Restaurant
}

type Punishments []Punishment

func (p *Punishment) ActiveAt(now time.Time) bool {
	return p.Expiry.After(now)
}
