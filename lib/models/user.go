package models

import (
	"database/sql"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email        string `gorm:"unique"`
	PasswordHash string
	Role         Role
	LastLoginAt  sql.NullTime

	Notifiers   []Notifier
	Restaurants []Restaurant `gorm:"foreignKey:OwnerID"`
}
