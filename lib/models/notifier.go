package models

import (
	"time"

	"gorm.io/gorm"
)

// Notifier is one delivery channel of a user. A user has at most one
// notifier per (platform, identifier) pair; re-registering the same
// channel must not create a second row.
type Notifier struct {
	gorm.Model
	UserID             uint `gorm:"uniqueIndex:idx_notifier_identity"`
	Verified           bool
	Platform           Platform `gorm:"uniqueIndex:idx_notifier_identity"`
	PlatformIdentifier string   `gorm:"uniqueIndex:idx_notifier_identity"`
}

type NotifierConfirmation struct {
	NotifierID uint
	Nonce      string `gorm:"uniqueIndex"`
	Expiry     time.Time

	Notifier Notifier
}
