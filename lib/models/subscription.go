package models

import (
	"gorm.io/gorm"
)

// PushSubscription is a stored copy of a browser push subscription. The
// platform push service owns the real credential; we only hold the endpoint
// and keys needed to address it.
type PushSubscription struct {
	gorm.Model
	UserID   uint   `gorm:"index"`
	Endpoint string `gorm:"uniqueIndex"`
	P256dh   string
	Auth     string
	// VapidKey records the public key the subscription was created against.
	// Rotating the server keypair invalidates these rows; clients must
	// re-subscribe with the new key.
	VapidKey string

	User User
}

type PushSubscriptions []PushSubscription
