package webpush

import (
	"context"
)

// Permission mirrors the platform's notification permission state.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Keys are the cryptographic keys of a push subscription.
type Keys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription is the serialized form of a platform push subscription.
// The platform owns the credential; we only read and forward this copy.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	Keys     Keys   `json:"keys"`
}

// SubscribeOptions parameterize a platform subscribe call.
type SubscribeOptions struct {
	UserVisibleOnly      bool
	ApplicationServerKey []byte
}

// Registration is a registered background worker's handle to the platform
// push manager.
type Registration interface {
	// Subscription returns the existing push subscription, or (nil, nil)
	// when none exists.
	Subscription(ctx context.Context) (*Subscription, error)

	// Subscribe asks the platform to mint a new push subscription.
	Subscribe(ctx context.Context, opts SubscribeOptions) (*Subscription, error)
}

// Platform models the browser push runtime: feature detection, the
// permission prompt, and background worker registration.
type Platform interface {
	SupportsNotifications() bool
	SupportsServiceWorkers() bool

	// Permission returns the current permission without prompting.
	Permission() Permission

	// RequestPermission prompts the user, or returns the cached decision
	// immediately if one was already made.
	RequestPermission(ctx context.Context) (Permission, error)

	// RegisterWorker registers the background worker script. Registering an
	// already-registered script returns the existing registration.
	RegisterWorker(ctx context.Context, scriptPath string) (Registration, error)
}
