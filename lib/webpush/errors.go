// Package webpush implements the client half of the push-notification
// contract: decoding the server's VAPID public key, negotiating browser
// permission, establishing a platform push subscription and persisting it
// server-side, and the background worker that renders delivered payloads.
//
// Browser primitives are injected through the Platform interfaces so the
// subscription state machine stays testable outside a browser runtime.
package webpush

import (
	"errors"
	"fmt"

	"github.com/zeebo/errs"
)

var (
	// ErrUnsupportedPlatform means the runtime lacks notification or
	// service-worker support. There is no retry path.
	ErrUnsupportedPlatform = errs.Class("platform unsupported")

	// ErrKeyDecode means the server-supplied VAPID key could not be decoded.
	ErrKeyDecode = errs.Class("vapid key decode")

	// ErrNotAuthenticated means the caller supplied no auth token.
	ErrNotAuthenticated = errs.Class("not authenticated")

	// ErrPermissionDenied means the user declined the notification prompt.
	// Re-attempting without a fresh user gesture will not succeed.
	ErrPermissionDenied = errs.Class("notification permission denied")

	// ErrSubscriptionCreate means the platform subscribe call failed.
	ErrSubscriptionCreate = errs.Class("subscription create")

	// ErrSubscriptionPersist means the subscription exists on the platform
	// but could not be persisted server-side. The platform subscription is
	// kept; a later attempt reuses it and only retries the persist.
	ErrSubscriptionPersist = errs.Class("subscription persist")

	// ErrPayload means a delivered push payload did not match the expected
	// notification shape.
	ErrPayload = errs.Class("push payload")
)

// GatewayError is returned for any non-2xx response from the notification
// endpoints. It carries the status and body verbatim for diagnosis.
type GatewayError struct {
	Status int
	Body   string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.Status, e.Body)
}

// AsGatewayError unwraps err down to a *GatewayError, if there is one.
func AsGatewayError(err error) (*GatewayError, bool) {
	var gerr *GatewayError
	ok := errors.As(err, &gerr)
	return gerr, ok
}
