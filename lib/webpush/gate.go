package webpush

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// PermissionGate bridges to the platform's permission system. Overlapping
// Request calls share a single in-flight prompt instead of stacking prompts.
type PermissionGate struct {
	platform Platform
	flight   singleflight.Group
}

func NewPermissionGate(platform Platform) *PermissionGate {
	return &PermissionGate{platform: platform}
}

// Current returns the live permission, or PermissionDefault when the
// platform has no notification capability at all.
func (g *PermissionGate) Current() Permission {
	if !g.platform.SupportsNotifications() {
		return PermissionDefault
	}
	return g.platform.Permission()
}

// Request prompts the user and reports whether permission was granted.
func (g *PermissionGate) Request(ctx context.Context) (bool, error) {
	v, err, _ := g.flight.Do("request-permission", func() (any, error) {
		return g.platform.RequestPermission(ctx)
	})
	if err != nil {
		return false, err
	}
	return v.(Permission) == PermissionGranted, nil
}
