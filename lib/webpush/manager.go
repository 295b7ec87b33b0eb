package webpush

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultWorkerPath is where the background worker script is served. Push
// platforms require it to be same-origin and root-scoped for subscriptions
// to remain valid.
const DefaultWorkerPath = "/service-worker.js"

// State tracks progress of the subscription handshake.
type State int

const (
	StateUninitialized State = iota
	StateKeyFetched
	StatePermissionPending
	StateRegistered
	StateSubscribed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateKeyFetched:
		return "key-fetched"
	case StatePermissionPending:
		return "permission-pending"
	case StateRegistered:
		return "registered"
	case StateSubscribed:
		return "subscribed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Manager drives the push subscription handshake against an injected
// Platform. Construct exactly one per application; the composition root
// owns the instance rather than a module-level static.
type Manager struct {
	log        *zap.Logger
	gateway    *Gateway
	platform   Platform
	gate       *PermissionGate
	workerPath string

	initFlight singleflight.Group

	mu       sync.Mutex
	state    State
	failure  error
	vapidKey string
}

func NewManager(log *zap.Logger, gateway *Gateway, platform Platform) *Manager {
	return &Manager{
		log:        log,
		gateway:    gateway,
		platform:   platform,
		gate:       NewPermissionGate(platform),
		workerPath: DefaultWorkerPath,
		state:      StateUninitialized,
	}
}

// State reports the current state, and the failure reason when failed.
func (m *Manager) State() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.failure
}

// Permission exposes the gate's view of the platform permission, for
// display purposes.
func (m *Manager) Permission() Permission {
	return m.gate.Current()
}

// Initialize checks platform support and fetches the VAPID public key.
// Concurrent first-time callers share one in-flight fetch; once the key is
// cached, further calls are no-ops.
func (m *Manager) Initialize(ctx context.Context) error {
	_, err, _ := m.initFlight.Do("initialize", func() (any, error) {
		m.mu.Lock()
		if m.vapidKey != "" {
			// A failed attempt re-enters the machine from the cached key.
			if m.state == StateFailed {
				m.state = StateKeyFetched
				m.failure = nil
			}
			m.mu.Unlock()
			return nil, nil
		}
		m.mu.Unlock()

		if !m.platform.SupportsNotifications() || !m.platform.SupportsServiceWorkers() {
			return nil, m.fail(ErrUnsupportedPlatform.New("notifications or service workers unavailable"))
		}

		key, err := m.gateway.VapidPublicKey(ctx)
		if err != nil {
			return nil, m.fail(err)
		}

		m.mu.Lock()
		m.vapidKey = key
		m.state = StateKeyFetched
		m.failure = nil
		m.mu.Unlock()
		return nil, nil
	})
	return err
}

// Subscribe runs the full handshake: permission, worker registration,
// platform subscription, server-side persistence. Repeated calls converge
// on the same subscription because an existing platform subscription is
// always reused before a new one is created.
func (m *Manager) Subscribe(ctx context.Context, authToken string) (*Subscription, error) {
	if authToken == "" {
		return nil, ErrNotAuthenticated.New("auth token is required")
	}
	if err := m.Initialize(ctx); err != nil {
		return nil, err
	}

	m.setState(StatePermissionPending)
	granted, err := m.gate.Request(ctx)
	if err != nil {
		return nil, m.fail(ErrPermissionDenied.Wrap(err))
	}
	if !granted {
		return nil, m.fail(ErrPermissionDenied.New("user declined the notification prompt"))
	}

	reg, err := m.platform.RegisterWorker(ctx, m.workerPath)
	if err != nil {
		return nil, m.fail(ErrSubscriptionCreate.Wrap(err))
	}
	m.setState(StateRegistered)

	sub, err := reg.Subscription(ctx)
	if err != nil {
		return nil, m.fail(ErrSubscriptionCreate.Wrap(err))
	}
	if sub == nil {
		// A key that fails decoding must abort before the platform call.
		rawKey, err := DecodeVapidKey(m.cachedKey())
		if err != nil {
			return nil, m.fail(err)
		}
		sub, err = reg.Subscribe(ctx, SubscribeOptions{
			UserVisibleOnly:      true,
			ApplicationServerKey: rawKey,
		})
		if err != nil {
			return nil, m.fail(ErrSubscriptionCreate.Wrap(err))
		}
	}

	if err := m.gateway.Subscribe(ctx, sub, authToken); err != nil {
		// The platform subscription is not rolled back; the next attempt
		// finds it and only retries the persist.
		return nil, m.fail(ErrSubscriptionPersist.Wrap(err))
	}

	m.setState(StateSubscribed)
	m.log.Sugar().Infow("Push subscription established", "endpoint", sub.Endpoint)
	return sub, nil
}

// SendTest asks the server to deliver a test notification. Failures are
// reported but do not change subscription state.
func (m *Manager) SendTest(ctx context.Context, authToken string) error {
	if authToken == "" {
		return ErrNotAuthenticated.New("auth token is required")
	}
	if err := m.gateway.SendTest(ctx, authToken); err != nil {
		m.log.Sugar().Infow("Test notification failed", "err", err)
		return err
	}
	return nil
}

func (m *Manager) cachedKey() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vapidKey
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) fail(err error) error {
	m.mu.Lock()
	m.state = StateFailed
	m.failure = err
	m.mu.Unlock()
	m.log.Sugar().Errorw("Push subscription failed", "err", err)
	return err
}
