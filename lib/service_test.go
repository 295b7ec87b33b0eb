package lib

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/forkfeed/forkfeed/config"
	"github.com/forkfeed/forkfeed/lib/models"
	"github.com/forkfeed/forkfeed/lib/webpush"
	"github.com/forkfeed/forkfeed/senders"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeSender struct {
	sent []sentNotification
	err  error
}

type sentNotification struct {
	userID       uint
	platform     models.Platform
	identifier   string
	notification senders.Notification
}

func (s *fakeSender) Send(ctx context.Context, notifier *models.Notifier, n senders.Notification) (string, error) {
	s.sent = append(s.sent, sentNotification{
		userID:       notifier.UserID,
		platform:     notifier.Platform,
		identifier:   notifier.PlatformIdentifier,
		notification: n,
	})
	return "fake-id", s.err
}

type fixture struct {
	svc     *Service
	db      *gorm.DB
	email   *fakeSender
	webpush *fakeSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:test-%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Notifier{},
		&models.NotifierConfirmation{},
		&models.Restaurant{},
		&models.Listing{},
		&models.Order{},
		&models.Ticket{},
		&models.Punishment{},
		&models.PushSubscription{},
	))

	cfg := &config.Config{ServerDNS: "http://localhost:8080"}
	cfg.Vapid.PublicKey = "test-public-key"

	email := &fakeSender{}
	wp := &fakeSender{}
	registry := senders.Registry{
		models.PlatformEmail:   email,
		models.PlatformWebpush: wp,
	}

	svc := NewService(nil, cfg, zaptest.NewLogger(t), db, registry)
	return &fixture{svc: svc, db: db, email: email, webpush: wp}
}

func (f *fixture) user(t *testing.T, email string, role models.Role) *models.User {
	t.Helper()
	user, err := f.svc.RegisterUser(context.Background(), email, "hunter22", role)
	require.NoError(t, err)

	// Verify the email notifier so fan-out reaches it.
	tx := f.db.Model(&models.Notifier{}).Where("user_id = ?", user.ID).Update("verified", true)
	require.NoError(t, tx.Error)
	return user
}

func (f *fixture) restaurant(t *testing.T, ownerID uint) *models.Restaurant {
	t.Helper()
	r, err := f.svc.RegisterRestaurant(context.Background(), ownerID, "Mama's", "italian", "1 Dough St")
	require.NoError(t, err)
	return r
}

func (f *fixture) listing(t *testing.T, ownerID, restaurantID uint, price int64) *models.Listing {
	t.Helper()
	l, err := f.svc.CreateListing(context.Background(), ownerID, restaurantID, "Margherita", "classic", price)
	require.NoError(t, err)
	return l
}

func TestRegisterUserAndVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.svc.RegisterUser(ctx, "owner@example.com", "hunter22", models.RoleOwner)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", user.PasswordHash)

	// The verification email carried the nonce.
	require.Len(t, f.email.sent, 1)

	confirm := models.NotifierConfirmation{}
	require.NoError(t, f.db.First(&confirm).Error)

	ok, err := f.svc.VerifyNotifier(ctx, confirm.Nonce)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.VerifyNotifier(ctx, "no-such-nonce")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "owner@example.com", models.RoleOwner)

	user, err := f.svc.Authenticate(ctx, "owner@example.com", "hunter22")
	require.NoError(t, err)
	assert.True(t, user.LastLoginAt.Valid)

	_, err = f.svc.Authenticate(ctx, "owner@example.com", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)

	_, err = f.svc.Authenticate(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestPlaceOrderNotifiesOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner@example.com", models.RoleOwner)
	customer := f.user(t, "customer@example.com", models.RoleCustomer)
	restaurant := f.restaurant(t, owner.ID)
	listing := f.listing(t, owner.ID, restaurant.ID, 1250)

	before := len(f.email.sent)
	order, err := f.svc.PlaceOrder(ctx, customer.ID, listing.ID, 2)
	require.NoError(t, err)

	assert.Equal(t, int64(2500), order.TotalCents)
	assert.Equal(t, models.OrderPlaced, order.Status)

	require.Len(t, f.email.sent, before+1)
	notified := f.email.sent[len(f.email.sent)-1]
	assert.Equal(t, owner.ID, notified.userID)
	assert.Contains(t, notified.notification.Title, "Mama's")
}

func TestPlaceOrderRejectsUnavailableListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner@example.com", models.RoleOwner)
	customer := f.user(t, "customer@example.com", models.RoleCustomer)
	restaurant := f.restaurant(t, owner.ID)
	listing := f.listing(t, owner.ID, restaurant.ID, 1250)

	require.NoError(t, f.svc.SetListingAvailability(ctx, owner.ID, listing.ID, false))

	_, err := f.svc.PlaceOrder(ctx, customer.ID, listing.ID, 1)
	assert.ErrorIs(t, err, ErrListingUnavailable)
}

func TestOrderStatusTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner@example.com", models.RoleOwner)
	customer := f.user(t, "customer@example.com", models.RoleCustomer)
	restaurant := f.restaurant(t, owner.ID)
	listing := f.listing(t, owner.ID, restaurant.ID, 1000)

	order, err := f.svc.PlaceOrder(ctx, customer.ID, listing.ID, 1)
	require.NoError(t, err)

	// Completing a placed order skips the accepted step.
	_, err = f.svc.UpdateOrderStatus(ctx, owner.ID, order.ID, models.OrderCompleted)
	require.Error(t, err)

	before := len(f.email.sent)
	accepted, err := f.svc.UpdateOrderStatus(ctx, owner.ID, order.ID, models.OrderAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.OrderAccepted, accepted.Status)

	// The customer hears about it.
	require.Len(t, f.email.sent, before+1)
	assert.Equal(t, customer.ID, f.email.sent[len(f.email.sent)-1].userID)

	// Only the owner can drive the lifecycle.
	_, err = f.svc.UpdateOrderStatus(ctx, customer.ID, order.ID, models.OrderCompleted)
	assert.ErrorIs(t, err, ErrNotRestaurantOwner)

	_, err = f.svc.UpdateOrderStatus(ctx, owner.ID, order.ID, models.OrderCompleted)
	require.NoError(t, err)
}

func TestSuspensionBlocksOrdersAndBrowse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner@example.com", models.RoleOwner)
	support := f.user(t, "support@example.com", models.RoleSupport)
	customer := f.user(t, "customer@example.com", models.RoleCustomer)
	restaurant := f.restaurant(t, owner.ID)
	listing := f.listing(t, owner.ID, restaurant.ID, 1000)

	before := len(f.email.sent)
	punishment, err := f.svc.IssuePunishment(ctx, support.ID, restaurant.ID, models.PunishmentSuspension, "health violations", 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, punishment.ActiveAt(time.Now().UTC()))

	// Owner was notified of the punishment.
	require.Len(t, f.email.sent, before+1)
	assert.Equal(t, owner.ID, f.email.sent[len(f.email.sent)-1].userID)

	_, err = f.svc.PlaceOrder(ctx, customer.ID, listing.ID, 1)
	assert.ErrorIs(t, err, ErrRestaurantSuspended)

	browsable, err := f.svc.BrowseRestaurants(ctx)
	require.NoError(t, err)
	assert.Empty(t, browsable)

	// Non-support users cannot punish.
	_, err = f.svc.IssuePunishment(ctx, customer.ID, restaurant.ID, models.PunishmentWarning, "nope", time.Hour)
	assert.ErrorIs(t, err, ErrNotSupport)
}

func TestWarningDoesNotSuspend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner@example.com", models.RoleOwner)
	support := f.user(t, "support@example.com", models.RoleSupport)
	restaurant := f.restaurant(t, owner.ID)

	_, err := f.svc.IssuePunishment(ctx, support.ID, restaurant.ID, models.PunishmentWarning, "late orders", 24*time.Hour)
	require.NoError(t, err)

	browsable, err := f.svc.BrowseRestaurants(ctx)
	require.NoError(t, err)
	assert.Len(t, browsable, 1)
}

func TestTicketLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner@example.com", models.RoleOwner)
	support := f.user(t, "support@example.com", models.RoleSupport)
	customer := f.user(t, "customer@example.com", models.RoleCustomer)
	restaurant := f.restaurant(t, owner.ID)

	ticket, err := f.svc.OpenTicket(ctx, customer.ID, restaurant.ID, "Cold food", "It arrived cold twice.")
	require.NoError(t, err)
	assert.Equal(t, models.TicketOpen, ticket.Status)

	open, err := f.svc.OpenTickets(ctx, support.ID)
	require.NoError(t, err)
	require.Len(t, open, 1)

	_, err = f.svc.OpenTickets(ctx, customer.ID)
	assert.ErrorIs(t, err, ErrNotSupport)

	// Resolving before review is not allowed.
	_, err = f.svc.ResolveTicket(ctx, support.ID, ticket.ID, "done")
	require.Error(t, err)

	_, err = f.svc.ReviewTicket(ctx, support.ID, ticket.ID)
	require.NoError(t, err)

	before := len(f.email.sent)
	resolved, err := f.svc.ResolveTicket(ctx, support.ID, ticket.ID, "Issued a warning to the restaurant.")
	require.NoError(t, err)
	_ = resolved

	// Reporter hears about the resolution.
	require.Len(t, f.email.sent, before+1)
	assert.Equal(t, customer.ID, f.email.sent[len(f.email.sent)-1].userID)
}

func TestAnalytics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner@example.com", models.RoleOwner)
	customer := f.user(t, "customer@example.com", models.RoleCustomer)
	restaurant := f.restaurant(t, owner.ID)
	pizza := f.listing(t, owner.ID, restaurant.ID, 1000)
	pasta := f.listing(t, owner.ID, restaurant.ID, 800)

	complete := func(listingID uint, qty int) {
		order, err := f.svc.PlaceOrder(ctx, customer.ID, listingID, qty)
		require.NoError(t, err)
		_, err = f.svc.UpdateOrderStatus(ctx, owner.ID, order.ID, models.OrderAccepted)
		require.NoError(t, err)
		_, err = f.svc.UpdateOrderStatus(ctx, owner.ID, order.ID, models.OrderCompleted)
		require.NoError(t, err)
	}
	complete(pizza.ID, 2)
	complete(pizza.ID, 1)
	complete(pasta.ID, 1)

	// One pending order on top.
	_, err := f.svc.PlaceOrder(ctx, customer.ID, pasta.ID, 1)
	require.NoError(t, err)

	since := time.Now().UTC().Add(-time.Hour)
	stats, err := f.svc.RestaurantAnalytics(ctx, owner.ID, restaurant.ID, since)
	require.NoError(t, err)

	assert.Equal(t, int64(4), stats.Orders)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(2000+1000+800), stats.Revenue)
	require.NotEmpty(t, stats.TopListings)
	assert.Equal(t, pizza.ID, stats.TopListings[0].ListingID)

	_, err = f.svc.RestaurantAnalytics(ctx, customer.ID, restaurant.ID, since)
	assert.ErrorIs(t, err, ErrNotRestaurantOwner)
}

func TestSavePushSubscriptionUpserts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "owner@example.com", models.RoleOwner)

	sub := webpush.Subscription{
		Endpoint: "https://push.example/abc",
		Keys:     webpush.Keys{P256dh: "x", Auth: "y"},
	}
	_, err := f.svc.SavePushSubscription(ctx, user.ID, sub)
	require.NoError(t, err)

	// Same endpoint again with rotated keys updates in place.
	sub.Keys.Auth = "z"
	_, err = f.svc.SavePushSubscription(ctx, user.ID, sub)
	require.NoError(t, err)

	var stored models.PushSubscriptions
	require.NoError(t, f.db.Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, "z", stored[0].Auth)
	assert.Equal(t, "test-public-key", stored[0].VapidKey)

	// A single webpush notifier was created, pre-verified; re-saving the
	// same endpoint must not grow the notifier set.
	var notifiers []models.Notifier
	require.NoError(t, f.db.Where("platform = ?", models.PlatformWebpush).Find(&notifiers).Error)
	require.Len(t, notifiers, 1)
	assert.True(t, notifiers[0].Verified)
	assert.Equal(t, sub.Endpoint, notifiers[0].PlatformIdentifier)

	require.NoError(t, f.svc.RemovePushSubscription(ctx, user.ID, sub.Endpoint))
	require.NoError(t, f.db.Find(&stored).Error)
	assert.Empty(t, stored)

	// The notifier goes with the subscription.
	require.NoError(t, f.db.Where("platform = ?", models.PlatformWebpush).Find(&notifiers).Error)
	assert.Empty(t, notifiers)

	_, err = f.svc.SavePushSubscription(ctx, user.ID, webpush.Subscription{})
	require.Error(t, err)
}

func TestResubscribeDoesNotDuplicateDeliveries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner@example.com", models.RoleOwner)
	customer := f.user(t, "diner@example.com", models.RoleCustomer)
	restaurant := f.restaurant(t, owner.ID)
	pizza := f.listing(t, owner.ID, restaurant.ID, 1000)

	phone := webpush.Subscription{
		Endpoint: "https://push.example/phone",
		Keys:     webpush.Keys{P256dh: "x", Auth: "y"},
	}
	laptop := webpush.Subscription{
		Endpoint: "https://push.example/laptop",
		Keys:     webpush.Keys{P256dh: "x", Auth: "y"},
	}

	// The client re-persists on every page load; the same device must
	// keep a single notifier.
	for i := 0; i < 3; i++ {
		_, err := f.svc.SavePushSubscription(ctx, owner.ID, phone)
		require.NoError(t, err)
	}
	_, err := f.svc.SavePushSubscription(ctx, owner.ID, laptop)
	require.NoError(t, err)

	_, err = f.svc.PlaceOrder(ctx, customer.ID, pizza.ID, 1)
	require.NoError(t, err)

	// One webpush dispatch per device, not per re-subscribe.
	require.Len(t, f.webpush.sent, 2)
	endpoints := []string{f.webpush.sent[0].identifier, f.webpush.sent[1].identifier}
	assert.ElementsMatch(t, []string{phone.Endpoint, laptop.Endpoint}, endpoints)
}
