package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/forkfeed/forkfeed/config"
	"github.com/forkfeed/forkfeed/lib"
	"github.com/forkfeed/forkfeed/lib/models"
	"github.com/forkfeed/forkfeed/lib/webpush"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewAPI(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, svc *lib.Service) *http.Server {
	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	srv := &http.Server{Addr: addr, Handler: router(cfg, log, svc)}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go srv.ListenAndServe()
			return nil
		},
		OnStop: srv.Shutdown,
	})

	return srv
}

func router(cfg *config.Config, log *zap.Logger, svc *lib.Service) http.Handler {
	ctrl := &controller{cfg, log, svc}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Post("/api/users", ctrl.registerUser)
	r.Post("/api/login", ctrl.login)
	r.Get("/verify/{nonce}", ctrl.verifyNotifier)

	r.Get("/web-push/vapid-public-key", ctrl.vapidPublicKey)
	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(cfg))
		r.Post("/web-push/subscribe", ctrl.subscribePush)
		r.Delete("/web-push/subscribe", ctrl.unsubscribePush)
		r.Post("/web-push/test", ctrl.testPush)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/restaurants", ctrl.browseRestaurants)
		r.Get("/restaurants/{restaurant_id}/listings", ctrl.restaurantListings)

		r.Group(func(r chi.Router) {
			r.Use(bearerAuth(cfg))

			r.Post("/restaurants", ctrl.registerRestaurant)
			r.Get("/restaurants/mine", ctrl.ownedRestaurants)
			r.Post("/restaurants/{restaurant_id}/listings", ctrl.createListing)
			r.Patch("/listings/{listing_id}/availability", ctrl.setListingAvailability)
			r.Get("/restaurants/{restaurant_id}/orders", ctrl.restaurantOrders)
			r.Get("/restaurants/{restaurant_id}/analytics", ctrl.restaurantAnalytics)
			r.Get("/restaurants/{restaurant_id}/punishments", ctrl.restaurantPunishments)

			r.Post("/orders", ctrl.placeOrder)
			r.Get("/orders", ctrl.customerOrders)
			r.Post("/orders/{order_id}/status", ctrl.updateOrderStatus)

			r.Post("/tickets", ctrl.openTicket)

			r.Group(func(r chi.Router) {
				r.Use(requireRole(models.RoleSupport))
				r.Get("/tickets", ctrl.openTickets)
				r.Post("/tickets/{ticket_id}/review", ctrl.reviewTicket)
				r.Post("/tickets/{ticket_id}/resolve", ctrl.resolveTicket)
				r.Post("/restaurants/{restaurant_id}/punishments", ctrl.issuePunishment)
			})
		})
	})

	return r
}

type controller struct {
	cfg *config.Config
	log *zap.Logger
	svc *lib.Service
}

func (ctrl *controller) reject(w http.ResponseWriter, status int, err error) {
	if err != nil {
		http.Error(w, err.Error(), status)
	} else {
		w.WriteHeader(status)
	}
}

func (ctrl *controller) resolve(w http.ResponseWriter, status int, body any) {
	if b, err := json.Marshal(body); err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		ctrl.log.Sugar().Error("Request failed", "error", err)
		return
	} else {
		w.WriteHeader(status)
		if b != nil {
			w.Write(b)
		}
	}
}

func (ctrl *controller) registerUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := r.FormValue("email")
	password := r.FormValue("password")
	role := r.FormValue("role")

	if email == "" {
		ctrl.reject(w, 400, errors.New("Email is required"))
		return
	}
	if password == "" {
		ctrl.reject(w, 400, errors.New("Password is required"))
		return
	}
	if role == "" {
		role = string(models.RoleCustomer)
	}

	user, err := ctrl.svc.RegisterUser(ctx, email, password, models.Role(role))
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusAccepted, UserView{}.From(user))
}

func (ctrl *controller) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := r.FormValue("email")
	password := r.FormValue("password")

	user, err := ctrl.svc.Authenticate(ctx, email, password)
	if errors.Is(err, lib.ErrBadCredentials) {
		ctrl.reject(w, http.StatusUnauthorized, err)
		return
	} else if err != nil {
		ctrl.reject(w, 500, err)
		return
	}

	token, err := issueToken(ctrl.cfg, user)
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"token": token})
}

func (ctrl *controller) verifyNotifier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	nonce := chi.URLParam(r, "nonce")

	ok, err := ctrl.svc.VerifyNotifier(ctx, nonce)
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"verified": ok})
}

func (ctrl *controller) vapidPublicKey(w http.ResponseWriter, r *http.Request) {
	ctrl.resolve(w, http.StatusOK, map[string]any{"publicKey": ctrl.svc.VapidPublicKey()})
}

func (ctrl *controller) subscribePush(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := claimsFrom(ctx)

	var body struct {
		Subscription *webpush.Subscription `json:"subscription"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		ctrl.reject(w, 400, err)
		return
	}
	if body.Subscription == nil {
		ctrl.reject(w, 400, errors.New("subscription is required"))
		return
	}

	if _, err := ctrl.svc.SavePushSubscription(ctx, claims.UserID, *body.Subscription); err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{})
}

func (ctrl *controller) unsubscribePush(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := claimsFrom(ctx)

	var body struct {
		Endpoint string `json:"endpoint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		ctrl.reject(w, 400, err)
		return
	}

	if err := ctrl.svc.RemovePushSubscription(ctx, claims.UserID, body.Endpoint); err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{})
}

func (ctrl *controller) testPush(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := claimsFrom(ctx)

	if err := ctrl.svc.SendTestNotification(ctx, claims.UserID); err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{})
}

func (ctrl *controller) browseRestaurants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	restaurants, err := ctrl.svc.BrowseRestaurants(ctx)
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, 200, FromMany[models.Restaurant, RestaurantView](restaurants))
}

func (ctrl *controller) ownedRestaurants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := claimsFrom(ctx)

	restaurants, err := ctrl.svc.OwnedRestaurants(ctx, claims.UserID)
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, 200, FromMany[models.Restaurant, RestaurantView](restaurants))
}

func (ctrl *controller) registerRestaurant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := claimsFrom(ctx)
	name := r.FormValue("name")

	if name == "" {
		ctrl.reject(w, 400, errors.New("Name is required"))
		return
	}

	restaurant, err := ctrl.svc.RegisterRestaurant(ctx, claims.UserID, name, r.FormValue("cuisine"), r.FormValue("address"))
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusCreated, RestaurantView{}.From(restaurant))
}

func (ctrl *controller) restaurantListings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	restaurantID, err := parseID(chi.URLParam(r, "restaurant_id"))
	if err != nil {
		ctrl.reject(w, 400, err)
		return
	}

	listings, err := ctrl.svc.RestaurantListings(ctx, restaurantID)
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, 200, FromMany[models.Listing, ListingView](listings))
}

func (ctrl *controller) createListing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := claimsFrom(ctx)
	name := r.FormValue("name")
	priceCents, priceErr := strconv.ParseInt(r.FormValue("price_cents"), 10, 64)

	restaurantID, err := parseID(chi.URLParam(r, "restaurant_id"))
	if err != nil {
		ctrl.reject(w, 400, err)
		return
	}
	if name == "" {
		ctrl.reject(w, 400, errors.New("Name is required"))
		return
	}
	if priceErr != nil || priceCents <= 0 {
		ctrl.reject(w, 400, errors.New("price_cents must be a positive integer"))
		return
	}

	listing, err := ctrl.svc.CreateListing(ctx, claims.UserID, restaurantID, name, r.FormValue("description"), priceCents)
	if errors.Is(err, lib.ErrNotRestaurantOwner) {
		ctrl.reject(w, http.StatusForbidden, err)
		return
	} else if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusCreated, ListingView{}.From(listing))
}

func (ctrl *controller) setListingAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := claimsFrom(ctx)
	available := r.FormValue("available") == "true"

	listingID, err := parseID(chi.URLParam(r, "listing_id"))
	if err != nil {
		ctrl.reject(w, 400, err)
		return
	}

	err = ctrl.svc.SetListingAvailability(ctx, claims.UserID, listingID, available)
	if errors.Is(err, lib.ErrNotRestaurantOwner) {
		ctrl.reject(w, http.StatusForbidden, err)
		return
	} else if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"available": available})
}

func (ctrl *controller) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := claimsFrom(ctx)
	quantity, err := strconv.Atoi(r.FormValue("quantity"))
	if err != nil {
		quantity = 1
	}

	listingID, err := parseID(r.FormValue("listing_id"))
	if err != nil {
		ctrl.reject(w, 400, err)
		return
	}

	order, err := ctrl.svc.PlaceOrder(ctx, claims.UserID, listingID, quantity)
	if errors.Is(err, lib.ErrListingUnavailable) || errors.Is(err, lib.ErrRestaurantSuspended) {
		ctrl.reject(w, http.StatusConflict, err)
		return
	} else if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusCreated, OrderView{}.From(order))
}

func (ctrl *controller) customerOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := claimsFrom(ctx)

	orders, err := ctrl.svc.CustomerOrders(ctx, claims.UserID)
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, 200, FromMany[models.Order, OrderView](orders))
}

func (ctrl *controller) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := claimsFrom(ctx)
	status := models.OrderStatus(r.FormValue("status"))

	orderID, err := parseID(chi.URLParam(r, "order_id"))
	if err != nil {
		ctrl.reject(w, 400, err)
		return
	}

	order, err := ctrl.svc.UpdateOrderStatus(ctx, claims.UserID, orderID, status)
	if errors.Is(err, lib.ErrNotRestaurantOwner) {
		ctrl.reject(w, http.StatusForbidden, err)
		return
	} else if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, OrderView{}.From(order))
}

func (ctrl *controller) restaurantOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := claimsFrom(ctx)
	restaurantID, err := parseID(chi.URLParam(r, "restaurant_id"))
	if err != nil {
		ctrl.reject(w, 400, err)
		return
	}

	orders, err := ctrl.svc.RestaurantOrders(ctx, claims.UserID, restaurantID)
	if errors.Is(err, lib.ErrNotRestaurantOwner) {
		ctrl.reject(w, http.StatusForbidden, err)
		return
	} else if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, 200, FromMany[models.Order, OrderView](orders))
}

func (ctrl *controller) restaurantAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := claimsFrom(ctx)
	restaurantID, err := parseID(chi.URLParam(r, "restaurant_id"))
	if err != nil {
		ctrl.reject(w, 400, err)
		return
	}

	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil || days <= 0 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	stats, err := ctrl.svc.RestaurantAnalytics(ctx, claims.UserID, restaurantID, since)
	if errors.Is(err, lib.ErrNotRestaurantOwner) {
		ctrl.reject(w, http.StatusForbidden, err)
		return
	} else if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, 200, stats)
}

func (ctrl *controller) openTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := claimsFrom(ctx)
	subject := r.FormValue("subject")

	if subject == "" {
		ctrl.reject(w, 400, errors.New("Subject is required"))
		return
	}

	restaurantID, err := parseID(r.FormValue("restaurant_id"))
	if err != nil {
		ctrl.reject(w, 400, err)
		return
	}

	ticket, err := ctrl.svc.OpenTicket(ctx, claims.UserID, restaurantID, subject, r.FormValue("body"))
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusCreated, TicketView{}.From(ticket))
}

func (ctrl *controller) openTickets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := claimsFrom(ctx)

	tickets, err := ctrl.svc.OpenTickets(ctx, claims.UserID)
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, 200, FromMany[models.Ticket, TicketView](tickets))
}

func (ctrl *controller) reviewTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := claimsFrom(ctx)
	ticketID, err := parseID(chi.URLParam(r, "ticket_id"))
	if err != nil {
		ctrl.reject(w, 400, err)
		return
	}

	ticket, err := ctrl.svc.ReviewTicket(ctx, claims.UserID, ticketID)
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, TicketView{}.From(ticket))
}

func (ctrl *controller) resolveTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := claimsFrom(ctx)
	resolution := r.FormValue("resolution")

	if resolution == "" {
		ctrl.reject(w, 400, errors.New("Resolution is required"))
		return
	}

	ticketID, err := parseID(chi.URLParam(r, "ticket_id"))
	if err != nil {
		ctrl.reject(w, 400, err)
		return
	}

	ticket, err := ctrl.svc.ResolveTicket(ctx, claims.UserID, ticketID, resolution)
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, TicketView{}.From(ticket))
}

func (ctrl *controller) issuePunishment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := claimsFrom(ctx)
	kind := models.PunishmentKind(r.FormValue("kind"))
	reason := r.FormValue("reason")

	if kind != models.PunishmentWarning && kind != models.PunishmentSuspension {
		ctrl.reject(w, 400, errors.New("kind must be warning or suspension"))
		return
	}
	if reason == "" {
		ctrl.reject(w, 400, errors.New("Reason is required"))
		return
	}

	restaurantID, err := parseID(chi.URLParam(r, "restaurant_id"))
	if err != nil {
		ctrl.reject(w, 400, err)
		return
	}

	hours, err := strconv.Atoi(r.FormValue("duration_hours"))
	if err != nil || hours <= 0 {
		hours = 7 * 24
	}

	punishment, err := ctrl.svc.IssuePunishment(ctx, claims.UserID, restaurantID, kind, reason, time.Duration(hours)*time.Hour)
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusCreated, PunishmentView{}.From(punishment))
}

func (ctrl *controller) restaurantPunishments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	restaurantID, err := parseID(chi.URLParam(r, "restaurant_id"))
	if err != nil {
		ctrl.reject(w, 400, err)
		return
	}

	punishments, err := ctrl.svc.RestaurantPunishments(ctx, restaurantID)
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, 200, FromMany[models.Punishment, PunishmentView](punishments))
}

func parseID(s string) (uint, error) {
	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil || u == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(u), nil
}
