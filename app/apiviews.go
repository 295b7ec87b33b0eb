package app

import (
	"database/sql"
	"time"

	"github.com/forkfeed/forkfeed/lib/models"
)

type UserView struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (view UserView) From(entity *models.User) UserView {
	return UserView{
		ID:    entity.ID,
		Email: entity.Email,
		Role:  string(entity.Role),
	}
}

type RestaurantView struct {
	ID             uint    `json:"id"`
	Name           string  `json:"name"`
	Cuisine        string  `json:"cuisine"`
	Address        string  `json:"address"`
	SuspendedUntil *string `json:"suspended_until"`
}

func (view RestaurantView) From(entity *models.Restaurant) RestaurantView {
	return RestaurantView{
		ID:             entity.ID,
		Name:           entity.Name,
		Cuisine:        entity.Cuisine,
		Address:        entity.Address,
		SuspendedUntil: isoformat(entity.SuspendedUntil),
	}
}

type ListingView struct {
	ID           uint   `json:"id"`
	RestaurantID uint   `json:"restaurant_id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	PriceCents   int64  `json:"price_cents"`
	Available    bool   `json:"available"`
}

func (view ListingView) From(entity *models.Listing) ListingView {
	return ListingView{
		ID:           entity.ID,
		RestaurantID: entity.RestaurantID,
		Name:         entity.Name,
		Description:  entity.Description,
		PriceCents:   entity.PriceCents,
		Available:    entity.Available,
	}
}

type OrderView struct {
	ID           uint   `json:"id"`
	RestaurantID uint   `json:"restaurant_id"`
	ListingID    uint   `json:"listing_id"`
	Listing      string `json:"listing"`
	Quantity     int    `json:"quantity"`
	TotalCents   int64  `json:"total_cents"`
	Status       string `json:"status"`
	PlacedAt     string `json:"placed_at"`
}

func (view OrderView) From(entity *models.Order) OrderView {
	return OrderView{
		ID:           entity.ID,
		RestaurantID: entity.RestaurantID,
		ListingID:    entity.ListingID,
		Listing:      entity.Listing.Name,
		Quantity:     entity.Quantity,
		TotalCents:   entity.TotalCents,
		Status:       string(entity.Status),
		PlacedAt:     entity.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type TicketView struct {
	ID           uint   `json:"id"`
	RestaurantID uint   `json:"restaurant_id"`
	Subject      string `json:"subject"`
	Body         string `json:"body"`
	Status       string `json:"status"`
	Resolution   string `json:"resolution,omitempty"`
}

func (view TicketView) From(entity *models.Ticket) TicketView {
	return TicketView{
		ID:           entity.ID,
		RestaurantID: entity.RestaurantID,
		Subject:      entity.Subject,
		Body:         entity.Body,
		Status:       string(entity.Status),
		Resolution:   entity.Resolution,
	}
}

type PunishmentView struct {
	ID           uint   `json:"id"`
	RestaurantID uint   `json:"restaurant_id"`
	Kind         string `json:"kind"`
	Reason       string `json:"reason"`
	Expiry       string `json:"expiry"`
}

func (view PunishmentView) From(entity *models.Punishment) PunishmentView {
	return PunishmentView{
		ID:           entity.ID,
		RestaurantID: entity.RestaurantID,
		Kind:         string(entity.Kind),
		Reason:       entity.Reason,
		Expiry:       entity.Expiry.UTC().Format(time.RFC3339),
	}
}

type Fromable[Entity any, Repr any] interface {
	From(Entity) Repr
}

func FromMany[T any, U Fromable[*T, U]](elems []T) []U {
	out := make([]U, len(elems))
	for i := range elems {
		var u U
		out[i] = u.From(&elems[i])
	}
	return out
}

func isoformat(t sql.NullTime) *string {
	if t.Valid {
		s := t.Time.UTC().Format(time.RFC3339)
		return &s
	}
	return nil
}
