package models

type Role string

const (
	RoleOwner    Role = "owner"
	RoleSupport  Role = "support"
	RoleCustomer Role = "customer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleSupport, RoleCustomer:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderPlaced    OrderStatus = "placed"
	OrderAccepted  OrderStatus = "accepted"
	OrderRejected  OrderStatus = "rejected"
	OrderCompleted OrderStatus = "completed"
)

type TicketStatus string

const (
	TicketOpen      TicketStatus = "open"
	TicketReviewing TicketStatus = "reviewing"
	TicketResolved  TicketStatus = "resolved"
)

type PunishmentKind string

const (
	PunishmentWarning    PunishmentKind = "warning"
	PunishmentSuspension PunishmentKind = "suspension"
)

// Platform names a notifier delivery channel.
type Platform string

const (
	PlatformEmail   Platform = "email"
	PlatformWebpush Platform = "webpush"
)
