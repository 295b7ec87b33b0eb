package lib

import (
	"context"
	"errors"
	"fmt"

	"github.com/forkfeed/forkfeed/config"
	"github.com/forkfeed/forkfeed/lib/models"
	"github.com/forkfeed/forkfeed/senders"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotSupport = errors.New("user does not have the support role")

type tickets struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *gorm.DB
	senders senders.Registry
}

func (svc *tickets) OpenTicket(ctx context.Context, reporterID, restaurantID uint, subject, body string) (*models.Ticket, error) {
	restaurant := models.Restaurant{}
	tx := svc.db.Where("id = ?", restaurantID).First(&restaurant)
	if err := tx.Error; err != nil {
		return nil, err
	}

	ticket := &models.Ticket{
		ReporterID:   reporterID,
		RestaurantID: restaurantID,
		Subject:      subject,
		Body:         body,
		Status:       models.TicketOpen,
	}
	tx = svc.db.Clauses(clause.Returning{}).Create(ticket)
	if err := tx.Error; err != nil {
		return nil, err
	}

	svc.log.Sugar().Infof("Opened ticket %v against restaurant %v", ticket.ID, restaurantID)
	return ticket, nil
}

func (svc *tickets) OpenTickets(ctx context.Context, supportID uint) (models.Tickets, error) {
	if err := svc.checkSupportRole(supportID); err != nil {
		return nil, err
	}

	var result models.Tickets
	tx := svc.db.
		Where("tickets.status IN ?", []models.TicketStatus{models.TicketOpen, models.TicketReviewing}).
		InnerJoins("Restaurant").
		Order("tickets.created_at").
		Find(&result)
	if err := tx.Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (svc *tickets) ReviewTicket(ctx context.Context, supportID, ticketID uint) (*models.Ticket, error) {
	return svc.moveTicket(ctx, supportID, ticketID, models.TicketOpen, models.TicketReviewing, "")
}

// ResolveTicket closes a ticket and tells the reporter how it ended.
func (svc *tickets) ResolveTicket(ctx context.Context, supportID, ticketID uint, resolution string) (*models.Ticket, error) {
	ticket, err := svc.moveTicket(ctx, supportID, ticketID, models.TicketReviewing, models.TicketResolved, resolution)
	if err != nil {
		return nil, err
	}

	notifyUser(ctx, svc.db, svc.log, svc.senders, ticket.ReporterID, senders.Notification{
		Title: "Your report was resolved",
		Body:  resolution,
		URL:   fmt.Sprintf("%s/tickets/%d", svc.cfg.ServerDNS, ticket.ID),
		Tag:   "ticket",
	})
	return ticket, nil
}

func (svc *tickets) moveTicket(ctx context.Context, supportID, ticketID uint, from, to models.TicketStatus, resolution string) (*models.Ticket, error) {
	if err := svc.checkSupportRole(supportID); err != nil {
		return nil, err
	}

	ticket := models.Ticket{}
	tx := svc.db.Where("id = ?", ticketID).First(&ticket)
	if err := tx.Error; err != nil {
		return nil, err
	}
	if ticket.Status != from {
		return nil, fmt.Errorf("ticket %d is %s, expected %s", ticketID, ticket.Status, from)
	}

	updates := map[string]any{"status": to}
	if resolution != "" {
		updates["resolution"] = resolution
	}
	tx = svc.db.Model(&ticket).Updates(updates)
	if err := tx.Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (svc *tickets) checkSupportRole(userID uint) error {
	user := models.User{}
	tx := svc.db.Where("id = ?", userID).First(&user)
	if err := tx.Error; err != nil {
		return err
	}
	if user.Role != models.RoleSupport {
		return ErrNotSupport
	}
	return nil
}
