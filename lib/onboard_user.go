package lib

import (
	"context"
	"fmt"
	"time"

	"github.com/forkfeed/forkfeed/config"
	"github.com/forkfeed/forkfeed/lib/models"
	"github.com/forkfeed/forkfeed/senders"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type onboardUser struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *gorm.DB
	senders senders.Registry
}

func (svc *onboardUser) RegisterUser(ctx context.Context, email, password string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role: %s", role)
	}

	user, confirmation, err := svc.createUserAndNotifier(email, password, role)
	if err != nil {
		return nil, err
	}
	if err = svc.sendVerificationEmail(ctx, email, confirmation.Nonce); err != nil {
		return nil, err
	}
	svc.log.Sugar().Infof("Created user %v (%s, %s), confirmation nonce: %s", user.ID, email, role, confirmation.Nonce)
	return user, nil
}

func (svc *onboardUser) createUserAndNotifier(email, password string, role models.Role) (*models.User, *models.NotifierConfirmation, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	tx := svc.db.
		Clauses(clause.Returning{}).
		Create(user)
	if err := tx.Error; err != nil {
		return nil, nil, err
	}

	notif := &models.Notifier{Platform: models.PlatformEmail, PlatformIdentifier: email, UserID: user.ID}
	tx = svc.db.
		Clauses(clause.Returning{}).
		Create(notif)
	if err := tx.Error; err != nil {
		return nil, nil, err
	}

	notifConfirm := &models.NotifierConfirmation{
		NotifierID: notif.ID,
		Nonce:      uuid.NewString(),
		Expiry:     time.Now().UTC().Add(3 * 24 * time.Hour),
	}
	tx = svc.db.Create(notifConfirm)
	if err := tx.Error; err != nil {
		return nil, nil, err
	}

	return user, notifConfirm, nil
}

func (svc *onboardUser) sendVerificationEmail(ctx context.Context, email, nonce string) error {
	url := fmt.Sprintf("%s/verify/%s", svc.cfg.ServerDNS, nonce)

	sender := svc.senders[models.PlatformEmail]
	id, err := sender.Send(ctx, &models.Notifier{PlatformIdentifier: email}, senders.Notification{
		Title: "Forkfeed: Email verification required",
		Body:  "Click the link below to verify your email.",
		URL:   url,
	})
	if err != nil {
		svc.log.Sugar().Infow("Failed to send verification email", "err", err)
	} else {
		svc.log.Sugar().Infow("Sent verification to "+email, "message_id", id)
	}
	return err
}
