package lib

import (
	"context"
	"errors"
	"time"

	"github.com/forkfeed/forkfeed/config"
	"github.com/forkfeed/forkfeed/lib/models"
	"github.com/forkfeed/forkfeed/senders"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrBadCredentials = errors.New("invalid email or password")

type Service struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *gorm.DB
	senders senders.Registry

	*onboardUser
	*restaurants
	*listings
	*orders
	*analytics
	*tickets
	*punishments
	*pushSubs
}

func NewService(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, db *gorm.DB, senders senders.Registry) *Service {
	return &Service{
		cfg, log, db, senders,
		&onboardUser{cfg, log, db, senders},
		&restaurants{cfg, log, db},
		&listings{cfg, log, db},
		&orders{cfg, log, db, senders},
		&analytics{cfg, log, db},
		&tickets{cfg, log, db, senders},
		&punishments{cfg, log, db, senders},
		&pushSubs{cfg, log, db, senders},
	}
}

// Authenticate checks credentials and stamps the login time.
func (svc *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user := models.User{}
	tx := svc.db.Where("email = ?", email).First(&user)
	if err := tx.Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBadCredentials
	} else if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}

	tx = svc.db.Model(&user).Update("last_login_at", time.Now().UTC())
	if err := tx.Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (svc *Service) VerifyNotifier(ctx context.Context, nonce string) (bool, error) {
	confirm := models.NotifierConfirmation{}
	tx := svc.db.Where("nonce = ?", nonce).First(&confirm)
	if err := tx.Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}

	if confirm.Expiry.Before(time.Now().UTC()) {
		return false, nil
	}

	tx = svc.db.Model(&models.Notifier{}).Where("id = ?", confirm.NotifierID).Update("verified", true)
	if err := tx.Error; err != nil {
		return false, err
	}

	return true, nil
}
