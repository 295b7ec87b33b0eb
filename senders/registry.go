package senders

import (
	"context"
	"net/http"

	"github.com/forkfeed/forkfeed/config"
	"github.com/forkfeed/forkfeed/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notification is a channel-agnostic message fanned out to a user's
// verified notifiers.
type Notification struct {
	Title string
	Body  string
	URL   string
	Tag   string
}

type Sender interface {
	Send(ctx context.Context, notifier *models.Notifier, n Notification) (string, error)
}

type Registry map[models.Platform]Sender

func NewSenderRegistry(lc fx.Lifecycle, log *zap.Logger, cfg *config.Config, transport http.RoundTripper, db *gorm.DB) Registry {
	base := base{log, cfg, transport}
	return Registry{
		models.PlatformEmail:   &mailgunSender{base},
		models.PlatformWebpush: &webpushSender{base, db},
	}
}

type base struct {
	log       *zap.Logger
	cfg       *config.Config
	transport http.RoundTripper
}
