package senders

import (
	"context"
	"fmt"
	"time"

	"github.com/forkfeed/forkfeed/lib/models"
	"github.com/mailgun/mailgun-go/v4"
)

type mailgunSender struct {
	base
}

func (e *mailgunSender) Send(ctx context.Context, notifier *models.Notifier, n Notification) (string, error) {
	mg := mailgun.NewMailgun(e.cfg.Mailgun.Domain, e.cfg.Mailgun.APIKey)
	mg.Client().Transport = e.transport

	// Create message with empty body first.
	message := mg.NewMessage(e.cfg.Mailgun.SenderFrom, n.Title, "", notifier.PlatformIdentifier)
	// SetHtml with the payload proper. This will assign the MIME type properly.
	message.SetHtml(e.htmlBody(n))

	timeout := time.Duration(e.cfg.Mailgun.TimeoutSecs) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, id, err := mg.Send(ctx, message)
	return id, err
}

func (e *mailgunSender) htmlBody(n Notification) string {
	if n.URL == "" {
		return fmt.Sprintf("<p>%s</p>", n.Body)
	}
	return fmt.Sprintf(`<p>%s</p><p><a href="%s">%s</a></p>`, n.Body, n.URL, n.URL)
}
