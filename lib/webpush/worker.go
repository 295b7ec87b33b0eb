package webpush

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// DefaultIcon is shown when a payload carries no icon of its own.
const DefaultIcon = "/icons/icon-192x192.png"

type EventKind string

const (
	EventPush              EventKind = "push"
	EventNotificationClick EventKind = "notificationclick"
)

// Event is a platform event delivered to the worker. The worker settles an
// event only after its handler's async work completes; the platform must
// not reclaim the worker while events are unsettled.
type Event interface {
	Kind() EventKind
	settle(err error)
}

type PushEvent struct {
	Payload []byte
	done    chan error
}

func NewPushEvent(payload []byte) *PushEvent {
	return &PushEvent{Payload: payload, done: make(chan error, 1)}
}

func (e *PushEvent) Kind() EventKind { return EventPush }

// Done reports the handler outcome once the event settles.
func (e *PushEvent) Done() <-chan error { return e.done }

func (e *PushEvent) settle(err error) { e.done <- err }

type ClickEvent struct {
	Notification *DisplayedNotification
	done         chan error
}

func NewClickEvent(n *DisplayedNotification) *ClickEvent {
	return &ClickEvent{Notification: n, done: make(chan error, 1)}
}

func (e *ClickEvent) Kind() EventKind { return EventNotificationClick }

func (e *ClickEvent) Done() <-chan error { return e.done }

func (e *ClickEvent) settle(err error) { e.done <- err }

// DisplayedNotification is a notification currently shown by the platform.
type DisplayedNotification struct {
	Title     string
	Data      *NotificationData
	Dismissed bool
}

func (n *DisplayedNotification) Dismiss() { n.Dismissed = true }

// NotificationOptions are the display options of a rendered notification.
type NotificationOptions struct {
	Body               string               `json:"body"`
	Icon               string               `json:"icon,omitempty"`
	Badge              string               `json:"badge,omitempty"`
	Tag                string               `json:"tag,omitempty"`
	Data               *NotificationData    `json:"data,omitempty"`
	Actions            []NotificationAction `json:"actions,omitempty"`
	RequireInteraction bool                 `json:"requireInteraction,omitempty"`
}

type NotificationData struct {
	URL string `json:"url,omitempty"`
}

type NotificationAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

// Payload is the wire format pushed by the server.
type Payload struct {
	Notification *PayloadNotification `json:"notification"`
}

type PayloadNotification struct {
	Title string `json:"title"`
	NotificationOptions
}

// Display renders notifications on the platform.
type Display interface {
	Show(ctx context.Context, title string, opts NotificationOptions) error
}

// WindowOpener opens a URL in a client window.
type WindowOpener interface {
	OpenWindow(ctx context.Context, url string) error
}

// Worker is the background worker receiving push events from the platform
// push service, independent of any page being open. Handlers are looked up
// in a dispatch table keyed by event kind and run one at a time.
type Worker struct {
	log      *zap.Logger
	display  Display
	opener   WindowOpener
	handlers map[EventKind]func(context.Context, Event) error
}

func NewWorker(log *zap.Logger, display Display, opener WindowOpener) *Worker {
	w := &Worker{log: log, display: display, opener: opener}
	w.handlers = map[EventKind]func(context.Context, Event) error{
		EventPush:              w.handlePush,
		EventNotificationClick: w.handleClick,
	}
	return w
}

// Run consumes events until the channel closes or ctx is done.
func (w *Worker) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			w.Dispatch(ctx, evt)
		}
	}
}

// Dispatch runs the handler for evt and settles it afterwards, extending
// the event's lifetime for the full duration of the handler's work.
func (w *Worker) Dispatch(ctx context.Context, evt Event) {
	handler, ok := w.handlers[evt.Kind()]
	if !ok {
		evt.settle(nil)
		return
	}
	err := handler(ctx, evt)
	if err != nil {
		w.log.Sugar().Errorw("Event handler failed", "kind", evt.Kind(), "err", err)
	}
	evt.settle(err)
}

func (w *Worker) handlePush(ctx context.Context, evt Event) error {
	push := evt.(*PushEvent)
	if len(push.Payload) == 0 {
		// Pushes can legitimately arrive without data.
		return nil
	}

	var payload Payload
	if err := json.Unmarshal(push.Payload, &payload); err != nil {
		return ErrPayload.Wrap(err)
	}
	if payload.Notification == nil || payload.Notification.Title == "" {
		return ErrPayload.New("payload missing notification title")
	}

	opts := payload.Notification.NotificationOptions
	if opts.Icon == "" {
		opts.Icon = DefaultIcon
	}
	return w.display.Show(ctx, payload.Notification.Title, opts)
}

func (w *Worker) handleClick(ctx context.Context, evt Event) error {
	click := evt.(*ClickEvent)
	click.Notification.Dismiss()

	if click.Notification.Data == nil || click.Notification.Data.URL == "" {
		return nil
	}
	return w.opener.OpenWindow(ctx, click.Notification.Data.URL)
}
