// Package notify delivers best-effort email notifications to the event hosts.
//
// Callers enqueue and move on. A single worker renders, sends with retry and
// records each attempt in the email log; nothing here ever fails a request.
package notify

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/AlexTLDR/giftregistry/internal/domain"
	"github.com/AlexTLDR/giftregistry/internal/i18n"
)

type Kind string

const (
	KindInvite       Kind = "invite"
	KindConfirm      Kind = "confirm"
	KindGiftReserved Kind = "gift_reserved"
	KindGiftReleased Kind = "gift_released"
)

// Message carries the data a notification is rendered from. Which fields are
// used depends on Kind.
type Message struct {
	Kind       Kind
	GuestName  string
	GuestEmail string
	GiftName   string
	GiftLink   string
	Token      string
	InviteLink string
	Address    string
}

// Mail is a rendered email ready for a Sender.
type Mail struct {
	To      []string
	Subject string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, m Mail) (messageID string, err error)
}

type EmailLogStore interface {
	InsertEmailLog(ctx context.Context, l domain.EmailLog) error
}

type Options struct {
	Recipients  []string
	QueueSize   int
	Language    i18n.Language
	MaxRetries  uint64
	BaseBackoff time.Duration
	SendTimeout time.Duration
}

type Notifier struct {
	log    *slog.Logger
	sender Sender
	logs   EmailLogStore
	opts   Options
	queue  chan Message
}

func New(logger *slog.Logger, sender Sender, logs EmailLogStore, opts Options) *Notifier {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Language == "" {
		opts.Language = i18n.Default
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 500 * time.Millisecond
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 30 * time.Second
	}
	return &Notifier{
		log:    logger.With("component", "notify"),
		sender: sender,
		logs:   logs,
		opts:   opts,
		queue:  make(chan Message, opts.QueueSize),
	}
}

// Enqueue hands msg to the worker without blocking. It reports false when
// the queue is full and the message was dropped.
func (n *Notifier) Enqueue(msg Message) bool {
	select {
	case n.queue <- msg:
		return true
	default:
		n.log.Warn("notification queue full, dropping message", "kind", msg.Kind)
		return false
	}
}

// Run delivers queued messages until ctx is cancelled. Messages still queued
// at that point are dropped.
func (n *Notifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			if len(n.queue) > 0 {
				n.log.Warn("dropping queued notifications on shutdown", "count", len(n.queue))
			}
			return nil
		case msg := <-n.queue:
			n.deliver(ctx, msg)
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, msg Message) {
	if len(n.opts.Recipients) == 0 {
		n.log.Debug("no recipients configured, skipping notification", "kind", msg.Kind)
		return
	}

	mail, err := Render(ctx, n.opts.Language, msg)
	if err != nil {
		n.log.Error("failed to render notification", "kind", msg.Kind, "error", err)
		return
	}
	mail.To = n.opts.Recipients

	var messageID string
	backoff := retry.WithMaxRetries(n.opts.MaxRetries, retry.NewExponential(n.opts.BaseBackoff))
	sendErr := retry.Do(ctx, backoff, func(ctx context.Context) error {
		sendCtx, cancel := context.WithTimeout(ctx, n.opts.SendTimeout)
		defer cancel()

		id, err := n.sender.Send(sendCtx, mail)
		if err != nil {
			n.log.Warn("email send attempt failed", "kind", msg.Kind, "error", err)
			return retry.RetryableError(err)
		}
		messageID = id
		return nil
	})

	entry := domain.EmailLog{
		Type:      string(msg.Kind),
		To:        strings.Join(mail.To, ","),
		Subject:   mail.Subject,
		SentAt:    time.Now().UTC(),
		MessageID: messageID,
	}
	if sendErr != nil {
		entry.Error = sendErr.Error()
		n.log.Error("failed to send notification", "kind", msg.Kind, "error", sendErr)
	} else {
		n.log.Info("notification sent", "kind", msg.Kind, "message_id", messageID)
	}

	if n.logs == nil {
		return
	}
	// the log write must survive a cancelled worker context
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := n.logs.InsertEmailLog(logCtx, entry); err != nil {
		n.log.Error("failed to record email log", "kind", msg.Kind, "error", err)
	}
}
