// Package notification carries guardian notifications from the business operations
// that produce them to the transports that deliver them.
//
// Producers only build Events; a Sink decides when and how they are delivered.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Channel string

const (
	SMS   Channel = "sms"
	Email Channel = "email"
)

var (
	NowFunc = time.Now // mockable

	ErrNoRecipient         = errors.New("recipient is empty")
	ErrUnknownChannel      = errors.New("unknown notification channel")
	ErrChannelNotAvailable = errors.New("notification channel not configured")
)

// Event is one message to one recipient on one channel.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Channel   Channel   `json:"channel"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject,omitempty"` // email only
	Body      string    `json:"body"`
	// DedupKey, when set, lets a Deduper suppress repeated deliveries of the same logical message.
	DedupKey  string    `json:"dedup_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewSMS(to, body string) Event {
	return newEvent(SMS, to, "", body)
}

func NewEmail(to, subject, body string) Event {
	return newEvent(Email, to, subject, body)
}

func newEvent(ch Channel, to, subject, body string) Event {
	return Event{
		ID:        uuid.New(),
		Channel:   ch,
		Recipient: to,
		Subject:   subject,
		Body:      body,
		CreatedAt: NowFunc().UTC(),
	}
}

// WithDedupKey returns a copy of ev carrying key.
func (ev Event) WithDedupKey(key string) Event {
	ev.DedupKey = key
	return ev
}

type (
	SMSSender interface {
		SendSMS(ctx context.Context, to, message string) error
	}

	EmailSender interface {
		SendEmail(ctx context.Context, to, subject, body string) error
	}

	// Notifier is the outbound capability needed to reach guardians.
	Notifier interface {
		SMSSender
		EmailSender
	}

	// Sink accepts events for delivery. Submit never fails the caller: delivery problems are
	// handled (logged, counted, retried) by the implementation.
	Sink interface {
		Submit(ctx context.Context, events ...Event)
	}
)

// Channels composes one transport per channel into a Notifier.
// A nil transport makes its channel fail with ErrChannelNotAvailable.
type Channels struct {
	SMS   SMSSender
	Email EmailSender
}

var _ Notifier = Channels{}

func (c Channels) SendSMS(ctx context.Context, to, message string) error {
	if c.SMS == nil {
		return ErrChannelNotAvailable
	}
	return c.SMS.SendSMS(ctx, to, message)
}

func (c Channels) SendEmail(ctx context.Context, to, subject, body string) error {
	if c.Email == nil {
		return ErrChannelNotAvailable
	}
	return c.Email.SendEmail(ctx, to, subject, body)
}

// Deliver sends ev through the matching channel of n.
func Deliver(ctx context.Context, n Notifier, ev Event) error {
	switch ev.Channel {
	case SMS:
		return n.SendSMS(ctx, ev.Recipient, ev.Body)
	case Email:
		return n.SendEmail(ctx, ev.Recipient, ev.Subject, ev.Body)
	default:
		return errors.Wrap(ErrUnknownChannel, string(ev.Channel))
	}
}
