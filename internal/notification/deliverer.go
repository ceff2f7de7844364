package notification

import (
	"context"
	"errors"
	"fmt"
)

type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type ChatSender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// Deliverer sends the guest an email and tells the staff chat about new and
// cancelled bookings. Either channel may be nil.
type Deliverer struct {
	email  EmailSender
	chat   ChatSender
	chatID string
}

func NewDeliverer(email EmailSender, chat ChatSender, chatID string) *Deliverer {
	return &Deliverer{email: email, chat: chat, chatID: chatID}
}

// Channels lists the configured routes.
func (d *Deliverer) Channels() []Channel {
	var out []Channel
	if d.email != nil {
		out = append(out, ChannelEmail)
	}
	if d.chat != nil && d.chatID != "" {
		out = append(out, ChannelChat)
	}
	return out
}

// Deliver sends m on every channel it routes to. A failure on one channel
// does not stop the others.
func (d *Deliverer) Deliver(ctx context.Context, m Message) error {
	var errs []error

	if d.email != nil && m.To.Email != "" && m.routesTo(ChannelEmail) {
		subject, body, err := RenderEmail(m)
		if err != nil {
			return err
		}
		if err := d.email.Send(ctx, m.To.Email, subject, body); err != nil {
			errs = append(errs, fmt.Errorf("email %s: %w", m.Kind, err))
		}
	}

	if d.chat != nil && d.chatID != "" && m.routesTo(ChannelChat) {
		text, ok, err := RenderChat(m)
		if err != nil {
			return err
		}
		if ok {
			if err := d.chat.SendMessage(ctx, d.chatID, text); err != nil {
				errs = append(errs, fmt.Errorf("telegram %s: %w", m.Kind, err))
			}
		}
	}

	return errors.Join(errs...)
}
