// Package notification renders booking notifications and routes them to
// email, chat, a Redis work queue or an event broker.
package notification

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/ds124wfegd/hotel-booking/internal/entity"
	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindBookingCreated   Kind = "booking_created"
	KindBookingCancelled Kind = "booking_cancelled"
	KindCheckinReminder  Kind = "checkin_reminder"
	KindCheckoutReminder Kind = "checkout_reminder"
)

// Channel names one delivery route of a Deliverer.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelChat  Channel = "chat"
)

// Message is one notification, serializable so it can travel through a queue.
// An empty Channel means every channel.
type Message struct {
	Kind    Kind                `json:"kind"`
	To      entity.Contact      `json:"to"`
	Facts   entity.BookingFacts `json:"facts"`
	Refund  *decimal.Decimal    `json:"refund,omitempty"`
	Channel Channel             `json:"channel,omitempty"`
}

func (m Message) routesTo(c Channel) bool {
	return m.Channel == "" || m.Channel == c
}

// postsToChat reports whether messages of kind k have a staff chat text.
func postsToChat(k Kind) bool {
	_, ok := chatTemplates[k]
	return ok
}

type templates struct {
	subject *template.Template
	body    *template.Template
}

var funcs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
}

func mustTemplates(subject, body string) templates {
	return templates{
		subject: template.Must(template.New("subject").Funcs(funcs).Parse(subject)),
		body:    template.Must(template.New("body").Funcs(funcs).Parse(body)),
	}
}

var emailTemplates = map[Kind]templates{
	KindBookingCreated: mustTemplates(
		`Booking confirmed: {{.Facts.BookingCode}}`,
		`Dear {{.Facts.GuestName}},

Your booking {{.Facts.BookingCode}} is confirmed.

Room: {{.Facts.RoomNumber}}
Check-in: {{.Facts.CheckIn}}
Check-out: {{.Facts.CheckOut}}
Nights: {{.Facts.Nights}}
Total: {{money .Facts.TotalPrice}}
{{- with .Facts.SpecialRequests}}
Special requests: {{.}}{{end}}

We look forward to your stay.
`),
	KindBookingCancelled: mustTemplates(
		`Booking cancelled: {{.Facts.BookingCode}}`,
		`Dear {{.Facts.GuestName}},

Your booking {{.Facts.BookingCode}} for room {{.Facts.RoomNumber}} ({{.Facts.CheckIn}} - {{.Facts.CheckOut}}) has been cancelled.
{{- if .Refund}}
Refund amount: {{money .Refund}}{{end}}
`),
	KindCheckinReminder: mustTemplates(
		`Check-in tomorrow: {{.Facts.BookingCode}}`,
		`Dear {{.Facts.GuestName}},

This is a reminder that your stay in room {{.Facts.RoomNumber}} begins on {{.Facts.CheckIn}}.
Booking code: {{.Facts.BookingCode}}
`),
	KindCheckoutReminder: mustTemplates(
		`Check-out today: {{.Facts.BookingCode}}`,
		`Dear {{.Facts.GuestName}},

This is a reminder that check-out from room {{.Facts.RoomNumber}} is today, {{.Facts.CheckOut}}.
Thank you for staying with us.
`),
}

var chatTemplates = map[Kind]*template.Template{
	KindBookingCreated: template.Must(template.New("created").Funcs(funcs).Parse(
		`New booking {{.Facts.BookingCode}}: room {{.Facts.RoomNumber}}, {{.Facts.CheckIn}} - {{.Facts.CheckOut}}, {{.Facts.GuestName}}, {{money .Facts.TotalPrice}}`)),
	KindBookingCancelled: template.Must(template.New("cancelled").Funcs(funcs).Parse(
		`Booking {{.Facts.BookingCode}} cancelled: room {{.Facts.RoomNumber}}, {{.Facts.CheckIn}} - {{.Facts.CheckOut}}{{if .Refund}}, refund {{money .Refund}}{{end}}`)),
}

// RenderEmail returns the subject and body of the guest email for m.
func RenderEmail(m Message) (string, string, error) {
	t, ok := emailTemplates[m.Kind]
	if !ok {
		return "", "", fmt.Errorf("no email template for %q", m.Kind)
	}

	var subject, body bytes.Buffer
	if err := t.subject.Execute(&subject, m); err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	if err := t.body.Execute(&body, m); err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}
	return subject.String(), body.String(), nil
}

// RenderChat returns the staff chat line for m; ok is false for kinds staff
// are not told about.
func RenderChat(m Message) (text string, ok bool, err error) {
	t, ok := chatTemplates[m.Kind]
	if !ok {
		return "", false, nil
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, m); err != nil {
		return "", true, fmt.Errorf("render chat message: %w", err)
	}
	return buf.String(), true, nil
}
