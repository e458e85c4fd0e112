// Package notify renders contact submissions into operator notifications and
// delivers them by email.
package notify

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/my-mailer/internal/common"
	"github.com/noah-isme/my-mailer/internal/obs"
	"github.com/noah-isme/my-mailer/internal/submission"
)

// Delivery outcomes reported in Result.Reason.
const (
	ReasonSent           = "sent"
	ReasonNotConfigured  = "not_configured"
	ReasonDeliveryFailed = "delivery_failed"
)

// Result describes what happened to a notification. Err is set only for
// delivery failures.
type Result struct {
	Sent   bool
	Reason string
	Err    error
}

// Config identifies the sender account and the operator mailbox.
type Config struct {
	Username   string
	Password   string
	Recipient  string
	SenderName string
}

// Configured reports whether sender identity and secret are both present.
func (c Config) Configured() bool {
	return strings.TrimSpace(c.Username) != "" && strings.TrimSpace(c.Password) != ""
}

func (c Config) recipient() string {
	if r := strings.TrimSpace(c.Recipient); r != "" {
		return r
	}
	return strings.TrimSpace(c.Username)
}

func (c Config) from() string {
	addr := mail.Address{Name: c.SenderName, Address: strings.TrimSpace(c.Username)}
	return addr.String()
}

// Notifier sends one email per persisted submission. It never returns an
// error: every failure is folded into the Result.
type Notifier struct {
	cfg    Config
	mail   common.EmailSender
	logger zerolog.Logger
}

// New constructs a Notifier. A nil sender behaves like missing credentials.
func New(cfg Config, sender common.EmailSender, logger zerolog.Logger) *Notifier {
	return &Notifier{cfg: cfg, mail: sender, logger: logger.With().Str("component", "notify").Logger()}
}

// Configured reports whether delivery will be attempted.
func (n *Notifier) Configured() bool {
	return n != nil && n.mail != nil && n.cfg.Configured()
}

// Notify renders and delivers the notification for rec.
func (n *Notifier) Notify(ctx context.Context, rec submission.Record) (res Result) {
	ctx, span := otel.Tracer("notify").Start(ctx, "notify.email")
	defer func() {
		span.SetAttributes(attribute.String("notify.result", res.Reason))
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Reason)
		}
		span.End()
		obs.ObserveNotification(res.Reason)
	}()
	defer func() {
		if r := recover(); r != nil {
			res = Result{Reason: ReasonDeliveryFailed, Err: fmt.Errorf("notify: panic: %v", r)}
			n.logger.Error().Err(res.Err).Msg("notification failed")
		}
	}()

	if !n.Configured() {
		n.logger.Warn().Msg("email not configured, skipping notification")
		return Result{Reason: ReasonNotConfigured}
	}

	msg := common.Email{
		From:    n.cfg.from(),
		To:      n.cfg.recipient(),
		ReplyTo: rec.Email,
		Subject: SubjectLine(rec),
		Text:    RenderText(rec),
		HTML:    RenderHTML(rec),
	}
	if err := n.mail.Send(ctx, msg); err != nil {
		n.logger.Error().Err(err).Str("to", msg.To).Msg("failed to send notification")
		return Result{Reason: ReasonDeliveryFailed, Err: err}
	}
	n.logger.Info().Str("to", msg.To).Msg("notification sent")
	return Result{Sent: true, Reason: ReasonSent}
}
