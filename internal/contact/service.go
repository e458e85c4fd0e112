// Package contact accepts contact-form submissions: it validates the payload,
// persists the record and notifies the site operator.
package contact

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/my-mailer/internal/common"
	"github.com/noah-isme/my-mailer/internal/notify"
	"github.com/noah-isme/my-mailer/internal/obs"
	"github.com/noah-isme/my-mailer/internal/submission"
)

// Submission outcomes recorded in metrics.
const (
	resultAccepted     = "accepted"
	resultInvalid      = "invalid"
	resultStorageError = "storage_error"
)

// SubmissionStore persists accepted submissions.
type SubmissionStore interface {
	Save(ctx context.Context, s submission.Submission) (string, error)
}

// SubmissionNotifier delivers the operator notification for a stored record.
type SubmissionNotifier interface {
	Notify(ctx context.Context, rec submission.Record) notify.Result
}

// Outcome is the result of a successfully persisted submission.
type Outcome struct {
	SubmissionID string
	EmailSent    bool
	Notification notify.Result
}

// Service runs the validate, save, notify pipeline.
type Service struct {
	validator *Validator
	store     SubmissionStore
	notifier  SubmissionNotifier
	now       func() time.Time
	logger    zerolog.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the acceptance clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger.With().Str("component", "contact").Logger()
	}
}

// NewService constructs a contact service.
func NewService(store SubmissionStore, notifier SubmissionNotifier, opts ...Option) *Service {
	s := &Service{
		validator: NewValidator(),
		store:     store,
		notifier:  notifier,
		now:       time.Now,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process validates raw, persists it and sends the notification. Validation
// failures yield a 400 AppError wrapping *ValidationError; storage failures a
// 500 AppError wrapping the storage error, in which case no notification is
// attempted. Notification problems never fail the call.
func (s *Service) Process(ctx context.Context, raw map[string]any, origin string) (Outcome, error) {
	ctx, span := otel.Tracer("contact").Start(ctx, "contact.process")
	defer span.End()

	sub, err := s.validator.Validate(raw, s.now(), origin)
	if err != nil {
		obs.ObserveSubmission(resultInvalid)
		span.SetAttributes(attribute.String("contact.result", resultInvalid))
		var verr *ValidationError
		if errors.As(err, &verr) {
			s.logger.Debug().Strs("missing", verr.Missing).Str("invalid", verr.Invalid).Msg("submission rejected")
			return Outcome{}, common.BadRequest("VALIDATION_FAILED", verr.Error(), err)
		}
		return Outcome{}, common.BadRequest("VALIDATION_FAILED", err.Error(), err)
	}

	start := time.Now()
	id, err := s.store.Save(ctx, sub)
	obs.ObserveStorageWrite(time.Since(start))
	if err != nil {
		obs.ObserveSubmission(resultStorageError)
		span.RecordError(err)
		span.SetStatus(codes.Error, resultStorageError)
		s.logger.Error().Err(err).Msg("failed to persist submission")
		return Outcome{}, common.Internal("STORAGE_FAILED", "Failed to process submission: "+err.Error(), err)
	}
	span.SetAttributes(attribute.String("contact.submission_id", id))
	s.logger.Info().Str("submission_id", id).Str("origin", sub.Record().IPAddress).Msg("submission stored")

	// The record is durable at this point; a client hanging up must not
	// cancel the notification.
	res := s.notifier.Notify(context.WithoutCancel(ctx), sub.Record())
	obs.ObserveSubmission(resultAccepted)
	span.SetAttributes(
		attribute.String("contact.result", resultAccepted),
		attribute.Bool("contact.email_sent", res.Sent),
	)
	return Outcome{SubmissionID: id, EmailSent: res.Sent, Notification: res}, nil
}
