package health

import (
	"context"
	"errors"
	"time"
)

// Pinger is satisfied by the submission stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies adapts the running components to Checker.
type Dependencies struct {
	Storage Pinger
	Mail    func() bool
}

// PingStorage probes the store within timeout.
func (d Dependencies) PingStorage(ctx context.Context, timeout time.Duration) error {
	if d.Storage == nil {
		return errors.New("storage not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.Storage.Ping(ctx)
}

// MailConfigured reports whether notifications will be delivered.
func (d Dependencies) MailConfigured() bool {
	return d.Mail != nil && d.Mail()
}
