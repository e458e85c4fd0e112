package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/my-mailer/internal/common"
)

func configured() Config {
	return Config{
		Username:   "site@example.com",
		Password:   "app-password",
		Recipient:  "owner@example.com",
		SenderName: "My Website",
	}
}

func TestNotifySkipsWithoutCredentials(t *testing.T) {
	for name, cfg := range map[string]Config{
		"no username": {Password: "secret"},
		"no password": {Username: "site@example.com"},
		"blank":       {Username: "  ", Password: " "},
	} {
		t.Run(name, func(t *testing.T) {
			mailer := &common.InMemoryEmail{}
			n := New(cfg, mailer, zerolog.Nop())

			res := n.Notify(context.Background(), sampleRecord())
			require.False(t, res.Sent)
			require.Equal(t, ReasonNotConfigured, res.Reason)
			require.NoError(t, res.Err)
			require.Empty(t, mailer.Sent())
		})
	}
}

func TestNotifyNilSenderIsNotConfigured(t *testing.T) {
	n := New(configured(), nil, zerolog.Nop())
	require.False(t, n.Configured())
	res := n.Notify(context.Background(), sampleRecord())
	require.Equal(t, ReasonNotConfigured, res.Reason)
}

func TestNotifySendsMultipartMessage(t *testing.T) {
	mailer := &common.InMemoryEmail{}
	n := New(configured(), mailer, zerolog.Nop())
	require.True(t, n.Configured())

	res := n.Notify(context.Background(), sampleRecord())
	require.True(t, res.Sent)
	require.Equal(t, ReasonSent, res.Reason)

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	msg := sent[0]
	require.Equal(t, `"My Website" <site@example.com>`, msg.From)
	require.Equal(t, "owner@example.com", msg.To)
	require.Equal(t, "john.doe@example.com", msg.ReplyTo)
	require.Equal(t, "New Contact Form: Inquiry", msg.Subject)
	require.Contains(t, msg.Text, "From: John Doe")
	require.Contains(t, msg.HTML, "<!DOCTYPE html>")
}

func TestNotifyRecipientDefaultsToUsername(t *testing.T) {
	cfg := configured()
	cfg.Recipient = ""
	mailer := &common.InMemoryEmail{}

	res := New(cfg, mailer, zerolog.Nop()).Notify(context.Background(), sampleRecord())
	require.True(t, res.Sent)
	require.Equal(t, "site@example.com", mailer.Sent()[0].To)
}

func TestNotifyAbsorbsDeliveryFailure(t *testing.T) {
	cause := errors.New("535 authentication failed")
	mailer := &common.InMemoryEmail{Err: cause}

	res := New(configured(), mailer, zerolog.Nop()).Notify(context.Background(), sampleRecord())
	require.False(t, res.Sent)
	require.Equal(t, ReasonDeliveryFailed, res.Reason)
	require.ErrorIs(t, res.Err, cause)
}

type panickingSender struct{}

func (panickingSender) Send(context.Context, common.Email) error { panic("relay exploded") }

func TestNotifyRecoversFromSenderPanic(t *testing.T) {
	res := New(configured(), panickingSender{}, zerolog.Nop()).Notify(context.Background(), sampleRecord())
	require.False(t, res.Sent)
	require.Equal(t, ReasonDeliveryFailed, res.Reason)
	require.Error(t, res.Err)
}
