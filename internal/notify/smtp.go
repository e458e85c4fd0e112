package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/noah-isme/my-mailer/internal/common"
)

const implicitTLSPort = 465

var (
	// ErrStartTLSUnavailable is returned when a relay on a submission port
	// does not offer STARTTLS.
	ErrStartTLSUnavailable = errors.New("relay does not offer STARTTLS")
	// ErrAuthUnavailable is returned when a relay does not offer AUTH.
	ErrAuthUnavailable = errors.New("relay does not offer AUTH")
	// ErrPlaintextAuth is returned instead of sending credentials over an
	// unencrypted connection.
	ErrPlaintextAuth = errors.New("refusing to authenticate without TLS")
)

// SMTPConfig describes the authenticated submission relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
	// TLSConfig overrides the client TLS settings. ServerName defaults to Host.
	TLSConfig *tls.Config
}

// SMTPSender delivers messages through an SMTP relay. Port 465 uses implicit
// TLS; other ports must upgrade with STARTTLS. Every session authenticates,
// and credentials are only ever sent over TLS.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender constructs a sender for cfg.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// ErrSend wraps a relay failure.
type ErrSend struct {
	Host string
	Err  error
}

func (e ErrSend) Error() string { return fmt.Sprintf("smtp send via %s: %v", e.Host, e.Err) }
func (e ErrSend) Unwrap() error { return e.Err }

// Send implements common.EmailSender. The whole session, dial included, is
// bounded by the configured timeout and by ctx; the connection is closed
// before Send returns.
func (s *SMTPSender) Send(ctx context.Context, msg common.Email) error {
	m, err := buildMessage(msg)
	if err != nil {
		return err
	}
	from, err := envelopeAddress(msg.From)
	if err != nil {
		return fmt.Errorf("notify: from address: %w", err)
	}
	to, err := envelopeAddress(msg.To)
	if err != nil {
		return fmt.Errorf("notify: recipient: %w", err)
	}

	deadline := time.Now().Add(s.timeout())
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	dialer := &net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return s.fail(ctx, err)
	}
	defer conn.Close()
	if err := conn.SetDeadline(deadline); err != nil {
		return s.fail(ctx, err)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := s.deliver(conn, from, to, m); err != nil {
		return s.fail(ctx, err)
	}
	return nil
}

func (s *SMTPSender) deliver(conn net.Conn, from, to string, m *gomail.Message) error {
	tlsCfg := s.tlsConfig()
	implicit := s.cfg.Port == implicitTLSPort
	if implicit {
		conn = tls.Client(conn, tlsCfg)
	}

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Hello("localhost"); err != nil {
		return err
	}
	if !implicit {
		if ok, _ := c.Extension("STARTTLS"); !ok {
			return ErrStartTLSUnavailable
		}
		if err := c.StartTLS(tlsCfg); err != nil {
			return err
		}
	}
	if ok, _ := c.Extension("AUTH"); !ok {
		return ErrAuthUnavailable
	}
	if err := c.Auth(tlsOnlyAuth{smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)}); err != nil {
		return err
	}

	if err := c.Mail(from); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := m.WriteTo(w); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// fail maps a session error to the value returned by Send.
func (s *SMTPSender) fail(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var netErr net.Error
	if errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return ErrSend{Host: s.cfg.Host, Err: err}
}

func (s *SMTPSender) tlsConfig() *tls.Config {
	if s.cfg.TLSConfig != nil {
		cfg := s.cfg.TLSConfig.Clone()
		if cfg.ServerName == "" {
			cfg.ServerName = s.cfg.Host
		}
		return cfg
	}
	return &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}
}

func (s *SMTPSender) timeout() time.Duration {
	if s.cfg.Timeout <= 0 {
		return 20 * time.Second
	}
	return s.cfg.Timeout
}

// tlsOnlyAuth refuses to start an exchange on a connection without TLS.
// smtp.PlainAuth alone permits plaintext when the host is localhost.
type tlsOnlyAuth struct {
	smtp.Auth
}

func (a tlsOnlyAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	if !server.TLS {
		return "", nil, ErrPlaintextAuth
	}
	return a.Auth.Start(server)
}

func envelopeAddress(value string) (string, error) {
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return "", err
	}
	return addr.Address, nil
}

func buildMessage(msg common.Email) (*gomail.Message, error) {
	if strings.TrimSpace(msg.From) == "" {
		return nil, errors.New("notify: from address is required")
	}
	if strings.TrimSpace(msg.To) == "" {
		return nil, errors.New("notify: recipient is required")
	}

	m := gomail.NewMessage(gomail.SetCharset("UTF-8"))
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	if replyTo := strings.TrimSpace(msg.ReplyTo); replyTo != "" {
		m.SetHeader("Reply-To", replyTo)
	}
	m.SetBody("text/plain", msg.Text)
	m.AddAlternative("text/html", msg.HTML)
	return m, nil
}
