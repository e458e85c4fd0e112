package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"net/textproto"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/my-mailer/internal/common"
)

func TestBuildMessageIsMultipartAlternative(t *testing.T) {
	m, err := buildMessage(common.Email{
		From:    `"My Website" <site@example.com>`,
		To:      "owner@example.com",
		ReplyTo: "john.doe@example.com",
		Subject: "New Contact Form: Inquiry",
		Text:    "plain body",
		HTML:    "<p>html body</p>",
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()

	require.Contains(t, raw, "multipart/alternative")
	require.Contains(t, raw, "Reply-To: john.doe@example.com")
	require.Contains(t, raw, "To: owner@example.com")
	require.Contains(t, raw, "Content-Type: text/plain; charset=UTF-8")
	require.Contains(t, raw, "Content-Type: text/html; charset=UTF-8")
	require.Contains(t, raw, "plain body")
	require.Contains(t, raw, "<p>html body</p>")
}

func TestBuildMessageRequiresAddresses(t *testing.T) {
	_, err := buildMessage(common.Email{To: "owner@example.com"})
	require.Error(t, err)
	_, err = buildMessage(common.Email{From: "site@example.com"})
	require.Error(t, err)
}

func TestSMTPSenderTimesOut(t *testing.T) {
	// A listener that accepts but never speaks SMTP.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- conn
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		if conn, ok := <-accepted; ok {
			_ = conn.Close()
		}
	})

	addr := ln.Addr().(*net.TCPAddr)
	sender := NewSMTPSender(SMTPConfig{
		Host:     "127.0.0.1",
		Port:     addr.Port,
		Username: "site@example.com",
		Password: "secret",
		Timeout:  150 * time.Millisecond,
	})

	err = sender.Send(context.Background(), common.Email{From: "site@example.com", To: "owner@example.com", Subject: "s", Text: "t", HTML: "h"})
	var sendErr ErrSend
	require.ErrorAs(t, err, &sendErr)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

// relayCerts returns a certificate valid for 127.0.0.1 and a pool trusting it.
func relayCerts(t *testing.T) (*tls.Config, *tls.Config) {
	t.Helper()
	srv := httptest.NewUnstartedServer(http.NotFoundHandler())
	srv.StartTLS()
	cert := srv.TLS.Certificates[0]
	pool := x509.NewCertPool()
	pool.AddCert(srv.Certificate())
	srv.Close()
	return &tls.Config{Certificates: []tls.Certificate{cert}}, &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
}

// fakeRelay speaks enough SMTP to accept one message per connection.
type fakeRelay struct {
	ln net.Listener
	// tls enables STARTTLS when set.
	tls  *tls.Config
	auth bool

	mu    sync.Mutex
	lines []string
	data  string
}

func startRelay(t *testing.T, serverTLS *tls.Config, auth bool) *fakeRelay {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	r := &fakeRelay{ln: ln, tls: serverTLS, auth: auth}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go r.serve(conn)
		}
	}()
	t.Cleanup(func() { _ = ln.Close() })
	return r
}

func (r *fakeRelay) port() int { return r.ln.Addr().(*net.TCPAddr).Port }

func (r *fakeRelay) verbs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	verbs := make([]string, 0, len(r.lines))
	for _, line := range r.lines {
		verbs = append(verbs, strings.ToUpper(strings.Fields(line)[0]))
	}
	return verbs
}

func (r *fakeRelay) line(verb string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, line := range r.lines {
		if strings.HasPrefix(strings.ToUpper(line), verb) {
			return line
		}
	}
	return ""
}

func (r *fakeRelay) serve(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 relay.test ESMTP")
	secure := false
	for {
		line, err := tp.ReadLine()
		if err != nil || strings.TrimSpace(line) == "" {
			return
		}
		r.mu.Lock()
		r.lines = append(r.lines, line)
		r.mu.Unlock()

		switch strings.ToUpper(strings.Fields(line)[0]) {
		case "EHLO", "HELO":
			exts := []string{"relay.test", "8BITMIME"}
			if r.tls != nil && !secure {
				exts = append(exts, "STARTTLS")
			}
			if r.auth {
				exts = append(exts, "AUTH PLAIN")
			}
			for i, ext := range exts {
				sep := "-"
				if i == len(exts)-1 {
					sep = " "
				}
				_ = tp.PrintfLine("250%s%s", sep, ext)
			}
		case "STARTTLS":
			_ = tp.PrintfLine("220 ready to start TLS")
			tlsConn := tls.Server(conn, r.tls)
			if err := tlsConn.Handshake(); err != nil {
				return
			}
			tp = textproto.NewConn(tlsConn)
			secure = true
		case "AUTH":
			_ = tp.PrintfLine("235 2.7.0 accepted")
		case "MAIL", "RCPT":
			_ = tp.PrintfLine("250 ok")
		case "DATA":
			_ = tp.PrintfLine("354 end with .")
			body, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			r.mu.Lock()
			r.data = string(body)
			r.mu.Unlock()
			_ = tp.PrintfLine("250 queued")
		case "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("502 not implemented")
		}
	}
}

func relayEmail() common.Email {
	return common.Email{
		From:    `"My Website" <site@example.com>`,
		To:      "owner@example.com",
		ReplyTo: "john.doe@example.com",
		Subject: "New Contact Form: Hello",
		Text:    "plain body",
		HTML:    "<p>html body</p>",
	}
}

func relaySender(port int, clientTLS *tls.Config) *SMTPSender {
	return NewSMTPSender(SMTPConfig{
		Host:      "127.0.0.1",
		Port:      port,
		Username:  "site@example.com",
		Password:  "secret",
		Timeout:   3 * time.Second,
		TLSConfig: clientTLS,
	})
}

func TestSMTPSenderDeliversOverStartTLS(t *testing.T) {
	serverTLS, clientTLS := relayCerts(t)
	relay := startRelay(t, serverTLS, true)

	err := relaySender(relay.port(), clientTLS).Send(context.Background(), relayEmail())
	require.NoError(t, err)

	require.Equal(t, []string{"EHLO", "STARTTLS", "EHLO", "AUTH", "MAIL", "RCPT", "DATA", "QUIT"}, relay.verbs())
	require.Equal(t, "MAIL FROM:<site@example.com> BODY=8BITMIME", relay.line("MAIL"))
	require.Equal(t, "RCPT TO:<owner@example.com>", relay.line("RCPT"))
	relay.mu.Lock()
	data := relay.data
	relay.mu.Unlock()
	require.Contains(t, data, "Subject: New Contact Form: Hello")
	require.Contains(t, data, "multipart/alternative")
}

func TestSMTPSenderRequiresStartTLS(t *testing.T) {
	// Plaintext relay advertising AUTH but not STARTTLS.
	relay := startRelay(t, nil, true)

	err := relaySender(relay.port(), nil).Send(context.Background(), relayEmail())
	var sendErr ErrSend
	require.ErrorAs(t, err, &sendErr)
	require.ErrorIs(t, err, ErrStartTLSUnavailable)

	require.Eventually(t, func() bool { return len(relay.verbs()) > 0 }, time.Second, 10*time.Millisecond)
	require.NotContains(t, relay.verbs(), "AUTH")
	require.NotContains(t, relay.verbs(), "MAIL")
	require.NotContains(t, relay.verbs(), "DATA")
}

func TestSMTPSenderRequiresAuth(t *testing.T) {
	serverTLS, clientTLS := relayCerts(t)
	relay := startRelay(t, serverTLS, false)

	err := relaySender(relay.port(), clientTLS).Send(context.Background(), relayEmail())
	require.ErrorIs(t, err, ErrAuthUnavailable)
	require.NotContains(t, relay.verbs(), "MAIL")
}

func TestTLSOnlyAuthRefusesPlaintext(t *testing.T) {
	auth := tlsOnlyAuth{smtp.PlainAuth("", "site@example.com", "secret", "localhost")}

	_, _, err := auth.Start(&smtp.ServerInfo{Name: "localhost", TLS: false, Auth: []string{"PLAIN"}})
	require.ErrorIs(t, err, ErrPlaintextAuth)

	mech, resp, err := auth.Start(&smtp.ServerInfo{Name: "localhost", TLS: true, Auth: []string{"PLAIN"}})
	require.NoError(t, err)
	require.Equal(t, "PLAIN", mech)
	require.Equal(t, "\x00site@example.com\x00secret", string(resp))
}

// silentListener accepts connections and never writes to them.
func silentListener(t *testing.T) (int, <-chan net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	conns := make(chan net.Conn, 32)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conns <- conn
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		for {
			select {
			case conn := <-conns:
				_ = conn.Close()
			default:
				return
			}
		}
	})
	return ln.Addr().(*net.TCPAddr).Port, conns
}

func TestSMTPSenderTimeoutReleasesConnection(t *testing.T) {
	port, conns := silentListener(t)
	sender := NewSMTPSender(SMTPConfig{
		Host:     "127.0.0.1",
		Port:     port,
		Username: "site@example.com",
		Password: "secret",
		Timeout:  50 * time.Millisecond,
	})

	baseline := runtime.NumGoroutine()
	const sends = 10
	for i := 0; i < sends; i++ {
		err := sender.Send(context.Background(), relayEmail())
		require.ErrorIs(t, err, context.DeadlineExceeded)
	}

	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= baseline
	}, 2*time.Second, 20*time.Millisecond)

	// Every client socket was closed, so the relay side reads EOF.
	for i := 0; i < sends; i++ {
		select {
		case conn := <-conns:
			require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
			_, err := conn.Read(make([]byte, 1))
			require.ErrorIs(t, err, io.EOF)
			_ = conn.Close()
		case <-time.After(time.Second):
			t.Fatalf("relay accepted %d of %d connections", i, sends)
		}
	}
}

func TestSMTPSenderStopsOnCancel(t *testing.T) {
	port, _ := silentListener(t)
	sender := NewSMTPSender(SMTPConfig{
		Host:     "127.0.0.1",
		Port:     port,
		Username: "site@example.com",
		Password: "secret",
		Timeout:  10 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	err := sender.Send(ctx, relayEmail())
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), 2*time.Second)
}
