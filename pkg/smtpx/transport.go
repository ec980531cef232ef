// Package smtpx probes mail servers with a partial SMTP dialog. A probe
// stops after RCPT TO and never transfers message data, so nothing is
// actually delivered.
package smtpx

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Result is the mail server's reply to the RCPT TO probe.
type Result struct {
	Code    int
	Message string
}

// Accepted reports a 250-class acceptance.
func (r Result) Accepted() bool {
	return r.Code >= 200 && r.Code < 300
}

// Rejected reports a permanent 5xx rejection.
func (r Result) Rejected() bool {
	return r.Code >= 500 && r.Code < 600
}

// Temporary reports a 4xx reply (greylisting, mailbox busy).
func (r Result) Temporary() bool {
	return r.Code >= 400 && r.Code < 500
}

// Transport issues recipient probes against a mail host. Errors are reserved
// for connection-level failures; protocol replies, including rejections, come
// back as a Result.
type Transport interface {
	Probe(ctx context.Context, host, from, to string) (Result, error)
}

// Option configures the transport.
type Option func(*dialTransport)

// WithPort overrides the SMTP port (default 25).
func WithPort(port string) Option {
	return func(t *dialTransport) {
		t.port = port
	}
}

// WithTimeout sets the total dialog timeout per probe.
func WithTimeout(d time.Duration) Option {
	return func(t *dialTransport) {
		t.timeout = d
	}
}

// WithHeloDomain sets the domain announced in HELO.
func WithHeloDomain(domain string) Option {
	return func(t *dialTransport) {
		t.heloDomain = domain
	}
}

type dialTransport struct {
	port       string
	timeout    time.Duration
	heloDomain string
	dialer     net.Dialer
}

// NewTransport creates a Transport that speaks to real mail servers.
func NewTransport(opts ...Option) Transport {
	t := &dialTransport{
		port:       "25",
		timeout:    10 * time.Second,
		heloDomain: "verify.local",
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *dialTransport) Probe(ctx context.Context, host, from, to string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	rawConn, err := t.dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, t.port))
	if err != nil {
		return Result{}, eris.Wrapf(err, "smtpx: dial %s", host)
	}
	// A single deadline covers the whole dialog; DialContext alone would
	// only bound the connect.
	_ = rawConn.SetDeadline(time.Now().Add(t.timeout))

	conn := textproto.NewConn(rawConn)
	defer conn.Close()

	// Greeting.
	if _, _, err := conn.ReadResponse(220); err != nil {
		return Result{}, wrapDialog(err, "greeting")
	}

	if err := t.cmd(conn, 250, "HELO %s", t.heloDomain); err != nil {
		return Result{}, wrapDialog(err, "helo")
	}

	if err := t.cmd(conn, 250, "MAIL FROM:<%s>", from); err != nil {
		return Result{}, wrapDialog(err, "mail from")
	}

	// RCPT TO is the decisive check; any reply code is a legitimate answer.
	id, err := conn.Cmd("RCPT TO:<%s>", to)
	if err != nil {
		return Result{}, eris.Wrap(err, "smtpx: rcpt to")
	}
	conn.StartResponse(id)
	code, msg, err := conn.ReadResponse(-1)
	conn.EndResponse(id)
	if err != nil {
		return Result{}, eris.Wrap(err, "smtpx: read rcpt reply")
	}

	// Best-effort goodbye; the verdict is already in hand.
	if qid, qerr := conn.Cmd("QUIT"); qerr == nil {
		conn.StartResponse(qid)
		_, _, _ = conn.ReadResponse(-1)
		conn.EndResponse(qid)
	}

	return Result{Code: code, Message: strings.TrimSpace(msg)}, nil
}

func (t *dialTransport) cmd(conn *textproto.Conn, expectCode int, format string, args ...any) error {
	id, err := conn.Cmd(format, args...)
	if err != nil {
		return err
	}
	conn.StartResponse(id)
	defer conn.EndResponse(id)
	_, _, err = conn.ReadResponse(expectCode)
	return err
}

// wrapDialog keeps the textproto error in the chain so callers can pull the
// reply code out and classify 4xx handshake failures as transient.
func wrapDialog(err error, stage string) error {
	return eris.Wrapf(err, "smtpx: %s", stage)
}

// DialogCode extracts the SMTP reply code from a failed dialog, 0 if the
// error did not carry one.
func DialogCode(err error) int {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return tpErr.Code
	}
	return 0
}
