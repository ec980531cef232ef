package smtpx

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSMTPServer accepts one connection and replies to RCPT TO using rcptReply.
func fakeSMTPServer(t *testing.T, rcptReply string) (host, port string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		w := bufio.NewWriter(conn)
		r := bufio.NewReader(conn)
		reply := func(s string) {
			w.WriteString(s + "\r\n")
			w.Flush()
		}

		reply("220 mail.test ESMTP ready")
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			switch {
			case strings.HasPrefix(line, "HELO"):
				reply("250 mail.test")
			case strings.HasPrefix(line, "MAIL FROM"):
				reply("250 sender ok")
			case strings.HasPrefix(line, "RCPT TO"):
				reply(rcptReply)
			case strings.HasPrefix(line, "QUIT"):
				reply("221 bye")
				return
			default:
				reply("502 command not implemented")
			}
		}
	}()

	h, p, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return h, p
}

func TestProbe_Accepted(t *testing.T) {
	host, port := fakeSMTPServer(t, "250 recipient ok")

	tr := NewTransport(WithPort(port), WithTimeout(5*time.Second))
	res, err := tr.Probe(context.Background(), host, "verify@verify.local", "john.smith@acme.com")

	require.NoError(t, err)
	assert.Equal(t, 250, res.Code)
	assert.True(t, res.Accepted())
	assert.False(t, res.Rejected())
}

func TestProbe_Rejected(t *testing.T) {
	host, port := fakeSMTPServer(t, "550 no such user")

	tr := NewTransport(WithPort(port), WithTimeout(5*time.Second))
	res, err := tr.Probe(context.Background(), host, "verify@verify.local", "nobody@acme.com")

	require.NoError(t, err)
	assert.Equal(t, 550, res.Code)
	assert.True(t, res.Rejected())
	assert.Contains(t, res.Message, "no such user")
}

func TestProbe_Greylisted(t *testing.T) {
	host, port := fakeSMTPServer(t, "451 greylisted, try again later")

	tr := NewTransport(WithPort(port), WithTimeout(5*time.Second))
	res, err := tr.Probe(context.Background(), host, "verify@verify.local", "john@acme.com")

	require.NoError(t, err)
	assert.True(t, res.Temporary())
}

func TestProbe_ConnectionRefused(t *testing.T) {
	// Grab a port and close the listener so nothing is listening on it.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, port, _ := net.SplitHostPort(ln.Addr().String())
	ln.Close()

	tr := NewTransport(WithPort(port), WithTimeout(2*time.Second))
	_, err = tr.Probe(context.Background(), host, "verify@verify.local", "john@acme.com")
	require.Error(t, err)
}

func TestResultClassification(t *testing.T) {
	assert.True(t, Result{Code: 251}.Accepted())
	assert.True(t, Result{Code: 554}.Rejected())
	assert.True(t, Result{Code: 450}.Temporary())
	assert.False(t, Result{Code: 250}.Temporary())
}
