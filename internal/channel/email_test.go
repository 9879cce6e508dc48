package channel

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stalledSMTPServer accepts connections but never sends the SMTP greeting,
// simulating a hung mail relay.
func stalledSMTPServer(t *testing.T) (host string, port int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				time.Sleep(10 * time.Second)
				_ = c.Close()
			}(conn)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port
}

func TestEmailDispatcherSendFailsAtDeadline(t *testing.T) {
	host, port := stalledSMTPServer(t)
	d := NewEmailDispatcher(host, port, "noreply@example.com", "", "")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := d.Send(ctx, Message{
		Recipients: []string{"ona@example.com"},
		Subject:    "ticket escalated",
		Body:       "escalation level 2",
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Less(t, elapsed, time.Second, "send should fail at the context deadline, not hang")
}

func TestEmailDispatcherSendValidation(t *testing.T) {
	ctx := context.Background()

	d := NewEmailDispatcher("", 25, "noreply@example.com", "", "")
	assert.ErrorContains(t, d.Send(ctx, Message{Recipients: []string{"a@example.com"}}), "smtp host not configured")

	d = NewEmailDispatcher("smtp.internal", 25, "noreply@example.com", "", "")
	assert.ErrorContains(t, d.Send(ctx, Message{}), "no recipient addresses")
}
