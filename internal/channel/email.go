package channel

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/spec-kit/notification-engine/internal/domain"
)

// EmailDispatcher sends messages over SMTP. Recipients are email addresses
// resolved from user settings.
type EmailDispatcher struct {
	host string
	port int
	from string
	auth smtp.Auth
}

// NewEmailDispatcher creates an SMTP dispatcher. user/password may be empty
// for unauthenticated relays.
func NewEmailDispatcher(host string, port int, from, user, password string) *EmailDispatcher {
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, password, host)
	}
	return &EmailDispatcher{host: host, port: port, from: from, auth: auth}
}

// Name returns the channel identifier.
func (d *EmailDispatcher) Name() domain.NotificationChannel {
	return domain.ChannelEmail
}

// Send delivers the message to every recipient address in one SMTP session.
// The connection inherits the context deadline, so a stalled server fails the
// send instead of holding the dispatch goroutine.
func (d *EmailDispatcher) Send(ctx context.Context, msg Message) error {
	if d.host == "" {
		return fmt.Errorf("smtp host not configured")
	}
	if len(msg.Recipients) == 0 {
		return fmt.Errorf("no recipient addresses")
	}

	addr := fmt.Sprintf("%s:%d", d.host, d.port)
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial failed: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, d.host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake failed: %w", err)
	}
	defer client.Close()

	if d.auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(d.auth); err != nil {
				return fmt.Errorf("smtp auth failed: %w", err)
			}
		}
	}

	if err := client.Mail(d.from); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	for _, rcpt := range msg.Recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp send failed: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	if _, err := w.Write([]byte(d.buildMessage(msg))); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp send failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return client.Quit()
}

func (d *EmailDispatcher) buildMessage(msg Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", d.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.Recipients, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return b.String()
}
