// Package mailer sends transactional email. The SMTP implementation uses
// github.com/wneessen/go-mail; a Memory implementation backs tests and a
// Log implementation backs dev environments without an SMTP server.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"sync"

	gomail "github.com/wneessen/go-mail"
)

// Message is a single outgoing email. Attachment is optional.
type Message struct {
	To             string
	Subject        string
	Body           string
	AttachmentName string
	Attachment     []byte
}

// Sender delivers messages. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTP sends through an SMTP relay.
type SMTP struct {
	client *gomail.Client
	from   string
}

// NewSMTP builds an SMTP sender. Username may be empty for relays without
// authentication.
func NewSMTP(host string, port int, username, password, from string) (*SMTP, error) {
	opts := []gomail.Option{gomail.WithPort(port)}
	if username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(username),
			gomail.WithPassword(password),
		)
	}
	client, err := gomail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTP{client: client, from: from}, nil
}

// Send implements Sender.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMsg()
	if err := m.From(s.from); err != nil {
		return fmt.Errorf("from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("to address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)
	if len(msg.Attachment) > 0 {
		if err := m.AttachReader(msg.AttachmentName, bytes.NewReader(msg.Attachment)); err != nil {
			return fmt.Errorf("attach %s: %w", msg.AttachmentName, err)
		}
	}
	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send to %s: %w", msg.To, err)
	}
	return nil
}

// Log writes messages to the process log instead of sending them.
type Log struct{}

// Send implements Sender.
func (Log) Send(_ context.Context, msg Message) error {
	log.Printf("mail (not sent): to=%s subject=%q bytes=%d", msg.To, msg.Subject, len(msg.Body))
	return nil
}

// Memory records messages in memory. Used by tests to assert deliveries.
type Memory struct {
	mu   sync.Mutex
	sent []Message
	// Err, when set, is returned by Send to simulate delivery failure.
	Err error
}

// Send implements Sender.
func (m *Memory) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns a copy of the recorded messages.
func (m *Memory) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}
