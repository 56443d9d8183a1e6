package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/obsidianstack/wgmonitor/pkg/types"
)

// Sender delivers one message. Implementations must honour ctx.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SendError reports a failed delivery of one message.
type SendError struct {
	MessageID string
	Subject   string
	Err       error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("notify: send %q: %v", e.Subject, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// Dispatcher composes events into messages and hands them to a Sender.
//
// Dispatch is called from the scheduler goroutine only; SetRecipients may be
// called concurrently (config reload).
type Dispatcher struct {
	sender Sender
	iface  string

	mu         sync.RWMutex
	recipients []string
}

// NewDispatcher returns a Dispatcher for the given interface name.
func NewDispatcher(sender Sender, iface string, recipients []string) *Dispatcher {
	d := &Dispatcher{sender: sender, iface: iface}
	d.SetRecipients(recipients)
	return d
}

// SetRecipients replaces the recipient list used for subsequent messages.
func (d *Dispatcher) SetRecipients(recipients []string) {
	cp := make([]string, len(recipients))
	copy(cp, recipients)
	d.mu.Lock()
	d.recipients = cp
	d.mu.Unlock()
}

// Recipients returns a copy of the current recipient list.
func (d *Dispatcher) Recipients() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	cp := make([]string, len(d.recipients))
	copy(cp, d.recipients)
	return cp
}

// Dispatch sends one message per event category. Every message is attempted
// even if an earlier one fails; the failures are returned combined.
func (d *Dispatcher) Dispatch(ctx context.Context, events []types.Event, verdict *types.VerdictSet, at time.Time) error {
	if len(events) == 0 {
		return nil
	}
	var err error
	for _, msg := range Compose(d.iface, events, verdict, at) {
		err = multierr.Append(err, d.send(ctx, msg))
	}
	return err
}

// SendTest delivers the test message used by -test-email.
func (d *Dispatcher) SendTest(ctx context.Context, at time.Time) error {
	return d.send(ctx, TestMessage(d.iface, at))
}

func (d *Dispatcher) send(ctx context.Context, msg Message) error {
	msg.Recipients = d.Recipients()
	if len(msg.Recipients) == 0 {
		return &SendError{MessageID: msg.ID, Subject: msg.Subject, Err: errors.New("no recipients configured")}
	}

	if err := d.sender.Send(ctx, msg); err != nil {
		slog.Error("notify: delivery failed",
			"id", msg.ID,
			"category", msg.Category,
			"subject", msg.Subject,
			"err", err,
		)
		return &SendError{MessageID: msg.ID, Subject: msg.Subject, Err: err}
	}

	slog.Info("notify: notification sent",
		"id", msg.ID,
		"category", msg.Category,
		"subject", msg.Subject,
		"recipients", len(msg.Recipients),
	)
	return nil
}
