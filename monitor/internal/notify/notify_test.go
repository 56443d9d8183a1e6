package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
	"go.uber.org/multierr"

	"github.com/obsidianstack/wgmonitor/pkg/types"
)

var at = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// fakeSender records every message and fails the subjects listed in failOn.
type fakeSender struct {
	mu     sync.Mutex
	sent   []Message
	failOn map[string]bool
}

func (f *fakeSender) Send(_ context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[msg.Subject] {
		return errors.New("smtp: 421 service not available")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func currentVerdict() *types.VerdictSet {
	return &types.VerdictSet{
		InterfaceUp: true,
		Peers: []types.PeerVerdict{
			{Name: "laptop", Connected: false},
			{Name: "phone", Connected: true},
			{Name: "tablet", Connected: false},
		},
	}
}

// --- Compose ---

func TestCompose_BatchesPeersPerCategory(t *testing.T) {
	events := []types.Event{
		types.PeerDisconnected("laptop"),
		types.PeerReconnected("phone"),
		types.PeerDisconnected("tablet"),
	}

	msgs := Compose("wg0", events, currentVerdict(), at)
	require.Len(t, msgs, 2)

	assert.Equal(t, types.EventPeerDisconnected, msgs[0].Category)
	assert.Equal(t, "WireGuard Peer(s) Disconnected - wg0", msgs[0].Subject)
	assert.Contains(t, msgs[0].Body, "Disconnected peers: laptop, tablet")
	assert.Contains(t, msgs[0].Body, "Current peer status (1/3 connected):")
	assert.Contains(t, msgs[0].Body, "  - phone: Connected\n")
	assert.Contains(t, msgs[0].Body, "  - laptop: Disconnected\n")

	assert.Equal(t, "WireGuard Peer(s) Reconnected - wg0", msgs[1].Subject)
	assert.Contains(t, msgs[1].Body, "Reconnected peers: phone")

	assert.NotEqual(t, msgs[0].ID, msgs[1].ID)
}

func TestCompose_APIUnavailable(t *testing.T) {
	msgs := Compose("wg0", []types.Event{types.APIUnavailable(3)}, nil, at)
	require.Len(t, msgs, 1)
	assert.Equal(t, "WireGuard Monitoring Alert - API Unavailable - wg0", msgs[0].Subject)
	assert.Contains(t, msgs[0].Body, "Consecutive failures: 3")
	assert.Contains(t, msgs[0].Body, "2. API key is valid")
	assert.NotContains(t, msgs[0].Body, "Current peer status")
}

func TestCompose_CategoryOrder(t *testing.T) {
	events := []types.Event{
		types.PeerDisconnected("laptop"),
		types.InterfaceDown(),
		types.APIRecovered(),
	}
	msgs := Compose("wg0", events, currentVerdict(), at)

	var kinds []types.EventKind
	for _, m := range msgs {
		kinds = append(kinds, m.Category)
	}
	assert.Equal(t, []types.EventKind{
		types.EventAPIRecovered,
		types.EventInterfaceDown,
		types.EventPeerDisconnected,
	}, kinds)
	assert.True(t, strings.HasPrefix(msgs[1].Body, "WireGuard interface wg0 is DOWN."))
}

func TestCompose_Empty(t *testing.T) {
	assert.Empty(t, Compose("wg0", nil, currentVerdict(), at))
}

// --- Dispatcher ---

func TestDispatcher_SendsWithRecipients(t *testing.T) {
	s := &fakeSender{}
	d := NewDispatcher(s, "wg0", []string{"ops@example.com", "oncall@example.com"})

	err := d.Dispatch(context.Background(), []types.Event{types.InterfaceUp()}, currentVerdict(), at)
	require.NoError(t, err)

	require.Len(t, s.sent, 1)
	assert.Equal(t, []string{"ops@example.com", "oncall@example.com"}, s.sent[0].Recipients)
}

func TestDispatcher_ContinuesAfterFailure(t *testing.T) {
	s := &fakeSender{failOn: map[string]bool{"WireGuard Interface Down - wg0": true}}
	d := NewDispatcher(s, "wg0", []string{"ops@example.com"})

	events := []types.Event{types.InterfaceDown(), types.PeerDisconnected("laptop")}
	err := d.Dispatch(context.Background(), events, currentVerdict(), at)

	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 1)
	var se *SendError
	require.ErrorAs(t, errs[0], &se)
	assert.Equal(t, "WireGuard Interface Down - wg0", se.Subject)

	require.Len(t, s.sent, 1, "the peer message is still delivered")
	assert.Equal(t, types.EventPeerDisconnected, s.sent[0].Category)
}

func TestDispatcher_NoEventsNoSend(t *testing.T) {
	s := &fakeSender{}
	d := NewDispatcher(s, "wg0", []string{"ops@example.com"})
	require.NoError(t, d.Dispatch(context.Background(), nil, currentVerdict(), at))
	assert.Empty(t, s.sent)
}

func TestDispatcher_SetRecipients(t *testing.T) {
	s := &fakeSender{}
	d := NewDispatcher(s, "wg0", []string{"old@example.com"})
	d.SetRecipients([]string{"new@example.com"})

	require.NoError(t, d.SendTest(context.Background(), at))
	require.Len(t, s.sent, 1)
	assert.Equal(t, []string{"new@example.com"}, s.sent[0].Recipients)
	assert.Equal(t, "WireGuard Monitor Test - wg0", s.sent[0].Subject)

	d.SetRecipients(nil)
	assert.Error(t, d.SendTest(context.Background(), at))
}

// --- EmailSender ---

func TestEmailSender_BuildMsg(t *testing.T) {
	s := NewEmailSender(SMTPConfig{Host: "smtp.example.com", Port: 587, From: "monitor@example.com"})

	m, err := s.buildMsg(Message{
		ID:         "abc",
		Subject:    "WireGuard Interface Down - wg0",
		Body:       "body",
		Recipients: []string{"ops@example.com", "oncall@example.com"},
	})
	require.NoError(t, err)

	rcpts, err := m.GetRecipients()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ops@example.com", "oncall@example.com"}, rcpts)
	assert.Equal(t, []string{"WireGuard Interface Down - wg0"}, m.GetGenHeader(mail.HeaderSubject))
}

func TestEmailSender_BuildMsg_InvalidFrom(t *testing.T) {
	s := NewEmailSender(SMTPConfig{From: "not an address"})
	_, err := s.buildMsg(Message{Recipients: []string{"ops@example.com"}})
	assert.Error(t, err)
}

func TestEmailSender_SendUnreachable(t *testing.T) {
	s := NewEmailSender(SMTPConfig{
		Host: "127.0.0.1", Port: 1,
		Username: "u", Password: "p",
		From:    "monitor@example.com",
		Timeout: time.Second,
	})
	err := s.Send(context.Background(), Message{Subject: "x", Body: "y", Recipients: []string{"ops@example.com"}})
	assert.Error(t, err)
}
