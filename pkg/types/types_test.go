package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseInterfaceStatus(t *testing.T) {
	tests := []struct {
		in   string
		want InterfaceStatus
	}{
		{"up", StatusUp},
		{"UP", StatusUp},
		{" Down ", StatusDown},
		{"", StatusUnknown},
		{"starting", StatusUnknown},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ParseInterfaceStatus(tc.in), "input %q", tc.in)
	}
}

func TestInterfaceSnapshot_Peer_DuplicateNameKeepsNewest(t *testing.T) {
	older := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	s := InterfaceSnapshot{Peers: []PeerSnapshot{
		{Name: "laptop", LastHandshake: older},
		{Name: "phone"},
		{Name: "laptop", LastHandshake: newer},
	}}

	p, ok := s.Peer("laptop")
	assert.True(t, ok)
	assert.Equal(t, newer, p.LastHandshake)

	p, ok = s.Peer("phone")
	assert.True(t, ok)
	assert.False(t, p.HandshakeKnown())

	_, ok = s.Peer("tablet")
	assert.False(t, ok)
}

func TestVerdictSet_Equal(t *testing.T) {
	a := VerdictSet{InterfaceUp: true, Peers: []PeerVerdict{{"laptop", true}, {"phone", false}}}
	b := a.Clone()
	assert.True(t, a.Equal(b))

	b.Peers[1].Connected = true
	assert.False(t, a.Equal(b), "clone must not share peer slice")
	assert.False(t, a.Peers[1].Connected)

	c := a.Clone()
	c.InterfaceUp = false
	assert.False(t, a.Equal(c))

	assert.False(t, a.Equal(VerdictSet{InterfaceUp: true}))
}

func TestVerdictSet_Connected(t *testing.T) {
	v := VerdictSet{Peers: []PeerVerdict{{"laptop", true}, {"phone", false}}}

	got, ok := v.Connected("laptop")
	assert.True(t, ok)
	assert.True(t, got)

	_, ok = v.Connected("tablet")
	assert.False(t, ok)

	assert.Equal(t, 1, v.ConnectedCount())
}

func TestEvent_String(t *testing.T) {
	assert.Equal(t, "peer_disconnected(laptop)", PeerDisconnected("laptop").String())
	assert.Equal(t, "api_unavailable(3)", APIUnavailable(3).String())
	assert.Equal(t, "interface_up", InterfaceUp().String())
}
