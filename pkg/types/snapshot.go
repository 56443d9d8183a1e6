package types

import (
	"strings"
	"time"
)

// InterfaceStatus is the normalized state reported for a WireGuard interface.
type InterfaceStatus string

const (
	StatusUp      InterfaceStatus = "up"
	StatusDown    InterfaceStatus = "down"
	StatusUnknown InterfaceStatus = "unknown"
)

// ParseInterfaceStatus maps an API status string to an InterfaceStatus.
// Matching is case-insensitive; anything other than up/down is unknown.
func ParseInterfaceStatus(s string) InterfaceStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return StatusUp
	case "down":
		return StatusDown
	default:
		return StatusUnknown
	}
}

// PeerSnapshot is one peer as seen in a single fetch.
// A zero LastHandshake means the API reported no usable handshake.
type PeerSnapshot struct {
	Name          string
	LastHandshake time.Time
}

// HandshakeKnown reports whether the peer has a handshake timestamp.
func (p PeerSnapshot) HandshakeKnown() bool {
	return !p.LastHandshake.IsZero()
}

// InterfaceSnapshot is the normalized result of one successful fetch.
type InterfaceSnapshot struct {
	Name      string
	Status    InterfaceStatus
	Peers     []PeerSnapshot
	FetchedAt time.Time
}

// Peer returns the snapshot for name. When the API lists the same name more
// than once, the entry with the most recent handshake is returned.
func (s InterfaceSnapshot) Peer(name string) (PeerSnapshot, bool) {
	var (
		best  PeerSnapshot
		found bool
	)
	for _, p := range s.Peers {
		if p.Name != name {
			continue
		}
		if !found || p.LastHandshake.After(best.LastHandshake) {
			best = p
			found = true
		}
	}
	return best, found
}
