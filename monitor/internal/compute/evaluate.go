package compute

import (
	"time"

	"github.com/obsidianstack/wgmonitor/pkg/types"
)

// Evaluate derives the verdict set for snap.
//
// Only peers named in monitored are considered, in that order; a repeated
// name yields a single verdict at its first position. A monitored
// peer is connected when its handshake is known and no older than timeout at
// now; a peer missing from snap counts as disconnected.
func Evaluate(snap types.InterfaceSnapshot, monitored []string, timeout time.Duration, now time.Time) types.VerdictSet {
	v := types.VerdictSet{
		InterfaceUp: snap.Status == types.StatusUp,
		Peers:       make([]types.PeerVerdict, 0, len(monitored)),
	}
	seen := make(map[string]bool, len(monitored))
	for _, name := range monitored {
		if seen[name] {
			continue
		}
		seen[name] = true
		p, ok := snap.Peer(name)
		v.Peers = append(v.Peers, types.PeerVerdict{
			Name:      name,
			Connected: ok && p.HandshakeKnown() && now.Sub(p.LastHandshake) <= timeout,
		})
	}
	return v
}
