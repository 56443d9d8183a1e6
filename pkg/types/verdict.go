package types

// PeerVerdict is the derived connectivity of one monitored peer.
type PeerVerdict struct {
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

// VerdictSet is the connectivity verdict for the interface and every
// monitored peer, in configuration order.
type VerdictSet struct {
	InterfaceUp bool          `json:"interface_up"`
	Peers       []PeerVerdict `json:"peers"`
}

// Connected returns the verdict for name and whether name is part of the set.
func (v VerdictSet) Connected(name string) (connected, ok bool) {
	for _, p := range v.Peers {
		if p.Name == name {
			return p.Connected, true
		}
	}
	return false, false
}

// ConnectedCount returns how many peers are connected.
func (v VerdictSet) ConnectedCount() int {
	var n int
	for _, p := range v.Peers {
		if p.Connected {
			n++
		}
	}
	return n
}

// Equal reports whether v and o hold the same interface state and the same
// peers with the same verdicts, in the same order.
func (v VerdictSet) Equal(o VerdictSet) bool {
	if v.InterfaceUp != o.InterfaceUp || len(v.Peers) != len(o.Peers) {
		return false
	}
	for i := range v.Peers {
		if v.Peers[i] != o.Peers[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of v.
func (v VerdictSet) Clone() VerdictSet {
	out := VerdictSet{InterfaceUp: v.InterfaceUp}
	if v.Peers != nil {
		out.Peers = make([]PeerVerdict, len(v.Peers))
		copy(out.Peers, v.Peers)
	}
	return out
}
