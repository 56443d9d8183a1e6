package compute

import "github.com/obsidianstack/wgmonitor/pkg/types"

// Detect returns the transitions from previous to current.
//
// A nil previous means there is no prior observation: the call establishes a
// baseline and returns nil. Interface events come first, then peer events in
// current's order. A peer that previous does not know about (added by a
// config reload) gets its baseline silently.
func Detect(previous *types.VerdictSet, current types.VerdictSet) []types.Event {
	if previous == nil {
		return nil
	}

	var events []types.Event
	switch {
	case previous.InterfaceUp && !current.InterfaceUp:
		events = append(events, types.InterfaceDown())
	case !previous.InterfaceUp && current.InterfaceUp:
		events = append(events, types.InterfaceUp())
	}

	for _, p := range current.Peers {
		was, known := previous.Connected(p.Name)
		if !known {
			continue
		}
		switch {
		case was && !p.Connected:
			events = append(events, types.PeerDisconnected(p.Name))
		case !was && p.Connected:
			events = append(events, types.PeerReconnected(p.Name))
		}
	}
	return events
}
