package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/obsidianstack/wgmonitor/pkg/types"
)

// timeLayout is used for timestamps inside message bodies.
const timeLayout = "2006-01-02 15:04:05 MST"

// Message is one outbound notification.
type Message struct {
	ID         string
	Category   types.EventKind
	Subject    string
	Body       string
	Recipients []string
}

// categoryOrder fixes the order in which per-category messages are sent.
var categoryOrder = []types.EventKind{
	types.EventAPIUnavailable,
	types.EventAPIRecovered,
	types.EventInterfaceDown,
	types.EventInterfaceUp,
	types.EventPeerDisconnected,
	types.EventPeerReconnected,
}

// Compose builds one message per event category present in events. verdict
// is the current verdict table and may be nil when none is known yet.
// Recipients are left empty; the Dispatcher fills them in.
func Compose(iface string, events []types.Event, verdict *types.VerdictSet, at time.Time) []Message {
	byKind := make(map[types.EventKind][]types.Event)
	for _, e := range events {
		byKind[e.Kind] = append(byKind[e.Kind], e)
	}

	var out []Message
	for _, kind := range categoryOrder {
		group := byKind[kind]
		if len(group) == 0 {
			continue
		}
		subject, body := render(iface, kind, group, verdict, at)
		out = append(out, Message{
			ID:       uuid.NewString(),
			Category: kind,
			Subject:  subject,
			Body:     body,
		})
	}
	return out
}

// TestMessage is the message sent by the -test-email mode.
func TestMessage(iface string, at time.Time) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "This is a test notification from the WireGuard monitor for %s.\n\n", iface)
	fmt.Fprintf(&b, "Time: %s\n\n", at.Format(timeLayout))
	b.WriteString("If you received this message, email notifications are configured correctly.\n")
	return Message{
		ID:      uuid.NewString(),
		Subject: "WireGuard Monitor Test - " + iface,
		Body:    b.String(),
	}
}

func render(iface string, kind types.EventKind, group []types.Event, verdict *types.VerdictSet, at time.Time) (string, string) {
	var b strings.Builder
	ts := at.Format(timeLayout)

	switch kind {
	case types.EventInterfaceDown:
		fmt.Fprintf(&b, "WireGuard interface %s is DOWN.\n\n", iface)
		fmt.Fprintf(&b, "Time: %s\n", ts)
		b.WriteString("Status: interface not running\n\n")
		b.WriteString("Please check the WireGuard service immediately.\n")
		writeTable(&b, verdict)
		return "WireGuard Interface Down - " + iface, b.String()

	case types.EventInterfaceUp:
		fmt.Fprintf(&b, "WireGuard interface %s is UP again.\n\n", iface)
		fmt.Fprintf(&b, "Time: %s\n", ts)
		writeTable(&b, verdict)
		return "WireGuard Interface Up - " + iface, b.String()

	case types.EventPeerDisconnected:
		fmt.Fprintf(&b, "WireGuard peer(s) have disconnected from %s.\n\n", iface)
		fmt.Fprintf(&b, "Time: %s\n", ts)
		fmt.Fprintf(&b, "Disconnected peers: %s\n", peerNames(group))
		writeTable(&b, verdict)
		return "WireGuard Peer(s) Disconnected - " + iface, b.String()

	case types.EventPeerReconnected:
		fmt.Fprintf(&b, "WireGuard peer(s) have reconnected to %s.\n\n", iface)
		fmt.Fprintf(&b, "Time: %s\n", ts)
		fmt.Fprintf(&b, "Reconnected peers: %s\n", peerNames(group))
		writeTable(&b, verdict)
		return "WireGuard Peer(s) Reconnected - " + iface, b.String()

	case types.EventAPIUnavailable:
		b.WriteString("Unable to monitor WireGuard connections due to API failures.\n\n")
		fmt.Fprintf(&b, "Time: %s\n", ts)
		fmt.Fprintf(&b, "Consecutive failures: %d\n", group[0].FailureCount)
		fmt.Fprintf(&b, "Configuration: %s\n\n", iface)
		b.WriteString("Please check:\n")
		b.WriteString("1. WireGuard Dashboard API is running\n")
		b.WriteString("2. API key is valid\n")
		b.WriteString("3. Network connectivity\n\n")
		b.WriteString("Monitoring will continue automatically. No further alerts are sent until the API recovers.\n")
		return "WireGuard Monitoring Alert - API Unavailable - " + iface, b.String()

	default: // types.EventAPIRecovered
		fmt.Fprintf(&b, "The WireGuard Dashboard API for %s is reachable again.\n\n", iface)
		fmt.Fprintf(&b, "Time: %s\n", ts)
		b.WriteString("Monitoring has resumed; transitions are reported against the state observed now.\n")
		writeTable(&b, verdict)
		return "WireGuard Monitoring Recovered - API Available - " + iface, b.String()
	}
}

func peerNames(group []types.Event) string {
	names := make([]string, 0, len(group))
	for _, e := range group {
		names = append(names, e.Peer)
	}
	return strings.Join(names, ", ")
}

// writeTable appends the current verdict table.
func writeTable(b *strings.Builder, v *types.VerdictSet) {
	if v == nil {
		return
	}
	iface := "DOWN"
	if v.InterfaceUp {
		iface = "UP"
	}
	fmt.Fprintf(b, "\nInterface: %s\n", iface)
	fmt.Fprintf(b, "Current peer status (%d/%d connected):\n", v.ConnectedCount(), len(v.Peers))
	for _, p := range v.Peers {
		state := "Disconnected"
		if p.Connected {
			state = "Connected"
		}
		fmt.Fprintf(b, "  - %s: %s\n", p.Name, state)
	}
}
