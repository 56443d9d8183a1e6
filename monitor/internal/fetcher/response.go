package fetcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/obsidianstack/wgmonitor/pkg/types"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 4 << 20

// handshakeLayouts are tried in order. Layouts without a zone are read in the
// host's local time, which is what the dashboard emits for naive timestamps.
var handshakeLayouts = []struct {
	layout string
	naive  bool
}{
	{time.RFC3339Nano, false},
	{"2006-01-02T15:04:05.999999999", true},
	{"2006-01-02 15:04:05.999999999", true},
}

// noHandshake holds the placeholder strings the dashboard uses for peers
// that never completed a handshake.
var noHandshake = map[string]bool{
	"":             true,
	"n/a":          true,
	"none":         true,
	"never":        true,
	"no handshake": true,
}

type apiResponse struct {
	Data *apiConfiguration `json:"data"`
}

type apiConfiguration struct {
	Status json.RawMessage `json:"status"`
	Peers  json.RawMessage `json:"peers"`
}

type apiPeer struct {
	Name            string          `json:"name"`
	ID              string          `json:"id"`
	LatestHandshake json.RawMessage `json:"latest_handshake"`
}

// parseSnapshot decodes an API body into a snapshot for iface. Any deviation
// from the expected shape is returned as an error; the caller classifies it
// as ReasonMalformed.
func parseSnapshot(r io.Reader, iface string, fetchedAt time.Time) (types.InterfaceSnapshot, error) {
	var resp apiResponse
	if err := json.NewDecoder(io.LimitReader(r, maxBodyBytes)).Decode(&resp); err != nil {
		return types.InterfaceSnapshot{}, fmt.Errorf("decode json: %w", err)
	}
	if resp.Data == nil {
		return types.InterfaceSnapshot{}, errors.New(`missing "data" object`)
	}

	status, err := parseStatus(resp.Data.Status)
	if err != nil {
		return types.InterfaceSnapshot{}, err
	}

	var peers []apiPeer
	if raw := resp.Data.Peers; len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &peers); err != nil {
			return types.InterfaceSnapshot{}, fmt.Errorf(`"peers" is not an array of peers: %w`, err)
		}
	}

	snap := types.InterfaceSnapshot{
		Name:      iface,
		Status:    status,
		Peers:     make([]types.PeerSnapshot, 0, len(peers)),
		FetchedAt: fetchedAt,
	}
	for _, p := range peers {
		name := p.Name
		if name == "" {
			name = p.ID
		}
		if name == "" {
			name = "unknown"
		}
		snap.Peers = append(snap.Peers, types.PeerSnapshot{
			Name:          name,
			LastHandshake: parseHandshake(name, p.LatestHandshake),
		})
	}
	return snap, nil
}

// parseStatus accepts the status either as a string ("up"/"down") or as a
// boolean, which some dashboard versions return.
func parseStatus(raw json.RawMessage) (types.InterfaceStatus, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", errors.New(`missing "status" field`)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return types.ParseInterfaceStatus(s), nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return types.StatusUp, nil
		}
		return types.StatusDown, nil
	}
	return "", fmt.Errorf(`"status" has unexpected value %s`, raw)
}

// parseHandshake returns the handshake instant in UTC, or the zero time when
// the value is a placeholder, not a string, or cannot be parsed.
func parseHandshake(peer string, raw json.RawMessage) time.Time {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		slog.Warn("fetcher: non-string handshake value", "peer", peer, "value", string(raw))
		return time.Time{}
	}
	s = strings.TrimSpace(s)
	if noHandshake[strings.ToLower(s)] {
		return time.Time{}
	}
	for _, l := range handshakeLayouts {
		var (
			t   time.Time
			err error
		)
		if l.naive {
			t, err = time.ParseInLocation(l.layout, s, time.Local)
		} else {
			t, err = time.Parse(l.layout, s)
		}
		if err == nil {
			return t.UTC()
		}
	}
	slog.Warn("fetcher: unparseable handshake time", "peer", peer, "value", s)
	return time.Time{}
}
