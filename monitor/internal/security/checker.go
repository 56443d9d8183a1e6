package security

import (
	"context"
	"crypto/tls"
	"math"
	"net"
	"net/url"
	"time"
)

const (
	dialTimeout = 10 * time.Second

	// expiringWithin is the window in which a certificate counts as expiring.
	expiringWithin = 30 * 24 * time.Hour
)

// Certificate states.
const (
	StatusValid       = "valid"
	StatusExpiring    = "expiring"
	StatusExpired     = "expired"
	StatusUnreachable = "unreachable"
)

// CertStatus describes the leaf certificate presented by an endpoint.
type CertStatus struct {
	Endpoint  string    `json:"endpoint"`
	Status    string    `json:"status"`
	DaysLeft  int       `json:"days_left"`
	Issuer    string    `json:"issuer,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	NotAfter  string    `json:"not_after,omitempty"` // RFC3339
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Check dials endpoint and returns the status of its leaf certificate.
//
// Returns nil for non-HTTPS endpoints. insecure skips chain verification so
// self-signed dashboards can still be inspected.
func Check(ctx context.Context, endpoint string, insecure bool) *CertStatus {
	return check(ctx, endpoint, insecure, time.Now())
}

func check(ctx context.Context, endpoint string, insecure bool, now time.Time) *CertStatus {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme != "https" {
		return nil
	}

	cs := &CertStatus{Endpoint: endpoint, CheckedAt: now.UTC()}

	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "443")
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{},
		Config: &tls.Config{
			ServerName:         u.Hostname(),
			InsecureSkipVerify: insecure, //nolint:gosec
		},
	}

	netConn, err := dialer.DialContext(dialCtx, "tcp", host)
	if err != nil {
		cs.Status = StatusUnreachable
		cs.Error = err.Error()
		return cs
	}
	conn := netConn.(*tls.Conn)
	defer conn.Close()

	peerCerts := conn.ConnectionState().PeerCertificates
	if len(peerCerts) == 0 {
		cs.Status = StatusUnreachable
		cs.Error = "no peer certificates"
		return cs
	}

	leaf := peerCerts[0]
	left := leaf.NotAfter.Sub(now)

	cs.NotAfter = leaf.NotAfter.UTC().Format(time.RFC3339)
	cs.Issuer = leaf.Issuer.CommonName
	cs.Subject = leaf.Subject.CommonName
	cs.DaysLeft = int(math.Floor(left.Hours() / 24))

	switch {
	case left <= 0:
		cs.Status = StatusExpired
	case left <= expiringWithin:
		cs.Status = StatusExpiring
	default:
		cs.Status = StatusValid
	}
	return cs
}
