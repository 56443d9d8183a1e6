package fetcher

import (
	"crypto/tls"
	"net/http"
)

// APIKeyHeader is the header the WireGuard Dashboard reads the API key from.
const APIKeyHeader = "wg-dashboard-apikey"

// apiKeyRoundTripper injects the API key into every outgoing request.
type apiKeyRoundTripper struct {
	base http.RoundTripper
	key  string
}

func (t *apiKeyRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set(APIKeyHeader, t.key)
	req.Header.Set("Accept", "application/json")
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs the client used for every attempt. The timeout
// bounds one attempt, not the whole retry sequence.
func buildHTTPClient(cfg Config) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // user-configured
	}
	return &http.Client{
		Transport: &apiKeyRoundTripper{base: transport, key: cfg.APIKey},
		Timeout:   cfg.Timeout,
	}
}
