package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/doyensec/safeurl"
)

const maxUpstreamBody = 4 << 20

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Upstream string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded with status %d", e.Upstream, e.Code)
}

// defaultClient is used when a repository is built without an HTTP client.
func defaultClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// NewUpstreamClient builds the HTTP client shared by the upstream
// repositories. With safe set, connections to private, loopback and
// link-local addresses are refused after DNS resolution and only http/https
// on ports 80 and 443 are allowed.
func NewUpstreamClient(timeout time.Duration, safe bool) *http.Client {
	if !safe {
		return defaultClient(timeout)
	}
	cfg := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()
	return safeurl.Client(cfg).Client
}

func doJSON(ctx context.Context, client *http.Client, upstream string, req *http.Request, dest interface{}) error {
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", upstream, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxUpstreamBody))
		return &StatusError{Upstream: upstream, Code: resp.StatusCode}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxUpstreamBody)).Decode(dest); err != nil {
		return fmt.Errorf("%s decode: %w", upstream, err)
	}
	return nil
}
