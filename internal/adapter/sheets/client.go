package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"libraquant/internal/domain"
)

// placeholder left in unconfigured deployments
const unconfiguredMarker = "REPLACE_WITH_ACTUAL"

// maxBodyBytes caps how much of a response is read
const maxBodyBytes = 8 << 20

// ErrNotConfigured is wrapped in the NetworkError returned before any
// request is made against an unset endpoint
var ErrNotConfigured = errors.New("sheet endpoint not configured")

// Client talks to the spreadsheet script that stores signals, watchlist and users
type Client struct {
	endpoint   string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a new sheet client
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: strings.TrimSpace(endpoint),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

var (
	_ domain.SnapshotSource = (*Client)(nil)
	_ domain.ChangePusher   = (*Client)(nil)
)

// Configured reports whether an endpoint has been set
func (c *Client) Configured() bool {
	return c.endpoint != "" && !strings.Contains(c.endpoint, unconfiguredMarker)
}

// FetchSnapshot reads the full dataset from the sheet
func (c *Client) FetchSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	if !c.Configured() {
		return nil, &domain.NetworkError{Op: "fetch snapshot", Err: ErrNotConfigured}
	}

	now := c.now()
	target, err := c.cacheBustedURL(now)
	if err != nil {
		return nil, &domain.NetworkError{Op: "fetch snapshot", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &domain.NetworkError{Op: "fetch snapshot", Err: err}
	}
	// Script hosts sit behind caches that ignore the query alone
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.NetworkError{Op: "fetch snapshot", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.NetworkError{Op: "fetch snapshot", StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &domain.NetworkError{Op: "read snapshot", Err: err}
	}

	return parseSnapshotAt(body, now)
}

// PushChange sends a write to the sheet and does not wait for its outcome
// to be confirmed. The response body is never inspected; the next fetch
// shows whether the write landed.
func (c *Client) PushChange(ctx context.Context, change domain.RemoteChange) {
	if !c.Configured() {
		log.Printf("[WARN] Sheet endpoint not configured, dropping %s %s", change.Action, change.Target)
		return
	}

	payload, err := json.Marshal(change)
	if err != nil {
		log.Printf("ERROR: failed to marshal %s change: %v", change.Target, err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		log.Printf("ERROR: failed to create %s request: %v", change.Target, err)
		return
	}
	// text/plain keeps the request simple for script hosts
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("ERROR: failed to push %s %s: %v", change.Action, change.Target, err)
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	resp.Body.Close()

	log.Printf("[SYNC] Pushed %s %s %s", change.Action, change.Target, change.ID)
}

func (c *Client) cacheBustedURL(now time.Time) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(now.UnixMilli(), 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
