// Package client is the CLI-side shim for talking to a bridge daemon. It
// owns transport-failure classification and the bounded retry policy;
// callers see protocol-coded errors only.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/harnesslab/gimpbridge/internal/protocol"
)

// backoffSchedule is the fixed wait between retry attempts. Only
// unavailability is retried; a reachable bridge that rejects a call fails
// immediately.
var backoffSchedule = []time.Duration{
	500 * time.Millisecond,
	time.Second,
	2 * time.Second,
}

// Client calls one bridge daemon.
type Client struct {
	baseURL string
	http    *http.Client

	// schedule is replaced in tests to avoid real sleeps.
	schedule []time.Duration
}

// New returns a Client for the bridge at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 300 * time.Second},
		schedule: backoffSchedule,
	}
}

// URL returns the bridge base URL this client targets.
func (c *Client) URL() string { return c.baseURL }

// Call invokes one method with up to len(schedule) retries on
// unavailability. The wait honors ctx cancellation.
func (c *Client) Call(ctx context.Context, method string, params map[string]any) (map[string]any, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		result, err := c.callOnce(ctx, method, params)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !protocol.Retryable(protocol.CodeOf(err)) || attempt >= len(c.schedule) {
			return nil, lastErr
		}
		select {
		case <-time.After(c.schedule[attempt]):
		case <-ctx.Done():
			return nil, protocol.NewError(protocol.CodeBridgeUnavailable, "bridge call canceled: %v", ctx.Err())
		}
	}
}

func (c *Client) callOnce(ctx context.Context, method string, params map[string]any) (map[string]any, error) {
	body, err := protocol.EncodeRequest(method, params)
	if err != nil {
		return nil, protocol.NewError(protocol.CodeInternal, "failed to encode request: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rpc", bytes.NewReader(body))
	if err != nil {
		return nil, protocol.NewError(protocol.CodeInternal, "failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, protocol.NewError(protocol.CodeBridgeUnavailable, "bridge not reachable at %s: %v", c.baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, protocol.NewError(protocol.CodeBridgeUnavailable, "bridge connection dropped: %v", err)
	}

	reply, err := protocol.DecodeReply(data)
	if err != nil {
		return nil, err
	}
	if !reply.OK {
		return nil, reply.Err
	}
	return reply.Result, nil
}

// Health probes GET /health without retries. A running daemon answers 200
// regardless of engine state.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return protocol.NewError(protocol.CodeInternal, "failed to build request: %v", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return protocol.NewError(protocol.CodeBridgeUnavailable, "bridge not reachable at %s: %v", c.baseURL, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return protocol.NewError(protocol.CodeBridgeUnavailable, "bridge health returned %s", resp.Status)
	}
	return nil
}

// String implements fmt.Stringer for log output.
func (c *Client) String() string { return fmt.Sprintf("bridge[%s]", c.baseURL) }
