// Package suclient is the client for the network's Scheduler Unit: it
// resolves a process's identity and message log, which the evaluation
// pipeline replays to reconstruct process state.
package suclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/permaweb/cu/domain"
	"github.com/permaweb/cu/ordinate"
	"github.com/permaweb/cu/retry"
)

// Message is one entry in a process's message log, as scheduled by the SU.
type Message struct {
	Ordinate         ordinate.Ordinate
	MessageID        string
	DeepHash         string
	IsAssignment     bool
	Cron             bool
	Tags             []domain.Tag
	Data             []byte
	Block            domain.Block
	Timestamp        time.Time
	Epoch, Nonce     uint64
}

// MessageMeta is the scheduling metadata for a single message, without
// its payload.
type MessageMeta struct {
	ProcessID    string
	Timestamp    time.Time
	Epoch, Nonce uint64
	Ordinate     ordinate.Ordinate
}

// Timestamp is the SU's authoritative notion of "now".
type Timestamp struct {
	Block     domain.Block
	Timestamp time.Time
}

// Client is the SU client. Every method retries transient failures
// according to RetryPolicy.
type Client struct {
	BaseURL      string
	HTTPClient   *http.Client
	RetryPolicy  retry.Policy
	PageSize     int
}

func (c *Client) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) pageSize() int {
	if c.PageSize > 0 {
		return c.PageSize
	}
	return 1000
}

func (c *Client) policy() retry.Policy {
	if c.RetryPolicy != nil {
		return c.RetryPolicy
	}
	return retry.ExponentialBackoff{}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	n := 0

	for {
		err := c.getJSONOnce(ctx, path, out)
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}

		if sErr := retry.Sleep(ctx, c.policy(), n, err); sErr != nil {
			return sErr
		}
		n++
	}
}

func (c *Client) getJSONOnce(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.client().Do(req)
	if err != nil {
		return transientError{err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return transientError{fmt.Errorf("suclient: status %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("suclient: status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// LoadProcess fetches a process's identity from the SU.
func (c *Client) LoadProcess(ctx context.Context, processID string) (domain.Process, error) {
	var p domain.Process
	err := c.getJSON(ctx, "/processes/"+processID, &p)
	return p, err
}

// LoadTimestamp fetches the SU's current authoritative block/timestamp.
func (c *Client) LoadTimestamp(ctx context.Context) (Timestamp, error) {
	var ts Timestamp
	err := c.getJSON(ctx, "/timestamp", &ts)
	return ts, err
}

// LoadMessageMeta fetches the scheduling metadata for a single message.
func (c *Client) LoadMessageMeta(ctx context.Context, messageID string) (MessageMeta, error) {
	var m MessageMeta
	err := c.getJSON(ctx, "/messages/"+messageID, &m)
	return m, err
}

type transientError struct{ cause error }

func (e transientError) Error() string { return e.cause.Error() }
func (e transientError) Unwrap() error { return e.cause }

func isTransient(err error) bool {
	_, ok := err.(transientError)
	return ok
}
