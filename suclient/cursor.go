package suclient

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/permaweb/cu/ordinate"
)

// ErrCursorClosed is returned by Cursor.Next and Cursor.Close once the
// cursor has been closed.
var ErrCursorClosed = errors.New("suclient: cursor is closed")

// ErrExhausted is returned by Cursor.Next once the message log has been
// consumed through to the cursor's upper bound. It is a normal end of
// stream, not a failure.
var ErrExhausted = errors.New("suclient: message stream exhausted")

// Cursor is a lazy, paginated, non-restartable sequence of messages from a
// process's log, bounded by the "to" position it was opened with.
type Cursor struct {
	once     sync.Once
	cancel   context.CancelFunc
	messages chan Message
	err      error
}

// Next returns the next message in the sequence.
//
// It blocks until a message is available, the sequence is exhausted, or
// ctx is canceled. Once the sequence is exhausted, or the cursor is
// closed, every subsequent call returns the same terminal error.
func (c *Cursor) Next(ctx context.Context) (Message, error) {
	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case m, ok := <-c.messages:
		if ok {
			return m, nil
		}
		return Message{}, c.err
	}
}

// Close stops the cursor, releasing the goroutine driving its pagination.
func (c *Cursor) Close() error {
	if !c.close(ErrCursorClosed) {
		return ErrCursorClosed
	}
	return nil
}

func (c *Cursor) close(cause error) bool {
	ok := false
	c.once.Do(func() {
		c.cancel()
		c.err = cause
		ok = true
	})
	return ok
}

type pageResponse struct {
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"hasMore"`
}

// LoadMessages opens a cursor over processID's message log, from (exclusive)
// through to (inclusive), paginated PageSize messages at a time. Pagination
// retries transient errors according to RetryPolicy.
func (c *Client) LoadMessages(ctx context.Context, processID string, from, to ordinate.Ordinate) (*Cursor, error) {
	cctx, cancel := context.WithCancel(ctx)

	cur := &Cursor{
		cancel:   cancel,
		messages: make(chan Message),
	}

	go cur.consume(cctx, c, processID, from, to)

	return cur, nil
}

func (c *Cursor) consume(ctx context.Context, client *Client, processID string, from, to ordinate.Ordinate) {
	defer close(c.messages)

	cursor := from

	for {
		page, err := client.loadMessagePage(ctx, processID, cursor, to)
		if err != nil {
			c.close(err)
			return
		}

		for _, m := range page.Messages {
			select {
			case c.messages <- m:
			case <-ctx.Done():
				c.close(ctx.Err())
				return
			}
			cursor = m.Ordinate
		}

		if !page.HasMore {
			c.close(ErrExhausted)
			return
		}
	}
}

func (c *Client) loadMessagePage(ctx context.Context, processID string, from, to ordinate.Ordinate) (pageResponse, error) {
	path := "/processes/" + processID + "/messages?from=" + from.String() + "&to=" + to.String() + "&limit=" + strconv.Itoa(c.pageSize())

	var page pageResponse
	err := c.getJSON(ctx, path, &page)
	return page, err
}
