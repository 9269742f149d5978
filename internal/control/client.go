// Package control implements the request/response protocol layer against the
// external profiler's well-known control endpoint.
//
// One websocket carries all traffic for a session, so operations issued by
// the same caller are delivered in send order. Replies are matched to
// requests by ID; unsolicited notifications are routed either to a blocking
// WaitForResults call or to a redirected Recipient.
package control

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// DefaultWaitTimeout bounds WaitForResults when the caller does not
// override it.
const DefaultWaitTimeout = 5 * time.Second

// replyTimeout bounds each individual request/reply exchange.
const replyTimeout = 5 * time.Second

// Recipient receives result notifications after RedirectResults. The three
// methods correspond to the three inbound notification kinds; an
// implementation must handle all of them and must not block, since dispatch
// happens on the channel's read loop.
type Recipient interface {
	// ResultsReady delivers the result set inline.
	ResultsReady(entries []ResultEntry)
	// ResultsAvailable announces results that require an explicit fetch.
	ResultsAvailable()
	// WaitTimeout reports that the remote side gave up waiting for a match.
	WaitTimeout()
}

// Client is the control channel for one profiling session.
type Client struct {
	conn   *websocket.Conn
	logger zerolog.Logger

	writeMu sync.Mutex

	mu        sync.Mutex
	nextID    uint64
	pending   map[uint64]chan envelope
	recipient Recipient

	notifications chan envelope
	done          chan struct{}
	closeOnce     sync.Once
}

// Dial connects to the control endpoint at url, authenticating with token
// when one is configured, and starts the background read loop.
func Dial(ctx context.Context, url, token string, logger zerolog.Logger) (*Client, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dial control endpoint %s: %w", url, err)
	}

	c := &Client{
		conn:          conn,
		logger:        logger,
		pending:       make(map[uint64]chan envelope),
		notifications: make(chan envelope, 8),
		done:          make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// EnableProfiling arms the remote profiler for the given labels.
//
// Fire-and-forget: the call returns as soon as the message is sent, and
// always resets the remote re-armed state even if already armed. Whether a
// match ever occurs is decided asynchronously on the remote side.
func (c *Client) EnableProfiling(spec LabelSpec) error {
	if err := c.write(enableEnvelope(spec)); err != nil {
		return fmt.Errorf("enable profiling: %w", err)
	}
	return nil
}

// DisableProfiling disarms profiling and clears the pending result buffer.
func (c *Client) DisableProfiling(ctx context.Context) error {
	reply, err := c.roundTrip(ctx, envelope{Op: opDisable})
	if err != nil {
		return fmt.Errorf("disable profiling: %w", err)
	}
	if reply.Error != "" {
		return fmt.Errorf("disable profiling: %s", reply.Error)
	}
	return nil
}

// AllowLabelTransition toggles sequential-transition mode remotely.
func (c *Client) AllowLabelTransition(ctx context.Context, allow bool) error {
	reply, err := c.roundTrip(ctx, envelope{Op: opAllowTransition, Allow: &allow})
	if err != nil {
		return fmt.Errorf("allow label transition: %w", err)
	}
	if reply.Error != "" {
		return fmt.Errorf("allow label transition: %s", reply.Error)
	}
	return nil
}

// GetResults actively fetches the latest result set. The set reflects
// whatever background activity has produced so far, not results as of the
// last enable call. Returns *NoResultsError when nothing was captured.
func (c *Client) GetResults(ctx context.Context) ([]ResultEntry, error) {
	reply, err := c.roundTrip(ctx, envelope{Op: opGetResults})
	if err != nil {
		return nil, fmt.Errorf("get profiling results: %w", err)
	}
	if reply.Error != "" {
		return nil, &NoResultsError{Diagnostic: reply.Error}
	}
	return reply.Entries, nil
}

// WaitForResults blocks until one results notification arrives, then returns
// the delivered set. A non-positive timeout means DefaultWaitTimeout.
// Returns ErrTimeout when the bound elapses or the remote side reports its
// own timeout.
func (c *Client) WaitForResults(ctx context.Context, timeout time.Duration) ([]ResultEntry, error) {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case env := <-c.notifications:
		switch env.Event {
		case evResults:
			return env.Entries, nil
		case evResultsAvailable:
			return c.GetResults(ctx)
		case evTimeout:
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("unexpected notification %q", env.Event)
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	}
}

// RedirectResults registers recipient for subsequent result notifications
// and tells the tool to push rather than hold them for a blocking waiter.
// Returns immediately.
func (c *Client) RedirectResults(recipient Recipient) error {
	c.mu.Lock()
	c.recipient = recipient
	c.mu.Unlock()

	if err := c.write(envelope{Op: opRedirect}); err != nil {
		return fmt.Errorf("redirect results: %w", err)
	}
	return nil
}

// SendStop asks the tool to shut down. Teardown is asynchronous; there is no
// synchronous acknowledgement of full shutdown, so the caller polls for
// observable teardown separately.
func (c *Client) SendStop() error {
	if err := c.write(envelope{Op: opStop}); err != nil {
		return fmt.Errorf("send stop: %w", err)
	}
	return nil
}

// Done is closed once the channel's read loop has exited, which is the
// observable sign that the peer has disconnected.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close tears down the websocket. Safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

// roundTrip sends one request and blocks on its matching reply, bounded by
// the per-operation reply timeout and the caller's context.
func (c *Client) roundTrip(ctx context.Context, env envelope) (envelope, error) {
	ch := make(chan envelope, 1)

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	env.ID = id
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.write(env); err != nil {
		c.forget(id)
		return envelope{}, err
	}

	timer := time.NewTimer(replyTimeout)
	defer timer.Stop()

	select {
	case reply, ok := <-ch:
		if !ok {
			return envelope{}, ErrClosed
		}
		return reply, nil
	case <-timer.C:
		c.forget(id)
		return envelope{}, ErrTimeout
	case <-ctx.Done():
		c.forget(id)
		return envelope{}, ctx.Err()
	}
}

func (c *Client) write(env envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(env)
}

func (c *Client) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) readLoop() {
	defer c.shutdown()

	for {
		var env envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			c.logger.Debug().Err(err).Msg("control channel read loop exiting")
			return
		}

		switch {
		case env.Ack != "":
			c.mu.Lock()
			ch, ok := c.pending[env.ID]
			if ok {
				delete(c.pending, env.ID)
			}
			c.mu.Unlock()
			if ok {
				ch <- env
			}
		case env.Event != "":
			c.dispatch(env)
		default:
			c.logger.Debug().Msg("ignoring untagged control message")
		}
	}
}

// dispatch routes a notification to the redirected recipient when one is
// registered, otherwise buffers it for a blocking WaitForResults.
func (c *Client) dispatch(env envelope) {
	c.mu.Lock()
	r := c.recipient
	c.mu.Unlock()

	if r != nil {
		switch env.Event {
		case evResults:
			r.ResultsReady(env.Entries)
		case evResultsAvailable:
			r.ResultsAvailable()
		case evTimeout:
			r.WaitTimeout()
		default:
			c.logger.Debug().Str("event", env.Event).Msg("ignoring unknown notification")
		}
		return
	}

	select {
	case c.notifications <- env:
	default:
		c.logger.Warn().Str("event", env.Event).Msg("notification buffer full, dropping")
	}
}

// shutdown fails every in-flight round trip and signals Done.
func (c *Client) shutdown() {
	c.mu.Lock()
	for id, ch := range c.pending {
		delete(c.pending, id)
		close(ch)
	}
	c.mu.Unlock()
	close(c.done)
}
