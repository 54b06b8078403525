// Package relayclient is the holder-device side of the token relay
// channel: a long-lived websocket subscription that keeps the local
// token cache current. On transport loss it reconnects a bounded number
// of times; the server replays the current token state on every
// reconnect, so no backlog is needed.
package relayclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/tokencache"
)

const (
	// DefaultMaxRetries is how many consecutive connection attempts are
	// made before the subscription fails permanently.
	DefaultMaxRetries = 5

	// DefaultRetryBackoff is the fixed delay between attempts.
	DefaultRetryBackoff = 3 * time.Second
)

// ErrRetriesExhausted is the terminal subscription failure. The caller
// must re-initiate the subscription (typically after showing a
// "reconnect" state to the user).
var ErrRetriesExhausted = errors.New("relayclient: reconnect attempts exhausted")

// Config configures a Client.
type Config struct {
	// BaseURL is the relay endpoint root, e.g. "ws://host:8080".
	BaseURL string

	// Bearer is the holder's credential, attached to the dial request.
	Bearer string

	// MaxRetries and RetryBackoff bound the reconnect loop. Zero values
	// take the defaults.
	MaxRetries   int
	RetryBackoff time.Duration

	Logger *slog.Logger
	Dialer *websocket.Dialer
}

// Client subscribes to per-session token updates.
type Client struct {
	cfg Config
}

// New returns a Client. Zero-value retry settings are defaulted.
func New(cfg Config) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	return &Client{cfg: cfg}
}

// Subscribe opens the session's relay stream. Messages arrive on the
// returned channel until ctx is cancelled or reconnection is exhausted;
// the channel is then closed and the terminal error (nil on clean
// cancellation) is available on the error channel.
func (c *Client) Subscribe(ctx context.Context, sessionID string) (<-chan Message, <-chan error) {
	msgs := make(chan Message)
	errs := make(chan error, 1)

	go func() {
		defer close(msgs)
		errs <- c.run(ctx, sessionID, msgs)
	}()

	return msgs, errs
}

// AttachCache runs a subscription and applies every token update to the
// holder cache until the subscription ends. Out-of-order updates are
// dropped by the cache itself. Blocks; returns the terminal error.
func (c *Client) AttachCache(ctx context.Context, sessionID string, cache *tokencache.Cache) error {
	msgs, errs := c.Subscribe(ctx, sessionID)
	for m := range msgs {
		if u, ok := m.CacheUpdate(); ok {
			cache.OnUpdate(u)
		}
	}
	return <-errs
}

func (c *Client) run(ctx context.Context, sessionID string, msgs chan<- Message) error {
	log := c.cfg.Logger.With("session_id", sessionID)

	attempts := 0
	for {
		conn, err := c.dial(ctx, sessionID)
		if err != nil {
			attempts++
			if attempts >= c.cfg.MaxRetries {
				log.Error("relay subscription failed permanently",
					"attempts", attempts, "err", err)
				return fmt.Errorf("%w: %v", ErrRetriesExhausted, err)
			}
			log.Warn("relay connect failed, retrying",
				"attempt", attempts, "backoff", c.cfg.RetryBackoff, "err", err)

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.cfg.RetryBackoff):
			}
			continue
		}

		// A successful connection resets the retry budget.
		attempts = 0

		err = c.readLoop(ctx, conn, msgs)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		log.Warn("relay connection lost, reconnecting", "err", err)
	}
}

func (c *Client) dial(ctx context.Context, sessionID string) (*websocket.Conn, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("relayclient: bad base url: %w", err)
	}
	u.Path = "/v1/sessions/" + sessionID + "/ws"

	header := http.Header{}
	if c.cfg.Bearer != "" {
		header.Set("Authorization", "Bearer "+c.cfg.Bearer)
	}

	conn, resp, err := c.cfg.Dialer.DialContext(ctx, u.String(), header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, msgs chan<- Message) error {
	// Unblock ReadJSON when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		var m Message
		if err := conn.ReadJSON(&m); err != nil {
			return err
		}

		select {
		case msgs <- m:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
