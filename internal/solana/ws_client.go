package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ErrRetriesExhausted is returned by Run after the configured maximum
// number of reconnect attempts has been exceeded. The stream is inert
// afterwards until a new client is started.
var ErrRetriesExhausted = errors.New("reconnect attempts exhausted")

// WSConfig configures the subscription client.
type WSConfig struct {
	// HeartbeatInterval is the period between liveness probes.
	HeartbeatInterval time.Duration
	// HeartbeatTimeout is how long a probe may go unanswered before the
	// link is force-closed.
	HeartbeatTimeout time.Duration
	// ReconnectBase is the delay before the first reconnect attempt.
	ReconnectBase time.Duration
	// ReconnectMax caps the reconnect delay.
	ReconnectMax time.Duration
	// ReconnectGrowth is the backoff multiplier between attempts.
	ReconnectGrowth float64
	// MaxReconnects is the number of consecutive failed attempts after
	// which the client gives up.
	MaxReconnects int
	// WriteTimeout is the deadline for outbound frames.
	WriteTimeout time.Duration
	// HandshakeTimeout bounds the WebSocket dial.
	HandshakeTimeout time.Duration
}

// DefaultWSConfig returns the default subscription client configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		HeartbeatInterval: 15 * time.Second,
		HeartbeatTimeout:  5 * time.Second,
		ReconnectBase:     5 * time.Second,
		ReconnectMax:      120 * time.Second,
		ReconnectGrowth:   1.5,
		MaxReconnects:     10,
		WriteTimeout:      10 * time.Second,
		HandshakeTimeout:  10 * time.Second,
	}
}

// Hooks are optional callbacks fired on client state transitions.
// All fields may be nil.
type Hooks struct {
	// Connected fires after a link is opened and all subscribe requests
	// have been written.
	Connected func()
	// Reconnecting fires before each reconnect delay.
	Reconnecting func(attempt int, delay time.Duration)
	// HeartbeatMiss fires when a liveness probe goes unanswered and the
	// link is force-closed.
	HeartbeatMiss func()
	// Terminal fires exactly once when reconnect attempts are exhausted.
	Terminal func(attempts int)
}

// Client owns one long-lived logsSubscribe stream and the
// connect/reconnect/heartbeat state machine around it.
//
// One subscribe request is sent per watched address, with correlation ids
// sequential from 1 in address-list order. The ack for id i binds the
// upstream subscription id to addresses[i-1]. All bindings are invalidated
// on every reconnect and re-requested from scratch.
type Client struct {
	endpoint  string
	addresses []string
	cfg       WSConfig
	hooks     Hooks
	log       zerolog.Logger

	events chan LogEvent

	state atomic.Int32

	writeMu sync.Mutex
	conn    *websocket.Conn

	// subs maps upstream subscription ids to watched addresses for the
	// current link only.
	subsMu sync.RWMutex
	subs   map[int64]string

	lastPong atomic.Int64 // unix nanos of the last pong observed
}

// NewClient creates a subscription client for the given watched addresses.
// Run must be called to start the stream.
func NewClient(endpoint string, addresses []string, cfg *WSConfig, hooks Hooks, log zerolog.Logger) *Client {
	c := DefaultWSConfig()
	if cfg != nil {
		c = *cfg
	}
	return &Client{
		endpoint:  endpoint,
		addresses: addresses,
		cfg:       c,
		hooks:     hooks,
		log:       log,
		events:    make(chan LogEvent, 256),
		subs:      make(map[int64]string),
	}
}

// Events returns the notification channel. Events are delivered in arrival
// order. The channel is closed when Run returns.
func (c *Client) Events() <-chan LogEvent {
	return c.events
}

// State returns the current connection state.
func (c *Client) State() ClientState {
	return ClientState(c.state.Load())
}

func (c *Client) setState(s ClientState) {
	c.state.Store(int32(s))
}

// Run drives the state machine until ctx is cancelled or reconnect
// attempts are exhausted. It returns ErrRetriesExhausted in the latter
// case; the process is expected to stay alive with the stream inert.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.events)

	attempt := 0
	for {
		c.setState(StateConnecting)
		conn, err := c.dial(ctx)
		if err == nil {
			err = c.session(ctx, conn, &attempt)
		}

		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			return ctx.Err()
		}

		attempt++
		if c.cfg.MaxReconnects > 0 && attempt > c.cfg.MaxReconnects {
			c.setState(StateTerminated)
			c.log.Error().Int("attempts", attempt-1).Msg("giving up on stream, no further reconnects")
			if c.hooks.Terminal != nil {
				c.hooks.Terminal(attempt - 1)
			}
			return ErrRetriesExhausted
		}

		delay := reconnectDelay(attempt, c.cfg.ReconnectBase, c.cfg.ReconnectMax, c.cfg.ReconnectGrowth)
		c.setState(StateReconnecting)
		c.log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("stream down, scheduling reconnect")
		if c.hooks.Reconnecting != nil {
			c.hooks.Reconnecting(attempt, delay)
		}

		select {
		case <-ctx.Done():
			c.setState(StateDisconnected)
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// reconnectDelay computes the backoff delay for the given attempt (1-based):
// base × growth^(attempt−1), capped at max.
func reconnectDelay(attempt int, base, max time.Duration, growth float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(base) * math.Pow(growth, float64(attempt-1)))
	if d > max || d <= 0 {
		d = max
	}
	return d
}

// dial opens the WebSocket connection.
func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

// session runs a single connection lifetime: subscribe, heartbeat, read
// until the link fails. It always returns a non-nil error unless ctx was
// cancelled.
func (c *Client) session(ctx context.Context, conn *websocket.Conn, attempt *int) error {
	defer conn.Close()

	c.writeMu.Lock()
	c.conn = conn
	c.writeMu.Unlock()
	defer func() {
		c.writeMu.Lock()
		c.conn = nil
		c.writeMu.Unlock()
	}()

	// Previous bindings are void on a fresh link.
	c.subsMu.Lock()
	c.subs = make(map[int64]string)
	c.subsMu.Unlock()

	c.setState(StateSubscribing)
	if err := c.subscribeAll(conn); err != nil {
		return err
	}

	// The link is open and subscriptions are in flight: the attempt
	// counter starts over.
	*attempt = 0
	c.log.Info().Int("addresses", len(c.addresses)).Msg("stream open, subscriptions requested")
	if c.hooks.Connected != nil {
		c.hooks.Connected()
	}

	c.lastPong.Store(time.Now().UnixNano())
	conn.SetPongHandler(func(string) error {
		c.lastPong.Store(time.Now().UnixNano())
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go c.heartbeat(ctx, conn, done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		c.handleFrame(ctx, data)
	}
}

// subscribeAll sends one logsSubscribe per watched address, correlation
// ids sequential from 1 in address-list order.
func (c *Client) subscribeAll(conn *websocket.Conn) error {
	for i, addr := range c.addresses {
		req := wsRequest{
			JSONRPC: "2.0",
			ID:      int64(i + 1),
			Method:  "logsSubscribe",
			Params: []interface{}{
				map[string]interface{}{"mentions": []string{addr}},
				map[string]string{"commitment": "confirmed"},
			},
		}
		c.writeMu.Lock()
		conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
		err := conn.WriteJSON(req)
		c.writeMu.Unlock()
		if err != nil {
			return fmt.Errorf("write subscribe %d: %w", i+1, err)
		}
	}
	return nil
}

// heartbeat probes the link every HeartbeatInterval and force-closes it
// when a probe goes unanswered past HeartbeatTimeout. This catches links
// that stall silently without ever raising a close event. It also closes
// the link on ctx cancellation, unblocking the session read loop.
func (c *Client) heartbeat(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			conn.Close()
			return
		case <-ticker.C:
			sent := time.Now()
			c.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				conn.Close()
				return
			}

			select {
			case <-done:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-time.After(c.cfg.HeartbeatTimeout):
				if c.lastPong.Load() < sent.UnixNano() {
					c.log.Warn().Msg("heartbeat probe unanswered, forcing stream teardown")
					if c.hooks.HeartbeatMiss != nil {
						c.hooks.HeartbeatMiss()
					}
					conn.Close()
					return
				}
			}
		}
	}
}

// handleFrame decodes one inbound frame into ack / notification / unknown
// by required-field presence and reacts accordingly. Malformed frames are
// logged and dropped; the stream is unaffected.
func (c *Client) handleFrame(ctx context.Context, data []byte) {
	var f wsFrame
	if err := json.Unmarshal(data, &f); err != nil {
		c.log.Warn().Err(err).Msg("dropping malformed frame")
		return
	}

	switch {
	case f.ID != nil && f.Result != nil:
		c.bindSubscription(*f.ID, *f.Result)
	case f.Method == "logsNotification" && f.Params != nil:
		c.dispatch(ctx, f.Params)
	case f.Error != nil:
		c.log.Warn().Int("code", f.Error.Code).Str("message", f.Error.Message).Msg("upstream error frame")
	default:
		c.log.Debug().Msg("ignoring unrecognized frame")
	}
}

// bindSubscription binds an acked subscription id to the watched address
// at position id−1.
func (c *Client) bindSubscription(id, subID int64) {
	pos := int(id - 1)
	if pos < 0 || pos >= len(c.addresses) {
		c.log.Warn().Int64("id", id).Msg("ack for unknown subscribe request")
		return
	}

	c.subsMu.Lock()
	c.subs[subID] = c.addresses[pos]
	bound := len(c.subs)
	c.subsMu.Unlock()

	c.log.Debug().Int64("subscription", subID).Str("address", c.addresses[pos]).Msg("subscription bound")
	if bound == len(c.addresses) && c.State() == StateSubscribing {
		c.setState(StateSteady)
	}
}

// dispatch forwards a logsNotification to the event processor in arrival
// order. Notifications for unbound subscription ids are dropped.
func (c *Client) dispatch(ctx context.Context, p *wsNotificationParams) {
	c.subsMu.RLock()
	addr, ok := c.subs[p.Subscription]
	c.subsMu.RUnlock()
	if !ok {
		c.log.Debug().Int64("subscription", p.Subscription).Msg("notification for unbound subscription")
		return
	}

	ev := LogEvent{
		Address:   addr,
		Signature: p.Result.Value.Signature,
		Logs:      p.Result.Value.Logs,
		Err:       p.Result.Value.Err,
	}

	// Block rather than drop: the processor owns backpressure.
	select {
	case c.events <- ev:
	case <-ctx.Done():
	}
}

// WebSocket wire types.

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// wsFrame is the inbound frame variant: an ack carries id+result, a
// notification carries method+params, anything else is unknown.
type wsFrame struct {
	JSONRPC string                `json:"jsonrpc"`
	ID      *int64                `json:"id"`
	Result  *int64                `json:"result"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
	Error   *wsError              `json:"error"`
}

type wsError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}
