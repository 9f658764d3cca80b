package relay

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

// Config holds configuration for the relay client.
type Config struct {
	// ObserverURL is the observer's base URL. Empty disables delivery; messages
	// are then only written to the console.
	ObserverURL string

	// MaxRetries is the number of delivery attempts per message.
	MaxRetries int

	// RetryDelay is the pause between delivery attempts.
	RetryDelay time.Duration

	// CircuitTimeout is how long the circuit stays open before the next
	// message is allowed to try the network again.
	CircuitTimeout time.Duration

	// BufferSize bounds the replay buffer. The oldest message is evicted when
	// the buffer is full.
	BufferSize int

	// DrainInterval is how often the background loop replays the buffer.
	DrainInterval time.Duration

	// RequestTimeout bounds a single HTTP request to the observer.
	RequestTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable defaults
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		RetryDelay:     2 * time.Second,
		CircuitTimeout: 60 * time.Second,
		BufferSize:     1000,
		DrainInterval:  5 * time.Second,
		RequestTimeout: 30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = d.RetryDelay
	}
	if c.CircuitTimeout <= 0 {
		c.CircuitTimeout = d.CircuitTimeout
	}
	if c.BufferSize <= 0 {
		c.BufferSize = d.BufferSize
	}
	if c.DrainInterval <= 0 {
		c.DrainInterval = d.DrainInterval
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	return c
}

// Client relays status messages. It is safe for concurrent use.
type Client struct {
	cfg       Config
	transport Transport
	console   *Console
	logger    *slog.Logger
	now       func() time.Time

	// mu guards buffer, open and openedAt. Network I/O never happens while
	// it is held.
	mu       sync.Mutex
	buffer   *ring
	open     bool
	openedAt time.Time

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	startOnce  sync.Once
	stopOnce   sync.Once
}

// New creates a relay client. When transport is nil and cfg.ObserverURL is
// set, an HTTPTransport is created for it. out receives the coloured
// local output and may be nil.
func New(cfg Config, transport Transport, out io.Writer, logger *slog.Logger) *Client {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	if transport == nil && cfg.ObserverURL != "" {
		transport = NewHTTPTransport(cfg.ObserverURL, &http.Client{Timeout: cfg.RequestTimeout})
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		cfg:        cfg,
		transport:  transport,
		console:    NewConsole(out),
		logger:     logger.With(slog.String("component", "relay")),
		now:        time.Now,
		buffer:     newRing(cfg.BufferSize),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// SetClock replaces the time source. It must be called before the client is used.
func (c *Client) SetClock(now func() time.Time) {
	c.now = now
}

// Enabled reports whether an observer is configured.
func (c *Client) Enabled() bool {
	return c.transport != nil
}

// Send writes the message to the console and relays it to the observer.
// It never returns an error; undeliverable messages are buffered.
func (c *Client) Send(ctx context.Context, level Level, source, message string) {
	m := Message{
		Level:     level,
		Source:    source,
		Message:   message,
		Timestamp: c.now().UTC(),
	}

	c.console.Write(m)

	if c.transport == nil {
		return
	}

	c.mu.Lock()
	if c.open {
		if c.now().Sub(c.openedAt) < c.cfg.CircuitTimeout {
			c.bufferLocked(m)
			c.mu.Unlock()
			return
		}
		c.open = false
		c.logger.Info("circuit breaker reset, resuming observer delivery")
	}
	c.mu.Unlock()

	if err := c.deliver(ctx, m); err != nil {
		c.logger.Warn("failed to relay message, buffering for retry",
			"level", string(level),
			"source", source,
			"error", err)

		c.mu.Lock()
		c.bufferLocked(m)
		// A cancelled caller says nothing about the observer's health.
		if !c.open && ctx.Err() == nil {
			c.open = true
			c.openedAt = c.now()
			c.logger.Warn("circuit breaker opened due to persistent failures")
		}
		c.mu.Unlock()
		return
	}

	c.logger.Debug("message relayed", "level", string(level), "source", source)
}

// Debug sends a message at LevelDebug.
func (c *Client) Debug(ctx context.Context, source, message string) {
	c.Send(ctx, LevelDebug, source, message)
}

// Info sends a message at LevelInformation.
func (c *Client) Info(ctx context.Context, source, message string) {
	c.Send(ctx, LevelInformation, source, message)
}

// Warn sends a message at LevelWarning.
func (c *Client) Warn(ctx context.Context, source, message string) {
	c.Send(ctx, LevelWarning, source, message)
}

// Error sends a message at LevelError.
func (c *Client) Error(ctx context.Context, source, message string) {
	c.Send(ctx, LevelError, source, message)
}

// Critical sends a message at LevelCritical.
func (c *Client) Critical(ctx context.Context, source, message string) {
	c.Send(ctx, LevelCritical, source, message)
}

// IsHealthy probes the observer's health endpoint. It returns false when no
// observer is configured or the probe fails for any reason.
func (c *Client) IsHealthy(ctx context.Context) (healthy bool) {
	if c.transport == nil {
		return false
	}

	defer func() {
		if p := recover(); p != nil {
			c.logger.Error("health probe panicked", "panic", p)
			healthy = false
		}
	}()

	if err := c.transport.Health(ctx); err != nil {
		c.logger.Debug("observer health probe failed", "error", err)
		return false
	}
	return true
}

// DrainRecent removes the n most recently buffered messages and returns them
// in the order they were sent. Older messages stay buffered for replay.
func (c *Client) DrainRecent(n int) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer.popNewest(n)
}

// Buffered returns the number of messages waiting for replay.
func (c *Client) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer.len()
}

// CircuitOpen reports whether the circuit breaker is open.
func (c *Client) CircuitOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Start launches the background drain loop. Calling Start more than once has
// no further effect. Without an observer, there is nothing to drain and no
// goroutine is started.
func (c *Client) Start() {
	if c.transport == nil {
		return
	}
	c.startOnce.Do(func() {
		c.wg.Add(1)
		go c.drainLoop()
	})
}

// Stop halts the drain loop and waits for it to exit.
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		c.cancelFunc()
		c.wg.Wait()
	})
}

func (c *Client) drainLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.DrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.drainOnce(c.ctx)
		}
	}
}

// drainOnce replays the buffered messages in order while the circuit is
// closed. A message that still cannot be delivered opens the circuit, and it
// goes back into the buffer together with everything not yet attempted.
func (c *Client) drainOnce(ctx context.Context) {
	c.mu.Lock()
	if c.open || c.buffer.len() == 0 {
		c.mu.Unlock()
		return
	}
	pending := c.buffer.pop(c.buffer.len())
	c.mu.Unlock()

	delivered := 0
	for i, m := range pending {
		if c.CircuitOpen() {
			c.rebuffer(pending[i:])
			break
		}

		if err := c.deliver(ctx, m); err != nil {
			c.logger.Warn("failed to replay buffered message, re-buffering",
				"level", string(m.Level),
				"source", m.Source,
				"unsent", len(pending)-i,
				"error", err)

			c.rebuffer(pending[i:])
			c.mu.Lock()
			if !c.open && ctx.Err() == nil {
				c.open = true
				c.openedAt = c.now()
				c.logger.Warn("circuit breaker opened during replay")
			}
			c.mu.Unlock()
			break
		}
		delivered++
	}

	if delivered > 0 {
		c.logger.Debug("replayed buffered messages", "count", delivered)
	}
}

func (c *Client) rebuffer(messages []Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range messages {
		c.bufferLocked(m)
	}
}

// deliver makes up to MaxRetries attempts, RetryDelay apart.
func (c *Client) deliver(ctx context.Context, m Message) error {
	delay := c.cfg.RetryDelay
	backoff := retry.WithMaxRetries(uint64(c.cfg.MaxRetries-1), retry.BackoffFunc(func() (time.Duration, bool) {
		return delay, false
	}))

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := c.transport.Deliver(ctx, m); err != nil {
			c.logger.Debug("relay attempt failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

// bufferLocked appends m to the buffer. c.mu must be held.
func (c *Client) bufferLocked(m Message) {
	if evicted := c.buffer.push(m); evicted {
		c.logger.Debug("relay buffer full, evicted oldest message", "capacity", c.buffer.capacity())
	}
}
