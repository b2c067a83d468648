package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/st-keller/employee-client/registry"
	"github.com/st-keller/employee-client/update"
)

const (
	queueSize        = 64
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second
)

// Channel is a STOMP subscriber for every route of a registry.
// Events are queued in arrival order; the consumer drains Events().
type Channel struct {
	url      string
	registry *registry.Registry
	dialer   *websocket.Dialer
	logger   *zap.Logger

	queue      chan update.Event
	ready      chan struct{}
	readyOnce  sync.Once
	newBackOff func() backoff.BackOff
}

// New creates a channel for the broker endpoint at wsURL.
func New(wsURL string, reg *registry.Registry, logger *zap.Logger) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{
		url:      wsURL,
		registry: reg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		},
		logger: logger,
		queue:  make(chan update.Event, queueSize),
		ready:  make(chan struct{}),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// SetBackOff replaces the reconnect policy. It must be called before Run.
func (c *Channel) SetBackOff(newBackOff func() backoff.BackOff) {
	c.newBackOff = newBackOff
}

// Events returns the queue of received events. It is closed when Run returns.
func (c *Channel) Events() <-chan update.Event {
	return c.queue
}

// Ready is closed once the first connection has subscribed to every route.
func (c *Channel) Ready() <-chan struct{} {
	return c.ready
}

// Run keeps a subscription open until ctx is cancelled, reconnecting with
// exponential backoff after every failure.
func (c *Channel) Run(ctx context.Context) error {
	defer close(c.queue)

	if len(c.registry.Routes()) == 0 {
		return fmt.Errorf("no routes registered")
	}

	b := c.newBackOff()
	for {
		err := c.session(ctx, b)
		if ctx.Err() != nil {
			return nil
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return fmt.Errorf("event channel gave up: %w", err)
		}
		c.logger.Warn("event channel disconnected",
			zap.String("url", c.url),
			zap.Duration("retry_in", wait),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// session runs one connection: handshake, subscriptions, then the read loop.
func (c *Channel) session(ctx context.Context, b backoff.BackOff) error {
	ws, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	stream := NewStream(ws, writeTimeout)
	reader := frame.NewReader(stream)
	writer := frame.NewWriter(stream)

	var writeMu sync.Mutex
	write := func(f *frame.Frame) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return writer.Write(f)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			// best effort; closing the socket unblocks the read loop
			write(frame.New(frame.DISCONNECT, "receipt", "disconnect"))
			stream.Close()
		case <-done:
		}
	}()
	defer func() {
		close(done)
		stream.Close()
		wg.Wait()
	}()

	if err := write(frame.New(frame.CONNECT,
		"accept-version", "1.2,1.1,1.0",
		"host", hostOf(c.url),
		"heart-beat", "0,0",
	)); err != nil {
		return fmt.Errorf("send CONNECT: %w", err)
	}

	stream.SetReadDeadline(time.Now().Add(handshakeTimeout))
	connected, err := readFrame(reader)
	if err != nil {
		return fmt.Errorf("await CONNECTED: %w", err)
	}
	switch connected.Command {
	case frame.CONNECTED:
	case frame.ERROR:
		return fmt.Errorf("broker refused connection: %s", connected.Header.Get("message"))
	default:
		return fmt.Errorf("unexpected %s frame during handshake", connected.Command)
	}
	stream.SetReadDeadline(time.Time{})

	subscriptions := make(map[string]string)
	for i, route := range c.registry.Routes() {
		id := "sub-" + strconv.Itoa(i)
		subscriptions[id] = route
		if err := write(frame.New(frame.SUBSCRIBE,
			"id", id,
			"destination", route,
			"ack", "auto",
		)); err != nil {
			return fmt.Errorf("subscribe %s: %w", route, err)
		}
	}

	b.Reset()
	c.readyOnce.Do(func() { close(c.ready) })
	c.logger.Info("event channel subscribed",
		zap.String("url", c.url),
		zap.Strings("routes", c.registry.Routes()),
		zap.String("server", connected.Header.Get("server")))

	for {
		f, err := readFrame(reader)
		if err != nil {
			return err
		}

		switch f.Command {
		case frame.MESSAGE:
			route := subscriptions[f.Header.Get("subscription")]
			if route == "" {
				route = f.Header.Get("destination")
			}
			ev := update.NewEvent(route, string(f.Body))
			c.logger.Debug("event received",
				zap.String("route", route),
				zap.String("payload", ev.Payload))

			select {
			case c.queue <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		case frame.ERROR:
			return fmt.Errorf("broker error: %s", f.Header.Get("message"))
		case frame.RECEIPT:
		default:
			c.logger.Debug("ignoring frame", zap.String("command", f.Command))
		}
	}
}

// readFrame returns the next frame, skipping heart-beats.
func readFrame(r *frame.Reader) (*frame.Frame, error) {
	for {
		f, err := r.Read()
		if err == io.EOF {
			return nil, errors.New("broker closed the connection")
		}
		if err != nil {
			return nil, err
		}
		if f != nil {
			return f, nil
		}
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "localhost"
	}
	return u.Hostname()
}
