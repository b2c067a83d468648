package employees

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/st-keller/employee-client/events"
	"github.com/st-keller/employee-client/pager"
	"github.com/st-keller/employee-client/registry"
	"github.com/st-keller/employee-client/schema"
	"github.com/st-keller/employee-client/transport"
	"github.com/st-keller/employee-client/update"
)

// Defaults used by DefaultConfig.
const (
	DefaultAPIRoot        = "http://localhost:8080/api"
	DefaultEventsURL      = "ws://localhost:8080/payroll/websocket"
	DefaultPageSize       = 4
	DefaultRequestTimeout = 30 * time.Second
)

// Config holds client configuration.
type Config struct {
	APIRoot        string        // API root resource, e.g. "http://localhost:8080/api"
	EventsURL      string        // STOMP WebSocket endpoint; empty disables live refresh
	PageSize       int           // Initial page size (> 0)
	RequestTimeout time.Duration // Per-request timeout of the default HTTP client
	CertPath       string        // Optional client certificate for mTLS
	KeyPath        string        // Optional client key for mTLS
	CAPath         string        // Optional CA certificate for mTLS
}

// DefaultConfig returns the configuration for a local payroll server.
func DefaultConfig() Config {
	return Config{
		APIRoot:        DefaultAPIRoot,
		EventsURL:      DefaultEventsURL,
		PageSize:       DefaultPageSize,
		RequestTimeout: DefaultRequestTimeout,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.APIRoot == "" {
		return fmt.Errorf("APIRoot required")
	}
	u, err := url.Parse(c.APIRoot)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("APIRoot must be an absolute http(s) URL, got %q", c.APIRoot)
	}
	if c.EventsURL != "" {
		u, err := url.Parse(c.EventsURL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
			return fmt.Errorf("EventsURL must be an absolute ws(s) URL, got %q", c.EventsURL)
		}
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("PageSize required (must be > 0)")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("RequestTimeout required (must be > 0)")
	}
	tls := 0
	for _, p := range []string{c.CertPath, c.KeyPath, c.CAPath} {
		if p != "" {
			tls++
		}
	}
	if tls != 0 && tls != 3 {
		return fmt.Errorf("CertPath, KeyPath and CAPath must be set together")
	}
	return nil
}

// Notifier receives user-facing notices such as update conflicts.
type Notifier func(message string)

// Option customises a Client.
type Option func(*Client)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithNotifier sets the receiver of user-facing notices.
func WithNotifier(n Notifier) Option {
	return func(c *Client) { c.notify = n }
}

// WithHTTPClient replaces the HTTP client built from the configuration.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// Client keeps the page on display in sync with the employee API.
type Client struct {
	config     Config
	logger     *zap.Logger
	notify     Notifier
	httpClient *http.Client

	api      *transport.Client
	sync     *pager.Synchronizer
	holder   *pager.Holder
	registry *registry.Registry

	// Event System state
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	ready   <-chan struct{}
	wg      sync.WaitGroup
}

// New creates a client. Nothing is fetched until Start or Load.
func New(config Config, opts ...Option) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Client{config: config}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.notify == nil {
		c.notify = func(string) {}
	}

	if c.httpClient == nil {
		if config.CertPath != "" {
			hc, err := transport.BuildHTTP2Client(config.CertPath, config.KeyPath, config.CAPath, config.RequestTimeout)
			if err != nil {
				return nil, fmt.Errorf("failed to build HTTP client: %w", err)
			}
			c.httpClient = hc
			c.checkCertificate()
		} else {
			c.httpClient = transport.BuildHTTPClient(config.RequestTimeout)
		}
	}

	api, err := transport.NewClient(config.APIRoot, c.httpClient, transport.NewTracker(), c.logger.Named("transport"))
	if err != nil {
		return nil, err
	}
	c.api = api
	c.sync = pager.New(api, config.APIRoot, c.logger.Named("pager"))
	c.holder = pager.NewHolder()

	c.registry = registry.New()
	if err := c.registry.RegisterAll(
		registry.Registration{Route: update.Created.Route(), Handler: c.onCreated},
		registry.Registration{Route: update.Updated.Route(), Handler: c.onChanged},
		registry.Registration{Route: update.Deleted.Route(), Handler: c.onChanged},
	); err != nil {
		return nil, fmt.Errorf("failed to register event routes: %w", err)
	}

	return c, nil
}

// checkCertificate logs when the mTLS client certificate is expired or about to expire.
func (c *Client) checkCertificate() {
	info, err := transport.InspectCertificate(c.config.CertPath, time.Now())
	if err != nil {
		c.logger.Warn("client certificate unreadable", zap.String("path", c.config.CertPath), zap.Error(err))
		return
	}
	switch {
	case info.IsExpired:
		c.logger.Error("client certificate expired",
			zap.String("path", info.Path),
			zap.Time("valid_until", info.ValidUntil))
	case info.ExpiryWarning:
		c.logger.Warn("client certificate expires soon",
			zap.String("path", info.Path),
			zap.Int("days_until_expiry", info.DaysUntilExpiry))
	}
}

// Holder returns the state holder for subscriptions.
func (c *Client) Holder() *pager.Holder {
	return c.holder
}

// State returns the page on display, or nil before the first load.
func (c *Client) State() *pager.State {
	return c.holder.Current()
}

// Schema returns the attribute descriptor, or nil before the first load.
func (c *Client) Schema() *schema.Descriptor {
	return c.sync.Schema()
}

// Tracker returns the per-host call statistics.
func (c *Client) Tracker() *transport.Tracker {
	return c.api.Tracker()
}

// PageSize returns the page size on display, or the configured one before the first load.
func (c *Client) PageSize() int {
	if s := c.holder.Current(); s != nil {
		return s.PageSize
	}
	return c.config.PageSize
}

// Start loads the first page and, if an events URL is configured, keeps the
// page up to date with server notifications until Stop.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("client already running")
	}
	c.running = true
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	if err := c.Load(ctx, c.config.PageSize); err != nil {
		c.Stop()
		return fmt.Errorf("initial load: %w", err)
	}

	if c.config.EventsURL != "" {
		c.startEventSystem(ctx)
	}

	c.logger.Info("employee client started",
		zap.String("api_root", c.config.APIRoot),
		zap.String("events_url", c.config.EventsURL),
		zap.Int("page_size", c.config.PageSize))
	return nil
}

// Stop ends the event system and waits for it to finish.
func (c *Client) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.cancel()
	c.mu.Unlock()

	c.wg.Wait()
	c.logger.Info("employee client stopped")
}

// EventsReady is closed once the event channel has subscribed to every route.
// Without an events URL it is closed immediately.
func (c *Client) EventsReady() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return c.ready
}

// ============================================================================
// EVENT SYSTEM
// ============================================================================

func (c *Client) startEventSystem(ctx context.Context) {
	ch := events.New(c.config.EventsURL, c.registry, c.logger.Named("events"))

	c.mu.Lock()
	c.ready = ch.Ready()
	c.mu.Unlock()

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		if err := ch.Run(ctx); err != nil {
			c.logger.Error("event channel stopped", zap.Error(err))
		}
	}()
	go func() {
		defer c.wg.Done()
		c.drainEvents(ctx, ch.Events())
	}()
}

// drainEvents handles queued events one at a time, in arrival order.
// Handler failures are logged and not retried.
func (c *Client) drainEvents(ctx context.Context, queue <-chan update.Event) {
	for ev := range queue {
		if err := c.registry.Dispatch(ctx, ev); err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Warn("event handling failed",
				zap.Stringer("kind", ev.Kind),
				zap.String("payload", ev.Payload),
				zap.Error(err))
		}
	}
}

func (c *Client) onCreated(ctx context.Context, ev update.Event) error {
	c.logger.Debug("employee created remotely", zap.String("payload", ev.Payload))
	return c.RefreshAndGoToLastPage(ctx)
}

func (c *Client) onChanged(ctx context.Context, ev update.Event) error {
	c.logger.Debug("employee changed remotely",
		zap.Stringer("kind", ev.Kind),
		zap.String("payload", ev.Payload))
	return c.RefreshCurrentPage(ctx)
}
