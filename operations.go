package employees

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/st-keller/employee-client/hal"
	"github.com/st-keller/employee-client/pager"
	"github.com/st-keller/employee-client/transport"
)

// ErrMissingETag is returned by Update for a record loaded without an ETag.
var ErrMissingETag = errors.New("record has no ETag to guard the update")

// ConflictError reports an update rejected because the record changed on the
// server since it was loaded.
type ConflictError struct {
	Href string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("update of %s rejected: the record changed on the server", e.Href)
}

// conflictNotice is the text sent to the Notifier on a rejected update.
func conflictNotice(href string) string {
	return fmt.Sprintf("DENIED: Unable to update %s. Your copy is stale.", href)
}

// ============================================================================
// PAGE SYSTEM
// ============================================================================

// commit publishes state if no newer run got there first.
func (c *Client) commit(gen uint64, state *pager.State) {
	if !c.holder.Commit(gen, state) {
		c.logger.Debug("discarded stale page",
			zap.Uint64("generation", gen),
			zap.Int("page", state.Page.Number))
	}
}

// Load shows the first page at pageSize.
func (c *Client) Load(ctx context.Context, pageSize int) error {
	if pageSize <= 0 {
		return fmt.Errorf("page size must be > 0, got %d", pageSize)
	}

	gen := c.holder.Begin()
	state, err := c.sync.Load(ctx, pageSize)
	if err != nil {
		return fmt.Errorf("load first page: %w", err)
	}
	c.commit(gen, state)
	return nil
}

// LoadPage shows page number (zero-based) at pageSize.
func (c *Client) LoadPage(ctx context.Context, pageSize, number int) error {
	if pageSize <= 0 {
		return fmt.Errorf("page size must be > 0, got %d", pageSize)
	}
	if number < 0 {
		return fmt.Errorf("page number must be >= 0, got %d", number)
	}

	gen := c.holder.Begin()
	state, err := c.sync.LoadPage(ctx, pageSize, number)
	if err != nil {
		return fmt.Errorf("load page %d: %w", number, err)
	}
	c.commit(gen, state)
	return nil
}

// UpdatePageSize reloads the first page at size. An unchanged size is a no-op.
func (c *Client) UpdatePageSize(ctx context.Context, size int) error {
	if size <= 0 {
		return fmt.Errorf("page size must be > 0, got %d", size)
	}
	if size == c.PageSize() && c.holder.Current() != nil {
		return nil
	}
	return c.Load(ctx, size)
}

// ParsePageSize accepts decimal digits only.
func ParsePageSize(input string) (int, error) {
	if input == "" {
		return 0, fmt.Errorf("page size required")
	}
	for _, r := range input {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("page size %q: digits only", input)
		}
	}
	n, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("page size %q: %w", input, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("page size must be > 0, got %d", n)
	}
	return n, nil
}

// Navigate follows rel (first, prev, next, last or self) from the page on display.
func (c *Client) Navigate(ctx context.Context, rel string) error {
	current := c.holder.Current()
	if current == nil {
		return fmt.Errorf("navigate %s: no page loaded", rel)
	}
	link, ok := current.Links.Get(rel)
	if !ok {
		return fmt.Errorf("navigate: %w: %q", hal.ErrLinkNotFound, rel)
	}
	href, err := link.Expand(nil)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", rel, err)
	}

	gen := c.holder.Begin()
	state, err := c.sync.Navigate(ctx, href, current.PageSize)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", rel, err)
	}
	c.commit(gen, state)
	return nil
}

// RefreshAndGoToLastPage re-resolves the collection at the current page size
// and shows its last page, or the only page when there is no last link.
func (c *Client) RefreshAndGoToLastPage(ctx context.Context) error {
	size := c.PageSize()
	gen := c.holder.Begin()

	collection, err := c.sync.Collection(ctx, map[string]string{"size": strconv.Itoa(size)})
	if err != nil {
		return fmt.Errorf("refresh collection: %w", err)
	}
	link, ok := collection.Links.Get(hal.RelLast)
	if !ok {
		link, ok = collection.Links.Get(hal.RelSelf)
	}
	if !ok {
		return fmt.Errorf("refresh collection: %w: %q or %q", hal.ErrLinkNotFound, hal.RelLast, hal.RelSelf)
	}
	href, err := link.Expand(nil)
	if err != nil {
		return fmt.Errorf("refresh collection: %w", err)
	}

	state, err := c.sync.Navigate(ctx, href, size)
	if err != nil {
		return fmt.Errorf("go to last page: %w", err)
	}
	c.commit(gen, state)
	return nil
}

// RefreshCurrentPage reloads the page number on display at the current size.
func (c *Client) RefreshCurrentPage(ctx context.Context) error {
	current := c.holder.Current()
	if current == nil {
		return c.Load(ctx, c.config.PageSize)
	}

	gen := c.holder.Begin()
	state, err := c.sync.LoadPage(ctx, current.PageSize, current.Page.Number)
	if err != nil {
		return fmt.Errorf("refresh page %d: %w", current.Page.Number, err)
	}
	c.commit(gen, state)
	return nil
}

// ============================================================================
// MUTATION SYSTEM
// ============================================================================

func (c *Client) validate(values map[string]string) error {
	desc := c.sync.Schema()
	if desc == nil {
		return nil
	}
	return desc.Validate(values)
}

// Create POSTs a new employee to the collection and returns its href.
// The page on display is left alone; the server's notification refreshes it.
func (c *Client) Create(ctx context.Context, values map[string]string) (string, error) {
	if err := c.validate(values); err != nil {
		return "", fmt.Errorf("create: %w", err)
	}

	collection, err := c.sync.Collection(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("create: %w", err)
	}
	self, ok := collection.Links.Get(hal.RelSelf)
	if !ok {
		return "", fmt.Errorf("create: %w: %q", hal.ErrLinkNotFound, hal.RelSelf)
	}
	href, err := self.Expand(nil)
	if err != nil {
		return "", fmt.Errorf("create: %w", err)
	}

	resp, err := c.api.Do(ctx, transport.Request{
		Method:  http.MethodPost,
		Path:    href,
		Entity:  values,
		Headers: map[string]string{"Content-Type": transport.MediaTypeJSON},
	})
	if err != nil {
		return "", fmt.Errorf("create: %w", err)
	}

	created := resp.Header.Get("Location")
	if res, err := hal.Parse(resp.URL, resp.Header, resp.Body); err == nil {
		if link, ok := res.Links.Get(hal.RelSelf); ok {
			created = link.Href
		}
	}
	c.logger.Info("employee created", zap.String("href", created))
	return created, nil
}

// Update replaces the record with its current attributes overlaid by values,
// guarded by the ETag it was loaded with. A concurrent change on the server
// yields *ConflictError, a notice to the Notifier and no state change.
func (c *Client) Update(ctx context.Context, employee pager.Employee, values map[string]string) error {
	if err := c.validate(values); err != nil {
		return fmt.Errorf("update %s: %w", employee.Href, err)
	}
	if employee.ETag == "" {
		return fmt.Errorf("update %s: %w", employee.Href, ErrMissingETag)
	}

	desc := c.sync.Schema()
	entity := make(map[string]string, len(employee.Attributes)+len(values))
	for k, v := range employee.Attributes {
		if desc == nil || desc.Has(k) {
			entity[k] = v
		}
	}
	for k, v := range values {
		entity[k] = v
	}

	headers := map[string]string{
		"Content-Type": transport.MediaTypeJSON,
		"If-Match":     employee.ETag,
	}

	_, err := c.api.Do(ctx, transport.Request{
		Method:  http.MethodPut,
		Path:    employee.Href,
		Entity:  entity,
		Headers: headers,
	})
	if transport.IsStatus(err, http.StatusPreconditionFailed) {
		c.logger.Warn("update rejected, stale copy", zap.String("href", employee.Href))
		c.notify(conflictNotice(employee.Href))
		return &ConflictError{Href: employee.Href}
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", employee.Href, err)
	}

	c.logger.Info("employee updated", zap.String("href", employee.Href))
	return c.Load(ctx, c.PageSize())
}

// Delete removes the record and shows the first page again.
func (c *Client) Delete(ctx context.Context, employee pager.Employee) error {
	if _, err := c.api.Do(ctx, transport.Request{
		Method: http.MethodDelete,
		Path:   employee.Href,
	}); err != nil {
		return fmt.Errorf("delete %s: %w", employee.Href, err)
	}

	c.logger.Info("employee deleted", zap.String("href", employee.Href))
	return c.Load(ctx, c.PageSize())
}

// Employee fetches a single record by href, for callers that hold no page.
func (c *Client) Employee(ctx context.Context, href string) (pager.Employee, error) {
	res, err := hal.Fetch(ctx, c.api, href, nil)
	if err != nil {
		return pager.Employee{}, fmt.Errorf("fetch %s: %w", href, err)
	}
	if self, ok := res.Links.Get(hal.RelSelf); ok {
		href = self.Href
	}
	return pager.Employee{Href: href, ETag: res.ETag, Attributes: res.Properties()}, nil
}

// IsConflict reports whether err is an update conflict.
func IsConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}
