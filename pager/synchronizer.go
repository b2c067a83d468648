package pager

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/st-keller/employee-client/hal"
	"github.com/st-keller/employee-client/schema"
	"github.com/st-keller/employee-client/transport"
)

// CollectionRel is the relation of the paginated employee collection, both
// as a link from the API root and as the key of its embedded items.
const CollectionRel = "employees"

// Synchronizer builds complete page states from the API.
// Every failure aborts the whole run; a State is only returned when every request succeeded.
type Synchronizer struct {
	client  hal.Getter
	rootURL string
	logger  *zap.Logger

	mu     sync.Mutex
	schema *schema.Descriptor
}

// New creates a Synchronizer starting its traversals at rootURL.
func New(client hal.Getter, rootURL string, logger *zap.Logger) *Synchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synchronizer{
		client:  client,
		rootURL: rootURL,
		logger:  logger,
	}
}

// Schema returns the cached descriptor, or nil before the first page was assembled.
func (s *Synchronizer) Schema() *schema.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schema
}

// Collection follows the root to the employee collection with the given query parameters.
func (s *Synchronizer) Collection(ctx context.Context, params map[string]string) (*hal.Resource, error) {
	return hal.Follow(ctx, s.client, s.rootURL, []hal.Step{{Rel: CollectionRel, Params: params}})
}

// Load resolves the first page of the collection at pageSize.
func (s *Synchronizer) Load(ctx context.Context, pageSize int) (*State, error) {
	collection, err := s.Collection(ctx, map[string]string{
		"size": strconv.Itoa(pageSize),
	})
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, collection, pageSize)
}

// LoadPage resolves page number of the collection at pageSize.
func (s *Synchronizer) LoadPage(ctx context.Context, pageSize, number int) (*State, error) {
	collection, err := s.Collection(ctx, map[string]string{
		"size": strconv.Itoa(pageSize),
		"page": strconv.Itoa(number),
	})
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, collection, pageSize)
}

// Navigate loads the collection page at href, a link taken from an earlier page.
func (s *Synchronizer) Navigate(ctx context.Context, href string, pageSize int) (*State, error) {
	collection, err := hal.Fetch(ctx, s.client, href, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch page %s: %w", href, err)
	}
	return s.assemble(ctx, collection, pageSize)
}

func (s *Synchronizer) assemble(ctx context.Context, collection *hal.Resource, pageSize int) (*State, error) {
	runID := uuid.NewString()
	start := time.Now()

	desc, err := s.ensureSchema(ctx, collection)
	if err != nil {
		return nil, err
	}

	page, _ := collection.Page()
	items := collection.Embedded(CollectionRel)

	employees, err := s.fetchItems(ctx, items)
	if err != nil {
		s.logger.Debug("page load failed",
			zap.String("run_id", runID),
			zap.String("url", collection.URL),
			zap.Error(err))
		return nil, err
	}

	s.logger.Debug("page loaded",
		zap.String("run_id", runID),
		zap.String("url", collection.URL),
		zap.Int("page", page.Number),
		zap.Int("items", len(employees)),
		zap.Duration("took", time.Since(start)))

	return &State{
		Page:       page,
		Employees:  employees,
		Attributes: append([]string(nil), desc.Attributes...),
		PageSize:   pageSize,
		Links:      collection.Links,
	}, nil
}

// ensureSchema fetches the descriptor from the collection's profile link once.
func (s *Synchronizer) ensureSchema(ctx context.Context, collection *hal.Resource) (*schema.Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schema != nil {
		return s.schema, nil
	}

	profile, ok := collection.Links.Get(hal.RelProfile)
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", hal.ErrLinkNotFound, hal.RelProfile, collection.URL)
	}
	profileHref, err := profile.Expand(nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(ctx, transport.Request{
		Path:    profileHref,
		Headers: map[string]string{"Accept": transport.MediaTypeSchema},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch schema: %w", err)
	}

	desc, err := schema.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse schema from %s: %w", profileHref, err)
	}

	s.logger.Debug("schema loaded", zap.Strings("attributes", desc.Attributes))
	s.schema = desc
	return desc, nil
}

// fetchItems GETs every item's own resource concurrently.
// The collection representation does not carry the per-item ETag.
func (s *Synchronizer) fetchItems(ctx context.Context, items []*hal.Resource) ([]Employee, error) {
	out := make([]Employee, len(items))

	grp, ctx := errgroup.WithContext(ctx)
	for i, item := range items {
		grp.Go(func() error {
			self, ok := item.Links.Get(hal.RelSelf)
			if !ok {
				return fmt.Errorf("item %d: %w: %q", i, hal.ErrLinkNotFound, hal.RelSelf)
			}
			href, err := self.Expand(nil)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}

			res, err := hal.Fetch(ctx, s.client, href, nil)
			if err != nil {
				return fmt.Errorf("fetch item %s: %w", href, err)
			}

			if own, ok := res.Links.Get(hal.RelSelf); ok {
				href = own.Href
			}
			out[i] = Employee{
				Href:       href,
				ETag:       res.ETag,
				Attributes: res.Properties(),
			}
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
