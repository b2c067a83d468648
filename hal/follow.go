package hal

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/st-keller/employee-client/transport"
)

// ErrLinkNotFound is returned when a required relation is missing from a response.
var ErrLinkNotFound = errors.New("link not found")

// Getter is the part of the transport client the follower needs.
type Getter interface {
	Do(ctx context.Context, req transport.Request) (*transport.Response, error)
}

// Step is one hop of a traversal: a relation name plus optional query parameters.
type Step struct {
	Rel    string
	Params map[string]string
}

// Rel is shorthand for a step without parameters.
func Rel(name string) Step {
	return Step{Rel: name}
}

// Fetch GETs href and parses the result.
func Fetch(ctx context.Context, client Getter, href string, headers map[string]string) (*Resource, error) {
	resp, err := client.Do(ctx, transport.Request{
		Method:  http.MethodGet,
		Path:    href,
		Headers: headers,
	})
	if err != nil {
		return nil, err
	}
	return Parse(resp.URL, resp.Header, resp.Body)
}

// Follow GETs rootURL and then, for every step, the link named by the step in
// the previous response. There is no caching: every call starts at the root.
func Follow(ctx context.Context, client Getter, rootURL string, steps []Step) (*Resource, error) {
	current, err := Fetch(ctx, client, rootURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch root %s: %w", rootURL, err)
	}

	for i, step := range steps {
		link, ok := current.Links.Get(step.Rel)
		if !ok {
			return nil, fmt.Errorf("step %d: %w: %q in %s (have %v)", i, ErrLinkNotFound, step.Rel, current.URL, current.Links.Rels())
		}
		href, err := link.Expand(step.Params)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		current, err = Fetch(ctx, client, href, nil)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Rel, err)
		}
	}

	return current, nil
}
