package hal

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/st-keller/employee-client/transport"
)

// stubGetter serves canned bodies by exact URL and records every request.
type stubGetter struct {
	bodies   map[string]string
	requests []string
}

func (s *stubGetter) Do(_ context.Context, req transport.Request) (*transport.Response, error) {
	s.requests = append(s.requests, req.Path)
	body, ok := s.bodies[req.Path]
	if !ok {
		return nil, &transport.Error{Method: req.Method, URL: req.Path, StatusCode: http.StatusNotFound}
	}
	return &transport.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{},
		Body:       []byte(body),
		URL:        req.Path,
	}, nil
}

func newStub() *stubGetter {
	return &stubGetter{bodies: map[string]string{
		"http://h/api": `{"_links":{
			"employees":{"href":"http://h/api/employees{?page,size,sort}","templated":true},
			"profile":{"href":"http://h/api/profile"}}}`,
		"http://h/api/employees": `{"_links":{"self":{"href":"http://h/api/employees"},"search":{"href":"http://h/api/employees/search"}}}`,
		"http://h/api/employees?size=4": `{"_links":{"self":{"href":"http://h/api/employees?page=0&size=4"}},"page":{"size":4,"number":0}}`,
		"http://h/api/employees?page=2&size=4": `{"page":{"size":4,"number":2}}`,
		"http://h/api/employees/search": `{"_links":{"self":{"href":"http://h/api/employees/search"}}}`,
	}}
}

func TestFollowWithoutStepsReturnsRoot(t *testing.T) {
	stub := newStub()
	res, err := Follow(context.Background(), stub, "http://h/api", nil)
	require.NoError(t, err)
	require.Equal(t, "http://h/api", res.URL)
	require.Equal(t, []string{"http://h/api"}, stub.requests)
}

func TestFollowAppliesStepsInOrder(t *testing.T) {
	stub := newStub()
	res, err := Follow(context.Background(), stub, "http://h/api", []Step{Rel("employees"), Rel("search")})
	require.NoError(t, err)
	require.Equal(t, "http://h/api/employees/search", res.URL)
	require.Equal(t, []string{
		"http://h/api",
		"http://h/api/employees",
		"http://h/api/employees/search",
	}, stub.requests)
}

func TestFollowSubstitutesParams(t *testing.T) {
	stub := newStub()
	res, err := Follow(context.Background(), stub, "http://h/api", []Step{
		{Rel: "employees", Params: map[string]string{"size": "4"}},
	})
	require.NoError(t, err)
	page, ok := res.Page()
	require.True(t, ok)
	require.Equal(t, 4, page.Size)

	stub = newStub()
	res, err = Follow(context.Background(), stub, "http://h/api", []Step{
		{Rel: "employees", Params: map[string]string{"size": "4", "page": "2"}},
	})
	require.NoError(t, err)
	page, _ = res.Page()
	require.Equal(t, 2, page.Number)
}

func TestFollowMissingRelationStops(t *testing.T) {
	stub := newStub()
	_, err := Follow(context.Background(), stub, "http://h/api", []Step{Rel("managers"), Rel("self")})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrLinkNotFound))
	require.Contains(t, err.Error(), `"managers"`)
	require.Equal(t, []string{"http://h/api"}, stub.requests)
}

func TestFollowMissingRelationAtLaterStep(t *testing.T) {
	stub := newStub()
	_, err := Follow(context.Background(), stub, "http://h/api", []Step{Rel("employees"), Rel("next"), Rel("self")})
	require.ErrorIs(t, err, ErrLinkNotFound)
	require.Contains(t, err.Error(), "step 1")
	require.Len(t, stub.requests, 2)
}

func TestFollowPropagatesTransportError(t *testing.T) {
	stub := newStub()
	stub.bodies["http://h/api"] = `{"_links":{"employees":{"href":"http://h/api/gone"}}}`

	_, err := Follow(context.Background(), stub, "http://h/api", []Step{Rel("employees")})
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrLinkNotFound))
	require.True(t, transport.IsStatus(err, http.StatusNotFound))
}

func TestFollowRootFailure(t *testing.T) {
	stub := &stubGetter{bodies: map[string]string{}}
	_, err := Follow(context.Background(), stub, "http://h/api", []Step{Rel("employees")})
	require.Error(t, err)
	require.Len(t, stub.requests, 1)
}
