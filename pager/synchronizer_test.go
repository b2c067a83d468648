package pager_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/st-keller/employee-client/hal"
	"github.com/st-keller/employee-client/internal/fakeapi"
	"github.com/st-keller/employee-client/pager"
	"github.com/st-keller/employee-client/transport"
)

func newSynchronizer(t *testing.T, api *fakeapi.Server) *pager.Synchronizer {
	t.Helper()
	client, err := transport.NewClient(api.URL(), api.Client(), transport.NewTracker(), zaptest.NewLogger(t))
	require.NoError(t, err)
	return pager.New(client, api.APIRoot(), zaptest.NewLogger(t))
}

func hrefs(state *pager.State) []string {
	out := make([]string, len(state.Employees))
	for i, e := range state.Employees {
		out[i] = e.Href
	}
	return out
}

func TestLoadFirstPage(t *testing.T) {
	api := fakeapi.New()
	defer api.Close()
	api.Seed(10)

	state, err := newSynchronizer(t, api).Load(context.Background(), 4)
	require.NoError(t, err)

	assert.Equal(t, hal.Page{Number: 0, Size: 4, TotalElements: 10, TotalPages: 3}, state.Page)
	assert.Equal(t, 4, state.PageSize)
	assert.Equal(t, []string{"firstName", "lastName", "description"}, state.Attributes)
	require.Len(t, state.Employees, 4)

	assert.True(t, state.HasLink(hal.RelNext))
	assert.True(t, state.HasLink(hal.RelLast))
	assert.False(t, state.HasLink(hal.RelPrev))

	first := state.Employees[0]
	assert.Equal(t, api.URL()+"/api/employees/1", first.Href)
	assert.Equal(t, `"0"`, first.ETag)
	want := map[string]string{"firstName": "First1", "lastName": "Last1", "description": "Employee 1"}
	if diff := cmp.Diff(want, first.Attributes); diff != "" {
		t.Errorf("attributes mismatch (-want +got):\n%s", diff)
	}
}

func TestNavigateFollowsPageLinks(t *testing.T) {
	api := fakeapi.New()
	defer api.Close()
	api.Seed(10)

	s := newSynchronizer(t, api)
	ctx := context.Background()

	state, err := s.Load(ctx, 4)
	require.NoError(t, err)

	last, ok := state.Link(hal.RelLast)
	require.True(t, ok)
	state, err = s.Navigate(ctx, last, 4)
	require.NoError(t, err)

	assert.Equal(t, 2, state.Page.Number)
	assert.Equal(t, []string{
		api.URL() + "/api/employees/9",
		api.URL() + "/api/employees/10",
	}, hrefs(state))
	assert.True(t, state.HasLink(hal.RelPrev))
	assert.False(t, state.HasLink(hal.RelNext))

	prev, _ := state.Link(hal.RelPrev)
	state, err = s.Navigate(ctx, prev, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Page.Number)
	assert.Equal(t, api.URL()+"/api/employees/5", state.Employees[0].Href)
}

func TestLoadPage(t *testing.T) {
	api := fakeapi.New()
	defer api.Close()
	api.Seed(7)

	state, err := newSynchronizer(t, api).LoadPage(context.Background(), 3, 2)
	require.NoError(t, err)
	assert.Equal(t, hal.Page{Number: 2, Size: 3, TotalElements: 7, TotalPages: 3}, state.Page)
	assert.Equal(t, []string{api.URL() + "/api/employees/7"}, hrefs(state))
}

func TestLoadEmptyCollection(t *testing.T) {
	api := fakeapi.New()
	defer api.Close()

	state, err := newSynchronizer(t, api).Load(context.Background(), 4)
	require.NoError(t, err)
	assert.Empty(t, state.Employees)
	assert.Equal(t, 0, state.Page.TotalPages)
	assert.False(t, state.HasLink(hal.RelLast))
	assert.Equal(t, []string{"firstName", "lastName", "description"}, state.Attributes)
}

func TestItemsKeepCollectionOrder(t *testing.T) {
	api := fakeapi.New()
	defer api.Close()
	api.Seed(4)
	// the first item completes last
	api.DelayItem(1, 150*time.Millisecond)
	api.DelayItem(2, 50*time.Millisecond)

	state, err := newSynchronizer(t, api).Load(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, []string{
		api.URL() + "/api/employees/1",
		api.URL() + "/api/employees/2",
		api.URL() + "/api/employees/3",
		api.URL() + "/api/employees/4",
	}, hrefs(state))
}

func TestItemFailureFailsTheRun(t *testing.T) {
	api := fakeapi.New()
	defer api.Close()
	api.Seed(4)
	api.FailItem(3, 1)

	state, err := newSynchronizer(t, api).Load(context.Background(), 4)
	require.Error(t, err)
	assert.Nil(t, state)
	assert.True(t, transport.IsStatus(err, http.StatusInternalServerError))
}

func TestSchemaIsFetchedOnce(t *testing.T) {
	api := fakeapi.New()
	defer api.Close()
	api.Seed(5)

	s := newSynchronizer(t, api)
	assert.Nil(t, s.Schema())

	for range 3 {
		_, err := s.Load(context.Background(), 2)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, api.Hits("GET /api/profile/employees"))
	require.NotNil(t, s.Schema())
	assert.Equal(t, "Employee", s.Schema().Title)
}

func TestMissingProfileLink(t *testing.T) {
	api := fakeapi.New()
	defer api.Close()
	api.Seed(1)
	api.HideProfile()

	_, err := newSynchronizer(t, api).Load(context.Background(), 4)
	require.ErrorIs(t, err, hal.ErrLinkNotFound)
}

func TestCollectionRootFailure(t *testing.T) {
	client, err := transport.NewClient("http://127.0.0.1:1", http.DefaultClient, transport.NewTracker(), zaptest.NewLogger(t))
	require.NoError(t, err)
	s := pager.New(client, "http://127.0.0.1:1/api", zaptest.NewLogger(t))

	_, err = s.Load(context.Background(), 4)
	require.Error(t, err)
	assert.Nil(t, s.Schema())
}
