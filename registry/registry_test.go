package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/st-keller/employee-client/update"
)

func noop(context.Context, update.Event) error { return nil }

func TestRegisterValidates(t *testing.T) {
	r := New()
	require.Error(t, r.Register("", noop))
	require.Error(t, r.Register("/topic/a", nil))
	require.NoError(t, r.Register("/topic/a", noop))
	require.ErrorContains(t, r.Register("/topic/a", noop), "already registered")
}

func TestRoutesKeepRegistrationOrder(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterAll(
		Registration{Route: "/topic/newEmployee", Handler: noop},
		Registration{Route: "/topic/updateEmployee", Handler: noop},
		Registration{Route: "/topic/deleteEmployee", Handler: noop},
	))
	require.Equal(t, []string{"/topic/newEmployee", "/topic/updateEmployee", "/topic/deleteEmployee"}, r.Routes())
}

func TestRegisterAllStopsAtFirstError(t *testing.T) {
	r := New()
	err := r.RegisterAll(
		Registration{Route: "/topic/a", Handler: noop},
		Registration{Route: "/topic/a", Handler: noop},
		Registration{Route: "/topic/b", Handler: noop},
	)
	require.Error(t, err)
	require.Equal(t, []string{"/topic/a"}, r.Routes())
}

func TestDispatch(t *testing.T) {
	r := New()
	var got []string
	boom := errors.New("boom")
	require.NoError(t, r.Register("/topic/a", func(_ context.Context, ev update.Event) error {
		got = append(got, ev.Payload)
		return nil
	}))
	require.NoError(t, r.Register("/topic/b", func(context.Context, update.Event) error {
		return boom
	}))

	require.NoError(t, r.Dispatch(context.Background(), update.NewEvent("/topic/a", "one")))
	require.ErrorIs(t, r.Dispatch(context.Background(), update.NewEvent("/topic/b", "two")), boom)
	require.ErrorContains(t, r.Dispatch(context.Background(), update.NewEvent("/topic/c", "three")), "no handler")
	require.Equal(t, []string{"one"}, got)
}
