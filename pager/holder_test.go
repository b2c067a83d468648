package pager

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/st-keller/employee-client/hal"
)

func TestHolderCommit(t *testing.T) {
	h := NewHolder()
	assert.Nil(t, h.Current())

	gen := h.Begin()
	state := &State{Page: hal.Page{Number: 1}}
	require.True(t, h.Commit(gen, state))
	assert.Same(t, state, h.Current())
	assert.Equal(t, gen, h.Current().Generation)

	assert.False(t, h.Commit(h.Begin(), nil))
	assert.Same(t, state, h.Current())
}

func TestHolderRejectsStaleRuns(t *testing.T) {
	h := NewHolder()
	slow := h.Begin()
	fast := h.Begin()

	newer := &State{Page: hal.Page{Number: 2}}
	require.True(t, h.Commit(fast, newer))

	older := &State{Page: hal.Page{Number: 1}}
	assert.False(t, h.Commit(slow, older))
	assert.Same(t, newer, h.Current())
	assert.Zero(t, older.Generation, "a rejected state is not stamped")

	// the same generation cannot commit twice
	assert.False(t, h.Commit(fast, &State{}))
}

func TestHolderNotifiesSubscribers(t *testing.T) {
	h := NewHolder()

	var got []int
	unsubscribe := h.Subscribe(func(s *State) { got = append(got, s.Page.Number) })

	h.Commit(h.Begin(), &State{Page: hal.Page{Number: 0}})
	stale := h.Begin()
	h.Commit(h.Begin(), &State{Page: hal.Page{Number: 1}})
	h.Commit(stale, &State{Page: hal.Page{Number: 9}})

	unsubscribe()
	h.Commit(h.Begin(), &State{Page: hal.Page{Number: 2}})

	assert.Equal(t, []int{0, 1}, got)
}

func TestHolderConcurrentCommitsKeepNewest(t *testing.T) {
	h := NewHolder()

	gens := make([]uint64, 50)
	for i := range gens {
		gens[i] = h.Begin()
	}

	var wg sync.WaitGroup
	for i, gen := range gens {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Commit(gen, &State{Page: hal.Page{Number: i}})
		}()
	}
	wg.Wait()

	require.NotNil(t, h.Current())
	assert.Equal(t, gens[len(gens)-1], h.Current().Generation)
	assert.Equal(t, len(gens)-1, h.Current().Page.Number)
}

func TestHolderDeliversInGenerationOrder(t *testing.T) {
	h := NewHolder()
	first, second := h.Begin(), h.Begin()

	entered := make(chan struct{})
	release := make(chan struct{})
	h.Subscribe(func(s *State) {
		if s.Generation == first {
			close(entered)
			<-release
		}
	})

	var (
		mu   sync.Mutex
		seen []uint64
	)
	h.Subscribe(func(s *State) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s.Generation)
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		h.Commit(first, &State{Page: hal.Page{Number: 1}})
	}()
	<-entered

	go func() {
		defer wg.Done()
		h.Commit(second, &State{Page: hal.Page{Number: 2}})
	}()
	require.Eventually(t, func() bool {
		return h.Current().Generation == second
	}, 5*time.Second, time.Millisecond)

	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.Equal(t, second, seen[len(seen)-1])
	assert.IsIncreasing(t, seen)
}

func TestStateLinks(t *testing.T) {
	var nilState *State
	assert.False(t, nilState.HasLink(hal.RelNext))
	_, ok := nilState.Link(hal.RelNext)
	assert.False(t, ok)

	s := &State{Links: hal.Links{hal.RelNext: {Href: "http://x/api/employees?page=1&size=4"}}}
	assert.True(t, s.HasLink(hal.RelNext))
	href, ok := s.Link(hal.RelNext)
	assert.True(t, ok)
	assert.Equal(t, "http://x/api/employees?page=1&size=4", href)

	assert.Equal(t, "Ada", Employee{Attributes: map[string]string{"firstName": "Ada"}}.Get("firstName"))
}
