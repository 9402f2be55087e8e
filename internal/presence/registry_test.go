package presence

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeHandle string

func (f fakeHandle) ID() string { return string(f) }

type change struct {
	userID string
	online bool
}

func recordChanges(r *Registry) *[]change {
	var got []change
	r.Subscribe(func(userID string, online bool) {
		got = append(got, change{userID, online})
	})
	return &got
}

func TestRegistry(t *testing.T) {
	t.Run("starts empty", func(t *testing.T) {
		req := require.New(t)

		r := NewRegistry()

		req.Zero(r.Len())
		req.False(r.IsOnline("u1"))
		_, ok := r.HandleFor("u1")
		req.False(ok)
	})

	t.Run("register twice keeps only the second handle", func(t *testing.T) {
		req := require.New(t)

		// Given
		r := NewRegistry()
		changes := recordChanges(r)
		first, second := fakeHandle("c1"), fakeHandle("c2")

		// When
		prev1 := r.Register("u1", first)
		prev2 := r.Register("u1", second)

		// Then
		req.Nil(prev1)
		req.Equal(first, prev2)
		req.Equal(1, r.Len())
		h, ok := r.HandleFor("u1")
		req.True(ok)
		req.Equal(second, h)
		req.Equal([]change{{"u1", true}, {"u1", true}}, *changes)

		// When the stale handle eventually closes
		_, removed := r.Unregister(first)

		// Then nothing changes
		req.False(removed)
		req.True(r.IsOnline("u1"))
		req.Len(*changes, 2)
	})

	t.Run("unregister removes entry and notifies once", func(t *testing.T) {
		req := require.New(t)

		// Given
		r := NewRegistry()
		changes := recordChanges(r)
		r.Register("u1", fakeHandle("c1"))

		// When
		uid, removed := r.Unregister(fakeHandle("c1"))
		_, again := r.Unregister(fakeHandle("c1"))

		// Then
		req.True(removed)
		req.Equal("u1", uid)
		req.False(again)
		req.False(r.IsOnline("u1"))
		req.Equal([]change{{"u1", true}, {"u1", false}}, *changes)
	})

	t.Run("unregister of unknown handle is a silent no-op", func(t *testing.T) {
		req := require.New(t)

		// Given
		r := NewRegistry()
		changes := recordChanges(r)

		// When
		_, removed := r.Unregister(fakeHandle("never"))
		_, removedNil := r.Unregister(nil)

		// Then
		req.False(removed)
		req.False(removedNil)
		req.Empty(*changes)
	})

	t.Run("rebinding a handle to another user drops the old binding", func(t *testing.T) {
		req := require.New(t)

		// Given
		r := NewRegistry()
		changes := recordChanges(r)
		r.Register("u1", fakeHandle("c1"))

		// When
		r.Register("u2", fakeHandle("c1"))

		// Then
		req.False(r.IsOnline("u1"))
		req.True(r.IsOnline("u2"))
		req.Equal([]change{{"u1", true}, {"u1", false}, {"u2", true}}, *changes)
	})

	t.Run("observers may read the registry", func(t *testing.T) {
		req := require.New(t)

		// Given
		r := NewRegistry()
		var seenOnline []string
		r.Subscribe(func(string, bool) { seenOnline = r.Online() })

		// When
		r.Register("u2", fakeHandle("c2"))
		r.Register("u1", fakeHandle("c1"))

		// Then
		req.Equal([]string{"u1", "u2"}, seenOnline)
	})

	t.Run("at most one entry per user under concurrency", func(t *testing.T) {
		req := require.New(t)

		// Given
		r := NewRegistry()
		var wg sync.WaitGroup

		// When
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				h := fakeHandle(fmt.Sprintf("c%d", i))
				r.Register(fmt.Sprintf("u%d", i%5), h)
				if i%2 == 0 {
					r.Unregister(h)
				}
			}(i)
		}
		wg.Wait()

		// Then
		req.LessOrEqual(r.Len(), 5)
		for _, h := range r.Handles() {
			uid, ok := r.byHandle[h.ID()]
			req.True(ok)
			bound, _ := r.HandleFor(uid)
			req.Equal(h, bound)
		}
	})
}
