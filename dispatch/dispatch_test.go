package dispatch

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopStream struct{}

func (nopStream) Read(p []byte) (int, error)  { return 0, io.EOF }
func (nopStream) Write(p []byte) (int, error) { return len(p), nil }
func (nopStream) Close() error                { return nil }

func TestAddRejectsDuplicate(t *testing.T) {
	d := New[string, int](0)
	require.NoError(t, d.Add("m", func(int, io.ReadWriteCloser) error { return nil }, false))
	err := d.Add("m", func(int, io.ReadWriteCloser) error { return nil }, false)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestRemoveIsIdempotent(t *testing.T) {
	d := New[string, int](0)
	require.NoError(t, d.Add("m", func(int, io.ReadWriteCloser) error { return nil }, false))
	d.Remove("m")
	assert.NotPanics(t, func() { d.Remove("m") })
}

func TestDispatchNotFound(t *testing.T) {
	d := New[string, int](0)
	err := d.Dispatch("missing", 1, nopStream{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDispatchInvokesHandler(t *testing.T) {
	d := New[string, int](0)
	var got int
	require.NoError(t, d.Add("m", func(data int, rest io.ReadWriteCloser) error {
		got = data
		return nil
	}, false))

	require.NoError(t, d.Dispatch("m", 42, nopStream{}))
	assert.Equal(t, 42, got)
}

func TestDispatchLimitReached(t *testing.T) {
	d := New[string, int](1)
	release := make(chan struct{})
	require.NoError(t, d.Add("slow", func(int, io.ReadWriteCloser) error {
		<-release
		return nil
	}, false))
	require.NoError(t, d.Add("other", func(int, io.ReadWriteCloser) error { return nil }, false))

	done := make(chan error, 1)
	go func() { done <- d.Dispatch("slow", 0, nopStream{}) }()

	// give the goroutine a chance to enter before probing the limit.
	var err error
	for i := 0; i < 1000; i++ {
		err = d.Dispatch("other", 0, nopStream{})
		if errors.Is(err, ErrLimitReached) {
			break
		}
	}
	assert.ErrorIs(t, err, ErrLimitReached)

	close(release)
	require.NoError(t, <-done)
}

// TestDispatchOnce mirrors spec §8 scenario 8: a once handler fires exactly
// once even under concurrent dispatch attempts, and loses the race cleanly
// rather than double-invoking.
func TestDispatchOnce(t *testing.T) {
	d := New[string, int](0)
	var calls int64
	require.NoError(t, d.Add("once", func(int, io.ReadWriteCloser) error {
		atomic.AddInt64(&calls, 1)
		return nil
	}, true))

	const n = 50
	var wg sync.WaitGroup
	results := make([]error, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			results[i] = d.Dispatch("once", 0, nopStream{})
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))

	successes, notFound := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrNotFound):
			notFound++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, notFound)
}

func TestDispatchRecoversPanic(t *testing.T) {
	d := New[string, int](0)
	require.NoError(t, d.Add("boom", func(int, io.ReadWriteCloser) error {
		panic("kaboom")
	}, false))

	err := d.Dispatch("boom", 0, nopStream{})
	var internal *ErrInternal
	assert.ErrorAs(t, err, &internal)
}
