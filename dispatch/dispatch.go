// Package dispatch implements the id -> handler routing table that sits
// between a framed byte stream and the services it addresses: an id frame
// is peeled off an incoming stream, looked up in a concurrency-bounded
// table, and the matching handler takes over the rest of the stream.
package dispatch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/bkfox/rpccaps-go/codec"
)

// ErrAlreadyExists is returned by Add when id is already registered.
var ErrAlreadyExists = errors.New("dispatch: id already registered")

// ErrNotFound is returned when id has no registered handler (including a
// once handler that already fired).
var ErrNotFound = errors.New("dispatch: id not found")

// ErrLimitReached is returned when the table's concurrency cap is already
// saturated.
var ErrLimitReached = errors.New("dispatch: concurrency limit reached")

// ErrInternal wraps a panic recovered from inside a handler, so a single
// misbehaving handler cannot take the whole dispatcher down.
type ErrInternal struct {
	Recovered any
}

func (e *ErrInternal) Error() string {
	return fmt.Sprintf("dispatch: handler panicked: %v", e.Recovered)
}

// Handler processes data addressed to one registered id. rest is whatever
// stream remains after the id frame was peeled off (possibly empty).
type Handler[Data any] func(data Data, rest io.ReadWriteCloser) error

type entry[Data any] struct {
	handler Handler[Data]
	once    bool
}

// Dispatch is a concurrency-bounded table of id -> Handler. It corresponds
// to the "dispatch engine" component: Add/Remove manage the table under a
// write lock, Dispatch/DispatchStream look a handler up and run it without
// holding any lock across the call.
type Dispatch[ID comparable, Data any] struct {
	mu       sync.RWMutex
	handlers map[ID]entry[Data]
	active   int64
	maxCount int64
}

// New creates a Dispatch table. maxCount <= 0 means unbounded concurrency.
func New[ID comparable, Data any](maxCount int64) *Dispatch[ID, Data] {
	return &Dispatch[ID, Data]{
		handlers: make(map[ID]entry[Data]),
		maxCount: maxCount,
	}
}

// Add registers handler under id. once marks the handler for single-use
// semantics: it is removed from the table before its one invocation, so a
// concurrent second Dispatch call for the same id observes ErrNotFound
// rather than racing to invoke the handler twice (the corrected,
// cancellation-safe variant of the original behavior).
func (d *Dispatch[ID, Data]) Add(id ID, handler Handler[Data], once bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[id]; exists {
		return fmt.Errorf("%w: %v", ErrAlreadyExists, id)
	}
	d.handlers[id] = entry[Data]{handler: handler, once: once}
	return nil
}

// Remove unregisters id. It is idempotent: removing an id that is not (or
// no longer) present is not an error.
func (d *Dispatch[ID, Data]) Remove(id ID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handlers, id)
}

// take looks up id and, for a once handler, removes it from the table in
// the same critical section — this is the race fix: the handler is gone
// from the map before it ever runs, not after.
func (d *Dispatch[ID, Data]) take(id ID) (Handler[Data], error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.handlers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, id)
	}
	if e.once {
		delete(d.handlers, id)
	}
	return e.handler, nil
}

func (d *Dispatch[ID, Data]) enter() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.maxCount > 0 && d.active >= d.maxCount {
		return ErrLimitReached
	}
	d.active++
	return nil
}

func (d *Dispatch[ID, Data]) leave() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active--
}

// Dispatch looks up id and invokes its handler with data and rest. No lock
// is held while the handler runs, so handlers may themselves call
// Add/Remove/Dispatch without deadlocking. A panicking handler is recovered
// into ErrInternal rather than propagated.
func (d *Dispatch[ID, Data]) Dispatch(id ID, data Data, rest io.ReadWriteCloser) (err error) {
	if err := d.enter(); err != nil {
		return err
	}
	defer d.leave()

	handler, err := d.take(id)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = &ErrInternal{Recovered: r}
		}
	}()
	return handler(data, rest)
}

// Stream is what DispatchStream hands to a handler after peeling the id
// frame off the front of an underlying connection: reads continue from
// wherever the id frame's Framed decoder left off, writes go straight to
// the connection.
type Stream struct {
	io.Reader
	io.Writer
	io.Closer
}

// DispatchStream reads exactly one framed id value off conn using idCodec,
// then hands the remaining buffered bytes (via Framed.TakeBuffered) plus
// the live connection to the matching handler as a single reassembled
// io.ReadWriteCloser, so the handler sees a contiguous stream starting
// right after the id frame.
func DispatchStream[ID comparable, Data any](d *Dispatch[ID, Data], conn io.ReadWriteCloser, idCodec codec.Codec[ID], data Data) error {
	framed := codec.NewFramed[ID](conn, conn, idCodec)
	id, err := framed.Recv()
	if err != nil {
		return fmt.Errorf("dispatch: reading id frame: %w", err)
	}

	buffered := framed.TakeBuffered()
	rest := io.MultiReader(bytes.NewReader(buffered), conn)
	stream := Stream{Reader: rest, Writer: conn, Closer: conn}

	return d.Dispatch(id, data, stream)
}
