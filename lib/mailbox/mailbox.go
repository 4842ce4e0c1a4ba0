// Package mailbox provides the bounded, fire-and-forget queues that connect the
// single-threaded units of a node. Delivery is at most once and FIFO per sender.
// A full mailbox drops the newest message instead of blocking the sender.
package mailbox

import (
	"errors"
	"sync"

	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

var (
	// ErrMailboxFull is returned by TrySend when the mailbox is at capacity.
	ErrMailboxFull = errors.New("mailbox: full")

	// ErrMailboxClosed is returned by TrySend after Close.
	ErrMailboxClosed = errors.New("mailbox: closed")
)

// DefaultCapacity is the mailbox capacity used when none is configured.
const DefaultCapacity = 1024

// Recipient is an addressable handle that accepts messages of type T without
// blocking. It is the only thing one unit knows about another.
type Recipient[T any] interface {
	TrySend(msg T) error
}

// RecipientFunc adapts a function to a Recipient.
type RecipientFunc[T any] func(msg T) error

// TrySend calls f(msg).
func (f RecipientFunc[T]) TrySend(msg T) error {
	return f(msg)
}

// Mailbox is a bounded queue with a single consumer.
type Mailbox[T any] struct {
	name   string
	mu     sync.RWMutex
	ch     chan T
	closed bool
}

// New creates a mailbox with the given capacity. A non-positive capacity uses
// DefaultCapacity.
func New[T any](name string, capacity int) *Mailbox[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Mailbox[T]{name: name, ch: make(chan T, capacity)}
}

// TrySend enqueues msg or reports why it could not.
func (m *Mailbox[T]) TrySend(msg T) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrMailboxClosed
	}
	select {
	case m.ch <- msg:
		return nil
	default:
		log.WithFields(logger.Fields{
			"at":       "Mailbox.TrySend",
			"mailbox":  m.name,
			"capacity": cap(m.ch),
			"reason":   "mailbox full, dropping newest",
		}).Warn("message dropped")
		return ErrMailboxFull
	}
}

// C returns the receive side of the mailbox. It is closed by Close.
func (m *Mailbox[T]) C() <-chan T {
	return m.ch
}

// Len returns the number of queued messages.
func (m *Mailbox[T]) Len() int {
	return len(m.ch)
}

// Cap returns the mailbox capacity.
func (m *Mailbox[T]) Cap() int {
	return cap(m.ch)
}

// Name returns the name given at construction.
func (m *Mailbox[T]) Name() string {
	return m.name
}

// Close stops accepting messages. Messages already queued remain readable from C.
// Close is idempotent.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.ch)
}

// Forward returns a Recipient[T] that enqueues into an untyped mailbox. Several
// message types can share one FIFO inbox this way.
func Forward[T any](inbox Recipient[any]) Recipient[T] {
	return RecipientFunc[T](func(msg T) error {
		return inbox.TrySend(msg)
	})
}

// Discard is a Recipient that accepts and drops everything.
func Discard[T any]() Recipient[T] {
	return RecipientFunc[T](func(T) error { return nil })
}
