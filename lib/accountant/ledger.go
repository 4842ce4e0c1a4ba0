// Package accountant keeps the relay fees a node has earned.
package accountant

import (
	"context"
	"net/netip"
	"sort"
	"sync"

	"github.com/go-i2p/go-hopper/lib/hopper"
	"github.com/go-i2p/go-hopper/lib/mailbox"
	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// Entry is the running total for one peer.
type Entry struct {
	Peer     netip.AddrPort
	Services uint64
	Bytes    uint64
	Amount   uint64
}

// Ledger tallies RoutingServiceProvided reports per peer. Reports arrive through
// its inbox and are applied by Run.
type Ledger struct {
	inbox *mailbox.Mailbox[hopper.RoutingServiceProvided]

	mu      sync.RWMutex
	entries map[netip.AddrPort]*Entry
	total   uint64
}

// NewLedger creates a Ledger whose inbox holds up to capacity reports.
func NewLedger(capacity int) *Ledger {
	return &Ledger{
		inbox:   mailbox.New[hopper.RoutingServiceProvided]("accountant", capacity),
		entries: make(map[netip.AddrPort]*Entry),
	}
}

// Recipient returns the handle the hopper reports to.
func (l *Ledger) Recipient() mailbox.Recipient[hopper.RoutingServiceProvided] {
	return l.inbox
}

// Run applies reports until ctx is cancelled or Close is called.
func (l *Ledger) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case report, ok := <-l.inbox.C():
			if !ok {
				return nil
			}
			l.Record(report)
		}
	}
}

// Close stops the inbox.
func (l *Ledger) Close() {
	l.inbox.Close()
}

// Record applies one report immediately.
func (l *Ledger) Record(report hopper.RoutingServiceProvided) {
	amount := report.Amount()

	l.mu.Lock()
	e, ok := l.entries[report.Peer]
	if !ok {
		e = &Entry{Peer: report.Peer}
		l.entries[report.Peer] = e
	}
	e.Services++
	e.Bytes += uint64(report.PayloadSize)
	e.Amount += amount
	l.total += amount
	l.mu.Unlock()

	log.WithFields(logger.Fields{
		"at":     "Ledger.Record",
		"peer":   report.Peer.String(),
		"amount": amount,
	}).Debug("recorded routing service")
}

// Total returns the sum of all recorded amounts.
func (l *Ledger) Total() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

// Snapshot returns a copy of every entry ordered by peer address.
func (l *Ledger) Snapshot() []Entry {
	l.mu.RLock()
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, *e)
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Peer.Compare(out[j].Peer) < 0
	})
	return out
}
