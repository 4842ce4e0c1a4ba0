// Package admission decides which peers' inbound data reaches the routing service.
package admission

import (
	"errors"
	"net/netip"
	"sync"
	"time"

	"github.com/go-i2p/go-hopper/lib/config"
	"github.com/go-i2p/go-hopper/lib/dispatcher"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"golang.org/x/time/rate"
)

var log = logger.GetGoI2PLogger()

// ErrRefused is returned by Check when a peer is over its limit or banned.
var ErrRefused = errors.New("admission: refused")

// banThreshold is the number of consecutive rejections that triggers a ban.
const banThreshold = 10

// SourceLimiter rate limits inbound packages per peer IP address.
// Each source gets a token bucket; a source that keeps hitting the limit is banned
// for a while. Stale entries are removed in the background.
type SourceLimiter struct {
	mu      sync.Mutex
	sources map[netip.Addr]*sourceState

	limit           rate.Limit
	burstSize       int
	banDuration     time.Duration
	cleanupInterval time.Duration
	staleAfter      time.Duration
	now             func() time.Time

	totalRequests   uint64
	totalRejections uint64

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type sourceState struct {
	limiter     *rate.Limiter
	lastSeen    time.Time
	rejectCount uint64
	bannedUntil time.Time
}

// NewSourceLimiter creates a limiter with the default admission settings.
func NewSourceLimiter() *SourceLimiter {
	return NewSourceLimiterWithConfig(config.Defaults().Admission)
}

// NewSourceLimiterWithConfig creates a limiter and starts its cleanup goroutine.
// Call Stop to release it.
func NewSourceLimiterWithConfig(cfg config.AdmissionDefaults) *SourceLimiter {
	sl := newSourceLimiter(cfg, time.Now)
	sl.wg.Add(1)
	go sl.cleanupLoop()

	log.WithFields(logger.Fields{
		"at":                   "NewSourceLimiterWithConfig",
		"reason":               "source limiter initialized",
		"max_packages_per_min": cfg.MaxPackagesPerMinute,
		"burst_size":           sl.burstSize,
		"ban_duration":         sl.banDuration,
	}).Info("source limiter started")
	return sl
}

func newSourceLimiter(cfg config.AdmissionDefaults, now func() time.Time) *SourceLimiter {
	return &SourceLimiter{
		sources:         make(map[netip.Addr]*sourceState),
		limit:           rate.Limit(float64(cfg.MaxPackagesPerMinute) / 60),
		burstSize:       cfg.BurstSize,
		banDuration:     cfg.BanDuration,
		cleanupInterval: 5 * time.Minute,
		staleAfter:      10 * time.Minute,
		now:             now,
		stopChan:        make(chan struct{}),
	}
}

// Admit reports whether data may be routed.
func (sl *SourceLimiter) Admit(data dispatcher.InboundClientData) bool {
	return sl.Check(data.PeerAddr.Addr()) == nil
}

// Check consumes one token for source. It returns an error wrapping ErrRefused
// when the source is banned or out of tokens.
func (sl *SourceLimiter) Check(source netip.Addr) error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	now := sl.now()
	sl.totalRequests++

	state, ok := sl.sources[source]
	if !ok {
		state = &sourceState{limiter: rate.NewLimiter(sl.limit, sl.burstSize)}
		sl.sources[source] = state
	}
	state.lastSeen = now

	if now.Before(state.bannedUntil) {
		sl.totalRejections++
		return oops.Wrapf(ErrRefused, "source %s banned until %s", source, state.bannedUntil.Format(time.RFC3339))
	}

	if state.limiter.AllowN(now, 1) {
		state.rejectCount = 0
		return nil
	}

	state.rejectCount++
	sl.totalRejections++
	if state.rejectCount > banThreshold {
		state.bannedUntil = now.Add(sl.banDuration)
		state.rejectCount = 0
		log.WithFields(logger.Fields{
			"at":           "SourceLimiter.Check",
			"reason":       "source_auto_banned",
			"source":       source.String(),
			"ban_duration": sl.banDuration,
		}).Warn("auto-banning source due to excessive rate limit violations")
		return oops.Wrapf(ErrRefused, "source %s auto-banned", source)
	}

	log.WithFields(logger.Fields{
		"at":           "SourceLimiter.Check",
		"reason":       "rate_limit_exceeded",
		"source":       source.String(),
		"reject_count": state.rejectCount,
	}).Debug("rejecting package due to rate limit")
	return oops.Wrapf(ErrRefused, "source %s over rate limit", source)
}

// IsBanned reports whether source is currently banned.
func (sl *SourceLimiter) IsBanned(source netip.Addr) bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	state, ok := sl.sources[source]
	return ok && sl.now().Before(state.bannedUntil)
}

func (sl *SourceLimiter) cleanupLoop() {
	defer sl.wg.Done()

	ticker := time.NewTicker(sl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sl.stopChan:
			return
		case <-ticker.C:
			sl.cleanup()
		}
	}
}

// cleanup drops sources not seen recently that are not banned.
func (sl *SourceLimiter) cleanup() {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	now := sl.now()
	cutoff := now.Add(-sl.staleAfter)
	removed := 0
	for addr, state := range sl.sources {
		if state.lastSeen.Before(cutoff) && !now.Before(state.bannedUntil) {
			delete(sl.sources, addr)
			removed++
		}
	}

	if removed > 0 {
		log.WithFields(logger.Fields{
			"at":        "SourceLimiter.cleanup",
			"reason":    "stale_entry_cleanup",
			"removed":   removed,
			"remaining": len(sl.sources),
		}).Debug("cleaned up stale source limiter entries")
	}
}

// Stats summarizes limiter activity.
type Stats struct {
	TrackedSources  int
	BannedSources   int
	TotalRequests   uint64
	TotalRejections uint64
}

// GetStats returns current counters.
func (sl *SourceLimiter) GetStats() Stats {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	stats := Stats{
		TrackedSources:  len(sl.sources),
		TotalRequests:   sl.totalRequests,
		TotalRejections: sl.totalRejections,
	}
	now := sl.now()
	for _, state := range sl.sources {
		if now.Before(state.bannedUntil) {
			stats.BannedSources++
		}
	}
	return stats
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (sl *SourceLimiter) Stop() {
	sl.stopOnce.Do(func() {
		close(sl.stopChan)
	})
	sl.wg.Wait()
}
