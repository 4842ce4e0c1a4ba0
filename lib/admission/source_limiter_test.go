package admission

import (
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/go-i2p/go-hopper/lib/config"
	"github.com/go-i2p/go-hopper/lib/dispatcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testLimiter(perMinute, burst int, ban time.Duration) (*SourceLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	sl := newSourceLimiter(config.AdmissionDefaults{
		MaxPackagesPerMinute: perMinute,
		BurstSize:            burst,
		BanDuration:          ban,
	}, clock.now)
	return sl, clock
}

var (
	peerA = netip.MustParseAddr("10.0.0.1")
	peerB = netip.MustParseAddr("10.0.0.2")
)

func TestBurstThenRefuse(t *testing.T) {
	sl, _ := testLimiter(60, 3, time.Minute)

	for i := 0; i < 3; i++ {
		require.NoError(t, sl.Check(peerA), "package %d", i)
	}
	assert.ErrorIs(t, sl.Check(peerA), ErrRefused)

	// Sources are independent.
	assert.NoError(t, sl.Check(peerB))
}

func TestTokensRefill(t *testing.T) {
	sl, clock := testLimiter(60, 1, time.Minute)

	require.NoError(t, sl.Check(peerA))
	require.ErrorIs(t, sl.Check(peerA), ErrRefused)

	clock.advance(time.Second)
	assert.NoError(t, sl.Check(peerA))
}

func TestAutoBanAndExpiry(t *testing.T) {
	sl, clock := testLimiter(60, 1, time.Minute)

	require.NoError(t, sl.Check(peerA))
	for i := 0; i <= banThreshold; i++ {
		assert.ErrorIs(t, sl.Check(peerA), ErrRefused)
	}
	assert.True(t, sl.IsBanned(peerA))
	assert.Equal(t, 1, sl.GetStats().BannedSources)

	// Tokens have refilled but the ban still holds.
	clock.advance(30 * time.Second)
	assert.ErrorIs(t, sl.Check(peerA), ErrRefused)

	clock.advance(31 * time.Second)
	assert.False(t, sl.IsBanned(peerA))
	assert.NoError(t, sl.Check(peerA))
}

func TestAdmitUsesPeerAddress(t *testing.T) {
	sl, _ := testLimiter(60, 1, time.Minute)
	data := dispatcher.InboundClientData{PeerAddr: netip.AddrPortFrom(peerA, 4000)}
	other := dispatcher.InboundClientData{PeerAddr: netip.AddrPortFrom(peerA, 4001)}

	assert.True(t, sl.Admit(data))
	assert.False(t, sl.Admit(other), "ports of one address share a bucket")
}

func TestCleanupRemovesStaleSources(t *testing.T) {
	sl, clock := testLimiter(60, 5, time.Hour)

	require.NoError(t, sl.Check(peerA))
	require.NoError(t, sl.Check(peerB))
	for i := 0; i < 30; i++ {
		_ = sl.Check(peerB)
	}
	require.True(t, sl.IsBanned(peerB))

	clock.advance(11 * time.Minute)
	sl.cleanup()

	stats := sl.GetStats()
	assert.Equal(t, 1, stats.TrackedSources, "banned source is kept")
	assert.True(t, sl.IsBanned(peerB))
	assert.Equal(t, uint64(32), stats.TotalRequests)
}

func TestStartStop(t *testing.T) {
	sl := NewSourceLimiter()
	assert.NoError(t, sl.Check(peerA))
	sl.Stop()
	sl.Stop()
}
