package route

import (
	"testing"

	"github.com/go-i2p/go-hopper/lib/codec"
	"github.com/go-i2p/go-hopper/lib/cryptde"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keys(names ...string) []cryptde.PublicKey {
	out := make([]cryptde.PublicKey, len(names))
	for i, n := range names {
		out[i] = cryptde.PublicKey(n)
	}
	return out
}

func TestNewRouteSegment(t *testing.T) {
	tests := []struct {
		name     string
		keys     []cryptde.PublicKey
		comp     Component
		expected error
	}{
		{name: "valid", keys: keys("aaaa", "bbbb"), comp: Neighborhood},
		{name: "empty", keys: nil, comp: Neighborhood, expected: ErrEmptySegment},
		{name: "unknown component", keys: keys("aaaa"), comp: ComponentUnknown, expected: ErrInvalidComponent},
		{name: "out of range component", keys: keys("aaaa"), comp: Component(42), expected: ErrInvalidComponent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg, err := NewRouteSegment(tt.keys, tt.comp)
			if tt.expected != nil {
				assert.ErrorIs(t, err, tt.expected)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.keys, seg.Keys)
			assert.Equal(t, tt.comp, seg.Recipient)
		})
	}

	_, err := NewRouteSegment([]cryptde.PublicKey{cryptde.PublicKey("aaaa"), nil}, Neighborhood)
	assert.Error(t, err)
}

func TestOneWay(t *testing.T) {
	seg, err := NewRouteSegment(keys("aaaa", "bbbb", "cccc"), ProxyClient)
	require.NoError(t, err)

	r, err := OneWay(seg)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, cryptde.PublicKey("aaaa"), r.FirstKey())
	assert.Equal(t, cryptde.PublicKey("cccc"), r.LastKey())
	assert.Equal(t, ProxyClient, r.Component())
	assert.NoError(t, r.CheckDestination(cryptde.PublicKey("cccc")))
	assert.ErrorIs(t, r.CheckDestination(cryptde.PublicKey("aaaa")), ErrDestinationMismatch)

	_, err = OneWay(RouteSegment{})
	assert.ErrorIs(t, err, ErrEmptySegment)
}

func TestRoundTrip(t *testing.T) {
	over, err := NewRouteSegment(keys("orig", "aaaa", "exit"), ProxyClient)
	require.NoError(t, err)
	back, err := NewRouteSegment(keys("exit", "bbbb", "orig"), ProxyServer)
	require.NoError(t, err)

	r, err := RoundTrip(over, back)
	require.NoError(t, err)
	assert.Equal(t, 5, r.Len())
	assert.Equal(t, ProxyServer, r.Component())

	var got []string
	for _, h := range r.Hops() {
		got = append(got, string(h.Key))
	}
	assert.Equal(t, []string{"orig", "aaaa", "exit", "bbbb", "orig"}, got)

	wrongBack, err := NewRouteSegment(keys("bbbb", "orig"), ProxyServer)
	require.NoError(t, err)
	_, err = RoundTrip(over, wrongBack)
	assert.ErrorIs(t, err, ErrSegmentMismatch)

	_, err = RoundTrip(over, RouteSegment{})
	assert.ErrorIs(t, err, ErrEmptySegment)

	noComponent := RouteSegment{Keys: over.Keys}
	_, err = RoundTrip(noComponent, back)
	assert.ErrorIs(t, err, ErrInvalidComponent)
}

func TestSealAndShiftEachHop(t *testing.T) {
	names := []string{"hop-a", "hop-b", "hop-c"}
	seg, err := NewRouteSegment(keys(names...), Neighborhood)
	require.NoError(t, err)
	r, err := OneWay(seg)
	require.NoError(t, err)

	origin := cryptde.NewNullCryptDE(cryptde.PublicKey("origin"))
	sealed, err := Seal(r, origin)
	require.NoError(t, err)
	require.Equal(t, 3, sealed.Len())

	for i, name := range names {
		hop := cryptde.NewNullCryptDE(cryptde.PublicKey(name))
		live, rest, err := sealed.Shift(hop)
		require.NoError(t, err, "hop %s", name)
		assert.Equal(t, len(names)-i-1, rest.Len())

		if i < len(names)-1 {
			assert.False(t, live.IsFinal())
			assert.Equal(t, cryptde.PublicKey(names[i+1]), live.Next)
			assert.Equal(t, ComponentUnknown, live.Component)
		} else {
			assert.True(t, live.IsFinal())
			assert.Equal(t, Neighborhood, live.Component)
		}
		sealed = rest
	}
}

func TestShiftWithWrongKeyFails(t *testing.T) {
	seg, err := NewRouteSegment(keys("hop-a", "hop-b"), Neighborhood)
	require.NoError(t, err)
	r, err := OneWay(seg)
	require.NoError(t, err)

	sealed, err := Seal(r, cryptde.NewNullCryptDE(cryptde.PublicKey("origin")))
	require.NoError(t, err)

	_, _, err = sealed.Shift(cryptde.NewNullCryptDE(cryptde.PublicKey("hop-b")))
	assert.ErrorIs(t, err, cryptde.ErrDecryption)
}

func TestSealFailsForMalformedKey(t *testing.T) {
	x, err := cryptde.GenerateX25519CryptDE()
	require.NoError(t, err)

	seg, err := NewRouteSegment([]cryptde.PublicKey{x.PublicKey(), cryptde.PublicKey("short")}, Neighborhood)
	require.NoError(t, err)
	r, err := OneWay(seg)
	require.NoError(t, err)

	_, err = Seal(r, x)
	assert.ErrorIs(t, err, cryptde.ErrEncryption)
}

func TestShiftRejectsInconsistentRecords(t *testing.T) {
	hop := cryptde.NewNullCryptDE(cryptde.PublicKey("hop-a"))

	record := func(live LiveHop) cryptde.CryptData {
		plain, err := codec.Marshal(live)
		require.NoError(t, err)
		ct, err := hop.Encode(hop.PublicKey(), plain)
		require.NoError(t, err)
		return ct
	}
	garbage, err := hop.Encode(hop.PublicKey(), cryptde.PlainData("not a hop record"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		sealed Sealed
	}{
		{name: "no records", sealed: Sealed{}},
		{name: "final hop with records after it", sealed: Sealed{Hops: []cryptde.CryptData{record(LiveHop{Component: Hopper}), {1}}}},
		{name: "intermediate hop with nothing after it", sealed: Sealed{Hops: []cryptde.CryptData{record(LiveHop{Next: cryptde.PublicKey("hop-b")})}}},
		{name: "final hop without component", sealed: Sealed{Hops: []cryptde.CryptData{record(LiveHop{})}}},
		{name: "intermediate hop revealing component", sealed: Sealed{Hops: []cryptde.CryptData{record(LiveHop{Next: cryptde.PublicKey("hop-b"), Component: Hopper}), {1}}}},
		{name: "undecodable record", sealed: Sealed{Hops: []cryptde.CryptData{garbage}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.sealed.Shift(hop)
			assert.ErrorIs(t, err, ErrMalformedHop)
		})
	}
}

func TestComponentString(t *testing.T) {
	for _, c := range Components {
		assert.True(t, c.Valid())
		assert.NotContains(t, c.String(), "Component(")
	}
	assert.False(t, ComponentUnknown.Valid())
	assert.Equal(t, "Component(0)", ComponentUnknown.String())
}
