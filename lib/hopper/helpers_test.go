package hopper

import (
	"net/netip"
	"sync"
	"testing"

	"github.com/go-i2p/go-hopper/lib/cryptde"
	"github.com/go-i2p/go-hopper/lib/dispatcher"
	"github.com/go-i2p/go-hopper/lib/mailbox"
	"github.com/go-i2p/go-hopper/lib/message"
	"github.com/go-i2p/go-hopper/lib/route"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// recorder is a Recipient that keeps everything it is sent.
type recorder[T any] struct {
	mu   sync.Mutex
	msgs []T
	err  error
}

func (r *recorder[T]) TrySend(msg T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder[T]) all() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.msgs...)
}

func (r *recorder[T]) take() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.msgs
	r.msgs = nil
	return out
}

type testNode struct {
	cd           cryptde.CryptDE
	hopper       *Hopper
	out          *recorder[dispatcher.TransmitDataMsg]
	neighborhood *recorder[ExpiredCoresPackage]
	proxyClient  *recorder[ExpiredCoresPackage]
	proxyServer  *recorder[ExpiredCoresPackage]
	accountant   *recorder[RoutingServiceProvided]
}

const (
	testServiceRate = 100
	testByteRate    = 3
)

var testPeer = netip.MustParseAddrPort("1.2.3.4:5678")

func newTestNode(t *testing.T, cd cryptde.CryptDE, bootstrap bool) *testNode {
	t.Helper()
	h, err := New(HopperConfig{
		CryptDE:           cd,
		IsBootstrapNode:   bootstrap,
		PerRoutingService: testServiceRate,
		PerRoutingByte:    testByteRate,
		MailboxCapacity:   16,
	})
	require.NoError(t, err)

	n := &testNode{
		cd:           cd,
		hopper:       h,
		out:          &recorder[dispatcher.TransmitDataMsg]{},
		neighborhood: &recorder[ExpiredCoresPackage]{},
		proxyClient:  &recorder[ExpiredCoresPackage]{},
		proxyServer:  &recorder[ExpiredCoresPackage]{},
		accountant:   &recorder[RoutingServiceProvided]{},
	}
	h.Handle(BindMessage{PeerActors: n.actors()})
	require.True(t, h.Bound())
	return n
}

func (n *testNode) actors() PeerActors {
	return PeerActors{
		Dispatcher: n.out,
		Components: map[route.Component]mailbox.Recipient[ExpiredCoresPackage]{
			route.Neighborhood: n.neighborhood,
			route.ProxyClient:  n.proxyClient,
			route.ProxyServer:  n.proxyServer,
		},
		Accountant: n.accountant,
	}
}

func (n *testNode) key() cryptde.PublicKey {
	return n.cd.PublicKey()
}

func nullNodes(t *testing.T, names ...string) []*testNode {
	nodes := make([]*testNode, len(names))
	for i, name := range names {
		nodes[i] = newTestNode(t, cryptde.NewNullCryptDE(cryptde.PublicKey(name)), false)
	}
	return nodes
}

func x25519Nodes(t *testing.T, count int) []*testNode {
	nodes := make([]*testNode, count)
	for i := range nodes {
		cd, err := cryptde.GenerateX25519CryptDE()
		require.NoError(t, err)
		nodes[i] = newTestNode(t, cd, false)
	}
	return nodes
}

func oneWayTo(t *testing.T, component route.Component, nodes ...*testNode) route.Route {
	t.Helper()
	keys := make([]cryptde.PublicKey, len(nodes))
	for i, n := range nodes {
		keys[i] = n.key()
	}
	seg, err := route.NewRouteSegment(keys, component)
	require.NoError(t, err)
	r, err := route.OneWay(seg)
	require.NoError(t, err)
	return r
}

func incipient(t *testing.T, r route.Route, payload message.MessageType) IncipientCoresPackage {
	t.Helper()
	pkg, err := NewIncipientCoresPackage(r, payload, r.LastKey())
	require.NoError(t, err)
	return pkg
}

func inbound(data []byte) dispatcher.InboundClientData {
	return dispatcher.InboundClientData{PeerAddr: testPeer, Data: data}
}

func samplePayload() message.ClientRequest {
	return message.ClientRequest{
		StreamKey: message.StreamKey("stream-7"),
		SequencedPacket: message.SequencedPacket{
			Data:           []byte("GET /index.html HTTP/1.1\r\n\r\n"),
			SequenceNumber: 7,
		},
		TargetHostname:      "example.com",
		TargetPort:          80,
		Protocol:            message.ProtocolHTTP,
		OriginatorPublicKey: cryptde.PublicKey("originator"),
	}
}

// droppedCount reads hopper_dropped_packages_total{reason} from the default registry.
func droppedCount(t *testing.T, reason string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "hopper_dropped_packages_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "reason" && l.GetValue() == reason {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
