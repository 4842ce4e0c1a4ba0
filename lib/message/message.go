// Package message defines the application payloads that travel inside routed packages.
//
// MessageType is a closed tagged union. The routing layer treats it as opaque bytes
// produced by Encode and consumed by Decode; only local components look inside.
package message

import (
	"errors"
	"fmt"

	"github.com/go-i2p/go-hopper/lib/codec"
	"github.com/go-i2p/go-hopper/lib/cryptde"
	"github.com/samber/oops"
)

// Kind tags a MessageType variant on the wire.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindDnsResolveFailed
	KindClientRequest
	KindClientResponse
	KindGossip
)

func (k Kind) String() string {
	switch k {
	case KindDnsResolveFailed:
		return "DnsResolveFailed"
	case KindClientRequest:
		return "ClientRequest"
	case KindClientResponse:
		return "ClientResponse"
	case KindGossip:
		return "Gossip"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ErrUnknownKind is returned when decoding an envelope whose tag names no variant.
var ErrUnknownKind = errors.New("message: unknown message kind")

// MessageType is implemented by every payload variant.
type MessageType interface {
	Kind() Kind
}

// StreamKey identifies a proxied client stream end to end.
type StreamKey []byte

// SequencedPacket is one ordered chunk of a proxied stream.
type SequencedPacket struct {
	Data           []byte `cbor:"1,keyasint"`
	SequenceNumber uint64 `cbor:"2,keyasint"`
	LastData       bool   `cbor:"3,keyasint"`
}

// ProxyProtocol names the application protocol a ClientRequest carries.
type ProxyProtocol uint8

const (
	ProtocolHTTP ProxyProtocol = iota + 1
	ProtocolTLS
)

// DnsResolveFailed tells the originating proxy that the exit node could not resolve
// the requested host.
type DnsResolveFailed struct {
	StreamKey StreamKey `cbor:"1,keyasint"`
}

func (DnsResolveFailed) Kind() Kind { return KindDnsResolveFailed }

// ClientRequest carries client data from the proxy server to the exit node.
type ClientRequest struct {
	StreamKey           StreamKey         `cbor:"1,keyasint"`
	SequencedPacket     SequencedPacket   `cbor:"2,keyasint"`
	TargetHostname      string            `cbor:"3,keyasint"`
	TargetPort          uint16            `cbor:"4,keyasint"`
	Protocol            ProxyProtocol     `cbor:"5,keyasint"`
	OriginatorPublicKey cryptde.PublicKey `cbor:"6,keyasint"`
}

func (ClientRequest) Kind() Kind { return KindClientRequest }

// ClientResponse carries server data from the exit node back to the proxy server.
type ClientResponse struct {
	StreamKey       StreamKey       `cbor:"1,keyasint"`
	SequencedPacket SequencedPacket `cbor:"2,keyasint"`
}

func (ClientResponse) Kind() Kind { return KindClientResponse }

// NodeRecord is one neighbor advertised in Gossip.
type NodeRecord struct {
	PublicKey   cryptde.PublicKey   `cbor:"1,keyasint"`
	NodeAddr    string              `cbor:"2,keyasint"`
	IsBootstrap bool                `cbor:"3,keyasint"`
	Neighbors   []cryptde.PublicKey `cbor:"4,keyasint"`
}

// Gossip shares neighborhood records between nodes.
type Gossip struct {
	NodeRecords []NodeRecord `cbor:"1,keyasint"`
}

func (Gossip) Kind() Kind { return KindGossip }

type envelope struct {
	Kind Kind             `cbor:"1,keyasint"`
	Body codec.RawMessage `cbor:"2,keyasint"`
}

// Encode serializes msg together with its variant tag.
func Encode(msg MessageType) ([]byte, error) {
	if msg == nil {
		return nil, oops.Errorf("cannot encode nil message")
	}
	switch msg.(type) {
	case DnsResolveFailed, ClientRequest, ClientResponse, Gossip:
	default:
		return nil, oops.Wrapf(ErrUnknownKind, "unsupported message type %T", msg)
	}
	body, err := codec.Marshal(msg)
	if err != nil {
		return nil, oops.Wrapf(err, "encoding %s body", msg.Kind())
	}
	return codec.Marshal(envelope{Kind: msg.Kind(), Body: body})
}

// Decode parses bytes produced by Encode.
func Decode(data []byte) (MessageType, error) {
	var env envelope
	if err := codec.Unmarshal(data, &env); err != nil {
		return nil, oops.Wrapf(err, "decoding message envelope")
	}

	var msg MessageType
	var err error
	switch env.Kind {
	case KindDnsResolveFailed:
		var m DnsResolveFailed
		err = decodeBody(env, &m)
		msg = m
	case KindClientRequest:
		var m ClientRequest
		err = decodeBody(env, &m)
		msg = m
	case KindClientResponse:
		var m ClientResponse
		err = decodeBody(env, &m)
		msg = m
	case KindGossip:
		var m Gossip
		err = decodeBody(env, &m)
		msg = m
	default:
		return nil, oops.Wrapf(ErrUnknownKind, "kind %d", uint8(env.Kind))
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func decodeBody(env envelope, v interface{}) error {
	if err := codec.Unmarshal(env.Body, v); err != nil {
		return oops.Wrapf(err, "decoding %s body", env.Kind)
	}
	return nil
}
