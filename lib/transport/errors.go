package transport

import "errors"

var (
	// ErrUnknownPeer is returned when no node is attached under the destination key.
	ErrUnknownPeer = errors.New("transport: unknown peer")

	// ErrAlreadyAttached is returned when a key is attached twice.
	ErrAlreadyAttached = errors.New("transport: key already attached")

	// ErrDetached is returned when sending from an endpoint that has been detached.
	ErrDetached = errors.New("transport: endpoint detached")
)
