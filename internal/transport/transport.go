// Package transport abstracts the bidirectional framed byte stream a
// connection handler talks over, so the rest of the framework never
// depends on a specific wire transport library.
package transport

import (
	"context"
	"fmt"
)

// ConnectionID is a monotonic, process-lifetime-unique connection handle.
type ConnectionID uint64

func (c ConnectionID) String() string { return fmt.Sprintf("conn-%d", uint64(c)) }

// Connection is one accepted bidirectional stream.
type Connection interface {
	// Send writes data as one reliable frame.
	Send(ctx context.Context, data []byte) error
	// SendUnreliable writes data with best-effort delivery. Implementations
	// without a distinct unreliable path may delegate to Send.
	SendUnreliable(ctx context.Context, data []byte) error
	// Recv returns the next frame, or (nil, nil) on a clean peer close.
	Recv(ctx context.Context) ([]byte, error)
	// Close releases the underlying stream. Safe to call more than once.
	Close() error
	// ID returns this connection's identity.
	ID() ConnectionID
}

// Transport accepts new Connections.
type Transport interface {
	Accept(ctx context.Context) (Connection, error)
	Shutdown(ctx context.Context) error
}
