package session

import (
	"context"

	"github.com/arcforge/arcforge/internal/protocol"
)

// Authenticator resolves a handshake token to a PlayerID. Implementations
// are injected capabilities; the framework ships none that talk to a real
// identity provider.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (protocol.PlayerID, error)
}
