package session

import (
	"context"
	"strconv"

	"github.com/arcforge/arcforge/internal/protocol"
)

// DevAuthenticator treats the handshake token as a decimal PlayerID,
// performing no real credential check. It exists to exercise the
// Authenticator contract end-to-end and as a starting point for an
// embedding application's real authenticator; it
// must never be used against a public network.
type DevAuthenticator struct{}

func (DevAuthenticator) Authenticate(_ context.Context, token string) (protocol.PlayerID, error) {
	n, err := strconv.ParseUint(token, 10, 64)
	if err != nil {
		return 0, errAuthFailed("token is not a valid player id: " + err.Error())
	}
	return protocol.PlayerID(n), nil
}
