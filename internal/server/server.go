package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arcforge/arcforge/config"
	"github.com/arcforge/arcforge/internal/protocol"
	"github.com/arcforge/arcforge/internal/room"
	"github.com/arcforge/arcforge/internal/session"
	"github.com/arcforge/arcforge/internal/transport"
)

// Server owns one game's State plus the transport it accepts connections
// from, and supervises the accept loop and the periodic background sweeps
// (stale-session expiry, empty-room cleanup) for the life of the process.
type Server[GC any, GS any, CM any, SM any] struct {
	transport transport.Transport
	state     *State[GC, GS, CM, SM]
}

// Builder assembles a Server with sensible defaults, following a
// composition-root style: construct with defaults, override what differs,
// then Build().
type Builder[GC any, GS any, CM any, SM any] struct {
	config        *config.ServerConfig
	authenticator session.Authenticator
	codec         protocol.Codec
	logic         room.GameLogic[GC, GS, CM, SM]
	gameConfig    GC
}

// NewBuilder starts a Builder for logic/gameConfig, defaulting to
// config.DefaultServerConfig, session.DevAuthenticator, and
// protocol.JSONCodec — override any of those with the With* methods.
func NewBuilder[GC any, GS any, CM any, SM any](logic room.GameLogic[GC, GS, CM, SM], gameConfig GC) *Builder[GC, GS, CM, SM] {
	return &Builder[GC, GS, CM, SM]{
		config:        config.DefaultServerConfig(),
		authenticator: session.DevAuthenticator{},
		codec:         protocol.NewJSONCodec(),
		logic:         logic,
		gameConfig:    gameConfig,
	}
}

func (b *Builder[GC, GS, CM, SM]) WithConfig(cfg *config.ServerConfig) *Builder[GC, GS, CM, SM] {
	b.config = cfg
	return b
}

func (b *Builder[GC, GS, CM, SM]) WithAuthenticator(auth session.Authenticator) *Builder[GC, GS, CM, SM] {
	b.authenticator = auth
	return b
}

func (b *Builder[GC, GS, CM, SM]) WithCodec(codec protocol.Codec) *Builder[GC, GS, CM, SM] {
	b.codec = codec
	return b
}

// Build binds the WebSocket transport and returns a ready-to-run Server.
func (b *Builder[GC, GS, CM, SM]) Build() (*Server[GC, GS, CM, SM], error) {
	addr := fmt.Sprintf("%s:%d", b.config.Host, b.config.Port)
	ws, err := transport.Bind(addr)
	if err != nil {
		return nil, fmt.Errorf("server: bind %s: %w", addr, err)
	}

	state := NewState[GC, GS, CM, SM](b.config, b.authenticator, b.codec, b.logic, b.gameConfig)
	return &Server[GC, GS, CM, SM]{transport: ws, state: state}, nil
}

// Run blocks until ctx is cancelled or an unrecoverable error occurs. The
// accept loop, session sweep, and room sweep all run under one errgroup so
// a cancellation propagates to every one of them; a single accept failure
// is logged and the accept loop continues rather than tearing the server
// down.
func (s *Server[GC, GS, CM, SM]) Run(ctx context.Context) error {
	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error { return s.acceptLoop(gctx) })
	group.Go(func() error { return s.sweepSessions(gctx) })
	group.Go(func() error { return s.sweepRooms(gctx) })

	<-gctx.Done()
	_ = s.transport.Shutdown(context.Background())
	return group.Wait()
}

func (s *Server[GC, GS, CM, SM]) acceptLoop(ctx context.Context) error {
	for {
		connection, err := s.transport.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("server: accept failed, continuing: %v", err)
			continue
		}
		go HandleConnection[GC, GS, CM, SM](ctx, connection, s.state)
	}
}

func (s *Server[GC, GS, CM, SM]) sweepSessions(ctx context.Context) error {
	ticker := time.NewTicker(s.state.Config.SessionSweepPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			expired := s.state.SweepSessions()
			if len(expired) > 0 {
				log.Printf("server: expired %d stale sessions", len(expired))
			}
		}
	}
}

func (s *Server[GC, GS, CM, SM]) sweepRooms(ctx context.Context) error {
	ticker := time.NewTicker(s.state.Config.RoomSweepPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			removed := s.state.SweepEmptyRooms(ctx)
			if removed > 0 {
				log.Printf("server: destroyed %d empty rooms", removed)
			}
		}
	}
}
