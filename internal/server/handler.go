package server

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/arcforge/arcforge/internal/protocol"
	"github.com/arcforge/arcforge/internal/room"
	"github.com/arcforge/arcforge/internal/transport"
)

const outboxCapacity = 256

// conn is one accepted connection's handler-side state: the transport, the
// codec, a monotonic per-direction sequence counter, a serialized outbound
// writer, and the room.Sink this connection hands to whatever room it
// eventually joins. One goroutine runs HandleConnection; a second drains
// outbox; a third forwards the room sink into outbox once a room is
// joined. All three exit together when the connection closes.
type conn[GC any, GS any, CM any, SM any] struct {
	ws       transport.Connection
	codec    protocol.Codec
	state    *State[GC, GS, CM, SM]
	playerID protocol.PlayerID
	seq      uint64
	startedAt time.Time

	outbox   chan protocol.Envelope
	roomSink *room.Sink[room.Outbound[GS, SM]]
}

// HandleConnection runs a connection end to end: handshake, then the main
// receive loop, until the peer disconnects, idles out, or errors. It never
// returns an error to its caller — every failure is handled locally by
// closing the connection, so a single misbehaving connection can never take
// down the server.
func HandleConnection[GC any, GS any, CM any, SM any](ctx context.Context, ws transport.Connection, st *State[GC, GS, CM, SM]) {
	c := &conn[GC, GS, CM, SM]{
		ws:        ws,
		codec:     st.Codec,
		state:     st,
		startedAt: time.Now(),
		outbox:    make(chan protocol.Envelope, outboxCapacity),
		roomSink:  room.NewSink[room.Outbound[GS, SM]](),
	}
	defer ws.Close()

	writerCtx, cancelWriter := context.WithCancel(ctx)
	defer cancelWriter()
	go c.runWriter(writerCtx)
	go c.pumpRoomSink(writerCtx)

	handshakeOK := c.handshake(ctx)
	defer func() {
		if handshakeOK {
			if err := c.state.Disconnect(c.playerID); err != nil {
				log.Printf("conn %s: disconnect cleanup: %v", ws.ID(), err)
			}
		}
		c.roomSink.Close()
	}()
	if !handshakeOK {
		return
	}

	c.mainLoop(ctx)
}

func (c *conn[GC, GS, CM, SM]) serverTimeMs() uint64 {
	return uint64(time.Since(c.startedAt).Milliseconds())
}

func (c *conn[GC, GS, CM, SM]) nextSeq() uint64 { return atomic.AddUint64(&c.seq, 1) }

// send enqueues payload as an Envelope for the writer goroutine. Never
// blocks past outboxCapacity backpressure; a full outbox here means the
// peer isn't reading, which the idle/write deadlines downstream resolve.
func (c *conn[GC, GS, CM, SM]) send(ctx context.Context, payload protocol.Payload) {
	env := protocol.Envelope{
		Seq:         c.nextSeq(),
		TimestampMs: c.serverTimeMs(),
		Channel:     protocol.ReliableOrdered,
		Payload:     payload,
	}
	select {
	case c.outbox <- env:
	case <-ctx.Done():
	}
}

func (c *conn[GC, GS, CM, SM]) sendSystem(ctx context.Context, msg protocol.SystemMessage) {
	c.send(ctx, protocol.PayloadSystem(msg))
}

func (c *conn[GC, GS, CM, SM]) sendError(ctx context.Context, code uint16, message string) {
	c.sendSystem(ctx, protocol.Error{Code: code, Message: message})
}

// runWriter is the connection's single writer, serializing every outbound
// frame so writes never interleave.
func (c *conn[GC, GS, CM, SM]) runWriter(ctx context.Context) {
	for {
		select {
		case env, ok := <-c.outbox:
			if !ok {
				return
			}
			data, err := c.codec.Encode(env)
			if err != nil {
				log.Printf("conn %s: encode failed, dropping frame: %v", c.ws.ID(), err)
				continue
			}
			if err := c.ws.Send(ctx, data); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// pumpRoomSink forwards whatever the player's room actor produces into the
// shared outbox, wrapping snapshots as System(RoomState) and game messages
// as Game(bytes).
func (c *conn[GC, GS, CM, SM]) pumpRoomSink(ctx context.Context) {
	for {
		out, ok := c.roomSink.Recv(ctx)
		if !ok {
			return
		}
		if out.IsSnapshot {
			data, err := c.codec.Encode(out.Snapshot)
			if err != nil {
				log.Printf("conn %s: encode snapshot failed: %v", c.ws.ID(), err)
				continue
			}
			c.send(ctx, protocol.PayloadSystem(protocol.RoomState{Data: protocol.ByteArray(data)}))
			continue
		}
		data, err := c.codec.Encode(out.Message)
		if err != nil {
			log.Printf("conn %s: encode game message failed: %v", c.ws.ID(), err)
			continue
		}
		c.send(ctx, protocol.PayloadGame(data))
	}
}

// handshake runs the connection's first phase: receive within 5s, require
// System(Handshake), check version, authenticate, reserve the session,
// ack. Returns whether the connection is now live and owns a session.
func (c *conn[GC, GS, CM, SM]) handshake(ctx context.Context) bool {
	hctx, cancel := context.WithTimeout(ctx, c.state.Config.HandshakeTimeout)
	defer cancel()

	data, err := c.ws.Recv(hctx)
	if err != nil || data == nil {
		return false
	}

	var env protocol.Envelope
	if err := c.codec.Decode(data, &env); err != nil {
		c.sendError(ctx, 400, "expected Handshake")
		return false
	}

	sysMsg, ok := env.Payload.AsSystem()
	if !ok {
		c.sendError(ctx, 400, "expected Handshake")
		return false
	}
	hs, ok := sysMsg.(protocol.Handshake)
	if !ok {
		c.sendError(ctx, 400, "expected Handshake")
		return false
	}

	if hs.Version != ProtocolVersion {
		c.sendError(ctx, 400, "protocol version mismatch")
		return false
	}

	token := ""
	if hs.Token != nil {
		token = *hs.Token
	}
	playerID, err := c.state.Authenticator.Authenticate(hctx, token)
	if err != nil {
		c.sendError(ctx, 401, "unauthorized")
		return false
	}

	if _, err := c.state.CreateSession(playerID); err != nil {
		code, msg := errorCodeAndMessage(err)
		c.sendError(ctx, code, msg)
		return false
	}

	c.playerID = playerID
	c.sendSystem(ctx, protocol.HandshakeAck{PlayerID: playerID, ServerTime: c.serverTimeMs()})
	return true
}

// mainLoop runs the connection's steady state: receive with a 15s idle
// deadline, dispatch by payload kind, until the peer disconnects, idles out, or a
// transport error occurs.
func (c *conn[GC, GS, CM, SM]) mainLoop(ctx context.Context) {
	for {
		ictx, cancel := context.WithTimeout(ctx, c.state.Config.IdleTimeout)
		data, err := c.ws.Recv(ictx)
		cancel()
		if err != nil || data == nil {
			return
		}

		var env protocol.Envelope
		if err := c.codec.Decode(data, &env); err != nil {
			log.Printf("conn %s: malformed envelope, dropping: %v", c.ws.ID(), err)
			continue
		}

		if game, isGame := env.Payload.AsGame(); isGame {
			c.handleGame(ctx, game)
			continue
		}

		sysMsg, _ := env.Payload.AsSystem()
		if c.handleSystem(ctx, sysMsg) {
			return
		}
	}
}

func (c *conn[GC, GS, CM, SM]) handleGame(ctx context.Context, data []byte) {
	var msg CM
	if err := c.codec.Decode(data, &msg); err != nil {
		c.sendError(ctx, 400, "malformed game message")
		return
	}
	if err := c.state.RouteMessage(ctx, c.playerID, msg); err != nil {
		code, message := errorCodeAndMessage(err)
		c.sendError(ctx, code, message)
	}
}

// handleSystem dispatches one decoded SystemMessage and reports whether
// the connection should close (only on Disconnect; any other unhandled
// system message is logged and dropped).
func (c *conn[GC, GS, CM, SM]) handleSystem(ctx context.Context, msg protocol.SystemMessage) bool {
	switch m := msg.(type) {
	case protocol.Heartbeat:
		c.sendSystem(ctx, protocol.HeartbeatAck{ClientTime: m.ClientTime, ServerTime: c.serverTimeMs()})

	case protocol.JoinRoom:
		if err := c.state.JoinRoom(ctx, c.playerID, m.RoomID, c.roomSink); err != nil {
			code, message := errorCodeAndMessage(err)
			c.sendError(ctx, code, message)
			return false
		}
		c.sendSystem(ctx, protocol.RoomJoined{RoomID: m.RoomID, SessionID: c.reconnectToken()})

	case protocol.JoinOrCreate:
		if m.Name != "" {
			log.Printf("conn %s: JoinOrCreate name=%q ignored (single-game-type server)", c.ws.ID(), m.Name)
		}
		roomID, err := c.state.JoinOrCreate(ctx, c.playerID, c.roomSink)
		if err != nil {
			c.sendError(ctx, 409, err.Error())
			return false
		}
		c.sendSystem(ctx, protocol.RoomJoined{RoomID: roomID, SessionID: c.reconnectToken()})

	case protocol.ListRooms:
		infos := c.state.ListRooms(ctx)
		entries := make([]protocol.RoomListEntry, 0, len(infos))
		for _, info := range infos {
			entries = append(entries, protocol.RoomListEntry{
				RoomID:      info.RoomID,
				PlayerCount: info.PlayerCount,
				MaxPlayers:  info.MaxPlayers,
			})
		}
		c.sendSystem(ctx, protocol.RoomList{Rooms: entries})

	case protocol.LeaveRoom:
		_ = c.state.LeaveRoom(ctx, c.playerID) // best-effort

	case protocol.Disconnect:
		log.Printf("conn %s: player %s disconnected: %s", c.ws.ID(), c.playerID, m.Reason)
		return true

	default:
		log.Printf("conn %s: unhandled system message, dropping", c.ws.ID())
	}
	return false
}

// reconnectToken looks up the player's live session to surface its
// reconnection token on RoomJoined.
func (c *conn[GC, GS, CM, SM]) reconnectToken() string {
	token, ok := c.state.sessionToken(c.playerID)
	if !ok {
		return ""
	}
	return token
}
