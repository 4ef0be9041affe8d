package room

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/arcforge/arcforge/internal/protocol"
	"github.com/arcforge/arcforge/internal/tick"
)

// DefaultChannelSize is the default command inbox capacity; a room's inbox
// is bounded so a misbehaving client can never grow it without limit.
const DefaultChannelSize = 64

// command is the room actor's inbox element. Concrete command types are
// generic over the same (GameState, ClientMsg, ServerMsg) parameters as
// their owning Room; the actor's run loop type-switches on the concrete
// instantiation it was built with.
type command interface{ isRoomCommand() }

type cmdJoin[GS any, SM any] struct {
	player protocol.PlayerID
	sink   *Sink[Outbound[GS, SM]]
	reply  chan error
}

func (cmdJoin[GS, SM]) isRoomCommand() {}

type cmdLeave struct {
	player protocol.PlayerID
	reply  chan error
}

func (cmdLeave) isRoomCommand() {}

type cmdMessage[CM any] struct {
	sender protocol.PlayerID
	msg    CM
}

func (cmdMessage[CM]) isRoomCommand() {}

type cmdGetInfo struct {
	reply chan Info
}

func (cmdGetInfo) isRoomCommand() {}

type cmdShutdown struct{}

func (cmdShutdown) isRoomCommand() {}

// actor is one room's single-writer task. It owns membership, per-player
// outbound sinks, opaque game state, and (for real-time games) a tick
// scheduler. All state below is touched only by run's goroutine.
type actor[GC any, GS any, CM any, SM any] struct {
	roomID protocol.RoomID
	state  State
	config Config

	logic      GameLogic[GC, GS, CM, SM]
	gameConfig GC
	gameState  *GS
	hasState   bool

	players map[protocol.PlayerID]*Sink[Outbound[GS, SM]]

	scheduler *tick.Scheduler
	inbox     chan command
}

// Handle is a cheap-to-clone reference to a running room. Every method
// returns ErrKindUnavailable when ctx ends before its command is accepted
// or, where it waits for one, before the reply arrives. A stopped actor is
// not detected by itself: a call against one returns only once ctx ends.
type Handle[GC any, GS any, CM any, SM any] struct {
	roomID protocol.RoomID
	inbox  chan command
}

// RoomID returns the handled room's identifier.
func (h Handle[GC, GS, CM, SM]) RoomID() protocol.RoomID { return h.roomID }

// Spawn starts a new room actor for logic/gameConfig and returns a handle
// to it. channelSize bounds the command inbox (DefaultChannelSize if 0 is
// more appropriate than panicking on misuse).
func Spawn[GC any, GS any, CM any, SM any](
	ctx context.Context,
	roomID protocol.RoomID,
	cfg Config,
	logic GameLogic[GC, GS, CM, SM],
	gameConfig GC,
	channelSize int,
) Handle[GC, GS, CM, SM] {
	if channelSize <= 0 {
		channelSize = DefaultChannelSize
	}

	a := &actor[GC, GS, CM, SM]{
		roomID:     roomID,
		state:      StateWaitingForPlayers,
		config:     cfg,
		logic:      logic,
		gameConfig: gameConfig,
		players:    make(map[protocol.PlayerID]*Sink[Outbound[GS, SM]]),
		inbox:      make(chan command, channelSize),
	}

	if cfg.TickRateHz > 0 {
		a.scheduler = tick.New(tick.DefaultConfig().WithRate(cfg.TickRateHz))
		a.scheduler.Pause() // resumed once the room enters InProgress
	}

	go a.run(ctx)

	return Handle[GC, GS, CM, SM]{roomID: roomID, inbox: a.inbox}
}

func (a *actor[GC, GS, CM, SM]) run(ctx context.Context) {
	log.Printf("room %s: actor starting", a.roomID)
	defer log.Printf("room %s: actor stopped", a.roomID)

	// The tick pump starts once the room is InProgress: a WaitForTick call
	// made while the scheduler is paused blocks until ctx ends, so a pump
	// started earlier would never deliver a tick.
	var ticks chan tick.Info
	pumping := false
	if a.scheduler != nil {
		ticks = make(chan tick.Info, 1)
	}

	for {
		select {
		case <-ctx.Done():
			a.state = StateDestroying
			return

		case cmd := <-a.inbox:
			if a.dispatchCommand(cmd) {
				return
			}
			if ticks != nil && !pumping && a.state == StateInProgress {
				go a.pumpTicks(ctx, ticks)
				pumping = true
			}

		case info := <-ticks:
			a.runTick(info)
		}
	}
}

// pumpTicks forwards Scheduler.WaitForTick results onto ticks so the
// actor's single select can serve both commands and ticks. It exits once
// ctx is cancelled (the only way WaitForTick returns an error).
func (a *actor[GC, GS, CM, SM]) pumpTicks(ctx context.Context, ticks chan<- tick.Info) {
	for {
		info, err := a.scheduler.WaitForTick(ctx)
		if err != nil {
			return
		}
		select {
		case ticks <- info:
		case <-ctx.Done():
			return
		}
	}
}

// dispatchCommand handles one inbox command and reports whether the actor
// should stop (Shutdown).
func (a *actor[GC, GS, CM, SM]) dispatchCommand(cmd command) bool {
	switch c := cmd.(type) {
	case cmdJoin[GS, SM]:
		a.handleJoin(c)
	case cmdLeave:
		a.handleLeave(c)
	case cmdMessage[CM]:
		a.handleMessage(c)
	case cmdGetInfo:
		c.reply <- a.info()
	case cmdShutdown:
		log.Printf("room %s: shutdown requested", a.roomID)
		a.state = StateDestroying
		for _, sink := range a.players {
			sink.Close()
		}
		return true
	}
	return false
}

func (a *actor[GC, GS, CM, SM]) handleJoin(c cmdJoin[GS, SM]) {
	if !a.state.IsJoinable() {
		c.reply <- errInvalidState("room " + a.roomID.String() + " is not joinable in state " + a.state.String())
		return
	}
	if _, already := a.players[c.player]; already {
		c.reply <- errAlreadyInRoom(c.player, a.roomID)
		return
	}
	if len(a.players) >= a.config.MaxPlayers {
		c.reply <- errRoomFull(a.roomID)
		return
	}

	a.players[c.player] = c.sink
	c.reply <- nil

	if len(a.players) >= a.config.MinPlayers {
		a.transitionToStarting()
	}
}

func (a *actor[GC, GS, CM, SM]) handleLeave(c cmdLeave) {
	sink, ok := a.players[c.player]
	if !ok {
		c.reply <- errNotInRoom(c.player, a.roomID)
		return
	}
	delete(a.players, c.player)
	sink.Close()
	c.reply <- nil

	if a.state.IsActive() && a.hasState {
		msgs := a.logic.OnPlayerDisconnect(a.gameState, c.player)
		a.dispatch(msgs)
	}
}

func (a *actor[GC, GS, CM, SM]) handleMessage(c cmdMessage[CM]) {
	if _, member := a.players[c.sender]; !member {
		log.Printf("room %s: message from non-member %s, dropping", a.roomID, c.sender)
		return
	}
	if !a.hasState {
		return
	}
	if err := a.logic.ValidateMessage(a.gameState, c.sender, c.msg); err != nil {
		log.Printf("room %s: message from %s failed validation, dropping: %v", a.roomID, c.sender, err)
		return
	}

	msgs := a.logic.HandleMessage(a.gameState, c.sender, c.msg)
	a.dispatch(msgs)

	if a.logic.IsFinished(a.gameState) && a.state == StateInProgress {
		a.state = StateFinished
		if a.scheduler != nil {
			a.scheduler.Pause()
		}
		log.Printf("room %s: game finished", a.roomID)
	}
}

func (a *actor[GC, GS, CM, SM]) runTick(info tick.Info) {
	if !a.hasState || a.state != StateInProgress {
		return
	}
	if info.Overrun {
		log.Printf("room %s: tick %d overran (skipped %d)", a.roomID, info.Tick, info.TicksSkipped)
	}

	msgs := a.logic.Tick(a.gameState, info.Dt)
	a.dispatch(msgs)
	a.scheduler.RecordTickEnd()

	if a.logic.IsFinished(a.gameState) && a.state == StateInProgress {
		a.state = StateFinished
		a.scheduler.Pause()
		log.Printf("room %s: game finished", a.roomID)
	}
}

// transitionToStarting moves WaitingForPlayers -> Starting -> InProgress,
// initializing game state (players passed to Init in ascending PlayerID
// order) and broadcasting the first snapshot. Late-join and
// reconnection-resync snapshots are out of scope for this revision.
func (a *actor[GC, GS, CM, SM]) transitionToStarting() {
	a.state = StateStarting

	ids := make([]protocol.PlayerID, 0, len(a.players))
	for id := range a.players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	state := a.logic.Init(a.gameConfig, ids)
	a.gameState = &state
	a.hasState = true
	a.state = StateInProgress

	if a.scheduler != nil {
		a.scheduler.Resume()
	}

	for _, sink := range a.players {
		sink.Send(outboundSnapshot[GS, SM](*a.gameState))
	}
	log.Printf("room %s: started with %d players", a.roomID, len(a.players))
}

// dispatch fans out (Recipient, ServerMsg) pairs: All to every member,
// Player(p) to exactly p (silently dropped if absent), AllExcept(p) to
// everyone but p.
func (a *actor[GC, GS, CM, SM]) dispatch(msgs []Dispatch[SM]) {
	for _, d := range msgs {
		for player, sink := range a.players {
			if d.Recipient.Includes(player) {
				sink.Send(outboundMessage[GS, SM](d.Message))
			}
		}
	}
}

func (a *actor[GC, GS, CM, SM]) info() Info {
	return Info{
		RoomID:      a.roomID,
		State:       a.state,
		PlayerCount: len(a.players),
		MaxPlayers:  a.config.MaxPlayers,
	}
}

// Join requests membership for player, registering sink as its outbound
// destination. Returns ErrKindUnavailable if ctx ends before the actor
// accepts the command or answers it.
func (h Handle[GC, GS, CM, SM]) Join(ctx context.Context, player protocol.PlayerID, sink *Sink[Outbound[GS, SM]]) error {
	reply := make(chan error, 1)
	select {
	case h.inbox <- cmdJoin[GS, SM]{player: player, sink: sink, reply: reply}:
	case <-ctx.Done():
		return errUnavailable(h.roomID)
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return errUnavailable(h.roomID)
	}
}

// Leave requests removal of player from the room.
func (h Handle[GC, GS, CM, SM]) Leave(ctx context.Context, player protocol.PlayerID) error {
	reply := make(chan error, 1)
	select {
	case h.inbox <- cmdLeave{player: player, reply: reply}:
	case <-ctx.Done():
		return errUnavailable(h.roomID)
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return errUnavailable(h.roomID)
	}
}

// SendMessage forwards a client message into the room, fire-and-forget.
func (h Handle[GC, GS, CM, SM]) SendMessage(ctx context.Context, sender protocol.PlayerID, msg CM) error {
	select {
	case h.inbox <- cmdMessage[CM]{sender: sender, msg: msg}:
		return nil
	case <-ctx.Done():
		return errUnavailable(h.roomID)
	}
}

// GetInfo returns a snapshot of the room's current membership/state.
func (h Handle[GC, GS, CM, SM]) GetInfo(ctx context.Context) (Info, error) {
	reply := make(chan Info, 1)
	select {
	case h.inbox <- cmdGetInfo{reply: reply}:
	case <-ctx.Done():
		return Info{}, errUnavailable(h.roomID)
	}
	select {
	case info := <-reply:
		return info, nil
	case <-ctx.Done():
		return Info{}, errUnavailable(h.roomID)
	}
}

// Shutdown requests the room actor stop. Best-effort: if the actor is
// already gone, this is a no-op.
func (h Handle[GC, GS, CM, SM]) Shutdown(ctx context.Context) {
	select {
	case h.inbox <- cmdShutdown{}:
	case <-ctx.Done():
	case <-time.After(time.Second):
	}
}
