package protocol

import "encoding/json"

// ByteArray marshals as a JSON array of numbers rather than Go's default
// base64 string, matching the wire shape JoinOrCreate.options,
// RoomState.data, and Payload's Game variant all expect.
type ByteArray []byte

func (b ByteArray) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("[]"), nil
	}
	nums := make([]uint16, len(b))
	for i, v := range b {
		nums[i] = uint16(v)
	}
	return json.Marshal(nums)
}

func (b *ByteArray) UnmarshalJSON(data []byte) error {
	var nums []uint16
	if err := json.Unmarshal(data, &nums); err != nil {
		return err
	}
	out := make([]byte, len(nums))
	for i, n := range nums {
		out[i] = byte(n)
	}
	*b = out
	return nil
}

// SystemMessage is the framework's own control-plane vocabulary. Every
// concrete type below is one variant of the wire's internally-tagged
// ("type") union; see envelope.go for the marshal/unmarshal logic that
// implements the tagging.
type SystemMessage interface {
	systemMessageType() string
}

// Handshake is the mandatory first frame a client must send.
type Handshake struct {
	Version uint32  `json:"version"`
	Token   *string `json:"token,omitempty"`
}

func (Handshake) systemMessageType() string { return "Handshake" }

// HandshakeAck is the server's reply to a successful Handshake.
type HandshakeAck struct {
	PlayerID   PlayerID `json:"player_id"`
	ServerTime uint64   `json:"server_time"`
}

func (HandshakeAck) systemMessageType() string { return "HandshakeAck" }

// Disconnect is sent by either side to announce an intentional close.
type Disconnect struct {
	Reason string `json:"reason"`
}

func (Disconnect) systemMessageType() string { return "Disconnect" }

// Heartbeat is a client-initiated keepalive/RTT probe.
type Heartbeat struct {
	ClientTime uint64 `json:"client_time"`
}

func (Heartbeat) systemMessageType() string { return "Heartbeat" }

// HeartbeatAck echoes the client's clock alongside the server's.
type HeartbeatAck struct {
	ClientTime uint64 `json:"client_time"`
	ServerTime uint64 `json:"server_time"`
}

func (HeartbeatAck) systemMessageType() string { return "HeartbeatAck" }

// JoinRoom requests membership in an already-known room.
type JoinRoom struct {
	RoomID RoomID `json:"room_id"`
}

func (JoinRoom) systemMessageType() string { return "JoinRoom" }

// JoinOrCreate requests membership in any joinable room, or a fresh one.
// name/options are reserved for a future multi-game router.
type JoinOrCreate struct {
	Name    string `json:"name"`
	Options ByteArray `json:"options"`
}

func (JoinOrCreate) systemMessageType() string { return "JoinOrCreate" }

// LeaveRoom asks the server to remove the sender from its current room.
type LeaveRoom struct{}

func (LeaveRoom) systemMessageType() string { return "LeaveRoom" }

// ListRooms requests a RoomList of currently joinable rooms.
type ListRooms struct{}

func (ListRooms) systemMessageType() string { return "ListRooms" }

// RoomList is the reply to ListRooms.
type RoomList struct {
	Rooms []RoomListEntry `json:"rooms"`
}

func (RoomList) systemMessageType() string { return "RoomList" }

// RoomState carries an opaque game-state snapshot, encoded by the room's
// game logic and passed through the framework untouched.
type RoomState struct {
	Data ByteArray `json:"data"`
}

func (RoomState) systemMessageType() string { return "RoomState" }

// RoomJoined confirms a successful JoinRoom/JoinOrCreate. SessionID carries
// the player's live reconnection token.
type RoomJoined struct {
	RoomID    RoomID `json:"room_id"`
	SessionID string `json:"session_id"`
}

func (RoomJoined) systemMessageType() string { return "RoomJoined" }

// Error reports an HTTP-style failure code with a human-readable message.
type Error struct {
	Code    uint16 `json:"code"`
	Message string `json:"message"`
}

func (Error) systemMessageType() string { return "Error" }
