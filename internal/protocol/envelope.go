package protocol

import (
	"encoding/json"
	"fmt"
)

// Payload is the envelope's body: either framework plumbing (System) or an
// opaque game message (Game) the framework never inspects.
type Payload struct {
	isGame bool
	system SystemMessage
	game   []byte
}

// PayloadSystem wraps a SystemMessage as an envelope payload.
func PayloadSystem(msg SystemMessage) Payload {
	return Payload{isGame: false, system: msg}
}

// PayloadGame wraps opaque application bytes as an envelope payload.
func PayloadGame(data []byte) Payload {
	return Payload{isGame: true, game: data}
}

// AsSystem returns the wrapped SystemMessage, if this payload carries one.
func (p Payload) AsSystem() (SystemMessage, bool) {
	if p.isGame {
		return nil, false
	}
	return p.system, p.system != nil
}

// AsGame returns the wrapped opaque bytes, if this payload carries game data.
func (p Payload) AsGame() ([]byte, bool) {
	if !p.isGame {
		return nil, false
	}
	return p.game, true
}

// IsGame reports whether this payload carries opaque game bytes.
func (p Payload) IsGame() bool { return p.isGame }

// payloadWire is the adjacently-tagged wire shape: {"type":"System"|"Game","data":...}.
type payloadWire struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (p Payload) MarshalJSON() ([]byte, error) {
	if p.isGame {
		data, err := json.Marshal(ByteArray(p.game))
		if err != nil {
			return nil, err
		}
		return json.Marshal(payloadWire{Type: "Game", Data: data})
	}
	data, err := marshalSystemMessage(p.system)
	if err != nil {
		return nil, err
	}
	return json.Marshal(payloadWire{Type: "System", Data: data})
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	var wire payloadWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	switch wire.Type {
	case "System":
		msg, err := unmarshalSystemMessage(wire.Data)
		if err != nil {
			return err
		}
		*p = Payload{isGame: false, system: msg}
		return nil
	case "Game":
		var raw ByteArray
		if err := json.Unmarshal(wire.Data, &raw); err != nil {
			return err
		}
		*p = Payload{isGame: true, game: []byte(raw)}
		return nil
	default:
		return fmt.Errorf("protocol: unknown payload type %q", wire.Type)
	}
}

// marshalSystemMessage re-marshals msg with its "type" discriminator field
// injected, implementing the wire's internally-tagged union.
func marshalSystemMessage(msg SystemMessage) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	typeTag, err := json.Marshal(msg.systemMessageType())
	if err != nil {
		return nil, err
	}
	fields["type"] = typeTag
	return json.Marshal(fields)
}

func unmarshalSystemMessage(data []byte) (SystemMessage, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}
	var msg SystemMessage
	switch tag.Type {
	case "Handshake":
		msg = &Handshake{}
	case "HandshakeAck":
		msg = &HandshakeAck{}
	case "Disconnect":
		msg = &Disconnect{}
	case "Heartbeat":
		msg = &Heartbeat{}
	case "HeartbeatAck":
		msg = &HeartbeatAck{}
	case "JoinRoom":
		msg = &JoinRoom{}
	case "JoinOrCreate":
		msg = &JoinOrCreate{}
	case "LeaveRoom":
		msg = &LeaveRoom{}
	case "ListRooms":
		msg = &ListRooms{}
	case "RoomList":
		msg = &RoomList{}
	case "RoomState":
		msg = &RoomState{}
	case "RoomJoined":
		msg = &RoomJoined{}
	case "Error":
		msg = &Error{}
	default:
		return nil, fmt.Errorf("protocol: unknown system message type %q", tag.Type)
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, err
	}
	return dereference(msg), nil
}

// dereference unwraps the pointer receivers decode needs back into the
// value types the rest of the framework constructs and compares by value.
func dereference(msg SystemMessage) SystemMessage {
	switch m := msg.(type) {
	case *Handshake:
		return *m
	case *HandshakeAck:
		return *m
	case *Disconnect:
		return *m
	case *Heartbeat:
		return *m
	case *HeartbeatAck:
		return *m
	case *JoinRoom:
		return *m
	case *JoinOrCreate:
		return *m
	case *LeaveRoom:
		return *m
	case *ListRooms:
		return *m
	case *RoomList:
		return *m
	case *RoomState:
		return *m
	case *RoomJoined:
		return *m
	case *Error:
		return *m
	default:
		return msg
	}
}

// Envelope is the top-level wire frame. Channel defaults to ReliableOrdered
// when absent on decode.
type Envelope struct {
	Seq         uint64  `json:"seq"`
	TimestampMs uint64  `json:"timestamp"`
	Channel     Channel `json:"channel,omitempty"`
	Payload     Payload `json:"payload"`
}

type envelopeWire Envelope

func (e Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelopeWire(e))
}

func (e *Envelope) UnmarshalJSON(data []byte) error {
	var wire envelopeWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Channel == "" {
		wire.Channel = ReliableOrdered
	}
	*e = Envelope(wire)
	return nil
}
