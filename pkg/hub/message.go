// Package hub fans messages out to websocket clients: annotated frames to
// the camera view and state changes to the dashboard.
package hub

import "encoding/json"

// MessageType indicates the websocket message format
type MessageType int

const (
	// JSONMessage is a JSON-encoded message
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data (JPEG frames)
	BinaryMessage
)

func (t MessageType) String() string {
	if t == BinaryMessage {
		return "binary"
	}
	return "json"
}

// Message represents a message to be broadcast to clients
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage creates a JSON message from pre-encoded bytes
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage creates a binary message
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

// EncodeJSON marshals v into a JSON message.
func EncodeJSON(v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return NewJSONMessage(data), nil
}
