// Package hub fans websocket messages out to connected dashboard clients.
package hub

// MessageType selects the websocket frame type.
type MessageType int

const (
	// JSONMessage is sent as a text frame.
	JSONMessage MessageType = iota
	// BinaryMessage is sent as a binary frame (JPEG canvas snapshots).
	BinaryMessage
)

// Message is one outbound websocket frame.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps encoded JSON.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage wraps raw bytes.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}
