package ws

import "encoding/json"

const (
	EventRegister       = "register"
	EventRegistered     = "registered"
	EventReceiveMessage = "receive_message"
	EventUserOnline     = "user_online"
	EventUserOffline    = "user_offline"
	EventError          = "error"
)

// Envelope is the wire format for inbound frames: {"event": "...", "data": ...}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func encode(event string, data any) ([]byte, error) {
	return json.Marshal(outbound{Event: event, Data: data})
}
