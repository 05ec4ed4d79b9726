// Package wire defines the typed frames carried on the live connection.
//
// Every frame is a JSON envelope {"type": ..., "payload": ...}; Decode
// resolves the envelope into one of the payload structs below. Unknown
// or malformed frames fail with ErrMalformedFrame so the dispatch loop
// can drop them with a diagnostic instead of dying.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Frame types accepted from the server.
const (
	TypeNewMessage     = "new_message"
	TypeDeliveryReport = "delivery_report"
	TypeDeviceStatus   = "device_status"
	TypePong           = "pong"
)

// ErrMalformedFrame marks frames that could not be decoded.
var ErrMalformedFrame = errors.New("malformed frame")

// Envelope is the raw wire form of a frame.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewMessage announces a message stored on the server, inbound or a
// server-side echo of an outbound part.
type NewMessage struct {
	MessageID   string `json:"message_id"`
	TempID      string `json:"temp_id,omitempty"`
	PhoneNumber string `json:"phone_number"`
	Body        string `json:"message_content"`
	Outgoing    bool   `json:"is_outgoing"`
	PartIndex   int    `json:"part_index"`
	PartCount   int    `json:"part_count"`
	CreatedAt   int64  `json:"created_at"`
}

// DeliveryReport carries delivery confirmation for an outbound message.
type DeliveryReport struct {
	MessageID   string `json:"message_id"`
	Status      string `json:"status"` // sent, delivered, failed
	DeliveredAt int64  `json:"delivered_at,omitempty"`
}

// DeviceStatus reports the backing device (modem) state.
type DeviceStatus struct {
	State          string `json:"state"` // online, offline, startup, shutting_down
	SignalStrength int    `json:"signal_strength"`
	BatteryLevel   int    `json:"battery_level"`
}

// Pong is the reply to a client ping.
type Pong struct {
	RequestID string `json:"request_id"`
}

// Ping is the client-issued heartbeat probe.
type Ping struct {
	RequestID string `json:"request_id"`
}

// Frame is a decoded live-connection frame. Exactly one payload field
// is non-nil, matching Type.
type Frame struct {
	Type           string
	NewMessage     *NewMessage
	DeliveryReport *DeliveryReport
	DeviceStatus   *DeviceStatus
	Pong           *Pong
}

// Decode parses a raw frame into its typed form.
func Decode(data []byte) (*Frame, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	f := &Frame{Type: env.Type}
	var err error
	switch env.Type {
	case TypeNewMessage:
		var p NewMessage
		err = json.Unmarshal(env.Payload, &p)
		f.NewMessage = &p
	case TypeDeliveryReport:
		var p DeliveryReport
		err = json.Unmarshal(env.Payload, &p)
		f.DeliveryReport = &p
	case TypeDeviceStatus:
		var p DeviceStatus
		err = json.Unmarshal(env.Payload, &p)
		f.DeviceStatus = &p
	case TypePong:
		var p Pong
		err = json.Unmarshal(env.Payload, &p)
		f.Pong = &p
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedFrame, env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s payload: %v", ErrMalformedFrame, env.Type, err)
	}
	return f, nil
}

// EncodePing serializes a heartbeat ping into its envelope form.
func EncodePing(requestID string) ([]byte, error) {
	payload, err := json.Marshal(Ping{RequestID: requestID})
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: "ping", Payload: payload})
}
