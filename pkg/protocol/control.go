package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ControlType identifies the type of control message.
type ControlType string

const (
	ControlInvalidate ControlType = "invalidate" // Page data at Path changed
	ControlPing       ControlType = "ping"       // Keepalive
)

// Control is a server to client message on a live connection.
type Control struct {
	Type ControlType `json:"type"`
	Path string      `json:"path,omitempty"`
}

// ErrControlTooLarge is returned when a control frame exceeds MaxControlSize.
var ErrControlTooLarge = errors.New("control message exceeds maximum size")

// Invalidate returns an invalidate message for path.
func Invalidate(path string) Control {
	return Control{Type: ControlInvalidate, Path: path}
}

// EncodeControl marshals a control message.
func EncodeControl(c Control) ([]byte, error) {
	return json.Marshal(c)
}

// DecodeControl parses a control message.
func DecodeControl(data []byte) (Control, error) {
	var c Control
	if len(data) > MaxControlSize {
		return c, ErrControlTooLarge
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("decode control: %w", err)
	}
	switch c.Type {
	case ControlInvalidate, ControlPing:
		return c, nil
	default:
		return c, fmt.Errorf("decode control: unknown type %q", c.Type)
	}
}
