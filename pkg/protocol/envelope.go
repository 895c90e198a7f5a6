package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
)

// Content types and headers used by action requests and responses.
const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"

	HeaderAccept      = "Accept"
	HeaderContentType = "Content-Type"
)

// Errors maps a field name to its validation message(s).
// Values are whatever the server sent: a string, a list of strings, or a
// nested object.
type Errors map[string]any

// Clone returns a shallow copy of the map. A nil map clones to nil.
func (e Errors) Clone() Errors {
	if e == nil {
		return nil
	}
	return maps.Clone(e)
}

// Messages returns the messages recorded for field as strings.
func (e Errors) Messages(field string) []string {
	switch v := e[field].(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return []string{fmt.Sprint(v)}
	}
}

// Envelope is the JSON body returned by an action endpoint.
type Envelope struct {
	Result   map[string]any `json:"result,omitempty"`
	Errors   Errors         `json:"errors,omitempty"`
	Location string         `json:"location,omitempty"`
}

// HasErrors reports whether the envelope carries validation errors.
func (e *Envelope) HasErrors() bool {
	return e != nil && len(e.Errors) > 0
}

// ErrEnvelopeTooLarge is returned when a body exceeds MaxEnvelopeSize.
var ErrEnvelopeTooLarge = errors.New("envelope exceeds maximum size")

// DecodeEnvelope reads one envelope from r. An empty body decodes to an
// empty envelope.
func DecodeEnvelope(r io.Reader) (*Envelope, error) {
	data, err := readLimited(r, MaxEnvelopeSize, ErrEnvelopeTooLarge)
	if err != nil {
		return nil, err
	}
	env := &Envelope{}
	if len(bytes.TrimSpace(data)) == 0 {
		return env, nil
	}
	if err := json.Unmarshal(data, env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

// EncodeEnvelope writes env as JSON. A nil envelope is written as "{}".
func EncodeEnvelope(w io.Writer, env *Envelope) error {
	if env == nil {
		env = &Envelope{}
	}
	return json.NewEncoder(w).Encode(env)
}

func readLimited(r io.Reader, limit int64, tooLarge error) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, tooLarge
	}
	return data, nil
}
