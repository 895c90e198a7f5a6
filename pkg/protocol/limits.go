package protocol

// Size limits for decoded messages.
const (
	// MaxEnvelopeSize limits an action response body.
	MaxEnvelopeSize = 1 << 20 // 1MB

	// MaxControlSize limits a live control frame.
	MaxControlSize = 4 << 10 // 4KB

	// MaxFormSize limits a submitted form body on the server.
	MaxFormSize = 10 << 20 // 10MB
)
