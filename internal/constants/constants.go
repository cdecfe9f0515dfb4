// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Websocket transport constants
const (
	// WSReadBufferSize is the read buffer size for upgraded connections
	WSReadBufferSize = 4096

	// WSWriteBufferSize is the write buffer size for upgraded connections
	WSWriteBufferSize = 4096

	// WSWriteWait is the time allowed to write a single frame, in seconds
	WSWriteWait = 10

	// WSPongWaitFactor multiplies the ping interval to get the pong deadline
	WSPongWaitFactor = 2
)

// HTTP constants
const (
	// MaxRegistrationBodySize is the maximum accepted POST /register body (1MB)
	MaxRegistrationBodySize = 1 << 20

	// RequestTimeoutSeconds bounds plain HTTP handlers
	RequestTimeoutSeconds = 30

	// ShutdownTimeoutSeconds is the grace period for in-flight requests on shutdown
	ShutdownTimeoutSeconds = 30
)

// Enrollment constants
const (
	// DefaultConcurrency is the default number of parallel enrollment workers
	DefaultConcurrency = 5
)
