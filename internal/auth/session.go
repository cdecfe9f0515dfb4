package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/kozaktomas/face-auth/internal/config"
)

// State is the protocol state of a session.
type State int32

const (
	StateIdle      State = iota // awaiting a request
	StateMatching               // a probe is being matched
	StateResponded              // the result was written; next is Idle
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMatching:
		return "matching"
	case StateResponded:
		return "responded"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Conn is a message-oriented connection to one client.
// ReadEnvelope returns io.EOF once the peer has closed the connection cleanly.
type Conn interface {
	ReadEnvelope() (Envelope, error)
	WriteEnvelope(env Envelope) error
}

// Authenticator answers one probe. *Service implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, probe []float32) AuthResult
}

// Session runs the authentication protocol for one connection.
type Session struct {
	id      string
	conn    Conn
	auth    Authenticator
	timeout time.Duration
	limiter *rate.Limiter
	logger  *slog.Logger

	state   atomic.Int32
	handled atomic.Int64
}

// NewSession creates a session for conn.
func NewSession(conn Conn, a Authenticator, cfg *config.AuthConfig, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		id:      uuid.NewString(),
		conn:    conn,
		auth:    a,
		timeout: cfg.Timeout,
	}
	if cfg.RateLimit > 0 {
		burst := max(cfg.RateBurst, 1)
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	s.logger = logger.With("session", s.id)
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// State returns the current protocol state.
func (s *Session) State() State { return State(s.state.Load()) }

// Handled returns the number of authenticate requests answered so far.
func (s *Session) Handled() int64 { return s.handled.Load() }

func (s *Session) setState(st State) { s.state.Store(int32(st)) }

// Serve reads events until the connection closes or ctx is done.
// Requests are handled strictly one after another; the next frame is not read
// until the previous result has been written.
func (s *Session) Serve(ctx context.Context) error {
	s.logger.Debug("session started")
	defer s.logger.Debug("session ended", "handled", s.Handled())

	for {
		env, err := s.conn.ReadEnvelope()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading event: %w", err)
		}

		switch env.Event {
		case EventAuthenticate:
			if err := s.handleAuthenticate(ctx, env); err != nil {
				return err
			}
		default:
			s.logger.Debug("ignoring event", "event", env.Event)
		}
	}
}

func (s *Session) handleAuthenticate(ctx context.Context, env Envelope) error {
	s.setState(StateMatching)
	defer s.setState(StateIdle)

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			// Only fails once the connection is gone.
			return nil
		}
	}

	result := AuthResult{}
	req, err := DecodeAuthenticate(env.Data)
	if err != nil {
		s.logger.Warn("malformed authenticate event", "error", err)
	} else {
		// The match outlives a client disconnect; its result is then dropped.
		matchCtx, cancel := s.matchContext(ctx)
		result = s.auth.Authenticate(matchCtx, req.FaceEmbedding)
		cancel()
	}

	if ctx.Err() != nil {
		s.logger.Debug("connection closed during match, discarding result")
		return nil
	}

	if err := s.conn.WriteEnvelope(ResultEnvelope(result)); err != nil {
		return fmt.Errorf("writing %s: %w", EventAuthResult, err)
	}
	s.handled.Add(1)
	s.setState(StateResponded)
	return nil
}

// matchContext detaches from ctx's cancellation and applies the match timeout.
func (s *Session) matchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if s.timeout <= 0 {
		return context.WithCancel(detached)
	}
	return context.WithTimeout(detached, s.timeout)
}
