// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reqresp

import (
	"errors"
	"fmt"
	"time"

	"code.hybscloud.com/atomix"
	"go.uber.org/zap"
)

// DefaultRefreshInterval is the default timeout of each session wait.
const DefaultRefreshInterval = 100 * time.Millisecond

// State is the state of a server session.
type State uint32

const (
	// AwaitingClients waits until at least one client is connected.
	AwaitingClients State = iota
	// Polling receives and answers requests until a final one.
	Polling
	// Completed is terminal: the final request was validated and answered.
	Completed
	// Failed is terminal: the session stopped with a cause.
	Failed
)

func (s State) String() string {
	switch s {
	case AwaitingClients:
		return "AwaitingClients"
	case Polling:
		return "Polling"
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	}
	return fmt.Sprintf("State(%d)", uint32(s))
}

// SessionError reports a failed session. State is the state the session
// was in when it failed; Cause is one of the session failure causes,
// possibly wrapped.
type SessionError struct {
	State State
	Cause error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("reqresp: session failed in %s: %v", e.State, e.Cause)
}

func (e *SessionError) Unwrap() error {
	return e.Cause
}

// Handler validates requests and builds their responses.
// Neither method may retain the pointers it is given.
type Handler[Req, Resp any] interface {
	// Validate checks a received request payload.
	Validate(req *Req) error
	// Respond fills resp, which starts out zero, from a valid request.
	Respond(req *Req, resp *Resp) error
}

// Finisher is implemented by handlers that answer more than one request
// per session. Final reports whether answering req ends the session;
// without it the first answered request does.
type Finisher[Req any] interface {
	Final(req *Req) bool
}

// HandlerFuncs adapts a pair of functions to Handler.
// A nil ValidateFunc accepts every request.
type HandlerFuncs[Req, Resp any] struct {
	ValidateFunc func(req *Req) error
	RespondFunc  func(req *Req, resp *Resp) error
}

func (h HandlerFuncs[Req, Resp]) Validate(req *Req) error {
	if h.ValidateFunc == nil {
		return nil
	}
	return h.ValidateFunc(req)
}

func (h HandlerFuncs[Req, Resp]) Respond(req *Req, resp *Resp) error {
	return h.RespondFunc(req, resp)
}

// SessionOption configures a Session.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	interval time.Duration
}

// WithRefreshInterval sets the timeout of each wait.
func WithRefreshInterval(d time.Duration) SessionOption {
	return func(c *sessionConfig) {
		if d > 0 {
			c.interval = d
		}
	}
}

// Session is a single-use server loop: it waits for a client, answers
// requests until one is final and stops. Every failure is terminal; there
// are no retries.
type Session[Req, Resp any] struct {
	waiter   Waiter
	svc      *Service[Req, Resp]
	server   *Server[Req, Resp]
	handler  Handler[Req, Resp]
	interval time.Duration
	state    atomix.Uint32
	err      error
}

// NewSession creates a session serving server with handler. Its only
// suspension point is w.Wait.
func NewSession[Req, Resp any](w Waiter, svc *Service[Req, Resp], server *Server[Req, Resp], handler Handler[Req, Resp], opts ...SessionOption) *Session[Req, Resp] {
	cfg := sessionConfig{interval: DefaultRefreshInterval}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Session[Req, Resp]{
		waiter:   w,
		svc:      svc,
		server:   server,
		handler:  handler,
		interval: cfg.interval,
	}
}

// State returns the current state. Safe to call from any goroutine.
func (s *Session[Req, Resp]) State() State {
	return State(s.state.Load())
}

// Run drives the session to a terminal state. It returns nil on Completed
// and a *SessionError on Failed. Calling Run on a finished session returns
// the same outcome again.
func (s *Session[Req, Resp]) Run() error {
	if st := s.State(); st == Completed || st == Failed {
		return s.err
	}
	log := s.server.logger.With(zap.String("service", s.server.name), zap.Uint32("server", s.server.serial))
	clients := s.svc.DynamicConfig()

	log.Debug("awaiting clients", zap.Duration("refresh", s.interval))
	for clients.NumberOfClients() == 0 {
		if !s.waiter.Wait(s.interval) {
			return s.fail(log, ErrNodeShutdown)
		}
	}
	s.transition(log, Polling)

	for s.waiter.Wait(s.interval) {
		req, err := s.server.Receive()
		if err != nil {
			return s.fail(log, fmt.Errorf("%w: %w", ErrTransport, err))
		}
		if req == nil {
			if clients.NumberOfClients() == 0 {
				return s.fail(log, ErrClientDisconnected)
			}
			continue
		}
		final := true
		if f, ok := s.handler.(Finisher[Req]); ok {
			final = f.Final(req.Payload())
		}
		if err := serve(req, s.handler); err != nil {
			return s.fail(log, err)
		}
		log.Debug("request answered", zap.Uint32("client", req.Origin()), zap.Bool("final", final))
		if !final {
			continue
		}
		s.transition(log, Completed)
		s.server.metrics.sessionFinished(s.server.name, Completed, nil)
		return nil
	}
	return s.fail(log, ErrNodeShutdown)
}

func (s *Session[Req, Resp]) transition(log *zap.Logger, to State) {
	from := s.State()
	s.state.Store(uint32(to))
	log.Debug("session transition", zap.Stringer("from", from), zap.Stringer("to", to))
}

func (s *Session[Req, Resp]) fail(log *zap.Logger, cause error) error {
	from := s.State()
	s.state.Store(uint32(Failed))
	s.err = &SessionError{State: from, Cause: cause}
	log.Warn("session failed", zap.Stringer("state", from), zap.Error(cause))
	s.server.metrics.sessionFinished(s.server.name, Failed, cause)
	return s.err
}

// serve validates req, builds its response, loans a response slot and
// sends. On any failure the request is dropped and the cause returned.
func serve[Req, Resp any](req *ActiveRequest[Req, Resp], h Handler[Req, Resp]) error {
	payload := req.Payload()
	if err := h.Validate(payload); err != nil {
		req.Drop()
		return fmt.Errorf("%w: %w", ErrPayloadValidation, err)
	}
	var resp Resp
	if err := h.Respond(payload, &resp); err != nil {
		req.Drop()
		return fmt.Errorf("%w: %w", ErrPayloadValidation, err)
	}
	loan, err := req.LoanUninit()
	if err != nil {
		req.Drop()
		switch {
		case errors.Is(err, ErrConnectionClosed):
			err = fmt.Errorf("%w: %w", ErrSendFailed, err)
		case !errors.Is(err, ErrLoanFailed):
			err = fmt.Errorf("%w: %w", ErrLoanFailed, err)
		}
		return err
	}
	if err := loan.WritePayload(resp).Send(); err != nil {
		req.Drop()
		return err
	}
	return nil
}
