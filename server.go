// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reqresp

import (
	"fmt"

	"go.uber.org/zap"
)

// ServerBuilder creates the server of a service.
type ServerBuilder[Req, Resp any] struct {
	svc     *Service[Req, Resp]
	logger  *zap.Logger
	metrics *Metrics
}

// ServerBuilder returns a builder for the server of the service.
func (s *Service[Req, Resp]) ServerBuilder() *ServerBuilder[Req, Resp] {
	return &ServerBuilder[Req, Resp]{svc: s, logger: zap.NewNop()}
}

// Logger sets the logger of the server.
func (b *ServerBuilder[Req, Resp]) Logger(l *zap.Logger) *ServerBuilder[Req, Resp] {
	if l != nil {
		b.logger = l
	}
	return b
}

// Metrics sets the metrics the server records to.
func (b *ServerBuilder[Req, Resp]) Metrics(m *Metrics) *ServerBuilder[Req, Resp] {
	b.metrics = m
	return b
}

// Create creates the server.
// Returns ErrExceedsMaxServers if the service already has one.
func (b *ServerBuilder[Req, Resp]) Create() (*Server[Req, Resp], error) {
	svc := b.svc
	cfg := svc.state.static
	if !svc.reserve(&svc.state.dynamic.servers, cfg.MaxServers) {
		return nil, fmt.Errorf("%w: %s allows %d", ErrExceedsMaxServers, svc.state.name, cfg.MaxServers)
	}
	s := &Server[Req, Resp]{
		svc:     svc,
		name:    svc.state.name.String(),
		serial:  nextSerial(),
		gen:     ^uint32(0),
		logger:  b.logger,
		metrics: b.metrics,
	}
	s.logger.Debug("server created",
		zap.String("service", s.name),
		zap.Uint32("serial", s.serial))
	return s, nil
}

// Server is the responding port of a service. A server is owned by a single
// goroutine; it is the sole consumer of every client's request lane.
type Server[Req, Resp any] struct {
	svc     *Service[Req, Resp]
	name    string
	serial  Serial
	conns   []*conn[Req, Resp]
	gen     uint32
	next    int
	closed  bool
	logger  *zap.Logger
	metrics *Metrics
}

// Serial returns the serial of the server port.
func (s *Server[Req, Resp]) Serial() Serial {
	return s.serial
}

// Service returns the service the server belongs to.
func (s *Server[Req, Resp]) Service() *Service[Req, Resp] {
	return s.svc
}

// Receive takes at most one pending request, visiting clients round-robin.
// Returns nil without error when no request is pending.
func (s *Server[Req, Resp]) Receive() (*ActiveRequest[Req, Resp], error) {
	if s.closed {
		return nil, ErrConnectionClosed
	}
	if g := s.svc.seg.gen.Load(); g != s.gen {
		s.conns, s.gen = s.svc.seg.snapshot(s.conns)
		if s.next >= len(s.conns) {
			s.next = 0
		}
	}
	n := len(s.conns)
	for i := range n {
		k := (s.next + i) % n
		c := s.conns[k]
		slot, err := c.requestQ.Dequeue()
		if err != nil {
			continue
		}
		s.next = (k + 1) % n
		s.metrics.requestReceived(s.name)
		return &ActiveRequest[Req, Resp]{s: s, c: c, slot: slot}, nil
	}
	return nil, nil
}

// Close releases the server port.
func (s *Server[Req, Resp]) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.conns = nil
	unreserve(&s.svc.state.dynamic.servers)
	s.logger.Debug("server closed", zap.String("service", s.name), zap.Uint32("serial", s.serial))
	return nil
}

// ActiveRequest is a received request. Its payload lives in the client's
// request slot and is read-only by contract. It grants exactly one
// response loan.
type ActiveRequest[Req, Resp any] struct {
	s      *Server[Req, Resp]
	c      *conn[Req, Resp]
	slot   uint32
	loaned bool
	done   bool
}

// Origin returns the serial of the client connection that sent the request.
func (a *ActiveRequest[Req, Resp]) Origin() Serial {
	return a.c.serial
}

// Payload returns the request payload.
func (a *ActiveRequest[Req, Resp]) Payload() *Req {
	if a.done {
		panic("reqresp: request payload accessed after completion")
	}
	return &a.c.requests[a.slot]
}

// LoanUninit loans a response slot bound to this request from the client's
// response pool. Returns ErrLoanFailed when the pool is exhausted and
// ErrLoanConsumed on a second loan.
func (a *ActiveRequest[Req, Resp]) LoanUninit() (*ResponseUninit[Req, Resp], error) {
	if a.done || a.loaned {
		return nil, ErrLoanConsumed
	}
	c := a.c
	if c.isClosed() {
		return nil, fmt.Errorf("%w: client %d", ErrConnectionClosed, c.serial)
	}
	var slot uint32
	if n := len(c.stash); n > 0 {
		slot = c.stash[n-1]
		c.stash = c.stash[:n-1]
	} else {
		var err error
		slot, err = c.releaseQ.Dequeue()
		if err != nil {
			a.s.metrics.loanFailed(a.s.name)
			return nil, fmt.Errorf("%w: response pool of client %d exhausted", ErrLoanFailed, c.serial)
		}
	}
	a.loaned = true
	return &ResponseUninit[Req, Resp]{req: a, slot: slot}, nil
}

// Drop completes the request without a response. The client observes
// ErrNoResponse. Dropping an answered request is a no-op.
func (a *ActiveRequest[Req, Resp]) Drop() {
	if a.done {
		return
	}
	a.done = true
	if a.c.isClosed() {
		return
	}
	// One envelope per request slot, so the lane has room.
	env := envelope{request: a.slot, response: noSlot}
	_ = a.c.responseQ.Enqueue(&env)
}

// ResponseUninit is a loaned response slot whose payload is not yet written.
type ResponseUninit[Req, Resp any] struct {
	req  *ActiveRequest[Req, Resp]
	slot uint32
	sent bool
}

// ResponseMut is a loaned response slot with an initialized payload.
type ResponseMut[Req, Resp any] ResponseUninit[Req, Resp]

// Payload returns the slot memory for in-place construction.
func (r *ResponseUninit[Req, Resp]) Payload() *Resp {
	return &r.req.c.responses[r.slot]
}

// WritePayload stores v in the slot.
func (r *ResponseUninit[Req, Resp]) WritePayload(v Resp) *ResponseMut[Req, Resp] {
	r.req.c.responses[r.slot] = v
	return (*ResponseMut[Req, Resp])(r)
}

// AssumeInit marks a payload written through Payload as initialized.
func (r *ResponseUninit[Req, Resp]) AssumeInit() *ResponseMut[Req, Resp] {
	return (*ResponseMut[Req, Resp])(r)
}

// Drop returns the slot unsent.
func (r *ResponseUninit[Req, Resp]) Drop() {
	(*ResponseMut[Req, Resp])(r).Drop()
}

// Payload returns the response payload. It panics after Send.
func (r *ResponseMut[Req, Resp]) Payload() *Resp {
	if r.sent {
		panic("reqresp: response payload accessed after send")
	}
	return &r.req.c.responses[r.slot]
}

// Send delivers the response to the client that sent the request.
func (r *ResponseMut[Req, Resp]) Send() error {
	return SendResponse(r)
}

// Drop returns the slot unsent.
func (r *ResponseMut[Req, Resp]) Drop() {
	if r.sent {
		return
	}
	r.sent = true
	r.stash()
}

func (r *ResponseMut[Req, Resp]) stash() {
	c := r.req.c
	c.stash = append(c.stash, r.slot)
}

// SendResponse delivers r to the client that sent its request. The loan is
// consumed whether or not delivery succeeds. Returns ErrSendFailed if the
// client is gone or its response lane is full.
func SendResponse[Req, Resp any](r *ResponseMut[Req, Resp]) error {
	if r.sent {
		return ErrLoanConsumed
	}
	r.sent = true
	a := r.req
	s := a.s
	if a.done {
		r.stash()
		return fmt.Errorf("%w: request already completed", ErrSendFailed)
	}
	c := a.c
	if c.isClosed() {
		r.stash()
		s.metrics.sendFailed(s.name)
		return fmt.Errorf("%w: %w", ErrSendFailed, ErrConnectionClosed)
	}
	env := envelope{request: a.slot, response: r.slot}
	if err := c.responseQ.Enqueue(&env); err != nil {
		r.stash()
		s.metrics.sendFailed(s.name)
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	a.done = true
	s.metrics.responseSent(s.name)
	return nil
}
