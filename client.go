// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reqresp

import (
	"fmt"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
)

// slotState tracks a request slot on the client side.
type slotState uint8

const (
	slotIdle slotState = iota
	slotLoaned
	slotPending
	slotAnswered
	slotAbandoned
)

// ClientBuilder creates clients of a service.
type ClientBuilder[Req, Resp any] struct {
	svc *Service[Req, Resp]
}

// ClientBuilder returns a builder for clients of the service.
func (s *Service[Req, Resp]) ClientBuilder() *ClientBuilder[Req, Resp] {
	return &ClientBuilder[Req, Resp]{svc: s}
}

// Create connects a new client.
// Returns ErrExceedsMaxClients if the service is at its client limit.
func (b *ClientBuilder[Req, Resp]) Create() (*Client[Req, Resp], error) {
	svc := b.svc
	cfg := svc.state.static
	if !svc.reserve(&svc.state.dynamic.clients, cfg.MaxClients) {
		return nil, fmt.Errorf("%w: %s allows %d", ErrExceedsMaxClients, svc.state.name, cfg.MaxClients)
	}
	slots := cfg.MaxActiveRequests
	c := &Client[Req, Resp]{
		svc:    svc,
		conn:   newConn[Req, Resp](slots),
		free:   make([]uint32, slots),
		state:  make([]slotState, slots),
		answer: make([]uint32, slots),
	}
	for i := range c.free {
		c.free[i] = uint32(slots - 1 - i)
	}
	c.inflight.Init(ringCapacity(slots))
	c.ctx.port = c
	svc.seg.attach(c.conn)
	return c, nil
}

// Client is the requesting port of a service. A client is owned by a single
// goroutine; it is the producer of its connection's request lane.
type Client[Req, Resp any] struct {
	svc    *Service[Req, Resp]
	conn   *conn[Req, Resp]
	free   []uint32
	state  []slotState
	answer []uint32
	closed bool

	// inflight is the send order of requests issued through effects.
	inflight lfq.SPSC[uint32]
	head     uint32
	hasHead  bool
	ctx      clientContext
}

// Serial returns the serial of the client connection.
func (c *Client[Req, Resp]) Serial() Serial {
	return c.conn.serial
}

// LoanUninit loans a request slot from the connection's pool.
// Returns ErrLoanFailed if every slot is in flight.
func (c *Client[Req, Resp]) LoanUninit() (*RequestUninit[Req, Resp], error) {
	if c.closed {
		return nil, ErrConnectionClosed
	}
	c.pump()
	n := len(c.free)
	if n == 0 {
		return nil, fmt.Errorf("%w: %d requests in flight", ErrLoanFailed, len(c.state))
	}
	slot := c.free[n-1]
	c.free = c.free[:n-1]
	c.state[slot] = slotLoaned
	return &RequestUninit[Req, Resp]{c: c, slot: slot}, nil
}

// Close disconnects the client. Pending responses are discarded.
func (c *Client[Req, Resp]) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.conn.closed.Store(1)
	c.svc.seg.detach(c.conn)
	unreserve(&c.svc.state.dynamic.clients)
	return nil
}

// pump drains the response lane, settling abandoned slots on the way.
func (c *Client[Req, Resp]) pump() {
	for {
		env, err := c.conn.responseQ.Dequeue()
		if err != nil {
			return
		}
		if c.state[env.request] == slotAbandoned {
			c.releaseResponse(env.response)
			c.freeSlot(env.request)
			continue
		}
		c.state[env.request] = slotAnswered
		c.answer[env.request] = env.response
	}
}

func (c *Client[Req, Resp]) freeSlot(slot uint32) {
	c.state[slot] = slotIdle
	c.free = append(c.free, slot)
}

func (c *Client[Req, Resp]) releaseResponse(slot uint32) {
	if slot == noSlot {
		return
	}
	// releaseQ holds every response slot at most once, so it never fills.
	_ = c.conn.releaseQ.Enqueue(&slot)
}

// RequestUninit is a loaned request slot whose payload is not yet written.
type RequestUninit[Req, Resp any] struct {
	c    *Client[Req, Resp]
	slot uint32
	done bool
}

// RequestMut is a loaned request slot with an initialized payload.
type RequestMut[Req, Resp any] RequestUninit[Req, Resp]

// Payload returns the slot memory. The zero value is only a placeholder
// until written.
func (r *RequestUninit[Req, Resp]) Payload() *Req {
	return &r.c.conn.requests[r.slot]
}

// WritePayload stores v in the slot.
func (r *RequestUninit[Req, Resp]) WritePayload(v Req) *RequestMut[Req, Resp] {
	r.c.conn.requests[r.slot] = v
	return (*RequestMut[Req, Resp])(r)
}

// AssumeInit marks a payload written through Payload as initialized.
func (r *RequestUninit[Req, Resp]) AssumeInit() *RequestMut[Req, Resp] {
	return (*RequestMut[Req, Resp])(r)
}

// Drop returns the slot unsent.
func (r *RequestUninit[Req, Resp]) Drop() {
	(*RequestMut[Req, Resp])(r).Drop()
}

// Payload returns the request payload.
func (r *RequestMut[Req, Resp]) Payload() *Req {
	if r.done {
		panic("reqresp: request payload accessed after send")
	}
	return &r.c.conn.requests[r.slot]
}

// Send hands the request to the server.
func (r *RequestMut[Req, Resp]) Send() (*PendingResponse[Req, Resp], error) {
	c := r.c
	if r.done {
		return nil, ErrLoanConsumed
	}
	if c.closed {
		return nil, ErrConnectionClosed
	}
	slot := r.slot
	if err := c.conn.requestQ.Enqueue(&slot); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	r.done = true
	c.state[slot] = slotPending
	return &PendingResponse[Req, Resp]{c: c, slot: slot}, nil
}

// Drop returns the slot unsent.
func (r *RequestMut[Req, Resp]) Drop() {
	if r.done {
		return
	}
	r.done = true
	var zero Req
	r.c.conn.requests[r.slot] = zero
	r.c.freeSlot(r.slot)
}

// PendingResponse awaits the server's answer to one request.
type PendingResponse[Req, Resp any] struct {
	c    *Client[Req, Resp]
	slot uint32
	done bool
}

// Receive returns the response if it arrived, or nil while the request is
// still pending. Returns ErrNoResponse if the server dropped the request.
func (p *PendingResponse[Req, Resp]) Receive() (*Response[Req, Resp], error) {
	if p.done {
		return nil, ErrLoanConsumed
	}
	c := p.c
	c.pump()
	if c.state[p.slot] != slotAnswered {
		return nil, nil
	}
	p.done = true
	resp := c.answer[p.slot]
	c.freeSlot(p.slot)
	if resp == noSlot {
		return nil, ErrNoResponse
	}
	return &Response[Req, Resp]{c: c, slot: resp}, nil
}

// Drop abandons the request. A response arriving later is released.
func (p *PendingResponse[Req, Resp]) Drop() {
	if p.done {
		return
	}
	p.done = true
	c := p.c
	c.pump()
	if c.state[p.slot] == slotAnswered {
		c.releaseResponse(c.answer[p.slot])
		c.freeSlot(p.slot)
		return
	}
	c.state[p.slot] = slotAbandoned
}

// Response is a received response slot, read-only by contract.
type Response[Req, Resp any] struct {
	c       *Client[Req, Resp]
	slot    uint32
	dropped bool
}

// Payload returns the response payload.
func (r *Response[Req, Resp]) Payload() *Resp {
	if r.dropped {
		panic("reqresp: response payload accessed after drop")
	}
	return &r.c.conn.responses[r.slot]
}

// Drop returns the response slot to the server.
func (r *Response[Req, Resp]) Drop() {
	if r.dropped {
		return
	}
	r.dropped = true
	r.c.releaseResponse(r.slot)
}

// sendValue implements requester for the Send effect.
// Returns iox.ErrWouldBlock while every slot is in flight.
func (c *Client[Req, Resp]) sendValue(v Req) error {
	if c.closed {
		return ErrConnectionClosed
	}
	c.pump()
	if len(c.free) == 0 {
		return iox.ErrWouldBlock
	}
	loan, err := c.LoanUninit()
	if err != nil {
		return err
	}
	req := loan.WritePayload(v)
	slot := req.slot
	if _, err := req.Send(); err != nil {
		return err
	}
	// inflight has one entry per slot at most.
	_ = c.inflight.Enqueue(&slot)
	return nil
}

// recvValue implements responder for the Recv effect: it copies out the
// response to the oldest request sent through sendValue.
// Returns iox.ErrWouldBlock while that response is pending, and
// ErrNodeShutdown if the node stops meanwhile.
func (c *Client[Req, Resp]) recvValue() (Resp, error) {
	var zero Resp
	if !c.hasHead {
		slot, err := c.inflight.Dequeue()
		if err != nil {
			return zero, fmt.Errorf("%w: no request in flight", ErrNoResponse)
		}
		c.head, c.hasHead = slot, true
	}
	c.pump()
	if c.state[c.head] != slotAnswered {
		if c.closed {
			return zero, ErrConnectionClosed
		}
		if c.svc.node.stopped() {
			return zero, ErrNodeShutdown
		}
		return zero, iox.ErrWouldBlock
	}
	c.hasHead = false
	resp := c.answer[c.head]
	c.freeSlot(c.head)
	if resp == noSlot {
		return zero, ErrNoResponse
	}
	v := c.conn.responses[resp]
	c.releaseResponse(resp)
	return v, nil
}
