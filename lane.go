// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reqresp

import (
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/lfq"
)

// noSlot marks an envelope for a request that was dropped without response.
const noSlot = ^uint32(0)

// envelope routes a response slot back to the request slot it answers.
type envelope struct {
	request  uint32
	response uint32
}

// conn is the shared memory of one client connection: the payload slot
// pools and three single-producer single-consumer lanes.
//
//	requestQ:  client → server, request slot indices
//	responseQ: server → client, envelopes
//	releaseQ:  client → server, response slots handed back after use
//
// The client owns the request pool free list; the server owns response
// slot allocation, refilled from releaseQ.
type conn[Req, Resp any] struct {
	serial    Serial
	requests  []Req
	responses []Resp
	requestQ  lfq.SPSC[uint32]
	responseQ lfq.SPSC[envelope]
	releaseQ  lfq.SPSC[uint32]
	closed    atomix.Uint32

	// stash holds response slots the server loaned but never sent.
	// Only the server touches it.
	stash []uint32
}

// newConn allocates a connection with slots request and response slots.
// Pools, queues and state share a single allocation; only the ring
// buffers and pools are separate heap objects.
func newConn[Req, Resp any](slots int) *conn[Req, Resp] {
	c := &conn[Req, Resp]{
		serial:    nextSerial(),
		requests:  make([]Req, slots),
		responses: make([]Resp, slots),
		stash:     make([]uint32, 0, slots),
	}
	ring := ringCapacity(slots)
	c.requestQ.Init(ring)
	c.responseQ.Init(ring)
	c.releaseQ.Init(ring)
	for i := range uint32(slots) {
		// Creator is the client side, the producer of releaseQ.
		_ = c.releaseQ.Enqueue(&i)
	}
	return c
}

// ringCapacity sizes a lane for slots entries. lfq rings hold at least two.
func ringCapacity(slots int) int {
	return max(slots, 2)
}

func (c *conn[Req, Resp]) isClosed() bool {
	return c.closed.Load() != 0
}

// segment is the typed shared state of a service: its live connections.
// gen changes whenever a connection joins or leaves, so the server only
// takes the lock when its snapshot is stale.
type segment[Req, Resp any] struct {
	mu    sync.Mutex
	conns []*conn[Req, Resp]
	gen   atomix.Uint32
}

func (s *segment[Req, Resp]) attach(c *conn[Req, Resp]) {
	s.mu.Lock()
	s.conns = append(s.conns, c)
	s.mu.Unlock()
	s.gen.Add(1)
}

func (s *segment[Req, Resp]) detach(c *conn[Req, Resp]) {
	s.mu.Lock()
	for i, x := range s.conns {
		if x == c {
			s.conns = append(s.conns[:i], s.conns[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	s.gen.Add(1)
}

// snapshot copies the live connections into dst and returns the generation
// it reflects.
func (s *segment[Req, Resp]) snapshot(dst []*conn[Req, Resp]) ([]*conn[Req, Resp], uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(dst[:0], s.conns...), s.gen.Load()
}
