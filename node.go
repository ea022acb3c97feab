// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reqresp

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Waiter is the cooperative suspension point of a polling loop.
// Wait blocks up to timeout and returns false when the caller must stop.
type Waiter interface {
	Wait(timeout time.Duration) bool
}

// Node is a participant in a domain. It owns the process-level lifecycle
// that polling loops observe through [Node.Wait].
type Node struct {
	id     uuid.UUID
	name   string
	domain *Domain
	ctx    context.Context

	done     chan struct{}
	shutdown sync.Once
}

// NodeOption configures a Node.
type NodeOption func(*Node)

// WithDomain attaches the node to d instead of the default domain.
func WithDomain(d *Domain) NodeOption {
	return func(n *Node) { n.domain = d }
}

// WithNodeName sets a human-readable node name.
func WithNodeName(name string) NodeOption {
	return func(n *Node) { n.name = name }
}

// WithContext ties the node's lifetime to ctx: Wait returns false once
// ctx is done.
func WithContext(ctx context.Context) NodeOption {
	return func(n *Node) { n.ctx = ctx }
}

// NewNode creates a node.
func NewNode(opts ...NodeOption) *Node {
	n := &Node{
		id:     uuid.New(),
		domain: defaultDomain,
		ctx:    context.Background(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// ID returns the unique node id.
func (n *Node) ID() uuid.UUID {
	return n.id
}

// Name returns the node name given by WithNodeName.
func (n *Node) Name() string {
	return n.name
}

// Domain returns the domain the node is attached to.
func (n *Node) Domain() *Domain {
	return n.domain
}

// Wait suspends the caller for up to timeout.
// Returns false if the node was shut down or its context is done,
// true otherwise.
func (n *Node) Wait(timeout time.Duration) bool {
	if n.stopped() {
		return false
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-n.done:
		return false
	case <-n.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// stopped reports whether the node was shut down or its context is done.
func (n *Node) stopped() bool {
	select {
	case <-n.done:
		return true
	case <-n.ctx.Done():
		return true
	default:
		return false
	}
}

// Shutdown signals all current and future Wait calls to return false.
func (n *Node) Shutdown() {
	n.shutdown.Do(func() { close(n.done) })
}
