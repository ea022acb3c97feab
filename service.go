// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reqresp

import (
	"fmt"
	"sync"

	"code.hybscloud.com/atomix"
)

const (
	// DefaultMaxClients is the default number of clients a service accepts.
	DefaultMaxClients = 8
	// DefaultMaxActiveRequests is the default number of requests a single
	// client may have in flight, which is also its slot pool size.
	DefaultMaxActiveRequests = 4
)

// StaticConfig is fixed when a service is created. Later openers adopt it.
type StaticConfig struct {
	MaxClients        int
	MaxServers        int
	MaxActiveRequests int
	Request           TypeDetails
	Response          TypeDetails
}

// ServiceOption configures the static config of a service being created.
// Options passed when attaching to an existing service are ignored.
type ServiceOption func(*StaticConfig)

// WithMaxClients sets how many clients may connect at the same time.
func WithMaxClients(n int) ServiceOption {
	return func(c *StaticConfig) { c.MaxClients = max(n, 1) }
}

// WithMaxServers sets how many servers may serve the service. Each lane
// has a single consumer, so values above 1 are clamped to 1.
func WithMaxServers(n int) ServiceOption {
	return func(c *StaticConfig) { c.MaxServers = min(max(n, 1), 1) }
}

// WithMaxActiveRequests sets how many requests each client may have in flight.
func WithMaxActiveRequests(n int) ServiceOption {
	return func(c *StaticConfig) { c.MaxActiveRequests = max(n, 1) }
}

// DynamicConfig is the live state of a service shared by all its handles.
type DynamicConfig struct {
	clients atomix.Uint32
	servers atomix.Uint32
}

// NumberOfClients returns the number of connected clients.
func (d *DynamicConfig) NumberOfClients() int {
	return int(d.clients.Load())
}

// NumberOfServers returns the number of live servers.
func (d *DynamicConfig) NumberOfServers() int {
	return int(d.servers.Load())
}

// serviceState is the untyped part of a service as registered in a domain.
type serviceState struct {
	name    ServiceName
	static  StaticConfig
	dynamic DynamicConfig
	shared  any
	handles int
}

// Service is a handle to a named request-response channel with a fixed
// request and response payload type pair.
type Service[Req, Resp any] struct {
	node   *Node
	state  *serviceState
	seg    *segment[Req, Resp]
	closer sync.Once
}

type openMode uint8

const (
	modeOpenOrCreate openMode = iota
	modeCreate
	modeOpen
)

// OpenOrCreate attaches to the service called name, creating it if it does
// not exist. Repeated calls with the same payload types attach to the same
// service.
//
// Returns ErrInvalidName for a malformed name, ErrTypeMismatch if the service
// exists with different payload types, and ErrUnsupportedPayload if a payload
// type cannot be placed in shared memory.
func OpenOrCreate[Req, Resp any](node *Node, name string, opts ...ServiceOption) (*Service[Req, Resp], error) {
	return open[Req, Resp](node, name, modeOpenOrCreate, opts)
}

// Create creates the service called name.
// Returns ErrAlreadyExists if it exists.
func Create[Req, Resp any](node *Node, name string, opts ...ServiceOption) (*Service[Req, Resp], error) {
	return open[Req, Resp](node, name, modeCreate, opts)
}

// Open attaches to the existing service called name.
// Returns ErrDoesNotExist if there is none.
func Open[Req, Resp any](node *Node, name string) (*Service[Req, Resp], error) {
	return open[Req, Resp](node, name, modeOpen, nil)
}

func open[Req, Resp any](node *Node, name string, mode openMode, opts []ServiceOption) (*Service[Req, Resp], error) {
	sn, err := NewServiceName(name)
	if err != nil {
		return nil, err
	}
	reqDetails, err := detailsOf[Req]()
	if err != nil {
		return nil, err
	}
	respDetails, err := detailsOf[Resp]()
	if err != nil {
		return nil, err
	}

	d := node.domain
	d.mu.Lock()
	defer d.mu.Unlock()

	if st, ok := d.services[name]; ok {
		if mode == modeCreate {
			return nil, fmt.Errorf("%w: %q", ErrAlreadyExists, name)
		}
		if st.static.Request != reqDetails || st.static.Response != respDetails {
			return nil, fmt.Errorf("%w: %q has request %s and response %s, got %s and %s", ErrTypeMismatch,
				name, st.static.Request, st.static.Response, reqDetails, respDetails)
		}
		seg, ok := st.shared.(*segment[Req, Resp])
		if !ok {
			// Layout-compatible but distinct Go types cannot alias the same slots.
			return nil, fmt.Errorf("%w: %q is bound to different Go types", ErrTypeMismatch, name)
		}
		st.handles++
		return &Service[Req, Resp]{node: node, state: st, seg: seg}, nil
	}
	if mode == modeOpen {
		return nil, fmt.Errorf("%w: %q", ErrDoesNotExist, name)
	}

	cfg := StaticConfig{
		MaxClients:        DefaultMaxClients,
		MaxServers:        1,
		MaxActiveRequests: DefaultMaxActiveRequests,
		Request:           reqDetails,
		Response:          respDetails,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	seg := &segment[Req, Resp]{}
	st := &serviceState{name: sn, static: cfg, shared: seg, handles: 1}
	d.services[name] = st
	return &Service[Req, Resp]{node: node, state: st, seg: seg}, nil
}

// Name returns the service name.
func (s *Service[Req, Resp]) Name() ServiceName {
	return s.state.name
}

// StaticConfig returns the configuration fixed at creation.
func (s *Service[Req, Resp]) StaticConfig() StaticConfig {
	return s.state.static
}

// DynamicConfig returns the live state shared by all handles of the service.
func (s *Service[Req, Resp]) DynamicConfig() *DynamicConfig {
	return &s.state.dynamic
}

// Close releases the handle. The service leaves its domain when the last
// handle is closed. Ports created from the handle stay usable.
func (s *Service[Req, Resp]) Close() error {
	s.closer.Do(func() { s.node.domain.release(s.state) })
	return nil
}

// reserve increments n if it stays within limit, under the domain lock.
func (s *Service[Req, Resp]) reserve(n *atomix.Uint32, limit int) bool {
	d := s.node.domain
	d.mu.Lock()
	defer d.mu.Unlock()
	if int(n.Load()) >= limit {
		return false
	}
	n.Add(1)
	return true
}

// unreserve decrements n.
func unreserve(n *atomix.Uint32) {
	n.Add(^uint32(0))
}
