// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reqresp

import (
	"code.hybscloud.com/kont"
)

// requester is the request side of a client port as seen by Send.
type requester[T any] interface {
	sendValue(v T) error
}

// responder is the response side of a client port as seen by Recv.
type responder[T any] interface {
	recvValue() (T, error)
}

// closer ends a client port.
type closer interface {
	Close() error
}

// clientContext carries the client port effects are dispatched on.
// port is the *Client itself; effects recover its typed halves by
// interface assertion, so one context serves every payload type pair.
type clientContext struct {
	port any
}

// Send is the effect operation for issuing a request with payload T.
// Perform(Send[T]{Value: v}) loans a request slot, writes v and sends it.
type Send[T any] struct {
	kont.Phantom[struct{}]
	Value T
}

// DispatchClient handles Send on the client port.
// Non-blocking: returns iox.ErrWouldBlock while every request slot is in flight.
func (s Send[T]) DispatchClient(ctx *clientContext) (kont.Resumed, error) {
	p, ok := ctx.port.(requester[T])
	if !ok {
		panic("reqresp: Send payload type does not match the client request type")
	}
	if err := p.sendValue(s.Value); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

// Recv is the effect operation for receiving a response of type T.
// Perform(Recv[T]{}) yields the response to the oldest request sent
// through Send, in send order.
type Recv[T any] struct {
	kont.Phantom[T]
}

// DispatchClient handles Recv on the client port.
// Non-blocking: returns iox.ErrWouldBlock while the response is pending.
func (Recv[T]) DispatchClient(ctx *clientContext) (kont.Resumed, error) {
	p, ok := ctx.port.(responder[T])
	if !ok {
		panic("reqresp: Recv payload type does not match the client response type")
	}
	v, err := p.recvValue()
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Close is the effect operation for disconnecting the client.
// Perform(Close{}) closes the port. Never blocks.
type Close struct {
	kont.Phantom[struct{}]
}

// DispatchClient handles Close on the client port.
func (Close) DispatchClient(ctx *clientContext) (kont.Resumed, error) {
	if c, ok := ctx.port.(closer); ok {
		_ = c.Close()
	}
	return struct{}{}, nil
}
