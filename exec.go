// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reqresp

import (
	"errors"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// clientDispatcher is the structural interface for client operations.
// DispatchClient is non-blocking: it returns iox.ErrWouldBlock at the
// I/O boundary when the lanes cannot make progress.
type clientDispatcher interface {
	DispatchClient(ctx *clientContext) (kont.Resumed, error)
}

// clientHandler implements kont.Handler for client effects.
// Waits on iox.ErrWouldBlock, converting non-blocking dispatch into
// blocking evaluation for Exec/ExecExpr.
type clientHandler[R any] struct {
	ctx *clientContext
}

// Dispatch implements kont.Handler via structural interface assertion.
// Any error other than iox.ErrWouldBlock is a protocol failure and panics;
// use ExecError to observe it as a value.
func (h clientHandler[R]) Dispatch(op kont.Operation) (kont.Resumed, bool) {
	cop, ok := op.(clientDispatcher)
	if !ok {
		panic("reqresp: unhandled effect in clientHandler")
	}
	v, err := dispatchWait(h.ctx, cop)
	if err != nil {
		panic(err)
	}
	return v, true
}

// dispatchWait blocks until DispatchClient stops reporting
// iox.ErrWouldBlock, backing off with iox.Backoff.
func dispatchWait(ctx *clientContext, cop clientDispatcher) (kont.Resumed, error) {
	var bo iox.Backoff
	for {
		v, err := cop.DispatchClient(ctx)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, iox.ErrWouldBlock) {
			return nil, err
		}
		bo.Wait()
	}
}

// Exec runs a Cont-world client protocol on c.
// Blocks on iox.ErrWouldBlock via adaptive backoff (iox.Backoff),
// without spawning goroutines or creating channels. The server must make
// progress elsewhere, or the protocol must not wait on it.
func Exec[Req, Resp, R any](c *Client[Req, Resp], protocol kont.Eff[R]) R {
	h := clientHandler[R]{ctx: &c.ctx}
	return kont.Handle(protocol, h)
}

// ExecExpr runs an Expr-world client protocol on c.
// Blocks on iox.ErrWouldBlock via adaptive backoff (iox.Backoff),
// without spawning goroutines or creating channels.
func ExecExpr[Req, Resp, R any](c *Client[Req, Resp], protocol kont.Expr[R]) R {
	h := clientHandler[R]{ctx: &c.ctx}
	return kont.HandleExpr(protocol, h)
}
