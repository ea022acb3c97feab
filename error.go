// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reqresp

import (
	"code.hybscloud.com/kont"
)

// clientErrorHandler handles both client and error effects.
// Client ops wait on ErrWouldBlock via iox.Backoff. Error ops short-circuit
// on Throw. A port failure also short-circuits when E is error.
type clientErrorHandler[E, A any] struct {
	ctx    *clientContext
	errCtx *kont.ErrorContext[E]
}

// Dispatch implements kont.Handler for the composed Client+Error handler.
// Dispatch order: Client → Error.
func (h clientErrorHandler[E, A]) Dispatch(op kont.Operation) (kont.Resumed, bool) {
	if cop, ok := op.(clientDispatcher); ok {
		v, err := dispatchWait(h.ctx, cop)
		if err != nil {
			return portFailure[E, A](err), false
		}
		return v, true
	}
	if eop, ok := op.(interface {
		DispatchError(ctx *kont.ErrorContext[E]) (kont.Resumed, bool)
	}); ok {
		v, _ := eop.DispatchError(h.errCtx)
		if h.errCtx.HasErr {
			return kont.Left[E, A](h.errCtx.Err), false
		}
		return v, true
	}
	panic("reqresp: unhandled effect in clientErrorHandler")
}

// portFailure converts a port error into a Left when E can hold it.
func portFailure[E, A any](err error) kont.Either[E, A] {
	e, ok := any(err).(E)
	if !ok {
		panic(err)
	}
	return kont.Left[E, A](e)
}

// ExecError runs a client protocol with error handling on c.
// Returns Either[E, R]: Right on success, Left on Throw, and Left on a
// port failure when E is error.
// Blocks on iox.ErrWouldBlock via adaptive backoff, without spawning
// goroutines or creating channels.
func ExecError[E, Req, Resp, R any](c *Client[Req, Resp], protocol kont.Eff[R]) kont.Either[E, R] {
	wrapped := kont.Map[kont.Resumed, R, kont.Either[E, R]](protocol, func(r R) kont.Either[E, R] {
		return kont.Right[E, R](r)
	})
	var errCtx kont.ErrorContext[E]
	h := clientErrorHandler[E, R]{ctx: &c.ctx, errCtx: &errCtx}
	return kont.Handle(wrapped, h)
}

// ExecErrorExpr runs an Expr client protocol with error handling on c.
// Returns Either[E, R]: Right on success, Left on Throw or port failure.
func ExecErrorExpr[E, Req, Resp, R any](c *Client[Req, Resp], protocol kont.Expr[R]) kont.Either[E, R] {
	wrapped := kont.ExprMap(protocol, func(r R) kont.Either[E, R] {
		return kont.Right[E, R](r)
	})
	var errCtx kont.ErrorContext[E]
	h := clientErrorHandler[E, R]{ctx: &c.ctx, errCtx: &errCtx}
	return kont.HandleExpr(wrapped, h)
}

// StepError evaluates a client protocol with error support until the first
// effect suspension. Returns (Either[E, R], nil) on completion or error,
// or (zero, suspension) if pending.
func StepError[E, R any](protocol kont.Expr[R]) (kont.Either[E, R], *kont.Suspension[kont.Either[E, R]]) {
	wrapped := kont.ExprMap(protocol, func(r R) kont.Either[E, R] {
		return kont.Right[E, R](r)
	})
	return kont.StepExpr(wrapped)
}

// AdvanceError dispatches the suspended operation on c.
// Client ops are non-blocking (ErrWouldBlock); other port errors are
// returned with the suspension unconsumed. Error ops are eager:
// Throw discards the suspension and returns Left.
func AdvanceError[E, Req, Resp, R any](c *Client[Req, Resp], susp *kont.Suspension[kont.Either[E, R]]) (kont.Either[E, R], *kont.Suspension[kont.Either[E, R]], error) {
	if cop, ok := susp.Op().(clientDispatcher); ok {
		v, err := cop.DispatchClient(&c.ctx)
		if err != nil {
			var zero kont.Either[E, R]
			return zero, susp, err
		}
		result, next := susp.Resume(v)
		return result, next, nil
	}
	if eop, ok := susp.Op().(interface {
		DispatchError(ctx *kont.ErrorContext[E]) (kont.Resumed, bool)
	}); ok {
		var ctx kont.ErrorContext[E]
		v, _ := eop.DispatchError(&ctx)
		if ctx.HasErr {
			susp.Discard()
			return kont.Left[E, R](ctx.Err), nil, nil
		}
		result, next := susp.Resume(v)
		return result, next, nil
	}
	panic("reqresp: unhandled effect in AdvanceError")
}
