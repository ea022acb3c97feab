// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reqresp

import (
	"code.hybscloud.com/kont"
)

// Step evaluates a client protocol until the first effect suspension.
// Returns (result, nil) on completion, or (zero, suspension) if pending.
func Step[R any](protocol kont.Expr[R]) (R, *kont.Suspension[R]) {
	return kont.StepExpr(protocol)
}

// Advance dispatches the suspended client operation on c.
// DispatchClient is non-blocking: it returns iox.ErrWouldBlock when the
// lanes cannot make progress.
//
// On success (nil error), the suspension is consumed and the protocol
// advances to the next effect or completion.
// On any error the suspension is unconsumed; after iox.ErrWouldBlock it
// may be retried once the server makes progress.
func Advance[Req, Resp, R any](c *Client[Req, Resp], susp *kont.Suspension[R]) (R, *kont.Suspension[R], error) {
	cop, ok := susp.Op().(clientDispatcher)
	if !ok {
		panic("reqresp: unhandled effect in Advance")
	}
	v, err := cop.DispatchClient(&c.ctx)
	if err != nil {
		var zero R
		return zero, susp, err
	}
	result, next := susp.Resume(v)
	return result, next, nil
}
