// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reqresp

import (
	"errors"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// Loopback runs a client protocol against a server of the same service and
// returns the protocol's result. Client steps and server requests are
// interleaved on the calling goroutine using adaptive backoff
// (iox.Backoff) when neither side can make progress. Does not spawn
// goroutines or create channels.
//
// Every received request is served by handler. The first client port error
// or request the handler cannot serve ends the run with that error.
func Loopback[Req, Resp, R any](c *Client[Req, Resp], protocol kont.Expr[R], server *Server[Req, Resp], handler Handler[Req, Resp]) (R, error) {
	result, susp := Step[R](protocol)
	var bo iox.Backoff
	for susp != nil {
		progress := false
		var err error
		result, susp, err = Advance(c, susp)
		switch {
		case err == nil:
			progress = true
		case !errors.Is(err, iox.ErrWouldBlock):
			return abandon(susp, err)
		}
		req, err := server.Receive()
		if err != nil {
			return abandon(susp, err)
		}
		if req != nil {
			if err := serve(req, handler); err != nil {
				return abandon(susp, err)
			}
			progress = true
		}
		if !progress {
			bo.Wait()
		} else {
			bo.Reset()
		}
	}
	return result, nil
}

// abandon discards a pending suspension and reports err.
func abandon[R any](susp *kont.Suspension[R], err error) (R, error) {
	if susp != nil {
		susp.Discard()
	}
	var zero R
	return zero, err
}
