// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reqresp_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
	"code.hybscloud.com/reqresp"
)

// fixture is a service in an isolated domain with one client and one server.
type fixture[Req, Resp any] struct {
	node   *reqresp.Node
	svc    *reqresp.Service[Req, Resp]
	client *reqresp.Client[Req, Resp]
	server *reqresp.Server[Req, Resp]
}

func newFixture[Req, Resp any](tb testing.TB, opts ...reqresp.ServiceOption) *fixture[Req, Resp] {
	tb.Helper()
	node := newNode()
	svc, err := reqresp.OpenOrCreate[Req, Resp](node, "fixture", opts...)
	if err != nil {
		tb.Fatalf("OpenOrCreate: %v", err)
	}
	server, err := svc.ServerBuilder().Create()
	if err != nil {
		tb.Fatalf("server Create: %v", err)
	}
	client, err := svc.ClientBuilder().Create()
	if err != nil {
		tb.Fatalf("client Create: %v", err)
	}
	tb.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
		_ = svc.Close()
		node.Shutdown()
	})
	return &fixture[Req, Resp]{node: node, svc: svc, client: client, server: server}
}

// newNode returns a node in a fresh domain so tests never share services.
func newNode(opts ...reqresp.NodeOption) *reqresp.Node {
	return reqresp.NewNode(append([]reqresp.NodeOption{reqresp.WithDomain(reqresp.NewDomain())}, opts...)...)
}

// doubler answers every int request with twice its value.
var doubler = reqresp.HandlerFuncs[int, int64]{
	RespondFunc: func(req *int, resp *int64) error {
		*resp = int64(*req) * 2
		return nil
	},
}

// serveAll answers every pending request with h and reports how many
// were answered.
func serveAll[Req, Resp any](tb testing.TB, s *reqresp.Server[Req, Resp], h reqresp.Handler[Req, Resp]) int {
	tb.Helper()
	n := 0
	for {
		req, err := s.Receive()
		if err != nil {
			tb.Fatalf("Receive: %v", err)
		}
		if req == nil {
			return n
		}
		var resp Resp
		if err := h.Respond(req.Payload(), &resp); err != nil {
			req.Drop()
			n++
			continue
		}
		loan, err := req.LoanUninit()
		if err != nil {
			tb.Fatalf("LoanUninit: %v", err)
		}
		if err := loan.WritePayload(resp).Send(); err != nil {
			tb.Fatalf("Send: %v", err)
		}
		n++
	}
}

// execExpr drives a protocol to completion on the fixture client via
// Step+Advance, answering requests whenever the client would block.
// Used by stepping tests to exercise the non-blocking path.
func execExpr[Req, Resp, R any](tb testing.TB, f *fixture[Req, Resp], h reqresp.Handler[Req, Resp], protocol kont.Expr[R]) R {
	tb.Helper()
	result, susp := reqresp.Step[R](protocol)
	for susp != nil {
		var err error
		result, susp, err = reqresp.Advance(f.client, susp)
		if err == nil {
			continue
		}
		if !errors.Is(err, iox.ErrWouldBlock) {
			tb.Fatalf("Advance: %v", err)
		}
		if serveAll(tb, f.server, h) == 0 {
			tb.Fatal("client blocked with no request to answer")
		}
	}
	return result
}

// serveBackground answers requests with h on another goroutine until the
// test ends. Requests h cannot answer are dropped.
func serveBackground[Req, Resp any](tb testing.TB, s *reqresp.Server[Req, Resp], h reqresp.Handler[Req, Resp]) {
	tb.Helper()
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		var bo iox.Backoff
		for {
			select {
			case <-stop:
				return
			default:
			}
			req, err := s.Receive()
			if err != nil || req == nil {
				bo.Wait()
				continue
			}
			bo.Reset()
			var resp Resp
			if err := h.Respond(req.Payload(), &resp); err != nil {
				req.Drop()
				continue
			}
			loan, err := req.LoanUninit()
			if err != nil {
				req.Drop()
				continue
			}
			_ = loan.WritePayload(resp).Send()
		}
	}()
	tb.Cleanup(func() {
		close(stop)
		<-done
	})
}
