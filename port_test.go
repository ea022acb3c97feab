// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reqresp_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/kont"
	"code.hybscloud.com/reqresp"
)

func sendRequest[Req, Resp any](tb testing.TB, c *reqresp.Client[Req, Resp], v Req) *reqresp.PendingResponse[Req, Resp] {
	tb.Helper()
	loan, err := c.LoanUninit()
	if err != nil {
		tb.Fatalf("LoanUninit: %v", err)
	}
	pending, err := loan.WritePayload(v).Send()
	if err != nil {
		tb.Fatalf("Send: %v", err)
	}
	return pending
}

func receiveRequest[Req, Resp any](tb testing.TB, s *reqresp.Server[Req, Resp]) *reqresp.ActiveRequest[Req, Resp] {
	tb.Helper()
	req, err := s.Receive()
	if err != nil {
		tb.Fatalf("Receive: %v", err)
	}
	if req == nil {
		tb.Fatal("Receive: no request pending")
	}
	return req
}

func TestRoundTrip(t *testing.T) {
	f := newFixture[int, int64](t)

	if req, err := f.server.Receive(); req != nil || err != nil {
		t.Fatalf("Receive on idle service got %v, %v", req, err)
	}

	loan, err := f.client.LoanUninit()
	if err != nil {
		t.Fatalf("LoanUninit: %v", err)
	}
	*loan.Payload() = 21
	pending, err := loan.AssumeInit().Send()
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp, err := pending.Receive(); resp != nil || err != nil {
		t.Fatalf("Receive before answer got %v, %v", resp, err)
	}

	req := receiveRequest(t, f.server)
	if *req.Payload() != 21 {
		t.Fatalf("request payload got %d, want 21", *req.Payload())
	}
	rl, err := req.LoanUninit()
	if err != nil {
		t.Fatalf("response LoanUninit: %v", err)
	}
	*rl.Payload() = 42
	rm := rl.AssumeInit()
	if *rm.Payload() != 42 {
		t.Fatalf("response payload got %d, want 42", *rm.Payload())
	}
	if err := reqresp.SendResponse(rm); err != nil {
		t.Fatalf("SendResponse: %v", err)
	}

	resp, err := pending.Receive()
	if err != nil || resp == nil {
		t.Fatalf("Receive got %v, %v", resp, err)
	}
	if *resp.Payload() != 42 {
		t.Fatalf("response got %d, want 42", *resp.Payload())
	}
	resp.Drop()
	resp.Drop()
	if _, err := pending.Receive(); !errors.Is(err, reqresp.ErrLoanConsumed) {
		t.Fatalf("second Receive got %v, want ErrLoanConsumed", err)
	}
}

func TestRequestPayloadAfterSendPanics(t *testing.T) {
	f := newFixture[int, int64](t)
	loan, _ := f.client.LoanUninit()
	req := loan.WritePayload(1)
	if _, err := req.Send(); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := req.Send(); !errors.Is(err, reqresp.ErrLoanConsumed) {
		t.Fatalf("second Send got %v, want ErrLoanConsumed", err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("Payload after Send did not panic")
		}
	}()
	_ = req.Payload()
}

func TestResponsePayloadAfterSendPanics(t *testing.T) {
	f := newFixture[int, int64](t)
	sendRequest(t, f.client, 1)
	req := receiveRequest(t, f.server)
	loan, _ := req.LoanUninit()
	resp := loan.WritePayload(2)
	if err := resp.Send(); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := resp.Send(); !errors.Is(err, reqresp.ErrLoanConsumed) {
		t.Fatalf("second Send got %v, want ErrLoanConsumed", err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("Payload after Send did not panic")
		}
	}()
	_ = resp.Payload()
}

func TestClientLoanFailed(t *testing.T) {
	f := newFixture[int, int64](t, reqresp.WithMaxActiveRequests(2))

	a, _ := f.client.LoanUninit()
	b, _ := f.client.LoanUninit()
	if _, err := f.client.LoanUninit(); !errors.Is(err, reqresp.ErrLoanFailed) {
		t.Fatalf("third loan got %v, want ErrLoanFailed", err)
	}
	a.Drop()
	c, err := f.client.LoanUninit()
	if err != nil {
		t.Fatalf("loan after Drop: %v", err)
	}
	b.Drop()
	c.Drop()
}

func TestSingleSlotClient(t *testing.T) {
	f := newFixture[int, int64](t, reqresp.WithMaxActiveRequests(1))
	if got := f.svc.StaticConfig().MaxActiveRequests; got != 1 {
		t.Fatalf("MaxActiveRequests got %d, want 1", got)
	}

	for i := range 3 {
		pending := sendRequest(t, f.client, i)
		if _, err := f.client.LoanUninit(); !errors.Is(err, reqresp.ErrLoanFailed) {
			t.Fatalf("second loan got %v, want ErrLoanFailed", err)
		}
		if n := serveAll(t, f.server, doubler); n != 1 {
			t.Fatalf("served %d requests, want 1", n)
		}
		resp, err := pending.Receive()
		if err != nil || resp == nil {
			t.Fatalf("Receive got %v, %v", resp, err)
		}
		if *resp.Payload() != int64(2*i) {
			t.Fatalf("response got %d, want %d", *resp.Payload(), 2*i)
		}
		resp.Drop()
	}

	protocol := reqresp.ExprThenClose(reqresp.ExprCallLoop(1, func(resp int64) kont.Either[int, int64] {
		if resp >= 16 {
			return kont.Right[int](resp)
		}
		return kont.Left[int, int64](int(resp))
	}))
	got, err := reqresp.Loopback(f.client, protocol, f.server, doubler)
	if err != nil || got != 16 {
		t.Fatalf("Loopback got %d, %v, want 16", got, err)
	}
}

func TestServerDropRequest(t *testing.T) {
	f := newFixture[int, int64](t)
	pending := sendRequest(t, f.client, 7)

	req := receiveRequest(t, f.server)
	req.Drop()
	req.Drop()
	if _, err := req.LoanUninit(); !errors.Is(err, reqresp.ErrLoanConsumed) {
		t.Fatalf("LoanUninit after Drop got %v, want ErrLoanConsumed", err)
	}

	if _, err := pending.Receive(); !errors.Is(err, reqresp.ErrNoResponse) {
		t.Fatalf("Receive got %v, want ErrNoResponse", err)
	}
}

func TestResponseLoanConsumed(t *testing.T) {
	f := newFixture[int, int64](t)
	sendRequest(t, f.client, 1)
	req := receiveRequest(t, f.server)

	loan, err := req.LoanUninit()
	if err != nil {
		t.Fatalf("LoanUninit: %v", err)
	}
	if _, err := req.LoanUninit(); !errors.Is(err, reqresp.ErrLoanConsumed) {
		t.Fatalf("second LoanUninit got %v, want ErrLoanConsumed", err)
	}
	loan.Drop()
	req.Drop()
}

// Response slots are only returned when the client drops its responses.
func TestResponseLoanFailed(t *testing.T) {
	f := newFixture[int, int64](t, reqresp.WithMaxActiveRequests(1))

	pending := sendRequest(t, f.client, 1)
	if serveAll(t, f.server, doubler) != 1 {
		t.Fatal("first request not answered")
	}
	held, err := pending.Receive()
	if err != nil || held == nil {
		t.Fatalf("Receive got %v, %v", held, err)
	}

	second := sendRequest(t, f.client, 2)
	req := receiveRequest(t, f.server)
	if _, err := req.LoanUninit(); !errors.Is(err, reqresp.ErrLoanFailed) {
		t.Fatalf("LoanUninit with pool held got %v, want ErrLoanFailed", err)
	}

	held.Drop()
	loan, err := req.LoanUninit()
	if err != nil {
		t.Fatalf("LoanUninit after release: %v", err)
	}
	if err := loan.WritePayload(4).Send(); err != nil {
		t.Fatalf("Send: %v", err)
	}
	resp, err := second.Receive()
	if err != nil || resp == nil || *resp.Payload() != 4 {
		t.Fatalf("second Receive got %v, %v", resp, err)
	}
	resp.Drop()
}

func TestDroppedResponseLoanIsReused(t *testing.T) {
	f := newFixture[int, int64](t, reqresp.WithMaxActiveRequests(1))
	pending := sendRequest(t, f.client, 3)
	req := receiveRequest(t, f.server)

	loan, _ := req.LoanUninit()
	loan.Drop()
	req.Drop()
	if _, err := pending.Receive(); !errors.Is(err, reqresp.ErrNoResponse) {
		t.Fatalf("Receive got %v, want ErrNoResponse", err)
	}

	pending = sendRequest(t, f.client, 4)
	if serveAll(t, f.server, doubler) != 1 {
		t.Fatal("request not answered")
	}
	resp, err := pending.Receive()
	if err != nil || resp == nil || *resp.Payload() != 8 {
		t.Fatalf("Receive got %v, %v", resp, err)
	}
	resp.Drop()
}

func TestPendingResponseDrop(t *testing.T) {
	f := newFixture[int, int64](t, reqresp.WithMaxActiveRequests(1))

	sendRequest(t, f.client, 1).Drop()
	if serveAll(t, f.server, doubler) != 1 {
		t.Fatal("abandoned request not received")
	}
	// The late response is released and the slot reused.
	pending := sendRequest(t, f.client, 5)
	if serveAll(t, f.server, doubler) != 1 {
		t.Fatal("request not answered")
	}
	resp, err := pending.Receive()
	if err != nil || resp == nil || *resp.Payload() != 10 {
		t.Fatalf("Receive got %v, %v", resp, err)
	}
	resp.Drop()
}

func TestSendResponseToClosedClient(t *testing.T) {
	f := newFixture[int, int64](t)
	sendRequest(t, f.client, 1)
	req := receiveRequest(t, f.server)
	loan, err := req.LoanUninit()
	if err != nil {
		t.Fatalf("LoanUninit: %v", err)
	}
	_ = f.client.Close()

	err = loan.WritePayload(2).Send()
	if !errors.Is(err, reqresp.ErrSendFailed) || !errors.Is(err, reqresp.ErrConnectionClosed) {
		t.Fatalf("Send got %v, want ErrSendFailed wrapping ErrConnectionClosed", err)
	}
	if _, err := f.client.LoanUninit(); !errors.Is(err, reqresp.ErrConnectionClosed) {
		t.Fatalf("LoanUninit on closed client got %v, want ErrConnectionClosed", err)
	}
}

func TestServerReceiveAfterClose(t *testing.T) {
	f := newFixture[int, int64](t)
	_ = f.server.Close()
	_ = f.server.Close()
	if _, err := f.server.Receive(); !errors.Is(err, reqresp.ErrConnectionClosed) {
		t.Fatalf("Receive got %v, want ErrConnectionClosed", err)
	}
}

func TestServerRoundRobin(t *testing.T) {
	f := newFixture[int, int64](t)
	other, err := f.svc.ClientBuilder().Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer other.Close()

	for i := range 3 {
		sendRequest(t, f.client, i)
		sendRequest(t, other, 10+i)
	}
	var origins []reqresp.Serial
	for range 6 {
		req := receiveRequest(t, f.server)
		origins = append(origins, req.Origin())
		req.Drop()
	}
	for i := 1; i < len(origins); i++ {
		if origins[i] == origins[i-1] {
			t.Fatalf("consecutive requests from one client: %v", origins)
		}
	}
}

func TestRequestFIFOPerClient(t *testing.T) {
	f := newFixture[int, int64](t)
	for i := range reqresp.DefaultMaxActiveRequests {
		sendRequest(t, f.client, i)
	}
	for i := range reqresp.DefaultMaxActiveRequests {
		req := receiveRequest(t, f.server)
		if *req.Payload() != i {
			t.Fatalf("request %d payload got %d", i, *req.Payload())
		}
		req.Drop()
	}
}
