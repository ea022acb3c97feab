// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package componenttest_test

import (
	"errors"
	"testing"
	"time"
	"unsafe"

	"code.hybscloud.com/kont"
	"code.hybscloud.com/reqresp"
	"code.hybscloud.com/reqresp/componenttest"
	"code.hybscloud.com/reqresp/container"
)

func TestNewLayoutRequest(t *testing.T) {
	req, err := componenttest.NewLayoutRequest(componenttest.SequenceVecInt32x10)
	if err != nil {
		t.Fatalf("NewLayoutRequest: %v", err)
	}
	var v container.Vec[int32, [10]int32]
	if req.ContainerSize != int32(unsafe.Sizeof(v)) {
		t.Fatalf("ContainerSize got %d, want %d", req.ContainerSize, unsafe.Sizeof(v))
	}
	if req.SizeOfDataComponent != 40 {
		t.Fatalf("SizeOfDataComponent got %d, want 40", req.SizeOfDataComponent)
	}
	if req.ContainerAlignment < 4 {
		t.Fatalf("ContainerAlignment got %d", req.ContainerAlignment)
	}
	if err := componenttest.CheckLayoutRequest(&req); err != nil {
		t.Fatalf("CheckLayoutRequest: %v", err)
	}

	end, err := componenttest.NewLayoutRequest(componenttest.SequenceEndOfTest)
	if err != nil || end.VectorTypeSequence != componenttest.SequenceEndOfTest {
		t.Fatalf("end marker got %+v, %v", end, err)
	}
	if _, err := componenttest.NewLayoutRequest(42); !errors.Is(err, componenttest.ErrUnexpectedPayload) {
		t.Fatalf("unknown sequence got %v, want ErrUnexpectedPayload", err)
	}
}

func TestCheckLayoutRequestMismatch(t *testing.T) {
	req, _ := componenttest.NewLayoutRequest(componenttest.SequenceVecInt32x10)
	req.OffsetOfSizeComponent++
	if err := componenttest.CheckLayoutRequest(&req); !errors.Is(err, componenttest.ErrUnexpectedPayload) {
		t.Fatalf("got %v, want ErrUnexpectedPayload", err)
	}
}

func TestLayoutHandler(t *testing.T) {
	var h componenttest.LayoutHandler
	req, _ := componenttest.NewLayoutRequest(componenttest.SequenceVecInt32x10)
	var resp componenttest.ContainerLayoutResponse
	if err := h.Validate(&req); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := h.Respond(&req, &resp); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if resp.VectorTypeSequence != componenttest.SequenceVecInt32x10 || !resp.AllFieldsMatch {
		t.Fatalf("response got %+v", resp)
	}
	if h.Final(&req) {
		t.Fatal("matching layout request reported final")
	}
	if err := h.Err(); err != nil {
		t.Fatalf("Err got %v", err)
	}
	end := componenttest.ContainerLayoutRequest{VectorTypeSequence: componenttest.SequenceEndOfTest}
	if !h.Final(&end) {
		t.Fatal("end marker not final")
	}

	unknown := componenttest.ContainerLayoutRequest{VectorTypeSequence: 42}
	if err := h.Validate(&unknown); !errors.Is(err, componenttest.ErrUnexpectedPayload) {
		t.Fatalf("Validate unknown sequence got %v, want ErrUnexpectedPayload", err)
	}
}

func TestLayoutHandlerMismatch(t *testing.T) {
	var h componenttest.LayoutHandler
	req, _ := componenttest.NewLayoutRequest(componenttest.SequenceVecInt32x10)
	req.SizeOfDataComponent = 8
	if err := h.Validate(&req); err != nil {
		t.Fatalf("Validate rejected a known sequence: %v", err)
	}
	var resp componenttest.ContainerLayoutResponse
	if err := h.Respond(&req, &resp); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if resp.VectorTypeSequence != componenttest.SequenceVecInt32x10 || resp.AllFieldsMatch {
		t.Fatalf("response got %+v, want a mismatch report", resp)
	}
	if !h.Final(&req) {
		t.Fatal("mismatching layout did not end the session")
	}
	if err := h.Err(); !errors.Is(err, componenttest.ErrUnexpectedPayload) {
		t.Fatalf("Err got %v, want ErrUnexpectedPayload", err)
	}
}

func TestLayoutSessionReportsMismatch(t *testing.T) {
	node := reqresp.NewNode(reqresp.WithDomain(reqresp.NewDomain()))
	svc, _ := reqresp.OpenOrCreate[componenttest.ContainerLayoutRequest, componenttest.ContainerLayoutResponse](node, "layout")
	defer svc.Close()
	server, _ := svc.ServerBuilder().Create()
	defer server.Close()
	client, _ := svc.ClientBuilder().Create()
	defer client.Close()

	req, _ := componenttest.NewLayoutRequest(componenttest.SequenceVecInt32x10)
	req.ContainerSize = 1
	loan, _ := client.LoanUninit()
	pending, err := loan.WritePayload(req).Send()
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	h := &componenttest.LayoutHandler{}
	if err := reqresp.NewSession(node, svc, server, h).Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := h.Err(); !errors.Is(err, componenttest.ErrUnexpectedPayload) {
		t.Fatalf("Err got %v, want ErrUnexpectedPayload", err)
	}
	resp, err := pending.Receive()
	if err != nil || resp == nil {
		t.Fatalf("Receive got %v, %v", resp, err)
	}
	defer resp.Drop()
	if got := *resp.Payload(); got.VectorTypeSequence != componenttest.SequenceVecInt32x10 || got.AllFieldsMatch {
		t.Fatalf("response got %+v, want a mismatch report", got)
	}
}

func TestLayoutSessionUnknownSequenceFails(t *testing.T) {
	node := reqresp.NewNode(reqresp.WithDomain(reqresp.NewDomain()))
	svc, _ := reqresp.OpenOrCreate[componenttest.ContainerLayoutRequest, componenttest.ContainerLayoutResponse](node, "layout")
	defer svc.Close()
	server, _ := svc.ServerBuilder().Create()
	defer server.Close()
	client, _ := svc.ClientBuilder().Create()
	defer client.Close()

	loan, _ := client.LoanUninit()
	pending, err := loan.WritePayload(componenttest.ContainerLayoutRequest{VectorTypeSequence: 42}).Send()
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	err = reqresp.NewSession(node, svc, server, &componenttest.LayoutHandler{}).Run()
	if !errors.Is(err, reqresp.ErrPayloadValidation) {
		t.Fatalf("Run got %v, want ErrPayloadValidation", err)
	}
	if _, err := pending.Receive(); !errors.Is(err, reqresp.ErrNoResponse) {
		t.Fatalf("Receive got %v, want ErrNoResponse", err)
	}
}

// TestServeReportsLayoutMismatch drives the containers server with a
// client whose layout disagrees.
func TestServeReportsLayoutMismatch(t *testing.T) {
	skipRace(t)
	node := reqresp.NewNode(reqresp.WithDomain(reqresp.NewDomain()))
	defer node.Shutdown()
	test, _ := componenttest.Lookup("containers")
	opts := componenttest.Options{RefreshInterval: time.Millisecond}

	svc, err := reqresp.OpenOrCreate[componenttest.ContainerLayoutRequest, componenttest.ContainerLayoutResponse](
		node, componenttest.ServiceName(test.Name()))
	if err != nil {
		t.Fatalf("OpenOrCreate: %v", err)
	}
	defer svc.Close()
	client, _ := svc.ClientBuilder().Create()
	defer client.Close()
	req, _ := componenttest.NewLayoutRequest(componenttest.SequenceVecInt32x10)
	req.OffsetOfSizeComponent++

	served := make(chan error, 1)
	go func() { served <- test.Serve(node, opts) }()
	resp := reqresp.ExecExpr(client, reqresp.ExprCall(req, func(resp componenttest.ContainerLayoutResponse) kont.Expr[componenttest.ContainerLayoutResponse] {
		return kont.ExprReturn(resp)
	}))
	if resp.VectorTypeSequence != componenttest.SequenceVecInt32x10 || resp.AllFieldsMatch {
		t.Fatalf("response got %+v, want a mismatch report", resp)
	}
	select {
	case err := <-served:
		if !errors.Is(err, componenttest.ErrUnexpectedPayload) {
			t.Fatalf("Serve got %v, want ErrUnexpectedPayload", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not complete")
	}
}
