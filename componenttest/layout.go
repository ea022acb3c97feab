// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package componenttest

import (
	"fmt"

	"code.hybscloud.com/kont"

	"code.hybscloud.com/reqresp"
	"code.hybscloud.com/reqresp/container"
)

// Vector type sequence numbers of the containers test.
const (
	SequenceVecInt32x10 int32 = 1
	SequenceEndOfTest   int32 = -1
)

// ContainerLayoutRequest carries the memory layout of a vector type as
// seen by the client.
type ContainerLayoutRequest struct {
	VectorTypeSequence          int32
	ContainerSize               int32
	ContainerAlignment          int32
	SizeOfDataComponent         int32
	OffsetOfDataComponent       int32
	SizeOfSizeComponent         int32
	OffsetOfSizeComponent       int32
	SizeComponentTypeIsUnsigned bool
}

// TypeName is shared with peers built in other languages.
func (ContainerLayoutRequest) TypeName() string { return "ContainerTestRequest" }

// ContainerLayoutResponse reports whether the server sees the same layout.
type ContainerLayoutResponse struct {
	VectorTypeSequence int32
	AllFieldsMatch     bool
}

// TypeName is shared with peers built in other languages.
func (ContainerLayoutResponse) TypeName() string { return "ContainerTestResponse" }

// layoutOf returns the local layout of the vector type seq names.
func layoutOf(seq int32) (container.Layout, bool) {
	switch seq {
	case SequenceVecInt32x10:
		var v container.Vec[int32, [10]int32]
		return v.Layout(), true
	}
	return container.Layout{}, false
}

// NewLayoutRequest describes the local layout of the vector type seq names.
// SequenceEndOfTest yields the end marker.
func NewLayoutRequest(seq int32) (ContainerLayoutRequest, error) {
	if seq == SequenceEndOfTest {
		return ContainerLayoutRequest{VectorTypeSequence: seq}, nil
	}
	l, ok := layoutOf(seq)
	if !ok {
		return ContainerLayoutRequest{}, fmt.Errorf("%w: unknown vector type sequence %d", ErrUnexpectedPayload, seq)
	}
	return ContainerLayoutRequest{
		VectorTypeSequence:          seq,
		ContainerSize:               int32(l.Size),
		ContainerAlignment:          int32(l.Align),
		SizeOfDataComponent:         int32(l.DataSize),
		OffsetOfDataComponent:       int32(l.DataOffset),
		SizeOfSizeComponent:         int32(l.LenSize),
		OffsetOfSizeComponent:       int32(l.LenOffset),
		SizeComponentTypeIsUnsigned: l.LenUnsigned,
	}, nil
}

// CheckLayoutRequest compares req with the local layout.
func CheckLayoutRequest(req *ContainerLayoutRequest) error {
	if req.VectorTypeSequence == SequenceEndOfTest {
		return nil
	}
	want, err := NewLayoutRequest(req.VectorTypeSequence)
	if err != nil {
		return err
	}
	if *req != want {
		return fmt.Errorf("%w: layout of sequence %d is %+v, want %+v", ErrUnexpectedPayload, req.VectorTypeSequence, *req, want)
	}
	return nil
}

// LayoutHandler serves the containers test. Every known sequence is
// answered with whether its layout matches; a mismatch or the end marker
// ends the session. Err reports the first mismatch.
type LayoutHandler struct {
	mismatch error
}

func (h *LayoutHandler) Validate(req *ContainerLayoutRequest) error {
	if req.VectorTypeSequence == SequenceEndOfTest {
		return nil
	}
	if _, ok := layoutOf(req.VectorTypeSequence); !ok {
		return fmt.Errorf("%w: unknown vector type sequence %d", ErrUnexpectedPayload, req.VectorTypeSequence)
	}
	return nil
}

func (h *LayoutHandler) Respond(req *ContainerLayoutRequest, resp *ContainerLayoutResponse) error {
	err := CheckLayoutRequest(req)
	if err != nil && h.mismatch == nil {
		h.mismatch = err
	}
	resp.VectorTypeSequence = req.VectorTypeSequence
	resp.AllFieldsMatch = err == nil
	return nil
}

func (h *LayoutHandler) Final(req *ContainerLayoutRequest) bool {
	return req.VectorTypeSequence == SequenceEndOfTest || CheckLayoutRequest(req) != nil
}

// Err returns the first layout mismatch answered, or nil.
func (h *LayoutHandler) Err() error {
	return h.mismatch
}

type containersTest struct{}

func (containersTest) Name() string { return "containers" }

func (t containersTest) Serve(node *reqresp.Node, opts Options) error {
	h := &LayoutHandler{}
	if err := serve[ContainerLayoutRequest, ContainerLayoutResponse](node, t.Name(), h, opts); err != nil {
		return err
	}
	if err := h.Err(); err != nil {
		return fmt.Errorf("%s: %w", t.Name(), err)
	}
	return nil
}

// Request sends the layout of every known vector type followed by the end
// marker, one request at a time.
func (t containersTest) Request(node *reqresp.Node, opts Options) error {
	svc, client, err := connect[ContainerLayoutRequest, ContainerLayoutResponse](node, t.Name(), opts)
	if err != nil {
		return err
	}
	defer svc.Close()
	sequences := []int32{SequenceVecInt32x10, SequenceEndOfTest}
	first, err := NewLayoutRequest(sequences[0])
	if err != nil {
		return err
	}
	i := 0
	protocol := reqresp.ExprCallLoop(first, func(resp ContainerLayoutResponse) kont.Either[ContainerLayoutRequest, error] {
		if resp.VectorTypeSequence != sequences[i] || !resp.AllFieldsMatch {
			return kont.Right[ContainerLayoutRequest](fmt.Errorf("%w: %+v", ErrUnexpectedPayload, resp))
		}
		i++
		if i == len(sequences) {
			return kont.Right[ContainerLayoutRequest, error](nil)
		}
		next, err := NewLayoutRequest(sequences[i])
		if err != nil {
			return kont.Right[ContainerLayoutRequest](err)
		}
		return kont.Left[ContainerLayoutRequest, error](next)
	})
	result := reqresp.ExecErrorExpr[error](client, reqresp.ExprThenClose(protocol))
	if err, ok := result.GetLeft(); ok {
		_ = client.Close()
		return fmt.Errorf("%s: %w", t.Name(), err)
	}
	err, _ = result.GetRight()
	return err
}
