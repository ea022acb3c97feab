// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package componenttest

import (
	"errors"
	"fmt"

	"code.hybscloud.com/kont"

	"code.hybscloud.com/reqresp"
	"code.hybscloud.com/reqresp/container"
)

// Container types of the mutation payloads.
type (
	Int32Vec10   = container.Vec[int32, [10]int32]
	String64     = container.String[[64]byte]
	String16     = container.String[[16]byte]
	String16Vec5 = container.Vec[String16, [5]String16]
)

// ContainerMutationRequest carries the containers the server mutates.
type ContainerMutationRequest struct {
	VectorAddElement          Int32Vec10
	VectorRemoveElement       Int32Vec10
	StringAppend              String64
	VectorStringsChangeMiddle String16Vec5
}

// TypeName is shared with peers built in other languages.
func (ContainerMutationRequest) TypeName() string { return "ContainerMutationTestRequest" }

// ContainerMutationResponse carries the mutated containers.
type ContainerMutationResponse struct {
	VectorAddElement          Int32Vec10
	VectorRemoveElement       Int32Vec10
	StringAppend              String64
	VectorStringsChangeMiddle String16Vec5
}

// TypeName is shared with peers built in other languages.
func (ContainerMutationResponse) TypeName() string { return "ContainerMutationTestResponse" }

// ErrUnexpectedPayload reports a payload that differs from the test's
// expected values.
var ErrUnexpectedPayload = errors.New("componenttest: unexpected payload")

const (
	appendedElement = 123
	appendedText    = " my baby, hello my honey, hello my ragtime gal"
	changedIndex    = 2
	eraseStart      = 13
	eraseEnd        = 16
	changedSuffix   = "ter"
)

var (
	requestStrings  = [...]string{"Howdy!", "Yeehaw!", "How's the missus", "I'll be gone", "See you soon"}
	responseStrings = [...]string{"Howdy!", "Yeehaw!", "How's the mister", "I'll be gone", "See you soon"}
)

func strings16(texts []string) (String16Vec5, error) {
	var v String16Vec5
	for _, text := range texts {
		s, err := container.StringFrom[[16]byte](text)
		if err != nil {
			return String16Vec5{}, fmt.Errorf("%q: %w", text, err)
		}
		if err := v.TryPushBack(s); err != nil {
			return String16Vec5{}, err
		}
	}
	return v, nil
}

// NewMutationRequest returns the request the client of the
// container_mutation test sends.
func NewMutationRequest() (ContainerMutationRequest, error) {
	var req ContainerMutationRequest
	var err error
	if req.VectorAddElement, err = container.VecFrom[int32, [10]int32](1, 2, 3, 4); err != nil {
		return req, err
	}
	if req.VectorRemoveElement, err = container.VecFrom[int32, [10]int32](1, 2, 9999, 3, 4, 9999, 5, 9999); err != nil {
		return req, err
	}
	if req.StringAppend, err = container.StringFrom[[64]byte]("Hello"); err != nil {
		return req, err
	}
	if req.VectorStringsChangeMiddle, err = strings16(requestStrings[:]); err != nil {
		return req, err
	}
	return req, nil
}

// CheckMutationRequest reports whether req holds exactly the values of
// NewMutationRequest.
func CheckMutationRequest(req *ContainerMutationRequest) error {
	want, err := NewMutationRequest()
	if err != nil {
		return err
	}
	return compareFields(
		&req.VectorAddElement, &want.VectorAddElement,
		&req.VectorRemoveElement, &want.VectorRemoveElement,
		&req.StringAppend, &want.StringAppend,
		&req.VectorStringsChangeMiddle, &want.VectorStringsChangeMiddle,
	)
}

// BuildMutationResponse fills resp from req using only bounded, fallible
// container operations:
//
//	vector_add_element:           push 123
//	vector_remove_element:        erase at 5, erase at 2, pop back
//	string_append:                append the rest of the verse
//	vector_strings_change_middle: element 2 loses bytes [13, 16) and gains "ter"
func BuildMutationResponse(req *ContainerMutationRequest, resp *ContainerMutationResponse) error {
	resp.VectorAddElement = req.VectorAddElement
	if err := resp.VectorAddElement.TryPushBack(appendedElement); err != nil {
		return fmt.Errorf("vector_add_element: %w", err)
	}

	resp.VectorRemoveElement = req.VectorRemoveElement
	if err := resp.VectorRemoveElement.TryEraseAt(5); err != nil {
		return fmt.Errorf("vector_remove_element: %w", err)
	}
	if err := resp.VectorRemoveElement.TryEraseAt(2); err != nil {
		return fmt.Errorf("vector_remove_element: %w", err)
	}
	if err := resp.VectorRemoveElement.TryPopBack(); err != nil {
		return fmt.Errorf("vector_remove_element: %w", err)
	}

	resp.StringAppend = req.StringAppend
	if err := resp.StringAppend.TryAppendUTF8Unchecked(appendedText); err != nil {
		return fmt.Errorf("string_append: %w", err)
	}

	resp.VectorStringsChangeMiddle = req.VectorStringsChangeMiddle
	middle, ok := resp.VectorStringsChangeMiddle.ElementAt(changedIndex)
	if !ok {
		return fmt.Errorf("vector_strings_change_middle: no element %d", changedIndex)
	}
	if err := middle.UncheckedCodeUnits().TryEraseRange(eraseStart, eraseEnd); err != nil {
		return fmt.Errorf("vector_strings_change_middle: %w", err)
	}
	if err := middle.TryAppendUTF8Unchecked(changedSuffix); err != nil {
		return fmt.Errorf("vector_strings_change_middle: %w", err)
	}
	return nil
}

// CheckMutationResponse reports whether resp holds the mutated values.
func CheckMutationResponse(resp *ContainerMutationResponse) error {
	add, _ := container.VecFrom[int32, [10]int32](1, 2, 3, 4, appendedElement)
	remove, _ := container.VecFrom[int32, [10]int32](1, 2, 3, 4, 5)
	text, _ := container.StringFrom[[64]byte]("Hello" + appendedText)
	middle, err := strings16(responseStrings[:])
	if err != nil {
		return err
	}
	return compareFields(
		&resp.VectorAddElement, &add,
		&resp.VectorRemoveElement, &remove,
		&resp.StringAppend, &text,
		&resp.VectorStringsChangeMiddle, &middle,
	)
}

func compareFields(gotAdd, wantAdd, gotRemove, wantRemove *Int32Vec10, gotText, wantText *String64, gotMiddle, wantMiddle *String16Vec5) error {
	switch {
	case !gotAdd.Equal(wantAdd):
		return fmt.Errorf("%w: vector_add_element is %v, want %v", ErrUnexpectedPayload, gotAdd, wantAdd)
	case !gotRemove.Equal(wantRemove):
		return fmt.Errorf("%w: vector_remove_element is %v, want %v", ErrUnexpectedPayload, gotRemove, wantRemove)
	case !gotText.Equal(wantText):
		return fmt.Errorf("%w: string_append is %q, want %q", ErrUnexpectedPayload, gotText.String(), wantText.String())
	case !gotMiddle.Equal(wantMiddle):
		return fmt.Errorf("%w: vector_strings_change_middle is %v, want %v", ErrUnexpectedPayload, gotMiddle, wantMiddle)
	}
	return nil
}

// MutationHandler serves the container_mutation test.
type MutationHandler struct{}

func (MutationHandler) Validate(req *ContainerMutationRequest) error {
	return CheckMutationRequest(req)
}

func (MutationHandler) Respond(req *ContainerMutationRequest, resp *ContainerMutationResponse) error {
	return BuildMutationResponse(req, resp)
}

type containerMutationTest struct{}

func (containerMutationTest) Name() string { return "container_mutation" }

func (t containerMutationTest) Serve(node *reqresp.Node, opts Options) error {
	return serve[ContainerMutationRequest, ContainerMutationResponse](node, t.Name(), MutationHandler{}, opts)
}

func (t containerMutationTest) Request(node *reqresp.Node, opts Options) error {
	req, err := NewMutationRequest()
	if err != nil {
		return err
	}
	svc, client, err := connect[ContainerMutationRequest, ContainerMutationResponse](node, t.Name(), opts)
	if err != nil {
		return err
	}
	defer svc.Close()
	protocol := reqresp.ExprCall(req, func(resp ContainerMutationResponse) kont.Expr[ContainerMutationResponse] {
		return reqresp.ExprCloseDone(resp)
	})
	result := reqresp.ExecErrorExpr[error](client, protocol)
	if err, ok := result.GetLeft(); ok {
		_ = client.Close()
		return fmt.Errorf("%s: %w", t.Name(), err)
	}
	resp, _ := result.GetRight()
	return CheckMutationResponse(&resp)
}
