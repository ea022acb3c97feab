// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package container

import "errors"

var (
	// ErrCapacityExceeded reports that an operation would grow a container past its capacity.
	ErrCapacityExceeded = errors.New("container: capacity exceeded")
	// ErrIndexOutOfRange reports an index or index range outside the live elements.
	ErrIndexOutOfRange = errors.New("container: index out of range")
	// ErrEmpty reports removal from an empty container.
	ErrEmpty = errors.New("container: empty")
	// ErrInvalidUTF8 reports input that is not a valid UTF-8 byte sequence.
	ErrInvalidUTF8 = errors.New("container: invalid UTF-8")
)
