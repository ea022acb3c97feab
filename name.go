// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reqresp

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxServiceNameLength is the maximum length of a service name in bytes.
const MaxServiceNameLength = 255

// ServiceName is a validated, human-readable service name.
type ServiceName struct {
	value string
}

// NewServiceName validates s.
// Returns ErrInvalidName if s is empty, longer than MaxServiceNameLength,
// not valid UTF-8, or contains a NUL byte.
func NewServiceName(s string) (ServiceName, error) {
	switch {
	case s == "":
		return ServiceName{}, fmt.Errorf("%w: empty", ErrInvalidName)
	case len(s) > MaxServiceNameLength:
		return ServiceName{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidName, len(s), MaxServiceNameLength)
	case !utf8.ValidString(s):
		return ServiceName{}, fmt.Errorf("%w: not valid UTF-8", ErrInvalidName)
	case strings.IndexByte(s, 0) >= 0:
		return ServiceName{}, fmt.Errorf("%w: contains NUL", ErrInvalidName)
	}
	return ServiceName{value: s}, nil
}

// String returns the name.
func (n ServiceName) String() string {
	return n.value
}
