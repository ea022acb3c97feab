// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package container

import "unicode/utf8"

// String is UTF-8 text with a fixed capacity of N code units and inline
// storage. A must be the array type [N]byte.
//
// Checked constructors and appenders keep the content valid UTF-8.
// The unchecked paths ([String.TryAppendUTF8Unchecked] and
// [String.UncheckedCodeUnits]) leave validity to the caller.
type String[A any] struct {
	units Vec[byte, A]
}

// StringFrom creates a string holding a copy of s.
// Returns ErrInvalidUTF8 if s is not valid UTF-8, or ErrCapacityExceeded
// if s does not fit.
func StringFrom[A any](s string) (String[A], error) {
	var str String[A]
	if !utf8.ValidString(s) {
		return str, ErrInvalidUTF8
	}
	err := str.appendUnits(s)
	return str, err
}

// StringFromBytes is like [StringFrom] for a byte slice.
func StringFromBytes[A any](b []byte) (String[A], error) {
	var str String[A]
	if !utf8.Valid(b) {
		return str, ErrInvalidUTF8
	}
	units := str.units.slots()
	if len(b) > len(units) {
		return str, ErrCapacityExceeded
	}
	str.units.n = uint64(copy(units, b))
	return str, nil
}

// appendUnits copies s behind the current content if it fits.
func (s *String[A]) appendUnits(text string) error {
	units := s.units.slots()
	n := int(s.units.n)
	if len(text) > len(units)-n {
		return ErrCapacityExceeded
	}
	s.units.n += uint64(copy(units[n:], text))
	return nil
}

// TryAppendUTF8 appends text after validating it.
// Returns ErrInvalidUTF8 or ErrCapacityExceeded; the string is unchanged on error.
func (s *String[A]) TryAppendUTF8(text string) error {
	if !utf8.ValidString(text) {
		return ErrInvalidUTF8
	}
	return s.appendUnits(text)
}

// TryAppendUTF8Unchecked appends text without validating it.
// The caller guarantees text is valid UTF-8. Only capacity is checked.
func (s *String[A]) TryAppendUTF8Unchecked(text string) error {
	return s.appendUnits(text)
}

// TryPushBack appends a single code unit.
// Only ASCII code units are accepted, since any other single byte would
// leave an incomplete or invalid sequence.
func (s *String[A]) TryPushBack(c byte) error {
	if c >= utf8.RuneSelf {
		return ErrInvalidUTF8
	}
	return s.units.TryPushBack(c)
}

// TryPopBack removes the last code point.
// Returns ErrEmpty if the string is empty.
func (s *String[A]) TryPopBack() error {
	if s.units.n == 0 {
		return ErrEmpty
	}
	_, size := utf8.DecodeLastRune(s.units.Values())
	n := int(s.units.n)
	return s.units.TryEraseRange(n-size, n)
}

// UncheckedCodeUnits gives mutable access to the underlying code units,
// for example to erase a byte range. The caller must keep the content
// valid UTF-8; no validation happens afterwards.
func (s *String[A]) UncheckedCodeUnits() *Vec[byte, A] {
	return &s.units
}

// Bytes returns the code units as a slice aliasing the inline storage.
func (s *String[A]) Bytes() []byte {
	return s.units.Values()
}

// String returns a copy of the content.
func (s *String[A]) String() string {
	return string(s.units.Values())
}

// Len returns the number of code units.
func (s *String[A]) Len() int {
	return s.units.Len()
}

// Cap returns the capacity in code units.
func (s *String[A]) Cap() int {
	return s.units.Cap()
}

// IsEmpty reports whether the string has no code units.
func (s *String[A]) IsEmpty() bool {
	return s.units.IsEmpty()
}

// Valid reports whether the content is valid UTF-8.
// Only unchecked mutations can make it false.
func (s *String[A]) Valid() bool {
	return utf8.Valid(s.units.Values())
}

// Equal reports whether both strings hold the same code units.
func (s *String[A]) Equal(other *String[A]) bool {
	return s.units.Equal(&other.units)
}

// EqualString reports whether the content equals text.
func (s *String[A]) EqualString(text string) bool {
	return string(s.units.Values()) == text
}

// Layout reports the in-memory layout of the string type.
func (s *String[A]) Layout() Layout {
	return s.units.Layout()
}
