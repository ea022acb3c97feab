// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package container

import (
	"fmt"
	"iter"
	"reflect"
	"strings"
	"unsafe"
)

// Vec is an ordered sequence with fixed capacity and inline storage.
// A must be the array type [N]T; N is the capacity.
//
// The zero value is an empty vector. Assignment copies the storage, so two
// vectors never share elements. Slots past Len are kept zeroed, which makes
// == on two values of the same Vec type agree with [Vec.Equal].
type Vec[T comparable, A any] struct {
	data A
	n    uint64
}

// slots views the inline storage as a slice of capacity length.
// Panics if A is not an array of T.
func (v *Vec[T, A]) slots() []T {
	return unsafe.Slice((*T)(unsafe.Pointer(&v.data)), capacityOf[T, A]())
}

// capacityOf returns N for A = [N]T.
func capacityOf[T, A any]() int {
	at := reflect.TypeFor[A]()
	if at.Kind() != reflect.Array || at.Elem() != reflect.TypeFor[T]() {
		panic("container: storage type " + at.String() + " is not an array of " + reflect.TypeFor[T]().String())
	}
	return at.Len()
}

// VecFrom creates a vector holding copies of elems.
// Returns ErrCapacityExceeded if len(elems) exceeds the capacity.
func VecFrom[T comparable, A any](elems ...T) (Vec[T, A], error) {
	var v Vec[T, A]
	s := v.slots()
	if len(elems) > len(s) {
		return v, ErrCapacityExceeded
	}
	v.n = uint64(copy(s, elems))
	return v, nil
}

// VecFromValue creates a vector holding count copies of value.
// Returns ErrCapacityExceeded if count exceeds the capacity.
func VecFromValue[T comparable, A any](count int, value T) (Vec[T, A], error) {
	var v Vec[T, A]
	s := v.slots()
	if count < 0 || count > len(s) {
		return v, ErrCapacityExceeded
	}
	for i := range count {
		s[i] = value
	}
	v.n = uint64(count)
	return v, nil
}

// Len returns the number of live elements.
func (v *Vec[T, A]) Len() int {
	return int(v.n)
}

// Cap returns the fixed capacity N.
func (v *Vec[T, A]) Cap() int {
	return capacityOf[T, A]()
}

// IsEmpty reports whether the vector holds no elements.
func (v *Vec[T, A]) IsEmpty() bool {
	return v.n == 0
}

// IsFull reports whether the vector is at capacity.
func (v *Vec[T, A]) IsFull() bool {
	return int(v.n) == v.Cap()
}

// TryPushBack appends value.
// Returns ErrCapacityExceeded if the vector is full.
func (v *Vec[T, A]) TryPushBack(value T) error {
	s := v.slots()
	if int(v.n) == len(s) {
		return ErrCapacityExceeded
	}
	s[v.n] = value
	v.n++
	return nil
}

// TryPopBack removes the last element.
// Returns ErrEmpty if the vector is empty.
func (v *Vec[T, A]) TryPopBack() error {
	if v.n == 0 {
		return ErrEmpty
	}
	var zero T
	v.n--
	v.slots()[v.n] = zero
	return nil
}

// TryInsertAt inserts value at index, shifting later elements right.
// index may equal Len, which appends.
func (v *Vec[T, A]) TryInsertAt(index int, value T) error {
	s := v.slots()
	n := int(v.n)
	if index < 0 || index > n {
		return ErrIndexOutOfRange
	}
	if n == len(s) {
		return ErrCapacityExceeded
	}
	copy(s[index+1:n+1], s[index:n])
	s[index] = value
	v.n++
	return nil
}

// TryEraseAt removes the element at index and shifts later elements left,
// preserving order.
// Returns ErrIndexOutOfRange if index is not the index of a live element.
func (v *Vec[T, A]) TryEraseAt(index int) error {
	n := int(v.n)
	if index < 0 || index >= n {
		return ErrIndexOutOfRange
	}
	return v.TryEraseRange(index, index+1)
}

// TryEraseRange removes the elements in [start, end) and shifts the
// remainder left. An empty range (start == end) is a no-op.
// Returns ErrIndexOutOfRange if start > end or end > Len.
func (v *Vec[T, A]) TryEraseRange(start, end int) error {
	n := int(v.n)
	if start < 0 || start > end || end > n {
		return ErrIndexOutOfRange
	}
	if start == end {
		return nil
	}
	s := v.slots()
	copy(s[start:], s[end:n])
	m := n - (end - start)
	clear(s[m:n])
	v.n = uint64(m)
	return nil
}

// Clear removes all elements.
func (v *Vec[T, A]) Clear() {
	clear(v.slots()[:v.n])
	v.n = 0
}

// ElementAt returns a pointer to the element at index.
// Returns (nil, false) if index is not the index of a live element.
// The pointer is valid until the next mutation of the vector.
func (v *Vec[T, A]) ElementAt(index int) (*T, bool) {
	if index < 0 || index >= int(v.n) {
		return nil, false
	}
	return &v.slots()[index], true
}

// Front returns a pointer to the first element, or (nil, false) if empty.
func (v *Vec[T, A]) Front() (*T, bool) {
	return v.ElementAt(0)
}

// Back returns a pointer to the last element, or (nil, false) if empty.
func (v *Vec[T, A]) Back() (*T, bool) {
	return v.ElementAt(int(v.n) - 1)
}

// Values returns the live elements as a slice aliasing the inline storage.
// The slice has no spare capacity, so append on it never writes into the vector.
func (v *Vec[T, A]) Values() []T {
	return v.slots()[:v.n:v.n]
}

// All iterates over index/value pairs of the live elements.
// The iterator may be heap allocated; range over Values in allocation-free
// loops.
func (v *Vec[T, A]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, e := range v.Values() {
			if !yield(i, e) {
				return
			}
		}
	}
}

// Equal reports whether v and other hold the same elements in the same order.
func (v *Vec[T, A]) Equal(other *Vec[T, A]) bool {
	if v.n != other.n {
		return false
	}
	a, b := v.Values(), other.Values()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// String formats the vector for debugging.
func (v *Vec[T, A]) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Vec::<%d> { len: %d, data: [ ", v.Cap(), v.n)
	values := v.Values()
	for i := range values {
		if i > 0 {
			b.WriteString(", ")
		}
		// Element types such as String format through pointer receivers.
		if s, ok := any(&values[i]).(fmt.Stringer); ok {
			b.WriteString(s.String())
			continue
		}
		fmt.Fprint(&b, values[i])
	}
	b.WriteString(" ] }")
	return b.String()
}

// Layout reports the in-memory layout of the vector type.
func (v *Vec[T, A]) Layout() Layout {
	return Layout{
		Size:        unsafe.Sizeof(*v),
		Align:       unsafe.Alignof(*v),
		DataSize:    unsafe.Sizeof(v.data),
		DataOffset:  unsafe.Offsetof(v.data),
		LenSize:     unsafe.Sizeof(v.n),
		LenOffset:   unsafe.Offsetof(v.n),
		LenUnsigned: true,
	}
}
