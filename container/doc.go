// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package container provides fixed-capacity containers with inline storage,
// suitable as shared-memory payloads.
//
// Capacity is a property of the type: the storage parameter A is the array
// type [N]T that holds the elements in place. Mutations and element access
// never allocate; the iterator returned by [Vec.All] and the String methods
// may. Every fallible operation either applies completely or leaves the
// container unchanged.
//
//   - [Vec]: ordered sequence of up to N elements.
//   - [String]: UTF-8 text of up to N code units, built on [Vec].
//
// # Example
//
//	v, _ := container.VecFrom[int32, [10]int32](1, 2, 3, 4)
//	_ = v.TryPushBack(123)
//	s, _ := container.StringFrom[[64]byte]("Hello")
//	_ = s.TryAppendUTF8(", world")
package container
