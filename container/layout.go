// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package container

// Layout describes how a container type is placed in memory.
// Peers exchanging containers through shared memory compare layouts to
// detect incompatible builds.
type Layout struct {
	Size        uintptr
	Align       uintptr
	DataSize    uintptr
	DataOffset  uintptr
	LenSize     uintptr
	LenOffset   uintptr
	LenUnsigned bool
}
