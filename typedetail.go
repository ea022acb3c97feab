// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reqresp

import (
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/cespare/xxhash/v2"
)

// TypeNamer is implemented by payload types that carry a stable type
// identifier shared by every peer of a service.
type TypeNamer interface {
	TypeName() string
}

// TypeDetails identifies a payload type across peers.
// Two peers agree on a payload when all fields are equal.
type TypeDetails struct {
	Name        string
	Size        uintptr
	Align       uintptr
	Fingerprint uint64
}

func (d TypeDetails) String() string {
	return fmt.Sprintf("%s (size %d, align %d, layout %016x)", d.Name, d.Size, d.Align, d.Fingerprint)
}

// detailsOf computes the type details of T.
// Returns ErrUnsupportedPayload if T holds references to memory outside
// itself, which cannot be placed in a shared slot.
func detailsOf[T any]() (TypeDetails, error) {
	t := reflect.TypeFor[T]()
	if err := checkSelfContained(t); err != nil {
		return TypeDetails{}, fmt.Errorf("%w: %s: %w", ErrUnsupportedPayload, t, err)
	}
	var zero T
	name := t.String()
	if tn, ok := any(zero).(TypeNamer); ok {
		name = tn.TypeName()
	} else if tn, ok := any(&zero).(TypeNamer); ok {
		name = tn.TypeName()
	}
	d := xxhash.New()
	writeLayout(d, t)
	return TypeDetails{
		Name:        name,
		Size:        t.Size(),
		Align:       uintptr(t.Align()),
		Fingerprint: d.Sum64(),
	}, nil
}

func checkSelfContained(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Array:
		return checkSelfContained(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			f := t.Field(i)
			if err := checkSelfContained(f.Type); err != nil {
				return fmt.Errorf("field %s: %w", f.Name, err)
			}
		}
		return nil
	case reflect.Pointer, reflect.UnsafePointer, reflect.Slice, reflect.Map, reflect.String,
		reflect.Interface, reflect.Chan, reflect.Func:
		return fmt.Errorf("%s kind %s", t, t.Kind())
	}
	return nil
}

// writeLayout hashes the memory layout of t: kinds, sizes, alignments,
// field offsets and array lengths. Field and type names do not contribute.
func writeLayout(d *xxhash.Digest, t reflect.Type) {
	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = d.Write(buf[:])
	}
	put(uint64(t.Kind()))
	put(uint64(t.Size()))
	put(uint64(t.Align()))
	switch t.Kind() {
	case reflect.Array:
		put(uint64(t.Len()))
		writeLayout(d, t.Elem())
	case reflect.Struct:
		put(uint64(t.NumField()))
		for i := range t.NumField() {
			f := t.Field(i)
			put(uint64(f.Offset))
			writeLayout(d, f.Type)
		}
	}
}
