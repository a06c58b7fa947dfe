// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package buffer

import (
	"unsafe"

	"github.com/finroc/finroc-go/internal"
)

// CacheLineSize is the CPU L1 cache line size for the current architecture.
const CacheLineSize = internal.CacheLineSize

// CacheLineAlignedMem returns a byte slice with the specified size and
// starting address aligned to the CPU cache line size.
//
// Used by newBanks (refcounter.go) so a RefCounter's banks start on a
// cache-line boundary: bank's own inline padding only separates banks
// from each other once the block they live in is itself aligned, and
// Go's allocator aligns heap objects to word size, not CacheLineSize.
func CacheLineAlignedMem(size int) []byte {
	align := uintptr(CacheLineSize)
	p := make([]byte, uintptr(size)+align-1)
	base := unsafe.Pointer(unsafe.SliceData(p))
	offset := ((uintptr(base)+align-1)/align)*align - uintptr(base)
	return unsafe.Slice((*byte)(unsafe.Add(base, offset)), size)
}
