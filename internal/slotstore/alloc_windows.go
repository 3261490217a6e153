//go:build windows

package slotstore

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// windowsMem backs the indirect SIMD block with a VirtualAlloc region,
// mirroring the teacher's Windows-specific allocation files for the
// asynchronous I/O subsystem, adapted here for a fixed-size aligned slab
// instead of a socket buffer.
type windowsMem struct {
	addrVal uintptr
	size    uintptr
}

func allocAligned(size, align int) (alignedMem, error) {
	if size <= 0 {
		size = align
	}
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, err
	}
	return &windowsMem{addrVal: addr, size: uintptr(size)}, nil
}

func (m *windowsMem) addr() uintptr { return m.addrVal }

func (m *windowsMem) bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(m.addrVal)), int(m.size))
}

func (m *windowsMem) release() error {
	return windows.VirtualFree(m.addrVal, 0, windows.MEM_RELEASE)
}
