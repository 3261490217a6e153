//go:build linux || darwin

package slotstore

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// unixMem backs the indirect SIMD block with an anonymous mmap region.
// Page-granular mmap allocations are always a multiple of the 64-byte
// simdAlign, so no extra alignment arithmetic is needed on this path.
type unixMem struct {
	buf []byte
}

func allocAligned(size, align int) (alignedMem, error) {
	if size <= 0 {
		size = align
	}
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}
	return &unixMem{buf: buf}, nil
}

func (m *unixMem) addr() uintptr { return uintptr(unsafe.Pointer(&m.buf[0])) }

func (m *unixMem) bytes() []byte { return m.buf }

func (m *unixMem) release() error {
	return unix.Munmap(m.buf)
}
