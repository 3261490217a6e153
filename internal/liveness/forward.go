package liveness

import (
	"github.com/dbicore/regcore/internal/hostabi"
	"github.com/dbicore/regcore/internal/instr"
)

// ForwardGPR scans forward from start until the first control transfer,
// producing the single liveness value spec.md §4.1 describes for
// reservations made outside the block-insertion phase (e.g. a client-side
// clean call). Anything indeterminate resolves to Live.
func ForwardGPR(insns []hostabi.AppInsn, start int, r instr.Reg) GPRState {
	for i := start; i < len(insns); i++ {
		insn := insns[i]
		if insn.ReadsReg(r) {
			return Live
		}
		if insn.WritesRegExact(r) {
			return Dead
		}
		if insn.IsControlTransfer() {
			return Live
		}
	}
	return Live
}

// ForwardSIMD is the SIMD analogue of ForwardGPR, stopping at the first
// control transfer or exact-width death and otherwise resolving to the
// most conservative live class.
func ForwardSIMD(insns []hostabi.AppInsn, start int, r instr.Reg) SIMDState {
	for i := start; i < len(insns); i++ {
		insn := insns[i]
		if w, ok := insn.ReadsSIMD(r); ok {
			return liveLevel(w)
		}
		if w, ok := insn.WritesSIMDExact(r); ok {
			if d, changed := deadenAt(w, XMMLive); changed {
				return d
			}
		}
		if insn.IsControlTransfer() {
			return ZMMLive
		}
	}
	return ZMMLive
}

// ForwardFlags computes which flags are read-before-written from start
// forward to the first control transfer (or the end of the available
// instruction window), masking first-reads with a running written set, per
// spec.md §4.1's forward-scan flag rule. Anything left undetermined when
// the scan stops is treated as read (Live), the conservative default.
func ForwardFlags(insns []hostabi.AppInsn, start int) instr.FlagSet {
	var read, written instr.FlagSet
	for i := start; i < len(insns); i++ {
		insn := insns[i]
		firstReads := insn.FlagsRead().Minus(written)
		read = read.Union(firstReads)
		written = written.Union(insn.FlagsWritten())
		if insn.IsControlTransfer() {
			read = read.Union(instr.AllFlags.Minus(written))
			return read
		}
	}
	read = read.Union(instr.AllFlags.Minus(written))
	return read
}
