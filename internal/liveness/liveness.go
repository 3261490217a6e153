// Package liveness implements the backward per-block liveness scan and the
// forward single-value scan of spec.md §4.1: a single-pass fixpoint over
// GPRs (3-state), SIMD registers (a six-level lattice plus Unknown), and
// arithmetic flags (a read-before-written bitset). Adapted from the
// interval-building pass of the teacher's linear-scan allocator,
// generalized from per-variable intervals to per-position vectors.
package liveness

import (
	"github.com/dbicore/regcore/internal/hostabi"
	"github.com/dbicore/regcore/internal/instr"
)

// GPRState is the 3-state GPR liveness lattice. Unknown is only valid
// outside the block-scanning path (spec.md §3).
type GPRState int

const (
	Dead GPRState = iota
	Live
	Unknown
)

func (s GPRState) String() string {
	switch s {
	case Dead:
		return "dead"
	case Live:
		return "live"
	default:
		return "unknown"
	}
}

// SIMDState is the six-level lattice `xmm_dead < ymm_dead < zmm_dead <
// xmm_live < ymm_live < zmm_live`, ordered so a join is a monotone max.
type SIMDState int

const (
	XMMDead SIMDState = iota
	YMMDead
	ZMMDead
	XMMLive
	YMMLive
	ZMMLive
	SIMDUnknown
)

func (s SIMDState) IsLive() bool { return s == XMMLive || s == YMMLive || s == ZMMLive }

func liveLevel(w instr.Width) SIMDState {
	switch w {
	case instr.Width256:
		return YMMLive
	case instr.Width512:
		return ZMMLive
	default:
		return XMMLive
	}
}

// deadenAt applies the exact-width death rule of spec.md §4.1: a zmm-exact
// write always deadens; a ymm-exact write deadens unless prior is exactly
// zmm_dead; an xmm-exact write deadens only when prior was live.
func deadenAt(w instr.Width, prior SIMDState) (SIMDState, bool) {
	switch w {
	case instr.Width512:
		return ZMMDead, true
	case instr.Width256:
		if prior <= YMMDead || prior >= XMMLive {
			return YMMDead, true
		}
		return prior, false
	default:
		if prior >= XMMLive {
			return XMMDead, true
		}
		return prior, false
	}
}

// Vectors holds the per-block, per-position liveness lattices plus the
// app-use counters the Reserver's "least-used live register" step (spec.md
// §4.3 step 3) needs. Index 0 is the block's first instruction.
type Vectors struct {
	Layout instr.Layout
	N      int

	gpr      [][]GPRState  // gpr[gprIndex][pos]
	simd     [][]SIMDState // simd[simdIndex][pos]
	flags    []instr.FlagSet
	useCount []int // per-GPR app-read count across the whole block
}

// ExitState seeds the liveness at the block's exit edge, since cross-block
// liveness propagation is an external concern (spec.md §1 OUT OF SCOPE).
// A nil ExitState is treated as fully dead / no flags read, the safe
// default when the host does not supply successor-block information.
type ExitState struct {
	GPR   map[instr.Reg]GPRState
	SIMD  map[instr.Reg]SIMDState
	Flags instr.FlagSet
}

func (e *ExitState) gprAt(r instr.Reg) GPRState {
	if e == nil || e.GPR == nil {
		return Dead
	}
	if s, ok := e.GPR[r]; ok {
		return s
	}
	return Dead
}

func (e *ExitState) simdAt(r instr.Reg) SIMDState {
	if e == nil || e.SIMD == nil {
		return XMMDead
	}
	if s, ok := e.SIMD[r]; ok {
		return s
	}
	return XMMDead
}

func (e *ExitState) flags() instr.FlagSet {
	if e == nil {
		return 0
	}
	return e.Flags
}

// ScanBackward performs the single reverse pass over insns that produces a
// complete Vectors: a fixpoint because, scanned in reverse, each register's
// state at position i is a pure function of its state at i+1 and the
// effect of instruction i (spec.md §4.1 rationale).
func ScanBackward(layout instr.Layout, insns []hostabi.AppInsn, exit *ExitState) *Vectors {
	n := len(insns)
	v := &Vectors{
		Layout:   layout,
		N:        n,
		gpr:      make([][]GPRState, layout.NumGPR),
		simd:     make([][]SIMDState, layout.NumSIMD),
		flags:    make([]instr.FlagSet, n),
		useCount: make([]int, layout.NumGPR),
	}
	for r := 0; r < layout.NumGPR; r++ {
		v.gpr[r] = make([]GPRState, n)
	}
	for r := 0; r < layout.NumSIMD; r++ {
		v.simd[r] = make([]SIMDState, n)
	}

	prevGPR := make([]GPRState, layout.NumGPR)
	prevSIMD := make([]SIMDState, layout.NumSIMD)
	for r := 0; r < layout.NumGPR; r++ {
		prevGPR[r] = exit.gprAt(instr.Reg(r))
	}
	for r := 0; r < layout.NumSIMD; r++ {
		prevSIMD[r] = exit.simdAt(instr.Reg(r))
	}
	prevFlags := exit.flags()

	for i := n - 1; i >= 0; i-- {
		insn := insns[i]

		for r := 0; r < layout.NumGPR; r++ {
			reg := instr.Reg(r)
			var next GPRState
			switch {
			case insn.ReadsReg(reg):
				next = Live
				v.useCount[r]++
			case insn.WritesRegExact(reg):
				next = Dead
			case insn.IsControlTransfer():
				next = Live
			default:
				next = prevGPR[r]
			}
			v.gpr[r][i] = next
			prevGPR[r] = next
		}

		for r := 0; r < layout.NumSIMD; r++ {
			reg := instr.Reg(r)
			next := computeSIMD(insn, reg, prevSIMD[r])
			v.simd[r][i] = next
			prevSIMD[r] = next
		}

		next := computeFlags(insn, prevFlags)
		v.flags[i] = next
		prevFlags = next
	}

	return v
}

func computeSIMD(insn hostabi.AppInsn, r instr.Reg, prior SIMDState) SIMDState {
	if insn.IsControlTransfer() {
		return ZMMLive
	}
	next := prior
	if w, ok := insn.WritesSIMDExact(r); ok {
		if d, changed := deadenAt(w, prior); changed {
			next = d
		}
	}
	if w, ok := insn.ReadsSIMD(r); ok {
		if live := liveLevel(w); live > next {
			next = live
		}
	}
	return next
}

func computeFlags(insn hostabi.AppInsn, prior instr.FlagSet) instr.FlagSet {
	if insn.IsControlTransfer() {
		return instr.AllFlags
	}
	r := insn.FlagsRead()
	w := insn.FlagsWritten()
	return prior.Union(r).Minus(w.Minus(r))
}

// GPRAt returns the liveness of r immediately before instruction pos.
func (v *Vectors) GPRAt(r instr.Reg, pos int) GPRState { return v.gpr[v.Layout.GPRIndex(r)][pos] }

// SIMDAt returns the SIMD lattice state of r (widened to its canonical
// index) immediately before instruction pos.
func (v *Vectors) SIMDAt(r instr.Reg, pos int) SIMDState {
	return v.simd[v.Layout.SIMDIndex(r)][pos]
}

// FlagsAt returns the set of arithmetic flags read-before-written from pos
// to the block's end.
func (v *Vectors) FlagsAt(pos int) instr.FlagSet { return v.flags[pos] }

// UseCount returns how many times r is read by an application instruction
// across the whole block, feeding the Reserver's least-used-live tie-break.
func (v *Vectors) UseCount(r instr.Reg) int { return v.useCount[v.Layout.GPRIndex(r)] }

// IsLastInsn reports whether pos is the block's final instruction index.
func (v *Vectors) IsLastInsn(pos int) bool { return pos == v.N-1 }
