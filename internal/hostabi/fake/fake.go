// Package fake is a deterministic, in-memory stand-in for the host DBI
// framework, used only by this module's own tests. No production embedder
// ships with this core; a real host provides its own hostabi
// implementation backed by its instruction decoder and TLS allocator.
package fake

import (
	"fmt"
	"sync"

	"github.com/dbicore/regcore/internal/hostabi"
	"github.com/dbicore/regcore/internal/instr"
)

// Insn is a literal, field-driven AppInsn used to author test blocks
// without a real decoder, mirroring how the teacher's own tests construct
// lir.Insn literals rather than decoding real bytes.
type Insn struct {
	Name      string
	Reads     []instr.Reg
	WritesEx  []instr.Reg // full-width writes
	WritesPar []instr.Reg // partial writes
	CondRegs  []instr.Reg // writes in WritesEx/WritesPar that are predicated
	MemRegs   []instr.Reg // registers used as memory addressing
	FlagsR    instr.FlagSet
	FlagsW    instr.FlagSet
	CtrlXfer  bool

	ReadsXMM   map[instr.Reg]instr.Width
	WritesXMMx map[instr.Reg]instr.Width // exact
	WritesXMMp map[instr.Reg]instr.Width // partial
}

func has(set []instr.Reg, r instr.Reg) bool {
	for _, x := range set {
		if x == r {
			return true
		}
	}
	return false
}

func (i Insn) ReadsReg(r instr.Reg) bool            { return has(i.Reads, r) }
func (i Insn) WritesRegExact(r instr.Reg) bool       { return has(i.WritesEx, r) }
func (i Insn) WritesRegPartial(r instr.Reg) bool     { return has(i.WritesPar, r) }
func (i Insn) ConditionallyWrites(r instr.Reg) bool  { return has(i.CondRegs, r) }
func (i Insn) ReferencesMem(r instr.Reg) bool        { return has(i.MemRegs, r) }
func (i Insn) FlagsRead() instr.FlagSet              { return i.FlagsR }
func (i Insn) FlagsWritten() instr.FlagSet           { return i.FlagsW }
func (i Insn) IsControlTransfer() bool               { return i.CtrlXfer }

func (i Insn) ReadsSIMD(r instr.Reg) (instr.Width, bool) {
	w, ok := i.ReadsXMM[r]
	return w, ok
}

func (i Insn) WritesSIMDExact(r instr.Reg) (instr.Width, bool) {
	w, ok := i.WritesXMMx[r]
	return w, ok
}

func (i Insn) WritesSIMDPartial(r instr.Reg) (instr.Width, bool) {
	w, ok := i.WritesXMMp[r]
	return w, ok
}

var _ hostabi.AppInsn = Insn{}

// Block is a literal basic block of fake instructions plus a capture of
// whatever the mediator inserts around them, so tests can assert on the
// exact emitted sequence (spec.md §4.5's ordering rule).
type Block struct {
	mu       sync.Mutex
	insns    []hostabi.AppInsn
	before   map[int][]instr.Emitted
	after    map[int][]instr.Emitted
	internal bool
}

func NewBlock(insns ...hostabi.AppInsn) *Block {
	return &Block{insns: insns, before: map[int][]instr.Emitted{}, after: map[int][]instr.Emitted{}}
}

func (b *Block) Instructions() []hostabi.AppInsn { return b.insns }

func (b *Block) InsertBefore(at int, emitted []instr.Emitted) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if at < 0 || at >= len(b.insns) {
		return fmt.Errorf("fake: InsertBefore out of range at=%d len=%d", at, len(b.insns))
	}
	b.before[at] = append(b.before[at], emitted...)
	return nil
}

func (b *Block) InsertAfter(at int, emitted []instr.Emitted) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if at < 0 || at >= len(b.insns) {
		return fmt.Errorf("fake: InsertAfter out of range at=%d len=%d", at, len(b.insns))
	}
	b.after[at] = append(b.after[at], emitted...)
	return nil
}

func (b *Block) ContainsInternalControlFlow() bool { return b.internal }
func (b *Block) SetInternalControlFlow(v bool)     { b.internal = v }

// Before/After return a copy of whatever was inserted at instruction index i,
// in emission order, for test assertions.
func (b *Block) Before(i int) []instr.Emitted { return append([]instr.Emitted(nil), b.before[i]...) }
func (b *Block) After(i int) []instr.Emitted  { return append([]instr.Emitted(nil), b.after[i]...) }

var _ hostabi.BlockHandle = (*Block)(nil)

// TLS is a process-memory stand-in for raw_tls_calloc: one contiguous slab
// per segment, freed on Free.
type TLS struct {
	mu       sync.Mutex
	segments map[int][]uint64
	next     int
}

func NewTLS() *TLS { return &TLS{segments: map[int][]uint64{}} }

func (t *TLS) Calloc(n int) (int, int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n <= 0 {
		return 0, 0, fmt.Errorf("fake: Calloc n must be positive, got %d", n)
	}
	t.next++
	t.segments[t.next] = make([]uint64, n)
	return t.next, 0, nil
}

func (t *TLS) Free(segment int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.segments[segment]; !ok {
		return fmt.Errorf("fake: Free unknown segment %d", segment)
	}
	delete(t.segments, segment)
	return nil
}

// Read returns the word at offset within segment. Production tests write
// through WriteForTest to set up fault-rewrite fixtures, since this fake
// has no real instruction stream driving stores into the slab.
func (t *TLS) Read(segment, offset int) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	slab, ok := t.segments[segment]
	if !ok || offset < 0 || offset >= len(slab) {
		return 0, fmt.Errorf("fake: Read out of range segment=%d offset=%d", segment, offset)
	}
	return slab[offset], nil
}

// WriteForTest sets the word at offset within segment, standing in for
// the store a real emitted spill instruction would perform.
func (t *TLS) WriteForTest(segment, offset int, v uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	slab, ok := t.segments[segment]
	if !ok || offset < 0 || offset >= len(slab) {
		return fmt.Errorf("fake: Write out of range segment=%d offset=%d", segment, offset)
	}
	slab[offset] = v
	return nil
}

var _ hostabi.RawTLSSlots = (*TLS)(nil)

// Predicate is a no-op PredicateState recorder used to assert that every
// multi-instruction emission batch saved and restored it exactly once.
type Predicate struct {
	SaveCount, RestoreCount int
}

func (p *Predicate) Save() any {
	p.SaveCount++
	return p.SaveCount
}
func (p *Predicate) ForceUnconditional()  {}
func (p *Predicate) Restore(saved any) { p.RestoreCount++ }

var _ hostabi.PredicateState = (*Predicate)(nil)

// HostSlots is a literal stand-in for the host framework's own
// non-preserved scratch-slot storage: a flat offset space disjoint from
// anything SlotStore owns.
type HostSlots struct {
	Base int // offset the first host slot index resolves to.
}

func (h HostSlots) Offset(hostSlotIndex int) int { return h.Base + hostSlotIndex }

func (h HostSlots) InRange(displacement int) (int, bool) {
	if displacement < h.Base {
		return 0, false
	}
	return displacement - h.Base, true
}

var _ hostabi.HostScratchSlots = HostSlots{}

// Context is a literal MachineContext: a scripted instruction stream
// (DecodeScript) plus a plain register/flags file, letting fault-rewrite
// tests assert on the exact recovered values without a real decoder.
type Context struct {
	Fault   uintptr
	Start   uintptr
	Script  []ScriptedInsn
	gpr     map[instr.Reg]uint64
	simd    map[instr.Reg][16]byte
	flags   uint64
}

// ScriptedInsn pairs one decoded emission with its size in the fragment,
// so DecodeAt can walk the script purely by offset from Start.
type ScriptedInsn struct {
	Emitted instr.Emitted
	AppInsn hostabi.AppInsn
	Size    int
}

func NewContext(start, fault uintptr, script []ScriptedInsn) *Context {
	return &Context{Start: start, Fault: fault, Script: script, gpr: map[instr.Reg]uint64{}, simd: map[instr.Reg][16]byte{}}
}

func (c *Context) FaultPC() uintptr        { return c.Fault }
func (c *Context) FragmentStart() uintptr  { return c.Start }
func (c *Context) GPR(r instr.Reg) uint64  { return c.gpr[r] }
func (c *Context) SetGPR(r instr.Reg, v uint64) { c.gpr[r] = v }
func (c *Context) SIMD128(r instr.Reg) [16]byte { return c.simd[r] }
func (c *Context) SetSIMD128(r instr.Reg, v [16]byte) { c.simd[r] = v }
func (c *Context) Flags() uint64        { return c.flags }
func (c *Context) SetFlags(v uint64)    { c.flags = v }

func (c *Context) DecodeAt(pc uintptr) (instr.Emitted, hostabi.AppInsn, int, bool) {
	offset := pc - c.Start
	var cursor uintptr
	for _, si := range c.Script {
		if cursor == offset {
			return si.Emitted, si.AppInsn, si.Size, true
		}
		cursor += uintptr(si.Size)
	}
	return nil, nil, 0, false
}

var _ hostabi.MachineContext = (*Context)(nil)
