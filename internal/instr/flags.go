package instr

// FlagSet is a bitset of the architectural arithmetic flags. Zero means
// "no flags referenced"; spec.md §3 uses the same zero-is-empty convention
// for the flags liveness state ("0 means all arithmetic flags are dead").
type FlagSet uint8

const (
	FlagCF FlagSet = 1 << iota // carry
	FlagPF                     // parity
	FlagAF                     // auxiliary carry
	FlagZF                     // zero
	FlagSF                     // sign
	FlagOF                     // overflow
)

// AllFlags is the full arithmetic-flags bitset, used when a control transfer
// forces liveness to "all read" (spec.md §4.1) or when a fault must
// reconstruct a full flags word.
const AllFlags = FlagCF | FlagPF | FlagAF | FlagZF | FlagSF | FlagOF

func (fs FlagSet) Has(f FlagSet) bool { return fs&f != 0 }
func (fs FlagSet) Union(o FlagSet) FlagSet    { return fs | o }
func (fs FlagSet) Minus(o FlagSet) FlagSet    { return fs &^ o }
func (fs FlagSet) Intersect(o FlagSet) FlagSet { return fs & o }
func (fs FlagSet) Empty() bool                { return fs == 0 }
