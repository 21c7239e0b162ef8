package lox

import "io"

// VMOptions is the small, fixed set of toggles a VM instance needs,
// adapted from the teacher's string-keyed Config into a typed struct:
// a Lox VM has a known, closed set of options (unlike an extensible
// grammar-loader's settings surface), so a struct with sane zero
// values is the better fit for the same underlying idea — name a
// knob, give it a default, let callers override just the ones they
// care about.
type VMOptions struct {
	// Stdout receives everything `print` writes. Defaults to
	// os.Stdout when nil (set by NewVM).
	Stdout io.Writer

	// Stderr receives compile/runtime diagnostics. Defaults to
	// os.Stderr when nil (set by NewVM).
	Stderr io.Writer

	// InitialGCThreshold overrides the starting value for nextGC. Zero
	// means use the default (1 MiB).
	InitialGCThreshold int

	// StressGC, when true, runs a full collection on every allocation
	// growth instead of only when bytesAllocated exceeds nextGC —
	// useful for shaking out GC bugs in a debug build.
	StressGC bool

	// TraceExecution, when true, disassembles each instruction to
	// Stderr immediately before it executes.
	TraceExecution bool
}

func (o VMOptions) withDefaults() VMOptions {
	if o.InitialGCThreshold == 0 {
		o.InitialGCThreshold = 1 << 20 // 1 MiB
	}
	return o
}
