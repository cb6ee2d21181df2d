package gpuext

import (
	"context"
	"fmt"
)

// SourceKind classifies one source file by the compiler that must build it.
// The set of kinds is closed: every source is either a host translation unit
// or a GPU kernel.
type SourceKind int

const (
	// HostSource is a host-language (C++) translation unit built by the
	// default host compiler.
	HostSource SourceKind = iota

	// KernelSource is a GPU kernel translation unit built by the toolkit's
	// nvcc compiler.
	KernelSource
)

// kernelExtension marks a GPU kernel source.
const kernelExtension = ".cu"

func (k SourceKind) String() string {
	if k == KernelSource {
		return "kernel"
	}
	return "host"
}

// ClassifySource detects a file's source kind from its extension.
func ClassifySource(path string) SourceKind {
	if MatchesExtension(path, kernelExtension) {
		return KernelSource
	}
	return HostSource
}

type dispatchEntry struct {
	compiler string
	flags    []string
}

// CompilerDispatcher routes each source-file compile to the correct compiler
// binary and flag set.
//
// The underlying toolchain exposes one globally-configured compiler shared by
// every compile call in the build. The dispatcher treats that slot as a
// critical resource: the default host compiler is captured once at
// construction, swapped for the duration of one kernel compile, and restored
// on every exit path — including compile failure — so the next dispatch
// always starts from the default. Leaving the slot pointed at the GPU
// compiler would silently corrupt the next host-file compile.
type CompilerDispatcher struct {
	toolchain       Toolchain
	defaultCompiler string
	table           map[SourceKind]dispatchEntry
}

// NewCompilerDispatcher captures the toolchain's current compiler as the host
// default and builds the kind-to-(compiler, flags) dispatch table from the
// plan. The kernel route exists only when the plan carries a toolkit.
func NewCompilerDispatcher(toolchain Toolchain, plan *BuildPlan) *CompilerDispatcher {
	d := &CompilerDispatcher{
		toolchain:       toolchain,
		defaultCompiler: toolchain.Compiler(),
	}

	d.table = map[SourceKind]dispatchEntry{
		HostSource: {compiler: d.defaultCompiler, flags: plan.HostFlags},
	}
	if plan.Toolkit != nil {
		d.table[KernelSource] = dispatchEntry{compiler: plan.Toolkit.NVCC, flags: plan.GPUFlags}
	}

	return d
}

// CompileOne compiles a single unit with the compiler and flag set selected
// by the unit's source kind.
//
// A failure from the underlying compile step propagates unchanged after state
// restoration; the dispatcher never swallows a genuine compilation error, it
// only manages which tool receives the request.
func (d *CompilerDispatcher) CompileOne(ctx context.Context, unit CompileUnit) error {
	kind := ClassifySource(unit.Source)

	entry, ok := d.table[kind]
	if !ok {
		return fmt.Errorf("no %s compiler configured for %s", kind, unit.Source)
	}

	d.toolchain.SetCompiler(entry.compiler)
	defer d.toolchain.SetCompiler(d.defaultCompiler)

	return d.toolchain.Compile(ctx, unit, entry.flags)
}
