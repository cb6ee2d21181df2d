package gpuext

// SourceFile pairs one source path with the language kind detected from its
// extension. The plan's source list is ordered; the Assembler compiles it
// strictly in list order.
type SourceFile struct {
	Path string
	Kind SourceKind
}

// CompileUnit is the transient per-file unit handed to the toolchain: one
// source file and the object file it compiles to. A unit is created and
// discarded per compile call; it is never stored in the plan.
type CompileUnit struct {
	Source string // Path of the source file
	Object string // Path the object file is written to
}

// BuildResult contains the outcome of one extension assembly.
//
// After an assembly completes, this structure provides:
//   - Success status indicating if compile and link both completed
//   - ModulePath of the linked extension module (set only on success)
//   - Objects produced before the build finished or aborted
//   - Error information if the build failed
type BuildResult struct {
	Success    bool     // True if every compile and the link succeeded
	ModulePath string   // Path to the linked module, empty on failure
	Objects    []string // Object files produced, in compile order
	Error      error    // *CompileError or *LinkError on failure, nil otherwise
}
