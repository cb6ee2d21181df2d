// Package gpuext orchestrates the build of mixed C++/CUDA native extension
// modules.
//
// The package implements a conditional multi-toolchain build pipeline: given
// host-language sources and GPU kernel sources, it selects the correct
// compiler per source file, assembles toolchain-specific flags, optionally
// discovers and validates an installed CUDA toolkit, and produces one linked
// loadable module.
//
// # Pipeline
//
// A build runs as a strictly sequential pipeline:
//
//	FlagResolver ──► NewBuildPlan ◄── ToolkitLocator
//	                     │
//	                     ▼
//	               Assembler ──► CompilerDispatcher (once per source)
//
//  1. Feature flags are resolved once from the environment (WITH_CUDA, TRACE).
//  2. If CUDA support is enabled, the ToolkitLocator discovers and validates
//     the CUDA installation.
//  3. NewBuildPlan computes the immutable BuildPlan: sources, host and GPU
//     flag lists, include/library directories, and link libraries.
//  4. The Assembler drives the CompilerDispatcher across every source in
//     plan order and links the resulting objects into one module.
//
// # Basic Usage
//
//	resolver := &gpuext.FlagResolver{}
//	cuda := resolver.Resolve(gpuext.FlagCUDA,
//	    "Compiling with CUDA support",
//	    "Compiling without CUDA support. To enable CUDA use:")
//	trace := resolver.Resolve(gpuext.FlagTrace, "", "")
//
//	opts := gpuext.PlanOptions{CUDA: cuda, Trace: trace}
//	if cuda.Enabled {
//	    toolkit, err := (&gpuext.ToolkitLocator{}).Locate()
//	    if err != nil {
//	        return err
//	    }
//	    opts.Toolkit = toolkit
//	}
//
//	plan := gpuext.NewBuildPlan(opts)
//	toolchain := gpuext.NewExecToolchain(gpuext.DefaultHostCompiler(), plan.IncludeDirs)
//	result, err := (&gpuext.Assembler{Toolchain: toolchain}).Assemble(ctx, plan)
//
// # Compiler Dispatch
//
// The underlying toolchain abstraction only exposes "compile this one file"
// with one globally-configured compiler executable. The CompilerDispatcher
// treats that slot as a critical resource: the default host compiler is
// captured once, swapped to the toolkit's nvcc for kernel sources, and
// restored on every exit path including compile failure.
//
// # Error Kinds
//
// All build errors are fatal to the current invocation and never retried:
//   - *ToolkitNotFoundError - no candidate installation root was discovered
//   - *ToolkitInvalidError  - a root was found but a required sub-path is missing
//   - *CompileError         - one source failed to compile (build aborts fail-fast)
//   - *LinkError            - the final link failed
//
// Flag resolution never errors; an absent environment variable is a valid
// disabled configuration.
//
// # Requirements
//
// Requires Go 1.25 or later.
package gpuext
