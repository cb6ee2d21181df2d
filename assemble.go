package gpuext

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// moduleSuffix is the loadable-module extension used by the host build
// convention.
const moduleSuffix = ".so"

// CompileError reports that one source file failed to compile. The underlying
// compiler's error is wrapped unchanged.
type CompileError struct {
	Source string
	Err    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s: %v", e.Source, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// LinkError reports that the final link failed after every compile succeeded.
type LinkError struct {
	Module string
	Err    error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link %s: %v", e.Module, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }

// Assembler drives the compiler dispatcher across a build plan and links the
// resulting objects into one extension module.
type Assembler struct {
	// Toolchain performs the compile and link steps. Required.
	Toolchain Toolchain

	// OnCompiled, when set, is called after each successful compile.
	// Used for progress reporting.
	OnCompiled func(unit CompileUnit)
}

// Assemble compiles every source in the plan, in plan order, and links the
// objects into <OutDir>/<ModuleName>.so.
//
// Compilation is fail-fast: the first failing source aborts the build as a
// *CompileError and the remaining sources are never compiled, since object
// files cannot be usefully partially linked when one translation unit is
// broken. A failed link after successful compiles returns a *LinkError. The
// returned BuildResult always carries whatever objects were produced.
func (a *Assembler) Assemble(ctx context.Context, plan *BuildPlan) (*BuildResult, error) {
	result := &BuildResult{}

	if err := os.MkdirAll(plan.OutDir, 0o755); err != nil {
		result.Error = err
		return result, err
	}

	dispatcher := NewCompilerDispatcher(a.Toolchain, plan)

	for _, src := range plan.Sources {
		unit := CompileUnit{
			Source: src.Path,
			Object: objectPath(plan.OutDir, src.Path),
		}

		if err := dispatcher.CompileOne(ctx, unit); err != nil {
			compileErr := &CompileError{Source: src.Path, Err: err}
			result.Error = compileErr
			return result, compileErr
		}

		result.Objects = append(result.Objects, unit.Object)
		if a.OnCompiled != nil {
			a.OnCompiled(unit)
		}
	}

	modulePath := filepath.Join(plan.OutDir, plan.ModuleName+moduleSuffix)
	linkOpts := LinkOptions{
		Output:         modulePath,
		LibraryDirs:    plan.LibraryDirs,
		RuntimeLibDirs: plan.RuntimeLibDirs,
		Libraries:      plan.Libraries,
		ExtraArgs:      plan.LinkArgs,
	}

	if err := a.Toolchain.Link(ctx, result.Objects, linkOpts); err != nil {
		linkErr := &LinkError{Module: modulePath, Err: err}
		result.Error = linkErr
		return result, linkErr
	}

	result.Success = true
	result.ModulePath = modulePath
	return result, nil
}

// objectPath derives the object-file path for one source under outDir.
// Objects are flattened to base names; the fixed source lists keep those
// unique.
func objectPath(outDir, source string) string {
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outDir, base+".o")
}
