package gpuext

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Toolchain is the external abstraction the orchestrator drives: compile one
// source file, link a set of objects.
//
// Implementations hold one mutable active-compiler slot that is shared by
// every compile call in the same build. The CompilerDispatcher owns the
// save/swap/restore discipline around that slot; nothing else may touch it
// while a build is running.
type Toolchain interface {
	// Compiler returns the currently active compiler executable.
	Compiler() string

	// SetCompiler replaces the active compiler executable.
	SetCompiler(path string)

	// Compile builds one unit's object file with the given flags.
	Compile(ctx context.Context, unit CompileUnit, flags []string) error

	// Link combines the object files into one loadable module.
	Link(ctx context.Context, objects []string, opts LinkOptions) error
}

// LinkOptions carry the plan-level link inputs.
type LinkOptions struct {
	Output         string   // Path of the linked module
	LibraryDirs    []string // -L search directories
	RuntimeLibDirs []string // rpath entries baked into the module
	Libraries      []string // -l names
	ExtraArgs      []string // Trailing link arguments
}

// ExecToolchain drives real compiler processes via os/exec.
//
// It is not safe for concurrent use: the active-compiler slot is process-wide
// mutable state by design, matching the single-threaded pipeline.
type ExecToolchain struct {
	compiler    string
	linker      string
	includeDirs []string
	env         []string
}

// NewExecToolchain returns a toolchain whose compile and link steps run
// external compiler processes. The linker is pinned to hostCompiler and does
// not follow SetCompiler swaps, so a module is always linked by the host
// toolchain. The include directories are passed to every compile.
func NewExecToolchain(hostCompiler string, includeDirs []string) *ExecToolchain {
	if hostCompiler == "" {
		hostCompiler = DefaultHostCompiler()
	}

	return &ExecToolchain{
		compiler:    hostCompiler,
		linker:      hostCompiler,
		includeDirs: append([]string(nil), includeDirs...),
		env:         hostBuildEnv(),
	}
}

// DefaultHostCompiler returns the host C++ compiler: $CXX if set, otherwise
// "c++".
func DefaultHostCompiler() string {
	if cxx := os.Getenv("CXX"); cxx != "" {
		return cxx
	}
	return "c++"
}

// Compiler returns the active compiler executable.
func (t *ExecToolchain) Compiler() string { return t.compiler }

// SetCompiler replaces the active compiler executable.
func (t *ExecToolchain) SetCompiler(path string) { t.compiler = path }

// Compile runs the active compiler on one unit. The compiler's combined
// output is folded into the returned error on failure.
func (t *ExecToolchain) Compile(ctx context.Context, unit CompileUnit, flags []string) error {
	cmd := exec.CommandContext(ctx, t.compiler, compileArgs(unit, flags, t.includeDirs)...)
	cmd.Env = t.env

	output, err := cmd.CombinedOutput()
	if err != nil {
		return commandError(t.compiler, output, err)
	}
	return nil
}

// Link runs the pinned host linker over the objects.
func (t *ExecToolchain) Link(ctx context.Context, objects []string, opts LinkOptions) error {
	cmd := exec.CommandContext(ctx, t.linker, linkArgs(objects, opts)...)
	cmd.Env = t.env

	output, err := cmd.CombinedOutput()
	if err != nil {
		return commandError(t.linker, output, err)
	}
	return nil
}

// compileArgs assembles one compile invocation: flags first, then include
// directories, then the unit's source and object.
func compileArgs(unit CompileUnit, flags, includeDirs []string) []string {
	args := append([]string(nil), flags...)
	for _, dir := range includeDirs {
		args = append(args, "-I"+dir)
	}
	return append(args, "-c", unit.Source, "-o", unit.Object)
}

// linkArgs assembles one link invocation for a loadable module.
func linkArgs(objects []string, opts LinkOptions) []string {
	args := []string{"-shared"}
	args = append(args, objects...)
	args = append(args, "-o", opts.Output)
	for _, dir := range opts.LibraryDirs {
		args = append(args, "-L"+dir)
	}
	for _, dir := range opts.RuntimeLibDirs {
		args = append(args, "-Wl,-rpath,"+dir)
	}
	for _, lib := range opts.Libraries {
		args = append(args, "-l"+lib)
	}
	return append(args, opts.ExtraArgs...)
}

// hostBuildEnv returns the environment for compiler processes. On darwin the
// deployment target is pinned to the running OS version when not already
// set, which the host toolchain requires for loadable modules.
func hostBuildEnv() []string {
	env := os.Environ()
	if runtime.GOOS != "darwin" {
		return env
	}
	if os.Getenv("MACOSX_DEPLOYMENT_TARGET") != "" {
		return env
	}

	if out, err := exec.Command("sw_vers", "-productVersion").Output(); err == nil {
		if version := strings.TrimSpace(string(out)); version != "" {
			env = append(env, "MACOSX_DEPLOYMENT_TARGET="+version)
		}
	}
	return env
}
