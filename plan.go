package gpuext

import "fmt"

// Tunable numeric constants shared between the host and GPU compilers.
//
// Both compilers must agree on these values since they cross the ABI boundary
// between host code and kernel code, so NewBuildPlan injects them into both
// flag sets identically. They are named symbols so a future caller could
// derive its own defines from them, but the plan builder hard-codes the
// values and performs no range validation.
const (
	ChunkSize  = 262144
	NumThreads = 256
)

// ModuleName is the fixed identifier of the produced extension module.
const ModuleName = "rangelib"

// Fixed inputs of every build plan.
var (
	baseHostFlags   = []string{"-w", "-std=c++11", "-O3", "-fPIC"}
	baseGPUFlags    = []string{"-arch=sm_86", "--ptxas-options=-v", "--compiler-options", "-fPIC", "-w", "-std=c++11", "-O3"}
	baseSources     = []string{"rangelib.cpp", "vendor/lodepng/lodepng.cpp"}
	baseIncludeDirs = []string{".."}

	kernelSource = "includes/kernels.cu"

	gpuRuntimeLibrary = "cudart"
	systemLibDir      = "/usr/lib/x86_64-linux-gnu"
)

// PlanOptions are the resolved inputs of one build-plan computation.
type PlanOptions struct {
	// CUDA controls whether the GPU kernel source, the shared ABI defines
	// and the toolkit's include/lib requirements enter the plan.
	CUDA FeatureFlag

	// Trace controls the host-side trace instrumentation define. It never
	// touches the GPU flag set.
	Trace FeatureFlag

	// Toolkit must be non-nil when CUDA is enabled. NewBuildPlan assumes the
	// caller already ran the ToolkitLocator for an enabled CUDA flag.
	Toolkit *ToolkitConfig

	// Sources overrides the fixed host source list. Optional.
	Sources []string

	// OutDir is where objects and the linked module are placed.
	// Defaults to "build".
	OutDir string
}

// BuildPlan is the fully-resolved, immutable description of what to compile
// and how. It is computed once per build invocation from the resolved flags
// and toolkit state, and consumed by the Assembler.
type BuildPlan struct {
	ModuleName     string
	Sources        []SourceFile // Compiled strictly in this order
	HostFlags      []string     // Flags for host-language sources
	GPUFlags       []string     // Flags for kernel sources
	IncludeDirs    []string
	LibraryDirs    []string
	RuntimeLibDirs []string
	Libraries      []string
	LinkArgs       []string
	Toolkit        *ToolkitConfig // Nil unless CUDA support is enabled
	OutDir         string
}

// NewBuildPlan computes the build plan for the given resolved flags.
//
// Append order is deterministic: two invocations with identical options
// produce byte-identical flag lists, and directory/library sets never gain
// duplicates. NewBuildPlan panics if the CUDA flag is enabled and no toolkit
// was supplied; that is a contract violation in the caller, not a
// recoverable condition.
func NewBuildPlan(opts PlanOptions) *BuildPlan {
	sources := opts.Sources
	if len(sources) == 0 {
		sources = baseSources
	}

	plan := &BuildPlan{
		ModuleName:  ModuleName,
		HostFlags:   append([]string(nil), baseHostFlags...),
		GPUFlags:    append([]string(nil), baseGPUFlags...),
		IncludeDirs: append([]string(nil), baseIncludeDirs...),
		LinkArgs:    []string{"-std=c++11"},
		OutDir:      opts.OutDir,
	}
	if plan.OutDir == "" {
		plan.OutDir = "build"
	}

	for _, src := range sources {
		plan.Sources = append(plan.Sources, SourceFile{Path: src, Kind: ClassifySource(src)})
	}

	if opts.CUDA.Enabled {
		if opts.Toolkit == nil {
			panic("gpuext: CUDA flag enabled without a located toolkit")
		}

		defines := []string{
			"-DUSE_CUDA=1",
			fmt.Sprintf("-DCHUNK_SIZE=%d", ChunkSize),
			fmt.Sprintf("-DNUM_THREADS=%d", NumThreads),
		}
		plan.HostFlags = append(plan.HostFlags, defines...)
		plan.GPUFlags = append(plan.GPUFlags, defines...)

		plan.Sources = append(plan.Sources, SourceFile{Path: kernelSource, Kind: KernelSource})

		plan.Toolkit = opts.Toolkit
		plan.IncludeDirs = appendUnique(plan.IncludeDirs, opts.Toolkit.IncludeDir)
		plan.LibraryDirs = appendUnique(plan.LibraryDirs, opts.Toolkit.LibDir, systemLibDir)
		plan.RuntimeLibDirs = appendUnique(plan.RuntimeLibDirs, opts.Toolkit.LibDir)
		plan.Libraries = appendUnique(plan.Libraries, gpuRuntimeLibrary)
	}

	if opts.Trace.Enabled {
		plan.HostFlags = append(plan.HostFlags, "-D_MAKE_TRACE_MAP=1")
	}

	return plan
}
