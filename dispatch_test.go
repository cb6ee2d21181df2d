package gpuext

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type compileCall struct {
	compiler string
	unit     CompileUnit
	flags    []string
}

type linkCall struct {
	compiler string
	objects  []string
	opts     LinkOptions
}

// fakeToolchain records every compile and link call together with the
// compiler that was active when the call arrived.
type fakeToolchain struct {
	compiler    string
	compiles    []compileCall
	links       []linkCall
	failSources map[string]error
	linkErr     error
}

func newFakeToolchain() *fakeToolchain {
	return &fakeToolchain{compiler: "c++", failSources: map[string]error{}}
}

func (f *fakeToolchain) Compiler() string        { return f.compiler }
func (f *fakeToolchain) SetCompiler(path string) { f.compiler = path }

func (f *fakeToolchain) Compile(_ context.Context, unit CompileUnit, flags []string) error {
	f.compiles = append(f.compiles, compileCall{
		compiler: f.compiler,
		unit:     unit,
		flags:    append([]string(nil), flags...),
	})
	if err, ok := f.failSources[unit.Source]; ok {
		return err
	}
	return nil
}

func (f *fakeToolchain) Link(_ context.Context, objects []string, opts LinkOptions) error {
	f.links = append(f.links, linkCall{
		compiler: f.compiler,
		objects:  append([]string(nil), objects...),
		opts:     opts,
	})
	return f.linkErr
}

func TestClassifySource(t *testing.T) {
	testCases := []struct {
		path string
		kind SourceKind
	}{
		{"rangelib.cpp", HostSource},
		{"vendor/lodepng/lodepng.cpp", HostSource},
		{"scan.cc", HostSource},
		{"includes/kernels.cu", KernelSource},
		{"KERNELS.CU", KernelSource},
		{"kernels.cu.bak", HostSource},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			if kind := ClassifySource(tc.path); kind != tc.kind {
				t.Errorf("ClassifySource(%q) = %s, expected %s", tc.path, kind, tc.kind)
			}
		})
	}
}

func dispatchPlan(toolkit *ToolkitConfig) *BuildPlan {
	return &BuildPlan{
		ModuleName: ModuleName,
		HostFlags:  []string{"-w", "-O3"},
		GPUFlags:   []string{"-arch=sm_86"},
		Toolkit:    toolkit,
		OutDir:     "build",
	}
}

func TestDispatcherRestoresDefaultCompiler(t *testing.T) {
	toolchain := newFakeToolchain()
	plan := dispatchPlan(&ToolkitConfig{NVCC: "/cuda/bin/nvcc"})
	dispatcher := NewCompilerDispatcher(toolchain, plan)

	// After a kernel dispatch, the next host dispatch must see the default
	// compiler again.
	units := []CompileUnit{
		{Source: "host.cpp", Object: "host.o"},
		{Source: "kernel.cu", Object: "kernel.o"},
		{Source: "host2.cpp", Object: "host2.o"},
	}
	for _, unit := range units {
		if err := dispatcher.CompileOne(context.Background(), unit); err != nil {
			t.Fatalf("CompileOne(%s) returned error: %v", unit.Source, err)
		}
	}

	if len(toolchain.compiles) != 3 {
		t.Fatalf("expected 3 compiles, got %d", len(toolchain.compiles))
	}

	expected := []string{"c++", "/cuda/bin/nvcc", "c++"}
	for i, call := range toolchain.compiles {
		if call.compiler != expected[i] {
			t.Errorf("compile %d (%s): expected compiler %s, got %s",
				i, call.unit.Source, expected[i], call.compiler)
		}
	}

	if toolchain.Compiler() != "c++" {
		t.Errorf("active compiler not restored, got %s", toolchain.Compiler())
	}
}

func TestDispatcherRoutesFlagsByKind(t *testing.T) {
	toolchain := newFakeToolchain()
	plan := dispatchPlan(&ToolkitConfig{NVCC: "/cuda/bin/nvcc"})
	dispatcher := NewCompilerDispatcher(toolchain, plan)

	for _, src := range []string{"a.cpp", "k.cu"} {
		if err := dispatcher.CompileOne(context.Background(), CompileUnit{Source: src}); err != nil {
			t.Fatalf("CompileOne(%s) returned error: %v", src, err)
		}
	}

	if got := strings.Join(toolchain.compiles[0].flags, " "); got != "-w -O3" {
		t.Errorf("host compile got flags %q", got)
	}
	if got := strings.Join(toolchain.compiles[1].flags, " "); got != "-arch=sm_86" {
		t.Errorf("kernel compile got flags %q", got)
	}
}

func TestDispatcherRestoresCompilerOnFailure(t *testing.T) {
	compileFailure := errors.New("ptxas fatal: unresolved extern")

	toolchain := newFakeToolchain()
	toolchain.failSources["kernel.cu"] = compileFailure

	plan := dispatchPlan(&ToolkitConfig{NVCC: "/cuda/bin/nvcc"})
	dispatcher := NewCompilerDispatcher(toolchain, plan)

	err := dispatcher.CompileOne(context.Background(), CompileUnit{Source: "kernel.cu"})
	if err == nil {
		t.Fatal("expected compile failure to propagate")
	}
	if !errors.Is(err, compileFailure) {
		t.Errorf("expected the underlying error unchanged, got %v", err)
	}
	if toolchain.Compiler() != "c++" {
		t.Errorf("compiler not restored after failure, got %s", toolchain.Compiler())
	}
}

func TestDispatcherRejectsKernelWithoutToolkit(t *testing.T) {
	toolchain := newFakeToolchain()
	dispatcher := NewCompilerDispatcher(toolchain, dispatchPlan(nil))

	err := dispatcher.CompileOne(context.Background(), CompileUnit{Source: "kernel.cu"})
	if err == nil {
		t.Fatal("expected error when no kernel compiler is configured")
	}
	if !strings.Contains(err.Error(), "kernel") {
		t.Errorf("error should name the missing kind, got %q", err.Error())
	}
	if len(toolchain.compiles) != 0 {
		t.Errorf("compile step should not run, got %d calls", len(toolchain.compiles))
	}
}
