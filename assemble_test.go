package gpuext

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

func assemblePlan(t *testing.T, sources ...string) *BuildPlan {
	t.Helper()

	plan := NewBuildPlan(PlanOptions{
		Sources: sources,
		OutDir:  t.TempDir(),
	})
	return plan
}

func TestAssembleLinksModule(t *testing.T) {
	toolchain := newFakeToolchain()
	plan := assemblePlan(t, "a.cpp", "b.cpp", "c.cpp")

	assembler := &Assembler{Toolchain: toolchain}
	result, err := assembler.Assemble(context.Background(), plan)
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}

	if !result.Success {
		t.Error("expected Success=true")
	}
	if len(result.Objects) != 3 {
		t.Errorf("expected 3 objects, got %v", result.Objects)
	}

	expected := filepath.Join(plan.OutDir, "rangelib.so")
	if result.ModulePath != expected {
		t.Errorf("expected module path %s, got %s", expected, result.ModulePath)
	}

	if len(toolchain.links) != 1 {
		t.Fatalf("expected exactly one link, got %d", len(toolchain.links))
	}
	link := toolchain.links[0]
	if len(link.objects) != 3 {
		t.Errorf("link received %d objects, expected 3", len(link.objects))
	}
	if link.opts.Output != expected {
		t.Errorf("link output %s, expected %s", link.opts.Output, expected)
	}
	if link.compiler != "c++" {
		t.Errorf("link must use the host compiler, got %s", link.compiler)
	}
}

func TestAssembleFailFast(t *testing.T) {
	toolchain := newFakeToolchain()
	toolchain.failSources["b.cpp"] = fmt.Errorf("syntax error")

	plan := assemblePlan(t, "a.cpp", "b.cpp", "c.cpp")

	assembler := &Assembler{Toolchain: toolchain}
	result, err := assembler.Assemble(context.Background(), plan)
	if err == nil {
		t.Fatal("expected assembly to fail")
	}

	var compileErr *CompileError
	if !errors.As(err, &compileErr) {
		t.Fatalf("expected *CompileError, got %T: %v", err, err)
	}
	if compileErr.Source != "b.cpp" {
		t.Errorf("expected failing source b.cpp, got %s", compileErr.Source)
	}

	// The third compile must never run and nothing may be linked.
	if len(toolchain.compiles) != 2 {
		t.Errorf("expected 2 compile attempts, got %d", len(toolchain.compiles))
	}
	if len(toolchain.links) != 0 {
		t.Errorf("expected no link after compile failure, got %d", len(toolchain.links))
	}

	if result.Success {
		t.Error("expected Success=false")
	}
	if len(result.Objects) != 1 {
		t.Errorf("expected the one completed object, got %v", result.Objects)
	}
	if !errors.Is(result.Error, compileErr) {
		t.Error("result.Error should carry the returned error")
	}
}

func TestAssembleLinkError(t *testing.T) {
	toolchain := newFakeToolchain()
	toolchain.linkErr = fmt.Errorf("undefined symbol")

	plan := assemblePlan(t, "a.cpp")

	assembler := &Assembler{Toolchain: toolchain}
	result, err := assembler.Assemble(context.Background(), plan)
	if err == nil {
		t.Fatal("expected link failure")
	}

	var linkErr *LinkError
	if !errors.As(err, &linkErr) {
		t.Fatalf("expected *LinkError, got %T: %v", err, err)
	}
	if result.Success {
		t.Error("expected Success=false")
	}
	if result.ModulePath != "" {
		t.Errorf("module path must stay empty on link failure, got %s", result.ModulePath)
	}
}

func TestAssembleProgressCallback(t *testing.T) {
	toolchain := newFakeToolchain()
	plan := assemblePlan(t, "a.cpp", "b.cpp")

	var compiled []string
	assembler := &Assembler{
		Toolchain:  toolchain,
		OnCompiled: func(unit CompileUnit) { compiled = append(compiled, unit.Source) },
	}

	if _, err := assembler.Assemble(context.Background(), plan); err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}

	if len(compiled) != 2 || compiled[0] != "a.cpp" || compiled[1] != "b.cpp" {
		t.Errorf("expected callbacks in plan order, got %v", compiled)
	}
}
