//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Default target when mage runs with no arguments.
var Default = Build

// Build compiles the gpuext CLI.
func Build() error {
	return sh.RunV("go", "build", "./cmd/gpuext")
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Lint vets the module.
func Lint() error {
	return sh.RunV("go", "vet", "./...")
}

// CI runs the full verification pipeline.
func CI() {
	mg.SerialDeps(Lint, Test, Build)
}
