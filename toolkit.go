package gpuext

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Default filesystem locations probed for a CUDA toolkit installation.
const (
	defaultVersionedToolkitDir   = "/usr/local/cuda-10.2"
	defaultUnversionedToolkitDir = "/usr/local/cuda"

	// ToolkitHomeEnv names the environment variable an operator can set to
	// point the locator at a custom toolkit installation root.
	ToolkitHomeEnv = "CUDAHOME"

	gpuCompilerName = "nvcc"
)

// ToolkitConfig describes a validated CUDA toolkit installation.
//
// Every path field existed on the filesystem when the config was constructed;
// the config is read-only afterwards and owned by the build plan.
type ToolkitConfig struct {
	Home       string // Installation root
	NVCC       string // GPU compiler binary, <home>/bin/nvcc
	IncludeDir string // <home>/include
	LibDir     string // <home>/lib64
}

// ToolkitNotFoundError reports that no discovery strategy yielded a candidate
// toolkit installation root. Recoverable by the operator: set the override
// variable or put nvcc on PATH.
type ToolkitNotFoundError struct {
	// EnvVar is the override variable the operator should set.
	EnvVar string
}

func (e *ToolkitNotFoundError) Error() string {
	return fmt.Sprintf("%s binary not found: set $%s or add %s to $PATH",
		gpuCompilerName, e.EnvVar, gpuCompilerName)
}

// ToolkitInvalidError reports that a candidate installation root was found
// but one of its required sub-paths is missing. The error names the specific
// missing path and its role so the operator can repair the installation.
type ToolkitInvalidError struct {
	Role string // Missing part: "home", "nvcc", "include" or "lib64"
	Path string // The path that was expected to exist
}

func (e *ToolkitInvalidError) Error() string {
	return fmt.Sprintf("CUDA toolkit %s path could not be located in %s", e.Role, e.Path)
}

// ToolkitLocator discovers and validates a CUDA toolkit installation.
//
// Discovery tries an ordered list of strategies; the first one that yields a
// candidate root wins and no merging happens across strategies:
//
//  1. The version-pinned default directory (/usr/local/cuda-10.2)
//  2. The unversioned default directory (/usr/local/cuda)
//  3. The $CUDAHOME environment variable, if set
//  4. A scan of every $PATH directory for the nvcc binary; the root is the
//     parent-of-parent directory of the binary found
//
// When both default directories exist the pinned one wins silently.
//
// The zero value probes the package defaults, reads the process environment
// and reports to stdout. Fields exist to redirect all three for testing.
type ToolkitLocator struct {
	// VersionedDir and UnversionedDir override the fixed default
	// installation directories. Empty means the package defaults.
	VersionedDir   string
	UnversionedDir string

	// LookupEnv looks up one environment variable. Consulted for
	// ToolkitHomeEnv and PATH. Defaults to os.LookupEnv.
	LookupEnv func(key string) (value string, ok bool)

	// Out receives the resolved-configuration report. Defaults to os.Stdout.
	Out io.Writer
}

// Locate runs the discovery strategies in order and validates the first
// candidate root.
//
// Validation derives the nvcc binary, include dir and lib64 dir by fixed
// relative sub-paths under the root and checks all four paths for existence.
// Returns *ToolkitNotFoundError when no strategy yields a candidate, or
// *ToolkitInvalidError naming the first missing sub-path. On success the
// fully resolved configuration is reported to Out before it is returned, so
// the operator always sees what was auto-detected.
func (l *ToolkitLocator) Locate() (*ToolkitConfig, error) {
	probes := []func() (string, bool){
		l.probeVersionedDefault,
		l.probeUnversionedDefault,
		l.probeEnvOverride,
		l.probeSearchPath,
	}

	for _, probe := range probes {
		home, ok := probe()
		if !ok {
			continue
		}

		config, err := validateToolkitRoot(home)
		if err != nil {
			return nil, err
		}

		fmt.Fprintf(l.out(), "CUDA toolkit: home=%s nvcc=%s include=%s lib64=%s\n",
			config.Home, config.NVCC, config.IncludeDir, config.LibDir)
		return config, nil
	}

	return nil, &ToolkitNotFoundError{EnvVar: ToolkitHomeEnv}
}

func (l *ToolkitLocator) probeVersionedDefault() (string, bool) {
	dir := l.VersionedDir
	if dir == "" {
		dir = defaultVersionedToolkitDir
	}
	return probeDir(dir)
}

func (l *ToolkitLocator) probeUnversionedDefault() (string, bool) {
	dir := l.UnversionedDir
	if dir == "" {
		dir = defaultUnversionedToolkitDir
	}
	return probeDir(dir)
}

// probeEnvOverride trusts the operator's override without checking that the
// directory exists; a bad override surfaces as ToolkitInvalid during
// validation, which names the missing path.
func (l *ToolkitLocator) probeEnvOverride() (string, bool) {
	home, ok := l.lookupEnv(ToolkitHomeEnv)
	if !ok || home == "" {
		return "", false
	}
	return home, true
}

func (l *ToolkitLocator) probeSearchPath() (string, bool) {
	path, _ := l.lookupEnv("PATH")

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			continue
		}

		bin := filepath.Join(dir, gpuCompilerName)
		info, err := os.Stat(bin)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		if abs, err := filepath.Abs(bin); err == nil {
			bin = abs
		}
		return filepath.Dir(filepath.Dir(bin)), true
	}

	return "", false
}

func probeDir(dir string) (string, bool) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", false
	}
	return dir, true
}

// validateToolkitRoot derives the fixed sub-paths under root and checks every
// resulting path for existence, in a fixed order so the first missing role is
// always the one reported.
func validateToolkitRoot(home string) (*ToolkitConfig, error) {
	config := &ToolkitConfig{
		Home:       home,
		NVCC:       filepath.Join(home, "bin", gpuCompilerName),
		IncludeDir: filepath.Join(home, "include"),
		LibDir:     filepath.Join(home, "lib64"),
	}

	checks := []struct {
		role string
		path string
	}{
		{"home", config.Home},
		{"nvcc", config.NVCC},
		{"include", config.IncludeDir},
		{"lib64", config.LibDir},
	}

	for _, check := range checks {
		if _, err := os.Stat(check.path); err != nil {
			return nil, &ToolkitInvalidError{Role: check.role, Path: check.path}
		}
	}

	return config, nil
}

func (l *ToolkitLocator) lookupEnv(key string) (string, bool) {
	if l.LookupEnv != nil {
		return l.LookupEnv(key)
	}
	return os.LookupEnv(key)
}

func (l *ToolkitLocator) out() io.Writer {
	if l.Out != nil {
		return l.Out
	}
	return os.Stdout
}
