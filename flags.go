package gpuext

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Names of the feature toggles consumed from the environment.
const (
	// FlagCUDA enables compilation of the GPU kernel sources and links the
	// CUDA runtime into the extension module.
	FlagCUDA = "WITH_CUDA"

	// FlagTrace enables trace instrumentation in the host sources.
	FlagTrace = "TRACE"
)

// FeatureFlag is the resolved state of one boolean build toggle.
//
// A flag is resolved exactly once, before the build plan is computed, and is
// immutable afterwards. There is no error state: an absent environment
// variable is a valid, expected "disabled" configuration.
type FeatureFlag struct {
	Name    string // Environment variable the flag was read from
	Enabled bool   // True only if the variable was set to "on" (case-insensitive)
}

// FlagResolver reads feature toggles from the external environment.
//
// The zero value reads the process environment and reports to stdout. Both
// inputs are injectable:
//
//	r := &gpuext.FlagResolver{
//	    LookupEnv: func(string) (string, bool) { return "ON", true },
//	    Out:       &buf,
//	}
type FlagResolver struct {
	// LookupEnv looks up one environment variable. Defaults to os.LookupEnv.
	LookupEnv func(key string) (value string, ok bool)

	// Out receives the operator-facing enable/disable messages.
	// Defaults to os.Stdout.
	Out io.Writer
}

// Resolve reads one flag from the environment.
//
// The flag is enabled if and only if the variable named name exists and its
// value equals "on" compared case-insensitively. Every other state (unset,
// empty, any other value) is disabled.
//
// One informational message is written to Out: enableMsg when the flag is
// enabled, or disableMsg followed by the exact incantation for turning the
// flag on when it is disabled. An empty message suppresses the output for
// that state.
func (r *FlagResolver) Resolve(name, enableMsg, disableMsg string) FeatureFlag {
	lookup := r.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	value, ok := lookup(name)
	enabled := ok && strings.EqualFold(value, "on")

	if enabled && enableMsg != "" {
		fmt.Fprintln(r.out(), enableMsg)
	} else if !enabled && disableMsg != "" {
		fmt.Fprintln(r.out(), disableMsg)
		fmt.Fprintf(r.out(), "   $ %s=ON gpuext build\n", name)
	}

	return FeatureFlag{Name: name, Enabled: enabled}
}

func (r *FlagResolver) out() io.Writer {
	if r.Out != nil {
		return r.Out
	}
	return os.Stdout
}
