package gpuext

import (
	"fmt"
	"strings"
)

// MatchesExtension checks if a filename has any of the given extensions.
//
// This is a case-insensitive check, so "KERNELS.CU" matches ".cu".
// Extensions may be given with or without the leading dot.
func MatchesExtension(filename string, extensions ...string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(strings.ToLower(filename), strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// appendUnique appends each non-empty value that is not already present,
// preserving insertion order so plan construction stays deterministic.
func appendUnique(list []string, values ...string) []string {
	for _, value := range values {
		if value == "" {
			continue
		}

		exists := false
		for _, have := range list {
			if have == value {
				exists = true
				break
			}
		}
		if !exists {
			list = append(list, value)
		}
	}
	return list
}

// commandError folds a failed command's combined output into the returned
// error so the operator sees the tool's own diagnostics, not just the exit
// status.
func commandError(tool string, output []byte, err error) error {
	text := strings.TrimSpace(string(output))
	if text == "" {
		return fmt.Errorf("%s failed: %w", tool, err)
	}
	return fmt.Errorf("%s failed: %w\n\nOutput:\n%s", tool, err, text)
}
