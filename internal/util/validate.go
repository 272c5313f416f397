package util

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// IsConfigured reports whether all provided values are non-empty.
func IsConfigured(values ...string) bool {
	for _, v := range values {
		if v == "" {
			return false
		}
	}
	return true
}

// ValidatePath rejects empty paths and traversal attempts. field names
// the setting being validated for the error message.
func ValidatePath(field, path string) error {
	switch {
	case path == "":
		return fmt.Errorf("%s: is required", field)
	case strings.Contains(path, ".."):
		// Checked before cleaning so encoded variants are caught too.
		return fmt.Errorf("%s: path cannot contain '..'", field)
	case strings.Contains(filepath.Clean(path), ".."):
		return fmt.Errorf("%s: invalid path", field)
	}
	return nil
}

// CheckPathWritable creates the directory if needed and probes it with
// a throwaway file.
func CheckPathWritable(path string) error {
	fail := func(step string, err error) error {
		slog.Error("path writability check failed", "path", path, "step", step, "error", err)
		return fmt.Errorf("path is not writable")
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return fail("mkdir", err)
	}

	probe, err := os.CreateTemp(path, ".loopcorder-write-test-*")
	if err != nil {
		return fail("create", err)
	}
	name := probe.Name()
	if err := probe.Close(); err != nil {
		_ = os.Remove(name)
		return fail("close", err)
	}
	if err := os.Remove(name); err != nil {
		return fail("remove", err)
	}
	return nil
}
