package cmdutils

import "path/filepath"

// LogsDir is the directory below the output directory which holds the
// per-input sanitizer logs.
func LogsDir(outDir string) string {
	return filepath.Join(outDir, "logs")
}

// CrashesDir is the directory below the output directory to which the
// inputs of confirmed crashes are copied.
func CrashesDir(outDir string) string {
	return filepath.Join(outDir, "crashes")
}
