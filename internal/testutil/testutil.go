package testutil

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"code-intelligence.com/crashtriage/util/fileutil"
)

var ChdirMutex sync.Mutex

// FakeTarget behaves according to the content of its input (the first
// argument): "crash" makes it print an AddressSanitizer report and exit
// with 1, "ubsan" prints a runtime error, "bad" prints a plain error
// message and exits with 1 and "hang" sleeps. Any other input exits
// cleanly.
const FakeTarget = `#!/bin/sh
case "$(cat "$1")" in
crash)
	echo "==1==ERROR: AddressSanitizer: heap-buffer-overflow on address 0x602000000011" >&2
	echo "READ of size 1 at 0x602000000011 thread T0" >&2
	echo "    #0 0x4f5d39 in tiffcp_convert /src/tiffcp.c:412:9" >&2
	echo "    #1 0x4f1234 in main /src/tiffcp.c:90:3" >&2
	echo "SUMMARY: AddressSanitizer: heap-buffer-overflow /src/tiffcp.c:412:9 in tiffcp_convert" >&2
	exit 1
	;;
ubsan)
	echo "/src/tif_dirread.c:1234:5: runtime error: left shift of negative value -1" >&2
	exit 0
	;;
bad)
	echo "tiffcp: Not a TIFF file, bad magic number" >&2
	exit 1
	;;
hang)
	exec sleep 30
	;;
esac
exit 0
`

// WriteFakeTarget writes FakeTarget as executable to dir and returns
// its path.
func WriteFakeTarget(t *testing.T, dir string) string {
	t.Helper()
	target := filepath.Join(dir, "tiffcp")
	err := os.WriteFile(target, []byte(FakeTarget), 0o755)
	require.NoError(t, err)
	return target
}

// WriteCountingTarget writes a target to dir which appends a line to
// the returned counter file on every execution.
func WriteCountingTarget(t *testing.T, dir string) (target, counter string) { //nolint:nonamedreturns
	t.Helper()
	counter = filepath.Join(dir, "executions")
	target = filepath.Join(dir, "counting-target")
	script := fmt.Sprintf("#!/bin/sh\necho \"$1\" >> '%s'\nexit 0\n", counter)
	err := os.WriteFile(target, []byte(script), 0o755)
	require.NoError(t, err)
	return target, counter
}

// WriteCorpus creates a corpus directory below dir with one file per
// entry of inputs (file name to content) and returns its path.
func WriteCorpus(t *testing.T, dir string, inputs map[string]string) string {
	t.Helper()
	corpusDir := filepath.Join(dir, "corpus")
	err := os.MkdirAll(corpusDir, 0o755)
	require.NoError(t, err)
	for name, content := range inputs {
		err = os.WriteFile(filepath.Join(corpusDir, name), []byte(content), 0o644)
		require.NoError(t, err)
	}
	return corpusDir
}

// ChdirToTempDir creates and changes the working directory to new tmp dir
func ChdirToTempDir(prefix string) (tempDir string, cleanup func()) { //nolint:nonamedreturns
	ChdirMutex.Lock()
	oldWd, err := os.Getwd()
	if err != nil {
		log.Printf("Failed to get current working directory: %+v", err)
		os.Exit(1)
	}

	testTempDir, err := os.MkdirTemp("", prefix)
	if err != nil {
		log.Printf("Failed to create temp dir for tests: %+v", err)
		os.Exit(1)
	}
	// The working directory is reported with symlinks resolved
	testTempDir, err = filepath.EvalSymlinks(testTempDir)
	if err != nil {
		log.Printf("Failed to resolve temp dir for tests: %+v", err)
		os.Exit(1)
	}

	err = os.Chdir(testTempDir)
	if err != nil {
		log.Printf("Failed to change working dir for tests: %+v", err)
		fileutil.Cleanup(testTempDir)
		os.Exit(1)
	}

	cleanup = func() {
		err = os.Chdir(oldWd)
		if err != nil {
			log.Printf("Failed to change working directory back to %s: %+v", oldWd, err)
			os.Exit(1)
		}
		ChdirMutex.Unlock()
		fileutil.Cleanup(testTempDir)
	}

	return testTempDir, cleanup
}

// CheckOutput checks that the strings are contained in the reader output
func CheckOutput(t *testing.T, r io.Reader, s ...string) {
	output, err := io.ReadAll(r)
	require.NoError(t, err)
	for _, str := range s {
		require.Contains(t, string(output), str)
	}
}
