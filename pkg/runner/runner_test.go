//go:build !windows

package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "target.sh")
	err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755)
	require.NoError(t, err)
	return path
}

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "id:000000,sig:11")
	err := os.WriteFile(path, []byte("II*\x00"), 0o644)
	require.NoError(t, err)
	return path
}

func TestArgs(t *testing.T) {
	assert.Equal(t, []string{"/t", "/in", os.DevNull}, Args(ModeTiffcp, "/t", "/in", ""))
	assert.Equal(t, []string{"/t", "-o", os.DevNull, "/in"}, Args(ModeTiff2pdf, "/t", "/in", ""))
	assert.Equal(t, []string{"/t", "/in"}, Args(ModePlain, "/t", "/in", "/out.pdf"))
	assert.Equal(t, []string{"/t", "-o", "/out.pdf", "/in"}, Args(ModeTiff2pdf, "/t", "/in", "/out.pdf"))
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("tiff2pdf")
	require.NoError(t, err)
	assert.Equal(t, ModeTiff2pdf, mode)

	_, err = ParseMode("tiffinfo")
	require.Error(t, err)
}

func TestValidateTarget(t *testing.T) {
	require.NoError(t, ValidateTarget(writeScript(t, "exit 0")))

	err := ValidateTarget(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, errors.Is(err, ErrTargetNotExecutable))

	err = ValidateTarget(t.TempDir())
	assert.True(t, errors.Is(err, ErrTargetNotExecutable))

	notExecutable := filepath.Join(t.TempDir(), "tiffcp")
	require.NoError(t, os.WriteFile(notExecutable, nil, 0o644))
	err = ValidateTarget(notExecutable)
	assert.True(t, errors.Is(err, ErrTargetNotExecutable))
}

func TestRun_CapturesStderrOnly(t *testing.T) {
	target := writeScript(t, `echo "to stdout"; echo "ERROR: AddressSanitizer: SEGV" >&2; exit 1`)

	outcome, err := Run(context.Background(), &Options{
		Target: target,
		Input:  writeInput(t),
		Mode:   ModeTiffcp,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.ExitCode)
	assert.False(t, outcome.TimedOut)
	assert.Equal(t, "ERROR: AddressSanitizer: SEGV\n", outcome.Output)
}

func TestRun_PassesArgsAndEnv(t *testing.T) {
	target := writeScript(t, `echo "$1|$2|$3" >&2; echo "$ASAN_OPTIONS" >&2`)
	input := writeInput(t)

	env, err := SanitizerEnvironment(os.Environ(), "", "")
	require.NoError(t, err)
	outcome, err := Run(context.Background(), &Options{
		Target: target,
		Input:  input,
		Mode:   ModeTiff2pdf,
		Env:    env,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, outcome.ExitCode)
	assert.Contains(t, outcome.Output, "-o|"+os.DevNull+"|"+input)
	assert.Contains(t, outcome.Output, "abort_on_error=1")
}

func TestRun_SignalExitCode(t *testing.T) {
	target := writeScript(t, `kill -ABRT $$`)

	outcome, err := Run(context.Background(), &Options{
		Target: target,
		Input:  writeInput(t),
		Mode:   ModePlain,
	})
	require.NoError(t, err)
	// SIGABRT is 6 on all unix platforms
	assert.Equal(t, 134, outcome.ExitCode)
}

func TestRun_Timeout(t *testing.T) {
	target := writeScript(t, `echo "partial" >&2; exec sleep 30`)

	start := time.Now()
	outcome, err := Run(context.Background(), &Options{
		Target:  target,
		Input:   writeInput(t),
		Mode:    ModeTiffcp,
		Timeout: 300 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.True(t, outcome.TimedOut)
	assert.Equal(t, TimeoutExitCode, outcome.ExitCode)
	assert.Equal(t, "partial\n"+TimeoutMarker, outcome.Output)
}

func TestRun_InputNotFound(t *testing.T) {
	_, err := Run(context.Background(), &Options{
		Target: writeScript(t, "exit 0"),
		Input:  filepath.Join(t.TempDir(), "id:000001"),
		Mode:   ModeTiffcp,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInputNotFound))
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	_, err := Run(ctx, &Options{
		Target:  writeScript(t, "exec sleep 30"),
		Input:   writeInput(t),
		Mode:    ModeTiffcp,
		Timeout: time.Minute,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
