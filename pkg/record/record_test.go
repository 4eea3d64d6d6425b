package record

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-intelligence.com/crashtriage/pkg/corpus"
	"code-intelligence.com/crashtriage/pkg/parser/sanitizer"
	"code-intelligence.com/crashtriage/pkg/runner"
)

const asanOutput = `=================================================================
==4711==ERROR: AddressSanitizer: heap-buffer-overflow on address 0x602000000011 at pc 0x0000004f5d3a bp 0x7ffc6f7e8d90 sp 0x7ffc6f7e8d88
READ of size 1 at 0x602000000011 thread T0
    #0 0x4f5d39 in tiffcp_convert /src/tiffcp.c:412:9
    #1 0x4f7a2b in main /src/tiffcp.c:901:3
SUMMARY: AddressSanitizer: heap-buffer-overflow /src/tiffcp.c:412:9 in tiffcp_convert
`

func TestBuild_Crash(t *testing.T) {
	fs := afero.NewMemMapFs()
	b := &Builder{
		Mode:     runner.ModeTiffcp,
		Target:   "/opt/libtiff/bin/tiffcp",
		LogDir:   "/out/logs",
		KeepLogs: true,
		Fs:       fs,
	}
	item := corpus.NewItem("/corpus/id:000007,sig:06", 7)
	outcome := &runner.ExecutionOutcome{ExitCode: 134, Output: asanOutput}

	rec, err := b.Build(item, outcome, sanitizer.Classify(outcome.Output))
	require.NoError(t, err)

	assert.Equal(t, "tiffcp", rec.Target)
	assert.Equal(t, "/corpus/id:000007,sig:06", rec.InputFile)
	assert.Equal(t, sanitizer.ResultCrash, rec.Result)
	assert.Equal(t, "ASan: heap-buffer-overflow", rec.SanitizerError)
	assert.Equal(t, "tiffcp_convert", rec.TopFunction)
	assert.Equal(t, "/src/tiffcp.c:412:9", rec.SourceHint)
	assert.Equal(t, 134, rec.ReturnCode)
	assert.Equal(t, "/opt/libtiff/bin/tiffcp /corpus/id:000007,sig:06 "+os.DevNull, rec.ReproCmd)
	assert.Equal(t, "tiffcp_convert tiffcp.c libtiff CVE", rec.SearchQuery)
	assert.Empty(t, rec.SuspectedDefect)
	assert.True(t, rec.Crashed)
	assert.True(t, rec.SanitizerBug)

	assert.Equal(t, filepath.Join("/out/logs", "id_000007,sig_06.log"), rec.LogPath)
	content, err := afero.ReadFile(fs, rec.LogPath)
	require.NoError(t, err)
	assert.Equal(t, asanOutput, string(content))
}

func TestBuild_NonZeroExitWithoutReport(t *testing.T) {
	b := &Builder{Mode: runner.ModeTiff2pdf, Target: "tiff2pdf"}
	item := corpus.NewItem("/corpus/id:000001", 1)
	outcome := &runner.ExecutionOutcome{ExitCode: 1}

	rec, err := b.Build(item, outcome, sanitizer.Classify(outcome.Output))
	require.NoError(t, err)

	assert.Equal(t, sanitizer.ResultOK, rec.Result)
	assert.Empty(t, rec.SanitizerError)
	assert.Empty(t, rec.TopFunction)
	assert.Empty(t, rec.LogPath)
	assert.Equal(t, "tiff2pdf -o "+os.DevNull+" /corpus/id:000001", rec.ReproCmd)
	assert.Equal(t, "libtiff CVE", rec.SearchQuery)
	assert.True(t, rec.Crashed)
	assert.False(t, rec.SanitizerBug)
}

func TestBuild_Timeout(t *testing.T) {
	fs := afero.NewMemMapFs()
	b := &Builder{Mode: runner.ModeTiffcp, Target: "tiffcp", LogDir: "/logs", KeepLogs: true, Fs: fs}
	item := corpus.NewItem("/corpus/id:000002", 2)
	outcome := &runner.ExecutionOutcome{
		ExitCode: runner.TimeoutExitCode,
		Output:   "partial" + runner.TimeoutMarker,
		TimedOut: true,
	}

	rec, err := b.Build(item, outcome, sanitizer.Classify(outcome.Output))
	require.NoError(t, err)
	assert.Equal(t, sanitizer.ResultTimeout, rec.Result)
	assert.Equal(t, 124, rec.ReturnCode)

	content, err := afero.ReadFile(fs, rec.LogPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "[TIMEOUT]")
}

func TestBuild_LogWriteFailure(t *testing.T) {
	b := &Builder{
		Mode:     runner.ModeTiffcp,
		Target:   "tiffcp",
		LogDir:   "/logs",
		KeepLogs: true,
		Fs:       afero.NewReadOnlyFs(afero.NewMemMapFs()),
	}
	item := corpus.NewItem("/corpus/id:000003", 3)

	rec, err := b.Build(item, &runner.ExecutionOutcome{Output: asanOutput}, sanitizer.Classify(asanOutput))
	require.Error(t, err)
	require.NotNil(t, rec)
	assert.Empty(t, rec.LogPath)
	assert.Equal(t, sanitizer.ResultCrash, rec.Result)
}

func TestSearchQuery(t *testing.T) {
	testCases := []struct {
		name     string
		sig      sanitizer.Signature
		keywords []string
		expected string
	}{
		{"function and file", sanitizer.Signature{TopFunction: "f", SourceHint: "/a/b/tif_dir.c:1:2"}, DefaultKeywords, "f tif_dir.c libtiff CVE"},
		{"hint without colon", sanitizer.Signature{TopFunction: "f", SourceHint: "(/lib/libc.so.6+0x1234)"}, DefaultKeywords, "f libtiff CVE"},
		{"nothing", sanitizer.Signature{}, DefaultKeywords, "libtiff CVE"},
		{"custom keywords", sanitizer.Signature{TopFunction: "f"}, []string{"tiff2pdf"}, "f tiff2pdf"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SearchQuery(tc.sig, tc.keywords))
		})
	}
}

func TestReproCommand_Quoting(t *testing.T) {
	cmd := ReproCommand(runner.ModeTiffcp, "/opt/my tools/tiffcp", "/corpus/it's.tiff", "/tmp/out.tif")
	assert.Equal(t, `'/opt/my tools/tiffcp' '/corpus/it'"'"'s.tiff' /tmp/out.tif`, cmd)
}

func TestScanRow(t *testing.T) {
	rec := &CrashRecord{InputFile: "/corpus/id:000009", ReturnCode: 1, Crashed: true}
	assert.Equal(t, &ScanRow{File: "id:000009", ReturnCode: 1, Crashed: true}, rec.ScanRow())
}

func TestCollectInputs(t *testing.T) {
	corpusDir := t.TempDir()
	input := filepath.Join(corpusDir, "id:000004")
	require.NoError(t, os.WriteFile(input, []byte("II*"), 0o644))

	dest := filepath.Join(t.TempDir(), "crashes")
	records := []*CrashRecord{
		{InputFile: input, Result: sanitizer.ResultCrash},
		{InputFile: filepath.Join(corpusDir, "id:000005"), Result: sanitizer.ResultOK},
		nil,
	}
	n, err := CollectInputs(records, dest)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	content, err := os.ReadFile(filepath.Join(dest, "id_000004"))
	require.NoError(t, err)
	assert.Equal(t, "II*", string(content))
}
