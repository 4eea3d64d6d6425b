//go:build !windows

package scan

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/gookit/color"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-intelligence.com/crashtriage/internal/testutil"
	"code-intelligence.com/crashtriage/pkg/cmdutils"
	"code-intelligence.com/crashtriage/pkg/log"
	"code-intelligence.com/crashtriage/pkg/report"
	"code-intelligence.com/crashtriage/pkg/storage"
)

var logOutput *bytes.Buffer

func TestMain(m *testing.M) {
	// Disable color for this test to allow comparing strings without
	// having to add color to them
	color.Disable()

	logOutput = bytes.NewBuffer([]byte{})
	log.Output = logOutput

	os.Exit(m.Run())
}

func TestScanCmd(t *testing.T) {
	dir := t.TempDir()
	target := testutil.WriteFakeTarget(t, dir)
	corpusDir := testutil.WriteCorpus(t, dir, map[string]string{
		"id:000000": "crash",
		"id:000001": "ubsan",
		"id:000002": "bad",
		"id:000003": "fine",
	})
	outDir := filepath.Join(dir, "out")

	output, err := cmdutils.ExecuteCommand(t, New(storage.WrapFileSystem()), os.Stdin,
		"--target", target,
		"--mode", "plain",
		"--corpus-dir", corpusDir,
		"--out-dir", outDir,
		"--samples", "1",
	)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(outDir, "scan_plain.csv"))
	require.NoError(t, err)
	assert.Equal(t, "file,return_code,crashed,sanitizer_bug\n"+
		"id:000000,1,YES,YES\n"+
		"id:000001,0,NO,YES\n"+
		"id:000002,1,YES,NO\n"+
		"id:000003,0,NO,NO\n", string(content))

	assert.Contains(t, output, "Crashed & sanitizer bug YES: 1")
	assert.Contains(t, output, "Crashed & sanitizer bug NO:  1")
	testutil.CheckOutput(t, logOutput, "Report written to")
}

func TestScanCmd_CustomCSVPath(t *testing.T) {
	dir := t.TempDir()
	target := testutil.WriteFakeTarget(t, dir)
	corpusDir := testutil.WriteCorpus(t, dir, map[string]string{
		"id:000000": "fine",
	})
	csvPath := filepath.Join(dir, "reports", "scan.csv")

	_, err := cmdutils.ExecuteCommand(t, New(storage.WrapFileSystem()), os.Stdin,
		"--target", target,
		"--corpus-dir", corpusDir,
		"--out-dir", filepath.Join(dir, "out"),
		"--csv", csvPath,
	)
	require.NoError(t, err)
	assert.FileExists(t, csvPath)
}

func TestScanCmd_InvalidMode(t *testing.T) {
	dir := t.TempDir()
	target := testutil.WriteFakeTarget(t, dir)

	_, err := cmdutils.ExecuteCommand(t, New(storage.WrapFileSystem()), os.Stdin,
		"--target", target,
		"--corpus-dir", dir,
		"--mode", "tiffinfo",
	)
	assert.Error(t, err)
	testutil.CheckOutput(t, logOutput, "tiffinfo")
}

func TestScanCmd_CSVNotWritable(t *testing.T) {
	dir := t.TempDir()
	target, counter := testutil.WriteCountingTarget(t, dir)
	corpusDir := testutil.WriteCorpus(t, dir, map[string]string{
		"id:000000": "a",
		"id:000001": "b",
	})
	// The destination is an existing directory
	csvPath := filepath.Join(dir, "scan.csv")
	require.NoError(t, os.Mkdir(csvPath, 0o755))

	_, err := cmdutils.ExecuteCommand(t, New(storage.WrapFileSystem()), os.Stdin,
		"--target", target,
		"--mode", "plain",
		"--corpus-dir", corpusDir,
		"--out-dir", filepath.Join(dir, "out"),
		"--csv", csvPath,
	)
	assert.ErrorIs(t, err, report.ErrReportWrite)
	var silentErr *cmdutils.SilentError
	assert.True(t, errors.As(err, &silentErr))
	assert.NoFileExists(t, counter)
}
