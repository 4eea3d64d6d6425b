package root

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-intelligence.com/crashtriage/internal/testutil"
	"code-intelligence.com/crashtriage/pkg/cmdutils"
	"code-intelligence.com/crashtriage/pkg/storage"
)

func TestRootCmd(t *testing.T) {
	fs := storage.NewMemFileSystem()
	_, err := cmdutils.ExecuteCommand(t, New(fs), os.Stdin)
	assert.NoError(t, err)
}

func TestSubcommands(t *testing.T) {
	cmd := New(storage.NewMemFileSystem())
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"init", "scan", "triage", "summarize"})
}

func TestChangingToNonExistingDirectory(t *testing.T) {
	// afero doesn't support Chdir and Getwd, so we have to use the
	// OS filesystem here instead of the in-memory one.
	fs := storage.WrapFileSystem()
	_, cleanup := testutil.ChdirToTempDir("root-cmd-test-")
	defer cleanup()

	workDirBefore, err := os.Getwd()
	require.NoError(t, err)

	args := []string{
		"-C", "foo",
		// The PersistentPreRunE function in which we change the
		// directory is only executed if a subcommand is specified,
		// else only the usage message is printed, so we specify a
		// subcommand.
		"init",
	}
	_, err = cmdutils.ExecuteCommand(t, New(fs), os.Stdin, args...)
	require.Error(t, err)

	// Check that the working directory did not change
	workDir, err := os.Getwd()
	require.NoError(t, err)
	require.Equal(t, workDirBefore, workDir)
}

func TestChangingToExistingDirectory(t *testing.T) {
	// afero doesn't support Chdir and Getwd, so we have to use the
	// OS filesystem here instead of the in-memory one.
	fs := storage.WrapFileSystem()
	_, cleanup := testutil.ChdirToTempDir("root-cmd-test-")
	defer cleanup()

	workDirBefore, err := os.Getwd()
	require.NoError(t, err)

	err = fs.Mkdir("foo", 0700)
	require.NoError(t, err)

	args := []string{
		"-C", "./foo",
		"init",
	}
	_, err = cmdutils.ExecuteCommand(t, New(fs), os.Stdin, args...)
	require.NoError(t, err)

	// Check that the working directory actually changed and the config
	// was created there
	workDir, err := os.Getwd()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(workDirBefore, "foo"), workDir)
	exists, err := fs.Exists("crashtriage.yaml")
	require.NoError(t, err)
	assert.True(t, exists)
}
