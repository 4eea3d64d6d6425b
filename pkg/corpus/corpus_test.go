package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createCorpus(t *testing.T, files ...string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/corpus", 0o755))
	for _, f := range files {
		require.NoError(t, afero.WriteFile(fs, filepath.Join("/corpus", f), []byte("II*\x00"), 0o644))
	}
	return fs
}

func paths(items []*Item) []string {
	var res []string
	for _, item := range items {
		res = append(res, item.Path)
	}
	return res
}

func TestEnumerate_SortedAndFiltered(t *testing.T) {
	fs := createCorpus(t,
		"id:000002,src:000000,op:havoc",
		"id:000000,orig:seed.tiff",
		"README.txt",
		"id:000001,sig:06,src:000000",
	)
	require.NoError(t, fs.MkdirAll("/corpus/id:000003-dir", 0o755))

	items, err := Enumerate(fs, "/corpus", DefaultPattern, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/corpus/id:000000,orig:seed.tiff",
		"/corpus/id:000001,sig:06,src:000000",
		"/corpus/id:000002,src:000000,op:havoc",
	}, paths(items))

	for i, item := range items {
		assert.Equal(t, i, item.Index)
	}
	assert.Equal(t, "id_000001,sig_06,src_000000", items[1].SafeName)
}

func TestEnumerate_Limit(t *testing.T) {
	var files []string
	for i := 9; i >= 0; i-- {
		files = append(files, fmt.Sprintf("%02d.tiff", i))
	}
	fs := createCorpus(t, files...)

	for _, limit := range []int{1, 3, 10, 20} {
		items, err := Enumerate(fs, "/corpus", "*.tiff", limit)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(items), limit)
		assert.IsIncreasing(t, paths(items))
		assert.Equal(t, "/corpus/00.tiff", items[0].Path)
	}
}

func TestEnumerate_Recursive(t *testing.T) {
	fs := createCorpus(t, "id:1")
	require.NoError(t, fs.MkdirAll("/corpus/default/crashes", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/corpus/default/crashes/id:2", nil, 0o644))

	items, err := Enumerate(fs, "/corpus", "**/id:*", 0)
	require.NoError(t, err)
	assert.Contains(t, paths(items), "/corpus/default/crashes/id:2")
}

func TestEnumerate_EmptyIsNoError(t *testing.T) {
	fs := createCorpus(t)

	items, err := Enumerate(fs, "/corpus", DefaultPattern, 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestEnumerate_CorpusNotFound(t *testing.T) {
	fs := createCorpus(t, "id:1")

	_, err := Enumerate(fs, "/does-not-exist", DefaultPattern, 0)
	require.ErrorIs(t, err, ErrCorpusNotFound)

	_, err = Enumerate(fs, "/corpus/id:1", DefaultPattern, 0)
	require.ErrorIs(t, err, ErrCorpusNotFound)
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "id_000123,sig_11,src_000004,op_flip1,pos_7", SafeName("id:000123,sig:11,src:000004,op:flip1,pos:7"))
	assert.Equal(t, "a_b.tiff", SafeName("a \t b.tiff"))
	assert.Equal(t, "plain-name_1.tif", SafeName("plain-name_1.tif"))
}

func TestFromNames(t *testing.T) {
	items := FromNames("/corpus", []string{"b.tiff", "a.tiff"})
	require.Len(t, items, 2)
	assert.Equal(t, filepath.Join("/corpus", "b.tiff"), items[0].Path)
	assert.Equal(t, 1, items[1].Index)
}

func TestEnumerate_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("creating symlinks requires privileges on Windows")
	}
	dir := t.TempDir()
	corpusDir := filepath.Join(dir, "corpus")
	require.NoError(t, os.MkdirAll(corpusDir, 0o755))
	outside := filepath.Join(dir, "outside")
	require.NoError(t, os.WriteFile(outside, []byte("II*\x00"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(corpusDir, "id:000000"), []byte("II*\x00"), 0o644))
	require.NoError(t, os.Symlink(outside, filepath.Join(corpusDir, "id:000001")))
	require.NoError(t, os.Symlink(filepath.Join(dir, "missing"), filepath.Join(corpusDir, "id:000002")))
	require.NoError(t, os.Symlink(dir, filepath.Join(corpusDir, "id:000003")))

	items, err := Enumerate(afero.NewOsFs(), corpusDir, DefaultPattern, 0)
	require.NoError(t, err)
	// The dangling link and the link to a directory are skipped
	assert.Equal(t, []string{
		filepath.Join(corpusDir, "id:000000"),
		filepath.Join(corpusDir, "id:000001"),
	}, paths(items))
}
