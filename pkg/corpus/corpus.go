// Package corpus lists the inputs produced by an external fuzzer which
// are to be triaged.
package corpus

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/mattn/go-zglob"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"code-intelligence.com/crashtriage/pkg/log"
)

// DefaultPattern matches the file names written by AFL-style fuzzers,
// e.g. "id:000123,sig:06,src:000001,op:havoc,rep:4".
const DefaultPattern = "id:*"

var ErrCorpusNotFound = errors.New("corpus directory not found")

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._,-]+`)

// Item is a single input of the corpus.
type Item struct {
	Path string
	// SafeName is the file name of Path with all characters which are
	// problematic in file names replaced, it's used to name per-input
	// artifacts like logs.
	SafeName string
	// Index is the position of the item in the enumeration order.
	Index int
}

func NewItem(path string, index int) *Item {
	return &Item{
		Path:     path,
		SafeName: SafeName(filepath.Base(path)),
		Index:    index,
	}
}

// SafeName turns a fuzzer file name like "id:000123,sig:06" into a name
// which can be used on every file system ("id_000123,sig_06").
func SafeName(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// Enumerate returns the regular files below dir whose path relative to
// dir matches pattern, sorted lexicographically. Symlinks to regular
// files are included, symlinked directories are not descended into.
// If limit is greater than zero, at most limit items are returned.
func Enumerate(fs afero.Fs, dir, pattern string, limit int) ([]*Item, error) {
	info, err := fs.Stat(dir)
	if errors.Is(err, os.ErrNotExist) || (err == nil && !info.IsDir()) {
		return nil, errors.Wrap(ErrCorpusNotFound, dir)
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if pattern == "" {
		pattern = DefaultPattern
	}

	var paths []string
	err = afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			// Walk doesn't follow symlinks
			info, err = fs.Stat(path)
			if err != nil {
				log.Debugf("Skipping %s: %v", path, err)
				return nil
			}
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return errors.WithStack(err)
		}
		matched, err := zglob.Match(pattern, filepath.ToSlash(rel))
		if err != nil {
			return errors.Wrapf(err, "invalid pattern %q", pattern)
		}
		if matched {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	sort.Strings(paths)
	if limit > 0 && len(paths) > limit {
		paths = paths[:limit]
	}

	items := make([]*Item, len(paths))
	for i, p := range paths {
		items[i] = NewItem(p, i)
	}
	return items, nil
}

// FromNames builds items for the given file names in dir, keeping the
// order of names. It's used to promote the inputs flagged by a bulk
// scan into the triage stage. The files are not required to exist,
// inputs which disappeared in the meantime are reported by the runner.
func FromNames(dir string, names []string) []*Item {
	items := make([]*Item, len(names))
	for i, name := range names {
		items[i] = NewItem(filepath.Join(dir, filepath.Base(name)), i)
	}
	return items
}
