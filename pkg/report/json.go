package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hokaccha/go-prettyjson"
	"github.com/pkg/errors"
	"golang.org/x/term"
)

// WriteJSON writes v as indented JSON to w, colorized if w is a
// terminal.
func WriteJSON(w io.Writer, v any) error {
	var bytes []byte
	var err error
	if file, ok := w.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		bytes, err = prettyjson.Marshal(v)
	} else {
		bytes, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = fmt.Fprintln(w, string(bytes))
	return errors.WithStack(err)
}

// WriteJSONFile writes v as indented JSON to path.
func WriteJSONFile(path string, v any) error {
	return WriteFile(path, func(w io.Writer) error {
		return WriteJSON(w, v)
	})
}
