package record

import (
	"path/filepath"

	"github.com/otiai10/copy"
	"github.com/pkg/errors"

	"code-intelligence.com/crashtriage/pkg/corpus"
	"code-intelligence.com/crashtriage/pkg/log"
	"code-intelligence.com/crashtriage/pkg/parser/sanitizer"
)

// CollectInputs copies the inputs of all records with result "crash"
// into dir, named after the record's safe name. It returns the number
// of copied inputs.
func CollectInputs(records []*CrashRecord, dir string) (int, error) {
	n := 0
	for _, rec := range records {
		if rec == nil || rec.Result != sanitizer.ResultCrash {
			continue
		}
		dest := filepath.Join(dir, corpus.SafeName(filepath.Base(rec.InputFile)))
		// We copy instead of moving the input, the corpus belongs to
		// the fuzzer
		err := copy.Copy(rec.InputFile, dest)
		if err != nil {
			return n, errors.WithStack(err)
		}
		log.Debugf("Copied input %s to %s", rec.InputFile, dest)
		n++
	}
	return n, nil
}
