// Package record assembles the per-input crash records which make up a
// triage report.
package record

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"code-intelligence.com/crashtriage/pkg/corpus"
	"code-intelligence.com/crashtriage/pkg/parser/sanitizer"
	"code-intelligence.com/crashtriage/pkg/runner"
)

// DefaultKeywords are appended to every search query.
var DefaultKeywords = []string{"libtiff", "CVE"}

// CrashRecord is one row of the triage report.
type CrashRecord struct {
	// The mode the target was executed in
	Target         string           `json:"target" yaml:"target"`
	InputFile      string           `json:"input_file" yaml:"input_file"`
	Result         sanitizer.Result `json:"result" yaml:"result"`
	SanitizerError string           `json:"sanitizer_error" yaml:"sanitizer_error"`
	TopFunction    string           `json:"top_function" yaml:"top_function"`
	SourceHint     string           `json:"source_hint" yaml:"source_hint"`
	ReturnCode     int              `json:"return_code" yaml:"return_code"`
	ReproCmd       string           `json:"repro_cmd" yaml:"repro_cmd"`
	LogPath        string           `json:"log_path" yaml:"log_path"`
	SearchQuery    string           `json:"google_query" yaml:"google_query"`
	// Filled in manually by whoever reviews the report
	SuspectedDefect string `json:"suspected_cve" yaml:"suspected_cve"`

	// Whether the exit code was non-zero
	Crashed bool `json:"crashed" yaml:"crashed"`
	// Whether the output contains the markers of the bulk scan
	SanitizerBug bool `json:"sanitizer_bug" yaml:"sanitizer_bug"`
}

// ScanRow is one row of the bulk scan CSV.
type ScanRow struct {
	// Base name of the input
	File         string `json:"file" yaml:"file"`
	ReturnCode   int    `json:"return_code" yaml:"return_code"`
	Crashed      bool   `json:"crashed" yaml:"crashed"`
	SanitizerBug bool   `json:"sanitizer_bug" yaml:"sanitizer_bug"`
}

// ScanRow returns the bulk scan view of the record.
func (r *CrashRecord) ScanRow() *ScanRow {
	return &ScanRow{
		File:         filepath.Base(r.InputFile),
		ReturnCode:   r.ReturnCode,
		Crashed:      r.Crashed,
		SanitizerBug: r.SanitizerBug,
	}
}

type Builder struct {
	Mode   runner.Mode
	Target string
	Sink   string
	// Directory the per-input logs are written to if KeepLogs is set
	LogDir   string
	KeepLogs bool
	// Appended to the search query, DefaultKeywords if nil
	Keywords []string
	Fs       afero.Fs
}

// Build assembles the record for item. If the log can't be written, the
// complete record is returned together with the error, with an empty
// LogPath.
func (b *Builder) Build(item *corpus.Item, outcome *runner.ExecutionOutcome, sig sanitizer.Signature) (*CrashRecord, error) {
	rec := &CrashRecord{
		Target:       string(b.Mode),
		InputFile:    item.Path,
		Result:       sanitizer.Decide(outcome.TimedOut, outcome.Output, sig),
		TopFunction:  sig.TopFunction,
		SourceHint:   sig.SourceHint,
		ReturnCode:   outcome.ExitCode,
		ReproCmd:     ReproCommand(b.Mode, b.Target, item.Path, b.Sink),
		SearchQuery:  SearchQuery(sig, b.keywords()),
		Crashed:      outcome.ExitCode != 0,
		SanitizerBug: sanitizer.HasScanMarker(outcome.Output),
	}
	if sig.BugKind != sanitizer.UnknownBugKind {
		rec.SanitizerError = sig.BugKind
	}

	if b.KeepLogs {
		logPath, err := b.writeLog(item, outcome.Output)
		if err != nil {
			return rec, err
		}
		rec.LogPath = logPath
	}
	return rec, nil
}

func (b *Builder) keywords() []string {
	if b.Keywords == nil {
		return DefaultKeywords
	}
	return b.Keywords
}

func (b *Builder) writeLog(item *corpus.Item, output string) (string, error) {
	fs := b.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	err := fs.MkdirAll(b.LogDir, 0o755)
	if err != nil {
		return "", errors.WithStack(err)
	}
	logPath := filepath.Join(b.LogDir, item.SafeName+".log")
	err = afero.WriteFile(fs, logPath, []byte(output), 0o644)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return logPath, nil
}

// ReproCommand returns the shell command which reproduces the execution
// of the target on input.
func ReproCommand(mode runner.Mode, target, input, sink string) string {
	return shellescape.QuoteCommand(runner.Args(mode, target, input, sink))
}

// SearchQuery suggests a web search for known defects matching the
// signature: the top function, the base name of the source file and
// the keywords.
func SearchQuery(sig sanitizer.Signature, keywords []string) string {
	var bits []string
	if sig.TopFunction != "" {
		bits = append(bits, sig.TopFunction)
	}
	if file, _, found := strings.Cut(sig.SourceHint, ":"); found && file != "" {
		// Source hints always use forward slashes
		bits = append(bits, path.Base(file))
	}
	bits = append(bits, keywords...)
	return strings.Join(bits, " ")
}
