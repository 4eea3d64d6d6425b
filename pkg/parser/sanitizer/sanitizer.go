// Package sanitizer turns the diagnostic output of a process built with
// AddressSanitizer and/or UndefinedBehaviorSanitizer into a crash
// signature.
package sanitizer

import (
	"regexp"
	"strings"

	"github.com/pterm/pterm"

	"code-intelligence.com/crashtriage/pkg/parser/stacktrace"
	"code-intelligence.com/crashtriage/util/regexutil"
)

const UnknownBugKind = "Unknown"

// Result is the classification of a single execution
type Result string

const (
	ResultOK      Result = "ok"
	ResultCrash   Result = "crash"
	ResultTimeout Result = "timeout"
)

// Signature identifies the defect class of a sanitizer report
type Signature struct {
	// One of "ASan: <type>", "UBSan: <summary>" or UnknownBugKind
	BugKind     string `json:"bug_kind"`
	TopFunction string `json:"top_function,omitempty"`
	SourceHint  string `json:"source_hint,omitempty"`
}

type bugKindRule struct {
	pattern *regexp.Regexp
	kind    func(matches map[string]string) string
}

// The rules are tried in order, the first matching one determines the
// bug kind. New report formats are supported by adding a rule here.
var bugKindRules = []bugKindRule{
	{
		// ==4711==ERROR: AddressSanitizer: heap-buffer-overflow on address ...
		pattern: regexp.MustCompile(`ERROR:[ \t]+AddressSanitizer:[ \t]+(?P<error_type>[A-Za-z0-9_\-]+)`),
		kind: func(m map[string]string) string {
			return "ASan: " + m["error_type"]
		},
	},
	{
		// SUMMARY: UndefinedBehaviorSanitizer: undefined-behavior tif_dirread.c:3541:23 in
		pattern: regexp.MustCompile(`SUMMARY:[ \t]+UndefinedBehaviorSanitizer:[ \t]+(?P<summary>[^\n]+)`),
		kind: func(m map[string]string) string {
			return "UBSan: " + strings.TrimSpace(m["summary"])
		},
	},
	{
		// SUMMARY: AddressSanitizer: SEGV /src/libtiff/tif_dirread.c:5321:9 in TIFFFetchNormalTag
		pattern: regexp.MustCompile(`SUMMARY:[ \t]+AddressSanitizer:[ \t]+(?P<summary>[^\n]+)`),
		kind: func(m map[string]string) string {
			return "ASan: " + strings.TrimSpace(m["summary"])
		},
	},
}

// Classify extracts the crash signature from the output of a process.
// It never fails, information which is not found is left empty.
func Classify(output string) Signature {
	// Sanitizer reports are colorized when printed to a terminal
	output = pterm.RemoveColorFromString(output)

	sig := Signature{BugKind: UnknownBugKind}
	for _, rule := range bugKindRules {
		if matches, found := regexutil.FindNamedGroupsMatch(rule.pattern, output); found {
			sig.BugKind = rule.kind(matches)
			break
		}
	}

	if frame := stacktrace.TopFrame(output); frame != nil {
		sig.TopFunction = frame.Function
		sig.SourceHint = frame.Location
	}

	return sig
}

// HasSanitizerReport returns true if either sanitizer runtime printed
// something, regardless of whether a bug kind could be extracted.
func HasSanitizerReport(output string) bool {
	return strings.Contains(output, "AddressSanitizer") ||
		strings.Contains(output, "UndefinedBehaviorSanitizer")
}

// HasScanMarker is the cheaper check of the bulk scan. UBSan without
// print_summary only prints "runtime error:" lines, which is why they
// count as well.
func HasScanMarker(output string) bool {
	return strings.Contains(output, "AddressSanitizer") ||
		strings.Contains(output, "runtime error:")
}

// Decide classifies an execution. A timeout always wins. A non-zero
// exit code alone is not a crash, the target may reject malformed input
// with an error exit, only sanitizer evidence counts.
func Decide(timedOut bool, output string, sig Signature) Result {
	if timedOut {
		return ResultTimeout
	}
	if sig.BugKind != UnknownBugKind && sig.BugKind != "" {
		return ResultCrash
	}
	if HasSanitizerReport(output) {
		return ResultCrash
	}
	return ResultOK
}
