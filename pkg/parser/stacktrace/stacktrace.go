package stacktrace

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ianlancetaylor/demangle"

	"code-intelligence.com/crashtriage/util/regexutil"
)

// Matches a fully symbolized frame 0, e.g.
//
//	#0 0x55a1b2 in tiffcp_convert /src/tiffcp.c:412:9
//	#0 0x530ce7 in DoStuff(std::string const&) /src/api.cpp:24:10
//
// The function name stops at the parameter list, the source file is
// the last token before line and column.
var topFramePattern = regexp.MustCompile(
	`(?m)^[ \t]*#0[ \t]+0x[0-9a-fA-F]+[ \t]+in[ \t]+(?P<function>(\(anonymous namespace\))?[^(\s]+)[^\n]*?[ \t](?P<source_file>\S+?):(?P<line>\d+):(?P<column>\d+)`)

// Frame 0 without line and column, e.g. a frame in an uninstrumented
// library:
//
//	#0 0x7f3a in __interceptor_memcpy (/usr/lib/libasan.so.6+0x3a0)
//
// The location is kept as printed.
var looseTopFramePattern = regexp.MustCompile(
	`(?m)^[ \t]*#0[ \t]+[^\n]*[ \t]in[ \t]+(?P<function>\S+)[ \t]+(?P<location>[^\n]+?)[ \t]*$`)

// A Frame is the top frame of a sanitizer stack trace
type Frame struct {
	Function string
	// SourceFile, Line and Column are only set if the frame had the
	// fully symbolized shape
	SourceFile string
	Line       uint32
	Column     uint32
	// Location is "file:line:column" for fully symbolized frames and
	// whatever followed the function name otherwise
	Location string
}

// TopFrame returns frame #0 of the first stack trace in the output or
// nil if there is none.
func TopFrame(output string) *Frame {
	if matches, found := regexutil.FindNamedGroupsMatch(topFramePattern, output); found {
		line, lineErr := strconv.ParseUint(matches["line"], 10, 32)
		column, columnErr := strconv.ParseUint(matches["column"], 10, 32)
		if lineErr == nil && columnErr == nil {
			return &Frame{
				Function:   demangleFunction(matches["function"]),
				SourceFile: matches["source_file"],
				Line:       uint32(line),
				Column:     uint32(column),
				Location:   matches["source_file"] + ":" + matches["line"] + ":" + matches["column"],
			}
		}
	}

	if matches, found := regexutil.FindNamedGroupsMatch(looseTopFramePattern, output); found {
		return &Frame{
			Function: demangleFunction(matches["function"]),
			Location: strings.TrimSpace(matches["location"]),
		}
	}

	return nil
}

// Symbolizers usually demangle C++ names already, but frames of
// libraries without debug info can still carry the mangled name.
func demangleFunction(name string) string {
	if !strings.HasPrefix(name, "_Z") {
		return name
	}
	return demangle.Filter(name, demangle.NoParams)
}
