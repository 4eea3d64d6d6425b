package sanitizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const asanHeapOverflow = `=================================================================
==2711==ERROR: AddressSanitizer: heap-buffer-overflow on address 0x602000000031 at pc 0x55a1b2 bp 0x7ffd sp 0x7ffd
READ of size 2 at 0x602000000031 thread T0
    #0 0x55a1b2 in tiffcp_convert /src/tiffcp.c:412:9
    #1 0x55a0ff in main /src/tiffcp.c:280:5
    #2 0x7f0e6c in __libc_start_main (/lib/x86_64-linux-gnu/libc.so.6+0x2409a)

SUMMARY: AddressSanitizer: heap-buffer-overflow /src/tiffcp.c:412:9 in tiffcp_convert
==2711==ABORTING
`

const ubsanReport = `/src/libtiff/tif_dirread.c:3541:23: runtime error: left shift of 255 by 24 places cannot be represented in type 'int'
    #0 0x4c1d3e in TIFFReadDirectory /src/libtiff/tif_dirread.c:3541:23
    #1 0x4b2a10 in TIFFClientOpen /src/libtiff/tif_open.c:466:8
SUMMARY: UndefinedBehaviorSanitizer: undefined-behavior /src/libtiff/tif_dirread.c:3541:23 in
`

const asanSummaryOnly = `AddressSanitizer:DEADLYSIGNAL
SUMMARY: AddressSanitizer: SEGV (/out/tiff2pdf+0x51c2f1) in t2p_write_pdf
`

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		expected Signature
	}{
		{
			"asan_error_header",
			asanHeapOverflow,
			Signature{
				BugKind:     "ASan: heap-buffer-overflow",
				TopFunction: "tiffcp_convert",
				SourceHint:  "/src/tiffcp.c:412:9",
			},
		},
		{
			"ubsan_summary",
			ubsanReport,
			Signature{
				BugKind:     "UBSan: undefined-behavior /src/libtiff/tif_dirread.c:3541:23 in",
				TopFunction: "TIFFReadDirectory",
				SourceHint:  "/src/libtiff/tif_dirread.c:3541:23",
			},
		},
		{
			"asan_summary_without_error_header",
			asanSummaryOnly,
			Signature{BugKind: "ASan: SEGV (/out/tiff2pdf+0x51c2f1) in t2p_write_pdf"},
		},
		{
			"clean_output",
			"TIFFReadDirectory: Warning, Unknown field with tag 292 (0x124) encountered.\n",
			Signature{BugKind: UnknownBugKind},
		},
		{
			"empty_output",
			"",
			Signature{BugKind: UnknownBugKind},
		},
		{
			"colorized_report",
			"\x1b[1m\x1b[31m==1==ERROR: AddressSanitizer: SEGV on unknown address 0x000000000000\x1b[1m\x1b[0m\n",
			Signature{BugKind: "ASan: SEGV"},
		},
		{
			"error_header_wins_over_summaries",
			ubsanReport + asanHeapOverflow,
			Signature{
				BugKind:     "ASan: heap-buffer-overflow",
				TopFunction: "TIFFReadDirectory",
				SourceHint:  "/src/libtiff/tif_dirread.c:3541:23",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Classify(tc.output))
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	for _, output := range []string{asanHeapOverflow, ubsanReport, asanSummaryOnly, "", "garbage\x00\xff"} {
		first := Classify(output)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, Classify(output))
		}
	}
}

func TestClassify_LiteralHeader(t *testing.T) {
	sig := Classify("prefix ERROR: AddressSanitizer: heap-buffer-overflow suffix")
	assert.Equal(t, "ASan: heap-buffer-overflow", sig.BugKind)
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		timedOut bool
		output   string
		expected Result
	}{
		{"timeout_wins_over_report", true, asanHeapOverflow, ResultTimeout},
		{"timeout_without_output", true, "", ResultTimeout},
		{"asan_report", false, asanHeapOverflow, ResultCrash},
		{"ubsan_report", false, ubsanReport, ResultCrash},
		{"raw_marker_without_kind", false, "AddressSanitizer:DEADLYSIGNAL\n", ResultCrash},
		{"clean_exit", false, "", ResultOK},
		{"error_exit_without_sanitizer", false, "tiffcp: Not a TIFF file, bad magic number 0 (0x0).\n", ResultOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Decide(tc.timedOut, tc.output, Classify(tc.output)))
		})
	}
}

func TestHasScanMarker(t *testing.T) {
	assert.True(t, HasScanMarker(asanHeapOverflow))
	assert.True(t, HasScanMarker("x.c:1:2: runtime error: signed integer overflow"))
	assert.False(t, HasScanMarker("tiffcp: Cannot read TIFF directory."))
}
