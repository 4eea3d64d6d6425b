package progress_handler

import (
	"os"
	"path/filepath"
	"time"

	"golang.org/x/term"

	"code-intelligence.com/crashtriage/internal/progress_handler/metrics"
	"code-intelligence.com/crashtriage/pkg/log"
	"code-intelligence.com/crashtriage/pkg/parser/sanitizer"
	"code-intelligence.com/crashtriage/pkg/record"
)

type ProgressHandlerOptions struct {
	// Print a line for every crash as soon as it's found
	PrintCrashes bool
	// When JSON is printed to stdout, progress goes to stderr
	PrintJSON bool
}

// ProgressHandler shows the progress of a batch. HandleProgress is not
// safe for concurrent use, the caller serializes the calls.
type ProgressHandler struct {
	*ProgressHandlerOptions
	usingUpdatingPrinter bool

	printer   metrics.Printer
	startedAt time.Time
	progress  metrics.Progress
}

func NewProgressHandler(options *ProgressHandlerOptions) (*ProgressHandler, error) {
	var err error
	h := &ProgressHandler{
		ProgressHandlerOptions: options,
		startedAt:              time.Now(),
	}

	var printerOutput *os.File
	if h.PrintJSON {
		printerOutput = os.Stderr
	} else {
		printerOutput = os.Stdout
	}

	// Use an updating printer if the output stream is a TTY
	if term.IsTerminal(int(printerOutput.Fd())) {
		h.printer, err = metrics.NewUpdatingPrinter(printerOutput)
		if err != nil {
			return nil, err
		}
		h.usingUpdatingPrinter = true
	} else {
		h.printer = metrics.NewLinePrinter(printerOutput)
	}

	return h, nil
}

// HandleProgress is called after each item. rec is nil if the item was
// skipped.
func (h *ProgressHandler) HandleProgress(done, total int, rec *record.CrashRecord) {
	h.progress.Done = done
	h.progress.Total = total
	switch {
	case rec == nil:
		h.progress.Skipped++
	case rec.Result == sanitizer.ResultCrash:
		h.progress.Crashes++
		if h.PrintCrashes {
			desc := rec.SanitizerError
			if desc == "" {
				desc = "sanitizer report"
			}
			log.Printf("💥 %s: %s", filepath.Base(rec.InputFile), desc)
		}
	case rec.Result == sanitizer.ResultTimeout:
		h.progress.Timeouts++
	}

	progress := h.progress
	h.printer.PrintProgress(&progress)
}

// Progress returns a copy of the current progress
func (h *ProgressHandler) Progress() metrics.Progress {
	return h.progress
}

// Stop stops the updating printer, if any. It must be called before
// the final summary is printed.
func (h *ProgressHandler) Stop() error {
	if h.usingUpdatingPrinter {
		return h.printer.(*metrics.UpdatingPrinter).Stop()
	}
	return nil
}

// Duration returns the time since the handler was created.
func (h *ProgressHandler) Duration() time.Duration {
	return time.Since(h.startedAt)
}
