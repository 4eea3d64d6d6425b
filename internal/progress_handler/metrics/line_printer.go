package metrics

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mitchellh/ioprogress"
	"github.com/pterm/pterm"
	"golang.org/x/term"
)

// DefaultPrintInterval is the number of processed inputs after which the
// line printer prints a line
const DefaultPrintInterval = 50

func NewLinePrinter(output io.Writer) *LinePrinter {
	p := pterm.DefaultBasicText.WithWriter(output)
	return &LinePrinter{
		BasicTextPrinter: p,
		Interval:         DefaultPrintInterval,
		startedAt:        time.Now(),
		drawBar:          ioprogress.DrawTextFormatBar(20),
	}
}

// LinePrinter prints a line every Interval inputs and when the batch is
// complete, for outputs which are not a terminal.
type LinePrinter struct {
	*pterm.BasicTextPrinter
	Interval  int
	startedAt time.Time
	drawBar   ioprogress.DrawTextFormatFunc
}

func (p *LinePrinter) PrintProgress(progress *Progress) {
	if progress.Done != progress.Total && (p.Interval <= 0 || progress.Done%p.Interval != 0) {
		return
	}
	s := fmt.Sprint(
		p.drawBar(int64(progress.Done), int64(progress.Total)),
		" ",
		ProgressToString(progress, time.Since(p.startedAt)),
		DelimString(" ("),
		pterm.LightYellow(time.Since(p.startedAt).Round(time.Second).String()),
		DelimString(")"),
		"\n",
	)
	// Print without color if the output is not a TTY
	if file, ok := p.BasicTextPrinter.Writer.(*os.File); !ok || !term.IsTerminal(int(file.Fd())) {
		s = pterm.RemoveColorFromString(s)
	}
	p.Print(s)
}
