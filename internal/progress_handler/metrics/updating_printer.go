package metrics

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gookit/color"
	"github.com/pkg/errors"
	"github.com/pterm/pterm"

	"code-intelligence.com/crashtriage/pkg/log"
)

func NewUpdatingPrinter(output io.Writer) (*UpdatingPrinter, error) {
	// pterm.SpinnerPrinter doesn't support specifying the output, it
	// always uses color.output, so we have to set that. Note that this
	// affects the default output of all methods from the pterm and
	// color packages.
	color.SetOutput(output)

	var err error
	p := &UpdatingPrinter{
		SpinnerPrinter: pterm.DefaultSpinner.WithShowTimer(false),
		startedAt:      time.Now(),
		output:         output,
		done:           make(chan struct{}),
	}
	log.ActiveUpdatingPrinter = p

	p.SpinnerPrinter, err = p.SpinnerPrinter.Start()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// The elapsed time and exec/s change even when no input completes
	p.ticker = time.NewTicker(time.Second)
	go func() {
		for {
			select {
			case <-p.done:
				return
			case <-p.ticker.C:
				p.Update()
			}
		}
	}()

	return p, nil
}

type UpdatingPrinter struct {
	*pterm.SpinnerPrinter
	ticker    *time.Ticker
	done      chan struct{}
	startedAt time.Time
	output    io.Writer

	mutex        sync.Mutex
	lastProgress *Progress
	stopOnce     sync.Once
}

func (p *UpdatingPrinter) Update() {
	p.mutex.Lock()
	progress := p.lastProgress
	p.mutex.Unlock()
	p.printProgress(progress)
}

func (p *UpdatingPrinter) PrintProgress(progress *Progress) {
	p.mutex.Lock()
	p.lastProgress = progress
	p.mutex.Unlock()
	p.ticker.Reset(time.Second)
	p.printProgress(progress)
}

func (p *UpdatingPrinter) printProgress(progress *Progress) {
	s := fmt.Sprint(
		ProgressToString(progress, time.Since(p.startedAt)),
		DelimString(" ("),
		pterm.LightYellow(time.Since(p.startedAt).Round(time.Second).String()),
		DelimString(")"),
	)
	p.UpdateText(s)
}

func (p *UpdatingPrinter) Clear() {
	pterm.Fprinto(p.output, strings.Repeat(" ", pterm.GetTerminalWidth()), "\r")
}

// Stop stops the spinner and the ticker and detaches the printer from
// the logger.
func (p *UpdatingPrinter) Stop() error {
	p.ticker.Stop()
	p.stopOnce.Do(func() { close(p.done) })
	log.ActiveUpdatingPrinter = nil
	return errors.WithStack(p.SpinnerPrinter.Stop())
}
