package metrics

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
)

// Progress is the state of a running batch
type Progress struct {
	Done     int
	Total    int
	Crashes  int
	Timeouts int
	Skipped  int
}

type Printer interface {
	PrintProgress(progress *Progress)
}

func DescString(format string, a ...any) string {
	return pterm.FgWhite.Sprintf(format, a...)
}

func NumberString(format string, a ...any) string {
	return pterm.FgLightCyan.Sprintf(format, a...)
}

func DelimString(format string, a ...any) string {
	return pterm.FgLightWhite.Sprintf(format, a...)
}

func ProgressToString(progress *Progress, elapsed time.Duration) string {
	if progress == nil {
		progress = &Progress{}
	}
	execsPerSecond := "n/a"
	if elapsed >= time.Second {
		execsPerSecond = fmt.Sprintf("%.1f", float64(progress.Done)/elapsed.Seconds())
	}

	return fmt.Sprint(DescString("inputs: "),
		NumberString("%d/%d", progress.Done, progress.Total),
		DelimString(" - "),
		DescString("crashes: "),
		NumberString("%d", progress.Crashes),
		DelimString(" - "),
		DescString("timeouts: "),
		NumberString("%d", progress.Timeouts),
		DelimString(" - "),
		DescString("skipped: "),
		NumberString("%d", progress.Skipped),
		DelimString(" - "),
		DescString("exec/s: "),
		NumberString("%s", execsPerSecond),
	)
}
