package summary

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"golang.org/x/term"

	"code-intelligence.com/crashtriage/internal/progress_handler/metrics"
	"code-intelligence.com/crashtriage/pkg/parser/sanitizer"
	"code-intelligence.com/crashtriage/util/stringutil"
)

// Print renders the summary for humans: the totals, the counts per
// classification, the return code histogram and the sampled entries.
func Print(w io.Writer, s *BatchSummary) error {
	var b strings.Builder

	b.WriteString(pterm.DefaultSection.Sprint("Summary"))
	tw := tabwriter.NewWriter(&b, 0, 0, 1, ' ', 0)
	lines := []string{
		metrics.DescString("Total inputs:\t") + metrics.NumberString("%d", s.Total),
		metrics.DescString("Skipped:\t") + metrics.NumberString("%d", s.Skipped),
	}
	for _, result := range []sanitizer.Result{sanitizer.ResultCrash, sanitizer.ResultTimeout, sanitizer.ResultOK} {
		lines = append(lines, metrics.DescString("Result %s:\t", result)+metrics.NumberString("%d", s.Results[result]))
	}
	lines = append(lines,
		metrics.DescString("Crashed = YES:\t")+metrics.NumberString("%d", s.CrashedYes),
		metrics.DescString("Crashed = NO:\t")+metrics.NumberString("%d", s.CrashedNo),
		metrics.DescString("Sanitizer bug = YES:\t")+metrics.NumberString("%d", s.SanitizerBugYes),
		metrics.DescString("Sanitizer bug = NO:\t")+metrics.NumberString("%d", s.SanitizerBugNo),
		metrics.DescString("Crashed & sanitizer bug YES:\t")+metrics.NumberString("%d", s.CrashedAndSanitizerBug),
		metrics.DescString("Crashed & sanitizer bug NO:\t")+metrics.NumberString("%d", s.CrashedWithoutSanitizerBug),
	)
	for _, line := range lines {
		_, err := fmt.Fprintln(tw, line)
		if err != nil {
			return errors.WithStack(err)
		}
	}
	err := tw.Flush()
	if err != nil {
		return errors.WithStack(err)
	}

	if len(s.ReturnCodes) > 0 {
		b.WriteString(pterm.DefaultSection.WithLevel(2).Sprint("Return code distribution"))
		data := pterm.TableData{{"return code", "count"}}
		for _, rc := range s.ReturnCodes {
			data = append(data, []string{strconv.Itoa(rc.ReturnCode), strconv.Itoa(rc.Count)})
		}
		table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
		if err != nil {
			return errors.WithStack(err)
		}
		b.WriteString(table + "\n")
	}

	samples := []struct {
		title   string
		entries []*Entry
	}{
		{"Examples: crashed=YES, sanitizer_bug=YES", s.Samples.Confirmed},
		{"Examples: one YES, one NO", s.Samples.Discordant},
		{"Examples: crashed=NO, sanitizer_bug=NO", s.Samples.Clean},
	}
	for _, sample := range samples {
		if len(sample.entries) == 0 {
			continue
		}
		b.WriteString(pterm.DefaultSection.WithLevel(2).Sprint(sample.title))
		data := pterm.TableData{{"file", "return code", "crashed", "sanitizer bug", "sanitizer error"}}
		for _, e := range sample.entries {
			data = append(data, []string{
				e.File,
				strconv.Itoa(e.ReturnCode),
				stringutil.YesNo(e.Crashed),
				stringutil.YesNo(e.SanitizerBug),
				e.SanitizerError,
			})
		}
		table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
		if err != nil {
			return errors.WithStack(err)
		}
		b.WriteString(table + "\n")
	}

	out := b.String()
	// Print without color if the output is not a TTY
	if file, ok := w.(*os.File); !ok || !term.IsTerminal(int(file.Fd())) {
		out = pterm.RemoveColorFromString(out)
	}
	_, err = fmt.Fprint(w, out)
	return errors.WithStack(err)
}
