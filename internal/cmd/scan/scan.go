package scan

import (
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"code-intelligence.com/crashtriage/internal/batch"
	"code-intelligence.com/crashtriage/internal/completion"
	"code-intelligence.com/crashtriage/internal/config"
	"code-intelligence.com/crashtriage/pkg/cmdutils"
	"code-intelligence.com/crashtriage/pkg/log"
	"code-intelligence.com/crashtriage/pkg/record"
	"code-intelligence.com/crashtriage/pkg/report"
	"code-intelligence.com/crashtriage/pkg/summary"
)

type scanOpts struct {
	batch.Opts `mapstructure:",squash"`
	CSV        string `mapstructure:"csv"`
}

type scanCmd struct {
	*cobra.Command
	opts *scanOpts
}

func New(fs *afero.Afero) *cobra.Command {
	opts := &scanOpts{}
	var bindFlags func()

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Quickly check which inputs trigger a sanitizer report",
		Long: `This command runs the target on every input of the corpus and records
for each input whether the target exited non-zero (crashed) and whether
its output contains a sanitizer report (sanitizer_bug). The result is
written to a CSV file which can be passed to 'crashtriage triage
--from-scan' to triage only the flagged inputs.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind viper keys to flags. We can't do this in the New
			// function, because that would re-bind viper keys which
			// were bound to the flags of other commands before.
			bindFlags()
			cmdutils.ViperMustBindPFlag("csv", cmd.Flags().Lookup("csv"))

			err := config.ParseOptions(opts)
			if err != nil {
				return err
			}
			opts.Fs = fs
			return opts.Validate()
		},
		RunE: func(c *cobra.Command, args []string) error {
			cmd := scanCmd{Command: c, opts: opts}
			return cmd.run()
		},
	}

	bindFlags = cmdutils.AddFlags(cmd,
		cmdutils.AddTargetFlag,
		cmdutils.AddModeFlag,
		cmdutils.AddCorpusDirFlag,
		cmdutils.AddPatternFlag,
		cmdutils.AddTimeoutFlag,
		cmdutils.AddLimitFlag,
		cmdutils.AddOutDirFlag,
		cmdutils.AddKeepLogsFlag,
		cmdutils.AddJobsFlag,
		cmdutils.AddSanitizerOptionsFlags,
		cmdutils.AddSinkFlag,
		cmdutils.AddSamplesFlags,
		cmdutils.AddNotifyFlag,
		cmdutils.AddPrintJSONFlag,
	)
	cmd.Flags().String("csv", "",
		"Path of the scan result. The default is <out-dir>/scan_<mode>.csv.")
	err := cmd.RegisterFlagCompletionFunc("mode", completion.ValidModes)
	if err != nil {
		panic(err)
	}

	return cmd
}

func (c *scanCmd) run() error {
	items, err := c.opts.Enumerate()
	if err != nil {
		return err
	}

	err = c.opts.PrepareOutDir()
	if err != nil {
		return err
	}

	csvPath := c.opts.CSV
	if csvPath == "" {
		csvPath = filepath.Join(c.opts.OutDir, "scan_"+c.opts.Mode+".csv")
	}
	err = c.opts.PrepareArtifact(csvPath)
	if err != nil {
		return err
	}

	records, err := batch.Run(&c.opts.Opts, items)
	if err != nil {
		return err
	}

	// Skipped items stay nil, they are counted by the summary
	rows := make([]*record.ScanRow, len(records))
	found := []*record.ScanRow{}
	for i, rec := range records {
		if rec != nil {
			rows[i] = rec.ScanRow()
			found = append(found, rows[i])
		}
	}

	err = report.WriteScanCSVFile(csvPath, found)
	if err != nil {
		log.Error(err)
		return cmdutils.WrapSilentError(err)
	}

	if c.opts.PrintJSON {
		err = report.WriteJSON(c.OutOrStdout(), found)
		if err != nil {
			return err
		}
	}

	s := summary.FromScanRows(rows, c.opts.Samples, c.opts.Rand())
	summaryOut := c.OutOrStdout()
	if c.opts.PrintJSON {
		summaryOut = c.ErrOrStderr()
	}
	err = summary.Print(summaryOut, s)
	if err != nil {
		return err
	}

	batch.Finish(&c.opts.Opts, "crashtriage scan", csvPath, records)
	return nil
}
