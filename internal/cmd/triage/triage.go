package triage

import (
	"os"
	"path/filepath"

	"github.com/pkg/browser"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"code-intelligence.com/crashtriage/internal/batch"
	"code-intelligence.com/crashtriage/internal/completion"
	"code-intelligence.com/crashtriage/internal/config"
	"code-intelligence.com/crashtriage/pkg/cmdutils"
	"code-intelligence.com/crashtriage/pkg/corpus"
	"code-intelligence.com/crashtriage/pkg/log"
	"code-intelligence.com/crashtriage/pkg/record"
	"code-intelligence.com/crashtriage/pkg/report"
	"code-intelligence.com/crashtriage/pkg/summary"
)

type triageOpts struct {
	batch.Opts    `mapstructure:",squash"`
	XLSX          string `mapstructure:"xlsx"`
	FromScan      string `mapstructure:"from-scan"`
	CollectInputs bool   `mapstructure:"collect-inputs"`
	Open          bool   `mapstructure:"open"`
}

type triageCmd struct {
	*cobra.Command
	opts *triageOpts
}

func New(fs *afero.Afero) *cobra.Command {
	opts := &triageOpts{}
	var bindFlags func()

	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Run the target on every input and write a triage report",
		Long: `This command runs the sanitizer-instrumented target on every input of
the corpus, classifies the sanitizer output and writes one row per input
to an XLSX report: the kind of the bug, the top stack frame, the source
location, a command to reproduce the crash and a suggested web search.

Use --from-scan to only triage the inputs flagged by 'crashtriage scan'.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind viper keys to flags. We can't do this in the New
			// function, because that would re-bind viper keys which
			// were bound to the flags of other commands before.
			bindFlags()
			cmdutils.ViperMustBindPFlag("xlsx", cmd.Flags().Lookup("xlsx"))
			cmdutils.ViperMustBindPFlag("from-scan", cmd.Flags().Lookup("from-scan"))
			cmdutils.ViperMustBindPFlag("open", cmd.Flags().Lookup("open"))

			err := config.ParseOptions(opts)
			if err != nil {
				return err
			}
			opts.Fs = fs
			return opts.Validate()
		},
		RunE: func(c *cobra.Command, args []string) error {
			cmd := triageCmd{Command: c, opts: opts}
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
		cmdutils.AddKeywordsFlag,
		cmdutils.AddSamplesFlags,
		cmdutils.AddNotifyFlag,
		cmdutils.AddPrintJSONFlag,
		cmdutils.AddCollectInputsFlag,
	)
	cmd.Flags().String("xlsx", "",
		"Path of the report. The default is <out-dir>/triage_<mode>.xlsx.")
	cmd.Flags().String("from-scan", "",
		"Only triage the inputs marked with sanitizer_bug=YES in this scan `CSV`.")
	cmd.Flags().Bool("open", false, "Open the report when it's written.")
	err := cmd.RegisterFlagCompletionFunc("mode", completion.ValidModes)
	if err != nil {
		panic(err)
	}

	return cmd
}

func (c *triageCmd) run() error {
	items, err := c.items()
	if err != nil {
		return err
	}

	err = c.opts.PrepareOutDir()
	if err != nil {
		return err
	}

	xlsxPath := c.opts.XLSX
	if xlsxPath == "" {
		xlsxPath = filepath.Join(c.opts.OutDir, "triage_"+c.opts.Mode+".xlsx")
	}
	err = c.opts.PrepareArtifact(xlsxPath)
	if err != nil {
		return err
	}

	records, err := batch.Run(&c.opts.Opts, items)
	if err != nil {
		return err
	}
	found := batch.NonNil(records)

	err = report.WriteXLSX(xlsxPath, report.SheetName(c.opts.Mode), found)
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

	if c.opts.CollectInputs {
		err = c.collectInputs(found)
		if err != nil {
			return err
		}
	}

	s := summary.FromRecords(records, c.opts.Samples, c.opts.Rand())
	summaryOut := c.OutOrStdout()
	if c.opts.PrintJSON {
		summaryOut = c.ErrOrStderr()
	}
	err = summary.Print(summaryOut, s)
	if err != nil {
		return err
	}

	batch.Finish(&c.opts.Opts, "crashtriage triage", xlsxPath, records)

	if c.opts.Open {
		err = browser.OpenFile(xlsxPath)
		if err != nil {
			log.Warnf("Failed to open %s: %v", xlsxPath, err)
		}
	}
	return nil
}

func (c *triageCmd) items() ([]*corpus.Item, error) {
	if c.opts.FromScan == "" {
		return c.opts.Enumerate()
	}

	f, err := c.opts.Fs.Open(c.opts.FromScan)
	if err != nil {
		err = errors.WithStack(err)
		log.Error(err, err.Error())
		return nil, cmdutils.WrapSilentError(err)
	}
	defer f.Close()
	rows, err := report.ReadScanCSV(f)
	if err != nil {
		log.Errorf(err, "Failed to read %s: %v", c.opts.FromScan, err.Error())
		return nil, cmdutils.WrapSilentError(err)
	}

	names := report.SanitizerBugFiles(rows)
	if c.opts.Limit > 0 && len(names) > c.opts.Limit {
		names = names[:c.opts.Limit]
	}
	log.Infof("Promoting %d of %d scanned inputs to triage", len(names), len(rows))
	return corpus.FromNames(c.opts.CorpusDir, names), nil
}

func (c *triageCmd) collectInputs(records []*record.CrashRecord) error {
	crashesDir := cmdutils.CrashesDir(c.opts.OutDir)
	err := os.MkdirAll(crashesDir, 0o755)
	if err != nil {
		return errors.WithStack(err)
	}
	n, err := record.CollectInputs(records, crashesDir)
	if err != nil {
		log.Errorf(err, "Failed to collect inputs: %v", err.Error())
		return cmdutils.WrapSilentError(err)
	}
	log.Infof("Copied %d crashing inputs to %s", n, crashesDir)
	return nil
}
