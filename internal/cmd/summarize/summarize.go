package summarize

import (
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"code-intelligence.com/crashtriage/internal/completion"
	"code-intelligence.com/crashtriage/internal/config"
	"code-intelligence.com/crashtriage/pkg/cmdutils"
	"code-intelligence.com/crashtriage/pkg/log"
	"code-intelligence.com/crashtriage/pkg/report"
	"code-intelligence.com/crashtriage/pkg/summary"
)

type summarizeOpts struct {
	Samples   int   `mapstructure:"samples"`
	Seed      int64 `mapstructure:"seed"`
	PrintJSON bool  `mapstructure:"print-json"`
	PrintYAML bool  `mapstructure:"print-yaml"`

	path string
}

func (opts *summarizeOpts) validate() error {
	if opts.PrintJSON && opts.PrintYAML {
		err := errors.New("--json and --yaml can't be used together")
		log.Error(err)
		return cmdutils.WrapIncorrectUsageError(err)
	}
	if opts.Samples < 0 {
		err := errors.New("--samples must not be negative")
		log.Error(err)
		return cmdutils.WrapIncorrectUsageError(err)
	}

	switch strings.ToLower(filepath.Ext(opts.path)) {
	case ".xlsx", ".csv":
	default:
		err := errors.Errorf("Unsupported file %s, expected a triage report (.xlsx) or a scan result (.csv)", opts.path)
		log.Error(err)
		return cmdutils.WrapIncorrectUsageError(err)
	}
	return nil
}

type summarizeCmd struct {
	*cobra.Command
	opts *summarizeOpts
	fs   *afero.Afero
}

func New(fs *afero.Afero) *cobra.Command {
	opts := &summarizeOpts{}
	var bindFlags func()

	cmd := &cobra.Command{
		Use:   "summarize <report>",
		Short: "Print statistics of a triage report or scan result",
		Long: `This command reads a triage report (.xlsx) written by 'crashtriage
triage' or a scan result (.csv) written by 'crashtriage scan' and prints
how many inputs crashed and triggered a sanitizer report, the
distribution of the return codes and a few example inputs for each
combination.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completion.ValidReports,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			bindFlags()
			cmdutils.ViperMustBindPFlag("print-yaml", cmd.Flags().Lookup("yaml"))

			err := config.ParseOptions(opts)
			if err != nil {
				return err
			}
			opts.path = args[0]
			return opts.validate()
		},
		RunE: func(c *cobra.Command, args []string) error {
			cmd := summarizeCmd{Command: c, opts: opts, fs: fs}
			return cmd.run()
		},
	}

	bindFlags = cmdutils.AddFlags(cmd,
		cmdutils.AddSamplesFlags,
		cmdutils.AddPrintJSONFlag,
	)
	cmd.Flags().Bool("yaml", false, "Print output as YAML")

	return cmd
}

func (c *summarizeCmd) run() error {
	s, err := c.summarize()
	if err != nil {
		log.Errorf(err, "Failed to read %s: %v", c.opts.path, err.Error())
		return cmdutils.WrapSilentError(err)
	}

	switch {
	case c.opts.PrintJSON:
		return report.WriteJSON(c.OutOrStdout(), s)
	case c.opts.PrintYAML:
		encoder := yaml.NewEncoder(c.OutOrStdout())
		encoder.SetIndent(2)
		err = encoder.Encode(s)
		if err != nil {
			return errors.WithStack(err)
		}
		return errors.WithStack(encoder.Close())
	default:
		return summary.Print(c.OutOrStdout(), s)
	}
}

func (c *summarizeCmd) summarize() (*summary.BatchSummary, error) {
	seed := c.opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	if strings.EqualFold(filepath.Ext(c.opts.path), ".xlsx") {
		records, err := report.ReadXLSX(c.opts.path)
		if err != nil {
			return nil, err
		}
		return summary.FromRecords(records, c.opts.Samples, rng), nil
	}

	fs := c.fs
	if fs == nil {
		fs = &afero.Afero{Fs: afero.NewOsFs()}
	}
	f, err := fs.Open(c.opts.path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	rows, err := report.ReadScanCSV(f)
	if err != nil {
		return nil, err
	}
	return summary.FromScanRows(rows, c.opts.Samples, rng), nil
}
