package root

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	initCmd "code-intelligence.com/crashtriage/internal/cmd/init"
	scanCmd "code-intelligence.com/crashtriage/internal/cmd/scan"
	summarizeCmd "code-intelligence.com/crashtriage/internal/cmd/summarize"
	triageCmd "code-intelligence.com/crashtriage/internal/cmd/triage"
	"code-intelligence.com/crashtriage/internal/config"
	"code-intelligence.com/crashtriage/pkg/cmdutils"
	"code-intelligence.com/crashtriage/pkg/log"
)

func New(fs *afero.Afero) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "crashtriage",
		Short: "Triage the crashes found by a fuzzer",
		Long: `crashtriage runs a sanitizer-instrumented program on the inputs found by
a fuzzer, classifies the AddressSanitizer and UndefinedBehaviorSanitizer
reports and writes a report which can be reviewed in a spreadsheet.`,
		// We are using our custom ErrSilent instead to support a more specific
		// error handling
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmdutils.ViperMustBindPFlag("verbose", cmd.Flags().Lookup("verbose"))
			cmdutils.ViperMustBindPFlag("directory", cmd.Flags().Lookup("directory"))

			err := cmdutils.Chdir()
			if err != nil {
				log.Error(err, err.Error())
				return cmdutils.WrapSilentError(err)
			}

			if !cmdutils.NeedsConfig(cmd) {
				return nil
			}

			// The config file is optional, everything can be set via
			// flags and environment variables
			_, err = config.ReadConfig()
			if err != nil {
				log.Errorf(err, "Failed to read %s: %v", config.ConfigFile, err.Error())
				return cmdutils.WrapSilentError(err)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false,
		"Show more verbose output, can be helpful for debugging problems")
	rootCmd.PersistentFlags().StringP("directory", "C", "",
		"Change the directory before performing any operations")

	rootCmd.AddCommand(initCmd.New(fs))
	rootCmd.AddCommand(scanCmd.New(fs))
	rootCmd.AddCommand(triageCmd.New(fs))
	rootCmd.AddCommand(summarizeCmd.New(fs))

	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(fs *afero.Afero) {
	rootCmd := New(fs)
	if cmd, err := rootCmd.ExecuteC(); err != nil {
		// Errors that are not ErrSilent are not expected and we want to
		// show their full stacktrace. Incorrect usage errors and signal
		// errors were already logged when they occurred.
		var silentErr *cmdutils.SilentError
		var signalErr *cmdutils.SignalError
		var usageErr *cmdutils.IncorrectUsageError
		isUsageErr := errors.As(err, &usageErr)
		if !errors.As(err, &silentErr) && !errors.As(err, &signalErr) && !isUsageErr {
			_, _ = fmt.Fprint(cmd.ErrOrStderr(), pterm.Style{pterm.Bold, pterm.FgRed}.Sprintf("%+v\n", err))
		}

		// We only want to print the usage message if an ErrIncorrectUsage
		// was returned or it's an error produced by cobra which was
		// caused by incorrect usage
		if isUsageErr ||
			strings.HasPrefix(err.Error(), "required flag") ||
			strings.HasPrefix(err.Error(), "unknown command") ||
			strings.HasPrefix(err.Error(), "unknown flag") ||
			regexp.MustCompile(`(accepts|requires).*arg\(s\)`).MatchString(err.Error()) {
			// Ensure that there is an extra newline between the error
			// and the usage message
			if !strings.HasSuffix(err.Error(), "\n") {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr())
			}
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), cmd.UsageString())
		}

		if errors.As(err, &signalErr) {
			os.Exit(128 + int(signalErr.Signal))
		}

		os.Exit(1)
	}
}
