package cmdutils

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"code-intelligence.com/crashtriage/pkg/corpus"
	"code-intelligence.com/crashtriage/pkg/record"
)

func ViperMustBindPFlag(key string, flag *pflag.Flag) {
	err := viper.BindPFlag(key, flag)
	if err != nil {
		panic(err)
	}
}

// AddFlags executes the specified Add*Flag functions and returns a
// function which binds all those flags to viper. The returned function
// has to be called in PreRunE, because viper keys are global and
// commands share flag names.
func AddFlags(cmd *cobra.Command, funcs ...func(cmd *cobra.Command) func()) (bindFlags func()) { // nolint:nonamedreturns
	var bindFlagFuncs []func()
	for _, f := range funcs {
		bindFlagFunc := f(cmd)
		bindFlagFuncs = append(bindFlagFuncs, bindFlagFunc)
	}
	return func() {
		for _, f := range bindFlagFuncs {
			f()
		}
	}
}

func addFlag(cmd *cobra.Command, key string) func() {
	return func() {
		ViperMustBindPFlag(key, cmd.Flags().Lookup(key))
	}
}

func AddTargetFlag(cmd *cobra.Command) func() {
	cmd.Flags().StringP("target", "t", "",
		"Path of the sanitizer-instrumented `executable` to run on the inputs.")
	return addFlag(cmd, "target")
}

func AddModeFlag(cmd *cobra.Command) func() {
	cmd.Flags().StringP("mode", "m", "tiffcp",
		"How the target is invoked, one of:\n"+
			"  tiffcp:   <target> <input> <sink>\n"+
			"  tiff2pdf: <target> -o <sink> <input>\n"+
			"  plain:    <target> <input>")
	return addFlag(cmd, "mode")
}

func AddCorpusDirFlag(cmd *cobra.Command) func() {
	cmd.Flags().StringP("corpus-dir", "c", "",
		"The `directory` containing the inputs found by the fuzzer.")
	return addFlag(cmd, "corpus-dir")
}

func AddPatternFlag(cmd *cobra.Command) func() {
	cmd.Flags().String("pattern", corpus.DefaultPattern,
		"Glob `pattern` which the input paths relative to the corpus directory have to match.\n"+
			"Use \"**/id:*\" to include subdirectories.")
	return addFlag(cmd, "pattern")
}

func AddTimeoutFlag(cmd *cobra.Command) func() {
	cmd.Flags().Duration("timeout", 5*time.Second,
		"Maximum time a single execution of the target may take.\n"+
			"Executions which take longer are terminated and reported as timeout.")
	return addFlag(cmd, "timeout")
}

func AddLimitFlag(cmd *cobra.Command) func() {
	cmd.Flags().Int("limit", 0, "Only process the first `n` inputs, 0 means no limit.")
	return addFlag(cmd, "limit")
}

func AddOutDirFlag(cmd *cobra.Command) func() {
	cmd.Flags().StringP("out-dir", "o", "crashtriage-out",
		"The `directory` the report, logs and collected inputs are written to.")
	return addFlag(cmd, "out-dir")
}

func AddKeepLogsFlag(cmd *cobra.Command) func() {
	cmd.Flags().Bool("keep-logs", false,
		"Write the complete output of every execution to <out-dir>/logs.")
	return addFlag(cmd, "keep-logs")
}

func AddJobsFlag(cmd *cobra.Command) func() {
	cmd.Flags().IntP("jobs", "j", 0,
		"Maximum number of concurrent executions of the target.\n"+
			"The default is the number of physical CPU cores.")
	return addFlag(cmd, "jobs")
}

func AddSanitizerOptionsFlags(cmd *cobra.Command) func() {
	cmd.Flags().String("asan-options", "",
		"Additional ASAN_OPTIONS, e.g. \"allocator_may_return_null=1\".\n"+
			"They take precedence over the options set by default.")
	cmd.Flags().String("ubsan-options", "",
		"Additional UBSAN_OPTIONS, e.g. \"halt_on_error=1\".")
	return func() {
		ViperMustBindPFlag("asan-options", cmd.Flags().Lookup("asan-options"))
		ViperMustBindPFlag("ubsan-options", cmd.Flags().Lookup("ubsan-options"))
	}
}

func AddSinkFlag(cmd *cobra.Command) func() {
	cmd.Flags().String("sink", "",
		"The `file` the target writes its output to. The default is the null device.")
	return addFlag(cmd, "sink")
}

func AddKeywordsFlag(cmd *cobra.Command) func() {
	cmd.Flags().StringSlice("keywords", record.DefaultKeywords,
		"Keywords appended to the suggested search query of every crash.")
	return addFlag(cmd, "keywords")
}

func AddSamplesFlags(cmd *cobra.Command) func() {
	cmd.Flags().Int("samples", 3, "Number of example inputs shown per category in the summary.")
	cmd.Flags().Int64("seed", 0, "Seed for choosing the example inputs, 0 picks a random seed.")
	return func() {
		ViperMustBindPFlag("samples", cmd.Flags().Lookup("samples"))
		ViperMustBindPFlag("seed", cmd.Flags().Lookup("seed"))
	}
}

func AddNotifyFlag(cmd *cobra.Command) func() {
	cmd.Flags().Bool("notify", false, "Send a desktop notification when the batch is complete.")
	return addFlag(cmd, "notify")
}

func AddPrintJSONFlag(cmd *cobra.Command) func() {
	cmd.Flags().Bool("json", false, "Print output as JSON")
	return func() {
		ViperMustBindPFlag("print-json", cmd.Flags().Lookup("json"))
	}
}

func AddCollectInputsFlag(cmd *cobra.Command) func() {
	cmd.Flags().Bool("collect-inputs", false,
		"Copy the inputs which triggered a sanitizer report to <out-dir>/crashes.")
	return addFlag(cmd, "collect-inputs")
}
