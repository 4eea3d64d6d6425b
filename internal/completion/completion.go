package completion

import (
	"path/filepath"

	"github.com/mattn/go-zglob"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"code-intelligence.com/crashtriage/pkg/cmdutils"
	"code-intelligence.com/crashtriage/pkg/log"
	"code-intelligence.com/crashtriage/pkg/runner"
)

// ValidModes can be used as a cobra flag completion function for the
// --mode flag.
func ValidModes(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var modes []string
	for _, mode := range runner.Modes {
		modes = append(modes, string(mode))
	}
	return modes, cobra.ShellCompDirectiveNoFileComp
}

// ValidReports can be used as a cobra ValidArgsFunction that completes
// the triage reports and scan results in the output directory and the
// current working directory.
func ValidReports(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	// Change the directory if the `--directory` flag was set
	err := cmdutils.Chdir()
	if err != nil {
		log.Error(err, err.Error())
		return nil, cobra.ShellCompDirectiveError
	}

	dirs := []string{"."}
	if outDir := viper.GetString("out-dir"); outDir != "" {
		dirs = append(dirs, outDir)
	} else {
		dirs = append(dirs, "crashtriage-out")
	}

	var reports []string
	for _, dir := range dirs {
		for _, pattern := range []string{"*.xlsx", "*.csv"} {
			matches, err := zglob.Glob(filepath.Join(dir, pattern))
			if err != nil {
				// The directory doesn't exist
				continue
			}
			reports = append(reports, matches...)
		}
	}
	return reports, cobra.ShellCompDirectiveDefault
}
