package init

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"code-intelligence.com/crashtriage/internal/config"
	"code-intelligence.com/crashtriage/pkg/cmdutils"
	"code-intelligence.com/crashtriage/pkg/log"
)

func New(fs *afero.Afero) *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a crashtriage.yaml config file",
		Long: `This command creates a 'crashtriage.yaml' config file in the current
directory. All settings in the file are commented out, uncomment the
ones you want to use instead of passing them as flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	cmdutils.DisableConfigCheck(initCmd)

	return initCmd
}

func run() error {
	cwd, err := os.Getwd()
	if err != nil {
		return errors.WithStack(err)
	}
	log.Debugf("Using current working directory: %s", cwd)

	configpath, err := config.CreateConfig(cwd)
	if err != nil {
		// explicitly inform the user about an existing config file
		if errors.Is(err, os.ErrExist) && configpath != "" {
			log.Warnf("Config already exists in %s", configpath)
			return cmdutils.ErrSilent
		}
		log.Error(err, "Failed to create config")
		return cmdutils.WrapSilentError(err)
	}
	log.Successf("Configuration saved in %s", configpath)

	log.Print(`
Set 'target' and 'corpus-dir' in the config, then use 'crashtriage scan'
for a quick overview or 'crashtriage triage' for the full report.`)
	return nil
}
