package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"code-intelligence.com/crashtriage/pkg/log"
	"code-intelligence.com/crashtriage/util/fileutil"
)

const ConfigFile = "crashtriage.yaml"

//go:embed crashtriage.yaml.tmpl
var configTemplate string

// CreateConfig creates a new config file in the given directory. If the
// file already exists, its path is returned together with an error
// wrapping os.ErrExist.
func CreateConfig(configDir string) (string, error) {
	// try to open the target file, returns error if already exists
	configpath := filepath.Join(configDir, ConfigFile)
	f, err := os.OpenFile(configpath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return configpath, errors.WithStack(err)
		}
		return "", errors.WithStack(err)
	}
	defer f.Close()

	config := struct{ LastUpdated string }{
		time.Now().Format("2006-01-02"),
	}

	t, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return "", errors.WithStack(err)
	}
	err = t.Execute(f, config)
	if err != nil {
		return "", errors.WithStack(err)
	}

	return configpath, nil
}

// FindConfigDir returns the closest directory, starting at the current
// working directory, which contains a config file. The returned error
// wraps os.ErrNotExist if there is none.
func FindConfigDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", errors.WithStack(err)
	}
	configFileExists, err := fileutil.Exists(filepath.Join(dir, ConfigFile))
	if err != nil {
		return "", err
	}
	for !configFileExists {
		if dir == filepath.Dir(dir) {
			err := fmt.Errorf("no %s in the current or any parent directory: %w", ConfigFile, os.ErrNotExist)
			return "", errors.WithStack(err)
		}
		dir = filepath.Dir(dir)
		configFileExists, err = fileutil.Exists(filepath.Join(dir, ConfigFile))
		if err != nil {
			return "", err
		}
	}

	dir, err = filepath.Abs(dir)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return dir, nil
}

// ReadConfig reads the config file found by FindConfigDir into viper.
// The config file is optional, if there is none an empty path is
// returned.
func ReadConfig() (string, error) {
	configDir, err := FindConfigDir()
	if errors.Is(err, os.ErrNotExist) {
		log.Debugf("No %s found, using flags and environment only", ConfigFile)
		return "", nil
	}
	if err != nil {
		return "", err
	}

	configpath := filepath.Join(configDir, ConfigFile)
	viper.SetConfigFile(configpath)
	err = viper.ReadInConfig()
	if err != nil {
		return "", errors.WithStack(err)
	}
	log.Debugf("Using config file %s", configpath)
	return configpath, nil
}

// ParseOptions unmarshals the settings from flags, environment and
// config file into opts, which has to be a pointer to a struct with
// mapstructure tags.
func ParseOptions(opts interface{}) error {
	// viper.Unmarshal doesn't return an error if the timeout value is
	// missing a unit, so we check that manually
	if viper.GetString("timeout") != "" {
		_, err := time.ParseDuration(viper.GetString("timeout"))
		if err != nil {
			return errors.WithStack(fmt.Errorf("error decoding 'timeout': %w", err))
		}
	}

	err := viper.Unmarshal(opts)
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}
