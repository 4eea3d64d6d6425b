package main

import (
	"strings"

	"github.com/spf13/viper"

	"code-intelligence.com/crashtriage/internal/cmd/root"
	"code-intelligence.com/crashtriage/pkg/storage"
)

func init() {
	viper.SetEnvPrefix("CRASHTRIAGE")
	viper.AutomaticEnv()
	// need to make CRASHTRIAGE_MY_VAR available as viper.Get("my-var")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

func main() {
	root.Execute(storage.WrapFileSystem())
}
