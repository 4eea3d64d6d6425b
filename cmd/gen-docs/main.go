package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra/doc"
	"github.com/spf13/pflag"

	rootCmd "code-intelligence.com/crashtriage/internal/cmd/root"
	"code-intelligence.com/crashtriage/pkg/storage"
)

func main() {
	flags := pflag.NewFlagSet("", pflag.ExitOnError)
	dir := flags.String("dir", ".", "target directory for the docs")

	if err := flags.Parse(os.Args); err != nil {
		log.Fatalf("unable to parse flags %v", err)
	}

	cmd := rootCmd.New(storage.WrapFileSystem())
	cmd.DisableAutoGenTag = true
	if err := doc.GenMarkdownTreeCustom(cmd, *dir, filePrepender, linkHandler); err != nil {
		log.Fatalf("error while generating markdown: %v", err)
	}
	fmt.Printf("successfully generated docs at %s\n", *dir)
}

func linkHandler(link string) string {
	return strings.TrimSuffix(link, ".md")
}

func filePrepender(filename string) string {
	return "---\ntitle: " + strings.TrimSuffix(filepath.Base(filename), ".md") + "\n---\n\n"
}
