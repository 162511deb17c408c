package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pdf-finder",
	Short: "Scan PDF corpora for content features",
	Long: `pdf-finder scans large PDF corpora and reports which documents use
XFA forms, JavaScript, tags, encryption and related features.

Each PDF is uncompressed with qpdf and classified by byte-pattern
inspection exactly once; the result is memoized in a JSON sidecar next to
the document, so repeated runs over an unchanged corpus are free.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "pdf-finder.yaml", "YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
