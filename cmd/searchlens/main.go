// Command searchlens runs enriched hybrid searches over Meilisearch knowledge bases.
//
// Usage:
//
//	searchlens serve                 # HTTP API
//	searchlens search "AI" --top-k 5 # one search, printed to stdout
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/searchlens/internal/version"
)

// rootFlags are shared by all subcommands.
type rootFlags struct {
	env        string
	configPath string
}

func main() {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	flags := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:           "searchlens",
		Short:         "Hybrid search with LLM summaries and keywords",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.Date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.env, "env", "", "config environment (default: $ENV or local)")
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "explicit config file path")

	rootCmd.AddCommand(newServeCmd(flags))
	rootCmd.AddCommand(newSearchCmd(flags))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
