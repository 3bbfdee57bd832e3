package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/zenprocess/open-lovable-cf/internal/logging"
)

var (
	verbose    bool
	logJSON    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "lovable-ctl",
	Short: "Apply AI-generated code to live Vite sandboxes",
	Long: `lovable-ctl reconciles AI code-generation responses with a sandbox
running a Vite + React + Tailwind dev server.

A response is parsed into files, packages, commands and precision edits,
and applied in order:
  - Missing npm packages are installed
  - <edit> blocks are merged into existing files
  - Files are written to the sandbox
  - Commands are run

Run "lovable-ctl serve" to expose the same operations over HTTP.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(verbose, logJSON, os.Stderr)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.config/lovable-ctl/config.toml)")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logWarning = logging.UserWarning
	logError   = logging.UserError
)
