package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/losyky/ai-pf2e-assistant-sub002/internal/config"
	"github.com/losyky/ai-pf2e-assistant-sub002/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "forge",
	Short: "forge - LLM-backed rule authoring for game entities",
	Long: `forge turns free-text entity descriptions into validated behavior
rule sets, using an LLM as an untrusted text-to-structure oracle.

The authoring flow is: synthesize (review the proposed rules), apply (commit
rules and any companion effect documents transactionally), and, when the host
engine reports validation problems, fix (feed the diagnostics back to the
oracle for a corrected set).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Debug = true
		}
		logger, err = logging.New(cfg.Logging.Debug)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".forge/config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(synthesizeCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(mechanicsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
