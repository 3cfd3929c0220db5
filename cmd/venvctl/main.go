package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose   bool
	workspace string
	userName  string
	envRef    string
	simulate  bool
	timeout   time.Duration

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "venvctl",
	Short: "venvctl - session-scoped Python environment package manager",
	Long: `venvctl manages the package state of isolated Python virtual
environments from a single host process.

Every caller binds a session to exactly one environment; all interpreter
work funnels through a serialized gateway so concurrent sessions cannot
corrupt the shared embedded runtime. Package operations shell out to the
environment's package manager (pip or conda), introspect the interpreter
for ground truth, and keep a categorized package catalog per environment.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
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
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVarP(&userName, "user", "u", "", "Session principal (default: OS user)")
	rootCmd.PersistentFlags().StringVarP(&envRef, "env", "e", "", "Environment id or name (default: selection policy)")
	rootCmd.PersistentFlags().BoolVar(&simulate, "simulate", false, "Use the in-process simulated runtime instead of a python worker")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 15*time.Minute, "Operation timeout")

	// Requirements subcommands
	reqCmd.AddCommand(reqFreezeCmd)
	reqCmd.AddCommand(reqApplyCmd)
	reqCmd.AddCommand(reqValidateCmd)

	// Set subcommands
	setCmd.AddCommand(setListCmd)
	setCmd.AddCommand(setShowCmd)
	setCmd.AddCommand(setInstallCmd)
	setCmd.AddCommand(setSaveCmd)
	setCmd.AddCommand(setDeleteCmd)

	// Environment subcommands
	envCmd.AddCommand(envListCmd)
	envCmd.AddCommand(envAddCmd)
	envCmd.AddCommand(envShowCmd)
	envCmd.AddCommand(envRemoveCmd)

	// Add commands to root
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(upgradeCmd)
	rootCmd.AddCommand(upgradeAllCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(categorizeCmd)
	rootCmd.AddCommand(reqCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(envCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
