package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/requirements"
)

var freezeVersions bool

var reqCmd = &cobra.Command{
	Use:     "requirements",
	Aliases: []string{"req"},
	Short:   "Requirements file lifecycle (freeze, apply, validate)",
}

var reqFreezeCmd = &cobra.Command{
	Use:   "freeze [file]",
	Short: "Snapshot the environment's packages into a requirements file",
	Long: `Enumerates the environment's installed packages and writes them as a
category-grouped requirements file. The write is atomic: the target file is
replaced in a single step.`,
	Args: cobra.ExactArgs(1),
	RunE: runFreeze,
}

var reqApplyCmd = &cobra.Command{
	Use:   "apply [file]",
	Short: "Install every package listed in a requirements file",
	Long: `Parses and validates the file, then installs each entry. Individual
failures do not stop the run; the command exits non-zero if any single
install failed.`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

var reqValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a requirements file against the accepted grammar",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	reqFreezeCmd.Flags().BoolVar(&freezeVersions, "versions", true, "Pin each package to its installed version")
}

func runFreeze(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := opCtx()
	defer cancel()
	if err := a.configure(ctx); err != nil {
		return err
	}

	// Refresh the collection before snapshotting it.
	records, err := a.mgr.ListAll(ctx)
	if err != nil {
		return err
	}

	env := a.mgr.Environment()
	if err := requirements.GenerateToFile(env, args[0], freezeVersions); err != nil {
		return err
	}
	if err := a.envs.Save(env); err != nil {
		return err
	}
	fmt.Printf("Wrote %d packages to %s\n", len(records), args[0])
	return nil
}

func runApply(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := opCtx()
	defer cancel()
	if err := a.configure(ctx); err != nil {
		return err
	}

	ok, err := requirements.InstallFromFile(ctx, a.mgr, args[0])
	if ok {
		fmt.Printf("Applied %s\n", args[0])
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply finished with failures: %w", err)
	}
	return fmt.Errorf("apply finished with failures")
}

func runValidate(cmd *cobra.Command, args []string) error {
	doc, err := requirements.ParseFile(args[0])
	if err != nil {
		return err
	}
	result := requirements.Validate(doc)
	if result.Valid {
		fmt.Printf("%s: %d entries, all valid\n", args[0], doc.Len())
		return nil
	}
	for _, msg := range result.Errors {
		fmt.Printf("  %s\n", msg)
	}
	return fmt.Errorf("%s: %d problems", args[0], len(result.Errors))
}
