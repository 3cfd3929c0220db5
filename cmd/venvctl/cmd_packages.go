package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/types"
)

var installCmd = &cobra.Command{
	Use:   "install [package[constraint]...]",
	Short: "Install one or more packages into the bound environment",
	Long: `Installs packages through the environment's package manager and
refreshes each record from interpreter introspection on success.

Example:
  venvctl install numpy
  venvctl install "pandas>=2.0" requests`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall [package...]",
	Short: "Remove one or more packages from the bound environment",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUninstall,
}

var upgradeCmd = &cobra.Command{
	Use:   "upgrade [package...]",
	Short: "Upgrade one or more packages to their latest versions",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUpgrade,
}

var upgradeAllCmd = &cobra.Command{
	Use:   "upgrade-all",
	Short: "Upgrade every package recorded in the bound environment",
	Long: `Attempts to upgrade every package in the environment's collection.
Individual failures do not stop the run; the command exits non-zero if any
single upgrade failed.`,
	Args: cobra.NoArgs,
	RunE: runUpgradeAll,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed packages with versions, categories, and updates",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var infoCmd = &cobra.Command{
	Use:   "info [package]",
	Short: "Show one package's record, cross-checked against the online index",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var categorizeCmd = &cobra.Command{
	Use:   "categorize",
	Short: "Assign categories to uncategorized packages",
	Args:  cobra.NoArgs,
	RunE:  runCategorize,
}

func runInstall(cmd *cobra.Command, args []string) error {
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

	failed := 0
	for _, spec := range args {
		ok, err := a.mgr.Install(ctx, spec)
		if err != nil {
			return err
		}
		if !ok {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d installs failed", failed, len(args))
	}
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
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

	failed := 0
	for _, name := range args {
		ok, err := a.mgr.Uninstall(ctx, name)
		if err != nil {
			return err
		}
		if !ok {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uninstalls failed", failed, len(args))
	}
	return nil
}

func runUpgrade(cmd *cobra.Command, args []string) error {
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

	failed := 0
	for _, name := range args {
		ok, err := a.mgr.Upgrade(ctx, name)
		if err != nil {
			return err
		}
		if !ok {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d upgrades failed", failed, len(args))
	}
	return nil
}

func runUpgradeAll(cmd *cobra.Command, args []string) error {
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

	ok, err := a.mgr.UpgradeAll(ctx)
	if ok {
		return nil
	}
	if err != nil {
		return fmt.Errorf("upgrade-all finished with failures: %w", err)
	}
	return fmt.Errorf("upgrade-all finished with failures")
}

func runList(cmd *cobra.Command, args []string) error {
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

	records, err := a.mgr.ListAll(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tCATEGORY\tUPDATE")
	for _, rec := range records {
		update := "-"
		if rec.Action == types.ActionUpdate && rec.AvailableVersion != "" {
			update = rec.AvailableVersion
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rec.Name, rec.Version, rec.Category, update)
	}
	return w.Flush()
}

func runInfo(cmd *cobra.Command, args []string) error {
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

	rec, err := a.mgr.GetInfo(ctx, args[0])
	if err != nil {
		return err
	}
	if rec == nil {
		fmt.Printf("%s is not installed in %s\n", args[0], a.mgr.Environment().Name)
		return nil
	}

	fmt.Printf("Name:        %s\n", rec.Name)
	fmt.Printf("Version:     %s\n", rec.Version)
	fmt.Printf("Category:    %s\n", rec.Category)
	fmt.Printf("Status:      %s\n", rec.Status)
	if rec.Description != "" {
		fmt.Printf("Summary:     %s\n", rec.Description)
	}
	if rec.InstallPath != "" {
		fmt.Printf("Location:    %s\n", rec.InstallPath)
	}
	if rec.Action == types.ActionUpdate && rec.AvailableVersion != "" {
		fmt.Printf("Update:      %s available\n", rec.AvailableVersion)
	} else {
		fmt.Printf("Update:      up to date\n")
	}
	return nil
}

func runCategorize(cmd *cobra.Command, args []string) error {
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

	changed, err := a.mgr.Categorize(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Categorized %d packages\n", changed)
	return nil
}
