package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	setDescription string
	setPinVersions bool
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Named package sets for templated bulk installs",
}

var setListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available package sets",
	Args:  cobra.NoArgs,
	RunE:  runSetList,
}

var setShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show one set's packages",
	Args:  cobra.ExactArgs(1),
	RunE:  runSetShow,
}

var setInstallCmd = &cobra.Command{
	Use:   "install [name]",
	Short: "Install every package in a named set",
	Long: `Expands the set into a synthetic requirements document and applies it
with the same partial-failure semantics as 'requirements apply'.

Example:
  venvctl set install data-science`,
	Args: cobra.ExactArgs(1),
	RunE: runSetInstall,
}

var setSaveCmd = &cobra.Command{
	Use:   "save [name]",
	Short: "Snapshot the environment's packages into a new set",
	Args:  cobra.ExactArgs(1),
	RunE:  runSetSave,
}

var setDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a saved set definition",
	Args:  cobra.ExactArgs(1),
	RunE:  runSetDelete,
}

func init() {
	setSaveCmd.Flags().StringVar(&setDescription, "description", "", "Set description")
	setSaveCmd.Flags().BoolVar(&setPinVersions, "versions", false, "Pin each package to its installed version")
}

func runSetList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	defs, err := a.sets.List()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPACKAGES\tDESCRIPTION")
	for _, def := range defs {
		fmt.Fprintf(w, "%s\t%d\t%s\n", def.Name, len(def.Packages), def.Description)
	}
	return w.Flush()
}

func runSetShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	def, err := a.sets.Get(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Set: %s\n", def.Name)
	if def.Description != "" {
		fmt.Printf("Description: %s\n", def.Description)
	}
	for _, spec := range def.Packages {
		fmt.Printf("  %s\n", spec)
	}
	return nil
}

func runSetInstall(cmd *cobra.Command, args []string) error {
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

	ok, err := a.sets.InstallSet(ctx, a.mgr, args[0])
	if ok {
		fmt.Printf("Installed set %s\n", args[0])
		return nil
	}
	if err != nil {
		return fmt.Errorf("set install finished with failures: %w", err)
	}
	return fmt.Errorf("set install finished with failures")
}

func runSetSave(cmd *cobra.Command, args []string) error {
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

	// Refresh so the snapshot reflects what is actually installed.
	if _, err := a.mgr.ListAll(ctx); err != nil {
		return err
	}

	def, err := a.sets.SaveFromEnvironment(args[0], setDescription, a.mgr.Environment(), setPinVersions)
	if err != nil {
		return err
	}
	fmt.Printf("Saved set %s (%d packages)\n", def.Name, len(def.Packages))
	return nil
}

func runSetDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.sets.Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted set %s\n", args[0])
	return nil
}
