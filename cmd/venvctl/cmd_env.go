package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/types"
)

var (
	envRoot   string
	envBinary string
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Manage the virtual environment catalog",
}

var envListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered environments",
	Args:  cobra.NoArgs,
	RunE:  runEnvList,
}

var envAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Register a virtual environment",
	Long: `Registers an existing virtual environment in the catalog. The
interpreter version is probed through the runtime.

Example:
  venvctl env add ml-sandbox --root /opt/venvs/ml --binary pip`,
	Args: cobra.ExactArgs(1),
	RunE: runEnvAdd,
}

var envShowCmd = &cobra.Command{
	Use:   "show [id-or-name]",
	Short: "Show one environment and its recorded packages",
	Args:  cobra.ExactArgs(1),
	RunE:  runEnvShow,
}

var envRemoveCmd = &cobra.Command{
	Use:   "remove [id-or-name]",
	Short: "Remove an environment from the catalog",
	Long: `Removes the catalog entry and its package records. The environment
directory on disk is not touched.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnvRemove,
}

func init() {
	envAddCmd.Flags().StringVar(&envRoot, "root", "", "Environment root directory")
	envAddCmd.Flags().StringVar(&envBinary, "binary", "pip", "Package manager kind (pip or conda)")
}

func runEnvList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	envs, err := a.envs.List()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPYTHON\tBINARY\tPACKAGES")
	for _, env := range envs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
			env.ID, env.Name, env.PythonVersion, env.Binary, env.PackageCount())
	}
	return w.Flush()
}

func runEnvAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	kind := types.BinaryKind(envBinary)
	if kind != types.BinaryPip && kind != types.BinaryConda {
		return types.NewConfigurationError("binary must be pip or conda, got %q", envBinary)
	}

	if existing, err := a.envs.GetByName(args[0]); err != nil {
		return err
	} else if existing != nil {
		return types.NewConfigurationError("environment %q already exists", args[0])
	}

	ctx, cancel := opCtx()
	defer cancel()

	env := types.NewEnvironment(uuid.NewString(), args[0])
	env.Root = envRoot
	env.Binary = kind

	version, err := a.gw.PythonVersion(ctx)
	if err != nil {
		return err
	}
	env.PythonVersion = version

	if err := a.envs.Save(env); err != nil {
		return err
	}
	fmt.Printf("Registered environment %s (%s, python %s)\n", env.Name, env.ID, env.PythonVersion)
	return nil
}

func runEnvShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	env, err := a.resolveEnv(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Environment: %s\n", env.Name)
	fmt.Printf("ID:          %s\n", env.ID)
	fmt.Printf("Python:      %s\n", env.PythonVersion)
	fmt.Printf("Binary:      %s\n", env.Binary)
	if env.Root != "" {
		fmt.Printf("Root:        %s\n", env.Root)
	}
	if env.RequirementsPath != "" {
		fmt.Printf("Requirements: %s\n", env.RequirementsPath)
	}
	if !env.LastSync.IsZero() {
		fmt.Printf("Last sync:   %s\n", env.LastSync.Format("2006-01-02 15:04:05"))
	}

	records := env.Packages()
	if len(records) == 0 {
		fmt.Println("No packages recorded")
		return nil
	}
	fmt.Printf("Packages (%d):\n", len(records))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, rec := range records {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", rec.Name, rec.Version, rec.Category)
	}
	return w.Flush()
}

func runEnvRemove(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	env, err := a.resolveEnv(args[0])
	if err != nil {
		return err
	}
	if err := a.envs.Remove(env.ID); err != nil {
		return err
	}
	fmt.Printf("Removed environment %s\n", env.Name)
	return nil
}
