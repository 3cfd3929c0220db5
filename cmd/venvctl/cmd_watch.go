package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/registry"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch requirements files and mark environments stale on change",
	Long: `Watches the requirements file of every registered environment. When a
file changes outside venvctl (an editor, another tool), the owning
environment is marked stale so the next operation re-syncs its package
collection. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	watcher, err := registry.NewRequirementsWatcher(a.envs)
	if err != nil {
		return err
	}
	defer watcher.Stop()

	envs, err := a.envs.List()
	if err != nil {
		return err
	}
	watched := 0
	for _, env := range envs {
		if env.RequirementsPath == "" {
			continue
		}
		if err := watcher.Watch(env); err != nil {
			return err
		}
		fmt.Printf("Watching %s (%s)\n", env.RequirementsPath, env.Name)
		watched++
	}
	if watched == 0 {
		fmt.Println("No environments have a requirements file; nothing to watch")
		return nil
	}

	watcher.Start()

	ctx, cancel := opCtx()
	defer cancel()
	<-ctx.Done()
	return nil
}
