package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/elee1766/chatportal/src/config"
)

// ConfigCmd inspects configuration
type ConfigCmd struct {
	Show ConfigShowCmd `cmd:"" help:"Print the effective configuration"`
	Path ConfigPathCmd `cmd:"" help:"List configuration and state file locations"`
}

// ConfigShowCmd prints the merged configuration
type ConfigShowCmd struct{}

// Run executes the config show command
func (c *ConfigShowCmd) Run(ctx context.Context, cli *CLI) error {
	manager, err := cli.loadConfig()
	if err != nil {
		return err
	}
	data, err := manager.ExportConfig()
	if err != nil {
		return err
	}
	fmt.Println(string(data))

	for _, warning := range manager.GetInfo().Warnings {
		fmt.Fprintf(os.Stderr, "note: %s\n", warning)
	}
	return nil
}

// ConfigPathCmd lists the files chatportal reads and writes
type ConfigPathCmd struct{}

// Run executes the config path command
func (c *ConfigPathCmd) Run(ctx context.Context, cli *CLI) error {
	manager, err := cli.loadConfig()
	if err != nil {
		return err
	}
	info := manager.GetInfo()
	paths := manager.Paths()

	loaded := func(path string) string {
		if slices.ContainsFunc(info.LoadedConfigs, func(l config.ConfigLocation) bool { return l.Path == path }) {
			return "loaded"
		}
		return "-"
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\n", config.SourceSystem, paths.SystemConfig, loaded(paths.SystemConfig))
	fmt.Fprintf(w, "%s\t%s\t%s\n", config.SourceUser, paths.UserConfig, loaded(paths.UserConfig))
	fmt.Fprintf(w, "%s\t%s\t%s\n", config.SourceProject, paths.ProjectConfig, loaded(paths.ProjectConfig))
	fmt.Fprintf(w, "%s\t%s\t%s\n", config.SourceLocal, paths.LocalConfig, loaded(paths.LocalConfig))
	fmt.Fprintf(w, "database\t%s\t\n", info.DatabasePath)
	fmt.Fprintf(w, "logs\t%s\t\n", config.GetDefaultStoragePaths().LogDir)
	return w.Flush()
}
