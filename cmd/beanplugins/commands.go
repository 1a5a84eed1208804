// commands.go: validate, plan, resolve and version subcommands
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	beanplugins "github.com/agilira/go-beanplugins"
)

func newRootCommand(version, commit, date string) *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "beanplugins",
		Short: "Inspect and validate plugin descriptors",
		Long: `beanplugins checks XML plugin descriptors against the descriptor schema,
shows the add/set operations a load would apply and lists the descriptor
resources a manager configuration resolves to.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: false,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	newLogger := func(w io.Writer) *slog.Logger {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	}

	rootCmd.AddCommand(
		newValidateCommand(newLogger),
		newPlanCommand(),
		newResolveCommand(),
		newVersionCommand(version, commit, date),
	)
	return rootCmd
}

func newValidateCommand(newLogger func(io.Writer) *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <descriptor.xml>...",
		Short: "Parse and schema-validate descriptor files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := beanplugins.NewLogger(newLogger(cmd.ErrOrStderr()))
			out := cmd.OutOrStdout()

			failed := 0
			for _, file := range args {
				desc, err := parseFile(file)
				if err != nil {
					failed++
					logger.Debug("Descriptor rejected", "file", file, "error", err)
					fmt.Fprintf(out, "FAIL %s: %v\n", file, err)
					continue
				}
				fmt.Fprintf(out, "OK   %s (%d add, %d set)\n", file, len(desc.Adds()), len(desc.Sets()))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d descriptors are invalid", failed, len(args))
			}
			return nil
		},
	}
}

func newPlanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <descriptor.xml>...",
		Short: "Print the operations a load of the given files would apply, in order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			descs := make([]*beanplugins.Descriptor, 0, len(args))
			for _, file := range args {
				desc, err := parseFile(file)
				if err != nil {
					return err
				}
				descs = append(descs, desc)
			}

			out := cmd.OutOrStdout()
			for i, op := range beanplugins.NewPlan(descs...).Ordered() {
				fmt.Fprintf(out, "%3d %-3s %s", i+1, op.Kind, op.TargetName())
				if op.Class != "" {
					fmt.Fprintf(out, " class=%s", op.Class)
				}
				if len(op.Properties) > 0 {
					names := make([]string, len(op.Properties))
					for j, p := range op.Properties {
						names[j] = p.Name
					}
					fmt.Fprintf(out, " props=%s", strings.Join(names, ","))
				}
				fmt.Fprintf(out, " (%s)\n", op.Resource)
			}
			return nil
		},
	}
}

func newResolveCommand() *cobra.Command {
	var (
		configPath string
		roots      []string
		pluginType string
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "List the descriptor resources a manager configuration matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			var config beanplugins.ManagerConfig
			if configPath != "" {
				loaded, err := beanplugins.LoadManagerConfig(configPath)
				if err != nil {
					return err
				}
				config = loaded
			}
			config.Locations = append(config.Locations, args...)
			config.ApplyDefaults(pluginType)
			if err := config.Validate(); err != nil {
				return err
			}

			resolverRoots := make([]beanplugins.Root, 0, len(roots))
			for _, dir := range roots {
				resolverRoots = append(resolverRoots, beanplugins.OSRoot(filepath.Base(dir), dir))
			}
			resolver := beanplugins.NewFSResolver(resolverRoots...)

			locations, err := config.ResolveLocations()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, location := range locations {
				matched, err := resolver.Resolve(location)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\n", location)
				for _, res := range matched {
					fmt.Fprintf(out, "  %s\n", res.URL)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "manager configuration file (json, yaml or toml)")
	cmd.Flags().StringSliceVarP(&roots, "root", "r", []string{"."}, "resource root directories, searched in order")
	cmd.Flags().StringVarP(&pluginType, "type", "t", "plugins", "plugin type used for directory-style locations")
	return cmd
}

func newVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "beanplugins %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func parseFile(file string) (*beanplugins.Descriptor, error) {
	data, err := os.ReadFile(filepath.Clean(file)) // #nosec G304 -- user-supplied descriptor path
	if err != nil {
		return nil, err
	}
	return beanplugins.ParseDescriptor(file, data)
}
