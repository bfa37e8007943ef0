package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/bit/pkg/bit/config"
)

func init() {
	register(newConfigCmd)
}

func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage bit configuration.

User configuration is loaded from:
  1. $XDG_CONFIG_HOME/bit/config.yaml (if set)
  2. ~/.config/bit/config.yaml

Environment variables override the file using the BIT_ prefix:
  BIT_LOGGING_LEVEL=debug
  BIT_OUTPUT_FORMAT=json

Repository configuration lives in .bit/config and is read and written
with 'bit config get' and 'bit config set'.`,
	}

	configCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show current configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigShow(cmd, a)
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Show configuration file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := config.ConfigPath()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Create default configuration file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := config.ConfigPath()
				if err != nil {
					return err
				}
				if _, err := os.Stat(path); err == nil {
					a.printInfo(cmd, "Config file already exists: %s", path)
					return nil
				}
				if _, err := config.WriteDefault(); err != nil {
					return fmt.Errorf("failed to create config file: %w", err)
				}
				a.printInfo(cmd, "Created default config file: %s", path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "get <section.key>",
			Short: "Read a repository config value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				r, err := a.open()
				if err != nil {
					return err
				}
				v, err := r.Get(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <section.key> <value>",
			Short: "Write a repository config value",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				r, err := a.open()
				if err != nil {
					return err
				}
				return r.Set(args[0], args[1])
			},
		},
	)
	return configCmd
}

// envOverrides lists the environment variables that map onto config keys.
var envOverrides = []string{
	"BIT_LOGGING_LEVEL",
	"BIT_LOGGING_TRACE",
	"BIT_LOGGING_DEBUG",
	"BIT_LOGGING_PATH",
	"BIT_OUTPUT_FORMAT",
	"BIT_OUTPUT_COLOR",
	"BIT_STATUS_IGNORE_CREATION_TIME",
	"BIT_STATUS_WATCH_DEBOUNCE",
	"BIT_IGNORE",
}

func runConfigShow(cmd *cobra.Command, a *app) error {
	out := cmd.OutOrStdout()

	if configFile := a.v.ConfigFileUsed(); configFile != "" {
		fmt.Fprintf(out, "# Config file: %s\n", configFile)
	} else {
		fmt.Fprintln(out, "# Config file: (using defaults, no file found)")
	}

	for _, name := range envOverrides {
		if val := os.Getenv(name); val != "" {
			fmt.Fprintf(out, "# %s=%s\n", name, val)
		}
	}

	data, err := yaml.Marshal(a.cfg)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}
