package main

import (
	"github.com/spf13/cobra"

	"github.com/jamesainslie/bit/pkg/bit/repository"
)

func init() {
	register(newInitCmd)
}

func newInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an empty repository",
		Long: `Create a hidden .bit folder holding the repository config and data
folder.

Init refuses to run inside an existing repository. With --force it replaces
a repository whose .bit folder is in this very directory; a repository
higher up in the hierarchy is never replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repository.Init(a.dev, a.dir, repository.InitOptions{
				Force:    force,
				Settings: repository.Settings{IgnoreCreationTime: a.cfg.Status.IgnoreCreationTime},
			})
			if err != nil {
				return err
			}
			a.printInfo(cmd, "Initialized empty bit repository in %s", r.BitPath())
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "replace a repository in this directory")
	return cmd
}
