package main

import (
	"github.com/spf13/cobra"

	"github.com/jamesainslie/bit/pkg/bit/output"
)

func init() {
	register(newLsCmd)
}

func newLsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List the recorded index",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.open()
			if err != nil {
				return err
			}
			hasIndex, err := r.HasIndex()
			if err != nil {
				return err
			}
			recorded, err := r.Recorded()
			if err != nil {
				return err
			}

			result := output.FromTree(r.Root(), r.IndexPath(), recorded)
			result.HasIndex = hasIndex
			return a.print(cmd, result)
		},
	}
}
