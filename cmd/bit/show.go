package main

import (
	"github.com/spf13/cobra"

	"github.com/jamesainslie/bit/pkg/bit/output"
	"github.com/jamesainslie/bit/pkg/bit/tree"
)

func init() {
	register(newShowCmd)
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <path>",
		Short: "Show a recorded entry",
		Long: `Look up a path in the recorded index. Path segments match case-insensitively.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.open()
			if err != nil {
				return err
			}
			rel, err := a.repoPath(r, args[0])
			if err != nil {
				return err
			}
			path, entry, err := r.Lookup(rel)
			if err != nil {
				return err
			}

			info := output.NewEntryInfo(path, entry, len(tree.SplitPath(path)))
			return a.print(cmd, &output.Result{
				View:     output.ViewList,
				Root:     r.Root(),
				Index:    r.IndexPath(),
				HasIndex: true,
				Entries:  []output.EntryInfo{*info},
			})
		},
	}
}
