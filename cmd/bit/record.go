package main

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/bit/pkg/bit/tree"
)

func init() {
	register(newRecordCmd)
}

func newRecordCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "record",
		Short: "Store the working directory in the index",
		Long: `Snapshot the working directory and replace the recorded index with it.
After record, status reports no changes until files change again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.open()
			if err != nil {
				return err
			}
			t, err := r.Record()
			if err != nil {
				return err
			}

			var files, dirs int
			var size int64
			_ = t.Walk(func(id tree.NodeID) error {
				e := t.Entry(id)
				if e.IsDir {
					dirs++
				} else {
					files++
					size += e.Length
				}
				return nil
			})
			a.printInfo(cmd, "Recorded %d files in %d folders (%s)", files, dirs, humanize.IBytes(uint64(size)))
			return nil
		},
	}
}
