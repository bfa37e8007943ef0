package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/bit/pkg/bit/logging"
	"github.com/jamesainslie/bit/pkg/bit/output"
	"github.com/jamesainslie/bit/pkg/bit/repository"
	"github.com/jamesainslie/bit/pkg/bit/watcher"
)

func init() {
	register(newStatusCmd)
}

func newStatusCmd(a *app) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pending changes",
		Long: `Compare the working directory against the recorded index.

Entries only on disk are new, entries only in the index are deleted and
entries whose length or times differ are modified. With --watch the
comparison runs again whenever files change, until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.open()
			if err != nil {
				return err
			}
			if err := a.status(cmd, r); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			return a.watchStatus(cmd, r)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-run whenever files change")
	return cmd
}

func (a *app) status(cmd *cobra.Command, r *repository.Repository) error {
	st, err := r.PendingChanges()
	if err != nil {
		return err
	}
	return a.print(cmd, output.FromStatus(r.Root(), r.IndexPath(), st.HasIndex, st.Changes))
}

func (a *app) watchStatus(cmd *cobra.Command, r *repository.Repository) error {
	logger := logging.Get("status")

	m, err := r.Ignore()
	if err != nil {
		return err
	}
	w, err := watcher.New(r.Root(), watcher.WithIgnore(m), watcher.WithDebounce(a.cfg.Status.WatchDebounce))
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Normal("watching for changes, press Ctrl+C to stop", "root", r.Root())
	w.Run(ctx, func(paths []string) {
		logger.Debug("changed", "paths", paths)
		if err := a.status(cmd, r); err != nil {
			logger.Error("status failed", "error", err)
		}
	})
	return nil
}
