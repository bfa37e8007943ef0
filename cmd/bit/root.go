package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/bit/pkg/bit/config"
	"github.com/jamesainslie/bit/pkg/bit/logging"
	"github.com/jamesainslie/bit/pkg/bit/output"
	"github.com/jamesainslie/bit/pkg/bit/repository"
	"github.com/jamesainslie/bit/pkg/bit/storage"
)

// app is the state shared by the commands of one invocation.
type app struct {
	cfgFile string
	dir     string
	quiet   bool

	v     *viper.Viper
	cfg   *config.Config
	dev   storage.Device
	ready bool
}

// commands holds the subcommand constructors. Each command file adds its
// own from init.
var commands []func(a *app) *cobra.Command

func register(build func(a *app) *cobra.Command) {
	commands = append(commands, build)
}

// flagKeys maps persistent flags onto configuration keys.
var flagKeys = map[string]string{
	"trace":  "logging.trace",
	"debug":  "logging.debug",
	"format": "output.format",
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "bit",
		Short: "Snapshot a directory tree and report what changed",
		Long: `Bit records the files below a directory in an index and reports the
differences between the disk and that index.

Examples:
  bit init                   # Create a repository in the current directory
  bit status                 # Show new, deleted and modified entries
  bit status --watch         # Re-run status whenever files change
  bit record                 # Store the current tree in the index
  bit show src/main.go       # Show a recorded entry
  bit ls -f plain            # List the recorded index`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: ~/.config/bit/config.yaml)")
	pf.StringVarP(&a.dir, "dir", "C", ".", "run as if bit was started in this directory")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "only report errors")
	pf.Bool("trace", false, "enable trace output")
	pf.Bool("debug", false, "enable debug output")
	pf.StringP("format", "f", "", "output format ("+strings.Join(output.Available(), ", ")+")")
	pf.Bool("no-color", false, "disable colored output")

	for _, build := range commands {
		root.AddCommand(build(a))
	}
	return root
}

// setup loads configuration and initializes logging before any command runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.v = config.New(a.cfgFile)
	pf := cmd.Root().PersistentFlags()
	for name, key := range flagKeys {
		if err := a.v.BindPFlag(key, pf.Lookup(name)); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}

	cfg, err := config.Read(a.v)
	if err != nil {
		return err
	}
	if noColor, _ := pf.GetBool("no-color"); noColor {
		cfg.Output.Color = false
	}
	if a.quiet {
		cfg.Logging.Level = "error"
	}
	if _, err := output.Get(cfg.Output.Format); err != nil {
		return err
	}

	opts, err := cfg.Logging.LoggingOptions()
	if err != nil {
		return err
	}
	opts.NoColor = !cfg.Output.Color
	opts.Console = cmd.ErrOrStderr()
	if err := logging.Init(opts); err != nil {
		return err
	}

	if !cfg.Output.Color {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	a.cfg = cfg
	a.ready = true
	logging.Get("bit").Trace("configuration loaded", "file", a.v.ConfigFileUsed(), "format", cfg.Output.Format)
	return nil
}

// open finds the repository enclosing the working directory.
func (a *app) open() (*repository.Repository, error) {
	return repository.Open(a.dev, a.dir, repository.Options{
		Ignore:             a.cfg.Ignore,
		IgnoreCreationTime: a.cfg.Status.IgnoreCreationTime,
	})
}

// print renders r with the configured formatter.
func (a *app) print(cmd *cobra.Command, r *output.Result) error {
	formatter, err := output.Get(a.cfg.Output.Format)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, r); err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}

// printInfo prints a message if quiet mode is not enabled.
func (a *app) printInfo(cmd *cobra.Command, format string, args ...interface{}) {
	if !a.quiet {
		fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
	}
}

// repoPath turns a path given on the command line, relative to --dir, into
// a slash path relative to the repository root.
func (a *app) repoPath(r *repository.Repository, arg string) (string, error) {
	p := arg
	if !filepath.IsAbs(p) {
		p = filepath.Join(a.dir, p)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(r.Root(), abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the repository at %s", arg, r.Root())
	}
	return filepath.ToSlash(rel), nil
}

// run executes bit with args. Errors are logged and returned.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{dev: storage.NewOS()}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err != nil {
		if a.ready {
			logging.Get("bit").Error(err.Error())
		} else {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
	}
	if closeErr := logging.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// Execute runs the root command.
func Execute() error {
	return run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}
