package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/pyro/app"
	"github.com/kilianp07/pyro/config"
	"github.com/kilianp07/pyro/core/xdata"
	"github.com/kilianp07/pyro/dev"
)

const long = `Support for application and script development.

  pyro --help          show this help
  pyro --args          print the arguments received by this call
  pyro --ipath [rel]   print the identifier of rel inside the root module
  pyro --test          run the self-test report
  pyro --clean [dir]   remove cache artifacts below dir (default ".")`

type options struct {
	cfgPath string
	args    bool
	ipath   bool
	test    bool
	clean   bool
	debug   bool
}

// NewRootCmd builds the pyro command.
func NewRootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:           "pyro",
		Short:         "Type factory toolbox",
		Long:          long,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, o, args)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.cfgPath, "config", "c", "", "configuration file")
	f.BoolVar(&o.args, "args", false, "print the arguments received by this call")
	f.BoolVar(&o.ipath, "ipath", false, "print the inner path of the optional relative identifier")
	f.BoolVar(&o.test, "test", false, "run the self-test report")
	f.BoolVar(&o.clean, "clean", false, "remove cache artifacts below the optional directory")
	f.BoolVar(&o.debug, "debug", false, "enable debug logging and stack traces")
	return cmd
}

// Execute runs the CLI, printing failures with their diagnostic context.
func Execute() error {
	cmd := NewRootCmd()
	err := cmd.Execute()
	if err != nil {
		ReportError(cmd.ErrOrStderr(), err)
	}
	return err
}

// ReportError writes err to w. Coded errors are written with their
// diagnostic context; stack frames are included when debugging.
func ReportError(w io.Writer, err error) {
	var xe *xdata.Error
	if errors.As(err, &xe) {
		if out, jerr := xe.JSON(dev.ShowTrace()); jerr == nil {
			fmt.Fprintf(w, "error: %v\n%s\n", err, out)
			return
		}
	}
	fmt.Fprintf(w, "error: %v\n", err)
}

func run(cmd *cobra.Command, o options, args []string) error {
	if !o.args && !o.ipath && !o.test && !o.clean {
		return cmd.Help()
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(o.cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if o.debug {
		cfg.Debug = true
	}
	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case o.args:
		fmt.Fprintf(out, "%q\n", os.Args)
	case o.ipath:
		rel := ""
		if len(args) > 0 {
			rel = args[0]
		}
		fmt.Fprintln(out, svc.InnerPath(rel))
	case o.test:
		return svc.Test(ctx, out)
	case o.clean:
		root := "."
		if len(args) > 0 {
			root = args[0]
		}
		n, err := svc.Clean(ctx, root)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "removed %d entries\n", n)
	}
	return nil
}

