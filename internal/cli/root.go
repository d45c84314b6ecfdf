package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"tracker/internal/core"
	"tracker/internal/log"
	"tracker/internal/render"
	"tracker/internal/services"
)

const ephemeralAnnotation = "ephemeral-session"

// runtime is the state shared by every command of one invocation. In the
// shell the same runtime backs each line, so the app is opened once.
type runtime struct {
	configPath string

	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
	now    func() time.Time

	prompter Prompter
	app      *App
}

// Execute runs the tracker CLI with args and returns the process exit code.
func Execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	rt := newRuntime(in, out, errOut)
	defer rt.close()

	root := rt.rootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(errOut, Alert(err))
		return 1
	}
	return 0
}

func newRuntime(in io.Reader, out, errOut io.Writer) *runtime {
	reader := bufio.NewReader(in)
	return &runtime{
		in:       reader,
		out:      out,
		errOut:   errOut,
		now:      time.Now,
		prompter: &linePrompter{in: reader, out: out},
	}
}

func (rt *runtime) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tracker",
		Short: "Track income and expenses per user",
		Long: `Tracker keeps a separate list of income and expense transactions for
each user name, shows running totals, and exports the list as CSV, XLSX
or to a Google Sheet.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: rt.open,
		RunE:              rt.status,
	}
	root.SetIn(rt.in)
	root.SetOut(rt.out)
	root.SetErr(rt.errOut)
	root.PersistentFlags().StringVar(&rt.configPath, "config", "", "config file (yaml, json or toml)")

	root.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show the current user, totals and transactions",
			Args:  cobra.NoArgs,
			RunE:  rt.status,
		},
		&cobra.Command{
			Use:   "login NAME",
			Short: "Switch to NAME's transactions",
			Args:  cobra.MinimumNArgs(1),
			RunE:  rt.login,
		},
		withYes(&cobra.Command{
			Use:   "logout",
			Short: "End the current session",
			Args:  cobra.NoArgs,
			RunE:  rt.logout,
		}),
		withAmountArg(&cobra.Command{
			Use:   "add AMOUNT TYPE [DATE]",
			Short: "Add an income or expense (DATE is YYYY-MM-DD, default today)",
			Args:  cobra.RangeArgs(2, 3),
			RunE:  rt.add,
		}),
		withYes(&cobra.Command{
			Use:   "delete ID",
			Short: "Delete the transaction with ID",
			Args:  cobra.ExactArgs(1),
			RunE:  rt.delete,
		}),
		withYes(&cobra.Command{
			Use:   "clear",
			Short: "Delete all transactions of the current user",
			Args:  cobra.NoArgs,
			RunE:  rt.clear,
		}),
		rt.exportCmd(),
		&cobra.Command{
			Use:   "summary",
			Short: "Show total income, total expense and balance",
			Args:  cobra.NoArgs,
			RunE:  rt.summary,
		},
		&cobra.Command{
			Use:   "list",
			Short: "List transactions, newest first",
			Args:  cobra.NoArgs,
			RunE:  rt.list,
		},
		&cobra.Command{
			Use:         "shell",
			Short:       "Start an interactive session",
			Args:        cobra.NoArgs,
			Annotations: map[string]string{ephemeralAnnotation: "true"},
			RunE:        rt.shell,
		},
	)
	return root
}

func withYes(cmd *cobra.Command) *cobra.Command {
	cmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	return cmd
}

// withAmountArg reports a negative AMOUNT such as "-5", which pflag reads as
// an unknown shorthand flag, as an invalid amount.
func withAmountArg(cmd *cobra.Command) *cobra.Command {
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		msg := err.Error()
		if i := strings.LastIndex(msg, " in -"); i >= 0 {
			if arg := msg[i+len(" in "):]; isNumber(arg) {
				return fmt.Errorf("%w: %s", core.ErrInvalidAmount, arg)
			}
		}
		return err
	})
	return cmd
}

func isNumber(s string) bool {
	_, err := decimal.NewFromString(s)
	return err == nil
}

// open loads configuration, opens storage and restores the session. It runs
// once per runtime.
func (rt *runtime) open(cmd *cobra.Command, _ []string) error {
	if rt.app != nil || cmd.Name() == "help" {
		return nil
	}

	LoadEnvFile()
	cfg, err := LoadAndValidateConfig(rt.configPath)
	if err != nil {
		bootstrap := log.DefaultConfig()
		bootstrap.Output = rt.errOut
		log.New(bootstrap).Error("Configuration validation failed",
			log.FieldErrorType, log.ErrorTypeConfiguration,
			log.FieldError, err)
		return err
	}
	logger, err := SetupLogger(cfg, rt.errOut)
	if err != nil {
		return err
	}
	logger = logger.WithComponent(log.ComponentCLI)

	ctx := log.NewContext(cmd.Context(), logger)
	cmd.SetContext(ctx)
	app, err := NewApp(ctx, cfg, logger, cmd.Annotations[ephemeralAnnotation] == "true")
	if err != nil {
		return err
	}
	rt.app = app

	view, err := app.Tracker.Startup(ctx)
	if err != nil {
		return err
	}
	if view.Notice != "" {
		fmt.Fprintln(rt.errOut, view.Notice)
	}
	return nil
}

func (rt *runtime) close() {
	if rt.app == nil {
		return
	}
	if err := rt.app.Close(); err != nil {
		rt.app.Logger.Error("Failed to close resources", log.FieldError, err)
	}
	rt.app = nil
}

func (rt *runtime) print(s string) {
	fmt.Fprintln(rt.out, s)
}

func (rt *runtime) screen(view services.View) {
	tr := rt.app.Tracker
	rt.print(render.Screen(view, tr.Summary(), tr.Transactions()))
}

func (rt *runtime) status(cmd *cobra.Command, _ []string) error {
	rt.screen(rt.app.Tracker.View())
	return nil
}

func (rt *runtime) login(cmd *cobra.Command, args []string) error {
	view, err := rt.app.Tracker.Login(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	rt.screen(view)
	return nil
}

func (rt *runtime) logout(cmd *cobra.Command, _ []string) error {
	c, err := rt.app.Tracker.PrepareLogout()
	if err != nil {
		return err
	}
	done, err := rt.confirm(cmd, c)
	if err != nil || !done {
		return err
	}
	rt.print(render.Banner(rt.app.Tracker.View()))
	return nil
}

func (rt *runtime) add(cmd *cobra.Command, args []string) error {
	date := core.Today(rt.now()).String()
	if len(args) == 3 {
		date = args[2]
	}
	tx, err := rt.app.Tracker.AddTransaction(cmd.Context(), args[0], args[1], date)
	if err != nil {
		return err
	}
	rt.print(fmt.Sprintf("Added %s of %s on %s (id %d)",
		tx.Type, render.Money(tx.Amount.Decimal), tx.FormattedDate, tx.ID))
	rt.print(render.Summary(rt.app.Tracker.Summary()))
	return nil
}

func (rt *runtime) delete(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", core.ErrInvalidID, args[0])
	}
	c, err := rt.app.Tracker.PrepareDelete(id)
	if err != nil {
		return err
	}
	done, err := rt.confirm(cmd, c)
	if err != nil || !done {
		return err
	}
	rt.screen(rt.app.Tracker.View())
	return nil
}

func (rt *runtime) clear(cmd *cobra.Command, _ []string) error {
	c, err := rt.app.Tracker.PrepareClearAll()
	if err != nil {
		return err
	}
	done, err := rt.confirm(cmd, c)
	if err != nil || !done {
		return err
	}
	rt.screen(rt.app.Tracker.View())
	return nil
}

func (rt *runtime) exportCmd() *cobra.Command {
	var (
		formats []string
		dir     string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the current user's transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			doc, err := rt.app.Tracker.Export()
			if err != nil {
				return err
			}
			sinks, err := rt.app.Sinks(ctx, formats, dir)
			if err != nil {
				return err
			}
			results, err := rt.app.Exporter.Export(ctx, doc, sinks...)
			if err != nil {
				return err
			}
			for _, r := range results {
				rt.print(fmt.Sprintf("Exported %d transactions to %s", len(doc.Transactions), r.Location))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&formats, "format", []string{"csv"}, "export formats: csv, xlsx, sheets")
	cmd.Flags().StringVar(&dir, "dir", "", "output directory (default EXPORT_DIR)")
	return cmd
}

func (rt *runtime) summary(cmd *cobra.Command, _ []string) error {
	if rt.app.Tracker.User() == "" {
		return services.ErrNotLoggedIn
	}
	rt.print(render.Summary(rt.app.Tracker.Summary()))
	return nil
}

func (rt *runtime) list(cmd *cobra.Command, _ []string) error {
	if rt.app.Tracker.User() == "" {
		return services.ErrNotLoggedIn
	}
	rt.print(render.Table(rt.app.Tracker.Transactions()))
	return nil
}

func (rt *runtime) confirm(cmd *cobra.Command, c *services.Confirmation) (bool, error) {
	yes, _ := cmd.Flags().GetBool("yes")
	done, err := resolve(cmd.Context(), rt.prompter, c, yes)
	if err != nil {
		return false, err
	}
	if !done {
		rt.print("Cancelled.")
	}
	return done, nil
}
