package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/i474232898/weather-dashboard/internal/app"
	"github.com/i474232898/weather-dashboard/internal/auth"
	"github.com/i474232898/weather-dashboard/internal/config"
	"github.com/i474232898/weather-dashboard/internal/logging"
	"github.com/i474232898/weather-dashboard/internal/orchestrator"
	"github.com/i474232898/weather-dashboard/internal/render"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "weather-dashboard",
		Short:         "Personal weather dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newLoginCmd())
	root.AddCommand(newRegisterCmd())
	root.AddCommand(newLogoutCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newSearchCmd())
	root.AddCommand(newFavoritesCmd())
	root.AddCommand(newChartCmd())
	return root
}

// loadApp builds the components from the environment and restores the
// persisted session.
func loadApp(ctx context.Context, newSink func(logrus.FieldLogger) orchestrator.Sink) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	var sink orchestrator.Sink
	if newSink != nil {
		sink = newSink(log)
	}
	a, err := app.New(cfg, log, sink)
	if err != nil {
		return nil, err
	}
	if _, err := a.Dashboard.Start(ctx); err != nil {
		log.WithError(err).Warn("could not restore the saved session")
	}
	return a, nil
}

// run loads the app, performs fn, waits for the background fetches and
// prints the dashboard.
func run(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	a, err := loadApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := fn(ctx, a); err != nil {
		return err
	}
	a.Dashboard.Wait()
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), render.Text(a.Dashboard.ViewState()))
	return nil
}

func newLoginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and remember the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app.App) error {
				if password == "" {
					var err error
					if password, err = newPrompter(cmd).secret("Password: "); err != nil {
						return err
					}
				}
				_, err := a.Auth.Login(ctx, args[0], password)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	return cmd
}

func newRegisterCmd() *cobra.Command {
	var in auth.RegisterInput
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app.App) error {
				in.Username = args[0]
				if in.Password == "" {
					var err error
					p := newPrompter(cmd)
					if in.Password, err = p.secret("Password: "); err != nil {
						return err
					}
					if in.ConfirmPassword, err = p.secret("Confirm password: "); err != nil {
						return err
					}
				} else if in.ConfirmPassword == "" {
					in.ConfirmPassword = in.Password
				}
				if err := a.Auth.Register(ctx, in); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Registration successful! Please login.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "password (prompted when omitted)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(_ context.Context, a *app.App) error {
				a.Auth.Logout()
				return nil
			})
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the dashboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(context.Context, *app.App) error { return nil })
		},
	}
}

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <city>",
		Short: "Look up the current weather for a city",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app.App) error {
				_, err := a.Dashboard.Search(ctx, strings.Join(args, " "))
				return err
			})
		},
	}
}

func newFavoritesCmd() *cobra.Command {
	favorites := &cobra.Command{Use: "favorites", Short: "Manage favorite cities"}

	favorites.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List favorite cities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(context.Context, *app.App) error { return nil })
		},
	})
	favorites.AddCommand(&cobra.Command{
		Use:   "add <city>",
		Short: "Add a favorite city",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app.App) error {
				return a.Dashboard.AddFavorite(ctx, strings.Join(args, " "))
			})
		},
	})
	favorites.AddCommand(&cobra.Command{
		Use:   "remove <city>",
		Short: "Remove a favorite city",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app.App) error {
				return a.Dashboard.RemoveFavorite(ctx, strings.Join(args, " "))
			})
		},
	})
	return favorites
}

func newChartCmd() *cobra.Command {
	var days int
	var out string
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Show or download the temperature chart",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, a *app.App) error {
				if cmd.Flags().Changed("days") {
					if err := a.Dashboard.SetChartRange(days); err != nil {
						return err
					}
				}
				if out == "" {
					return nil
				}
				ref := a.Dashboard.ViewState().Chart.Data
				if ref == nil {
					return fmt.Errorf("no chart available; please login first")
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				if err := a.Charts.Fetch(ctx, *ref, f); err != nil {
					_ = f.Close()
					_ = os.Remove(out)
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "chart saved to %s\n", out)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", orchestrator.DefaultChartDays, "number of days the chart covers")
	cmd.Flags().StringVar(&out, "out", "", "write the chart PNG to this file")
	return cmd
}

// prompter reads secrets without echo when stdin is a terminal and line by
// line otherwise.
type prompter struct {
	cmd    *cobra.Command
	reader *bufio.Reader
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{cmd: cmd}
}

func (p *prompter) secret(label string) (string, error) {
	_, _ = fmt.Fprint(p.cmd.ErrOrStderr(), label)
	in := p.cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(p.cmd.ErrOrStderr())
		return string(b), err
	}
	if p.reader == nil {
		p.reader = bufio.NewReader(in)
	}
	line, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
