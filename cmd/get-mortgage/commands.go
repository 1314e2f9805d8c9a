package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"mortgage-funnel/internal/wizard"
	"mortgage-funnel/internal/wizard/gateway"
)

type appFactory func(opts options) (*app, error)

// cli holds the flags shared by every command and the app built from them.
type cli struct {
	opts    options
	jsonOut bool
	factory appFactory
	app     *app
}

func newRootCmd(factory appFactory) *cobra.Command {
	c := &cli{factory: factory}

	root := &cobra.Command{
		Use:           "get-mortgage",
		Short:         "Walk through the mortgage application flow from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.factory(c.opts)
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.app != nil && c.app.close != nil {
				return c.app.close()
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.opts.backend, "store", "", "session store backend: file or redis")
	pf.StringVar(&c.opts.path, "store-path", "", "session file for the file backend")
	pf.StringVar(&c.opts.namespace, "session", "default", "session namespace for the redis backend")
	pf.StringVar(&c.opts.apiURL, "api", "", "landing API base URL")
	pf.StringVar(&c.opts.policy, "failure-policy", "", "pretend-success or surface-error")
	pf.BoolVarP(&c.opts.verbose, "verbose", "v", false, "log debug output")
	pf.BoolVar(&c.jsonOut, "json", false, "print JSON instead of text")

	root.AddCommand(
		c.startCmd(),
		c.answerCmd(),
		c.contactCmd(),
		c.statusCmd(),
		c.submitCmd(),
		c.resetCmd(),
		c.pathCmd(),
		c.optionsCmd(),
		c.pendingCmd(),
	)
	return root
}

func (c *cli) render(w io.Writer, v interface{}, text func(io.Writer)) error {
	if c.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func (c *cli) startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Discard any previous attempt and open a new session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := c.app.wizard.Start(ctx); err != nil {
				return err
			}
			return c.showProgress(cmd)
		},
	}
}

func (c *cli) answerCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "answer <key> <value>",
		Short:   "Answer the question identified by key",
		Example: "  get-mortgage answer loanType new-purchase\n  get-mortgage answer residencyStatus uae-resident",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.app.wizard.Answer(cmd.Context(), args[0], args[1]); err != nil {
				return explain(err)
			}
			return c.showProgress(cmd)
		},
	}
}

func (c *cli) contactCmd() *cobra.Command {
	var details wizard.ContactDetails
	cmd := &cobra.Command{
		Use:   "contact",
		Short: "Record the contact details on the final screen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.app.wizard.CaptureContact(cmd.Context(), details); err != nil {
				return explain(err)
			}
			return c.showProgress(cmd)
		},
	}
	f := cmd.Flags()
	f.StringVar(&details.FullName, "name", "", "full name")
	f.StringVar(&details.Email, "email", "", "email address")
	f.StringVar(&details.PhoneNumber, "phone", "", "phone number")
	f.StringVar(&details.ContactMethod, "method", "", "preferred contact method")
	f.StringVar(&details.BestTimeToCall, "time", "", "best time to call")
	return cmd
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session and the next question",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.showProgress(cmd)
		},
	}
}

func (c *cli) submitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit",
		Short: "Send the finished application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			answers, err := wizard.LoadAnswers(ctx, c.app.store)
			if err != nil {
				return err
			}
			branch := answers.Branch()

			res, err := c.app.gateway.Submit(ctx, answers)
			if err != nil {
				return explain(err)
			}
			if _, err := c.app.wizard.Complete(ctx, res.Degraded); err != nil {
				return err
			}

			return c.render(cmd.OutOrStdout(), res, func(w io.Writer) {
				if res.Degraded {
					fmt.Fprintln(w, "Thank you! Your application has been received.")
					fmt.Fprintf(w, "It will be delivered once the service is reachable (pending %s).\n", res.PendingID)
					return
				}
				fmt.Fprintln(w, "Thank you! Your application has been submitted.")
				fmt.Fprintf(w, "Tracking number: %s\n", res.TrackingNumber)
				fmt.Fprintf(w, "Application id:  %s\n", res.ID)
				fmt.Fprintf(w, "Done: %s\n", wizard.CompletePath(branch))
			})
		},
	}
}

func (c *cli) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the session and every stored answer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.wizard.Tracker().Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session cleared.")
			return nil
		},
	}
}

type pathEntry struct {
	Step int    `json:"step"`
	Path string `json:"path"`
	Key  string `json:"key"`
}

func (c *cli) pathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path [loanType]",
		Short: "List the screens of a loan type, or of the current flow",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var b wizard.Branch
			if len(args) == 1 {
				parsed, err := wizard.ParseBranch(args[0])
				if err != nil {
					return err
				}
				b = parsed
			} else {
				answers, err := wizard.LoadAnswers(cmd.Context(), c.app.store)
				if err != nil {
					return err
				}
				b = answers.Branch()
			}
			if b == wizard.BranchNone {
				return fmt.Errorf("no loan type chosen yet; pass one of %s", strings.Join(wizard.LoanTypes, ", "))
			}

			entries := []pathEntry{
				{Step: 1, Path: wizard.PathLoanType, Key: wizard.KeyLoanType},
				{Step: 2, Path: wizard.PathResidency, Key: wizard.KeyResidencyStatus},
			}
			for _, s := range wizard.Screens(b) {
				entries = append(entries, pathEntry{Step: s.Step, Path: s.Path, Key: s.Key})
			}
			return c.render(cmd.OutOrStdout(), entries, func(w io.Writer) {
				for _, e := range entries {
					fmt.Fprintf(w, "%2d  %-40s %s\n", e.Step, e.Path, e.Key)
				}
				fmt.Fprintf(w, "    %s\n", wizard.CompletePath(b))
			})
		},
	}
}

func (c *cli) optionsCmd() *cobra.Command {
	var currency string
	cmd := &cobra.Command{
		Use:   "options <key>",
		Short: "List the accepted answers for a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cur := wizard.Currency(strings.ToUpper(currency))
			if currency == "" {
				answers, err := wizard.LoadAnswers(cmd.Context(), c.app.store)
				if err != nil {
					return err
				}
				cur = wizard.CurrencyFor(answers.IsUAEResident())
			}
			opts, err := wizard.OptionsFor(args[0], cur)
			if err != nil {
				return err
			}
			return c.render(cmd.OutOrStdout(), opts, func(w io.Writer) {
				writeOptions(w, opts)
			})
		},
	}
	cmd.Flags().StringVar(&currency, "currency", "", "AED or USD; defaults to the residency answer")
	return cmd
}

func (c *cli) pendingCmd() *cobra.Command {
	var resend bool
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List submissions that never reached the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if resend {
				sent, err := c.app.gateway.Resend(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Delivered %d pending submission(s).\n", sent)
			}

			items, err := c.app.gateway.Ledger().List(ctx)
			if err != nil {
				return err
			}
			return c.render(out, items, func(w io.Writer) {
				if len(items) == 0 {
					fmt.Fprintln(w, "No pending submissions.")
					return
				}
				for _, p := range items {
					fmt.Fprintf(w, "%s  %s  %v  %s\n", p.ID, p.FailedAt.Format("2006-01-02 15:04"), p.Payload[wizard.KeyLoanType], p.Error)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&resend, "resend", false, "try to deliver every pending submission first")
	return cmd
}

func (c *cli) showProgress(cmd *cobra.Command) error {
	ctx := cmd.Context()
	p, err := c.app.wizard.Status(ctx)
	if err != nil {
		return err
	}
	answers, err := wizard.LoadAnswers(ctx, c.app.store)
	if err != nil {
		return err
	}
	cur := wizard.CurrencyFor(answers.IsUAEResident())

	return c.render(cmd.OutOrStdout(), p, func(w io.Writer) {
		if p.SessionID == "" {
			fmt.Fprintln(w, "No active session. Run `get-mortgage start` to begin.")
			return
		}
		fmt.Fprintf(w, "Session:  %s\n", p.SessionID)
		if p.Branch != wizard.BranchNone {
			fmt.Fprintf(w, "Loan:     %s (step %d of %d)\n", p.Branch, p.CurrentStep, p.FinalStep)
		}
		if p.ExpiresInMins != nil {
			fmt.Fprintf(w, "Warning:  session expires in %d minute(s)\n", *p.ExpiresInMins)
		}
		if p.Next == nil {
			fmt.Fprintln(w, "All questions answered. Run `get-mortgage submit`.")
			return
		}
		if p.Next.IsContact() {
			fmt.Fprintf(w, "Next:     %s\n", p.Next.Path)
			fmt.Fprintln(w, "          get-mortgage contact --name ... --email ... --phone ... [--method ...] [--time ...]")
			return
		}
		fmt.Fprintf(w, "Next:     %s  (get-mortgage answer %s <value>)\n", p.Next.Path, p.Next.Key)
		if opts, err := wizard.OptionsFor(p.Next.Key, cur); err == nil {
			writeOptions(w, opts)
		}
	})
}

func writeOptions(w io.Writer, opts []wizard.Option) {
	for _, o := range opts {
		if o.Description != "" {
			fmt.Fprintf(w, "  %-24s %s  (%s)\n", o.ID, o.Title, o.Description)
			continue
		}
		fmt.Fprintf(w, "  %s\n", o.ID)
	}
}

// explain adds the recovery hint to errors the user can act on.
func explain(err error) error {
	switch {
	case errors.Is(err, wizard.ErrSessionRejected):
		return fmt.Errorf("%w\nRun `get-mortgage start` to begin again", err)
	case errors.Is(err, gateway.ErrMissingFields):
		return fmt.Errorf("%w\nRun `get-mortgage status` to see what is left", err)
	}
	return err
}
