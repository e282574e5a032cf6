package ctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"modelgate/pkg/types"
)

// Options are the persistent flags shared by every command.
type Options struct {
	URL     string
	Timeout time.Duration
	JSON    bool
}

func defaultURL() string {
	if v := strings.TrimSpace(os.Getenv("MODELGATE_URL")); v != "" {
		return v
	}
	return "http://localhost:5000"
}

// BuildRootCmd constructs the modelgatectl command tree.
func BuildRootCmd() *cobra.Command {
	opts := &Options{}
	root := &cobra.Command{
		Use:           "modelgatectl",
		Short:         "Query and drive a modelgate instance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.URL, "url", defaultURL(), "modelgate base URL (defaults MODELGATE_URL)")
	pf.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "Per-command timeout")
	pf.BoolVar(&opts.JSON, "json", false, "Print raw JSON responses")

	root.AddCommand(
		&cobra.Command{Use: "health", Short: "Check the proxy process is up", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()
			h, err := NewClient(opts.URL).Health(ctx)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), h, fmt.Sprintf("%s (%s)", h.Status, h.InstanceID))
		}},
		&cobra.Command{Use: "status", Short: "Show daemon and model readiness", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()
			st, err := NewClient(opts.URL).Status(ctx)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), st, formatStatus(st))
		}},
		&cobra.Command{Use: "whoami", Short: "Show the client address seen by the instance", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()
			w, err := NewClient(opts.URL).WhoAmI(ctx)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), w, fmt.Sprintf("%s via %s", w.YourIP, w.InstanceID))
		}},
		waitCmd(opts),
		chatCmd(opts),
	)
	return root
}

func waitCmd(opts *Options) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:     "wait",
		Short:   "Poll status until the instance is ready",
		Example: "  modelgatectl wait --timeout 15m",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()
			st, err := waitReady(ctx, opts, interval, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), st, formatStatus(st))
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "Polling interval")
	return cmd
}

func chatCmd(opts *Options) *cobra.Command {
	var wait bool
	var interval time.Duration
	cmd := &cobra.Command{
		Use:     "chat <prompt...>",
		Short:   "Send a prompt to the pinned model",
		Example: "  modelgatectl chat --wait --timeout 15m 'Why is the sky blue?'",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()
			if wait {
				if _, err := waitReady(ctx, opts, interval, io.Discard, cmd.ErrOrStderr()); err != nil {
					return err
				}
			}
			resp, err := NewClient(opts.URL).Chat(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if err := opts.print(cmd.OutOrStdout(), resp, resp.Response); err != nil {
				return err
			}
			if !resp.Success {
				return fmt.Errorf("%s (instance %s)", resp.Message, resp.InstanceID)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for readiness before sending")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "Polling interval used with --wait")
	return cmd
}

func waitReady(ctx context.Context, opts *Options, interval time.Duration, out, errOut io.Writer) (types.StatusResponse, error) {
	last := ""
	return NewClient(opts.URL).WaitReady(ctx, interval,
		func(st types.StatusResponse) {
			if line := formatStatus(st); line != last && !opts.JSON {
				fmt.Fprintln(out, line)
				last = line
			}
		},
		func(err error) { fmt.Fprintln(errOut, "status:", err) },
	)
}

func (o *Options) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	if o.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, o.Timeout)
}

func (o *Options) print(w io.Writer, v any, text string) error {
	if o.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	if text == "" {
		return nil
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

func formatStatus(st types.StatusResponse) string {
	s := fmt.Sprintf("[%s] %s: %s", st.InstanceID, st.Status, st.Message)
	if st.Model != "" {
		s += " (" + st.Model + ")"
	}
	return s
}
