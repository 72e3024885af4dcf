package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tilsley/quill/apps/editor/internal/app"
	"github.com/tilsley/quill/apps/editor/internal/auth"
	"github.com/tilsley/quill/apps/editor/internal/config"
	"github.com/tilsley/quill/apps/editor/internal/drafts"
)

// opener builds the app services for one command invocation.
type opener func(ctx context.Context) (*app.App, error)

type runner struct {
	open opener
}

func newRootCommand(open opener) *cobra.Command {
	r := &runner{open: open}
	root := &cobra.Command{
		Use:          "quillctl",
		Short:        "Inspect and edit the quill editor's local state",
		SilenceUsage: true,
	}
	root.AddCommand(r.draftsCommand(), r.configCommand(), r.tokenCommand())
	return root
}

// withApp opens the app, runs fn and closes the app again.
func (r *runner) withApp(c *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := c.Context()
	a, err := r.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck
	return fn(ctx, a)
}

// ─── drafts ──────────────────────────────────────────────────────────────────

func (r *runner) draftsCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "drafts", Short: "List or clear locally saved drafts"}

	var all bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List drafts for the configured repository, newest first",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return r.withApp(c, func(ctx context.Context, a *app.App) error {
				recs, err := a.Drafts.List(ctx, repoFilter(a, all))
				if err != nil {
					return err
				}
				return printDrafts(c.OutOrStdout(), recs)
			})
		},
	}
	listCmd.Flags().BoolVar(&all, "all", false, "list drafts for every repository")

	var (
		branch   string
		clearAll bool
	)
	clearCmd := &cobra.Command{
		Use:   "clear [PATH]",
		Short: "Delete drafts for the configured repository",
		Long: "Delete drafts for the configured repository. With PATH only drafts of that file " +
			"are removed; --branch narrows to one branch.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return r.withApp(c, func(ctx context.Context, a *app.App) error {
				f := repoFilter(a, clearAll)
				f.Branch = branch
				recs, err := a.Drafts.List(ctx, f)
				if err != nil {
					return err
				}
				n := 0
				for _, rec := range recs {
					if len(args) == 1 && rec.Path != args[0] {
						continue
					}
					if err := a.Drafts.Delete(ctx, rec.Key); err != nil {
						return err
					}
					n++
				}
				fmt.Fprintf(c.OutOrStdout(), "deleted %d draft(s)\n", n)
				return nil
			})
		},
	}
	clearCmd.Flags().StringVar(&branch, "branch", "", "only drafts on this branch")
	clearCmd.Flags().BoolVar(&clearAll, "all", false, "ignore the configured repository")

	cmd.AddCommand(listCmd, clearCmd)
	return cmd
}

func repoFilter(a *app.App, all bool) drafts.Filter {
	if all {
		return drafts.Filter{}
	}
	s := a.Config.Settings()
	return drafts.Filter{Owner: s.Owner, Repo: s.Repo}
}

func printDrafts(w io.Writer, recs []drafts.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REPO\tBRANCH\tPATH\tUPDATED\tBYTES")
	for _, r := range recs {
		updated := time.UnixMilli(r.UpdatedAt).UTC().Format(time.RFC3339)
		fmt.Fprintf(tw, "%s/%s\t%s\t%s\t%s\t%d\n", r.Owner, r.Repo, r.Branch, r.Path, updated, len(r.Content))
	}
	return tw.Flush()
}

// ─── config ──────────────────────────────────────────────────────────────────

func (r *runner) configCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Show the resolved config or manage local overrides"}

	var asJSON bool
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the merged editor config",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return r.withApp(c, func(_ context.Context, a *app.App) error {
				return write(c.OutOrStdout(), a.Config.Config(), asJSON)
			})
		},
	}
	showCmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of YAML")

	setCmd := &cobra.Command{
		Use:   "set-override FILE",
		Short: "Replace the local override layer with a JSON or YAML document (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			body, err := readInput(c.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			p, err := config.Decode(body)
			if err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}
			return r.withApp(c, func(ctx context.Context, a *app.App) error {
				cfg, err := a.Config.SaveOverrides(ctx, *p)
				if err != nil {
					return err
				}
				return write(c.OutOrStdout(), cfg, false)
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear-overrides",
		Short: "Drop the local override layer",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return r.withApp(c, func(ctx context.Context, a *app.App) error {
				cfg, err := a.Config.ClearOverrides(ctx)
				if err != nil {
					return err
				}
				return write(c.OutOrStdout(), cfg, false)
			})
		},
	}

	cmd.AddCommand(showCmd, setCmd, clearCmd)
	return cmd
}

func write(w io.Writer, v any, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(name)
}

// ─── token ───────────────────────────────────────────────────────────────────

func (r *runner) tokenCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "token", Short: "Manage the GitHub token"}

	setCmd := &cobra.Command{
		Use:   "set TOKEN",
		Short: "Save a personal access token (- reads it from stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			tok := args[0]
			if tok == "-" {
				b, err := io.ReadAll(c.InOrStdin())
				if err != nil {
					return err
				}
				tok = string(b)
			}
			return r.withApp(c, func(ctx context.Context, a *app.App) error {
				if err := a.Tokens.Set(ctx, tok); err != nil {
					return err
				}
				fmt.Fprintf(c.OutOrStdout(), "saved %s\n", auth.Mask(strings.TrimSpace(tok)))
				return nil
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the saved token",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return r.withApp(c, func(ctx context.Context, a *app.App) error {
				return a.Tokens.Clear(ctx)
			})
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the active token, masked",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return r.withApp(c, func(ctx context.Context, a *app.App) error {
				tok, err := a.Tokens.Get(ctx)
				if err != nil {
					return err
				}
				if tok == "" {
					return auth.ErrNoToken
				}
				fmt.Fprintln(c.OutOrStdout(), auth.Mask(tok))
				return nil
			})
		},
	}

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the token against GitHub and print its login",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return r.withApp(c, func(ctx context.Context, a *app.App) error {
				login, err := a.Whoami(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(c.OutOrStdout(), login)
				return nil
			})
		},
	}

	cmd.AddCommand(setCmd, clearCmd, showCmd, verifyCmd)
	return cmd
}
