package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nimishchaudhari/aider-resolver/internal/budget"
	"github.com/nimishchaudhari/aider-resolver/internal/github"
	"github.com/nimishchaudhari/aider-resolver/internal/gitops"
	"github.com/nimishchaudhari/aider-resolver/internal/logging"
	"github.com/nimishchaudhari/aider-resolver/internal/progress"
	"github.com/nimishchaudhari/aider-resolver/internal/resolver"
)

func newResolveCmd() *cobra.Command {
	var eventFile string
	var text string
	var owner, repo string
	var issueNumber int
	var quiet bool

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Process one event and exit",
		Long: `Resolve runs a single job from a GitHub webhook payload (--event-file),
an existing issue (--owner/--repo/--issue), or raw instruction text
(--text) and prints the outcome.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var ev *github.Event
			switch {
			case eventFile != "":
				body, err := os.ReadFile(eventFile)
				if err != nil {
					return fmt.Errorf("read event file: %w", err)
				}
				ev, err = github.ParseEvent(body)
				if err != nil {
					return err
				}
				if ev == nil {
					fmt.Println("Event is not an issue or comment creation, nothing to do.")
					return nil
				}
			case issueNumber > 0:
				if owner == "" || repo == "" {
					return fmt.Errorf("--issue requires --owner and --repo")
				}
				if cfg.GitHub == nil || cfg.GitHub.Token == "" {
					return fmt.Errorf("--issue requires a configured GitHub token")
				}
				gh := github.NewClient(cfg.GitHub.Token)
				issue, err := gh.GetIssue(cmd.Context(), owner, repo, issueNumber)
				if err != nil {
					return fmt.Errorf("fetch issue: %w", err)
				}
				ev = &github.Event{
					Text:        issue.Body,
					Sender:      issue.User.Login,
					Owner:       owner,
					Repo:        repo,
					IssueNumber: issue.Number,
					BaseBranch:  "main",
				}
			case text != "":
				ev = &github.Event{Text: text, Sender: "local", BaseBranch: "main"}
			default:
				return fmt.Errorf("one of --event-file, --issue, or --text is required")
			}

			ctx := context.Background()

			ledger := budget.NewLedger(cfg.Budget.DailyLimit)
			store, err := budget.OpenStore(cfg.Workspace.DataPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if used, err := store.UsedSince(startOfDay()); err == nil {
				ledger.Seed(used)
			}

			var gh *github.Client
			var sink progress.Sink
			if cfg.GitHub != nil && cfg.GitHub.Token != "" && ev.Owner != "" {
				gh = github.NewClient(cfg.GitHub.Token)
				sink = github.NewCommentSink(gh, ev.Owner, ev.Repo, ev.IssueNumber)
			} else {
				// Terminal rendering; suppress log lines so they do not
				// corrupt the redrawn display.
				if !quiet {
					logging.Suppress()
				}
				sink = progress.NewDisplay(!quiet)
			}

			worktree := gitops.NewWorktree(cfg.Workspace.CheckoutPath)
			r := resolver.New(cfg, ledger, store, worktree, gh)

			outcome, err := r.Handle(ctx, ev, sink)
			if err != nil {
				return err
			}

			if outcome.Skipped {
				fmt.Printf("Skipped: %s\n", outcome.Reason)
				return nil
			}

			res := outcome.Result
			fmt.Printf("Job %s: %s\n", outcome.JobID, res.FinalState)
			fmt.Printf("  changed files: %d\n", len(res.ChangedFiles))
			fmt.Printf("  cost: $%.4f (%s)\n", res.CostUsed, res.ModelUsed)
			if outcome.PRURL != "" {
				fmt.Printf("  pull request: %s\n", outcome.PRURL)
			}
			if !res.Success {
				return fmt.Errorf("job failed: %s", res.ErrorMessage)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&eventFile, "event-file", "", "path to a GitHub webhook payload JSON file")
	cmd.Flags().StringVar(&owner, "owner", "", "repository owner for --issue")
	cmd.Flags().StringVar(&repo, "repo", "", "repository name for --issue")
	cmd.Flags().IntVar(&issueNumber, "issue", 0, "issue number to resolve")
	cmd.Flags().StringVar(&text, "text", "", "raw instruction text (local mode)")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "disable the terminal progress display")

	return cmd
}
