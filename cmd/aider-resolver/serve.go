package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/nimishchaudhari/aider-resolver/internal/budget"
	"github.com/nimishchaudhari/aider-resolver/internal/github"
	"github.com/nimishchaudhari/aider-resolver/internal/gitops"
	"github.com/nimishchaudhari/aider-resolver/internal/logging"
	"github.com/nimishchaudhari/aider-resolver/internal/progress"
	"github.com/nimishchaudhari/aider-resolver/internal/resolver"
)

// maxWebhookBody caps inbound payload size.
const maxWebhookBody = 1 << 20

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		Long:  `Serve listens for GitHub webhooks and runs one job per trigger mention. The cost ledger resets at midnight.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			log := logging.WithComponent("serve")

			ledger := budget.NewLedger(cfg.Budget.DailyLimit)
			store, err := budget.OpenStore(cfg.Workspace.DataPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			// Seed with spend already recorded for today so restarts
			// cannot escape the daily budget.
			if used, err := store.UsedSince(startOfDay()); err == nil && used > 0 {
				ledger.Seed(used)
				log.Info("Ledger seeded from usage store", slog.Float64("used_today", used))
			}

			var gh *github.Client
			if cfg.GitHub != nil && cfg.GitHub.Token != "" {
				gh = github.NewClient(cfg.GitHub.Token)
			}

			worktree := gitops.NewWorktree(cfg.Workspace.CheckoutPath)
			r := resolver.New(cfg, ledger, store, worktree, gh)

			// Daily ledger reset at midnight.
			scheduler := cron.New()
			if _, err := scheduler.AddFunc("0 0 * * *", ledger.ResetDaily); err != nil {
				return fmt.Errorf("schedule daily reset: %w", err)
			}
			scheduler.Start()
			defer scheduler.Stop()

			secret := ""
			if cfg.GitHub != nil {
				secret = cfg.GitHub.WebhookSecret
			}

			router := chi.NewRouter()
			router.Use(middleware.Recoverer)
			router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("ok"))
			})
			router.Post("/webhook", webhookHandler(r, gh, secret, log))

			addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
			server := &http.Server{
				Addr:              addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("Webhook server listening", slog.String("addr", addr))
				errCh <- server.ListenAndServe()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case sig := <-sigCh:
				log.Info("Shutting down", slog.String("signal", sig.String()))
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = server.Shutdown(shutdownCtx)
			}
			return nil
		},
	}
}

// webhookHandler verifies, parses, and dispatches inbound webhooks. The
// response is written before the job runs; jobs execute asynchronously,
// one at a time.
func webhookHandler(r *resolver.Resolver, gh *github.Client, secret string, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(io.LimitReader(req.Body, maxWebhookBody))
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}

		if !github.VerifyWebhookSignature(body, req.Header.Get("X-Hub-Signature-256"), secret) {
			log.Warn("Webhook signature verification failed")
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}

		ev, err := github.ParseEvent(body)
		if err != nil {
			http.Error(w, "malformed payload", http.StatusBadRequest)
			return
		}
		if ev == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		go func() {
			ctx := context.Background()
			var sink progress.Sink
			if gh != nil {
				sink = github.NewCommentSink(gh, ev.Owner, ev.Repo, ev.IssueNumber)
			}
			outcome, err := r.Handle(ctx, ev, sink)
			if err != nil {
				log.Error("Job handling failed", slog.String("error", err.Error()))
				return
			}
			if outcome.Skipped {
				log.Debug("Event skipped", slog.String("reason", outcome.Reason))
			}
		}()

		w.WriteHeader(http.StatusAccepted)
	}
}

// startOfDay returns midnight of the current local day.
func startOfDay() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
