// Package resolver orchestrates one job end to end: instruction
// extraction, permission and budget gating, model selection, supervised
// execution, cost reconciliation, and reporting.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/nimishchaudhari/aider-resolver/internal/budget"
	"github.com/nimishchaudhari/aider-resolver/internal/config"
	"github.com/nimishchaudhari/aider-resolver/internal/executor"
	"github.com/nimishchaudhari/aider-resolver/internal/github"
	"github.com/nimishchaudhari/aider-resolver/internal/gitops"
	"github.com/nimishchaudhari/aider-resolver/internal/instruction"
	"github.com/nimishchaudhari/aider-resolver/internal/logging"
	"github.com/nimishchaudhari/aider-resolver/internal/progress"
)

// Skip reasons for events that never become jobs. These stop processing
// at the boundary, logged but not surfaced as job failures.
const (
	SkipNoTrigger        = "no trigger mention"
	SkipPermissionDenied = "user not allowed"
)

// ErrBudgetExceeded marks pre-flight rejection: no subprocess was
// started and no cost committed.
var ErrBudgetExceeded = errors.New("budget exceeded")

// eventChannelSize bounds the progress queue between the subprocess
// output reader and the reporter. Overflow drops events rather than
// blocking the output pipe.
const eventChannelSize = 64

// Outcome is what one handled event produced.
type Outcome struct {
	JobID string

	// Skipped is set when the event never became a job (no trigger,
	// permission denied, budget rejection). Reason says why.
	Skipped bool
	Reason  string

	Result *executor.Result
	PRURL  string
}

// Resolver wires the pipeline together. The GitHub client is optional;
// without one, jobs run locally and no pull request is opened.
type Resolver struct {
	cfg      *config.Config
	ledger   *budget.Ledger
	store    *budget.Store
	worktree *gitops.Worktree
	gh       *github.Client

	log *slog.Logger

	mu sync.Mutex // one job at a time
}

// New creates a resolver. store and gh may be nil.
func New(cfg *config.Config, ledger *budget.Ledger, store *budget.Store, worktree *gitops.Worktree, gh *github.Client) *Resolver {
	return &Resolver{
		cfg:      cfg,
		ledger:   ledger,
		store:    store,
		worktree: worktree,
		gh:       gh,
		log:      logging.WithComponent("resolver"),
	}
}

// Handle processes one inbound event. Events without the trigger mention
// or from unauthorized users return a skipped outcome with a nil error.
// Every admitted job ends in exactly one Result, success or failure, and
// its actual cost is reconciled into the ledger exactly once.
func (r *Resolver) Handle(ctx context.Context, ev *github.Event, sink progress.Sink) (*Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	instr := instruction.Extract(r.cfg.Trigger, ev.Text)
	if instr == nil {
		r.log.Debug("No trigger mention, skipping", slog.String("sender", ev.Sender))
		return &Outcome{Skipped: true, Reason: SkipNoTrigger}, nil
	}

	if !r.cfg.UserAllowed(ev.Sender) {
		r.log.Info("Sender not in allow-list, skipping", slog.String("sender", ev.Sender))
		return &Outcome{Skipped: true, Reason: SkipPermissionDenied}, nil
	}

	complexity := executor.Classify(instr.Text)
	model, err := executor.SelectModel(complexity, r.cfg.Models, instr.Model)
	if err != nil {
		// Configuration-time fatal: reported before any cost is committed.
		return nil, err
	}

	estimate := budget.Estimate(instr)
	if ok, reason := budget.Admit(estimate, r.cfg.Budget.PerOperationCap, r.ledger); !ok {
		r.log.Warn("Job rejected by cost gate",
			slog.String("sender", ev.Sender),
			slog.Float64("estimate", estimate),
			slog.String("reason", reason),
		)
		if sink != nil {
			msg := fmt.Sprintf("⛔ Request rejected: %s", reason)
			if err := sink.CreateOrUpdateProgressDocument(ctx, "", msg); err != nil {
				r.log.Warn("Failed to post rejection notice", slog.String("error", err.Error()))
			}
		}
		return &Outcome{Skipped: true, Reason: reason}, ErrBudgetExceeded
	}

	jobID := uuid.New().String()[:8]
	branch := "aider/" + jobID
	jobLog := logging.WithJob(jobID)

	jobLog.Info("Job admitted",
		slog.String("sender", ev.Sender),
		slog.String("complexity", string(complexity)),
		slog.String("model", model.Name),
		slog.Float64("estimate", estimate),
	)

	// Acknowledge the triggering comment right away so the requester
	// knows the job was picked up before any progress is posted.
	if r.gh != nil && ev.CommentID != 0 {
		if err := r.gh.AddReaction(ctx, ev.Owner, ev.Repo, ev.CommentID, "eyes"); err != nil {
			jobLog.Warn("Failed to acknowledge comment", slog.String("error", err.Error()))
		}
	}

	baseBranch := ev.BaseBranch
	if baseBranch == "" {
		baseBranch = "main"
	}
	if err := r.worktree.PrepareBranch(ctx, baseBranch, branch); err != nil {
		return nil, fmt.Errorf("prepare branch: %w", err)
	}

	result := r.execute(ctx, jobID, instr, model, sink)

	// Exactly one reconciliation per admitted job, charged even on failure.
	r.ledger.Reconcile(result.CostUsed)

	if r.store != nil {
		rec := budget.JobRecord{
			JobID:          jobID,
			ModelUsed:      result.ModelUsed,
			Success:        result.Success,
			CostUsed:       result.CostUsed,
			ElapsedSeconds: result.ElapsedSeconds,
		}
		if err := r.store.RecordJob(rec); err != nil {
			jobLog.Warn("Failed to record job", slog.String("error", err.Error()))
		}
	}

	outcome := &Outcome{JobID: jobID, Result: result}

	if result.Success && r.cfg.Executor.AutoCreatePR && len(result.ChangedFiles) > 0 {
		prURL, err := r.openPullRequest(ctx, ev, instr, branch, baseBranch, jobID)
		if err != nil {
			jobLog.Warn("Pull request creation failed", slog.String("error", err.Error()))
		} else if prURL != "" {
			outcome.PRURL = prURL
			if ps, ok := sink.(interface{ SetPullRequestURL(string) }); ok {
				ps.SetPullRequestURL(prURL)
			}
		}
	}

	if sink != nil {
		reviewer := ""
		if r.cfg.GitHub != nil {
			reviewer = r.cfg.GitHub.Reviewer
		}
		if err := sink.PublishFinalResult(ctx, jobID, result, reviewer); err != nil {
			jobLog.Warn("Failed to publish final result", slog.String("error", err.Error()))
		}
	}

	return outcome, nil
}

// execute runs the engine with the progress pump attached and waits for
// both to finish.
func (r *Resolver) execute(ctx context.Context, jobID string, instr *instruction.Instruction, model *executor.ModelDescriptor, sink progress.Sink) *executor.Result {
	engine := executor.NewEngine(r.cfg.Executor, r.cfg.Credentials())

	events := make(chan executor.ProgressEvent, eventChannelSize)
	tracker := progress.NewTracker()

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		progress.Pump(ctx, jobID, events, tracker, sink)
	}()

	job := &executor.Job{
		ID:          jobID,
		Instruction: instr,
		Model:       model,
		WorkDir:     r.worktree.Path(),
	}
	result := engine.Execute(ctx, job, events)

	close(events)
	<-pumpDone

	return result
}

// openPullRequest pushes the job branch and opens a PR for it.
func (r *Resolver) openPullRequest(ctx context.Context, ev *github.Event, instr *instruction.Instruction, branch, baseBranch, jobID string) (string, error) {
	if r.gh == nil || ev.Owner == "" {
		return "", nil
	}

	if err := r.worktree.Push(ctx, branch); err != nil {
		return "", err
	}

	title := instr.Text
	if len(title) > 72 {
		title = title[:69] + "..."
	}
	body := fmt.Sprintf("Automated change for #%d (job `%s`).\n\nRequested by @%s:\n\n> %s\n",
		ev.IssueNumber, jobID, ev.Sender, instr.Text)

	pr, err := r.gh.CreatePullRequest(ctx, ev.Owner, ev.Repo, &github.PullRequestInput{
		Title: title,
		Body:  body,
		Head:  branch,
		Base:  baseBranch,
	})
	if err != nil {
		return "", err
	}
	return pr.HTMLURL, nil
}
