package github

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nimishchaudhari/aider-resolver/internal/executor"
	"github.com/nimishchaudhari/aider-resolver/internal/progress"
)

var _ progress.Sink = (*CommentSink)(nil)

// CommentSink reports job progress on a GitHub issue. The first document
// push creates a comment; every later push edits that same comment, so a
// job has exactly one evolving status message. It implements
// progress.Sink.
type CommentSink struct {
	client *Client
	owner  string
	repo   string
	issue  int

	mu        sync.Mutex
	commentID int64
	prURL     string
}

// NewCommentSink creates a sink reporting to the given issue.
func NewCommentSink(client *Client, owner, repo string, issueNumber int) *CommentSink {
	return &CommentSink{
		client: client,
		owner:  owner,
		repo:   repo,
		issue:  issueNumber,
	}
}

// SetPullRequestURL records the PR opened for the job so the final
// report can link it.
func (s *CommentSink) SetPullRequestURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prURL = url
}

// CreateOrUpdateProgressDocument creates the status comment on first
// push and edits it in place afterwards.
func (s *CommentSink) CreateOrUpdateProgressDocument(ctx context.Context, jobID, renderedText string) error {
	s.mu.Lock()
	commentID := s.commentID
	s.mu.Unlock()

	if commentID == 0 {
		comment, err := s.client.AddComment(ctx, s.owner, s.repo, s.issue, renderedText)
		if err != nil {
			return fmt.Errorf("create progress comment: %w", err)
		}
		s.mu.Lock()
		s.commentID = comment.ID
		s.mu.Unlock()
		return nil
	}

	if _, err := s.client.EditComment(ctx, s.owner, s.repo, commentID, renderedText); err != nil {
		return fmt.Errorf("update progress comment: %w", err)
	}
	return nil
}

// PublishFinalResult posts the job outcome as a fresh comment below the
// progress document.
func (s *CommentSink) PublishFinalResult(ctx context.Context, jobID string, result *executor.Result, reviewer string) error {
	s.mu.Lock()
	prURL := s.prURL
	s.mu.Unlock()

	body := renderFinalComment(jobID, result, reviewer, prURL)
	if _, err := s.client.AddComment(ctx, s.owner, s.repo, s.issue, body); err != nil {
		return fmt.Errorf("publish final result: %w", err)
	}
	return nil
}

func renderFinalComment(jobID string, result *executor.Result, reviewer, prURL string) string {
	var b strings.Builder

	if result.Success {
		fmt.Fprintf(&b, "✅ Job `%s` completed.\n\n", jobID)
	} else {
		fmt.Fprintf(&b, "❌ Job `%s` failed: %s\n\n", jobID, result.ErrorMessage)
	}

	if len(result.ChangedFiles) > 0 {
		b.WriteString("Changed files:\n")
		for _, f := range result.ChangedFiles {
			fmt.Fprintf(&b, "- `%s`\n", f)
		}
		b.WriteString("\n")
	}
	if result.CommitID != "" {
		fmt.Fprintf(&b, "Commit: `%s`\n", result.CommitID)
	}
	if prURL != "" {
		fmt.Fprintf(&b, "Pull request: %s\n", prURL)
	}
	fmt.Fprintf(&b, "Model: `%s`, cost: $%.4f, elapsed: %.0fs\n", result.ModelUsed, result.CostUsed, result.ElapsedSeconds)

	if reviewer != "" {
		fmt.Fprintf(&b, "\ncc @%s for review\n", reviewer)
	}
	return b.String()
}
