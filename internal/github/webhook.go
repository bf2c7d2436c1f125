package github

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// VerifyWebhookSignature verifies a GitHub webhook signature against a secret.
// Returns true if the signature is valid. An empty secret skips verification
// (development mode).
func VerifyWebhookSignature(payload []byte, signature, secret string) bool {
	if secret == "" {
		return true
	}

	if !strings.HasPrefix(signature, "sha256=") {
		return false
	}
	expectedSig := signature[7:]

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	actualSig := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expectedSig), []byte(actualSig))
}

// Event is the normalized input the resolver consumes: the instruction
// text plus enough addressing to report back.
type Event struct {
	Text        string
	Sender      string
	Owner       string
	Repo        string
	IssueNumber int
	CommentID   int64 // 0 when the text came from the issue body
	CloneURL    string
	BaseBranch  string
}

// ParseEvent extracts a normalized event from a raw webhook body. It
// accepts issue_comment.created (text is the comment body) and
// issues.opened (text is the issue body). Other payloads return nil with
// no error; they are not addressed to the resolver.
func ParseEvent(body []byte) (*Event, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse webhook payload: %w", err)
	}
	return EventFromPayload(&payload)
}

// EventFromPayload normalizes an already-decoded payload.
func EventFromPayload(payload *WebhookPayload) (*Event, error) {
	if payload.Repository == nil || payload.Issue == nil {
		return nil, nil
	}

	ev := &Event{
		Owner:       payload.Repository.Owner.Login,
		Repo:        payload.Repository.Name,
		IssueNumber: payload.Issue.Number,
		CloneURL:    payload.Repository.CloneURL,
		BaseBranch:  payload.Repository.DefaultBranch,
	}
	if payload.Sender != nil {
		ev.Sender = payload.Sender.Login
	}

	switch {
	case payload.Comment != nil && payload.Action == "created":
		ev.Text = payload.Comment.Body
		ev.CommentID = payload.Comment.ID
		if ev.Sender == "" {
			ev.Sender = payload.Comment.User.Login
		}
	case payload.Comment == nil && payload.Action == "opened":
		ev.Text = payload.Issue.Body
		if ev.Sender == "" {
			ev.Sender = payload.Issue.User.Login
		}
	default:
		return nil, nil
	}

	if ev.Owner == "" || ev.Repo == "" {
		return nil, fmt.Errorf("webhook payload missing repository identity")
	}
	return ev, nil
}
