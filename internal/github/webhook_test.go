package github

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func signPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"action":"created"}`)
	secret := "hook-secret"

	tests := []struct {
		name      string
		signature string
		secret    string
		valid     bool
	}{
		{"valid signature", signPayload(payload, secret), secret, true},
		{"wrong secret", signPayload(payload, "other"), secret, false},
		{"missing prefix", "deadbeef", secret, false},
		{"empty signature", "", secret, false},
		{"no secret skips verification", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VerifyWebhookSignature(payload, tt.signature, tt.secret)
			if got != tt.valid {
				t.Errorf("VerifyWebhookSignature = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestParseEventIssueComment(t *testing.T) {
	body := []byte(`{
		"action": "created",
		"issue": {"number": 42, "title": "Bug", "user": {"login": "author"}},
		"comment": {"id": 555, "body": "@aider fix the typo", "user": {"login": "alice"}},
		"repository": {
			"name": "repo",
			"full_name": "owner/repo",
			"owner": {"login": "owner"},
			"clone_url": "https://github.com/owner/repo.git",
			"default_branch": "main"
		},
		"sender": {"login": "alice"}
	}`)

	ev, err := ParseEvent(body)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if ev == nil {
		t.Fatal("ParseEvent returned nil for issue_comment.created")
	}
	if ev.Text != "@aider fix the typo" {
		t.Errorf("Text = %q", ev.Text)
	}
	if ev.Sender != "alice" || ev.Owner != "owner" || ev.Repo != "repo" {
		t.Errorf("addressing = %s/%s by %s", ev.Owner, ev.Repo, ev.Sender)
	}
	if ev.IssueNumber != 42 || ev.CommentID != 555 {
		t.Errorf("issue/comment = %d/%d", ev.IssueNumber, ev.CommentID)
	}
	if ev.BaseBranch != "main" {
		t.Errorf("BaseBranch = %q", ev.BaseBranch)
	}
}

func TestParseEventIssueOpened(t *testing.T) {
	body := []byte(`{
		"action": "opened",
		"issue": {"number": 7, "body": "@aider add tests", "user": {"login": "bob"}},
		"repository": {
			"name": "repo",
			"owner": {"login": "owner"},
			"default_branch": "main"
		}
	}`)

	ev, err := ParseEvent(body)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if ev == nil {
		t.Fatal("ParseEvent returned nil for issues.opened")
	}
	if ev.Text != "@aider add tests" {
		t.Errorf("Text = %q", ev.Text)
	}
	if ev.Sender != "bob" {
		t.Errorf("Sender = %q, want issue author fallback", ev.Sender)
	}
	if ev.CommentID != 0 {
		t.Errorf("CommentID = %d, want 0 for issue body", ev.CommentID)
	}
}

func TestParseEventIgnoresOtherActions(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"comment edited", `{"action":"edited","issue":{"number":1},"comment":{"id":2,"body":"x"},"repository":{"name":"r","owner":{"login":"o"}}}`},
		{"issue closed", `{"action":"closed","issue":{"number":1,"body":"x"},"repository":{"name":"r","owner":{"login":"o"}}}`},
		{"no issue", `{"action":"created","repository":{"name":"r","owner":{"login":"o"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseEvent([]byte(tt.body))
			if err != nil {
				t.Fatalf("ParseEvent: %v", err)
			}
			if ev != nil {
				t.Errorf("expected nil event, got %+v", ev)
			}
		})
	}
}
