package github

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// VerifySignature verifies the GitHub webhook signature
// using HMAC SHA-256 and constant-time comparison
func VerifySignature(payload []byte, signature, secret string) bool {
	// GitHub sends signature in format "sha256=<hash>"
	if !strings.HasPrefix(signature, "sha256=") {
		return false
	}

	receivedHash := strings.TrimPrefix(signature, "sha256=")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expectedHash := hex.EncodeToString(mac.Sum(nil))

	// Constant-time comparison to prevent timing attacks
	return hmac.Equal([]byte(receivedHash), []byte(expectedHash))
}

// ValidateSignatureHeader validates the X-Hub-Signature-256 header
func ValidateSignatureHeader(header string) error {
	if header == "" {
		return fmt.Errorf("missing X-Hub-Signature-256 header")
	}
	if !strings.HasPrefix(header, "sha256=") {
		return fmt.Errorf("invalid signature format, expected 'sha256=<hash>'")
	}
	return nil
}

// Event is the normalized form of an incoming webhook event.
type Event struct {
	Type            string `json:"type"`
	TaskDescription string `json:"task_description,omitempty"`
	IssueNumber     int    `json:"issue_number,omitempty"`
	Title           string `json:"title,omitempty"`
	Branch          string `json:"branch,omitempty"`
	User            string `json:"user,omitempty"`
}

type webhookPayload struct {
	Action string `json:"action"`
	Issue  *struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
		Body   string `json:"body"`
		User   struct {
			Login string `json:"login"`
		} `json:"user"`
	} `json:"issue"`
	PullRequest *struct {
		Title string `json:"title"`
		Head  struct {
			Ref string `json:"ref"`
		} `json:"head"`
		User struct {
			Login string `json:"login"`
		} `json:"user"`
	} `json:"pull_request"`
}

// ParseEvent maps a webhook payload to an Event. Opened issues become task
// submissions; opened pull requests are acknowledged; everything else passes
// through with its action name.
func ParseEvent(payload []byte) (*Event, error) {
	var p webhookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("parse webhook payload: %w", err)
	}

	if p.Action == "opened" && p.Issue != nil {
		return &Event{
			Type:            "new_issue",
			TaskDescription: strings.TrimSpace(p.Issue.Title + "\n" + p.Issue.Body),
			IssueNumber:     p.Issue.Number,
			User:            p.Issue.User.Login,
		}, nil
	}

	if p.Action == "opened" && p.PullRequest != nil {
		return &Event{
			Type:   "new_pull_request",
			Title:  p.PullRequest.Title,
			Branch: p.PullRequest.Head.Ref,
			User:   p.PullRequest.User.Login,
		}, nil
	}

	eventType := p.Action
	if eventType == "" {
		eventType = "unknown"
	}
	return &Event{Type: eventType}, nil
}
