package github

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestVerifySignature(t *testing.T) {
	secret := "test-secret"
	payload := []byte("test payload")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	validSignature := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	tests := []struct {
		name      string
		payload   []byte
		signature string
		secret    string
		want      bool
	}{
		{"valid signature", payload, validSignature, secret, true},
		{"invalid signature", payload, "sha256=deadbeef", secret, false},
		{"wrong secret", payload, validSignature, "other-secret", false},
		{"missing prefix", payload, validSignature[7:], secret, false},
		{"empty signature", payload, "", secret, false},
		{"different payload", []byte("tampered"), validSignature, secret, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifySignature(tt.payload, tt.signature, tt.secret); got != tt.want {
				t.Errorf("VerifySignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateSignatureHeader(t *testing.T) {
	if err := ValidateSignatureHeader(""); err == nil {
		t.Error("empty header should error")
	}
	if err := ValidateSignatureHeader("sha1=abc"); err == nil {
		t.Error("wrong algorithm prefix should error")
	}
	if err := ValidateSignatureHeader("sha256=abc"); err != nil {
		t.Errorf("valid header rejected: %v", err)
	}
}

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantType string
		check    func(*testing.T, *Event)
	}{
		{
			name: "opened issue becomes a task",
			payload: `{
				"action": "opened",
				"issue": {
					"number": 7,
					"title": "Add fizzbuzz",
					"body": "Print fizzbuzz up to 100",
					"user": {"login": "alice"}
				}
			}`,
			wantType: "new_issue",
			check: func(t *testing.T, e *Event) {
				if e.IssueNumber != 7 {
					t.Errorf("IssueNumber = %d", e.IssueNumber)
				}
				if e.TaskDescription != "Add fizzbuzz\nPrint fizzbuzz up to 100" {
					t.Errorf("TaskDescription = %q", e.TaskDescription)
				}
				if e.User != "alice" {
					t.Errorf("User = %q", e.User)
				}
			},
		},
		{
			name: "opened pull request",
			payload: `{
				"action": "opened",
				"pull_request": {
					"title": "Fix bug",
					"head": {"ref": "fix/bug"},
					"user": {"login": "bob"}
				}
			}`,
			wantType: "new_pull_request",
			check: func(t *testing.T, e *Event) {
				if e.Branch != "fix/bug" {
					t.Errorf("Branch = %q", e.Branch)
				}
			},
		},
		{
			name:     "closed issue passes through",
			payload:  `{"action": "closed", "issue": {"number": 1, "title": "x", "user": {"login": "c"}}}`,
			wantType: "closed",
		},
		{
			name:     "unknown payload",
			payload:  `{}`,
			wantType: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := ParseEvent([]byte(tt.payload))
			if err != nil {
				t.Fatalf("ParseEvent() error: %v", err)
			}
			if event.Type != tt.wantType {
				t.Errorf("Type = %s, want %s", event.Type, tt.wantType)
			}
			if tt.check != nil {
				tt.check(t, event)
			}
		})
	}

	if _, err := ParseEvent([]byte("not json")); err == nil {
		t.Error("invalid JSON should error")
	}
}
