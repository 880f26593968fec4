package github

import (
	"testing"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		repo    string
		wantErr bool
	}{
		{"owner/repo", false},
		{"owner", true},
		{"owner/repo/extra", true},
		{"", true},
	}

	for _, tt := range tests {
		_, err := NewClient("token", tt.repo)
		if (err != nil) != tt.wantErr {
			t.Errorf("NewClient(%q) error = %v, wantErr %v", tt.repo, err, tt.wantErr)
		}
	}
}
