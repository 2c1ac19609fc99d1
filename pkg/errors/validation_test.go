package errors

import (
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"simple", "Chapter 1", "Chapter 1", false},
		{"trimmed", "  Intro  ", "Intro", false},
		{"unicode", "第一章", "第一章", false},
		{"max length", strings.Repeat("a", MaxNameLength), strings.Repeat("a", MaxNameLength), false},

		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
		{"too long", strings.Repeat("a", MaxNameLength+1), "", true},
		{"control char", "foo\x01bar", "", true},
		{"newline", "foo\nbar", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateName("node", tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ValidateName(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("ValidateName(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidInput)
			}
		})
	}
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"proj_1_1700000000", false},
		{"n1", false},
		{"node-with.dot", false},

		{"", true},
		{"  ", true},
		{"../etc", true},
		{"a/b", true},
		{"a\\b", true},
		{"a\x00b", true},
		{strings.Repeat("x", 300), true},
	}

	for _, tt := range tests {
		err := ValidateID("project", tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}
