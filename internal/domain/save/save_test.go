package save

import (
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "simple", input: "slot1.sav"},
		{name: "with spaces", input: "autosave 3"},
		{name: "underscores and digits", input: "savegame_v2"},
		{name: "max length", input: strings.Repeat("a", MaxNameLength)},
		{name: "empty", input: "", wantErr: true},
		{name: "too long", input: strings.Repeat("a", MaxNameLength+1), wantErr: true},
		{name: "forward slash", input: "nested/save", wantErr: true},
		{name: "backslash", input: `nested\save`, wantErr: true},
		{name: "parent traversal", input: "../etc/passwd", wantErr: true},
		{name: "embedded dotdot", input: "a..b", wantErr: true},
		{name: "hidden file", input: ".profile", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.wantErr && err == nil {
				t.Fatalf("ValidateName(%q): expected error, got nil", tt.input)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("ValidateName(%q): unexpected error: %v", tt.input, err)
			}
		})
	}
}

func TestListKey(t *testing.T) {
	if got, want := ListKey("u1"), "user:u1:saves"; got != want {
		t.Fatalf("ListKey = %q, want %q", got, want)
	}
}

func TestStorageKeyFor(t *testing.T) {
	if got, want := StorageKeyFor("u1", "s1"), "saves/u1/s1"; got != want {
		t.Fatalf("StorageKeyFor = %q, want %q", got, want)
	}
}
