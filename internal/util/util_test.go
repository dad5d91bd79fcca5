package util

import (
	"errors"
	"testing"
)

func TestContentHash(t *testing.T) {
	// sha256("") and sha256("abc")
	tests := []struct {
		in   string
		want string
	}{
		{"", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	}

	for _, tt := range tests {
		if got := ContentHash([]byte(tt.in)); got != tt.want {
			t.Errorf("ContentHash(%q) = %s, want %s", tt.in, got, tt.want)
		}
		if got := ContentHashString(tt.in); got != tt.want {
			t.Errorf("ContentHashString(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestGetFrontMatter(t *testing.T) {
	md := []byte(`
%%%
title = "Hello"
date = 2024-05-01T00:00:00Z

[[author]]
fullname = "Bob"
%%%

# Body
`)

	fm, err := GetFrontMatter(md)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if fm.Title != "Hello" {
		t.Errorf("Expected title Hello, got %q", fm.Title)
	}
	if fm.AuthorName() != "Bob" {
		t.Errorf("Expected author Bob, got %q", fm.AuthorName())
	}
	if fm.Date.Year() != 2024 {
		t.Errorf("Expected 2024 date, got %v", fm.Date)
	}
	if string(fm.Body) != "# Body\n" {
		t.Errorf("Unexpected body %q", fm.Body)
	}
}

func TestGetFrontMatterErrors(t *testing.T) {
	tests := []struct {
		name string
		md   string
		none bool
	}{
		{"no block", "# Just markdown\n", true},
		{"empty", "", true},
		{"unterminated", "%%%\ntitle = \"x\"\n", false},
		{"bad toml", "%%%\ntitle = \n%%%\nbody", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GetFrontMatter([]byte(tt.md))
			if err == nil {
				t.Fatal("Expected an error")
			}
			if tt.none != errors.Is(err, ErrNoFrontMatter) {
				t.Errorf("ErrNoFrontMatter = %v, want %v (err %v)", errors.Is(err, ErrNoFrontMatter), tt.none, err)
			}
		})
	}
}
