package crates

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"serde", "serde"},
		{"Serde_JSON", "serde-json"},
		{"tokio-util", "tokio-util"},
		{"  padded  ", "padded"},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRepositoryURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"https://github.com/serde-rs/serde", "https://github.com/serde-rs/serde"},
		{"https://github.com/serde-rs/serde.git", "https://github.com/serde-rs/serde"},
		{"git@github.com:tokio-rs/tokio.git", "https://github.com/tokio-rs/tokio"},
		{"git://github.com/rust-lang/log", "https://github.com/rust-lang/log"},
		{"git+https://gitlab.com/foo/bar.git", "https://gitlab.com/foo/bar"},
	}
	for _, tt := range tests {
		if got := repositoryURL(tt.in); got != tt.want {
			t.Errorf("repositoryURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
