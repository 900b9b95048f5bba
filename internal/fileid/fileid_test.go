package fileid

import (
	"path/filepath"
	"testing"
)

func TestDocID(t *testing.T) {
	root := filepath.FromSlash("/kb")
	tests := []struct {
		path string
		want string
	}{
		{"/kb/intro.md", "intro.md"},
		{"/kb/guides/setup.txt", "guides/setup.txt"},
		{"/kb/./guides/../faq.rst", "faq.rst"},
		{"/elsewhere/x.md", "/elsewhere/x.md"},
	}
	for _, tt := range tests {
		if got := DocID(root, filepath.FromSlash(tt.path)); got != tt.want {
			t.Errorf("DocID(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestContentHash(t *testing.T) {
	if ContentHash("a") != ContentHash("a") {
		t.Error("same content should give same hash")
	}
	if ContentHash("a") == ContentHash("b") {
		t.Error("different content should give different hashes")
	}
	if len(ContentHash("")) != 64 {
		t.Errorf("hash length = %d, want 64", len(ContentHash("")))
	}
}

func TestFingerprint(t *testing.T) {
	a := map[string]string{"x.md": "h1", "y.md": "h2"}
	b := map[string]string{"y.md": "h2", "x.md": "h1"}
	if Fingerprint(a) != Fingerprint(b) {
		t.Error("fingerprint should not depend on map order")
	}
	c := map[string]string{"x.md": "h1", "y.md": "h3"}
	if Fingerprint(a) == Fingerprint(c) {
		t.Error("changed content should change the fingerprint")
	}
	d := map[string]string{"x.mdh1": "", "y.md": "h2"}
	if Fingerprint(a) == Fingerprint(d) {
		t.Error("id/hash boundary must be unambiguous")
	}
}
