package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestVerifyPDFRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()

	html := filepath.Join(dir, "login.pdf")
	if err := os.WriteFile(html, []byte("<html><body>Bitte melden Sie sich an</body></html>"), 0644); err != nil {
		t.Fatal(err)
	}

	empty := filepath.Join(dir, "empty.pdf")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"html saved as pdf", html},
		{"empty file", empty},
		{"missing file", filepath.Join(dir, "missing.pdf")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := verifyPDF(tt.path); err == nil {
				t.Errorf("verifyPDF(%s) should fail", filepath.Base(tt.path))
			}
		})
	}
}
