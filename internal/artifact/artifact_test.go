package artifact_test

import (
	"os"
	"path/filepath"
	"testing"

	"deckhand/internal/artifact"
	"deckhand/internal/testsupport"
)

func TestStem(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/docs/Quarterly Report.pdf", "Quarterly Report"},
		{"notes.md", "notes"},
		{"README", "README"},
		{"archive.tar.gz", "archive.tar"},
		{"/inbox/.hidden.pdf", ".hidden"},
		{"", "document"},
		{"/", "document"},
		// Decomposed accent (e + combining acute) folds to the precomposed form.
		{"Exposé.pdf", "Exposé"},
	}
	for _, tc := range cases {
		if got := artifact.Stem(tc.path); got != tc.want {
			t.Errorf("Stem(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestDisplayTitle(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/docs/quarterly_report-2024.final.pdf", "Quarterly Report 2024 Final"},
		{"NASA_brief.pdf", "Nasa Brief"},
		{"weekly  sync.pdf", "Weekly Sync"},
		{"___.pdf", "Untitled Document"},
		{"", "Untitled Document"},
	}
	for _, tc := range cases {
		if got := artifact.DisplayTitle(tc.path); got != tc.want {
			t.Errorf("DisplayTitle(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestValidatePDF(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.pdf")
	testsupport.WriteSamplePDF(t, good)
	if err := artifact.ValidatePDF(good); err != nil {
		t.Fatalf("expected valid pdf, got %v", err)
	}

	junk := filepath.Join(dir, "junk.pdf")
	if err := os.WriteFile(junk, []byte("this is not a pdf"), 0o644); err != nil {
		t.Fatalf("write junk: %v", err)
	}
	if err := artifact.ValidatePDF(junk); err == nil {
		t.Fatal("expected error for non-pdf content")
	}

	empty := filepath.Join(dir, "empty.pdf")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("write empty: %v", err)
	}
	if err := artifact.ValidatePDF(empty); err == nil {
		t.Fatal("expected error for empty file")
	}

	if err := artifact.ValidatePDF(filepath.Join(dir, "missing.pdf")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
