package pdf

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindDOI(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain", "see 10.1148/radiol.2021204567 for details", "10.1148/radiol.2021204567"},
		{"trailing punctuation", "(doi: 10.1007/s10278-020-00389-z).", "10.1007/s10278-020-00389-z"},
		{"url form", "https://doi.org/10.1038/nature12373", "10.1038/nature12373"},
		{"first of many", "10.1000/first and 10.1000/second", "10.1000/first"},
		{"too few registrant digits", "10.12/abc", ""},
		{"none", "no identifier here", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindDOI(tt.text); got != tt.want {
				t.Errorf("FindDOI() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTitleFromText(t *testing.T) {
	text := "Journal of Digital Imaging\n" +
		"Short\n" +
		"Copyright 2023 the authors, all rights reserved\n" +
		"  Deep   Learning for Medical Image Segmentation  \n" +
		"Jane Smith, John Doe\n"
	if got, want := TitleFromText(text), "Deep Learning for Medical Image Segmentation"; got != want {
		t.Errorf("TitleFromText() = %q, want %q", got, want)
	}
	if got := TitleFromText("tiny\nlines\n"); got != "" {
		t.Errorf("TitleFromText() = %q, want empty", got)
	}
}

func TestIsHeaderLine(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"Radiology: Volume 12, Issue 3", true},
		{"Article first published online", true},
		{"© 2024 RSNA", true},
		{"doi: 10.1/xyz", true},
		{"Machine Learning in Radiology", false},
	}
	for _, tt := range tests {
		if got := isHeaderLine(tt.line); got != tt.want {
			t.Errorf("isHeaderLine(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestReadHints_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	if err := os.WriteFile(path, []byte("not a pdf"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadHints(path); err == nil {
		t.Error("ReadHints() should fail on a non-PDF file")
	}
	if _, err := ReadHints(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("ReadHints() should fail on a missing file")
	}
}
