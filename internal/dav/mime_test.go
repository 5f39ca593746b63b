package dav

import "testing"

func TestContentTypeFor(t *testing.T) {
	tests := map[string]string{
		"report.pdf":     "application/pdf",
		"REPORT.PDF":     "application/pdf",
		"photo.JPeg":     "image/jpeg",
		"archive.tar.gz": "application/gzip",
		"slides.pptx":    "application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"Makefile":       DefaultContentType,
		"data.unknown":   DefaultContentType,
		".bashrc":        DefaultContentType,
	}
	for name, want := range tests {
		if got := ContentTypeFor(name); got != want {
			t.Errorf("ContentTypeFor(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"report.PDF":     ".PDF",
		"archive.tar.gz": ".gz",
		"Makefile":       "",
	}
	for name, want := range tests {
		if got := extension(name); got != want {
			t.Errorf("extension(%q) = %q, want %q", name, got, want)
		}
	}
}
