package transcode

import (
	"sort"
	"testing"
)

func TestIsSupported(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"photo.jpg", true},
		{"photo.JPG", true},
		{"photo.jpeg", true},
		{"icon.png", true},
		{"anim.gif", true},
		{"modern.webp", true},
		{"scan.bmp", true},
		{"layers.tiff", true},
		{"chart.svg", true},
		{"/abs/path/to/photo.PNG", true},
		{"notes.txt", false},
		{"archive.zip", false},
		{"noextension", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsSupported(tt.path); got != tt.want {
			t.Errorf("IsSupported(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestContentType(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"photo.jpg", "image/jpeg"},
		{"photo.jpeg", "image/jpeg"},
		{"icon.PNG", "image/png"},
		{"chart.svg", "image/svg+xml"},
		{"anim.gif", "image/gif"},
		{"unknown.xyz", "application/octet-stream"},
		{"noextension", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := ContentType(tt.path); got != tt.want {
			t.Errorf("ContentType(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestSupportedExtensions(t *testing.T) {
	exts := SupportedExtensions()
	if len(exts) != len(supportedFormats) {
		t.Fatalf("got %d extensions, want %d", len(exts), len(supportedFormats))
	}
	if !sort.StringsAreSorted(exts) {
		t.Errorf("extensions not sorted: %v", exts)
	}
	for _, ext := range exts {
		if !supportedFormats[ext] {
			t.Errorf("unexpected extension %q", ext)
		}
	}
}

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already safe", "photo.jpg", "photo.jpg"},
		{"spaces", "my photo.jpg", "my_photo.jpg"},
		{"parentheses collapse", "photo (1).png", "photo_1_.png"},
		{"unicode", "fotografía.png", "fotograf_a.png"},
		{"leading and trailing underscores", "__draft__.png", "draft_.png"},
		{"no extension gets jpg", "snapshot", "snapshot.jpg"},
		{"keeps dashes and dots", "a-b.c.webp", "a-b.c.webp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeFilename(tt.in); got != tt.want {
				t.Errorf("SafeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
