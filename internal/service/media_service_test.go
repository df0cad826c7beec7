package service

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// 1x1 transparent PNG.
var tinyPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func padded(head []byte, size int) []byte {
	out := make([]byte, size)
	copy(out, head)
	return out
}

func TestMediaService_Encode(t *testing.T) {
	svc := NewMediaService()

	img, err := svc.Encode(bytes.NewReader(tinyPNG))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.HasPrefix(img.URL, "data:image/png;base64,") || img.ContentType != "image/png" || img.Size != len(tinyPNG) {
		t.Fatalf("image = %+v", Image{ContentType: img.ContentType, Size: img.Size})
	}

	gifHead := []byte("GIF89a")
	tests := []struct {
		name    string
		data    []byte
		want    error
		message string
	}{
		{"text is rejected", []byte("bukan gambar"), ErrUnsupportedFileType, ""},
		{"png over 512 KB", padded(tinyPNG, MaxImageBytes+10), ErrFileTooLarge, "Ukuran gambar PNG maksimal 512 KB."},
		{"gif over 256 KB", padded(gifHead, 300*1024), ErrFileTooLarge, "Ukuran gambar GIF maksimal 256 KB."},
		{"gif under limit", padded(gifHead, 100*1024), nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Encode(bytes.NewReader(tt.data))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if tt.message == "" {
				return
			}
			var tooLarge *ImageTooLargeError
			if !errors.As(err, &tooLarge) || tooLarge.Message() != tt.message {
				t.Fatalf("message = %v, want %q", err, tt.message)
			}
		})
	}
}
