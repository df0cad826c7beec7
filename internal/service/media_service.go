package service

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// Sentinel errors for media uploads.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)

// MaxImageBytes keeps the encoded data URL within the question imageUrl limit.
const MaxImageBytes = 512 * 1024

// imageLimits caps the raw size per sniffed type. Animated GIFs bloat the
// question record quickly, so they get less room.
var imageLimits = map[string]int{
	"image/jpeg": MaxImageBytes,
	"image/png":  MaxImageBytes,
	"image/webp": MaxImageBytes,
	"image/gif":  256 * 1024,
}

// ImageTooLargeError reports an upload over the limit for its type.
type ImageTooLargeError struct {
	ContentType string
	Size        int
	Limit       int
}

func (e *ImageTooLargeError) Error() string {
	return fmt.Sprintf("%s image is %d bytes, limit %d", e.ContentType, e.Size, e.Limit)
}

func (e *ImageTooLargeError) Unwrap() error { return ErrFileTooLarge }

// Message is the admin-facing text for the error.
func (e *ImageTooLargeError) Message() string {
	kind := strings.ToUpper(strings.TrimPrefix(e.ContentType, "image/"))
	return fmt.Sprintf("Ukuran gambar %s maksimal %d KB.", kind, e.Limit/1024)
}

// Image is an encoded question image.
type Image struct {
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
}

// MediaService turns uploaded question images into inline data URLs, so a
// question stays a single self-contained record in every storage backend.
type MediaService struct{}

func NewMediaService() *MediaService {
	return &MediaService{}
}

// Encode reads the upload and returns it as a base64 data URL. The type is
// sniffed from the content, never taken from the client header.
func (s *MediaService) Encode(r io.Reader) (Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return Image{}, fmt.Errorf("read upload: %w", err)
	}

	contentType := http.DetectContentType(data)
	limit, ok := imageLimits[contentType]
	if !ok {
		return Image{}, fmt.Errorf("%w: %s (allowed: %s)",
			ErrUnsupportedFileType, contentType, strings.Join(allowedTypes(), ", "))
	}
	if len(data) > limit {
		return Image{}, &ImageTooLargeError{ContentType: contentType, Size: len(data), Limit: limit}
	}

	return Image{
		URL:         "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data),
		ContentType: contentType,
		Size:        len(data),
	}, nil
}

func allowedTypes() []string {
	types := make([]string, 0, len(imageLimits))
	for t := range imageLimits {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
