package mediasession

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // decoder registration
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/nfnt/resize"

	"github.com/llehouerou/cadence/internal/library"
)

// DefaultArtworkSize is the longest edge of published artwork in pixels.
const DefaultArtworkSize = 512

// ArtworkStore publishes cover art as a file URL. At most one artwork file
// exists at a time.
type ArtworkStore struct {
	dir  string
	size uint

	mu      sync.Mutex
	current string
}

// NewArtworkStore creates a store writing into dir. The directory is created
// on first use.
func NewArtworkStore(dir string, size uint) *ArtworkStore {
	if size == 0 {
		size = DefaultArtworkSize
	}
	return &ArtworkStore{dir: dir, size: size}
}

// Set publishes pic and releases the previous artwork. A nil pic only
// releases. The returned URL is empty when nothing is published.
func (s *ArtworkStore) Set(pic *library.Picture) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pic == nil || len(pic.Data) == 0 {
		s.releaseLocked()
		return "", nil
	}

	// The previous artwork is gone even if the write below fails.
	s.releaseLocked()

	data, ext := s.encode(pic)
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create artwork dir: %w", err)
	}
	path := filepath.Join(s.dir, "artwork-"+uuid.NewString()+ext)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write artwork: %w", err)
	}
	s.current = path
	return (&url.URL{Scheme: "file", Path: path}).String(), nil
}

// encode downscales decodable images to the store size. Images that cannot
// be decoded are published as-is.
func (s *ArtworkStore) encode(pic *library.Picture) ([]byte, string) {
	img, _, err := image.Decode(bytes.NewReader(pic.Data))
	if err != nil {
		return pic.Data, extForMIME(pic.MIMEType)
	}
	b := img.Bounds()
	if uint(b.Dx()) > s.size || uint(b.Dy()) > s.size {
		img = resize.Thumbnail(s.size, s.size, img, resize.Lanczos3)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return pic.Data, extForMIME(pic.MIMEType)
	}
	return buf.Bytes(), ".jpg"
}

// Release removes the published artwork.
func (s *ArtworkStore) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
}

func (s *ArtworkStore) releaseLocked() {
	if s.current == "" {
		return
	}
	_ = os.Remove(s.current)
	s.current = ""
}

// Current returns the path of the published artwork, or "".
func (s *ArtworkStore) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func extForMIME(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
