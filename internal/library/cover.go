package library

import (
	"os"
	"path/filepath"
	"strings"
)

// Cover image names looked up next to a file without embedded art.
var coverArtFilenames = []string{
	"cover.jpg", "cover.jpeg", "cover.png",
	"folder.jpg", "folder.jpeg", "folder.png",
	"album.jpg", "album.jpeg", "album.png",
	"front.jpg", "front.jpeg", "front.png",
}

// FolderArt returns the first cover image found in dir, or nil.
func FolderArt(dir string) *Picture {
	for _, name := range coverArtFilenames {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			data, err = os.ReadFile(filepath.Join(dir, strings.ToUpper(name)))
			if err != nil {
				continue
			}
		}
		return &Picture{Data: data, MIMEType: mimeForImage(name)}
	}
	return nil
}

func mimeForImage(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
