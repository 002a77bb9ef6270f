package metadata

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
)

// DimensionProbe reads the pixel size of an image file.
type DimensionProbe func(path string) (Dimensions, error)

// ProbeDimensions decodes only the image header of a PNG or JPEG file.
func ProbeDimensions(path string) (Dimensions, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dimensions{}, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return Dimensions{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

// IsImageFile reports whether name is a visible .png, .jpg or .jpeg file.
// The extension check ignores case.
func IsImageFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

// listImages returns the image files directly inside dir, sorted by name.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && IsImageFile(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

func dirJoin(dir, name string) string {
	return filepath.Join(dir, name)
}
