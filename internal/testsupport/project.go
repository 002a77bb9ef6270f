package testsupport

import (
	"path/filepath"
	"testing"
)

// Project is a temporary content folder: one subfolder per content type plus
// loose untagged images in the base folder.
type Project struct {
	t    testing.TB
	Base string
}

// NewProject creates an empty project folder.
func NewProject(t testing.TB) *Project {
	t.Helper()
	return &Project{t: t, Base: t.TempDir()}
}

// AddImage writes a 4x3 image into the folder of contentType.
func (p *Project) AddImage(contentType, name string) string {
	p.t.Helper()
	return p.AddSizedImage(contentType, name, 4, 3)
}

// AddSizedImage writes an image with explicit dimensions into the folder of
// contentType. An empty contentType writes into the base folder.
func (p *Project) AddSizedImage(contentType, name string, width, height int) string {
	p.t.Helper()
	path := filepath.Join(p.Base, contentType, name)
	WriteImage(p.t, path, width, height)
	return path
}

// AddUntagged writes an image into the base folder.
func (p *Project) AddUntagged(name string) string {
	p.t.Helper()
	return p.AddSizedImage("", name, 4, 3)
}

// Path joins elem onto the project folder.
func (p *Project) Path(elem ...string) string {
	return filepath.Join(append([]string{p.Base}, elem...)...)
}
