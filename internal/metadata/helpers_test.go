package metadata_test

import (
	"testing"

	"slidemill/internal/logging"
	"slidemill/internal/metadata"
	"slidemill/internal/testsupport"
)

// hookProject lays out a project with one content type "hook", three images,
// and the product "magnesium" required twice by the captions.
func hookProject(t *testing.T) (*testsupport.Project, metadata.Catalog, *metadata.Store) {
	t.Helper()
	proj := testsupport.NewProject(t)
	proj.AddImage("hook", "a.png")
	proj.AddImage("hook", "b.png")
	proj.AddImage("hook", "c.png")
	cat := metadata.Catalog{
		ContentTypes:   []string{"hook"},
		Products:       map[string][]string{"hook": {"magnesium"}},
		MinOccurrences: map[string]map[string]int{"hook": {"magnesium": 2}},
	}
	return proj, cat, metadata.NewStore(proj.Base, logging.NewNop())
}

func mustGenerate(t *testing.T, store *metadata.Store, cat metadata.Catalog) *metadata.Metadata {
	t.Helper()
	md, err := store.Generate(cat)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return md
}

func options(base string, strict bool) metadata.Options {
	return metadata.Options{Strict: strict, BaseDir: base, Logger: logging.NewNop()}
}

func productCount(t *testing.T, md *metadata.Metadata, ct, name string) int {
	t.Helper()
	p, ok := md.Product(ct, name)
	if !ok {
		t.Fatalf("product %s/%s not declared", ct, name)
	}
	return p.CurrentCount
}
