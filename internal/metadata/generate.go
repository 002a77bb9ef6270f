package metadata

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"slidemill/internal/logging"
	"slidemill/internal/textutil"
)

// Generate builds a fresh document from the project folder and the catalog
// and saves it. Every image starts without a product on the default settings
// level.
func (s *Store) Generate(cat Catalog) (*Metadata, error) {
	md, err := s.Build(cat)
	if err != nil {
		return nil, err
	}
	if err := s.Save(md); err != nil {
		return nil, err
	}
	s.logger.Info("metadata generated",
		logging.String(logging.FieldEventType, "metadata_generated"),
		logging.String("path", s.path),
		logging.Int("content_types", len(md.ContentTypes)),
		logging.Int("images", len(md.Images)),
		logging.Int("untagged", len(md.Untagged)))
	return md, nil
}

// Build derives a document from the filesystem without saving it.
func (s *Store) Build(cat Catalog) (*Metadata, error) {
	md := New()
	md.ContentTypes = normalizeNames(cat.ContentTypes)

	for _, ct := range md.ContentTypes {
		names := normalizeNames(cat.Products[ct])
		products := make([]Product, 0, len(names))
		for _, name := range names {
			products = append(products, Product{Name: name, MinOccurrences: cat.MinOccurrences[ct][name]})
		}
		md.Products[ct] = products
		md.Settings[ct] = NewSettingsTable(names)
	}

	claimed := map[string]struct{}{}
	var all []string
	for _, ct := range md.ContentTypes {
		dir := s.contentDir(ct)
		images, err := listImages(dir)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("scan %s: %w", dir, err)
			}
			logging.WarnWithContext(s.logger, "content type folder missing", "content_folder_missing",
				logging.String(logging.FieldContentType, ct),
				logging.String("path", dir),
				logging.String(logging.FieldErrorHint, "create the folder or remove the content type from the captions file"),
				logging.String(logging.FieldImpact, "content type has no images"))
			images = []string{}
		}
		md.Structure[ct] = Structure{Path: dir, Images: images}
		for _, name := range images {
			dims, err := s.probe(dirJoin(dir, name))
			if err != nil {
				return nil, fmt.Errorf("probe %s: %w", name, err)
			}
			if _, dup := md.Images[name]; dup {
				return nil, fmt.Errorf("image %s exists in more than one content folder", name)
			}
			md.Images[name] = &Image{ContentType: ct, Dimensions: dims, SettingsSource: SourceDefault}
			claimed[name] = struct{}{}
			all = append(all, name)
		}
	}
	base, err := listImages(s.baseDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("scan %s: %w", s.baseDir, err)
	}
	for _, name := range base {
		if _, ok := claimed[name]; !ok {
			md.Untagged = append(md.Untagged, name)
		}
	}
	if collisions := textutil.FoldCollisions(append(all, md.Untagged...)); len(collisions) > 0 {
		return nil, fmt.Errorf("image names differ only by case: %s", formatCollisions(collisions))
	}
	return md, nil
}

// CatalogOf returns the content types and products declared by md.
func CatalogOf(md *Metadata) Catalog {
	cat := Catalog{
		ContentTypes:   append([]string(nil), md.ContentTypes...),
		Products:       map[string][]string{},
		MinOccurrences: map[string]map[string]int{},
	}
	for ct, products := range md.Products {
		cat.MinOccurrences[ct] = map[string]int{}
		for _, p := range products {
			cat.Products[ct] = append(cat.Products[ct], p.Name)
			cat.MinOccurrences[ct][p.Name] = p.MinOccurrences
		}
	}
	return cat
}

// normalizeNames sorts, deduplicates, and drops blanks and the wildcard.
func normalizeNames(values []string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || v == Wildcard {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func formatCollisions(groups [][]string) string {
	parts := make([]string, 0, len(groups))
	for _, g := range groups {
		parts = append(parts, strings.Join(g, "/"))
	}
	return strings.Join(parts, ", ")
}
