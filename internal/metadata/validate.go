package metadata

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"slidemill/internal/logging"
	"slidemill/internal/settings"
	"slidemill/internal/textutil"
)

// SettingsChecker validates one settings blob and describes each problem.
type SettingsChecker interface {
	Validate(blob *settings.Blob) []string
}

// Options configures a validation call.
type Options struct {
	// Strict promotes every warning to an error and stops after the first
	// failing section.
	Strict bool
	// BaseDir resolves relative structure paths and locates untagged images.
	BaseDir string
	// Probe reads actual image dimensions. Nil uses ProbeDimensions.
	Probe DimensionProbe
	// Settings checks settings blobs. Nil skips blob checks.
	Settings SettingsChecker
	Logger   *slog.Logger
}

// Validate checks md against the expected catalog and returns every issue it
// finds. Product current_count values are recomputed from the image records
// and written back into md. A catalog with nil ContentTypes skips the
// comparisons against the captions.
func Validate(md *Metadata, expected Catalog, opts Options) Report {
	if opts.Probe == nil {
		opts.Probe = ProbeDimensions
	}
	v := &validation{
		md:       md,
		expected: expected,
		opts:     opts,
		logger:   logging.NewComponentLogger(opts.Logger, "validator"),
		seen:     map[string]struct{}{},
		checked:  map[*settings.Blob][]string{},
	}
	return v.run()
}

type validation struct {
	md       *Metadata
	expected Catalog
	opts     Options
	logger   *slog.Logger

	errors   []Issue
	warnings []Issue
	seen     map[string]struct{}
	checked  map[*settings.Blob][]string
}

func (v *validation) run() Report {
	if v.md == nil {
		v.errorf(Structural, "metadata is empty")
		return v.report()
	}
	if v.md.keyOrder != nil && !equalStrings(v.md.keyOrder, KeyOrder) {
		v.errorf(Structural, "Metadata keys are not in correct order. Expected: %s, found: %s",
			strings.Join(KeyOrder, ", "), strings.Join(v.md.keyOrder, ", "))
		return v.report()
	}
	v.md.ensureSections()

	sections := []func(){
		v.contentTypes,
		v.products,
		v.structure,
		v.images,
		v.untagged,
		v.settings,
	}
	for _, check := range sections {
		before := len(v.errors)
		check()
		if v.opts.Strict && len(v.errors) > before {
			break
		}
	}
	if v.opts.Strict && len(v.warnings) > 0 {
		v.errors = append(v.errors, v.warnings...)
		v.warnings = nil
	}
	return v.report()
}

func (v *validation) report() Report {
	r := Report{Valid: len(v.errors) == 0, Errors: v.errors, Warnings: v.warnings}
	v.logger.Debug("metadata validated",
		logging.Bool("valid", r.Valid),
		logging.Bool("strict", v.opts.Strict),
		logging.Int("errors", len(r.Errors)),
		logging.Int("warnings", len(r.Warnings)))
	return r
}

func (v *validation) hasExpected() bool { return v.expected.ContentTypes != nil }

func (v *validation) errorf(kind IssueKind, format string, args ...any) {
	v.errors = append(v.errors, Issue{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// warn records a completeness warning once per id; an empty id uses the message.
func (v *validation) warn(id, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if id == "" {
		id = msg
	}
	if _, dup := v.seen[id]; dup {
		return
	}
	v.seen[id] = struct{}{}
	v.warnings = append(v.warnings, Issue{Kind: Completeness, ID: id, Message: msg})
}

func (v *validation) contentTypes() {
	found := v.md.ContentTypes
	if dups := duplicates(found); len(dups) > 0 {
		v.errorf(Structural, "Duplicate content types: %s", strings.Join(dups, ", "))
	}
	if v.hasExpected() && !sameSet(found, v.expected.ContentTypes) {
		v.errorf(Consistency, "Content types mismatch. Found: %s, Expected: %s",
			listOf(found), listOf(sortedCopy(v.expected.ContentTypes)))
	}
}

func (v *validation) products() {
	cts := sortedKeys(v.md.Products)
	wantTypes := v.md.ContentTypes
	if v.hasExpected() {
		wantTypes = v.expected.ContentTypes
	}
	if !sameSet(cts, wantTypes) {
		v.errorf(Consistency, "Product content types mismatch. Found: %s, Expected: %s", listOf(cts), listOf(sortedCopy(wantTypes)))
	}

	for _, ct := range cts {
		products := v.md.Products[ct]
		names := make([]string, 0, len(products))
		seen := map[string]struct{}{}
		for i := range products {
			p := &products[i]
			if containsString(p.missing, "name") {
				v.errorf(Structural, "Product in %s missing 'name' field", ct)
				continue
			}
			if containsString(p.missing, "prevent_duplicates") {
				v.errorf(Structural, "Product %s in %s missing 'prevent_duplicates' field", p.Name, ct)
			}
			if p.Name == Wildcard {
				v.errorf(Consistency, "Product name '%s' is reserved and cannot be declared in %s", Wildcard, ct)
				continue
			}
			if _, dup := seen[p.Name]; dup {
				v.errorf(Structural, "Duplicate product %s in %s", p.Name, ct)
				continue
			}
			seen[p.Name] = struct{}{}
			names = append(names, p.Name)

			if v.hasExpected() {
				if want, ok := v.expected.MinOccurrences[ct][p.Name]; ok && want != p.MinOccurrences {
					v.logger.Debug("min_occurrences refreshed from captions",
						logging.String(logging.FieldContentType, ct),
						logging.String(logging.FieldProduct, p.Name),
						logging.Int("stored", p.MinOccurrences),
						logging.Int("captions", want))
					p.MinOccurrences = want
				}
			}
		}
		if !v.hasExpected() {
			continue
		}
		expectedNames := normalizeNames(v.expected.Products[ct])
		if missing := difference(expectedNames, names); len(missing) > 0 {
			v.errorf(Consistency, "Missing products in %s: %s", ct, listOf(missing))
		}
		if extra := difference(names, expectedNames); len(extra) > 0 {
			v.errorf(Consistency, "Unexpected products in %s: %s", ct, listOf(extra))
		}
	}
	v.reconcileCounts()
}

// reconcileCounts recomputes current_count: each image counts toward its own
// product, and each wildcard image counts once toward every product of its
// content type.
func (v *validation) reconcileCounts() {
	own := map[string]map[string]int{}
	wildcard := map[string]int{}
	for _, img := range v.md.Images {
		if img == nil {
			continue
		}
		switch name := img.ProductName(); name {
		case "":
		case Wildcard:
			wildcard[img.ContentType]++
		default:
			if own[img.ContentType] == nil {
				own[img.ContentType] = map[string]int{}
			}
			own[img.ContentType][name]++
		}
	}

	for _, ct := range sortedKeys(v.md.Products) {
		products := v.md.Products[ct]
		for i := range products {
			p := &products[i]
			actual := own[ct][p.Name] + wildcard[ct]
			if p.CurrentCount != actual {
				v.logger.Info("product count corrected",
					logging.String(logging.FieldEventType, "product_count_corrected"),
					logging.String(logging.FieldContentType, ct),
					logging.String(logging.FieldProduct, p.Name),
					logging.Int("stored", p.CurrentCount),
					logging.Int("actual", actual))
			}
			p.CurrentCount = actual
			if p.PreventDuplicates && p.MinOccurrences > 0 && actual < p.MinOccurrences {
				v.warn("min_occurrences_"+ct+"_"+p.Name,
					"Product '%s' in %s requires at least %d images (has %d)", p.Name, ct, p.MinOccurrences, actual)
			}
		}
	}
}

func (v *validation) structure() {
	for _, ct := range v.md.ContentTypes {
		if _, ok := v.md.Structure[ct]; !ok {
			v.errorf(Referential, "Structure missing for content type %s", ct)
		}
	}
	for _, ct := range sortedKeys(v.md.Structure) {
		if !v.md.HasContentType(ct) {
			v.errorf(Consistency, "Structure defined for unknown content type: %s", ct)
			continue
		}
		st := v.md.Structure[ct]
		if st.Path == "" {
			v.errorf(Structural, "Structure for %s missing required field: path", ct)
			continue
		}
		dir := resolveDir(v.opts.BaseDir, st.Path)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			v.errorf(Referential, "Path %s for %s does not exist", st.Path, ct)
			continue
		}
		if !isSortedUnique(st.Images) {
			v.errorf(Structural, "Images in structure for %s must be sorted alphabetically without duplicates", ct)
		}
		for _, name := range st.Images {
			if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
				v.errorf(Referential, "Image %s not found in %s", name, st.Path)
			}
			if v.md.Images[name] == nil {
				v.errorf(Referential, "Image %s listed in %s structure has no image record", name, ct)
			}
		}
	}

	names := map[string]struct{}{}
	for name := range v.md.Images {
		names[name] = struct{}{}
	}
	for _, name := range v.md.Untagged {
		names[name] = struct{}{}
	}
	if collisions := textutil.FoldCollisions(sortedKeys(names)); len(collisions) > 0 {
		v.errorf(Structural, "Image names differ only by case: %s", formatCollisions(collisions))
	}
}

func (v *validation) images() {
	if v.md.imageOrder != nil && !isSortedUnique(v.md.imageOrder) {
		v.errorf(Structural, "Images must be sorted alphabetically")
	}
	for _, name := range v.md.ImageNames() {
		img := v.md.Images[name]
		if img == nil {
			v.errorf(Structural, "Image %s record is null", name)
			continue
		}
		if len(img.missing) > 0 {
			for _, field := range img.missing {
				v.errorf(Structural, "Image %s missing required field: %s", name, field)
			}
			continue
		}
		ct := img.ContentType
		st, ok := v.md.Structure[ct]
		if !ok || !v.md.HasContentType(ct) {
			v.errorf(Referential, "Image %s has invalid content_type: %s", name, ct)
			continue
		}
		if !containsString(st.Images, name) {
			v.errorf(Referential, "Image %s claims to be in %s folder but isn't found there", name, ct)
		}
		v.checkDimensions(name, img, st)
		v.checkSource(name, img)
		v.checkProduct(name, img)
	}
}

func (v *validation) checkDimensions(name string, img *Image, st Structure) {
	d := img.Dimensions
	if d.Width <= 0 || d.Height <= 0 {
		v.errorf(Structural, "Image %s has invalid dimensions %dx%d", name, d.Width, d.Height)
		return
	}
	path := filepath.Join(resolveDir(v.opts.BaseDir, st.Path), name)
	if _, err := os.Stat(path); err != nil {
		return
	}
	actual, err := v.opts.Probe(path)
	if err != nil {
		v.errorf(Referential, "Failed to verify dimensions for %s: %v", name, err)
		return
	}
	if actual != d {
		v.errorf(Referential, "Image %s dimensions mismatch: stored: %dx%d, actual: %dx%d",
			name, d.Width, d.Height, actual.Width, actual.Height)
	}
}

func (v *validation) checkSource(name string, img *Image) {
	src, err := img.Source()
	if err != nil {
		v.errorf(Structural, "Image %s has invalid settings_source: %s", name, img.SettingsSource)
		return
	}
	ct := img.ContentType
	switch s := src.(type) {
	case DefaultSource:
		if img.Settings != nil {
			v.errorf(Structural, "Image %s has default settings_source but has non-null settings", name)
		}
	case CustomSource:
		if s.Settings == nil {
			v.errorf(Structural, "Image %s has custom settings_source but settings are null", name)
			return
		}
		v.checkBlob(s.Settings, "Image "+name+" custom settings")
	case ContentSource:
		table := v.md.Settings[ct]
		if table == nil {
			v.errorf(Referential, "No settings found for content type: %s", ct)
			return
		}
		if table.Content == nil {
			v.warn("content_settings_"+name, "Image %s uses content-level settings but none are defined for %s", name, ct)
			return
		}
		v.checkBlob(table.Content, "Image "+name+" content settings")
	case ProductSource:
		product := img.ProductName()
		if product == "" {
			v.warn("product_settings_"+name, "Image %s uses product-level settings but has no product assigned", name)
			return
		}
		blob, _ := v.md.Settings[ct].SettingsFor(product)
		if blob == nil {
			v.warn("product_settings_"+name, "Image %s uses product-level settings but none found for %s", name, product)
			return
		}
		v.checkBlob(blob, "Image "+name+" product settings")
	}
}

func (v *validation) checkProduct(name string, img *Image) {
	ct := img.ContentType
	if img.Product == nil {
		v.warn("missing_product_"+name, "Image %s has no product assigned. Valid products: %s",
			name, validProductList(v.md.ProductNames(ct)))
		return
	}
	if !v.md.IsValidProduct(ct, *img.Product) {
		v.errorf(Referential, "Image %s has invalid product: %s. Valid products: %s",
			name, *img.Product, validProductList(v.md.ProductNames(ct)))
	}
}

func (v *validation) checkBlob(blob *settings.Blob, prefix string) {
	if v.opts.Settings == nil || blob == nil {
		return
	}
	problems, ok := v.checked[blob]
	if !ok {
		problems = v.opts.Settings.Validate(blob)
		v.checked[blob] = problems
	}
	for _, problem := range problems {
		v.errorf(Structural, "%s: %s", prefix, problem)
	}
}

func (v *validation) untagged() {
	list := v.md.Untagged
	if dups := duplicates(list); len(dups) > 0 {
		v.errorf(Structural, "Duplicate entries found in untagged list: %s", strings.Join(dups, ", "))
	} else if !isSortedUnique(list) {
		v.errorf(Structural, "Untagged images must be sorted alphabetically")
	}
	for _, name := range list {
		if !v.untaggedExists(name) {
			v.errorf(Referential, "Untagged image %s not found in base folder", name)
		}
	}
	if len(list) > 0 {
		v.warn("untagged", "Found %d untagged images: %s", len(list), strings.Join(sortedCopy(list), ", "))
	}
}

// untaggedExists accepts files in the base folder and, for images that are
// recorded but have lost their product, files in their content folder.
func (v *validation) untaggedExists(name string) bool {
	if _, err := os.Stat(filepath.Join(v.opts.BaseDir, name)); err == nil {
		return true
	}
	img := v.md.Images[name]
	if img == nil {
		return false
	}
	st, ok := v.md.Structure[img.ContentType]
	if !ok {
		return false
	}
	_, err := os.Stat(filepath.Join(resolveDir(v.opts.BaseDir, st.Path), name))
	return err == nil
}

func (v *validation) settings() {
	for _, ct := range v.md.ContentTypes {
		if _, ok := v.md.Settings[ct]; !ok {
			v.errorf(Structural, "Settings missing for content type %s", ct)
		}
	}
	for _, ct := range sortedKeys(v.md.Settings) {
		if !v.md.HasContentType(ct) {
			v.errorf(Consistency, "Settings defined for invalid content type: %s", ct)
			continue
		}
		table := v.md.Settings[ct]
		if table == nil {
			v.errorf(Structural, "Settings for %s must be an object", ct)
			continue
		}
		if !table.ContentDeclared() {
			v.errorf(Structural, "Settings for %s missing 'content' field", ct)
		}
		v.checkBlob(table.Content, ct+" content settings")

		declared := v.md.ProductNames(ct)
		covered := map[string]struct{}{}
		for _, g := range table.Groups() {
			if !g.WellFormed() {
				v.errorf(Structural, "Invalid product group format in %s: %s", ct, g.Key)
				continue
			}
			if len(g.Members) == 0 {
				v.errorf(Structural, "Empty product group in %s: %s", ct, g.Key)
				continue
			}
			if canonical := FormatGroupKey(g.Members); g.Key != canonical {
				v.warn("group_key_"+ct+"_"+g.Key, "Product group key in %s is not in canonical form: %s (expected %s)", ct, g.Key, canonical)
			}
			var invalid []string
			for _, member := range g.Members {
				covered[member] = struct{}{}
				if !v.md.IsValidProduct(ct, member) {
					invalid = append(invalid, member)
				}
			}
			if len(invalid) > 0 {
				sort.Strings(invalid)
				v.errorf(Referential, "Invalid products in %s settings: %s. Valid products: %s",
					ct, listOf(invalid), validProductList(declared))
			}
			v.checkBlob(g.Settings, ct+" "+g.Key+" settings")
		}
		if overlaps := table.Overlaps(); len(overlaps) > 0 {
			v.errorf(Structural, "Duplicate products in %s settings: %s", ct, listOf(overlaps))
		}
		var gaps []string
		for _, name := range declared {
			if _, ok := covered[name]; !ok {
				gaps = append(gaps, name)
			}
		}
		if len(gaps) > 0 {
			sort.Strings(gaps)
			v.warn("settings_gap_"+ct, "Products without a settings group in %s: %s", ct, listOf(gaps))
		}
	}
}

func listOf(values []string) string {
	return "[" + strings.Join(values, ", ") + "]"
}

func sortedCopy(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}

func sameSet(a, b []string) bool {
	as := map[string]struct{}{}
	for _, v := range a {
		as[v] = struct{}{}
	}
	bs := map[string]struct{}{}
	for _, v := range b {
		bs[v] = struct{}{}
	}
	if len(as) != len(bs) {
		return false
	}
	for v := range as {
		if _, ok := bs[v]; !ok {
			return false
		}
	}
	return true
}

// difference returns the sorted values of a absent from b.
func difference(a, b []string) []string {
	in := map[string]struct{}{}
	for _, v := range b {
		in[v] = struct{}{}
	}
	var out []string
	for _, v := range a {
		if _, ok := in[v]; !ok {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func duplicates(values []string) []string {
	count := map[string]int{}
	for _, v := range values {
		count[v]++
	}
	var out []string
	for v, n := range count {
		if n > 1 {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
