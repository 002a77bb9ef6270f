package metadata

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"slidemill/internal/logging"
	"slidemill/internal/settings"
	"slidemill/internal/textutil"
)

// Editor applies mutations to a loaded document. Each successful mutation is
// persisted through the store as a whole-file rewrite; a failed mutation,
// including a failed save, leaves the in-memory document unchanged.
type Editor struct {
	md      *Metadata
	store   *Store
	checker SettingsChecker
	logger  *slog.Logger
}

// EditorOption customizes an Editor.
type EditorOption func(*Editor)

// WithSettingsChecker rejects settings blobs that fail checker.
func WithSettingsChecker(checker SettingsChecker) EditorOption {
	return func(e *Editor) { e.checker = checker }
}

// NewEditor wraps md. A nil store keeps mutations in memory only.
func NewEditor(md *Metadata, store *Store, logger *slog.Logger, opts ...EditorOption) *Editor {
	md.ensureSections()
	e := &Editor{md: md, store: store, logger: logging.NewComponentLogger(logger, "editor")}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Metadata returns the edited document.
func (e *Editor) Metadata() *Metadata { return e.md }

func (e *Editor) mutate(fn func() error) error {
	snapshot, err := e.md.Clone()
	if err != nil {
		return err
	}
	if err := fn(); err != nil {
		*e.md = *snapshot
		return err
	}
	if err := e.persist(); err != nil {
		*e.md = *snapshot
		return err
	}
	return nil
}

func (e *Editor) persist() error {
	if e.store == nil {
		return nil
	}
	return e.store.Save(e.md)
}

func (e *Editor) probe() DimensionProbe {
	if e.store != nil && e.store.probe != nil {
		return e.store.probe
	}
	return ProbeDimensions
}

func (e *Editor) baseDir() string {
	if e.store == nil {
		return ""
	}
	return e.store.baseDir
}

func (e *Editor) checkBlob(blob *settings.Blob) error {
	if e.checker == nil || blob == nil {
		return nil
	}
	if problems := e.checker.Validate(blob); len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(problems, "; "))
	}
	return nil
}

// ImageChange is one field update applied by EditImage.
type ImageChange func(*imageEdit)

type imageEdit struct {
	setProduct  bool
	product     *string
	setSource   bool
	source      string
	setSettings bool
	settings    *settings.Blob
}

// WithProduct assigns a declared product or the wildcard.
func WithProduct(name string) ImageChange {
	return func(c *imageEdit) {
		c.setProduct = true
		c.product = &name
	}
}

// WithoutProduct clears the product assignment.
func WithoutProduct() ImageChange {
	return func(c *imageEdit) {
		c.setProduct = true
		c.product = nil
	}
}

// WithSettingsSource pins the image to a settings level. Non-custom levels
// clear the image's own settings.
func WithSettingsSource(source string) ImageChange {
	return func(c *imageEdit) {
		c.setSource = true
		c.source = source
	}
}

// WithSettings stores custom settings on the image.
func WithSettings(blob *settings.Blob) ImageChange {
	return func(c *imageEdit) {
		c.setSettings = true
		c.settings = blob
	}
}

// EditImage applies a partial update to one image record. A product change
// moves the current counts from the old product to the new one and keeps the
// image in the untagged list exactly while it has no product. Dimensions and
// content type cannot be edited.
func (e *Editor) EditImage(name string, changes ...ImageChange) error {
	img, ok := e.md.Images[name]
	if !ok || img == nil {
		return fmt.Errorf("%w: %s", ErrImageNotFound, name)
	}
	var edit imageEdit
	for _, change := range changes {
		change(&edit)
	}
	ct := img.ContentType
	if edit.setProduct && edit.product != nil && !e.md.IsValidProduct(ct, *edit.product) {
		return fmt.Errorf("%w: %q for content type %s (valid: %s)", ErrInvalidProduct, *edit.product, ct, validProductList(e.md.ProductNames(ct)))
	}
	source := img.SettingsSource
	if edit.setSource {
		if !IsValidSource(edit.source) {
			return fmt.Errorf("%w: unknown settings_source %q", ErrInvalidSettings, edit.source)
		}
		source = edit.source
	}
	blob := img.Settings
	if edit.setSettings {
		blob = edit.settings
	} else if edit.setSource && source != SourceCustom {
		blob = nil
	}
	if source == SourceCustom && blob == nil {
		return fmt.Errorf("%w: custom settings_source requires settings", ErrInvalidSettings)
	}
	if source != SourceCustom && blob != nil {
		return fmt.Errorf("%w: settings may only be stored with the custom settings_source", ErrInvalidSettings)
	}
	if edit.setSettings || edit.setSource {
		if err := e.checkBlob(blob); err != nil {
			return err
		}
	}

	err := e.mutate(func() error {
		img := e.md.Images[name]
		if edit.setProduct {
			if old := img.ProductName(); old != "" {
				e.md.adjustCount(ct, old, -1)
			}
			if edit.product != nil {
				e.md.adjustCount(ct, *edit.product, 1)
				p := *edit.product
				img.Product = &p
				e.md.Untagged = removeValue(e.md.Untagged, name)
			} else {
				img.Product = nil
				e.md.Untagged = insertSorted(e.md.Untagged, name)
			}
		}
		img.SettingsSource = source
		img.Settings = blob.Clone()
		return nil
	})
	if err != nil {
		return err
	}
	e.logger.Info("image updated",
		logging.String(logging.FieldEventType, "image_updated"),
		logging.String(logging.FieldImage, name),
		logging.String(logging.FieldContentType, ct),
		logging.String(logging.FieldProduct, e.md.Images[name].ProductName()),
		logging.String("settings_source", source))
	return nil
}

// UpdateImageProduct assigns a declared product. The content type is taken
// from the image record; contentType is only the caller's belief and is
// ignored when stale.
func (e *Editor) UpdateImageProduct(name, contentType, product string) error {
	img, ok := e.md.Images[name]
	if !ok || img == nil {
		return fmt.Errorf("%w: %s", ErrImageNotFound, name)
	}
	actual := img.ContentType
	if contentType != "" && contentType != actual {
		e.logger.Debug("ignoring stale content type for product update",
			logging.String(logging.FieldImage, name),
			logging.String("given", contentType),
			logging.String(logging.FieldContentType, actual))
	}
	if e.md.productIndex(actual, product) < 0 {
		return fmt.Errorf("%w: %q for content type %s (valid: %s)", ErrInvalidProduct, product, actual, strings.Join(e.md.ProductNames(actual), ", "))
	}
	err := e.mutate(func() error {
		img := e.md.Images[name]
		if old := img.ProductName(); old != "" {
			e.md.adjustCount(actual, old, -1)
		}
		e.md.adjustCount(actual, product, 1)
		p := product
		img.Product = &p
		e.md.Untagged = removeValue(e.md.Untagged, name)
		return nil
	})
	if err != nil {
		return err
	}
	e.logger.Info("image product updated",
		logging.String(logging.FieldEventType, "image_product_updated"),
		logging.String(logging.FieldImage, name),
		logging.String(logging.FieldContentType, actual),
		logging.String(logging.FieldProduct, product))
	return nil
}

// MoveUntaggedImage moves an untagged file from the base folder into a
// content-type folder and records it without a product on the default level.
// Every precondition is checked before the file is renamed; a failure after
// the rename moves the file back.
func (e *Editor) MoveUntaggedImage(name, contentType string) error {
	if !containsString(e.md.Untagged, name) {
		return fmt.Errorf("%w: %s", ErrNotUntagged, name)
	}
	if !e.md.HasContentType(contentType) {
		return fmt.Errorf("%w: %s", ErrInvalidContentType, contentType)
	}
	st, ok := e.md.Structure[contentType]
	if !ok {
		return fmt.Errorf("%w: no structure entry for %s", ErrInvalidContentType, contentType)
	}
	if existing, ok := e.md.Images[name]; ok && existing != nil {
		return fmt.Errorf("image %s is already recorded under %s", name, existing.ContentType)
	}
	if textutil.ContainsFold(e.md.ImageNames(), name, false) {
		return fmt.Errorf("image %s collides with an existing image name that differs only by case", name)
	}
	src := filepath.Join(e.baseDir(), name)
	if info, err := os.Stat(src); err != nil || !info.Mode().IsRegular() {
		return fmt.Errorf("source file not found: %s", src)
	}
	dir := resolveDir(e.baseDir(), st.Path)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("content folder not found: %s", dir)
	}
	dest := filepath.Join(dir, name)
	if _, err := os.Lstat(dest); err == nil {
		return fmt.Errorf("destination file already exists: %s", dest)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat destination: %w", err)
	}

	if err := os.Rename(src, dest); err != nil {
		return fmt.Errorf("move %s: %w", name, err)
	}
	rollback := func(cause error) error {
		if err := os.Rename(dest, src); err != nil {
			logging.ErrorWithContext(e.logger, "failed to restore moved image", "image_move_rollback_failed",
				logging.String(logging.FieldImage, name),
				logging.String("path", dest),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "move the file back to the base folder by hand"))
		}
		return cause
	}
	dims, err := e.probe()(dest)
	if err != nil {
		return rollback(fmt.Errorf("probe %s: %w", name, err))
	}

	err = e.mutate(func() error {
		e.md.Images[name] = &Image{ContentType: contentType, Dimensions: dims, SettingsSource: SourceDefault}
		st := e.md.Structure[contentType]
		st.Images = insertSorted(append([]string(nil), st.Images...), name)
		e.md.Structure[contentType] = st
		e.md.Untagged = removeValue(e.md.Untagged, name)
		return nil
	})
	if err != nil {
		return rollback(err)
	}
	e.logger.Info("untagged image moved",
		logging.String(logging.FieldEventType, "image_moved"),
		logging.String(logging.FieldImage, name),
		logging.String(logging.FieldContentType, contentType),
		logging.Int("width", dims.Width),
		logging.Int("height", dims.Height))
	return nil
}

// ImageFilter narrows Images. Empty fields match everything.
type ImageFilter struct {
	ContentType string
	Product     string
	// Unassigned keeps only images without a product.
	Unassigned bool
}

// Images returns the sorted names of the images matching filter.
func (e *Editor) Images(filter ImageFilter) []string {
	var out []string
	for _, name := range e.md.ImageNames() {
		img := e.md.Images[name]
		if img == nil {
			continue
		}
		if filter.ContentType != "" && img.ContentType != filter.ContentType {
			continue
		}
		if filter.Product != "" && img.ProductName() != filter.Product {
			continue
		}
		if filter.Unassigned && img.Product != nil {
			continue
		}
		out = append(out, name)
	}
	return out
}

// Image returns the record for name.
func (e *Editor) Image(name string) (*Image, bool) {
	img, ok := e.md.Images[name]
	return img, ok && img != nil
}

// Untagged returns a copy of the untagged list.
func (e *Editor) Untagged() []string {
	return append([]string(nil), e.md.Untagged...)
}

// ContentTypes returns the content types containing filter.
func (e *Editor) ContentTypes(filter string) []string {
	var out []string
	for _, ct := range e.md.ContentTypes {
		if filter == "" || strings.Contains(ct, filter) {
			out = append(out, ct)
		}
	}
	return out
}

// Products returns a copy of the products declared for contentType.
func (e *Editor) Products(contentType string) ([]Product, error) {
	if !e.md.HasContentType(contentType) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidContentType, contentType)
	}
	return append([]Product(nil), e.md.Products[contentType]...), nil
}
