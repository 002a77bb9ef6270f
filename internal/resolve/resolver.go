package resolve

import (
	"errors"
	"fmt"
	"log/slog"

	"slidemill/internal/logging"
	"slidemill/internal/metadata"
	"slidemill/internal/settings"
)

// ErrSettingsUndefined is returned when the level an image is pinned to holds no settings.
var ErrSettingsUndefined = errors.New("settings undefined")

// Result is the outcome of a lookup at one level. Settings may be nil.
type Result struct {
	Level    metadata.Level
	Settings *settings.Blob
}

// Resolver reads settings from a metadata document. It never mutates it.
type Resolver struct {
	md       *metadata.Metadata
	defaults *settings.Blob
	logger   *slog.Logger
}

// New returns a resolver. defaults is the global default template.
func New(md *metadata.Metadata, defaults *settings.Blob, logger *slog.Logger) *Resolver {
	return &Resolver{
		md:       md,
		defaults: defaults,
		logger:   logging.NewComponentLogger(logger, "resolver"),
	}
}

// Lookup returns the settings stored at one level without any cascading.
// contentType is only used by the product level.
func (r *Resolver) Lookup(level metadata.Level, target, contentType string) (Result, error) {
	res := Result{Level: level}
	switch level {
	case metadata.LevelDefault:
		res.Settings = r.defaults
	case metadata.LevelContentType:
		if !r.md.HasContentType(target) {
			return res, fmt.Errorf("%w: %s", metadata.ErrInvalidContentType, target)
		}
		if table := r.md.Settings[target]; table != nil {
			res.Settings = table.Content
		}
	case metadata.LevelProduct:
		if !r.md.HasContentType(contentType) {
			return res, fmt.Errorf("%w: %q", metadata.ErrInvalidContentType, contentType)
		}
		blob, found := r.md.Settings[contentType].SettingsFor(target)
		if !found {
			r.logger.Debug("product has no settings group",
				logging.String(logging.FieldContentType, contentType),
				logging.String(logging.FieldProduct, target))
		}
		res.Settings = blob
	case metadata.LevelCustom:
		img, ok := r.md.Images[target]
		if !ok || img == nil {
			return res, fmt.Errorf("%w: %s", metadata.ErrImageNotFound, target)
		}
		res.Settings = img.Settings
	default:
		return res, fmt.Errorf("%w: %q", metadata.ErrInvalidLevel, level)
	}
	return res, nil
}

// ForImage resolves the settings of image name through its own settings_source.
func (r *Resolver) ForImage(name string) (*settings.Blob, error) {
	img, ok := r.md.Images[name]
	if !ok || img == nil {
		return nil, fmt.Errorf("%w: %s", metadata.ErrImageNotFound, name)
	}
	src, err := img.Source()
	if err != nil {
		return nil, fmt.Errorf("image %s: %w", name, err)
	}

	var res Result
	switch s := src.(type) {
	case metadata.DefaultSource:
		res, err = r.Lookup(metadata.LevelDefault, "", "")
	case metadata.CustomSource:
		res = Result{Level: metadata.LevelCustom, Settings: s.Settings}
	case metadata.ContentSource:
		res, err = r.Lookup(metadata.LevelContentType, img.ContentType, "")
	case metadata.ProductSource:
		product := img.ProductName()
		if product == "" {
			return nil, fmt.Errorf("%w: image %s uses product settings but has no product assigned", ErrSettingsUndefined, name)
		}
		res, err = r.Lookup(metadata.LevelProduct, product, img.ContentType)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve settings for %s: %w", name, err)
	}
	if res.Settings == nil {
		return nil, fmt.Errorf("%w: image %s has no settings at the %s level", ErrSettingsUndefined, name, src.Level())
	}
	r.logger.Debug("settings resolved",
		logging.String(logging.FieldImage, name),
		logging.String("level", string(src.Level())))
	return res.Settings, nil
}
