package metadata

import (
	"fmt"

	"slidemill/internal/settings"
)

// Source is the settings level an image is pinned to. It is one of
// DefaultSource, CustomSource, ContentSource or ProductSource.
type Source interface {
	Level() Level
}

// DefaultSource pins an image to the global default template.
type DefaultSource struct{}

// CustomSource carries the image's own settings.
type CustomSource struct {
	Settings *settings.Blob
}

// ContentSource pins an image to its content type's "content" blob.
type ContentSource struct{}

// ProductSource pins an image to the group owning its product.
type ProductSource struct{}

func (DefaultSource) Level() Level { return LevelDefault }
func (CustomSource) Level() Level  { return LevelCustom }
func (ContentSource) Level() Level { return LevelContentType }
func (ProductSource) Level() Level { return LevelProduct }

// Level names one layer of the settings hierarchy.
type Level string

const (
	LevelDefault     Level = "default"
	LevelContentType Level = "content_type"
	LevelProduct     Level = "product"
	LevelCustom      Level = "custom"
)

// ParseLevel accepts the level names used on the command line.
func ParseLevel(value string) (Level, error) {
	switch Level(value) {
	case LevelDefault, LevelContentType, LevelProduct, LevelCustom:
		return Level(value), nil
	case SourceContent:
		return LevelContentType, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLevel, value)
}

// Source converts the persisted settings_source tag into its variant.
func (img *Image) Source() (Source, error) {
	switch img.SettingsSource {
	case SourceDefault:
		return DefaultSource{}, nil
	case SourceCustom:
		return CustomSource{Settings: img.Settings}, nil
	case SourceContent:
		return ContentSource{}, nil
	case SourceProduct:
		return ProductSource{}, nil
	}
	return nil, fmt.Errorf("invalid settings_source %q", img.SettingsSource)
}

// SetSource stores a variant back into the persisted tag and blob.
func (img *Image) SetSource(src Source) {
	switch s := src.(type) {
	case CustomSource:
		img.SettingsSource = SourceCustom
		img.Settings = s.Settings
	case ContentSource:
		img.SettingsSource = SourceContent
		img.Settings = nil
	case ProductSource:
		img.SettingsSource = SourceProduct
		img.Settings = nil
	default:
		img.SettingsSource = SourceDefault
		img.Settings = nil
	}
}

// IsValidSource reports whether value is a known settings_source tag.
func IsValidSource(value string) bool {
	switch value {
	case SourceDefault, SourceCustom, SourceContent, SourceProduct:
		return true
	}
	return false
}
