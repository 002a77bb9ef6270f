package metadata

import (
	"fmt"

	"slidemill/internal/logging"
	"slidemill/internal/settings"
)

// EditSettings stores blob at one level of the settings hierarchy.
//
// The content_type level replaces the content blob of target. The product
// level moves target, a product of contentType, into the group whose settings
// equal blob. The custom level pins image target to its own blob. Default
// settings are read-only.
func (e *Editor) EditSettings(level Level, target string, blob *settings.Blob, contentType string) error {
	var apply func() error
	switch level {
	case LevelDefault:
		return fmt.Errorf("%w: default settings are read-only", ErrInvalidLevel)
	case LevelContentType:
		if contentType != "" {
			return fmt.Errorf("%w: a content type argument is only accepted at the product level", ErrInvalidLevel)
		}
		if !e.md.HasContentType(target) {
			return fmt.Errorf("%w: %s", ErrInvalidContentType, target)
		}
		apply = func() error {
			e.table(target).Content = blob.Clone()
			e.md.Settings[target].contentDeclared = true
			return nil
		}
	case LevelProduct:
		if contentType == "" {
			return fmt.Errorf("%w: the product level requires a content type", ErrInvalidContentType)
		}
		if !e.md.HasContentType(contentType) {
			return fmt.Errorf("%w: %s", ErrInvalidContentType, contentType)
		}
		if target == Wildcard || !e.md.IsValidProduct(contentType, target) {
			return fmt.Errorf("%w: %q for content type %s", ErrInvalidProduct, target, contentType)
		}
		apply = func() error {
			e.table(contentType).SetProductSettings(target, blob)
			return nil
		}
	case LevelCustom:
		if contentType != "" {
			return fmt.Errorf("%w: a content type argument is only accepted at the product level", ErrInvalidLevel)
		}
		if _, ok := e.Image(target); !ok {
			return fmt.Errorf("%w: %s", ErrImageNotFound, target)
		}
		if blob == nil {
			return fmt.Errorf("%w: custom settings cannot be null", ErrInvalidSettings)
		}
		apply = func() error {
			e.md.Images[target].SetSource(CustomSource{Settings: blob.Clone()})
			return nil
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLevel, level)
	}
	if err := e.checkBlob(blob); err != nil {
		return err
	}
	if err := e.mutate(apply); err != nil {
		return err
	}
	e.logger.Info("settings updated",
		logging.String(logging.FieldEventType, "settings_updated"),
		logging.String("level", string(level)),
		logging.String("target", target),
		logging.String(logging.FieldContentType, contentType),
		logging.Bool("cleared", blob == nil))
	return nil
}

// SetPreventDuplicates toggles the duplicate guard of a declared product.
func (e *Editor) SetPreventDuplicates(contentType, product string, prevent bool) error {
	if !e.md.HasContentType(contentType) {
		return fmt.Errorf("%w: %s", ErrInvalidContentType, contentType)
	}
	idx := e.md.productIndex(contentType, product)
	if idx < 0 {
		return fmt.Errorf("%w: %q for content type %s", ErrInvalidProduct, product, contentType)
	}
	if e.md.Products[contentType][idx].PreventDuplicates == prevent {
		return nil
	}
	err := e.mutate(func() error {
		e.md.Products[contentType][idx].PreventDuplicates = prevent
		return nil
	})
	if err != nil {
		return err
	}
	e.logger.Info("duplicate guard updated",
		logging.String(logging.FieldContentType, contentType),
		logging.String(logging.FieldProduct, product),
		logging.Bool("prevent_duplicates", prevent))
	return nil
}

func (e *Editor) table(contentType string) *SettingsTable {
	t := e.md.Settings[contentType]
	if t == nil {
		t = NewSettingsTable(e.md.ProductNames(contentType))
		e.md.Settings[contentType] = t
	}
	return t
}
