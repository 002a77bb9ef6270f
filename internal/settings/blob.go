package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Text types understood by the renderer.
const (
	TextTypePlain     = "plain"
	TextTypeHighlight = "highlight"
)

// Blob is one complete rendering settings document.
type Blob struct {
	BaseSettings BaseSettings            `json:"base_settings"`
	TextSettings map[string]TextSettings `json:"text_settings"`
}

// BaseSettings selects the text type used when none is requested explicitly.
type BaseSettings struct {
	DefaultTextType string `json:"default_text_type"`
}

// TextSettings holds the layout and styling for one text type.
type TextSettings struct {
	FontSize   int      `json:"font_size"`
	Font       string   `json:"font"`
	StyleType  string   `json:"style_type"`
	StyleValue int      `json:"style_value"`
	Colors     []Color  `json:"colors"`
	Position   Position `json:"position"`
	Margins    Margins  `json:"margins"`
}

// Color maps a colour role (text, outline, background) to a #RRGGBB value.
type Color map[string]string

// Position holds relative [lo, hi] ranges plus random jitter.
type Position struct {
	Vertical         []float64 `json:"vertical"`
	Horizontal       []float64 `json:"horizontal"`
	VerticalJitter   float64   `json:"vertical_jitter"`
	HorizontalJitter float64   `json:"horizontal_jitter"`
}

// Margins are relative to the image size.
type Margins struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

// DefaultText returns the settings for the blob's default text type.
func (b *Blob) DefaultText() (string, TextSettings, error) {
	if b == nil {
		return "", TextSettings{}, errors.New("settings: nil blob")
	}
	textType := b.BaseSettings.DefaultTextType
	ts, ok := b.TextSettings[textType]
	if !ok {
		return "", TextSettings{}, fmt.Errorf("settings: default text type %q not defined", textType)
	}
	return textType, ts, nil
}

// Clone returns a deep copy of the blob.
func (b *Blob) Clone() *Blob {
	if b == nil {
		return nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil
	}
	var out Blob
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return &out
}

// Equal reports whether two blobs serialize identically. Two nil blobs are equal.
func Equal(a, b *Blob) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	left, errA := json.Marshal(a)
	right, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(left, right)
}

// Parse decodes a blob, rejecting unknown sections and fields.
func Parse(data []byte) (*Blob, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var blob Blob
	if err := dec.Decode(&blob); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	return &blob, nil
}

// LoadTemplate reads the default template from path. An empty path yields the
// built-in template.
func LoadTemplate(path string) (*Blob, error) {
	if path == "" {
		return Builtin(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read default template: %w", err)
	}
	blob, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("default template %s: %w", path, err)
	}
	return blob, nil
}

// Builtin returns the template shipped with slidemill.
func Builtin() *Blob {
	position := func(lo float64) Position {
		return Position{
			Vertical:         []float64{lo, 0.8},
			Horizontal:       []float64{0.45, 0.55},
			VerticalJitter:   0.01,
			HorizontalJitter: 0.02,
		}
	}
	margins := Margins{Top: 0.05, Bottom: 0.05, Left: 0.05, Right: 0.05}
	return &Blob{
		BaseSettings: BaseSettings{DefaultTextType: TextTypePlain},
		TextSettings: map[string]TextSettings{
			TextTypePlain: {
				FontSize:   70,
				Font:       "assets.fonts.tiktokfont.ttf",
				StyleType:  "outline_width",
				StyleValue: 2,
				Colors: []Color{
					{"text": "#FFFFFF", "outline": "#000000"},
					{"text": "#000000", "outline": "#FFFFFF"},
				},
				Position: position(0.7),
				Margins:  margins,
			},
			TextTypeHighlight: {
				FontSize:   70,
				Font:       "assets.fonts.tiktokfont.ttf",
				StyleType:  "corner_radius",
				StyleValue: 20,
				Colors: []Color{
					{"text": "#000000", "background": "#FFFFFF"},
					{"text": "#FFFFFF", "background": "#FF0000"},
				},
				Position: position(0.6),
				Margins:  margins,
			},
		},
	}
}
