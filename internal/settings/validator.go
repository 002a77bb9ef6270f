package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type textTypeRules struct {
	styleType string
	colorKeys []string
}

var textTypes = map[string]textTypeRules{
	TextTypePlain:     {styleType: "outline_width", colorKeys: []string{"text", "outline"}},
	TextTypeHighlight: {styleType: "corner_radius", colorKeys: []string{"text", "background"}},
}

var (
	fontPattern = regexp.MustCompile(`^assets\.fonts\.[^.]+\.ttf$`)
	hexPattern  = regexp.MustCompile(`^#[0-9A-F]{6}$`)
)

// Validator checks a settings blob for structural and range errors. It
// returns every problem it finds as a human-readable string.
type Validator struct {
	// FontsDir, when set, is searched for the font file named by each text type.
	FontsDir string
}

// NewValidator returns a validator that checks font files under fontsDir.
func NewValidator(fontsDir string) *Validator {
	return &Validator{FontsDir: strings.TrimSpace(fontsDir)}
}

// Validate returns the list of problems found in blob; an empty list means the blob is valid.
func (v *Validator) Validate(blob *Blob) []string {
	if blob == nil {
		return []string{"settings are null"}
	}
	var problems []string
	if len(blob.TextSettings) == 0 {
		return []string{"no text types defined"}
	}

	base := blob.BaseSettings.DefaultTextType
	if _, ok := textTypes[base]; !ok {
		problems = append(problems, fmt.Sprintf("invalid default_text_type: %q", base))
	} else if _, ok := blob.TextSettings[base]; !ok {
		problems = append(problems, fmt.Sprintf("default text type %q not found in text_settings", base))
	}

	names := make([]string, 0, len(blob.TextSettings))
	for name := range blob.TextSettings {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rules, ok := textTypes[name]
		if !ok {
			problems = append(problems, fmt.Sprintf("invalid text type: %s", name))
			continue
		}
		ts := blob.TextSettings[name]
		problems = append(problems, v.validateText(name, rules, ts)...)
	}
	return problems
}

func (v *Validator) validateText(name string, rules textTypeRules, ts TextSettings) []string {
	var problems []string
	err := validation.ValidateStruct(&ts,
		validation.Field(&ts.FontSize, validation.Required, validation.Min(1)),
		validation.Field(&ts.Font, validation.Required, validation.Match(fontPattern).Error("must look like assets.fonts.<name>.ttf"), validation.By(v.fontExists)),
		validation.Field(&ts.StyleType, validation.Required, validation.In(rules.styleType).Error("must be "+rules.styleType)),
		validation.Field(&ts.StyleValue, validation.Required, validation.Min(1)),
		validation.Field(&ts.Colors, validation.Required, validation.Each(validation.By(colorRule(rules.colorKeys)))),
	)
	flatten("text_settings."+name, err, &problems)

	pos := ts.Position
	err = validation.ValidateStruct(&pos,
		validation.Field(&pos.Vertical, validation.Required, validation.Length(2, 2), validation.Each(validation.Min(0.0), validation.Max(1.0)), validation.By(ascending)),
		validation.Field(&pos.Horizontal, validation.Required, validation.Length(2, 2), validation.Each(validation.Min(0.0), validation.Max(1.0)), validation.By(ascending)),
		validation.Field(&pos.VerticalJitter, validation.Min(0.0), validation.Max(0.5)),
		validation.Field(&pos.HorizontalJitter, validation.Min(0.0), validation.Max(0.5)),
	)
	flatten("text_settings."+name+".position", err, &problems)

	m := ts.Margins
	err = validation.ValidateStruct(&m,
		validation.Field(&m.Top, validation.Min(0.0), validation.Max(1.0).Exclusive()),
		validation.Field(&m.Bottom, validation.Min(0.0), validation.Max(1.0).Exclusive()),
		validation.Field(&m.Left, validation.Min(0.0), validation.Max(1.0).Exclusive()),
		validation.Field(&m.Right, validation.Min(0.0), validation.Max(1.0).Exclusive()),
	)
	flatten("text_settings."+name+".margins", err, &problems)
	if m.Top+m.Bottom >= 1 {
		problems = append(problems, fmt.Sprintf("text_settings.%s.margins: sum of top and bottom margins must be less than 1", name))
	}
	if m.Left+m.Right >= 1 {
		problems = append(problems, fmt.Sprintf("text_settings.%s.margins: sum of left and right margins must be less than 1", name))
	}

	if len(problems) == 0 {
		problems = append(problems, overlapProblems(name, pos, m)...)
	}
	colorDupes := duplicateColors(rules.colorKeys, ts.Colors)
	for _, dup := range colorDupes {
		problems = append(problems, fmt.Sprintf("text_settings.%s.colors: duplicate color combination found: %s", name, dup))
	}
	return problems
}

func (v *Validator) fontExists(value any) error {
	font, _ := value.(string)
	if v == nil || v.FontsDir == "" || !fontPattern.MatchString(font) {
		return nil
	}
	parts := strings.Split(font, ".")
	file := parts[2] + "." + parts[3]
	if _, err := os.Stat(filepath.Join(v.FontsDir, file)); err != nil {
		return validation.NewError("font_missing", "font file does not exist: "+file)
	}
	return nil
}

func colorRule(keys []string) func(any) error {
	return func(value any) error {
		color, _ := value.(Color)
		if len(color) != len(keys) {
			return validation.NewError("color_keys", "each color must contain exactly: "+strings.Join(keys, ", "))
		}
		for _, key := range keys {
			hex, ok := color[key]
			if !ok {
				return validation.NewError("color_keys", "each color must contain exactly: "+strings.Join(keys, ", "))
			}
			if !hexPattern.MatchString(hex) {
				return validation.NewError("color_hex", fmt.Sprintf("invalid hex color for %s: %s", key, hex))
			}
		}
		return nil
	}
}

func ascending(value any) error {
	pair, _ := value.([]float64)
	if len(pair) == 2 && pair[0] >= pair[1] {
		return validation.NewError("range_order", "min must be less than max")
	}
	return nil
}

func duplicateColors(keys []string, colors []Color) []string {
	seen := make(map[string]struct{}, len(colors))
	var dupes []string
	for _, color := range colors {
		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			parts = append(parts, key+"="+color[key])
		}
		combo := strings.Join(parts, ", ")
		if _, ok := seen[combo]; ok {
			dupes = append(dupes, combo)
			continue
		}
		seen[combo] = struct{}{}
	}
	return dupes
}

func overlapProblems(name string, pos Position, m Margins) []string {
	var problems []string
	vMin, vMax := pos.Vertical[0], pos.Vertical[1]
	hMin, hMax := pos.Horizontal[0], pos.Horizontal[1]
	prefix := "text_settings." + name + ".position"
	if vMin-pos.VerticalJitter <= m.Top {
		problems = append(problems, fmt.Sprintf("%s: vertical position %g with jitter %g could overlap top margin %g", prefix, vMin, pos.VerticalJitter, m.Top))
	}
	if vMax+pos.VerticalJitter >= 1-m.Bottom {
		problems = append(problems, fmt.Sprintf("%s: vertical position %g with jitter %g could overlap bottom margin %g", prefix, vMax, pos.VerticalJitter, m.Bottom))
	}
	if hMin-pos.HorizontalJitter <= m.Left {
		problems = append(problems, fmt.Sprintf("%s: horizontal position %g with jitter %g could overlap left margin %g", prefix, hMin, pos.HorizontalJitter, m.Left))
	}
	if hMax+pos.HorizontalJitter >= 1-m.Right {
		problems = append(problems, fmt.Sprintf("%s: horizontal position %g with jitter %g could overlap right margin %g", prefix, hMax, pos.HorizontalJitter, m.Right))
	}
	return problems
}

// flatten expands nested validation.Errors into "path: message" strings in key order.
func flatten(prefix string, err error, out *[]string) {
	if err == nil {
		return
	}
	var errs validation.Errors
	if errors.As(err, &errs) {
		keys := make([]string, 0, len(errs))
		for key := range errs {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			flatten(prefix+"."+key, errs[key], out)
		}
		return
	}
	*out = append(*out, prefix+": "+err.Error())
}
