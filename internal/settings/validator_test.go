package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuiltinTemplateIsValid(t *testing.T) {
	v := NewValidator("")
	if problems := v.Validate(Builtin()); len(problems) != 0 {
		t.Fatalf("expected builtin template to validate, got %v", problems)
	}
}

func TestValidatorReportsProblems(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b *Blob)
		want   string
	}{
		{
			name:   "bad hex colour",
			mutate: func(b *Blob) { b.TextSettings[TextTypePlain].Colors[0]["text"] = "#fff" },
			want:   "invalid hex color for text: #fff",
		},
		{
			name: "wrong colour keys",
			mutate: func(b *Blob) {
				ts := b.TextSettings[TextTypePlain]
				ts.Colors[0] = Color{"text": "#FFFFFF", "background": "#000000"}
			},
			want: "each color must contain exactly: text, outline",
		},
		{
			name: "duplicate colours",
			mutate: func(b *Blob) {
				ts := b.TextSettings[TextTypePlain]
				ts.Colors[1] = Color{"text": "#FFFFFF", "outline": "#000000"}
			},
			want: "duplicate color combination found: text=#FFFFFF, outline=#000000",
		},
		{
			name: "vertical out of range",
			mutate: func(b *Blob) {
				ts := b.TextSettings[TextTypePlain]
				ts.Position.Vertical = []float64{0.7, 1.2}
				b.TextSettings[TextTypePlain] = ts
			},
			want: "text_settings.plain.position.vertical.1",
		},
		{
			name: "inverted range",
			mutate: func(b *Blob) {
				ts := b.TextSettings[TextTypePlain]
				ts.Position.Horizontal = []float64{0.6, 0.4}
				b.TextSettings[TextTypePlain] = ts
			},
			want: "min must be less than max",
		},
		{
			name: "margin sum",
			mutate: func(b *Blob) {
				ts := b.TextSettings[TextTypePlain]
				ts.Margins.Left = 0.6
				ts.Margins.Right = 0.5
				b.TextSettings[TextTypePlain] = ts
			},
			want: "sum of left and right margins must be less than 1",
		},
		{
			name: "position overlaps margin",
			mutate: func(b *Blob) {
				ts := b.TextSettings[TextTypePlain]
				ts.Margins.Bottom = 0.25
				b.TextSettings[TextTypePlain] = ts
			},
			want: "could overlap bottom margin 0.25",
		},
		{
			name: "style type mismatch",
			mutate: func(b *Blob) {
				ts := b.TextSettings[TextTypeHighlight]
				ts.StyleType = "outline_width"
				b.TextSettings[TextTypeHighlight] = ts
			},
			want: "text_settings.highlight.style_type: must be corner_radius",
		},
		{
			name:   "unknown default text type",
			mutate: func(b *Blob) { b.BaseSettings.DefaultTextType = "shadow" },
			want:   `invalid default_text_type: "shadow"`,
		},
		{
			name: "bad font path",
			mutate: func(b *Blob) {
				ts := b.TextSettings[TextTypePlain]
				ts.Font = "fonts/tiktok.ttf"
				b.TextSettings[TextTypePlain] = ts
			},
			want: "must look like assets.fonts.<name>.ttf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob := Builtin()
			tt.mutate(blob)
			problems := NewValidator("").Validate(blob)
			if !containsProblem(problems, tt.want) {
				t.Fatalf("expected problem containing %q, got %v", tt.want, problems)
			}
		})
	}
}

func TestValidatorChecksFontFiles(t *testing.T) {
	dir := t.TempDir()
	v := NewValidator(dir)
	problems := v.Validate(Builtin())
	if !containsProblem(problems, "font file does not exist: tiktokfont.ttf") {
		t.Fatalf("expected missing font problem, got %v", problems)
	}

	if err := os.WriteFile(filepath.Join(dir, "tiktokfont.ttf"), []byte("font"), 0o644); err != nil {
		t.Fatalf("write font: %v", err)
	}
	if problems := v.Validate(Builtin()); len(problems) != 0 {
		t.Fatalf("expected no problems once font exists, got %v", problems)
	}
}

func TestEqualAndClone(t *testing.T) {
	a := Builtin()
	b := a.Clone()
	if !Equal(a, b) {
		t.Fatal("expected clone to equal original")
	}
	b.TextSettings[TextTypePlain].Colors[0]["text"] = "#123456"
	if Equal(a, b) {
		t.Fatal("expected mutated clone to differ")
	}
	if a.TextSettings[TextTypePlain].Colors[0]["text"] != "#FFFFFF" {
		t.Fatal("clone shares colour maps with original")
	}
	if !Equal(nil, nil) || Equal(a, nil) {
		t.Fatal("unexpected nil equality semantics")
	}
}

func TestParseRejectsUnknownSections(t *testing.T) {
	if _, err := Parse([]byte(`{"base_settings":{"default_text_type":"plain"},"text_settings":{},"extra":1}`)); err == nil {
		t.Fatal("expected unknown section to be rejected")
	}
}

func TestLoadTemplate(t *testing.T) {
	blob, err := LoadTemplate("")
	if err != nil || !Equal(blob, Builtin()) {
		t.Fatalf("expected builtin template for empty path, got %v", err)
	}
	if _, err := LoadTemplate(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing template")
	}
}

func containsProblem(problems []string, want string) bool {
	for _, p := range problems {
		if strings.Contains(p, want) {
			return true
		}
	}
	return false
}
