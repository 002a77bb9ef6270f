package render_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"slidemill/internal/logging"
	"slidemill/internal/render"
	"slidemill/internal/settings"
	"slidemill/internal/testsupport"
)

func request(t *testing.T) render.Request {
	t.Helper()
	src := filepath.Join(t.TempDir(), "Photo.PNG")
	testsupport.WriteImage(t, src, 6, 4)
	return render.Request{
		ImagePath:   src,
		Caption:     "Sleep better",
		TextType:    settings.TextTypeHighlight,
		ColorIndex:  1,
		Settings:    settings.Builtin(),
		ContentType: "hook",
		Product:     "magnesium",
		OutputDir:   filepath.Join(t.TempDir(), "variation1", "post1"),
		Name:        "1",
	}
}

func TestCopyRendererWritesImageAndSidecar(t *testing.T) {
	req := request(t)
	res, err := render.NewCopyRenderer(logging.NewNop()).Render(context.Background(), req)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Path != filepath.Join(req.OutputDir, "1.png") {
		t.Fatalf("path = %s", res.Path)
	}
	src, _ := os.ReadFile(req.ImagePath)
	dst, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(src, dst) || res.Bytes != int64(len(src)) {
		t.Fatalf("copied %d bytes, want %d", res.Bytes, len(src))
	}

	sc, err := render.ReadSidecar(res.Sidecar)
	if err != nil {
		t.Fatalf("ReadSidecar: %v", err)
	}
	if sc.Image != "Photo.PNG" || sc.Caption != "Sleep better" || sc.Product != "magnesium" || sc.ContentType != "hook" {
		t.Fatalf("unexpected sidecar: %+v", sc)
	}
	if sc.Color["background"] != "#FF0000" || sc.ColorIndex != 1 || sc.TextType != settings.TextTypeHighlight {
		t.Fatalf("unexpected colour in sidecar: %+v", sc)
	}
	if !settings.Equal(sc.Settings, settings.Builtin()) {
		t.Fatal("sidecar settings differ from request")
	}
}

func TestCopyRendererRejectsBadRequests(t *testing.T) {
	r := render.NewCopyRenderer(logging.NewNop())
	cases := []struct {
		name   string
		mutate func(*render.Request)
		want   string
	}{
		{"no settings", func(req *render.Request) { req.Settings = nil }, "no settings"},
		{"unknown text type", func(req *render.Request) { req.TextType = "shout" }, `text type "shout" not defined`},
		{"colour out of range", func(req *render.Request) { req.ColorIndex = 2 }, "colour index 2 out of range"},
		{"missing source", func(req *render.Request) { req.ImagePath += ".gone" }, "copy"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := request(t)
			tc.mutate(&req)
			_, err := r.Render(context.Background(), req)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want substring %q", err, tc.want)
			}
		})
	}
}

func TestCopyRendererHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := render.NewCopyRenderer(logging.NewNop()).Render(ctx, request(t)); err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
