package render

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"slidemill/internal/fileutil"
	"slidemill/internal/logging"
	"slidemill/internal/settings"
)

// Request describes one slot to render.
type Request struct {
	ImagePath   string
	Caption     string
	TextType    string
	ColorIndex  int
	Settings    *settings.Blob
	ContentType string
	Product     string
	// OutputDir and Name place the result; the renderer picks the extension.
	OutputDir string
	Name      string
}

// Result describes the files written for a request.
type Result struct {
	Path    string
	Sidecar string
	Bytes   int64
}

// Renderer turns a request into an output image.
type Renderer interface {
	Render(ctx context.Context, req Request) (Result, error)
}

// Sidecar is the JSON document written next to each output image.
type Sidecar struct {
	Image       string         `json:"image"`
	ContentType string         `json:"content_type"`
	Product     string         `json:"product"`
	Caption     string         `json:"caption"`
	TextType    string         `json:"text_type"`
	ColorIndex  int            `json:"color_index"`
	Color       settings.Color `json:"color,omitempty"`
	Settings    *settings.Blob `json:"settings"`
}

// CopyRenderer copies the source image verbatim and records the render inputs.
type CopyRenderer struct {
	logger *slog.Logger
}

// NewCopyRenderer returns a CopyRenderer.
func NewCopyRenderer(logger *slog.Logger) *CopyRenderer {
	return &CopyRenderer{logger: logging.NewComponentLogger(logger, "renderer")}
}

// Render implements Renderer.
func (r *CopyRenderer) Render(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if req.Settings == nil {
		return Result{}, fmt.Errorf("render %s: no settings", req.ImagePath)
	}
	ts, ok := req.Settings.TextSettings[req.TextType]
	if !ok {
		return Result{}, fmt.Errorf("render %s: text type %q not defined", req.ImagePath, req.TextType)
	}
	if req.ColorIndex < 0 || req.ColorIndex >= len(ts.Colors) {
		return Result{}, fmt.Errorf("render %s: colour index %d out of range (%d colours)", req.ImagePath, req.ColorIndex, len(ts.Colors))
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output directory: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(req.ImagePath))
	dst := filepath.Join(req.OutputDir, req.Name+ext)
	n, err := fileutil.CopyFileVerified(req.ImagePath, dst)
	if err != nil {
		return Result{}, fmt.Errorf("copy %s: %w", req.ImagePath, err)
	}

	sidecar := Sidecar{
		Image:       filepath.Base(req.ImagePath),
		ContentType: req.ContentType,
		Product:     req.Product,
		Caption:     req.Caption,
		TextType:    req.TextType,
		ColorIndex:  req.ColorIndex,
		Color:       ts.Colors[req.ColorIndex],
		Settings:    req.Settings,
	}
	data, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("encode sidecar: %w", err)
	}
	sidecarPath := filepath.Join(req.OutputDir, req.Name+".json")
	if err := fileutil.WriteFileAtomic(sidecarPath, append(data, '\n'), 0o644); err != nil {
		return Result{}, fmt.Errorf("write sidecar: %w", err)
	}
	r.logger.Debug("slot rendered",
		logging.String("path", dst),
		logging.Int64("bytes", n))
	return Result{Path: dst, Sidecar: sidecarPath, Bytes: n}, nil
}

// ReadSidecar decodes the sidecar at path.
func ReadSidecar(path string) (Sidecar, error) {
	var sc Sidecar
	data, err := os.ReadFile(path)
	if err != nil {
		return sc, err
	}
	if err := json.Unmarshal(data, &sc); err != nil {
		return sc, fmt.Errorf("decode sidecar %s: %w", path, err)
	}
	return sc, nil
}
