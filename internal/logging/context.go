package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType names what happened in machine-friendly form.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to do next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	FieldContentType = "content_type"
	FieldProduct     = "product"
	FieldImage       = "image"
	// FieldRunID identifies one generation run.
	FieldRunID     = "run_id"
	FieldVariation = "variation"
	FieldPost      = "post"
)

type runKey struct{}

type runScope struct {
	runID     string
	variation int
	post      int
}

// WithRun records the generation run identifier on ctx.
func WithRun(ctx context.Context, runID string) context.Context {
	scope := scopeFrom(ctx)
	scope.runID = runID
	return context.WithValue(ctx, runKey{}, scope)
}

// WithPost records the 1-based variation and post numbers on ctx.
func WithPost(ctx context.Context, variation, post int) context.Context {
	scope := scopeFrom(ctx)
	scope.variation = variation
	scope.post = post
	return context.WithValue(ctx, runKey{}, scope)
}

func scopeFrom(ctx context.Context) runScope {
	if ctx == nil {
		return runScope{}
	}
	scope, _ := ctx.Value(runKey{}).(runScope)
	return scope
}

// ContextFields extracts standardized slog attributes from ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	scope := scopeFrom(ctx)
	fields := make([]slog.Attr, 0, 3)
	if scope.runID != "" {
		fields = append(fields, slog.String(FieldRunID, scope.runID))
	}
	if scope.variation > 0 {
		fields = append(fields, slog.Int(FieldVariation, scope.variation))
	}
	if scope.post > 0 {
		fields = append(fields, slog.Int(FieldPost, scope.post))
	}
	return fields
}

// WithContext returns a logger augmented with the run fields carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = f
	}
	return logger.With(args...)
}
