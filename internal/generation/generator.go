package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"slidemill/internal/captions"
	"slidemill/internal/history"
	"slidemill/internal/logging"
	"slidemill/internal/metadata"
	"slidemill/internal/render"
	"slidemill/internal/resolve"
	"slidemill/internal/selection"
)

// Recorder receives run bookkeeping. history.Store implements it.
type Recorder interface {
	StartRun(ctx context.Context, run history.Run) error
	RecordSelection(ctx context.Context, sel history.Selection) error
	FinishRun(ctx context.Context, id string, out history.Outcome) error
}

// Options control one run.
type Options struct {
	BaseDir            string
	OutputDir          string
	Variations         int
	Workers            int
	AllowAllDuplicates bool
	// Seed fixes the random choices; zero draws a fresh seed.
	Seed int64
}

// Summary reports what a run produced.
type Summary struct {
	RunID      string
	Seed       int64
	Variations int
	Posts      int
	Images     int
	Bytes      int64
	Duration   time.Duration
}

// ImagesPerSecond is the output throughput of the run.
func (s Summary) ImagesPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Images) / s.Duration.Seconds()
}

// Generator produces posts from a metadata document and a captions table.
type Generator struct {
	md       *metadata.Metadata
	table    *captions.Table
	resolver *resolve.Resolver
	renderer render.Renderer
	recorder Recorder
	opts     Options
	base     *slog.Logger
	logger   *slog.Logger
	newID    func() string
	now      func() time.Time
}

// Option customizes a Generator.
type Option func(*Generator)

// WithRecorder stores run history through r.
func WithRecorder(r Recorder) Option {
	return func(g *Generator) { g.recorder = r }
}

// WithRunIDs replaces the run identifier source.
func WithRunIDs(fn func() string) Option {
	return func(g *Generator) {
		if fn != nil {
			g.newID = fn
		}
	}
}

// New returns a generator. md must not be mutated while a run is in progress.
func New(md *metadata.Metadata, table *captions.Table, resolver *resolve.Resolver, renderer render.Renderer, opts Options, logger *slog.Logger, options ...Option) *Generator {
	if opts.Variations < 1 {
		opts.Variations = 1
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	g := &Generator{
		md:       md,
		table:    table,
		resolver: resolver,
		renderer: renderer,
		opts:     opts,
		base:     logger,
		logger:   logging.NewComponentLogger(logger, "generator"),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

type counters struct {
	posts  atomic.Int64
	images atomic.Int64
	bytes  atomic.Int64
}

// Run generates every post of every variation. The first failing slot
// cancels the remaining posts; files already written are left in place.
func (g *Generator) Run(ctx context.Context) (Summary, error) {
	if err := g.checkSlots(); err != nil {
		return Summary{}, err
	}
	start := g.now()
	seed := g.opts.Seed
	if seed == 0 {
		seed = rand.Int64()
	}
	sum := Summary{RunID: g.newID(), Seed: seed, Variations: g.opts.Variations}
	ctx = logging.WithRun(ctx, sum.RunID)
	logger := logging.WithContext(ctx, g.logger)

	if g.recorder != nil {
		err := g.recorder.StartRun(ctx, history.Run{
			ID:         sum.RunID,
			BaseDir:    g.opts.BaseDir,
			Variations: g.opts.Variations,
			Seed:       seed,
			StartedAt:  start,
		})
		if err != nil {
			return sum, fmt.Errorf("record run start: %w", err)
		}
	}
	logger.Info("generation started",
		logging.String(logging.FieldEventType, "generation_started"),
		logging.Int("variations", g.opts.Variations),
		logging.Int("posts_per_variation", g.table.Posts()),
		logging.Int("workers", g.opts.Workers),
		logging.Int64("seed", seed))

	engine := selection.New(g.md, g.base, selection.WithAllowAllDuplicates(g.opts.AllowAllDuplicates))
	var c counters
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(g.opts.Workers)
	for variation := 1; variation <= g.opts.Variations; variation++ {
		for i, row := range g.table.Rows {
			post := i + 1
			grp.Go(func() error {
				return g.generatePost(gctx, engine, sum.RunID, seed, variation, post, row, &c)
			})
		}
	}
	runErr := grp.Wait()

	sum.Posts = int(c.posts.Load())
	sum.Images = int(c.images.Load())
	sum.Bytes = c.bytes.Load()
	sum.Duration = g.now().Sub(start)

	if g.recorder != nil {
		out := history.Outcome{Posts: sum.Posts, Images: sum.Images, Bytes: sum.Bytes, Err: runErr}
		if err := g.recorder.FinishRun(context.WithoutCancel(ctx), sum.RunID, out); err != nil {
			logging.WarnWithContext(logger, "failed to record run outcome", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "run history is incomplete"),
				logging.String(logging.FieldErrorHint, "check the history database path and permissions"))
		}
	}
	if runErr != nil {
		logging.ErrorWithContext(logger, "generation failed", "generation_failed",
			logging.Error(runErr),
			logging.Int("posts_completed", sum.Posts),
			logging.String(logging.FieldErrorHint, hintFor(runErr)))
		return sum, runErr
	}
	logger.Info("generation complete",
		logging.String(logging.FieldEventType, "generation_completed"),
		logging.Int("posts", sum.Posts),
		logging.Int("images", sum.Images),
		logging.Int64("bytes", sum.Bytes),
		logging.Duration("duration", sum.Duration))
	return sum, nil
}

func (g *Generator) generatePost(ctx context.Context, engine *selection.Engine, runID string, seed int64, variation, post int, row captions.Row, c *counters) error {
	ctx = logging.WithPost(ctx, variation, post)
	logger := logging.WithContext(ctx, g.logger)
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(variation)<<32|uint64(post)))
	choices := engine.NewPost(rng)
	dir := filepath.Join(g.opts.OutputDir, "variation"+strconv.Itoa(variation), "post"+strconv.Itoa(post))

	for _, slot := range row.Slots {
		if err := ctx.Err(); err != nil {
			return err
		}
		if slot.Empty() {
			logger.Debug("skipping empty slot", logging.String(logging.FieldContentType, slot.ContentType), logging.Int("slot", slot.Index))
			continue
		}
		name, err := choices.Choose(slot.ContentType, slot.Product)
		if err != nil {
			return fmt.Errorf("variation %d post %d slot %d: %w", variation, post, slot.Index, err)
		}
		req, err := g.request(rng, name, slot, dir)
		if err != nil {
			return fmt.Errorf("variation %d post %d slot %d: %w", variation, post, slot.Index, err)
		}
		res, err := g.renderer.Render(ctx, req)
		if err != nil {
			return fmt.Errorf("render variation %d post %d slot %d: %w", variation, post, slot.Index, err)
		}
		c.images.Add(1)
		c.bytes.Add(res.Bytes)
		if g.recorder != nil {
			err := g.recorder.RecordSelection(ctx, history.Selection{
				RunID:       runID,
				Variation:   variation,
				Post:        post,
				Slot:        slot.Index,
				ContentType: slot.ContentType,
				Product:     slot.Product,
				Image:       name,
				OutputPath:  res.Path,
			})
			if err != nil {
				return fmt.Errorf("record selection: %w", err)
			}
		}
		logger.Debug("slot generated",
			logging.Int("slot", slot.Index),
			logging.String(logging.FieldImage, name),
			logging.String("output", res.Path))
	}
	c.posts.Add(1)
	return nil
}

func (g *Generator) request(rng *rand.Rand, name string, slot captions.Slot, dir string) (render.Request, error) {
	blob, err := g.resolver.ForImage(name)
	if err != nil {
		return render.Request{}, err
	}
	textType, ts, err := blob.DefaultText()
	if err != nil {
		return render.Request{}, fmt.Errorf("image %s: %w", name, err)
	}
	if len(ts.Colors) == 0 {
		return render.Request{}, fmt.Errorf("image %s: text type %s has no colours", name, textType)
	}
	path, ok := g.md.ImagePath(g.opts.BaseDir, name)
	if !ok {
		return render.Request{}, fmt.Errorf("%w: %s", metadata.ErrImageNotFound, name)
	}
	return render.Request{
		ImagePath:   path,
		Caption:     slot.Text,
		TextType:    textType,
		ColorIndex:  rng.IntN(len(ts.Colors)),
		Settings:    blob,
		ContentType: slot.ContentType,
		Product:     slot.Product,
		OutputDir:   dir,
		Name:        strconv.Itoa(slot.Index),
	}, nil
}

// checkSlots rejects captions whose content types the document does not know.
func (g *Generator) checkSlots() error {
	for _, row := range g.table.Rows {
		for _, slot := range row.Slots {
			if !g.md.HasContentType(slot.ContentType) {
				return fmt.Errorf("row %d: %w: %s", row.Number, metadata.ErrInvalidContentType, slot.ContentType)
			}
		}
	}
	return nil
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, selection.ErrPoolExhausted):
		return "tag more images with the product or allow duplicates"
	case errors.Is(err, resolve.ErrSettingsUndefined):
		return "define settings at the level the image is pinned to"
	default:
		return "run slidemill validate for details"
	}
}
