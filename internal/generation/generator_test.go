package generation_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"slidemill/internal/captions"
	"slidemill/internal/generation"
	"slidemill/internal/history"
	"slidemill/internal/logging"
	"slidemill/internal/metadata"
	"slidemill/internal/render"
	"slidemill/internal/resolve"
	"slidemill/internal/selection"
	"slidemill/internal/settings"
	"slidemill/internal/testsupport"
)

const captionsText = `product_hook,hook,product_cta,cta
magnesium,Sleep better,zinc,Shop now
magnesium,Everything helps,,
magnesium,Morning routine,all,Link in bio
`

type fixture struct {
	proj  *testsupport.Project
	md    *metadata.Metadata
	table *captions.Table
}

// newFixture tags a.png and b.png with magnesium (guarded) and c.png with zinc.
func newFixture(t *testing.T) fixture {
	t.Helper()
	proj := testsupport.NewProject(t)
	proj.AddImage("hook", "a.png")
	proj.AddImage("hook", "b.jpg")
	proj.AddImage("cta", "c.png")

	table, err := captions.Parse(strings.NewReader(captionsText), ',')
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	store := metadata.NewStore(proj.Base, logging.NewNop())
	md, err := store.Generate(table.Catalog())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	editor := metadata.NewEditor(md, store, logging.NewNop())
	for name, product := range map[string]string{"a.png": "magnesium", "b.jpg": "magnesium", "c.png": "zinc"} {
		if err := editor.EditImage(name, metadata.WithProduct(product)); err != nil {
			t.Fatalf("EditImage(%s): %v", name, err)
		}
	}
	if err := editor.SetPreventDuplicates("hook", "magnesium", true); err != nil {
		t.Fatal(err)
	}
	return fixture{proj: proj, md: md, table: table}
}

func (f fixture) generator(t *testing.T, out string, seed int64, opts ...generation.Option) *generation.Generator {
	t.Helper()
	resolver := resolve.New(f.md, settings.Builtin(), logging.NewNop())
	return generation.New(f.md, f.table, resolver, render.NewCopyRenderer(logging.NewNop()), generation.Options{
		BaseDir:    f.proj.Base,
		OutputDir:  out,
		Variations: 2,
		Workers:    3,
		Seed:       seed,
	}, logging.NewNop(), opts...)
}

// memoryRecorder keeps selections in memory.
type memoryRecorder struct {
	mu       sync.Mutex
	started  []history.Run
	picks    map[string]string
	outcomes []history.Outcome
}

func (m *memoryRecorder) StartRun(_ context.Context, run history.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, run)
	return nil
}

func (m *memoryRecorder) RecordSelection(_ context.Context, sel history.Selection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.picks == nil {
		m.picks = map[string]string{}
	}
	m.picks[fmt.Sprintf("%d/%d/%d", sel.Variation, sel.Post, sel.Slot)] = sel.Image
	return nil
}

func (m *memoryRecorder) FinishRun(_ context.Context, _ string, out history.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, out)
	return nil
}

func TestRunWritesEveryPost(t *testing.T) {
	f := newFixture(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBaseDir(f.proj.Base))
	store := testsupport.MustOpenHistory(t, cfg)
	out := t.TempDir()

	sum, err := f.generator(t, out, 7, generation.WithRecorder(store), generation.WithRunIDs(func() string { return "run-1" })).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Row 2 has an empty cta caption, so 2 variations x (2 + 1 + 2) slots.
	if sum.RunID != "run-1" || sum.Posts != 6 || sum.Images != 10 || sum.Seed != 7 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	for variation := 1; variation <= 2; variation++ {
		for post := 1; post <= 3; post++ {
			dir := filepath.Join(out, fmt.Sprintf("variation%d", variation), fmt.Sprintf("post%d", post))
			sc, err := render.ReadSidecar(filepath.Join(dir, "1.json"))
			if err != nil {
				t.Fatalf("hook sidecar: %v", err)
			}
			if sc.ContentType != "hook" || sc.TextType != settings.TextTypePlain {
				t.Fatalf("unexpected hook sidecar: %+v", sc)
			}
			if post == 2 {
				if _, err := os.Stat(filepath.Join(dir, "2.json")); !os.IsNotExist(err) {
					t.Fatalf("empty slot should be skipped, stat err = %v", err)
				}
				continue
			}
			sc, err = render.ReadSidecar(filepath.Join(dir, "2.json"))
			if err != nil {
				t.Fatalf("cta sidecar: %v", err)
			}
			if sc.Image != "c.png" {
				t.Fatalf("cta slot used %s", sc.Image)
			}
			if _, err := os.Stat(filepath.Join(dir, "2.png")); err != nil {
				t.Fatalf("cta output missing: %v", err)
			}
		}
	}

	run, err := store.GetRun(context.Background(), "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != history.StatusCompleted || run.Images != 10 || run.Posts != 6 || run.Seed != 7 {
		t.Fatalf("unexpected history run: %+v", run)
	}
	sels, err := store.Selections(context.Background(), "run-1")
	if err != nil || len(sels) != 10 {
		t.Fatalf("selections = %d, %v", len(sels), err)
	}
}

func TestRunIsDeterministicForSeed(t *testing.T) {
	f := newFixture(t)
	first, second := &memoryRecorder{}, &memoryRecorder{}
	if _, err := f.generator(t, t.TempDir(), 1234, generation.WithRecorder(first)).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := f.generator(t, t.TempDir(), 1234, generation.WithRecorder(second)).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(first.picks) != 10 {
		t.Fatalf("recorded %d picks, want 10", len(first.picks))
	}
	if diff := cmp.Diff(first.picks, second.picks); diff != "" {
		t.Fatalf("same seed produced different selections (-first +second):\n%s", diff)
	}
}

func TestRunFailsWhenPoolExhausted(t *testing.T) {
	f := newFixture(t)
	table, err := captions.Parse(strings.NewReader("product_hook,hook,product_hook,hook,product_hook,hook\nmagnesium,One,magnesium,Two,magnesium,Three\n"), ',')
	if err != nil {
		t.Fatal(err)
	}
	f.table = table
	rec := &memoryRecorder{}

	_, err = f.generator(t, t.TempDir(), 5, generation.WithRecorder(rec)).Run(context.Background())
	if !errors.Is(err, selection.ErrPoolExhausted) {
		t.Fatalf("err = %v, want ErrPoolExhausted", err)
	}
	if !strings.Contains(err.Error(), "no available images for hook - magnesium") {
		t.Fatalf("err = %q", err.Error())
	}
	if len(rec.outcomes) != 1 || rec.outcomes[0].Err == nil {
		t.Fatalf("outcome not recorded as failure: %+v", rec.outcomes)
	}
}

func TestRunRejectsUnknownContentType(t *testing.T) {
	f := newFixture(t)
	table, err := captions.Parse(strings.NewReader("product_story,story\nmagnesium,Hi\n"), ',')
	if err != nil {
		t.Fatal(err)
	}
	f.table = table
	rec := &memoryRecorder{}
	_, err = f.generator(t, t.TempDir(), 5, generation.WithRecorder(rec)).Run(context.Background())
	if !errors.Is(err, metadata.ErrInvalidContentType) {
		t.Fatalf("err = %v", err)
	}
	if len(rec.started) != 0 {
		t.Fatal("run must not be recorded when the captions do not match")
	}
}

func TestSummaryImagesPerSecond(t *testing.T) {
	if got := (generation.Summary{}).ImagesPerSecond(); got != 0 {
		t.Fatalf("zero duration rate = %v", got)
	}
}
