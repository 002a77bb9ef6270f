package selection

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"slidemill/internal/logging"
	"slidemill/internal/metadata"
)

// ErrPoolExhausted is wrapped by every ExhaustedError.
var ErrPoolExhausted = errors.New("no available images")

// ExhaustedError reports a slot for which no candidate image remained.
type ExhaustedError struct {
	ContentType string
	Product     string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("no available images for %s - %s", e.ContentType, e.Product)
}

func (e *ExhaustedError) Unwrap() error { return ErrPoolExhausted }

// Engine builds candidate pools from a metadata document.
type Engine struct {
	md                 *metadata.Metadata
	allowAllDuplicates bool
	logger             *slog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithAllowAllDuplicates lets wildcard slots draw from duplicate-guarded
// products as well.
func WithAllowAllDuplicates(allow bool) Option {
	return func(e *Engine) { e.allowAllDuplicates = allow }
}

// New returns an engine reading md. The engine never modifies md.
func New(md *metadata.Metadata, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{md: md, logger: logging.NewComponentLogger(logger, "selection")}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PreventsDuplicates reports whether a declared product guards against reuse
// within one post. The wildcard never does.
func (e *Engine) PreventsDuplicates(contentType, product string) bool {
	p, ok := e.md.Product(contentType, strings.TrimSpace(product))
	return ok && p.PreventDuplicates
}

type pairing struct {
	contentType string
	product     string
}

// Post tracks the images consumed by one post. It is not safe for concurrent use.
type Post struct {
	engine *Engine
	rng    *rand.Rand
	used   map[pairing]map[string]struct{}
}

// NewPost starts an empty exclusion set drawing from rng.
func (e *Engine) NewPost(rng *rand.Rand) *Post {
	return &Post{engine: e, rng: rng, used: map[pairing]map[string]struct{}{}}
}

// Candidates returns the images still available for a slot of this post, in
// the content type's folder order.
func (p *Post) Candidates(contentType, product string) []string {
	product = strings.TrimSpace(product)
	md := p.engine.md
	var pool []string
	if product == metadata.Wildcard {
		for _, prod := range md.Products[contentType] {
			if prod.PreventDuplicates && !p.engine.allowAllDuplicates {
				continue
			}
			pool = append(pool, p.available(contentType, prod.Name, prod.PreventDuplicates)...)
		}
		return pool
	}
	return p.available(contentType, product, p.engine.PreventsDuplicates(contentType, product))
}

func (p *Post) available(contentType, product string, guarded bool) []string {
	md := p.engine.md
	used := p.used[pairing{contentType, product}]
	var out []string
	for _, name := range md.Structure[contentType].Images {
		img, ok := md.Images[name]
		if !ok || img == nil || img.ProductName() != product {
			continue
		}
		if guarded {
			if _, taken := used[name]; taken {
				continue
			}
		}
		out = append(out, name)
	}
	return out
}

// Choose picks an image uniformly at random from the slot's candidates and,
// when the product guards against duplicates, excludes it for the rest of the post.
func (p *Post) Choose(contentType, product string) (string, error) {
	product = strings.TrimSpace(product)
	pool := p.Candidates(contentType, product)
	if len(pool) == 0 {
		logging.WarnWithContext(p.engine.logger, "no available images for slot", "selection_exhausted",
			logging.String(logging.FieldContentType, contentType),
			logging.String(logging.FieldProduct, product),
			logging.String(logging.FieldErrorHint, "tag more images with this product or disable prevent_duplicates"))
		return "", &ExhaustedError{ContentType: contentType, Product: product}
	}
	chosen := pool[p.rng.IntN(len(pool))]
	if p.engine.PreventsDuplicates(contentType, product) {
		key := pairing{contentType, product}
		if p.used[key] == nil {
			p.used[key] = map[string]struct{}{}
		}
		p.used[key][chosen] = struct{}{}
	}
	p.engine.logger.Debug("image selected",
		logging.String(logging.FieldContentType, contentType),
		logging.String(logging.FieldProduct, product),
		logging.String(logging.FieldImage, chosen),
		logging.Int("pool", len(pool)))
	return chosen, nil
}
