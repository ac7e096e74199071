package classify

import (
	"context"
	"log/slog"
	"time"

	"github.com/docvet/qrscan/internal/heuristic"
	"github.com/docvet/qrscan/internal/model"
)

// comparableConfidenceDelta defines when a reputation verdict and a
// heuristic score are considered comparably confident. When the heuristic
// names a more severe category and the service's confidence exceeds the
// heuristic's by no more than this, the more severe category wins.
// Biasing toward severity is the safer failure mode for a security
// review tool.
const comparableConfidenceDelta = 0.25

// Resolver resolves a URL against the reputation cache.
// *reputation.Cache satisfies this; tests substitute fakes.
type Resolver interface {
	Resolve(ctx context.Context, url string) (model.Verdict, error)
}

// Classifier produces the final verdict for each URL candidate.
//
// Policy:
//   - A successful reputation resolve is authoritative for category and
//     confidence.
//   - Any resolve failure falls back to the heuristic score, marked
//     heuristic-only with confidence capped below every live verdict.
//   - When the heuristic disagrees with a successful resolve toward a
//     more severe category at comparable confidence, the more severe
//     category wins.
type Classifier struct {
	resolver Resolver
	scorer   *heuristic.Scorer
	logger   *slog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithResolver sets the reputation resolver. Without one (no API key
// configured) every verdict is heuristic-only.
func WithResolver(resolver Resolver) Option {
	return func(c *Classifier) {
		c.resolver = resolver
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// New creates a Classifier.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		scorer: heuristic.NewScorer(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// Classify returns the final verdict for a normalized URL. It never
// returns an error: every failure path degrades to a heuristic-only
// verdict so the scan always has exactly one verdict per URL.
func (c *Classifier) Classify(ctx context.Context, url string) model.Verdict {
	category, confidence := c.scorer.Score(url)

	if c.resolver == nil {
		return heuristicVerdict(category, confidence)
	}

	resolved, err := c.resolver.Resolve(ctx, url)
	if err != nil {
		c.logger.Warn("reputation resolve failed, falling back to heuristics",
			"url", url,
			"error", err,
		)
		return heuristicVerdict(category, confidence)
	}

	// Safety bias: a comparably confident heuristic pointing at a more
	// severe category overrides the service's category. The confidence
	// and source stay with the resolved verdict because the lookup itself
	// succeeded.
	if category.MoreSevereThan(resolved.Category) && resolved.Confidence-confidence <= comparableConfidenceDelta {
		c.logger.Info("heuristic escalated verdict category",
			"url", url,
			"resolved", resolved.Category,
			"heuristic", category,
		)
		resolved.Category = category
	}

	return resolved
}

// heuristicVerdict wraps a heuristic score into a degraded verdict.
func heuristicVerdict(category model.Category, confidence float64) model.Verdict {
	return model.Verdict{
		Category:    category,
		Confidence:  confidence,
		Source:      model.SourceHeuristicOnly,
		EvaluatedAt: time.Now().UTC(),
	}
}
