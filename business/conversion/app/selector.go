package app

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/fxbridge/business/conversion/domain"
	"github.com/fd1az/fxbridge/internal/apperror"
)

// Selector evaluates every intermediary and picks the best output.
type Selector struct {
	evaluator *Evaluator
	workers   int
	evaluated metric.Int64Counter
}

// NewSelector creates a Selector running at most workers evaluations at once.
// workers <= 1 evaluates candidates one after another.
func NewSelector(evaluator *Evaluator, workers int, meter metric.Meter) (*Selector, error) {
	if workers < 1 {
		workers = 1
	}

	evaluated, err := meter.Int64Counter(
		"fxbridge_candidates_evaluated_total",
		metric.WithDescription("Intermediary candidates evaluated"),
	)
	if err != nil {
		return nil, err
	}

	return &Selector{
		evaluator: evaluator,
		workers:   workers,
		evaluated: evaluated,
	}, nil
}

// Select returns the intermediary giving the greatest output for amount.
// found is false when no candidate produced a result. The first provider
// error cancels the remaining evaluations and is returned. A cancelled or
// expired ctx is reported as CodeServiceTimeout.
func (s *Selector) Select(
	ctx context.Context,
	catalog *domain.Catalog,
	from, to string,
	amount float64,
) (best domain.Best, found bool, err error) {
	intermediaries := catalog.Intermediaries(from, to)
	if len(intermediaries) == 0 {
		return domain.Best{}, false, nil
	}

	// Each worker writes its own slot, so order follows the catalog.
	candidates := make([]domain.Candidate, len(intermediaries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, c := range intermediaries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cand, err := s.evaluator.Evaluate(gctx, catalog, c, from, to, amount)
			if err != nil {
				return err
			}
			candidates[i] = cand
			s.record(gctx, cand)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return domain.Best{}, false, contextError(err)
	}

	best, found = domain.SelectBest(candidates)
	return best, found, nil
}

func (s *Selector) record(ctx context.Context, c domain.Candidate) {
	outcome := "no_result"
	if c.OK {
		outcome = "result"
	}
	s.evaluated.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// contextError turns a bare context error into a provider timeout.
func contextError(err error) error {
	if apperror.IsAppError(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperror.Provider(apperror.CodeServiceTimeout, "", err)
	}
	return err
}
