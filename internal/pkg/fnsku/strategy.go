package fnsku

import (
	"context"
	"fmt"
	"time"
)

// DefaultStrategyTimeout bounds a single strategy attempt.
const DefaultStrategyTimeout = 10 * time.Second

// Candidate is a strategy's proposed ASIN. An empty ASIN means the strategy
// had nothing to offer.
type Candidate struct {
	ASIN       string
	Confidence float64
	Details    map[string]any
}

// Found reports whether the candidate carries an ASIN.
func (c Candidate) Found() bool {
	return c.ASIN != ""
}

// Strategy is one conversion method. Name is recorded as the result method.
// An error is a failure of this strategy only; the chain moves on.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, fnsku, marketplace string) (Candidate, error)
}

type attemptOutcome struct {
	candidate Candidate
	err       error
}

// attemptWithTimeout runs s under its own deadline. A strategy that ignores
// its context is abandoned when the deadline passes; a panic is reported as
// an error.
func attemptWithTimeout(ctx context.Context, s Strategy, fnsku, marketplace string, timeout time.Duration) (Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan attemptOutcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- attemptOutcome{err: fmt.Errorf("strategy %s panicked: %v", s.Name(), p)}
			}
		}()
		c, err := s.Attempt(ctx, fnsku, marketplace)
		done <- attemptOutcome{candidate: c, err: err}
	}()

	select {
	case out := <-done:
		return out.candidate, out.err
	case <-ctx.Done():
		return Candidate{}, ctx.Err()
	}
}
