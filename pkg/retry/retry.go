// Package retry wraps external collaborator calls (DA, sequencer) with
// exponential backoff and transient/permanent error classification, per
// spec.md §4.1/§5/§7.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Kind classifies an error returned by a downstream call.
type Kind int

const (
	// Transient errors are retried with backoff.
	Transient Kind = iota
	// KindPermanent errors abort the retry loop immediately.
	KindPermanent
)

// Classifier maps an arbitrary error to a Kind. Collaborators are expected
// to return errors that a Classifier can distinguish; the default
// classifier treats every error as Transient, since the DA/sequencer
// interfaces in this core are themselves interface-only (spec.md §1) and
// carry no universal transient/permanent tag.
type Classifier func(error) Kind

// DefaultClassifier treats all errors as Transient.
func DefaultClassifier(error) Kind { return Transient }

// permanentError wraps an error to force it through as Permanent,
// regardless of what a Classifier would otherwise say.
type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so that Do's default classification treats it as
// non-retryable even under DefaultClassifier.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Policy configures the exponential backoff envelope. The spec's defaults
// are an initial interval of 1s and a maximum elapsed time of 5 minutes
// (spec.md §4.1 "Edge policy").
type Policy struct {
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
	Classify        Classifier
}

// DefaultPolicy returns the spec-mandated backoff envelope.
func DefaultPolicy() Policy {
	return Policy{
		InitialInterval: time.Second,
		MaxElapsedTime:  5 * time.Minute,
		Classify:        DefaultClassifier,
	}
}

// Do runs fn, retrying Transient failures with exponential backoff up to
// MaxElapsedTime. A Permanent classification (or a fn error wrapped with
// Permanent) aborts immediately without further retries. Exceeding the
// backoff envelope surfaces the last error as a hard failure that aborts
// the current L1-block iteration (spec.md §4.1).
func (p Policy) Do(ctx context.Context, fn func() error) error {
	classify := p.Classify
	if classify == nil {
		classify = DefaultClassifier
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxElapsedTime = p.MaxElapsedTime
	bctx := backoff.WithContext(b, ctx)

	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return backoff.Permanent(err)
		}
		if classify(err) == KindPermanent {
			return backoff.Permanent(err)
		}
		return err
	}, bctx)
}

// Do runs fn under the spec-mandated default backoff envelope.
func Do(ctx context.Context, fn func() error) error {
	return DefaultPolicy().Do(ctx, fn)
}
