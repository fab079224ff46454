package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoRetriesTransientThenSucceeds(t *testing.T) {
	attempts := 0
	p := Policy{InitialInterval: time.Millisecond, MaxElapsedTime: time.Second, Classify: DefaultClassifier}

	err := p.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient failure")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoAbortsOnPermanent(t *testing.T) {
	attempts := 0
	p := Policy{InitialInterval: time.Millisecond, MaxElapsedTime: time.Second, Classify: DefaultClassifier}

	sentinel := errors.New("fatal")
	err := p.Do(context.Background(), func() error {
		attempts++
		return Permanent(sentinel)
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected exactly 1 attempt for a permanent error, got %d", attempts)
	}
}

func TestDoExhaustsEnvelope(t *testing.T) {
	p := Policy{InitialInterval: time.Millisecond, MaxElapsedTime: 20 * time.Millisecond, Classify: DefaultClassifier}

	err := p.Do(context.Background(), func() error {
		return errors.New("always fails")
	})
	if err == nil {
		t.Fatal("expected error once the backoff envelope is exhausted")
	}
}
