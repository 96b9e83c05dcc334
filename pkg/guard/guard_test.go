package guard_test

import (
	"errors"
	"testing"

	"github.com/rango-exchange/router-middleware/pkg/guard"
)

func TestAcquireRejectsNested(t *testing.T) {
	g := guard.New()

	release, err := g.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if _, err := g.Acquire(); !errors.Is(err, guard.ErrReentrantCall) {
		t.Fatalf("expected ErrReentrantCall, got %v", err)
	}

	release()
	release2, err := g.Acquire()
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	release2()
}

func TestGuardsAreIndependent(t *testing.T) {
	g1 := guard.New()
	g2 := guard.New()

	release, err := g1.Acquire()
	if err != nil {
		t.Fatalf("Acquire g1: %v", err)
	}
	defer release()

	release2, err := g2.Acquire()
	if err != nil {
		t.Fatalf("Acquire g2: %v", err)
	}
	release2()
}
