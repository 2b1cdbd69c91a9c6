package lifecycle_test

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JaimeStill/docgate/pkg/lifecycle"
)

func TestNotReadyBeforeStartup(t *testing.T) {
	lc := lifecycle.New()
	if lc.Ready() {
		t.Error("should not be ready before WaitForStartup")
	}
}

func TestReadyAfterStartup(t *testing.T) {
	lc := lifecycle.New()
	if err := lc.WaitForStartup(); err != nil {
		t.Fatalf("WaitForStartup() error = %v", err)
	}

	if !lc.Ready() {
		t.Error("should be ready after WaitForStartup")
	}
}

func TestStartupHooksExecute(t *testing.T) {
	lc := lifecycle.New()

	var count atomic.Int32
	for range 3 {
		lc.OnStartup("counter", func() error {
			count.Add(1)
			return nil
		})
	}

	if err := lc.WaitForStartup(); err != nil {
		t.Fatalf("WaitForStartup() error = %v", err)
	}

	if got := count.Load(); got != 3 {
		t.Errorf("startup hooks: got %d, want 3", got)
	}
}

func TestFailedStartupHookBlocksReadiness(t *testing.T) {
	lc := lifecycle.New()
	errBroker := errors.New("broker unreachable")

	lc.OnStartup("storage", func() error { return nil })
	lc.OnStartup("bus", func() error { return errBroker })

	err := lc.WaitForStartup()
	if !errors.Is(err, errBroker) {
		t.Fatalf("WaitForStartup() error = %v, want %v", err, errBroker)
	}
	if !strings.Contains(err.Error(), "bus:") {
		t.Errorf("error %q should name the failing hook", err.Error())
	}
	if lc.Ready() {
		t.Error("should not be ready when a startup hook failed")
	}
	if !errors.Is(lc.Err(), errBroker) {
		t.Errorf("Err() = %v, want %v", lc.Err(), errBroker)
	}
}

func TestShutdownHooksExecute(t *testing.T) {
	lc := lifecycle.New()

	var cleaned atomic.Bool
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		cleaned.Store(true)
	})

	lc.WaitForStartup()

	if err := lc.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	if !cleaned.Load() {
		t.Error("shutdown hook did not execute")
	}
	if lc.Ready() {
		t.Error("should not report ready after shutdown")
	}
}

func TestShutdownTimeout(t *testing.T) {
	lc := lifecycle.New()

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		time.Sleep(500 * time.Millisecond)
	})

	lc.WaitForStartup()

	err := lc.Shutdown(50 * time.Millisecond)
	if err == nil {
		t.Error("expected timeout error, got nil")
	}
}
