package tier

import (
	"context"
	"errors"
	"testing"
)

var (
	errRemote  = errors.New("remote: HTTP 500")
	errBundled = errors.New("template not found: foo")
)

func fail[T any](err error) func(context.Context) (T, error) {
	return func(context.Context) (T, error) {
		var zero T
		return zero, err
	}
}

func succeed[T any](v T) func(context.Context) (T, error) {
	return func(context.Context) (T, error) { return v, nil }
}

func TestFirst_ReturnsFirstSuccess(t *testing.T) {
	calls := 0
	got, source, err := First(context.Background(),
		Attempt[string]{Name: "cache", Run: fail[string](errRemote)},
		Attempt[string]{Name: "remote", Run: func(context.Context) (string, error) {
			calls++
			return "from-remote", nil
		}},
		Attempt[string]{Name: "bundled", Run: func(context.Context) (string, error) {
			t.Fatal("bundled tier should not run after remote succeeded")
			return "", nil
		}},
	)
	if err != nil {
		t.Fatalf("First() error: %v", err)
	}
	if got != "from-remote" || source != "remote" {
		t.Errorf("First() = (%q, %q), want (from-remote, remote)", got, source)
	}
	if calls != 1 {
		t.Errorf("remote called %d times, want 1", calls)
	}
}

func TestFirst_SkippedAttemptNeverRuns(t *testing.T) {
	got, source, err := First(context.Background(),
		Attempt[int]{Name: "remote", Skip: true, Run: func(context.Context) (int, error) {
			t.Fatal("skipped attempt ran")
			return 0, nil
		}},
		Attempt[int]{Name: "bundled", Run: succeed(7)},
	)
	if err != nil {
		t.Fatalf("First() error: %v", err)
	}
	if got != 7 || source != "bundled" {
		t.Errorf("First() = (%d, %q), want (7, bundled)", got, source)
	}
}

func TestFirst_ExhaustionReportsLastError(t *testing.T) {
	_, _, err := First(context.Background(),
		Attempt[string]{Name: "remote", Run: fail[string](errRemote)},
		Attempt[string]{Name: "bundled", Run: fail[string](errBundled)},
		Attempt[string]{Name: "never", Skip: true},
	)

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error type = %T, want *ExhaustedError", err)
	}
	if err.Error() != errBundled.Error() {
		t.Errorf("Error() = %q, want %q", err.Error(), errBundled.Error())
	}
	if !errors.Is(err, errRemote) || !errors.Is(err, errBundled) {
		t.Error("exhausted error should wrap every tier error")
	}
	if len(exhausted.Failures) != 3 {
		t.Errorf("failures = %d, want 3", len(exhausted.Failures))
	}
}

func TestFirst_TerminalStopsChain(t *testing.T) {
	errFatal := errors.New("fatal")
	_, source, err := FirstWith(context.Background(),
		Options{Terminal: func(err error) bool { return errors.Is(err, errFatal) }},
		Attempt[string]{Name: "remote", Run: fail[string](errFatal)},
		Attempt[string]{Name: "bundled", Run: func(context.Context) (string, error) {
			t.Fatal("chain continued past terminal failure")
			return "", nil
		}},
	)
	if !errors.Is(err, errFatal) {
		t.Errorf("err = %v, want %v", err, errFatal)
	}
	if source != "remote" {
		t.Errorf("source = %q, want remote", source)
	}
}

func TestFirst_OnFailureSeesEveryFailedTier(t *testing.T) {
	var seen []string
	_, _, _ = FirstWith(context.Background(),
		Options{OnFailure: func(name string, _ error) { seen = append(seen, name) }},
		Attempt[string]{Name: "cache", Run: fail[string](errRemote)},
		Attempt[string]{Name: "remote", Run: fail[string](errRemote)},
		Attempt[string]{Name: "bundled", Run: succeed("ok")},
	)
	if len(seen) != 2 || seen[0] != "cache" || seen[1] != "remote" {
		t.Errorf("OnFailure saw %v, want [cache remote]", seen)
	}
}

func TestFirst_AllSkipped(t *testing.T) {
	_, _, err := First(context.Background(), Attempt[string]{Name: "remote", Skip: true})
	if err == nil || err.Error() != "no source available" {
		t.Errorf("err = %v, want no source available", err)
	}
}

func TestFirst_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := First(ctx, Attempt[string]{Name: "remote", Run: succeed("x")})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
