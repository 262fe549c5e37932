package retry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:     attempts,
		BaseDelay:       time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		ExponentialBase: 2.0,
	}
}

func TestDo_AlwaysFailing(t *testing.T) {
	calls := 0
	var last error
	err := Do(context.Background(), fastPolicy(3), "always-fails", func(ctx context.Context) error {
		calls++
		last = errors.New("failure " + string(rune('0'+calls)))
		return last
	})

	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != last.Error() {
		t.Errorf("err = %q, want last error %q", err, last)
	}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(5), "flaky", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = Do(context.Background(), fastPolicy(0), "zero", func(ctx context.Context) error {
		calls++
		return errors.New("fail")
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoValue(t *testing.T) {
	calls := 0
	v, err := DoValue(context.Background(), fastPolicy(3), "value", func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("first try fails")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("DoValue() error = %v", err)
	}
	if v != "ok" {
		t.Errorf("value = %q, want ok", v)
	}
}

func TestDoWithClassifier_AbortFailsFast(t *testing.T) {
	errMalformed := errors.New("malformed input")
	calls := 0
	err := DoWithClassifier(context.Background(), fastPolicy(5), "classified",
		func(ctx context.Context) error {
			calls++
			return errMalformed
		},
		func(err error) Decision {
			if errors.Is(err, errMalformed) {
				return Abort
			}
			return Retry
		},
	)
	if !errors.Is(err, errMalformed) {
		t.Errorf("err = %v, want %v", err, errMalformed)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoWithClassifier_RetryUntilExhausted(t *testing.T) {
	calls := 0
	err := DoWithClassifier(context.Background(), fastPolicy(4), "classified",
		func(ctx context.Context) error {
			calls++
			return errors.New("timeout")
		},
		func(error) Decision { return Retry },
	)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
}

func TestClassify(t *testing.T) {
	_, readErr := os.ReadFile(filepath.Join(t.TempDir(), "page-0001.png"))

	tests := []struct {
		name string
		err  error
		want Decision
	}{
		{"transient", errors.New("502 bad gateway"), Retry},
		{"cancelled", fmt.Errorf("chat: %w", context.Canceled), Abort},
		{"deadline", context.DeadlineExceeded, Abort},
		{"missing image", fmt.Errorf("failed to read image: %w", readErr), Abort},
		{"not exist sentinel", fs.ErrNotExist, Abort},
		{"open circuit", fmt.Errorf("mistral OCR: %w", ErrCircuitOpen), Abort},
		{"permanent", Permanent(errors.New("provider not configured")), Abort},
		{"wrapped permanent", fmt.Errorf("LLM client %q: %w", "claude", Permanent(errors.New("provider not configured"))), Abort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestPermanent(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
	base := errors.New("schema mismatch")
	err := fmt.Errorf("ai parse: %w", Permanent(base))
	if !errors.Is(err, base) {
		t.Error("Permanent hides the wrapped error from errors.Is")
	}
	if !IsPermanent(err) || IsPermanent(base) {
		t.Errorf("IsPermanent(wrapped) = %v, IsPermanent(base) = %v", IsPermanent(err), IsPermanent(base))
	}
	if err.Error() != "ai parse: schema mismatch" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestDoValueWithClassifier_PermanentFailsFast(t *testing.T) {
	calls := 0
	_, err := DoValueWithClassifier(context.Background(), fastPolicy(5), "ocr page 3",
		func(ctx context.Context) (string, error) {
			calls++
			return "", fmt.Errorf("read page: %w", fs.ErrNotExist)
		},
		Classify,
	)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 10, BaseDelay: time.Hour, MaxDelay: time.Hour, ExponentialBase: 2}

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, p, "slow", func(ctx context.Context) error {
			calls++
			return errors.New("fail")
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected error after cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after context cancellation")
	}
}

func TestPolicy_Backoff(t *testing.T) {
	p := Policy{BaseDelay: 500 * time.Millisecond, MaxDelay: 30 * time.Second, ExponentialBase: 2.0}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, time.Second},
		{3, 2 * time.Second},
		{7, 30 * time.Second},
		{20, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := p.Backoff(tt.attempt); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestJittered_Bounds(t *testing.T) {
	d := time.Second
	for i := 0; i < 1000; i++ {
		got := jittered(d)
		if got < 750*time.Millisecond || got > 1250*time.Millisecond {
			t.Fatalf("jittered(%v) = %v, outside ±25%%", d, got)
		}
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.MaxAttempts != 3 || p.BaseDelay != 500*time.Millisecond || p.MaxDelay != 30*time.Second || p.ExponentialBase != 2.0 {
		t.Errorf("DefaultPolicy() = %+v", p)
	}
}
