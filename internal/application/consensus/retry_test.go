package consensus

import (
	"context"
	"testing"
	"time"

	"z-consensus-api/internal/config"
	"z-consensus-api/internal/infrastructure/provider"
)

func noBackoff() config.BackoffConfig {
	return config.BackoffConfig{Initial: time.Millisecond, Max: time.Millisecond, Multiplier: 2}
}

func retryableErr() *provider.Error {
	return &provider.Error{Kind: provider.KindRateLimited, Provider: "openai", Model: "gpt-4o", Status: 429}
}

func TestNewPolicyClampsAttempts(t *testing.T) {
	t.Parallel()

	p := NewPolicy(config.RetryConfig{MaxAttempts: 0})
	if p.MaxAttempts != 1 {
		t.Errorf("MaxAttempts = %d, want 1", p.MaxAttempts)
	}
	p = NewPolicy(config.RetryConfig{MaxAttempts: 5})
	if p.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", p.MaxAttempts)
	}
}

func TestPolicyCallFirstAttemptSucceeds(t *testing.T) {
	t.Parallel()

	ad := &stubAdapter{model: "gpt-4o", outputs: []stubOutcome{{text: "answer"}}}
	p := Policy{MaxAttempts: 3, Backoff: noBackoff()}
	p.sleep = func(ctx context.Context, d time.Duration) error {
		t.Error("no sleep expected on success")
		return nil
	}

	text, err := p.Call(context.Background(), ad, &provider.GenerateRequest{Prompt: "q"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if text != "answer" || ad.callCount() != 1 {
		t.Errorf("text = %q, calls = %d", text, ad.callCount())
	}
}

func TestPolicyCallRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	ad := &stubAdapter{model: "gpt-4o", outputs: []stubOutcome{
		{err: retryableErr()},
		{err: retryableErr()},
		{text: "third time lucky"},
	}}
	var delays []time.Duration
	p := Policy{MaxAttempts: 3, Backoff: config.BackoffConfig{Initial: 2 * time.Second, Max: time.Minute, Multiplier: 2}}
	p.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	text, err := p.Call(context.Background(), ad, &provider.GenerateRequest{Prompt: "q"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if text != "third time lucky" || ad.callCount() != 3 {
		t.Errorf("text = %q, calls = %d", text, ad.callCount())
	}
	if len(delays) != 2 || delays[0] != 2*time.Second || delays[1] != 4*time.Second {
		t.Errorf("delays = %v", delays)
	}
}

func TestPolicyCallFatalErrorNotRetried(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
	}{
		{name: "auth", err: &provider.Error{Kind: provider.KindAuth, Status: 401}},
		{name: "bad request", err: &provider.Error{Kind: provider.KindBadRequest, Status: 400}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ad := &stubAdapter{model: "gpt-4o", outputs: []stubOutcome{{err: tt.err}}}
			p := Policy{MaxAttempts: 5, Backoff: noBackoff()}
			p.sleep = func(ctx context.Context, d time.Duration) error {
				t.Error("fatal error must not trigger backoff")
				return nil
			}

			_, err := p.Call(context.Background(), ad, &provider.GenerateRequest{Prompt: "q"})
			if err == nil {
				t.Fatal("expected error")
			}
			if ad.callCount() != 1 {
				t.Errorf("calls = %d, want 1", ad.callCount())
			}
		})
	}
}

func TestPolicyCallBudgetExhausted(t *testing.T) {
	t.Parallel()

	ad := &stubAdapter{model: "gpt-4o", outputs: []stubOutcome{{err: retryableErr()}}}
	p := Policy{MaxAttempts: 3, Backoff: noBackoff()}
	var slept int
	p.sleep = func(ctx context.Context, d time.Duration) error {
		slept++
		return nil
	}

	_, err := p.Call(context.Background(), ad, &provider.GenerateRequest{Prompt: "q"})
	if err == nil {
		t.Fatal("expected error after budget exhausted")
	}
	if provider.KindOf(err) != provider.KindRateLimited {
		t.Errorf("err = %v", err)
	}
	if ad.callCount() != 3 || slept != 2 {
		t.Errorf("calls = %d, sleeps = %d", ad.callCount(), slept)
	}
}

func TestPolicyCallSleepInterrupted(t *testing.T) {
	t.Parallel()

	ad := &stubAdapter{model: "gpt-4o", outputs: []stubOutcome{{err: retryableErr()}}}
	p := Policy{MaxAttempts: 3, Backoff: noBackoff()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Call(ctx, ad, &provider.GenerateRequest{Prompt: "q"})
	if err == nil {
		t.Fatal("expected error")
	}
	if provider.KindOf(err) != provider.KindTimeout {
		t.Errorf("interrupted wait should classify as timeout, got %v", err)
	}
	if ad.callCount() != 1 {
		t.Errorf("calls = %d, want 1", ad.callCount())
	}
}

func TestPolicyDelayProgression(t *testing.T) {
	t.Parallel()

	p := Policy{Backoff: config.BackoffConfig{Initial: 2 * time.Second, Max: 10 * time.Second, Multiplier: 2}}
	wants := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second}
	for attempt, want := range wants {
		if got := p.delay(attempt); got != want {
			t.Errorf("delay(%d) = %v, want %v", attempt, got, want)
		}
	}
}

func TestPolicyDelayDefaults(t *testing.T) {
	t.Parallel()

	var p Policy
	if got := p.delay(0); got != time.Second {
		t.Errorf("default initial delay = %v, want 1s", got)
	}
	if got := p.delay(1); got != 2*time.Second {
		t.Errorf("default second delay = %v, want 2s", got)
	}
}

func TestPolicyDelayJitterBounds(t *testing.T) {
	t.Parallel()

	p := Policy{Backoff: config.BackoffConfig{Initial: time.Second, Max: time.Minute, Multiplier: 2, Jitter: 0.5}}
	for i := 0; i < 50; i++ {
		d := p.delay(0)
		if d < time.Second || d > 1500*time.Millisecond {
			t.Fatalf("jittered delay %v outside [1s, 1.5s]", d)
		}
	}
}
