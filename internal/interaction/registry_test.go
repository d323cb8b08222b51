package interaction

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestTokenRoundTrip(t *testing.T) {
	token := NewToken()

	parsed, err := ParseToken(token.String())
	if err != nil {
		t.Fatalf("ParseToken(%q) failed: %v", token.String(), err)
	}
	if parsed != token {
		t.Errorf("round trip changed token: got %v, want %v", parsed, token)
	}
}

func TestParseTokenMalformed(t *testing.T) {
	for _, input := range []string{"", "not-a-uuid", "0123456789"} {
		_, err := ParseToken(input)
		if !errors.Is(err, ErrMalformedToken) {
			t.Errorf("ParseToken(%q) = %v, want ErrMalformedToken", input, err)
		}
	}
}

func TestRegisterTokensUnique(t *testing.T) {
	r := NewRegistry(testLogger())

	seen := make(map[Token]bool)
	for i := 0; i < 1000; i++ {
		token := r.Register(func(Action) {})
		if seen[token] {
			t.Fatalf("Register returned duplicate token %v", token)
		}
		seen[token] = true
	}
}

func TestResolveAtMostOnce(t *testing.T) {
	r := NewRegistry(testLogger())

	calls := 0
	token := r.Register(func(Action) { calls++ })

	if err := r.Resolve(Action{Token: token, Value: "go"}); err != nil {
		t.Fatalf("first Resolve failed: %v", err)
	}
	if err := r.Resolve(Action{Token: token, Value: "go"}); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("second Resolve = %v, want ErrUnknownToken", err)
	}
	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
}

func TestResolveUnknownToken(t *testing.T) {
	r := NewRegistry(testLogger())

	err := r.Resolve(Action{Token: NewToken()})
	if !errors.Is(err, ErrUnknownToken) {
		t.Errorf("Resolve = %v, want ErrUnknownToken", err)
	}
}

func TestResolveConcurrentSingleDelivery(t *testing.T) {
	r := NewRegistry(testLogger())

	var mu sync.Mutex
	calls := 0
	token := r.Register(func(Action) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	resolved := 0
	var resolvedMu sync.Mutex
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Resolve(Action{Token: token}); err == nil {
				resolvedMu.Lock()
				resolved++
				resolvedMu.Unlock()
			}
		}()
	}
	wg.Wait()

	if resolved != 1 {
		t.Errorf("%d goroutines resolved the token, want exactly 1", resolved)
	}
	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
}

func TestRevoke(t *testing.T) {
	r := NewRegistry(testLogger())

	token := r.Register(func(Action) { t.Error("handler invoked after revoke") })
	r.Revoke(token)

	if err := r.Resolve(Action{Token: token}); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("Resolve after Revoke = %v, want ErrUnknownToken", err)
	}

	// Revoking again is fine.
	r.Revoke(token)
}

func TestDispatchActionsIndependent(t *testing.T) {
	r := NewRegistry(testLogger())

	var got []string
	first := r.Register(func(a Action) { got = append(got, "first:"+a.Value) })
	second := r.Register(func(a Action) { got = append(got, "second:"+a.Value) })

	r.DispatchActions([]RawAction{
		{ActionID: first.String(), Value: "generate-message"},
		{ActionID: "garbage", Value: "x"},
		{ActionID: NewToken().String(), Value: "stale"},
		{ActionID: second.String(), Value: "send"},
	})

	want := []string{"first:generate-message", "second:send"}
	if len(got) != len(want) {
		t.Fatalf("dispatched %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("dispatch[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if r.Len() != 0 {
		t.Errorf("registry still holds %d subscriptions, want 0", r.Len())
	}
}
