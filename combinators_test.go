package atomirx

import (
	"errors"
	"testing"
	"time"
)

func TestAllReady(t *testing.T) {
	a := NewAtom(1)
	b := NewAtom("two")

	out := Select(func(ctx *Ctx) ([]any, error) {
		return ctx.All(a, b), nil
	})

	if out.Status() != StatusReady {
		t.Fatalf("expected ready, got %v", out.Status())
	}
	if out.Value[0] != 1 || out.Value[1] != "two" {
		t.Fatalf("expected values in input order, got %v", out.Value)
	}
}

func TestAllWaitsForEveryPendingInParallel(t *testing.T) {
	p1, resolve1, _ := NewPromise[int]()
	p2, resolve2, _ := NewPromise[int]()
	a := NewAtom(p1)
	b := NewAtom(p2)

	run := func() *Outcome[[]any] {
		return Select(func(ctx *Ctx) ([]any, error) {
			return ctx.All(a, b), nil
		})
	}

	out := run()
	if out.Status() != StatusPending {
		t.Fatalf("expected pending, got %v", out.Status())
	}

	// The combined awaitable only settles once every pending source has.
	resolve1(10)
	select {
	case <-out.Pending.Done():
		t.Fatal("combined awaitable settled with a source still pending")
	case <-time.After(20 * time.Millisecond):
	}

	resolve2(20)
	select {
	case <-out.Pending.Done():
	case <-time.After(time.Second):
		t.Fatal("combined awaitable never settled")
	}

	again := run()
	if again.Status() != StatusReady || again.Value[0] != 10 || again.Value[1] != 20 {
		t.Fatalf("expected ready [10 20] after both resolved, got %v", again.State())
	}
}

func TestAllCombinedIdentityStableAcrossRuns(t *testing.T) {
	p1, _, _ := NewPromise[int]()
	p2, _, _ := NewPromise[int]()
	a := NewAtom(p1)
	b := NewAtom(p2)

	run := func() *Outcome[[]any] {
		return Select(func(ctx *Ctx) ([]any, error) {
			return ctx.All(a, b), nil
		})
	}

	first := run()
	second := run()
	if first.Pending != second.Pending {
		t.Fatal("expected re-running over the same pendings to reuse the combined awaitable")
	}
}

func TestAllErrorWinsOverPending(t *testing.T) {
	p, _, _ := NewPromise[int]()
	pending := NewAtom(p)
	cause := errors.New("broken")
	failed := NewAtom(Rejected[int](cause))

	out := Select(func(ctx *Ctx) ([]any, error) {
		return ctx.All(pending, failed), nil
	})

	if out.Status() != StatusError || !errors.Is(out.Err, cause) {
		t.Fatalf("expected the rejection to propagate, got %v", out.State())
	}
}

func TestRaceFirstReadyByOrder(t *testing.T) {
	p, _, _ := NewPromise[int]()
	slow := NewAtom(p)
	fast := NewAtom(Resolved(2))
	faster := NewAtom(Resolved(3))

	out := Select(func(ctx *Ctx) (string, error) {
		key, _ := ctx.Race(K("slow", slow), K("fast", fast), K("faster", faster))
		return key, nil
	})

	// Both fast entries are ready; iteration order decides the winner.
	if out.Status() != StatusReady || out.Value != "fast" {
		t.Fatalf("expected first ready entry to win, got %v", out.State())
	}
}

func TestRaceAllPendingSuspends(t *testing.T) {
	p1, resolve1, _ := NewPromise[int]()
	p2, _, _ := NewPromise[int]()
	a := NewAtom(p1)
	b := NewAtom(p2)

	run := func() *Outcome[string] {
		return Select(func(ctx *Ctx) (string, error) {
			key, _ := ctx.Race(K("a", a), K("b", b))
			return key, nil
		})
	}

	out := run()
	if out.Status() != StatusPending {
		t.Fatalf("expected pending, got %v", out.Status())
	}

	resolve1(1)
	select {
	case <-out.Pending.Done():
	case <-time.After(time.Second):
		t.Fatal("race did not settle after the first source resolved")
	}

	again := run()
	if again.Status() != StatusReady || again.Value != "a" {
		t.Fatalf("expected the resolved entry to win, got %v", again.State())
	}
}

func TestRaceErrorPropagates(t *testing.T) {
	cause := errors.New("dead")
	failed := NewAtom(Rejected[int](cause))
	p, _, _ := NewPromise[int]()
	pending := NewAtom(p)

	out := Select(func(ctx *Ctx) (string, error) {
		key, _ := ctx.Race(K("failed", failed), K("pending", pending))
		return key, nil
	})

	if out.Status() != StatusError || !errors.Is(out.Err, cause) {
		t.Fatalf("expected the rejection to propagate, got %v", out.State())
	}
}

func TestRaceZeroEntriesPanics(t *testing.T) {
	defer func() {
		if _, ok := recover().(*MisuseError); !ok {
			t.Fatal("expected misuse panic for zero entries")
		}
	}()
	Select(func(ctx *Ctx) (string, error) {
		key, _ := ctx.Race()
		return key, nil
	})
}

func TestAnySkipsErrors(t *testing.T) {
	failed := NewAtom(Rejected[int](errors.New("down")))
	good := NewAtom(Resolved(7))

	out := Select(func(ctx *Ctx) (any, error) {
		_, value := ctx.Any(K("failed", failed), K("good", good))
		return value, nil
	})

	if out.Status() != StatusReady || out.Value != 7 {
		t.Fatalf("expected errored entry to be skipped, got %v", out.State())
	}
}

func TestAnyAllErroredAggregates(t *testing.T) {
	err1 := errors.New("first down")
	err2 := errors.New("second down")
	a := NewAtom(Rejected[int](err1))
	b := NewAtom(Rejected[int](err2))

	out := Select(func(ctx *Ctx) (any, error) {
		_, value := ctx.Any(K("a", a), K("b", b))
		return value, nil
	})

	if out.Status() != StatusError {
		t.Fatalf("expected error outcome, got %v", out.Status())
	}
	var agg *AggregateError
	if !errors.As(out.Err, &agg) {
		t.Fatalf("expected aggregate error, got %v", out.Err)
	}
	if len(agg.Errors) != 2 || agg.Errors[0] != err1 || agg.Errors[1] != err2 {
		t.Fatalf("expected individual errors in input order, got %v", agg.Errors)
	}
	if !errors.Is(out.Err, err1) || !errors.Is(out.Err, err2) {
		t.Fatal("expected aggregate to unwrap to both causes")
	}
}

func TestAnyPendingBeatsError(t *testing.T) {
	failed := NewAtom(Rejected[int](errors.New("down")))
	p, _, _ := NewPromise[int]()
	pending := NewAtom(p)

	out := Select(func(ctx *Ctx) (any, error) {
		_, value := ctx.Any(K("failed", failed), K("pending", pending))
		return value, nil
	})

	if out.Status() != StatusPending {
		t.Fatalf("expected suspension while an entry can still win, got %v", out.State())
	}
}

func TestSettledNeverPropagatesErrors(t *testing.T) {
	cause := errors.New("partial failure")
	good := NewAtom(Resolved(1))
	bad := NewAtom(Rejected[int](cause))

	out := Select(func(ctx *Ctx) ([]State, error) {
		return ctx.Settled(good, bad), nil
	})

	if out.Status() != StatusReady {
		t.Fatalf("expected ready outcome, got %v", out.State())
	}
	if out.Value[0].Status != StatusReady || out.Value[0].Value != 1 {
		t.Fatalf("expected first slot ready 1, got %+v", out.Value[0])
	}
	if out.Value[1].Status != StatusError || !errors.Is(out.Value[1].Err, cause) {
		t.Fatalf("expected second slot to carry the error, got %+v", out.Value[1])
	}
}

func TestSettledSuspendsUntilAllSettle(t *testing.T) {
	p, resolve, _ := NewPromise[int]()
	pending := NewAtom(p)
	failed := NewAtom(Rejected[int](errors.New("down")))

	run := func() *Outcome[[]State] {
		return Select(func(ctx *Ctx) ([]State, error) {
			return ctx.Settled(pending, failed), nil
		})
	}

	out := run()
	if out.Status() != StatusPending {
		t.Fatalf("expected pending while a slot is unsettled, got %v", out.Status())
	}

	resolve(5)
	select {
	case <-out.Pending.Done():
	case <-time.After(time.Second):
		t.Fatal("settled wait never completed")
	}

	again := run()
	if again.Status() != StatusReady {
		t.Fatalf("expected ready once every slot settled, got %v", again.Status())
	}
	if again.Value[0].Status != StatusReady || again.Value[1].Status != StatusError {
		t.Fatalf("expected [ready error], got %+v", again.Value)
	}
}
