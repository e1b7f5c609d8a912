package atomirx

import "testing"

func TestAtomGetSet(t *testing.T) {
	a := NewAtom(5)

	if got := a.Get(); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}

	a.Set(7)
	if got := a.Get(); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
}

func TestAtomEqualityDedup(t *testing.T) {
	a := NewAtom(0)

	calls := 0
	a.On(func() { calls++ })

	a.Set(1)
	a.Set(1)
	a.Set(1)

	if calls != 1 {
		t.Errorf("expected exactly one notification, got %d", calls)
	}
}

func TestAtomShallowEqualityDedup(t *testing.T) {
	a := NewAtom([]int{1, 2}, WithEquality(EqShallow()))

	calls := 0
	a.On(func() { calls++ })

	a.Set([]int{1, 2}) // equal under shallow, fresh identity
	if calls != 0 {
		t.Errorf("expected no notification for shallow-equal value, got %d", calls)
	}

	a.Set([]int{1, 3})
	if calls != 1 {
		t.Errorf("expected one notification, got %d", calls)
	}
}

func TestAtomFuncValue(t *testing.T) {
	f := func() int { return 1 }
	a := NewAtom(f)

	calls := 0
	a.On(func() { calls++ })

	// Rewriting the same func is an equality-dedup no-op, not a panic.
	a.Set(f)
	if calls != 0 {
		t.Errorf("expected no notification for the identical func, got %d", calls)
	}
	if a.Dirty() {
		t.Error("expected a func atom holding its initial value to be clean")
	}

	a.Set(func() int { return 2 })
	if calls != 1 {
		t.Errorf("expected one notification for a distinct func, got %d", calls)
	}
	if !a.Dirty() {
		t.Error("expected dirty after storing a distinct func")
	}
}

func TestAtomDirtyResetSymmetry(t *testing.T) {
	a := NewAtom(10)

	if a.Dirty() {
		t.Fatal("fresh atom must not be dirty")
	}

	a.Set(11)
	if !a.Dirty() {
		t.Fatal("expected dirty after set to unequal value")
	}

	a.Reset()
	if a.Dirty() {
		t.Fatal("expected clean after reset")
	}
	if got := a.Get(); got != 10 {
		t.Fatalf("expected initial 10 after reset, got %d", got)
	}
}

func TestAtomLazyInitializerReinvokedOnReset(t *testing.T) {
	invocations := 0
	a := NewLazyAtom(func() int {
		invocations++
		return invocations * 100
	})

	if got := a.Get(); got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}

	a.Set(1)
	a.Reset()

	if invocations != 2 {
		t.Fatalf("expected initializer re-invoked on reset, got %d invocations", invocations)
	}
	if got := a.Get(); got != 200 {
		t.Fatalf("expected 200 after reset, got %d", got)
	}
	if a.Dirty() {
		t.Fatal("expected clean after reset")
	}
}

func TestAtomUpdateReducer(t *testing.T) {
	a := NewAtom(3)

	a.Update(func(v int) int { return v * 3 })
	if got := a.Get(); got != 9 {
		t.Fatalf("expected 9, got %d", got)
	}
}

func TestAtomReducerPanicLeavesStateUnchanged(t *testing.T) {
	a := NewAtom(3)

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected reducer panic to propagate")
			}
		}()
		a.Update(func(v int) int { panic("boom") })
	}()

	if got := a.Get(); got != 3 {
		t.Fatalf("expected state unchanged after reducer panic, got %d", got)
	}
}

func TestAtomListenerOrderAndDuplicates(t *testing.T) {
	a := NewAtom(0)

	var order []string
	first := func() { order = append(order, "first") }

	a.On(first)
	a.On(func() { order = append(order, "second") })
	unsubDup := a.On(first)

	a.Set(1)
	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "first" {
		t.Fatalf("expected registration-order notification with independent duplicate, got %v", order)
	}

	// Each unsubscribe removes exactly one registration.
	order = nil
	unsubDup()
	a.Set(2)
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("expected duplicate removed exactly once, got %v", order)
	}
}

func TestAtomListenerMutationDuringNotify(t *testing.T) {
	a := NewAtom(0)
	b := NewAtom(0)

	calls := 0
	var unsubOther func()
	a.On(func() {
		// Subscribing/unsubscribing on other atoms mid-notification must not
		// corrupt the iteration.
		if unsubOther != nil {
			unsubOther()
			unsubOther = nil
		} else {
			unsubOther = b.On(func() {})
		}
		calls++
	})
	a.On(func() { calls++ })

	a.Set(1)
	a.Set(2)
	if calls != 4 {
		t.Fatalf("expected 4 listener calls, got %d", calls)
	}
}
