package locks

import (
	"sync"
	"testing"
)

func TestKeyedSerializesSameKey(t *testing.T) {
	k := NewKeyed()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k.Lock("order_1")
			counter++
			k.Unlock("order_1")
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("expected 50, got %d", counter)
	}
}

func TestKeyedIndependentKeys(t *testing.T) {
	k := NewKeyed()
	k.Lock("a")
	// A different key must not block.
	done := make(chan struct{})
	go func() {
		k.Lock("b")
		k.Unlock("b")
		close(done)
	}()
	<-done
	k.Unlock("a")
}

func TestKeyedCleansUpEntries(t *testing.T) {
	k := NewKeyed()
	k.Lock("x")
	k.Unlock("x")

	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.locks) != 0 {
		t.Fatalf("expected empty lock table, got %d entries", len(k.locks))
	}
}
