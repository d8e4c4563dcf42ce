package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/inkwell/pkg/adapters/memory"
)

// Lock entries are dropped once the last caller is done, whatever the outcome.
func TestManager_LocksAreReleased(t *testing.T) {
	mgr := NewManager(nil, memory.NewStore())
	ctx := context.Background()
	boom := errors.New("boom")

	var wg sync.WaitGroup
	for i := range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i%7)
			_ = mgr.WithLock(ctx, id, func(context.Context) error {
				if i%3 == 0 {
					return boom
				}
				return nil
			})
			_ = mgr.Delete(ctx, id)
		}()
	}
	wg.Wait()

	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if n := len(mgr.locks); n != 0 {
		t.Errorf("expected no lock entries after all calls returned, got %d", n)
	}
}
