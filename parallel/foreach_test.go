package parallel

import "errors"
import "sync/atomic"
import "testing"

func TestForEach(t *testing.T) {
	var seen = make([]int32, 100)
	var running, peak int32
	ForEach(len(seen), 3, func(i int) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		atomic.AddInt32(&seen[i], 1)
		atomic.AddInt32(&running, -1)
	})
	for i, v := range seen {
		if v != 1 {
			t.Errorf("index %d visited %d times", i, v)
		}
	}
	if peak > 3 {
		t.Errorf("limit exceeded: %d", peak)
	}
}

func TestForEachErr(t *testing.T) {
	err := ForEachErr(10, 4, func(i int) error {
		if i == 7 || i == 3 {
			return errors.New(string(rune('0' + i)))
		}
		return nil
	})
	if err == nil || err.Error() != "3" {
		t.Errorf("expected lowest index error, got %v", err)
	}
	if ForEachErr(0, 4, nil) != nil {
		t.Error("empty loop failed")
	}
}

func TestThreads(t *testing.T) {
	if Threads(5) != 5 {
		t.Error("explicit thread count ignored")
	}
	if Threads(0) < 1 {
		t.Error("no threads detected")
	}
}
