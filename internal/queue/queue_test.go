package queue

import (
	"sync"
	"testing"
)

type row struct {
	Seq  int
	Name string
}

func TestQueue_PushTake(t *testing.T) {
	q := New[row]()
	q.Push(row{Seq: 1}, row{Seq: 2})
	q.Push(row{Seq: 3})

	if q.Len() != 3 {
		t.Fatalf("expected 3 items, got %d", q.Len())
	}

	got := q.Take()
	if len(got) != 3 || got[0].Seq != 1 || got[2].Seq != 3 {
		t.Errorf("unexpected batch %v", got)
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue after Take, got %d", q.Len())
	}
	if got := q.Take(); len(got) != 0 {
		t.Errorf("expected empty batch, got %v", got)
	}
}

func TestQueue_RequeueKeepsOrder(t *testing.T) {
	q := New[int]()
	q.Push(1, 2)
	batch := q.Take()
	q.Push(3)
	q.Requeue(batch)

	got := q.Take()
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestQueue_RequeueEmpty(t *testing.T) {
	q := New[int]()
	q.Requeue(nil)
	if q.Len() != 0 {
		t.Errorf("expected empty queue, got %d", q.Len())
	}
}

func TestQueue_BoundedDropsOldest(t *testing.T) {
	q := NewBounded[int](3)
	q.Push(1, 2, 3, 4)
	q.Requeue([]int{0})

	got := q.Take()
	if len(got) != 3 || got[0] != 2 || got[2] != 4 {
		t.Errorf("expected [2 3 4], got %v", got)
	}
	if q.Lost() != 2 {
		t.Errorf("expected 2 lost, got %d", q.Lost())
	}
}

func TestQueue_Concurrent(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup
	var mu sync.Mutex
	taken := 0

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Push(n*100 + j)
			}
		}(i)
		go func() {
			defer wg.Done()
			n := len(q.Take())
			mu.Lock()
			taken += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	if total := taken + q.Len(); total != 1000 {
		t.Errorf("expected 1000 items in total, got %d", total)
	}
}
