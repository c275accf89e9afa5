package gbp

import "testing"

func TestRingBufferEnqueueDequeue(t *testing.T) {
	r := NewRingBuffer(make([]byte, 3))
	if !r.Enqueue(1) || !r.Enqueue(2) || !r.Enqueue(3) {
		t.Fatalf("unexpected failure enqueuing within capacity")
	}
	if r.Enqueue(4) {
		t.Fatalf("expected Enqueue to fail once the buffer is full")
	}
	if got := r.Count(); got != 3 {
		t.Fatalf("Count() = %d, want 3", got)
	}

	for _, want := range []byte{1, 2, 3} {
		got, ok := r.Dequeue()
		if !ok || got != want {
			t.Fatalf("Dequeue() = %d,%v want %d,true", got, ok, want)
		}
	}
	if _, ok := r.Dequeue(); ok {
		t.Fatalf("expected Dequeue to fail on an empty buffer")
	}
}

func TestRingBufferStageCommitRollback(t *testing.T) {
	r := NewRingBuffer(make([]byte, 4))
	r.StageByte(10)
	r.StageByte(20)
	if r.Count() != 0 {
		t.Fatalf("staged bytes must not be visible before Commit, got count %d", r.Count())
	}
	r.Rollback()
	if r.Count() != 0 || r.Free() != 4 {
		t.Fatalf("Rollback should discard staged bytes entirely, count=%d free=%d", r.Count(), r.Free())
	}

	r.StageByte(30)
	r.Commit()
	if got := r.Count(); got != 1 {
		t.Fatalf("Count() after Commit = %d, want 1", got)
	}
	got, ok := r.Peek(0)
	if !ok || got != 30 {
		t.Fatalf("Peek(0) = %d,%v want 30,true", got, ok)
	}
}

func TestRingBufferWrapsAroundAfterDequeue(t *testing.T) {
	r := NewRingBuffer(make([]byte, 3))
	r.Enqueue(1)
	r.Enqueue(2)
	r.Dequeue()
	r.Enqueue(3)
	r.Enqueue(4)

	var got []byte
	for {
		b, ok := r.Dequeue()
		if !ok {
			break
		}
		got = append(got, b)
	}
	want := []byte{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("drained %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("drained %v, want %v", got, want)
		}
	}
}
