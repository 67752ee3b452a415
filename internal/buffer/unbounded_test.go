package buffer

import (
	"testing"
	"time"
)

func TestUnboundedPreservesOrder(t *testing.T) {
	in, out := Unbounded[int](4, 1000)

	go func() {
		for i := 0; i < 100; i++ {
			in <- i
		}
		close(in)
	}()

	next := 0
	for v := range out {
		if v != next {
			t.Fatalf("got %d, want %d", v, next)
		}
		next++
	}
	if next != 100 {
		t.Fatalf("received %d items, want 100", next)
	}
}

func TestUnboundedWriterNeverBlocks(t *testing.T) {
	in, out := Unbounded[int](4, 1000)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			in <- i
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("writer blocked with no reader")
	}

	close(in)
	n := 0
	for range out {
		n++
	}
	if n != 500 {
		t.Fatalf("flushed %d items, want 500", n)
	}
}

func TestUnboundedCloseFlushes(t *testing.T) {
	in, out := Unbounded[string](4, 1000)
	in <- "a"
	in <- "b"
	close(in)

	var got []string
	for v := range out {
		got = append(got, v)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("flushed %v, want [a b]", got)
	}
}
