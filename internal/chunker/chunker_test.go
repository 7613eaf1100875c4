package chunker

import (
	"strings"
	"testing"
)

func TestChunksOnPunctuation(t *testing.T) {
	c := New()
	var fragments []Fragment
	for _, ch := range "Hi. Bye!" {
		if frag, ok := c.Push(string(ch)); ok {
			fragments = append(fragments, frag)
		}
	}
	if frag, ok := c.Flush(); ok {
		fragments = append(fragments, frag)
	}

	if len(fragments) != 2 {
		t.Fatalf("got %d fragments, want 2: %+v", len(fragments), fragments)
	}
	if fragments[0].Text != "Hi." || fragments[0].Seq != 1 {
		t.Fatalf("fragments[0] = %+v, want {1 Hi.}", fragments[0])
	}
	if fragments[1].Text != "Bye!" || fragments[1].Seq != 2 {
		t.Fatalf("fragments[1] = %+v, want {2 Bye!}", fragments[1])
	}
}

func TestChunksOnSixtyCharThreshold(t *testing.T) {
	c := New()
	var fragments []Fragment
	for _, ch := range strings.Repeat("a", 70) {
		if frag, ok := c.Push(string(ch)); ok {
			fragments = append(fragments, frag)
		}
	}
	if frag, ok := c.Flush(); ok {
		fragments = append(fragments, frag)
	}

	if len(fragments) != 2 {
		t.Fatalf("got %d fragments, want 2: %+v", len(fragments), fragments)
	}
	if len(fragments[0].Text) != 60 {
		t.Fatalf("fragments[0] length = %d, want 60", len(fragments[0].Text))
	}
	if len(fragments[1].Text) != 10 {
		t.Fatalf("fragments[1] length = %d, want 10", len(fragments[1].Text))
	}
}

func TestFragmentsAreTrimmedAndNeverEmpty(t *testing.T) {
	c := New()
	for _, ch := range "  \n" {
		if frag, ok := c.Push(string(ch)); ok {
			t.Fatalf("unexpected fragment from whitespace-only buffer: %+v", frag)
		}
	}
	if frag, ok := c.Flush(); ok {
		t.Fatalf("unexpected fragment from Flush on whitespace-only buffer: %+v", frag)
	}
}

func TestSequenceNumbersMonotonicFromOne(t *testing.T) {
	c := New()
	var seqs []int
	for _, ch := range "a.b.c.d." {
		if frag, ok := c.Push(string(ch)); ok {
			seqs = append(seqs, frag.Seq)
		}
	}
	want := []int{1, 2, 3, 4}
	if len(seqs) != len(want) {
		t.Fatalf("seqs = %v, want %v", seqs, want)
	}
	for i, w := range want {
		if seqs[i] != w {
			t.Fatalf("seqs[%d] = %d, want %d", i, seqs[i], w)
		}
	}
}

func TestNoFragmentOnStreamEndWhenBufferEmpty(t *testing.T) {
	c := New()
	if _, ok := c.Push("Hi!"); !ok {
		t.Fatalf("expected fragment on punctuation")
	}
	if _, ok := c.Flush(); ok {
		t.Fatalf("expected no fragment from an already-flushed buffer")
	}
}
