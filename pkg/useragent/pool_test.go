package useragent

import "testing"

func TestPool_RoundRobin(t *testing.T) {
	p := NewPool([]string{"a", "b", "c"})

	got := []string{p.Next(), p.Next(), p.Next(), p.Next()}
	want := []string{"a", "b", "c", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestPool_DefaultsWhenEmpty(t *testing.T) {
	p := NewPool(nil)
	if p.Len() == 0 {
		t.Fatal("expected non-empty default pool")
	}
	if p.Next() == "" {
		t.Error("expected non-empty User-Agent")
	}
}

func TestPool_RandomIsMember(t *testing.T) {
	p := NewPool([]string{"x", "y"})
	for i := 0; i < 10; i++ {
		ua := p.Random()
		if ua != "x" && ua != "y" {
			t.Fatalf("unexpected User-Agent %q", ua)
		}
	}
}

func TestPool_CopiesInput(t *testing.T) {
	src := []string{"one"}
	p := NewPool(src)
	src[0] = "mutated"
	if p.Next() != "one" {
		t.Error("pool should not observe external mutation")
	}
}
