package pool

import "testing"

type pooledCounter struct {
	n int
}

func TestSyncObjectPoolGetConstructsOnEmpty(t *testing.T) {
	built := 0
	p := NewSyncObjectPool(func() *pooledCounter {
		built++
		return &pooledCounter{}
	})

	c := p.Get()
	if c == nil {
		t.Fatal("expected a non-nil object")
	}
	if built != 1 {
		t.Fatalf("newFn called %d times, want 1", built)
	}
}

func TestSyncObjectPoolPutReusesInstance(t *testing.T) {
	p := NewSyncObjectPool(func() *pooledCounter { return &pooledCounter{} })

	c := p.Get()
	c.n = 42
	p.Put(c)

	reused := p.Get()
	if reused != c {
		t.Fatal("expected Get to hand back the instance Put returned")
	}
	if reused.n != 42 {
		t.Fatalf("n = %d, want 42 (pool does not reset contents)", reused.n)
	}
}
