package embedding

import (
	"testing"
)

func TestVectorCache_StoreLookup(t *testing.T) {
	c := NewVectorCache(2)
	if v, ok := c.Lookup("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Store("a", []float32{1, 2, 3})
	v, ok := c.Lookup("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Lookup: got %v, %v", v, ok)
	}
	c.Store("b", []float32{4, 5})
	c.Store("c", []float32{6}) // replaces a
	if _, ok := c.Lookup("a"); ok {
		t.Error("expected a to be dropped")
	}
	if _, ok := c.Lookup("b"); !ok {
		t.Error("expected b to remain")
	}
	if _, ok := c.Lookup("c"); !ok {
		t.Error("expected c to be present")
	}
	if c.Len() != 2 {
		t.Errorf("Len=%d, want 2", c.Len())
	}
}

func TestVectorCache_LookupRefreshesRecency(t *testing.T) {
	c := NewVectorCache(2)
	c.Store("a", []float32{1})
	c.Store("b", []float32{2})
	c.Lookup("a")
	c.Store("c", []float32{3})
	if _, ok := c.Lookup("b"); ok {
		t.Error("expected b to be dropped")
	}
	if _, ok := c.Lookup("a"); !ok {
		t.Error("expected a to remain")
	}
}

func TestVectorCache_StoreOverwrites(t *testing.T) {
	c := NewVectorCache(1)
	c.Store("a", []float32{1})
	c.Store("a", []float32{9})
	v, _ := c.Lookup("a")
	if len(v) != 1 || v[0] != 9 {
		t.Errorf("got %v, want [9]", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len=%d, want 1", c.Len())
	}
}

func TestVectorCache_SlotReuseAcrossManyKeys(t *testing.T) {
	c := NewVectorCache(3)
	keys := []string{"a", "b", "c", "d", "e", "f", "g"}
	for i, k := range keys {
		c.Store(k, []float32{float32(i)})
	}
	for _, k := range keys[:4] {
		if _, ok := c.Lookup(k); ok {
			t.Errorf("expected %s to be dropped", k)
		}
	}
	for i, k := range keys[4:] {
		v, ok := c.Lookup(k)
		if !ok || v[0] != float32(i+4) {
			t.Errorf("Lookup(%s) = %v, %v", k, v, ok)
		}
	}
	if c.Len() != 3 {
		t.Errorf("Len=%d, want 3", c.Len())
	}
}

func TestVectorCache_CallersCannotModifyStoredVectors(t *testing.T) {
	c := NewVectorCache(1)
	in := []float32{1, 2}
	c.Store("a", in)
	in[0] = 100

	out, _ := c.Lookup("a")
	out[1] = 200

	again, _ := c.Lookup("a")
	if again[0] != 1 || again[1] != 2 {
		t.Errorf("cached vector changed to %v, want [1 2]", again)
	}
}

func TestVectorCache_ZeroLimitHoldsOne(t *testing.T) {
	c := NewVectorCache(0)
	c.Store("a", []float32{1})
	c.Store("b", []float32{2})
	if _, ok := c.Lookup("a"); ok {
		t.Error("expected a to be dropped")
	}
	if _, ok := c.Lookup("b"); !ok {
		t.Error("expected b to be present")
	}
}
