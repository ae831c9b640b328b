package embedding

import (
	"slices"
	"sync"
)

const noSlot = -1

// vectorSlot is one cache line. prev and next link slots in recency order.
type vectorSlot struct {
	text       string
	vector     []float32
	prev, next int
}

// VectorCache remembers model output per templated input so repeated chunks and
// queries skip the model. It holds at most a fixed number of vectors and, when
// full, reuses the slot of the vector that was looked up or stored longest ago.
// Vectors are copied in both directions, so callers may modify what they pass in
// or get back.
type VectorCache struct {
	mu     sync.Mutex
	slots  []vectorSlot
	byText map[string]int
	newest int
	oldest int
}

// NewVectorCache returns a cache holding up to limit vectors (at least one).
func NewVectorCache(limit int) *VectorCache {
	return &VectorCache{
		slots:  make([]vectorSlot, 0, max(limit, 1)),
		byText: make(map[string]int, max(limit, 1)),
		newest: noSlot,
		oldest: noSlot,
	}
}

// Lookup returns a copy of the vector stored for text.
func (c *VectorCache) Lookup(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.byText[text]
	if !ok {
		return nil, false
	}
	c.touch(i)
	return slices.Clone(c.slots[i].vector), true
}

// Store records a copy of vector under text.
func (c *VectorCache) Store(text string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	vector = slices.Clone(vector)
	if i, ok := c.byText[text]; ok {
		c.slots[i].vector = vector
		c.touch(i)
		return
	}

	var i int
	if len(c.slots) < cap(c.slots) {
		i = len(c.slots)
		c.slots = append(c.slots, vectorSlot{prev: noSlot, next: noSlot})
	} else {
		i = c.oldest
		c.unlink(i)
		delete(c.byText, c.slots[i].text)
	}
	c.slots[i].text = text
	c.slots[i].vector = vector
	c.byText[text] = i
	c.pushNewest(i)
}

// Len reports how many vectors are held.
func (c *VectorCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byText)
}

func (c *VectorCache) touch(i int) {
	if c.newest == i {
		return
	}
	c.unlink(i)
	c.pushNewest(i)
}

func (c *VectorCache) unlink(i int) {
	s := &c.slots[i]
	if s.prev != noSlot {
		c.slots[s.prev].next = s.next
	} else {
		c.oldest = s.next
	}
	if s.next != noSlot {
		c.slots[s.next].prev = s.prev
	} else {
		c.newest = s.prev
	}
	s.prev, s.next = noSlot, noSlot
}

func (c *VectorCache) pushNewest(i int) {
	c.slots[i].prev = c.newest
	c.slots[i].next = noSlot
	if c.newest != noSlot {
		c.slots[c.newest].next = i
	} else {
		c.oldest = i
	}
	c.newest = i
}
