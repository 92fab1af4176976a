package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBbCache_SlotIsStableForSameVA(t *testing.T) {
	c := NewBbCache(2)
	s1 := c.Slot(0x1000)
	s2 := c.Slot(0x1000)
	assert.Same(t, s1, s2)
}

func TestBbCache_FreshCacheMisses(t *testing.T) {
	c := NewBbCache(2)
	slot := c.Slot(0x1000)
	assert.NotEqual(t, uint64(0x1000), slot.VA)
	assert.Equal(t, PoisonVA, slot.VA)
}

func TestBbCache_InvalidateResetsAllSlots(t *testing.T) {
	c := NewBbCache(2)
	slot := c.Slot(0x1000)
	slot.VA = 0x1000

	c.Invalidate()

	assert.Equal(t, PoisonVA, c.Slot(0x1000).VA)
}
