package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRevealGate_ThresholdIsCeiled(t *testing.T) {
	assert.Equal(t, 8, newRevealGate(10, 0.8, nil).need)
	assert.Equal(t, 7, newRevealGate(10, 0.7, nil).need)
	assert.Equal(t, 3, newRevealGate(3, 0.8, nil).need)
	assert.Equal(t, 0, newRevealGate(5, -1, nil).need)
	assert.Equal(t, 5, newRevealGate(5, 2, nil).need)
}

func TestRevealGate_CompletionNotSuccessSatisfiesMustHave(t *testing.T) {
	g := newRevealGate(3, 0, []string{"B"})

	assert.False(t, g.complete("A"))
	assert.True(t, g.complete("B"))
	assert.True(t, g.complete("C"))
}

func TestRevealGate_OnceOpenStaysOpen(t *testing.T) {
	g := newRevealGate(4, 0.5, nil)

	assert.False(t, g.complete("A"))
	assert.True(t, g.complete("B"))
	assert.True(t, g.complete("C"))
	assert.True(t, g.complete("D"))
}
