package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallOrder(t *testing.T) {
	o := NewCallOrder([]int{7, 3, 50, 12, 88})

	assert.True(t, o.Called(50))
	assert.False(t, o.Called(51))
	assert.Equal(t, 2, o.Marked([]int{3, 4, 12}))

	pos, ok := o.CompletedAt([]int{88, 3, 12, 1}, 2)
	assert.True(t, ok)
	assert.Equal(t, 3, pos, "second of {3@1, 12@3, 88@4} is 12")

	_, ok = o.CompletedAt([]int{88, 3, 1}, 3)
	assert.False(t, ok)

	pos, ok = o.AllAt([]int{50, 7})
	assert.True(t, ok)
	assert.Equal(t, 2, pos)

	_, ok = o.CompletedAt(nil, 1)
	assert.False(t, ok)
}
