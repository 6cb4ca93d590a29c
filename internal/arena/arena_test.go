package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArena(t *testing.T) {
	a := New[string](2)

	i := a.Append("first")
	j := a.Append("second")

	assert.True(t, i.Valid())
	assert.False(t, None.Valid())
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, "first", *a.Get(i))
	assert.Equal(t, "second", *a.Get(j))

	*a.Get(i) = "mutated"
	assert.Equal(t, "mutated", *a.Get(i))

	a.Reset()
	assert.Equal(t, 0, a.Len())
}
