package registry

import (
	"sync"
	"testing"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex(t *testing.T) {
	idx := NewIndex[int]("step kind")
	assert.Equal(t, 0, idx.Len())

	require.NoError(t, idx.Register("npm", 2))
	require.NoError(t, idx.Register("apt", 1))

	err := idx.Register("apt", 3)
	assert.True(t, errors.IsErrorCode(err, errors.ErrAlreadyExists))
	assert.Contains(t, err.Error(), `step kind "apt" is already registered`)

	err = idx.Register("", 4)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))

	v, err := idx.Get("apt")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = idx.Get("brew")
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
	assert.Contains(t, err.Error(), `unknown step kind "brew"`)

	assert.True(t, idx.Has("npm"))
	assert.False(t, idx.Has("brew"))
	assert.Equal(t, []string{"apt", "npm"}, idx.Names())
	assert.Equal(t, 2, idx.Len())
}

func TestIndex_Concurrent(t *testing.T) {
	idx := NewIndex[string]("thing")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = idx.Register(string(rune('a'+i%26)), "x")
			_ = idx.Names()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 26, idx.Len())
}

func TestMustRegister(t *testing.T) {
	idx := NewIndex[string]("step kind")
	MustRegister(idx, "apt", "x")
	assert.Panics(t, func() { MustRegister(idx, "apt", "y") })
}
