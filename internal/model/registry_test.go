package model

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_SetGetNames(t *testing.T) {
	reg := NewRegistry[int]()

	_, ok := reg.Get("a")
	assert.False(t, ok)
	assert.Empty(t, reg.Names())

	reg.Set("b", 2)
	reg.Set("a", 1)
	reg.Set("a", 3)

	got, ok := reg.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 3, got)
	assert.Equal(t, []string{"a", "b"}, reg.Names())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry[int]()

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := range 100 {
				reg.Set(fmt.Sprintf("model-%d", j%10), i)
			}
		}()
		go func() {
			defer wg.Done()
			for range 100 {
				_ = reg.Names()
				_, _ = reg.Get("model-1")
			}
		}()
	}
	wg.Wait()

	assert.Len(t, reg.Names(), 10)
}
