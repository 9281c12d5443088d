package session

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_SetGetDelete(t *testing.T) {
	reg := NewRegistry()

	sess := &Session{ID: "a"}
	reg.Set("a", sess)

	got, ok := reg.Get("a")
	assert.True(t, ok)
	assert.Same(t, sess, got)
	assert.True(t, reg.Has("a"))
	assert.Equal(t, 1, reg.Len())

	reg.Delete("a")
	_, ok = reg.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_DeleteMissingIsNoop(t *testing.T) {
	reg := NewRegistry()
	reg.Delete("missing")
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_IDs(t *testing.T) {
	reg := NewRegistry()
	reg.Set("b", &Session{ID: "b"})
	reg.Set("a", &Session{ID: "a"})

	ids := reg.IDs()
	sort.Strings(ids)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		id := string(rune('a' + i%26))
		go func(id string) {
			defer wg.Done()
			reg.Set(id, &Session{ID: id})
		}(id)
		go func(id string) {
			defer wg.Done()
			reg.Get(id)
			reg.Has(id)
		}(id)
	}
	wg.Wait()
	assert.Equal(t, 26, reg.Len())
}
