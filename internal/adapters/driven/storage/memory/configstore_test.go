package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

func TestConfigStore_ImplementsInterface(t *testing.T) {
	var _ driven.ConfigStore = NewConfigStore()
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("llm.model", "gemini-2.0-flash"))
	require.NoError(t, store.Set("llm.model", "gemini-2.5-flash"))

	val, ok := store.Get("llm.model")
	assert.True(t, ok)
	assert.Equal(t, "gemini-2.5-flash", val)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("retrieval.k", 5)
	_ = store.Set("retrieval.chunk_size", int64(800))
	_ = store.Set("store.m", float64(16))
	_ = store.Set("rerank.top_n", "4")
	_ = store.Set("compress.threshold", "0.45")
	_ = store.Set("llm.temperature", 0.2)
	_ = store.Set("guard.burst", "x")
	_ = store.Set("watch.enabled", "true")
	_ = store.Set("server.tls", true)
	_ = store.Set("tags", []any{"a", 1, "b"})

	assert.Equal(t, 5, store.GetInt("retrieval.k"))
	assert.Equal(t, 800, store.GetInt("retrieval.chunk_size"))
	assert.Equal(t, 16, store.GetInt("store.m"))
	assert.Equal(t, 4, store.GetInt("rerank.top_n"))
	assert.Equal(t, 0, store.GetInt("guard.burst"))
	assert.InDelta(t, 0.45, store.GetFloat("compress.threshold"), 1e-9)
	assert.InDelta(t, 0.2, store.GetFloat("llm.temperature"), 1e-9)
	assert.InDelta(t, 5.0, store.GetFloat("retrieval.k"), 1e-9)
	assert.True(t, store.GetBool("watch.enabled"))
	assert.True(t, store.GetBool("server.tls"))
	assert.False(t, store.GetBool("missing"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("tags"))
	assert.Empty(t, store.GetString("retrieval.k"), "non-string values are not stringified")
}

func TestConfigStore_NoOpPersistence(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("key", "value")

	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, "value", store.GetString("key"))
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set(fmt.Sprintf("key.%d", n), n)
		}(i)
		go func(n int) {
			defer wg.Done()
			_ = store.GetInt(fmt.Sprintf("key.%d", n))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		assert.Equal(t, i, store.GetInt(fmt.Sprintf("key.%d", i)))
	}
}
