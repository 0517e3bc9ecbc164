package file

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// envMap builds a lookup func so tests never see the real environment.
func envMap(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func newTestStore(t *testing.T, dir string, env map[string]string) *ConfigStore {
	t.Helper()
	store, err := NewConfigStore(dir, WithEnvLookup(envMap(env)))
	require.NoError(t, err)
	return store
}

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store := newTestStore(t, tmpDir, nil)

	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_WithNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	store := newTestStore(t, dir, nil)
	require.NoError(t, store.Set("k", "v"))

	_, err := os.Stat(filepath.Join(dir, "config.toml"))
	assert.NoError(t, err)
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/create/dirs")

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("this is not valid TOML {{{[["), 0600))

	store, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte{}, 0600))

	store := newTestStore(t, tmpDir, nil)

	val, ok := store.Get("any_key")
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := newTestStore(t, t.TempDir(), nil)

	require.NoError(t, store.Set("s", "hello"))
	require.NoError(t, store.Set("i", 42))
	require.NoError(t, store.Set("f", 0.25))
	require.NoError(t, store.Set("b", true))
	require.NoError(t, store.Set("list", []string{"a", "b"}))

	assert.Equal(t, "hello", store.GetString("s"))
	assert.Equal(t, 42, store.GetInt("i"))
	assert.Equal(t, 0.25, store.GetFloat("f"))
	assert.Equal(t, 42.0, store.GetFloat("i"))
	assert.True(t, store.GetBool("b"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("list"))

	// Wrong types and missing keys yield zero values.
	assert.Equal(t, "", store.GetString("i"))
	assert.Equal(t, 0, store.GetInt("s"))
	assert.Equal(t, 0.0, store.GetFloat("b"))
	assert.False(t, store.GetBool("s"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_SaveReload_NestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	store := newTestStore(t, tmpDir, nil)

	require.NoError(t, store.Set("llm.provider", "gemini"))
	require.NoError(t, store.Set("llm.max_tokens", 256))
	require.NoError(t, store.Set("store.hnsw.m", 16))
	require.NoError(t, store.Set("compress.threshold", 0.3))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[llm]")

	reloaded := newTestStore(t, tmpDir, nil)
	assert.Equal(t, "gemini", reloaded.GetString("llm.provider"))
	assert.Equal(t, 256, reloaded.GetInt("llm.max_tokens"))
	assert.Equal(t, 16, reloaded.GetInt("store.hnsw.m"))
	assert.Equal(t, 0.3, reloaded.GetFloat("compress.threshold"))
}

func TestConfigStore_SetConflictKeepsPreviousState(t *testing.T) {
	store := newTestStore(t, t.TempDir(), nil)
	require.NoError(t, store.Set("llm.provider", "gemini"))

	err := store.Set("llm", "flat")

	require.Error(t, err)
	_, ok := store.Get("llm")
	assert.False(t, ok)
	assert.Equal(t, "gemini", store.GetString("llm.provider"))
}

func TestConfigStore_EnvOverride(t *testing.T) {
	store := newTestStore(t, t.TempDir(), map[string]string{
		"SERCHA_RAG_RETRIEVAL_K":          "7",
		"SERCHA_RAG_LLM_TEMPERATURE":      "0.5",
		"SERCHA_RAG_WATCH_ENABLED":        "true",
		"SERCHA_RAG_NORMALISERS_DISABLED": "md, txt",
	})
	require.NoError(t, store.Set("retrieval.k", 3))

	assert.Equal(t, 7, store.GetInt("retrieval.k"))
	assert.Equal(t, 0.5, store.GetFloat("llm.temperature"))
	assert.True(t, store.GetBool("watch.enabled"))
	assert.Equal(t, []string{"md", "txt"}, store.GetStringSlice("normalisers.disabled"))

	// Overrides are never written to disk.
	require.NoError(t, store.Save())
	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "0.5")
}

func TestConfigStore_ProviderKeyFallback(t *testing.T) {
	tests := []struct {
		name     string
		section  string
		provider string
		env      map[string]string
		want     string
	}{
		{name: "gemini", section: "llm", provider: "gemini", env: map[string]string{"GEMINI_API_KEY": "g"}, want: "g"},
		{name: "google alias", section: "llm", provider: "gemini", env: map[string]string{"GOOGLE_API_KEY": "gg"}, want: "gg"},
		{name: "openai embedding", section: "embedding", provider: "openai", env: map[string]string{"OPENAI_API_KEY": "o"}, want: "o"},
		{name: "cohere", section: "rerank", provider: "cohere", env: map[string]string{"COHERE_API_KEY": "c"}, want: "c"},
		{name: "wrong provider", section: "llm", provider: "ollama", env: map[string]string{"OPENAI_API_KEY": "o"}, want: ""},
		{name: "explicit override wins", section: "llm", provider: "openai", env: map[string]string{
			"OPENAI_API_KEY": "o", "SERCHA_RAG_LLM_API_KEY": "explicit",
		}, want: "explicit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t, t.TempDir(), tt.env)
			require.NoError(t, store.Set(tt.section+".provider", tt.provider))

			assert.Equal(t, tt.want, store.GetString(tt.section+".api_key"))
		})
	}
}

func TestConfigStore_StoredKeyBeatsProviderFallback(t *testing.T) {
	store := newTestStore(t, t.TempDir(), map[string]string{"OPENAI_API_KEY": "env"})
	require.NoError(t, store.Set("llm.provider", "openai"))
	require.NoError(t, store.Set("llm.api_key", "stored"))

	assert.Equal(t, "stored", store.GetString("llm.api_key"))
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "SERCHA_RAG_STORE_HNSW_EF_SEARCH", EnvKey("store.hnsw.ef_search"))
	assert.Equal(t, "SERCHA_RAG_SERVER_ADDR", EnvKey("server.addr"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store := newTestStore(t, t.TempDir(), nil)
	require.NoError(t, store.Set("test", "value"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := newTestStore(t, t.TempDir(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := "key" + strconv.Itoa(id)
			_ = store.Set(key, id)
			_ = store.GetInt(key)
			_ = store.GetString(key)
			_, _ = store.Get(key)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 3, store.GetInt("key3"))
}

func TestFlattenUnflatten(t *testing.T) {
	flat := flattenMap(map[string]any{
		"a": map[string]any{"b": int64(1), "c": map[string]any{"d": "x"}},
		"e": true,
	}, "")
	assert.Equal(t, map[string]any{"a.b": int64(1), "a.c.d": "x", "e": true}, flat)

	nested, err := unflattenMap(flat)
	require.NoError(t, err)
	assert.Equal(t, "x", nested["a"].(map[string]any)["c"].(map[string]any)["d"])
}
