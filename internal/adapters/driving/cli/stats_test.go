package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestStatsCmd_Table(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("stats")

	require.NoError(t, err)
	assert.Contains(t, out, "Documents:  2")
	assert.Contains(t, out, "Chunks:     12")
	assert.Contains(t, out, "Dimension:  768")
	assert.Contains(t, out, "Generation: 4")
}

func TestStatsCmd_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("stats", "--json")
	require.NoError(t, err)

	var stats domain.StoreStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, domain.StoreStats{Chunks: 12, Sources: 2, Dimension: 768, Generation: 4}, stats)
}
