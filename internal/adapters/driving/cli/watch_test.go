package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/watch"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestWatchCmd_RequiresDir(t *testing.T) {
	_, err := execute("watch")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestWatchCmd_MissingDir(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("watch", "/non/existent/dir")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory error")
}

func TestWatchReporter(t *testing.T) {
	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	report := watchReporter(cmd)

	report(watch.Result{Path: "/in/a.pdf", Report: &domain.IngestReport{Source: "a.pdf", Pages: 3, Chunks: 9}})
	report(watch.Result{Path: "/in/b.pdf", Err: domain.ErrDuplicateDocument})
	report(watch.Result{Path: "/in/c.pdf", Err: errors.New("broken xref table")})

	out := buf.String()
	assert.Contains(t, out, "Ingested a.pdf: 3 pages, 9 chunks")
	assert.Contains(t, out, "Skipped /in/b.pdf: already indexed")
	assert.Contains(t, out, "Failed /in/c.pdf: broken xref table")
}
