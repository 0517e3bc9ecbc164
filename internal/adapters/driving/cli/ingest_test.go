package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func writeTestFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	return path
}

func TestIngestCmd_RequiresPath(t *testing.T) {
	_, err := execute("ingest")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestIngestCmd_File(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	path := writeTestFile(t, t.TempDir(), "paper.pdf")

	out, err := execute("ingest", path)

	require.NoError(t, err)
	assert.Contains(t, out, "Ingested paper.pdf: 2 pages, 5 chunks")
	assert.Contains(t, out, "title: Test Title")
	require.Len(t, ts.ingest.requests, 1)
	assert.Equal(t, path, ts.ingest.requests[0].Path)
	assert.Empty(t, ts.ingest.requests[0].Source)
}

func TestIngestCmd_SourceAndAttributes(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	path := writeTestFile(t, t.TempDir(), "paper.pdf")

	out, err := execute("ingest", "--source", "doc-42", "--attr", "team=research", path)

	require.NoError(t, err)
	assert.Contains(t, out, "Ingested doc-42")
	require.Len(t, ts.ingest.requests, 1)
	assert.Equal(t, "doc-42", ts.ingest.requests[0].Source)
	assert.Equal(t, map[string]string{"team": "research"}, ts.ingest.requests[0].Attributes)
}

func TestIngestCmd_SourceWithManyFiles(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	dir := t.TempDir()

	_, err := execute("ingest", "--source", "x", writeTestFile(t, dir, "a.pdf"), writeTestFile(t, dir, "b.pdf"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "single file")
}

func TestIngestCmd_DuplicateIsSkipped(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	path := writeTestFile(t, t.TempDir(), "paper.pdf")
	ts.ingest.errs[path] = domain.ErrDuplicateDocument

	out, err := execute("ingest", path)

	require.NoError(t, err)
	assert.Contains(t, out, "already indexed")
}

func TestIngestCmd_FailureReturnsError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	dir := t.TempDir()
	good := writeTestFile(t, dir, "good.pdf")
	bad := writeTestFile(t, dir, "bad.pdf")
	ts.ingest.errs[bad] = errors.New("pdftotext: exit status 1")

	out, err := execute("ingest", good, bad, filepath.Join(dir, "missing.pdf"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 document(s) failed")
	assert.Contains(t, out, "Ingested good.pdf")
	assert.Contains(t, out, "pdftotext: exit status 1")
	assert.Len(t, ts.ingest.requests, 2, "missing file never reaches the service")
}

func TestIngestCmd_Directory(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	dir := t.TempDir()
	ts.ingest.dirReport = &domain.DirReport{
		Ingested: []domain.IngestReport{{Source: "a.pdf", Pages: 1, Chunks: 2}},
		Skipped:  []string{"b.pdf"},
		Failed:   map[string]error{},
	}

	out, err := execute("ingest", dir)

	require.NoError(t, err)
	assert.Equal(t, []string{dir}, ts.ingest.dirs)
	assert.Contains(t, out, "Ingested a.pdf: 1 pages, 2 chunks")
	assert.Contains(t, out, "Skipped b.pdf: already indexed")
}

func TestIngestCmd_EmptyDirectory(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("ingest", t.TempDir())

	require.NoError(t, err)
	assert.Contains(t, out, "No supported documents found.")
}

func TestIngestCmd_JSONOutput(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	path := writeTestFile(t, t.TempDir(), "paper.pdf")

	out, err := execute("ingest", "--json", path)
	require.NoError(t, err)

	var summary ingestSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	require.Len(t, summary.Ingested, 1)
	assert.Equal(t, "paper.pdf", summary.Ingested[0].Source)
	assert.Empty(t, summary.Failed)
}

func TestIngestCmd_ServiceNotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	ingestService = nil

	_, err := execute("ingest", t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest service not configured")
}
