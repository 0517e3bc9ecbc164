package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error
	name   string
	args   []string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.name = name
	m.args = args
	return m.output, m.err
}

func writePDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "document.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 fake pdf content"), 0600))
	return path
}

func TestExtensions(t *testing.T) {
	assert.Equal(t, []string{".pdf"}, New().Extensions())
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Parser = (*Normaliser)(nil)
}

func TestNewWithRunner(t *testing.T) {
	runner := &mockRunner{}
	normaliser := NewWithRunner(runner)
	require.NotNil(t, normaliser)
	assert.Equal(t, runner, normaliser.runner)
}

func TestParse_SplitsPagesOnFormFeed(t *testing.T) {
	runner := &mockRunner{output: []byte("Page one text\n\fPage two text\n\f")}
	path := writePDF(t)

	pages, err := NewWithRunner(runner).Parse(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, []domain.PageText{
		{Number: 1, Text: "Page one text"},
		{Number: 2, Text: "Page two text"},
	}, pages)
	assert.Equal(t, "pdftotext", runner.name)
	assert.Equal(t, []string{"-layout", "-enc", "UTF-8", path, "-"}, runner.args)
}

func TestParse_KeepsBlankPages(t *testing.T) {
	runner := &mockRunner{output: []byte("First\f   \fThird\f")}

	pages, err := NewWithRunner(runner).Parse(context.Background(), writePDF(t))

	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, "", pages[1].Text)
	assert.Equal(t, 3, pages[2].Number)
}

func TestParse_NoFormFeed(t *testing.T) {
	runner := &mockRunner{output: []byte("Single page")}

	pages, err := NewWithRunner(runner).Parse(context.Background(), writePDF(t))

	require.NoError(t, err)
	assert.Equal(t, []domain.PageText{{Number: 1, Text: "Single page"}}, pages)
}

func TestParse_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0600))

	_, err := NewWithRunner(&mockRunner{}).Parse(context.Background(), path)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestParse_MissingFile(t *testing.T) {
	_, err := NewWithRunner(&mockRunner{}).Parse(context.Background(), "/does/not/exist.pdf")
	assert.Error(t, err)
}

func TestParse_RunnerError(t *testing.T) {
	runner := &mockRunner{err: errors.New("pdftotext crashed")}

	_, err := NewWithRunner(runner).Parse(context.Background(), writePDF(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
}

func TestParse_ToolMissing(t *testing.T) {
	runner := &mockRunner{err: fmt.Errorf("exec: %w", exec.ErrNotFound)}

	_, err := NewWithRunner(runner).Parse(context.Background(), writePDF(t))

	assert.ErrorIs(t, err, ErrPDFToolNotFound)
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "pdftotext")
	assert.Contains(t, instructions, "brew install poppler")
	assert.Contains(t, instructions, "apt install poppler-utils")
}

func TestErrPDFToolNotFound(t *testing.T) {
	assert.Contains(t, ErrPDFToolNotFound.Error(), "pdftotext")
}

// Integration test - only runs if pdftotext is available.
func TestParse_Integration(t *testing.T) {
	if err := CheckAvailable(); err != nil {
		t.Skip("pdftotext not available, skipping integration test")
	}
	t.Skip("integration test requires sample PDF file")
}
