package mineru

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parchlab/ragpipe/internal/core/domain"
)

// writeScript writes an executable shell script standing in for the
// MinerU binary. Scripts receive the real argument list (-p pdf -o dir).
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "fake-mineru")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func writePDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 stub"), 0o644))
	return path
}

func TestExtract_Success(t *testing.T) {
	script := writeScript(t, `mkdir -p "$4/doc/auto"
printf '# Title\n\nExtracted body text.\n' > "$4/doc/auto/doc.md"`)
	ext := New(Config{Command: script})

	text, err := ext.Extract(context.Background(), writePDF(t))
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nExtracted body text.", text)
}

func TestExtract_PlainTextFallback(t *testing.T) {
	script := writeScript(t, `printf 'plain output' > "$4/out.txt"`)
	ext := New(Config{Command: script})

	text, err := ext.Extract(context.Background(), writePDF(t))
	require.NoError(t, err)
	assert.Equal(t, "plain output", text)
}

func TestExtract_CommandFailure(t *testing.T) {
	script := writeScript(t, `echo 'model checkpoint missing' >&2
exit 3`)
	ext := New(Config{Command: script})

	_, err := ext.Extract(context.Background(), writePDF(t))
	require.Error(t, err)

	var exErr *domain.ExtractionError
	require.ErrorAs(t, err, &exErr)
	assert.Contains(t, exErr.Output, "model checkpoint missing")
}

func TestExtract_Timeout(t *testing.T) {
	// The background sleep survives the kill of the script itself and
	// keeps the inherited stderr pipe open; the call must still return
	// shortly after the deadline instead of waiting for it.
	script := writeScript(t, `sleep 5 &
wait`)
	ext := New(Config{Command: script, Timeout: 100 * time.Millisecond})

	start := time.Now()
	_, err := ext.Extract(context.Background(), writePDF(t))
	require.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)

	var exErr *domain.ExtractionError
	require.ErrorAs(t, err, &exErr)
	assert.Contains(t, exErr.Error(), "timed out")
}

func TestExtract_NoOutputFile(t *testing.T) {
	script := writeScript(t, `mkdir -p "$4/doc"`)
	ext := New(Config{Command: script})

	_, err := ext.Extract(context.Background(), writePDF(t))
	require.Error(t, err)

	var exErr *domain.ExtractionError
	require.ErrorAs(t, err, &exErr)
	assert.Contains(t, exErr.Error(), "no markdown or text output")
}

func TestExtract_EmptyOutput(t *testing.T) {
	script := writeScript(t, `printf '   \n' > "$4/doc.md"`)
	ext := New(Config{Command: script})

	_, err := ext.Extract(context.Background(), writePDF(t))
	require.Error(t, err)

	var exErr *domain.ExtractionError
	require.ErrorAs(t, err, &exErr)
	assert.Contains(t, exErr.Error(), "empty document")
}

func TestExtract_MissingPDF(t *testing.T) {
	ext := New(Config{Command: "true"})

	_, err := ext.Extract(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"))
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestExtract_EmptyPath(t *testing.T) {
	ext := New(Config{})

	_, err := ext.Extract(context.Background(), "  ")
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestExtract_CleansUpTempDir(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "outdir.txt")
	script := writeScript(t, `printf '%s' "$4" > `+marker+`
printf 'text' > "$4/doc.md"`)
	ext := New(Config{Command: script})

	_, err := ext.Extract(context.Background(), writePDF(t))
	require.NoError(t, err)

	outDir, err := os.ReadFile(marker)
	require.NoError(t, err)
	_, statErr := os.Stat(string(outDir))
	assert.True(t, os.IsNotExist(statErr))
}

func TestNew_Defaults(t *testing.T) {
	ext := New(Config{})
	assert.Equal(t, DefaultCommand, ext.command)
	assert.Equal(t, DefaultTimeout, ext.timeout)
}
