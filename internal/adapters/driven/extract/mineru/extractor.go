// Package mineru extracts text from PDF files by shelling out to the
// MinerU command-line tool. MinerU writes markdown output into a
// directory; the extractor collects the first markdown or text file it
// produced and returns its contents.
package mineru

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parchlab/ragpipe/internal/core/domain"
	"github.com/parchlab/ragpipe/internal/core/ports/driven"
	"github.com/parchlab/ragpipe/internal/logger"
)

const (
	// DefaultCommand is the MinerU executable looked up on PATH.
	DefaultCommand = "mineru"

	// DefaultTimeout bounds a single extraction run. MinerU loads
	// heavyweight models on first use, so this is generous.
	DefaultTimeout = 180 * time.Second

	// maxStderrBytes caps how much of MinerU's stderr is carried into
	// the returned error.
	maxStderrBytes = 4096

	// killGracePeriod bounds how long Wait may linger after the timeout
	// kill. MinerU spawns worker processes that inherit the stderr pipe;
	// without this, a surviving worker keeps the pipe open and the call
	// blocks past its deadline.
	killGracePeriod = 2 * time.Second
)

// Config holds the extractor settings.
type Config struct {
	// Command is the MinerU executable. Defaults to DefaultCommand.
	Command string

	// Timeout bounds a single extraction. The process is killed when
	// it expires. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// Extractor runs MinerU as an external process.
type Extractor struct {
	command string
	timeout time.Duration
}

var _ driven.Extractor = (*Extractor)(nil)

// New creates a MinerU extractor.
func New(cfg Config) *Extractor {
	if cfg.Command == "" {
		cfg.Command = DefaultCommand
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Extractor{
		command: cfg.Command,
		timeout: cfg.Timeout,
	}
}

// Extract runs MinerU against pdfPath and returns the extracted text.
// Output is written to a private temp directory that is removed before
// returning, so only the text survives the call.
func (e *Extractor) Extract(ctx context.Context, pdfPath string) (string, error) {
	if strings.TrimSpace(pdfPath) == "" {
		return "", fmt.Errorf("%w: pdf path is required", domain.ErrValidation)
	}
	if _, err := os.Stat(pdfPath); err != nil {
		return "", fmt.Errorf("%w: pdf file not accessible: %s", domain.ErrValidation, pdfPath)
	}

	outDir := filepath.Join(os.TempDir(), "ragpipe-mineru-"+uuid.NewString())
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", &domain.ExtractionError{Err: fmt.Errorf("creating output directory: %w", err)}
	}
	defer os.RemoveAll(outDir)

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	logger.Debug("running %s on %s (timeout %s)", e.command, pdfPath, e.timeout)

	cmd := exec.CommandContext(runCtx, e.command, "-p", pdfPath, "-o", outDir)
	cmd.WaitDelay = killGracePeriod
	var stderr strings.Builder
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	logger.Debug("%s finished in %s", e.command, time.Since(start).Round(time.Millisecond))

	if runCtx.Err() == context.DeadlineExceeded {
		return "", &domain.ExtractionError{
			Output: tail(stderr.String()),
			Err:    fmt.Errorf("%s timed out after %s", e.command, e.timeout),
		}
	}
	if err != nil {
		return "", &domain.ExtractionError{
			Output: tail(stderr.String()),
			Err:    fmt.Errorf("%s failed: %w", e.command, err),
		}
	}

	textPath, err := findTextFile(outDir)
	if err != nil {
		return "", &domain.ExtractionError{
			Output: tail(stderr.String()),
			Err:    err,
		}
	}

	data, err := os.ReadFile(textPath)
	if err != nil {
		return "", &domain.ExtractionError{Err: fmt.Errorf("reading extracted file: %w", err)}
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", &domain.ExtractionError{
			Output: tail(stderr.String()),
			Err:    fmt.Errorf("%s produced an empty document", e.command),
		}
	}
	return text, nil
}

// findTextFile walks root and returns the first markdown or plain-text
// file MinerU produced, in lexical walk order.
func findTextFile(root string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".markdown", ".txt":
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scanning output directory: %w", err)
	}
	if found == "" {
		return "", fmt.Errorf("no markdown or text output found")
	}
	return found, nil
}

// tail returns at most the last maxStderrBytes of s, trimmed.
func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderrBytes {
		s = s[len(s)-maxStderrBytes:]
	}
	return s
}
