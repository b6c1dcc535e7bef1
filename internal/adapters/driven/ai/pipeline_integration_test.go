package ai

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	localembed "github.com/parchlab/ragpipe/internal/adapters/driven/embedding/local"
	"github.com/parchlab/ragpipe/internal/adapters/driven/storage/sqlite"
	"github.com/parchlab/ragpipe/internal/core/services"
)

// recordingLLM captures the prompt and answers with a fixed string, so
// the full pipeline can run without a network.
type recordingLLM struct {
	system string
	prompt string
}

func (l *recordingLLM) Generate(_ context.Context, system, prompt string) (string, error) {
	l.system = system
	l.prompt = prompt
	return "See Source 1.", nil
}

func (l *recordingLLM) ModelName() string { return "recording" }
func (l *recordingLLM) Close() error      { return nil }

// TestPipeline_EndToEnd ingests a small FAQ document through the real
// chunker, local embedder and sqlite store, then checks that a payload
// question retrieves the payload section as the best match.
func TestPipeline_EndToEnd(t *testing.T) {
	ctx := context.Background()

	store, err := sqlite.NewStore(t.TempDir(), 384)
	require.NoError(t, err)
	defer store.Close()

	embedder := localembed.NewEmbeddingService(localembed.Config{Dimensions: 384})
	llm := &recordingLLM{}

	svc := services.NewPipelineService(store, embedder, llm, nil)

	faq, err := os.ReadFile("testdata/acme_faq.md")
	require.NoError(t, err)

	result, err := svc.Ingest(ctx, "Acme Robotics FAQ", string(faq), 400)
	require.NoError(t, err)
	assert.Equal(t, "Acme Robotics FAQ", result.Title)
	assert.Greater(t, result.Chunks, 1)

	answer, err := svc.Query(ctx,
		"What is the lift capacity of the LiftMate 3000 and how long is the standard warranty?", 4)
	require.NoError(t, err)
	assert.Equal(t, "See Source 1.", answer.Text)
	require.NotEmpty(t, answer.Sources)
	assert.Len(t, answer.Sources, 4)

	// The payload section should surface among the retrieved sources.
	var found bool
	for _, src := range answer.Sources {
		if strings.Contains(src.Content, "800 pounds") {
			found = true
		}
	}
	assert.True(t, found, "expected a retrieved source to mention the rated payload")

	// The generated prompt cites numbered sources built from the chunks.
	assert.Contains(t, llm.prompt, "Source 1 (doc: Acme Robotics FAQ")
	assert.Contains(t, llm.prompt, "Question:")
	assert.Contains(t, llm.system, "RAG assistant")

	// Clearing leaves the store empty for the next run.
	require.NoError(t, svc.Clear(ctx))
	empty, err := svc.Query(ctx, "anything at all", 0)
	require.NoError(t, err)
	assert.Empty(t, empty.Sources)
}
