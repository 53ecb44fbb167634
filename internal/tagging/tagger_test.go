package tagging

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-intake/internal/config"
	apperrors "github.com/spec-kit/ticket-intake/pkg/util/errorutil"
)

type fakeGenerator struct {
	output      string
	err         error
	block       bool
	prompt      string
	maxTokens   int
	temperature float64
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	g.prompt, g.maxTokens, g.temperature = prompt, maxTokens, temperature
	if g.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return g.output, g.err
}

func newTestTagger(gen *fakeGenerator, timeout int) *Tagger {
	cfg := config.ModelConfig{MaxTokens: 512, Temperature: 0.1, TimeoutSeconds: timeout}
	return NewTagger(gen, cfg, zap.NewNop(), nil)
}

func TestBuildPromptIsDeterministic(t *testing.T) {
	a := BuildPrompt("Printer jam", "Out of paper", "a@x.com")
	b := BuildPrompt("Printer jam", "Out of paper", "a@x.com")
	assert.Equal(t, a, b)

	assert.Contains(t, a, `{"subject":"Printer jam","description":"Out of paper","email":"a@x.com"}`)
	assert.Contains(t, a, "Example 1:")
	assert.Contains(t, a, "Example 2:")
	assert.True(t, strings.HasSuffix(a, strictOpen+"\n"))
}

func TestBuildPromptEscapesTicketFields(t *testing.T) {
	p := BuildPrompt(`say "hi"`, "line1\nline2 <b>&</b>", "x@y.z")
	assert.Contains(t, p, `"subject":"say \"hi\""`)
	assert.Contains(t, p, `"description":"line1\nline2 <b>&</b>"`)
}

func TestExtractPassesGenerationParameters(t *testing.T) {
	gen := &fakeGenerator{output: `{"department":"IT","priority":"P2 - General"}` + "\n" + strictClose}
	tags, err := newTestTagger(gen, 0).Extract(context.Background(), "s", "d", "e@x.com")
	require.NoError(t, err)

	assert.Equal(t, BuildPrompt("s", "d", "e@x.com"), gen.prompt)
	assert.Equal(t, 512, gen.maxTokens)
	assert.InDelta(t, 0.1, gen.temperature, 1e-9)
	require.NotNil(t, tags.Department)
	assert.Equal(t, "IT", *tags.Department)
	assert.Nil(t, tags.TechGroup)
}

func TestInvokeStripsEchoedPrompt(t *testing.T) {
	prompt := BuildPrompt("s", "d", "e")
	gen := &fakeGenerator{output: prompt + `  {"department":"IT"}` + "\n</Output_Properties>  "}

	out, err := newTestTagger(gen, 0).Invoke(context.Background(), prompt)
	require.NoError(t, err)
	assert.Equal(t, `{"department":"IT"}`+"\n</Output_Properties>", out)
}

func TestExtractIgnoresInexactlyEchoedExamples(t *testing.T) {
	prompt := BuildPrompt("Broken door", "Lobby door will not close", "f@x.com")
	echo := strings.TrimSuffix(prompt, "\n")
	gen := &fakeGenerator{output: echo + `{"department":"Facilities","techgroup":null,"category":"Building","subcategory":"Doors","priority":"P3 - Low"}</Output_Properties>`}

	tags, err := newTestTagger(gen, 0).Extract(context.Background(), "Broken door", "Lobby door will not close", "f@x.com")
	require.NoError(t, err)
	require.NotNil(t, tags.Department)
	assert.Equal(t, "Facilities", *tags.Department)
	assert.Equal(t, "P3 - Low", *tags.Priority)
	assert.Nil(t, tags.TechGroup)
}

func TestBuildPromptExamplesDoNotMatchExtraction(t *testing.T) {
	_, err := ExtractTags(examples)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeExtraction))
}

func TestExtractModelFailureIsNotExtractionError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("cuda out of memory")}

	_, err := newTestTagger(gen, 0).Extract(context.Background(), "s", "d", "e")
	require.Error(t, err)
	assert.False(t, apperrors.HasCode(err, apperrors.CodeExtraction))
}

func TestExtractUnparseableOutput(t *testing.T) {
	gen := &fakeGenerator{output: "I am not sure."}

	_, err := newTestTagger(gen, 0).Extract(context.Background(), "s", "d", "e")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeExtraction))
}

func TestInvokeTimesOut(t *testing.T) {
	gen := &fakeGenerator{block: true}
	tagger := newTestTagger(gen, 0)
	tagger.timeout = 20 * time.Millisecond

	_, err := tagger.Invoke(context.Background(), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
