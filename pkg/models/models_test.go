package models

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDummyLLMDefaultPrefix(t *testing.T) {
	llm := NewDummyLLM("")
	resp, err := llm.Generate(context.Background(), "line1\nline2")
	require.NoError(t, err)
	assert.Equal(t, "Dummy response: line2", resp)
}

func TestNewDummyLLMUsesLastNonEmptyLine(t *testing.T) {
	llm := NewDummyLLM("Prefix:")
	resp, err := llm.Generate(context.Background(), "first\n\nsecond\n  \nthird")
	require.NoError(t, err)
	assert.Equal(t, "Prefix: third", resp)
}

func TestDummyLLMHandlesEmptyPrompt(t *testing.T) {
	llm := NewDummyLLM("Prefix")
	resp, err := llm.Generate(context.Background(), "\n\n\n")
	require.NoError(t, err)
	assert.Equal(t, "Prefix <empty prompt>", resp)
}

func TestDummyStreamCollects(t *testing.T) {
	llm := NewDummyLLM("Echo:")
	ch, err := llm.GenerateStream(context.Background(), StreamRequest{Prompt: "hello there"})
	require.NoError(t, err)
	text, err := Collect(context.Background(), ch)
	require.NoError(t, err)
	assert.Equal(t, "Echo: hello there", text)
}

func TestNewLLMProviderErrorsOnUnknownProvider(t *testing.T) {
	_, err := NewLLMProvider(context.Background(), ProviderConfig{Provider: "unknown"})
	require.Error(t, err)
}

func TestNewLLMProviderDummyWithTimeout(t *testing.T) {
	llm, err := NewLLMProvider(context.Background(), ProviderConfig{Provider: "dummy", Timeout: time.Second})
	require.NoError(t, err)
	_, wrapped := llm.(*timeoutAgent)
	assert.True(t, wrapped)
	out, err := llm.Generate(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "Dummy response: ping", out)
}

func TestGeminiRequiresKey(t *testing.T) {
	_, err := NewGeminiLLM(context.Background(), " ", "gemini-2.5-flash")
	require.Error(t, err)
}

func TestMergeHistory(t *testing.T) {
	in := []Message{
		{Role: RoleModel, Content: "hi"},
		{Role: RoleUser, Content: "a"},
		{Role: "system", Content: "b"},
		{Role: RoleModel, Content: "   "},
		{Role: RoleModel, Content: "c"},
	}
	assert.Equal(t, []Message{
		{Role: RoleModel, Content: "hi"},
		{Role: RoleUser, Content: "a\n\nb"},
		{Role: RoleModel, Content: "c"},
	}, mergeHistory(in))
}

func TestNormalizeMIME(t *testing.T) {
	assert.Equal(t, "image/jpeg", normalizeMIME("x.bin", "image/jpg"))
	assert.Equal(t, "image/png", normalizeMIME("photo.PNG", ""))
	assert.Equal(t, "image/webp", normalizeMIME("a.webp", "application/octet-stream"))
	assert.Equal(t, "text/plain", normalizeMIME("a.txt", "text/plain; charset=utf-8"))
}

func TestInlineTextFiles(t *testing.T) {
	out := inlineTextFiles("question", []File{
		{Name: "notes.txt", Data: []byte("body")},
		{Name: "pic.png", Data: []byte{0x89}},
	})
	assert.Equal(t, "question\n\n<<<FILE notes.txt [text/plain]>>>\nbody\n<<<END FILE notes.txt>>>", out)
}

type slowAgent struct{}

func (slowAgent) Generate(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (slowAgent) GenerateStream(ctx context.Context, _ StreamRequest) (<-chan StreamChunk, error) {
	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		<-ctx.Done()
	}()
	return ch, nil
}

func TestWithTimeoutBoundsGenerate(t *testing.T) {
	llm := WithTimeout(slowAgent{}, 10*time.Millisecond)
	_, err := llm.Generate(context.Background(), "x")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestWithTimeoutClosesStream(t *testing.T) {
	llm := WithTimeout(slowAgent{}, 10*time.Millisecond)
	ch, err := llm.GenerateStream(context.Background(), StreamRequest{Prompt: "x"})
	require.NoError(t, err)
	for range ch {
	}
}

// hangingStream sends one delta, then waits for ctx and tries to report
// the failure the way the SDK-backed providers do.
type hangingStream struct{}

func (hangingStream) Generate(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (hangingStream) GenerateStream(ctx context.Context, _ StreamRequest) (<-chan StreamChunk, error) {
	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		if !send(ctx, ch, StreamChunk{Delta: "partial "}) {
			return
		}
		<-ctx.Done()
		send(ctx, ch, StreamChunk{Done: true, Err: ctx.Err()})
	}()
	return ch, nil
}

func TestWithTimeoutStreamReportsDeadline(t *testing.T) {
	for i := 0; i < 100; i++ {
		llm := WithTimeout(hangingStream{}, 2*time.Millisecond)
		ch, err := llm.GenerateStream(context.Background(), StreamRequest{Prompt: "x"})
		require.NoError(t, err)
		text, err := Collect(context.Background(), ch)
		require.ErrorIs(t, err, context.DeadlineExceeded, "run %d", i)
		assert.Equal(t, "partial ", text)
	}
}

func TestWithTimeoutSilentStreamReportsDeadline(t *testing.T) {
	llm := WithTimeout(slowAgent{}, 5*time.Millisecond)
	ch, err := llm.GenerateStream(context.Background(), StreamRequest{Prompt: "x"})
	require.NoError(t, err)
	_, err = Collect(context.Background(), ch)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithTimeoutKeepsFinishedStream(t *testing.T) {
	llm := WithTimeout(NewDummyLLM("ok"), time.Second)
	ch, err := llm.GenerateStream(context.Background(), StreamRequest{Prompt: "hello"})
	require.NoError(t, err)
	text, err := Collect(context.Background(), ch)
	require.NoError(t, err)
	assert.Equal(t, "ok hello", text)
}

type countingAgent struct {
	calls atomic.Int32
}

func (c *countingAgent) Generate(_ context.Context, prompt string) (string, error) {
	c.calls.Add(1)
	return "out:" + prompt, nil
}

func (c *countingAgent) GenerateStream(ctx context.Context, req StreamRequest) (<-chan StreamChunk, error) {
	return NewDummyLLM("").GenerateStream(ctx, req)
}

func TestCachedLLMMemoisesGenerate(t *testing.T) {
	inner := &countingAgent{}
	llm := NewCachedLLM(inner, "router", 8, time.Minute)
	for i := 0; i < 3; i++ {
		out, err := llm.Generate(context.Background(), "same")
		require.NoError(t, err)
		assert.Equal(t, "out:same", out)
	}
	assert.EqualValues(t, 1, inner.calls.Load())
	assert.EqualValues(t, 2, llm.Stats().Hits)
}
