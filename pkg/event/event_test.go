package event

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalOmitsContentForThinkingDone(t *testing.T) {
	data, err := json.Marshal(ThinkingDone())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"thinking_done"}`, string(data))

	data, err = json.Marshal(FinalAnswer(""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"final_answer","content":""}`, string(data))
}

func TestUnmarshalRejectsUnknownType(t *testing.T) {
	var e Event
	err := json.Unmarshal([]byte(`{"type":"thinking_header","content":"x"}`), &e)
	require.Error(t, err)
}

func TestTerminal(t *testing.T) {
	assert.True(t, FinalAnswer("ok").Terminal())
	assert.True(t, Error("boom").Terminal())
	assert.False(t, ThinkingChunk("x").Terminal())
	assert.False(t, ThinkingDone().Terminal())
	assert.False(t, StatusUpdate("x").Terminal())
}

func TestEncodeDecode(t *testing.T) {
	var buf bytes.Buffer
	in := []Event{StatusUpdate("searching"), ThinkingChunk("a \"quoted\" word"), ThinkingDone(), FinalAnswer("done")}
	for _, e := range in {
		require.NoError(t, Encode(&buf, e))
	}
	assert.Contains(t, buf.String(), "data: {\"type\":\"status_update\",\"content\":\"searching\"}\n\n")

	var out []Event
	require.NoError(t, Decode(&buf, func(e Event) error {
		out = append(out, e)
		return nil
	}))
	assert.Equal(t, in, out)
}

func TestSSEWriterSetsHeadersAndFlushes(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewSSEWriter(rec)
	require.NoError(t, err)
	require.NoError(t, w.Emit(context.Background(), FinalAnswer("hi")))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))
	assert.True(t, rec.Flushed)
	assert.Equal(t, "data: {\"type\":\"final_answer\",\"content\":\"hi\"}\n\n", rec.Body.String())
}

func TestChannelSinkHonoursContext(t *testing.T) {
	ch := make(chan Event)
	sink := NewChannelSink(ch)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sink.Emit(ctx, ThinkingDone())
	assert.ErrorIs(t, err, context.Canceled)
}
