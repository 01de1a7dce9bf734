package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agent "github.com/Protocol-Lattice/research-agent"
	"github.com/Protocol-Lattice/research-agent/pkg/event"
	"github.com/Protocol-Lattice/research-agent/pkg/history"
	"github.com/Protocol-Lattice/research-agent/pkg/metrics"
	"github.com/Protocol-Lattice/research-agent/pkg/models"
	"github.com/Protocol-Lattice/research-agent/pkg/upload"
)

type fakeAgent struct {
	mu   sync.Mutex
	reqs []agent.Request
}

func (f *fakeAgent) Stream(ctx context.Context, req agent.Request, sink event.Sink) error {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if err := sink.Emit(ctx, event.StatusUpdate("working")); err != nil {
		return err
	}
	return sink.Emit(ctx, event.FinalAnswer("done: "+req.Prompt))
}

func (f *fakeAgent) last(t *testing.T) agent.Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.reqs)
	return f.reqs[len(f.reqs)-1]
}

func newTestServer(t *testing.T, opts Options) (*httptest.Server, *fakeAgent) {
	t.Helper()
	fa := &fakeAgent{}
	if opts.Agent == nil {
		opts.Agent = fa
	}
	opts.Logger = zerolog.Nop()
	s, err := New(opts)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, fa
}

func readEvents(t *testing.T, resp *http.Response) []event.Event {
	t.Helper()
	var out []event.Event
	require.NoError(t, event.Decode(resp.Body, func(e event.Event) error {
		out = append(out, e)
		return nil
	}))
	return out
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestChatAgentStreamsEvents(t *testing.T) {
	ts, fa := newTestServer(t, Options{})
	resp := postJSON(t, ts.URL+"/api/chat-agent", `{"prompt":"hi","session_id":"s1"}`)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "no", resp.Header.Get("X-Accel-Buffering"))

	evs := readEvents(t, resp)
	require.Len(t, evs, 2)
	assert.Equal(t, event.TypeFinalAnswer, evs[1].Type)
	assert.Equal(t, "done: hi", evs[1].Content)
	assert.Equal(t, "s1", fa.last(t).SessionID)
}

func TestChatAgentSessionResolution(t *testing.T) {
	ts, fa := newTestServer(t, Options{})

	postJSON(t, ts.URL+"/api/chat-agent", `{"prompt":"a","user_id":"u","conversation_id":"c"}`)
	assert.Equal(t, "u:c", fa.last(t).SessionID)

	postJSON(t, ts.URL+"/api/chat-agent", `{"prompt":"b"}`)
	assert.Equal(t, agent.DefaultSessionID, fa.last(t).SessionID)
}

func TestChatAgentRejectsBadInput(t *testing.T) {
	ts, _ := newTestServer(t, Options{})

	resp := postJSON(t, ts.URL+"/api/chat-agent", `{"prompt":"   "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/chat-agent", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func multipartBody(t *testing.T, fields map[string]string, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postFile(t *testing.T, url string, fields map[string]string, filename string, data []byte) *http.Response {
	t.Helper()
	body, ctype := multipartBody(t, fields, filename, data)
	resp, err := http.Post(url, ctype, body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestChatWithFileDocument(t *testing.T) {
	ts, fa := newTestServer(t, Options{})
	resp := postFile(t, ts.URL+"/api/chat-with-file",
		map[string]string{"prompt": "summarise", "session_id": "s2"}, "notes.txt", []byte("quarterly numbers"))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	readEvents(t, resp)
	req := fa.last(t)
	require.NotNil(t, req.Document)
	assert.Nil(t, req.Image)
	assert.Equal(t, "notes.txt", req.Document.Filename)
	assert.Equal(t, "quarterly numbers", req.Document.Text)
	assert.Equal(t, "s2", req.SessionID)
}

func TestChatWithFileImage(t *testing.T) {
	ts, fa := newTestServer(t, Options{})
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	resp := postFile(t, ts.URL+"/api/chat-with-file",
		map[string]string{"prompt": "what is this", "session_id": "s3"}, "cat.png", png)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	readEvents(t, resp)
	req := fa.last(t)
	require.NotNil(t, req.Image)
	assert.Equal(t, png, req.Image.Data)
	assert.Equal(t, "image/png", req.Image.MIME)
}

func TestChatWithFileErrors(t *testing.T) {
	parser := upload.NewParser()
	parser.MaxBytes = 8
	ts, _ := newTestServer(t, Options{Parser: parser})
	url := ts.URL + "/api/chat-with-file"
	fields := map[string]string{"prompt": "p", "session_id": "s"}

	resp := postFile(t, url, fields, "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postFile(t, url, fields, "run.exe", []byte("MZ"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postFile(t, url, fields, "big.txt", []byte("0123456789"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	var detail map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&detail))
	assert.NotEmpty(t, detail["detail"])
}

func TestRootHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	ts, _ := newTestServer(t, Options{Metrics: metrics.New(reg), Gatherer: reg})

	for _, path := range []string{"/", "/health"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.NotEmpty(t, body["status"], path)
	}

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	assert.Contains(t, buf.String(), `route="/health"`)
}

func TestRateLimitPerClient(t *testing.T) {
	ts, _ := newTestServer(t, Options{RateLimit: 0.001, RateBurst: 1})

	resp := postJSON(t, ts.URL+"/api/chat-agent", `{"prompt":"one"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/chat-agent", `{"prompt":"two"}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/chat-agent", strings.NewReader(`{"prompt":"three"}`))
	require.NoError(t, err)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	other, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer other.Body.Close()
	assert.Equal(t, http.StatusOK, other.StatusCode)
}

func TestClientLimiterSweepsIdleClients(t *testing.T) {
	now := time.Unix(0, 0)
	cl := newClientLimiter(1, 1)
	cl.now = func() time.Time { return now }
	assert.True(t, cl.allow("a"))
	now = now.Add(limiterIdle + time.Second)
	assert.True(t, cl.allow("b"))
	_, kept := cl.clients["a"]
	assert.False(t, kept)
}

func TestCORSPreflight(t *testing.T) {
	ts, _ := newTestServer(t, Options{CORSOrigins: []string{"https://app.example"}})
	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/chat-agent", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "https://app.example", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestEndToEndWithDummyModel(t *testing.T) {
	a, err := agent.New(agent.Options{
		Model:   models.NewDummyLLM("echo:"),
		History: history.NewMemoryStore(),
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	ts, _ := newTestServer(t, Options{Agent: a})

	resp := postJSON(t, ts.URL+"/api/chat-agent", `{"prompt":"explain tides","session_id":"e2e"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	evs := readEvents(t, resp)
	require.NotEmpty(t, evs)
	last := evs[len(evs)-1]
	assert.Equal(t, event.TypeFinalAnswer, last.Type)
	for _, e := range evs[:len(evs)-1] {
		assert.False(t, e.Terminal())
	}
}
