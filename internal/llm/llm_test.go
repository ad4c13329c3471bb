package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// keep-alive connections of the shared transport wind down on their own
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		// started by opencensus init, pulled in through genai
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

var testMsgs = []Message{
	{Role: RoleSystem, Content: "You are an advisor."},
	{Role: RoleSystem, Content: "Be brief."},
	{Role: RoleUser, Content: "Should I buy?"},
}

func sse(w http.ResponseWriter, lines ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	for _, l := range lines {
		fmt.Fprintf(w, "%s\n\n", l)
	}
}

func TestOpenAI_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req oaiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		assert.False(t, req.Stream)
		assert.InDelta(t, 0.7, req.Temperature, 1e-6)
		assert.Equal(t, 2000, req.MaxTokens)
		assert.Len(t, req.Messages, 3)
		assert.Equal(t, "system", req.Messages[0].Role)

		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Wait."}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAI("openai", srv.URL+"/", "sk-test", "gpt-4o", Options{})
	out, err := p.Generate(context.Background(), testMsgs)
	require.NoError(t, err)
	assert.Equal(t, "Wait.", out)
}

func TestOpenAI_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req oaiRequest
		json.NewDecoder(r.Body).Decode(&req)
		assert.True(t, req.Stream)
		sse(w,
			`data: {"choices":[{"delta":{"content":"Hello"}}]}`,
			`: keep-alive comment`,
			`data: {"choices":[{"delta":{"content":" world"}}]}`,
			`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`,
			`data: [DONE]`,
		)
	}))
	defer srv.Close()

	p := NewOpenAI("kimi", srv.URL, "k", "m", Options{})
	ch, err := p.Stream(context.Background(), testMsgs)
	require.NoError(t, err)

	var deltas []string
	out, err := Collect(ch, func(d string) { deltas = append(deltas, d) })
	require.NoError(t, err)
	assert.Equal(t, "Hello world", out)
	assert.Equal(t, []string{"Hello", " world"}, deltas)
}

func TestOpenAI_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAI("openai", srv.URL, "bad", "m", Options{}).Generate(context.Background(), testMsgs)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Incorrect API key provided", apiErr.Message)
	assert.False(t, apiErr.Retryable())
}

func TestOpenAI_StreamCancelDoesNotLeak(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sse(w, `data: {"choices":[{"delta":{"content":"first"}}]}`)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := NewOpenAI("openai", srv.URL, "k", "m", Options{}).Stream(ctx, testMsgs)
	require.NoError(t, err)

	first := <-ch
	assert.Equal(t, "first", first.Delta)
	cancel()

	// the channel must be closed once the producer notices the cancellation
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream goroutine did not exit after cancel")
		}
	}
}

func TestAnthropic_FoldsSystemAndStreams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "ak", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "You are an advisor.\n\nBe brief.", req.System)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, 2000, req.MaxTokens)

		if !req.Stream {
			w.Write([]byte(`{"content":[{"type":"text","text":"Invert."}]}`))
			return
		}
		sse(w,
			`event: message_start`,
			`data: {"type":"message_start","message":{}}`,
			`data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
			`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Always "}}`,
			`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"invert."}}`,
			`data: {"type":"message_stop"}`,
		)
	}))
	defer srv.Close()

	p := NewAnthropic(srv.URL, "ak", "", Options{})
	assert.Equal(t, "claude-sonnet-4-20250514", p.Model())

	out, err := p.Generate(context.Background(), testMsgs)
	require.NoError(t, err)
	assert.Equal(t, "Invert.", out)

	ch, err := p.Stream(context.Background(), testMsgs)
	require.NoError(t, err)
	out, err = Collect(ch, nil)
	require.NoError(t, err)
	assert.Equal(t, "Always invert.", out)
}

func TestAnthropic_StreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sse(w,
			`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"partial"}}`,
			`data: {"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`,
		)
	}))
	defer srv.Close()

	ch, err := NewAnthropic(srv.URL, "ak", "m", Options{}).Stream(context.Background(), testMsgs)
	require.NoError(t, err)
	out, err := Collect(ch, nil)
	assert.Equal(t, "partial", out)
	assert.ErrorContains(t, err, "Overloaded")
}

func TestRetry_RecoversFromServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	p := WithRetry(NewOpenAI("openai", srv.URL, "k", "m", Options{}), 2,
		WithBaseDelay(time.Millisecond), WithLogger(zap.NewNop()))
	out, err := p.Generate(context.Background(), testMsgs)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetry_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := WithRetry(NewOpenAI("openai", srv.URL, "k", "m", Options{}), 2, WithBaseDelay(time.Millisecond))
	_, err := p.Stream(context.Background(), testMsgs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "rate limited, please wait", apiErr.Message)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetry_SkipsClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p := WithRetry(NewOpenAI("openai", srv.URL, "k", "m", Options{}), 3, WithBaseDelay(time.Millisecond))
	_, err := p.Generate(context.Background(), testMsgs)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetry_Pacing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	p := WithRetry(NewOpenAI("openai", srv.URL, "k", "m", Options{}), 0, WithRequestRate(20))
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := p.Generate(context.Background(), testMsgs)
		require.NoError(t, err)
	}
	// burst of 1 at 20/s: the 2nd and 3rd calls wait ~50ms each
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, Config{Provider: "palm"}, nil)
	assert.ErrorIs(t, err, ErrUnknownProvider)

	_, err = New(ctx, Config{Provider: "anthropic"}, nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	p, err := New(ctx, Config{Provider: "ollama"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	p, err = New(ctx, Config{Provider: "SiliconFlow", APIKey: "k"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "siliconflow", p.Name())
	assert.Equal(t, "deepseek-ai/DeepSeek-V3", DefaultModel("siliconflow"))
}

func TestParseProviderError(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   string
	}{
		{400, `{"error":{"message":"bad model"}}`, "bad model"},
		{400, `{"message":"flat message"}`, "flat message"},
		{404, `not json`, "model or endpoint not found"},
		{529, ``, "provider is overloaded, please try again later"},
		{418, `I'm a teapot`, "I'm a teapot"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseProviderError(tt.status, []byte(tt.body)), "status %d", tt.status)
	}
}

func TestCollect_StopsOnError(t *testing.T) {
	ch := make(chan StreamChunk, 3)
	ch <- StreamChunk{Delta: "a"}
	ch <- StreamChunk{Error: errors.New("cut off")}
	close(ch)

	out, err := Collect(ch, nil)
	assert.Equal(t, "a", out)
	assert.EqualError(t, err, "cut off")
}

func TestFriendlyError(t *testing.T) {
	assert.Equal(t, "connection refused (is the service running?)",
		FriendlyError(errors.New("dial tcp 127.0.0.1:11434: connect: connection refused")))
	assert.Contains(t, FriendlyError(&APIError{Provider: "openai", StatusCode: 401, Message: "nope"}), "HTTP 401")
}
