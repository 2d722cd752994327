package reply

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestOpenAIPipeline_KeepsHistory(t *testing.T) {
	var (
		mu       sync.Mutex
		received [][]map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var body struct {
			Messages []map[string]any `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		received = append(received, body.Messages)
		n := len(received)
		mu.Unlock()

		answer := "第一句回复"
		if n > 1 {
			answer = "第二句回复"
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []any{map[string]any{"index": 0, "message": map[string]any{"role": "assistant", "content": answer}, "finish_reason": "stop"}},
			"usage":   map[string]any{"total_tokens": 12},
		})
	}))
	defer srv.Close()

	p, err := NewOpenAIPipeline(OpenAIOption{ApiKey: "k", BaseURL: srv.URL, SystemPrompt: "你是阿紫", MaxTurns: 1}, nil)
	require.NoError(t, err)

	got, err := p.GenerateReply(context.Background(), "你好", "s1")
	require.NoError(t, err)
	assert.Equal(t, "第一句回复", got)

	got, err = p.GenerateReply(context.Background(), "再见", "s1")
	require.NoError(t, err)
	assert.Equal(t, "第二句回复", got)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)
	assert.Len(t, received[0], 2)
	// system + 上一轮问答 + 本轮
	require.Len(t, received[1], 4)
	assert.Equal(t, "system", received[1][0]["role"])
	assert.Equal(t, "你好", received[1][1]["content"])
	assert.Equal(t, "第一句回复", received[1][2]["content"])
	assert.Equal(t, "再见", received[1][3]["content"])

	p.Forget("s1")
	_, ok := p.sessions.Get("s1")
	assert.False(t, ok)
}

func TestOpenAIPipeline_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"message": "bad key", "type": "invalid_request_error"}})
	}))
	defer srv.Close()

	p, err := NewOpenAIPipeline(OpenAIOption{ApiKey: "k", BaseURL: srv.URL}, nil)
	require.NoError(t, err)
	_, err = p.GenerateReply(context.Background(), "你好", "s1")
	assert.Error(t, err)
}

func TestDifyPipeline(t *testing.T) {
	var got difyRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, http.StatusOK, map[string]any{"answer": " 好的 ", "conversation_id": "c1"})
	}))
	defer srv.Close()

	p := NewDifyPipeline(DifyOption{ApiKey: "key", ApiURL: srv.URL}, func(string) string { return "[t] 主人说：早" }, nil)
	answer, err := p.GenerateReply(context.Background(), "今天天气", "s1")
	require.NoError(t, err)

	assert.Equal(t, "好的", answer)
	assert.Equal(t, "Bearer key", auth)
	assert.Equal(t, "今天天气", got.Query)
	assert.Equal(t, "s1", got.User)
	assert.Equal(t, "blocking", got.ResponseMode)
	assert.Contains(t, got.Inputs["prompt"], "主人说：早")
	assert.Contains(t, got.Inputs["prompt"], "今天天气")
}

func TestDifyPipeline_EmptyAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"answer": ""})
	}))
	defer srv.Close()

	_, err := NewDifyPipeline(DifyOption{ApiURL: srv.URL}, nil, nil).GenerateReply(context.Background(), "x", "s1")
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestDifyPipeline_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid"})
	}))
	defer srv.Close()

	_, err := NewDifyPipeline(DifyOption{ApiURL: srv.URL}, nil, nil).GenerateReply(context.Background(), "x", "s1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid")
}

func TestWebhookSink(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		writeJSON(w, http.StatusOK, map[string]any{"reply": "收到"})
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, 0)
	answer, err := sink.HandleEvent(context.Background(), EventSource{SessionID: "s1", UserID: "alice"}, "emotion", []byte(`{"label":"emotion","value":"happy"}`))
	require.NoError(t, err)
	assert.Equal(t, "收到", answer)
	assert.Equal(t, "s1", got["sessionId"])
	assert.Equal(t, "alice", got["userId"])
	assert.Equal(t, "emotion", got["label"])
	assert.Equal(t, "happy", got["payload"].(map[string]any)["value"])
}

func TestNopSink(t *testing.T) {
	answer, err := NopSink{}.HandleEvent(context.Background(), EventSource{SessionID: "s"}, "x", nil)
	assert.NoError(t, err)
	assert.Empty(t, answer)
}
