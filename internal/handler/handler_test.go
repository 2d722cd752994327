package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/code-100-precent/lingecho-vadasr/pkg/config"
	"github.com/code-100-precent/lingecho-vadasr/pkg/metrics"
	"github.com/code-100-precent/lingecho-vadasr/pkg/recognizer"
	"github.com/code-100-precent/lingecho-vadasr/pkg/reply"
	"github.com/code-100-precent/lingecho-vadasr/pkg/vad"
	"github.com/code-100-precent/lingecho-vadasr/pkg/voice"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticRecognizer struct{}

func (staticRecognizer) Vendor() recognizer.Vendor { return "static" }

func (staticRecognizer) Recognize(ctx context.Context, wav []byte) (*recognizer.Result, error) {
	return &recognizer.Result{Text: "你好"}, nil
}

func newTestEngine(t *testing.T, cfg *config.Config) (*gin.Engine, *voice.Handler) {
	t.Helper()
	m := metrics.NewMetrics("test")
	vh, err := voice.NewHandler(voice.Options{
		Classifier: vad.NewClassifier(vad.NewEnergyModel(500), 0.6, nil),
		Recognizer: staticRecognizer{},
		Pipeline: reply.PipelineFunc(func(ctx context.Context, text, sessionID string) (string, error) {
			return "收到:" + text, nil
		}),
		Metrics: m,
	})
	require.NoError(t, err)

	engine := gin.New()
	h := NewHandlers(cfg, vh, m, nil, nil)
	require.NoError(t, h.Register(engine))
	return engine, vh
}

func testConfig() *config.Config {
	return &config.Config{WSPath: "/vad_asr", APIPrefix: "/api"}
}

func TestVoiceWebSocket_TextInput(t *testing.T) {
	engine, vh := newTestEngine(t, testConfig())
	srv := httptest.NewServer(engine)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/vad_asr?uid=dave"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"label":"text_input","text":"在吗"}`)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]string
	require.NoError(t, sonic.Unmarshal(data, &msg))
	assert.Equal(t, "chat", msg["label"])
	assert.Equal(t, "收到:在吗", msg["reply"])

	stats := vh.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, "dave", stats[0].UserID)
}

func TestHealthCheck(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)
}

func TestMetricsEndpoint(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_")
}

func TestNotify(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		remote string
		auth   string
		body   string
		status int
	}{
		{"内网放行", "", "127.0.0.1:1000", "", `{"text":"开会"}`, http.StatusOK},
		{"外网拒绝", "", "8.8.8.8:1000", "", `{"text":"开会"}`, http.StatusForbidden},
		{"令牌正确", "secret", "8.8.8.8:1000", "Bearer secret", `{"text":"开会"}`, http.StatusOK},
		{"令牌错误", "secret", "127.0.0.1:1000", "Bearer nope", `{"text":"开会"}`, http.StatusForbidden},
		{"缺少文本", "", "127.0.0.1:1000", "", `{}`, http.StatusBadRequest},
		{"空白文本", "", "127.0.0.1:1000", "", `{"text":"  "}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.NotifyToken = tt.token
			engine, _ := newTestEngine(t, cfg)

			req := httptest.NewRequest(http.MethodPost, "/api/notify", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.RemoteAddr = tt.remote
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestListSessions_Empty(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Code int   `json:"code"`
		Data []any `json:"data"`
	}
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 200, body.Code)
	assert.Empty(t, body.Data)
}
