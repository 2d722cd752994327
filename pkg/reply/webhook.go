package reply

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

type webhookEvent struct {
	SessionID string          `json:"sessionId"`
	UserID    string          `json:"userId"`
	Label     string          `json:"label"`
	Payload   json.RawMessage `json:"payload"`
}

type webhookReply struct {
	Reply string `json:"reply"`
}

// WebhookSink 把客户端事件原样转发到外部服务
type WebhookSink struct {
	client *resty.Client
	url    string
}

func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSink{
		client: resty.New().SetTimeout(timeout),
		url:    url,
	}
}

func (s *WebhookSink) HandleEvent(ctx context.Context, src EventSource, label string, raw []byte) (string, error) {
	payload := json.RawMessage(raw)
	if !json.Valid(raw) {
		payload, _ = json.Marshal(string(raw))
	}
	var out webhookReply
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(webhookEvent{SessionID: src.SessionID, UserID: src.UserID, Label: label, Payload: payload}).
		SetResult(&out).
		Post(s.url)
	if err != nil {
		return "", fmt.Errorf("event webhook: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("event webhook http %d", resp.StatusCode())
	}
	return out.Reply, nil
}
