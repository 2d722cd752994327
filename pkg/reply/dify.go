package reply

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DifyOption Dify chat-messages 阻塞模式配置
type DifyOption struct {
	ApiKey  string
	ApiURL  string
	Timeout time.Duration
	// UserID 为空时使用会话ID
	UserID string
}

type difyRequest struct {
	Query        string            `json:"query"`
	Inputs       map[string]string `json:"inputs"`
	User         string            `json:"user"`
	ResponseMode string            `json:"response_mode"`
}

type difyResponse struct {
	Answer         string `json:"answer"`
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

// DifyPipeline 通过 Dify 应用生成回复
type DifyPipeline struct {
	client  *resty.Client
	opt     DifyOption
	history HistoryFunc
	logger  *zap.Logger
}

// NewDifyPipeline history 可为空，不为空时近期对话拼入 inputs.prompt
func NewDifyPipeline(opt DifyOption, history HistoryFunc, logger *zap.Logger) *DifyPipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opt.Timeout <= 0 {
		opt.Timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(opt.Timeout).
		SetAuthToken(opt.ApiKey).
		SetHeader("Content-Type", "application/json")
	return &DifyPipeline{client: client, opt: opt, history: history, logger: logger}
}

func (p *DifyPipeline) buildPrompt(text, sessionID string) string {
	var short string
	if p.history != nil {
		short = p.history(sessionID)
	}
	var b strings.Builder
	b.WriteString("===短期对话===\n")
	b.WriteString(short)
	b.WriteString("\n$@$===用户说===\n")
	b.WriteString(text)
	b.WriteString("\n")
	return b.String()
}

func (p *DifyPipeline) GenerateReply(ctx context.Context, text, sessionID string) (string, error) {
	user := p.opt.UserID
	if user == "" {
		user = sessionID
	}
	var out difyResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(difyRequest{
			Query:        text,
			Inputs:       map[string]string{"prompt": p.buildPrompt(text, sessionID)},
			User:         user,
			ResponseMode: "blocking",
		}).
		SetResult(&out).
		SetError(&out).
		Post(p.opt.ApiURL)
	if err != nil {
		return "", fmt.Errorf("dify request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("dify http %d: %s", resp.StatusCode(), out.Message)
	}
	answer := strings.TrimSpace(out.Answer)
	if answer == "" {
		return "", ErrEmptyReply
	}
	p.logger.Debug("dify reply generated",
		zap.String("sessionId", sessionID),
		zap.String("conversationId", out.ConversationID),
		zap.Duration("latency", resp.Time()))
	return answer, nil
}
