package reply

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIOption OpenAI 兼容接口（含方舟等）配置
type OpenAIOption struct {
	ApiKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	// MaxTurns 每个会话保留的问答轮数
	MaxTurns    int
	MaxSessions int
}

type chatHistory struct {
	mu       sync.Mutex
	messages []openai.ChatCompletionMessage
}

// OpenAIPipeline 基于 chat completions 的回复生成
type OpenAIPipeline struct {
	client   *openai.Client
	opt      OpenAIOption
	sessions *lru.Cache[string, *chatHistory]
	logger   *zap.Logger
}

func NewOpenAIPipeline(opt OpenAIOption, logger *zap.Logger) (*OpenAIPipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opt.Model == "" {
		opt.Model = openai.GPT4oMini
	}
	if opt.MaxTurns <= 0 {
		opt.MaxTurns = 10
	}
	if opt.MaxSessions <= 0 {
		opt.MaxSessions = 1024
	}
	config := openai.DefaultConfig(opt.ApiKey)
	if opt.BaseURL != "" {
		config.BaseURL = opt.BaseURL
	}
	sessions, err := lru.New[string, *chatHistory](opt.MaxSessions)
	if err != nil {
		return nil, err
	}
	return &OpenAIPipeline{
		client:   openai.NewClientWithConfig(config),
		opt:      opt,
		sessions: sessions,
		logger:   logger,
	}, nil
}

func (p *OpenAIPipeline) history(sessionID string) *chatHistory {
	if h, ok := p.sessions.Get(sessionID); ok {
		return h
	}
	fresh := &chatHistory{}
	if prev, found, _ := p.sessions.PeekOrAdd(sessionID, fresh); found {
		return prev
	}
	return fresh
}

func (p *OpenAIPipeline) GenerateReply(ctx context.Context, text, sessionID string) (string, error) {
	h := p.history(sessionID)
	// 同一会话的请求串行，保证上下文顺序
	h.mu.Lock()
	defer h.mu.Unlock()

	messages := make([]openai.ChatCompletionMessage, 0, len(h.messages)+2)
	if p.opt.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: p.opt.SystemPrompt})
	}
	messages = append(messages, h.messages...)
	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text}
	messages = append(messages, user)

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    p.opt.Model,
		Messages: messages,
		User:     sessionID,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", ErrEmptyReply
	}

	h.messages = append(h.messages, user, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: answer})
	if over := len(h.messages) - p.opt.MaxTurns*2; over > 0 {
		h.messages = append([]openai.ChatCompletionMessage(nil), h.messages[over:]...)
	}

	p.logger.Debug("llm reply generated",
		zap.String("sessionId", sessionID),
		zap.String("model", p.opt.Model),
		zap.Int("totalTokens", resp.Usage.TotalTokens),
		zap.Duration("latency", time.Since(start)))
	return answer, nil
}

// Forget 删除会话上下文
func (p *OpenAIPipeline) Forget(sessionID string) {
	p.sessions.Remove(sessionID)
}
