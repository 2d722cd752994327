package reply

import (
	"context"
	"errors"
)

var ErrEmptyReply = errors.New("reply: empty answer")

// Pipeline 根据用户文本生成回复，调用可能涉及网络请求，不能在接收协程里执行
type Pipeline interface {
	GenerateReply(ctx context.Context, text, sessionID string) (string, error)
}

// EventSource 事件来源。对话上下文按 UserID 归属，SessionID 区分同一用户的多条连接
type EventSource struct {
	SessionID string
	UserID    string
}

// EventSink 处理透传的客户端事件（截图结果等），返回需要转给客户端的回复，可以为空
type EventSink interface {
	HandleEvent(ctx context.Context, src EventSource, label string, raw []byte) (string, error)
}

// Forgetter 可选接口，连接断开时清理会话上下文
type Forgetter interface {
	Forget(sessionID string)
}

// NopSink 丢弃所有事件
type NopSink struct{}

func (NopSink) HandleEvent(ctx context.Context, src EventSource, label string, raw []byte) (string, error) {
	return "", nil
}

// PipelineFunc 函数适配
type PipelineFunc func(ctx context.Context, text, sessionID string) (string, error)

func (f PipelineFunc) GenerateReply(ctx context.Context, text, sessionID string) (string, error) {
	return f(ctx, text, sessionID)
}

// HistoryFunc 返回会话的近期对话文本，用于拼接提示词
type HistoryFunc func(sessionID string) string
