package errhandler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/code-100-precent/lingecho-vadasr/pkg/recognizer/volcasr"
	"go.uber.org/zap"
)

// ErrorType 错误类型
// 本子系统内所有错误都只影响单个连接或单段发言，不会结束进程
type ErrorType int

const (
	// ErrorTypeFatal 配置级错误（鉴权、配额），重试无意义
	ErrorTypeFatal ErrorType = iota
	// ErrorTypeRecoverable 可恢复错误，本段发言失败，连接继续
	ErrorTypeRecoverable
	// ErrorTypeTransient 临时错误（网络抖动、超时）
	ErrorTypeTransient
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeFatal:
		return "fatal"
	case ErrorTypeTransient:
		return "transient"
	default:
		return "recoverable"
	}
}

const (
	ServiceASR       = "asr"
	ServiceReply     = "reply"
	ServiceEvent     = "event"
	ServiceTransport = "transport"
)

// Error 统一错误结构
type Error struct {
	Type    ErrorType
	Service string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Service, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Service, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Handler 错误处理器
type Handler struct {
	logger *zap.Logger
}

// NewHandler 创建错误处理器
func NewHandler(logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{logger: logger}
}

var fatalKeywords = []string{
	"quota exceeded",
	"insufficient quota",
	"unauthorized",
	"authentication failed",
	"invalid credentials",
	"api key invalid",
	"invalid token",
}

var transientKeywords = []string{
	"timeout",
	"connection reset",
	"connection refused",
	"network",
	"temporary",
}

// IsFatal 判断是否是配置级错误
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Type == ErrorTypeFatal
	}
	return containsAny(err, fatalKeywords)
}

func isTransient(err error) bool {
	if errors.Is(err, volcasr.ErrNoResult) ||
		errors.Is(err, volcasr.ErrDial) ||
		errors.Is(err, volcasr.ErrConnClosed) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return containsAny(err, transientKeywords)
}

// Classify 分类错误
func (h *Handler) Classify(err error, service string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	errType := ErrorTypeRecoverable
	if IsFatal(err) {
		errType = ErrorTypeFatal
	} else if isTransient(err) {
		errType = ErrorTypeTransient
	}
	return &Error{
		Type:    errType,
		Service: service,
		Message: UserMessage(service),
		Err:     err,
	}
}

// HandleError 分类并记录错误，返回统一错误
func (h *Handler) HandleError(err error, service string, fields ...zap.Field) *Error {
	if err == nil {
		return nil
	}
	classified := h.Classify(err, service)
	fields = append(fields,
		zap.String("service", service),
		zap.String("type", classified.Type.String()),
		zap.Error(err),
	)
	switch classified.Type {
	case ErrorTypeFatal:
		h.logger.Error("致命错误", fields...)
	case ErrorTypeRecoverable:
		h.logger.Warn("可恢复错误", fields...)
	case ErrorTypeTransient:
		h.logger.Info("临时错误", fields...)
	}
	return classified
}

// UserMessage 返回给客户端的错误文本
func UserMessage(service string) string {
	switch service {
	case ServiceASR:
		return "recognition failed"
	case ServiceReply:
		return "reply failed"
	case ServiceEvent:
		return "event failed"
	default:
		return "internal error"
	}
}

// NewRecoverableError 创建可恢复错误
func NewRecoverableError(service, message string, err error) *Error {
	return &Error{Type: ErrorTypeRecoverable, Service: service, Message: message, Err: err}
}

// NewTransientError 创建临时错误
func NewTransientError(service, message string, err error) *Error {
	return &Error{Type: ErrorTypeTransient, Service: service, Message: message, Err: err}
}

func containsAny(err error, keywords []string) bool {
	msg := strings.ToLower(err.Error())
	for _, k := range keywords {
		if strings.Contains(msg, k) {
			return true
		}
	}
	return false
}
