package recognizer

import (
	"context"
	"errors"
	"time"

	"github.com/code-100-precent/lingecho-vadasr/pkg/recognizer/volcasr"
	"github.com/sirupsen/logrus"
)

// Result 一段发言的识别结果
type Result struct {
	Text     string
	ReqID    string
	Vendor   Vendor
	Duration time.Duration
}

// Recognizer 对整段WAV做一次性识别，调用会阻塞直到结果或失败
// 实现需要支持并发调用
type Recognizer interface {
	Vendor() Vendor
	Recognize(ctx context.Context, wav []byte) (*Result, error)
}

// Retryable 传输或协议层失败可以重试，ctx取消、服务端拒绝、超时无结果不重试
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, volcasr.ErrDial) ||
		errors.Is(err, volcasr.ErrConnClosed) ||
		errors.Is(err, volcasr.ErrMalformedFrame) ||
		errors.Is(err, volcasr.ErrDecompress)
}

type retryRecognizer struct {
	inner    Recognizer
	attempts int
	backoff  time.Duration
}

// WithRetry 失败后最多重试 retries 次
func WithRetry(r Recognizer, retries int) Recognizer {
	if retries <= 0 {
		return r
	}
	return &retryRecognizer{inner: r, attempts: retries + 1, backoff: 200 * time.Millisecond}
}

func (r *retryRecognizer) Vendor() Vendor {
	return r.inner.Vendor()
}

func (r *retryRecognizer) Recognize(ctx context.Context, wav []byte) (*Result, error) {
	var lastErr error
	for i := 0; i < r.attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.backoff * time.Duration(i)):
			}
			logrus.WithFields(logrus.Fields{
				"vendor":  r.inner.Vendor(),
				"attempt": i + 1,
			}).WithError(lastErr).Warn("asr: retrying recognition")
		}
		res, err := r.inner.Recognize(ctx, wav)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !Retryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}
