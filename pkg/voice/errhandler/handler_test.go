package errhandler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/code-100-precent/lingecho-vadasr/pkg/recognizer/volcasr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	h := NewHandler(nil)
	tests := []struct {
		name    string
		err     error
		service string
		want    ErrorType
		message string
	}{
		{"识别超时", volcasr.ErrNoResult, ServiceASR, ErrorTypeTransient, "recognition failed"},
		{"连接断开", fmt.Errorf("x: %w", volcasr.ErrConnClosed), ServiceASR, ErrorTypeTransient, "recognition failed"},
		{"帧错误", volcasr.ErrMalformedFrame, ServiceASR, ErrorTypeRecoverable, "recognition failed"},
		{"鉴权失败", errors.New("401 Unauthorized"), ServiceReply, ErrorTypeFatal, "reply failed"},
		{"回复超时", context.DeadlineExceeded, ServiceReply, ErrorTypeTransient, "reply failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := h.Classify(tt.err, tt.service)
			require.NotNil(t, e)
			assert.Equal(t, tt.want, e.Type)
			assert.Equal(t, tt.message, e.Message)
			assert.ErrorIs(t, e, tt.err)
		})
	}
}

func TestClassify_KeepsTypedError(t *testing.T) {
	h := NewHandler(nil)
	orig := NewRecoverableError(ServiceEvent, "empty image", nil)
	assert.Same(t, orig, h.Classify(fmt.Errorf("wrap: %w", orig), ServiceASR))
	assert.Nil(t, h.Classify(nil, ServiceASR))
	assert.Nil(t, h.HandleError(nil, ServiceASR))
}

func TestIsFatal(t *testing.T) {
	assert.False(t, IsFatal(nil))
	assert.True(t, IsFatal(errors.New("Insufficient Quota")))
	assert.False(t, IsFatal(errors.New("connection reset by peer")))
	assert.Equal(t, "[asr] recognition failed", (&Error{Service: ServiceASR, Message: "recognition failed"}).Error())
}
