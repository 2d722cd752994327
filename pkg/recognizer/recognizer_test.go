package recognizer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/code-100-precent/lingecho-vadasr/pkg/recognizer/volcasr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedRecognizer struct {
	errs  []error
	calls int
}

func (s *scriptedRecognizer) Vendor() Vendor { return VendorVolcengine }

func (s *scriptedRecognizer) Recognize(ctx context.Context, wav []byte) (*Result, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return &Result{Text: "ok"}, nil
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"取消", context.Canceled, false},
		{"连接断开", fmt.Errorf("wrap: %w", volcasr.ErrConnClosed), true},
		{"拨号失败", volcasr.ErrDial, true},
		{"帧错误", volcasr.ErrMalformedFrame, true},
		{"服务端错误", &volcasr.ServerError{Code: 1013}, false},
		{"无结果", volcasr.ErrNoResult, false},
		{"其他", errors.New("x"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}

func TestWithRetry(t *testing.T) {
	inner := &scriptedRecognizer{errs: []error{volcasr.ErrConnClosed}}
	r := WithRetry(inner, 1)

	res, err := r.Recognize(context.Background(), []byte{1})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
	assert.Equal(t, 2, inner.calls)
}

func TestWithRetry_GivesUp(t *testing.T) {
	inner := &scriptedRecognizer{errs: []error{volcasr.ErrConnClosed, volcasr.ErrConnClosed, volcasr.ErrConnClosed}}
	_, err := WithRetry(inner, 2).Recognize(context.Background(), []byte{1})
	assert.ErrorIs(t, err, volcasr.ErrConnClosed)
	assert.Equal(t, 3, inner.calls)
}

func TestWithRetry_NotRetryable(t *testing.T) {
	inner := &scriptedRecognizer{errs: []error{volcasr.ErrNoResult}}
	_, err := WithRetry(inner, 3).Recognize(context.Background(), []byte{1})
	assert.ErrorIs(t, err, volcasr.ErrNoResult)
	assert.Equal(t, 1, inner.calls)
}

func TestWithRetry_ZeroIsPassthrough(t *testing.T) {
	inner := &scriptedRecognizer{}
	assert.Same(t, Recognizer(inner), WithRetry(inner, 0))
}

func TestNew(t *testing.T) {
	r, err := New(Options{Vendor: VendorVolcengine})
	require.NoError(t, err)
	assert.Equal(t, VendorVolcengine, r.Vendor())

	r, err = New(Options{Vendor: VendorWhisper, MaxRetries: 1})
	require.NoError(t, err)
	assert.Equal(t, VendorWhisper, r.Vendor())

	_, err = New(Options{Vendor: "unknown"})
	assert.Error(t, err)
}
