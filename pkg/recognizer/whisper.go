package recognizer

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// WhisperOption OpenAI 兼容的转写接口
type WhisperOption struct {
	ApiKey   string `json:"apiKey" yaml:"api_key"`
	BaseURL  string `json:"baseUrl" yaml:"base_url"`
	Model    string `json:"model" yaml:"model" default:"whisper-1"`
	Language string `json:"language" yaml:"language"`
}

// Whisper 整段WAV上传转写
type Whisper struct {
	client *openai.Client
	opt    WhisperOption
}

func NewWhisper(opt WhisperOption) *Whisper {
	config := openai.DefaultConfig(opt.ApiKey)
	if opt.BaseURL != "" {
		config.BaseURL = opt.BaseURL
	}
	if opt.Model == "" {
		opt.Model = openai.Whisper1
	}
	return &Whisper{client: openai.NewClientWithConfig(config), opt: opt}
}

func (w *Whisper) Vendor() Vendor {
	return VendorWhisper
}

func (w *Whisper) Recognize(ctx context.Context, wav []byte) (*Result, error) {
	start := time.Now()
	reqID := uuid.New().String()
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.opt.Model,
		FilePath: reqID + ".wav",
		Reader:   bytes.NewReader(wav),
		Language: w.opt.Language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logrus.WithField("reqid", reqID).WithError(err).Error("whisper asr: transcription failed")
		return nil, fmt.Errorf("whisper asr: %w", err)
	}
	return &Result{
		Text:     resp.Text,
		ReqID:    reqID,
		Vendor:   VendorWhisper,
		Duration: time.Since(start),
	}, nil
}
