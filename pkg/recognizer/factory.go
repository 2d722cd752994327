package recognizer

import (
	"fmt"

	"github.com/code-100-precent/lingecho-vadasr/pkg/recognizer/volcasr"
)

// Vendor 供应商类型
type Vendor string

const (
	// VendorVolcengine 火山引擎
	VendorVolcengine Vendor = "volcengine"
	// VendorWhisper OpenAI Whisper
	VendorWhisper Vendor = "whisper"
)

// Options 创建识别器所需的全部配置
type Options struct {
	Vendor     Vendor
	Volcengine volcasr.Config
	Whisper    WhisperOption
	MaxRetries int
	Correction CorrectorOption
}

// New 根据供应商创建识别器，按需包上重试和纠错
func New(opts Options) (Recognizer, error) {
	var r Recognizer
	switch opts.Vendor {
	case VendorVolcengine, "":
		r = NewVolcengine(opts.Volcengine)
	case VendorWhisper:
		r = NewWhisper(opts.Whisper)
	default:
		return nil, fmt.Errorf("unsupported asr vendor: %s", opts.Vendor)
	}
	r = WithRetry(r, opts.MaxRetries)
	corrector, err := NewCorrector(opts.Correction)
	if err != nil {
		return nil, err
	}
	return WithCorrection(r, corrector), nil
}
