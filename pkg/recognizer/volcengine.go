package recognizer

import (
	"context"

	"github.com/code-100-precent/lingecho-vadasr/pkg/recognizer/volcasr"
)

// Volcengine 火山引擎 v2 流式识别
type Volcengine struct {
	client *volcasr.Client
}

func NewVolcengine(cfg volcasr.Config) *Volcengine {
	return &Volcengine{client: volcasr.NewClient(cfg)}
}

func (v *Volcengine) Vendor() Vendor {
	return VendorVolcengine
}

func (v *Volcengine) Recognize(ctx context.Context, wav []byte) (*Result, error) {
	res, err := v.client.Recognize(ctx, wav)
	if err != nil {
		return nil, err
	}
	return &Result{
		Text:     res.Text,
		ReqID:    res.ReqID,
		Vendor:   VendorVolcengine,
		Duration: res.Duration,
	}, nil
}
